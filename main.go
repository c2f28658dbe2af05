package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lotas/tabruhe/internal/analyzer"
	"github.com/lotas/tabruhe/internal/applog"
	"github.com/lotas/tabruhe/internal/bridge"
	"github.com/lotas/tabruhe/internal/config"
	"github.com/lotas/tabruhe/internal/engine"
	"github.com/lotas/tabruhe/internal/export"
	"github.com/lotas/tabruhe/internal/snapshot"
	"github.com/lotas/tabruhe/internal/store"
	"github.com/lotas/tabruhe/internal/tui"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "serve":
			runServe(os.Args[2:])
			return
		case "sync":
			runSync(os.Args[2:])
			return
		case "export":
			runExport(os.Args[2:])
			return
		case "analyze":
			runAnalyze(os.Args[2:])
			return
		case "snapshot":
			runSnapshot(os.Args[2:])
			return
		case "help", "--help", "-h":
			printHelp()
			return
		}
	}

	fs := flag.NewFlagSet("tabruhe", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file path (default: ~/.config/tabruhe/config.toml)")
	port := fs.Int("port", 0, "WebSocket port for the extension bridge")
	idleMinutes := fs.Int("idle-minutes", 0, "Minutes before an idle tab is auto-suspended")
	fs.Parse(os.Args[1:])

	cfg := loadConfig(*configPath, *port, *idleMinutes)

	if err := applog.Init(cfg.DataDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log: %v\n", err)
		os.Exit(1)
	}
	defer applog.Close()

	st, err := store.Open(cfg.DBPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	br := bridge.New(cfg.Port)
	eng := engine.New(st, br, engine.Options{
		IdleAfter:       cfg.IdleAfter,
		SweepEvery:      cfg.SweepEvery,
		CaptureExcerpts: cfg.CaptureText,
	})
	go br.ListenAndServe(ctx)
	go eng.Run(ctx, br.Events(), br.Commands())

	model := tui.NewModel(st, eng, br.Connected)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Print(`tabruhe — browser tab lifecycle manager

Usage:
  tabruhe                                Start the dashboard (default)
    --config <file>        Config file (default: ~/.config/tabruhe/config.toml)
    --port <n>             WebSocket port for the extension bridge
    --idle-minutes <n>     Minutes before an idle tab is auto-suspended

  tabruhe serve                          Run headless (bridge + engine only)
    --config <file>        Config file
    --port <n>             WebSocket port
    --idle-minutes <n>     Idle threshold in minutes

  tabruhe sync                           Rebuild state from the live browser
    --port <n>             WebSocket port
    --timeout <sec>        Seconds to wait for the extension (default: 10)

  tabruhe export                         Export the tracked session
    --json                 Export as JSON instead of markdown
    --out <file>           Output file path (default: stdout)

  tabruhe analyze                        Report duplicates, stale tabs, dead links
    --stale-days <n>       Days before a tab counts as stale (default: 7)
    --check-links          Probe suspended tab URLs over the network

  tabruhe snapshot [--label "text"]      Snapshot the session (only if changed)
  tabruhe snapshot list                  List saved snapshots
  tabruhe snapshot diff [rev] [rev2]     Compare snapshots or the current session
  tabruhe snapshot delete <rev> [--yes]  Delete a snapshot

Environment:
  TABRUHE_PORT           Bridge port (overridden by --port)
  TABRUHE_IDLE_MINUTES   Idle threshold (overridden by --idle-minutes)
`)
}

// loadConfig layers flag values over environment and file settings.
func loadConfig(path string, port, idleMinutes int) config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if port > 0 {
		cfg.Port = port
	}
	if idleMinutes > 0 {
		cfg.IdleAfter = time.Duration(idleMinutes) * time.Minute
	}
	return cfg
}

func openStore(cfg config.Config) *store.Store {
	st, err := store.Open(cfg.DBPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	return st
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file path")
	port := fs.Int("port", 0, "WebSocket port")
	idleMinutes := fs.Int("idle-minutes", 0, "Idle threshold in minutes")
	fs.Parse(args)

	cfg := loadConfig(*configPath, *port, *idleMinutes)

	if err := applog.Init(cfg.DataDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log: %v\n", err)
		os.Exit(1)
	}
	defer applog.Close()

	st := openStore(cfg)
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	br := bridge.New(cfg.Port)
	eng := engine.New(st, br, engine.Options{
		IdleAfter:       cfg.IdleAfter,
		SweepEvery:      cfg.SweepEvery,
		CaptureExcerpts: cfg.CaptureText,
	})
	go br.ListenAndServe(ctx)

	fmt.Fprintf(os.Stderr, "tabruhe listening on 127.0.0.1:%d\n", cfg.Port)
	if err := eng.Run(ctx, br.Events(), br.Commands()); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runSync(args []string) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file path")
	port := fs.Int("port", 0, "WebSocket port")
	timeout := fs.Int("timeout", 10, "Seconds to wait for the extension")
	fs.Parse(args)

	cfg := loadConfig(*configPath, *port, 0)
	st := openStore(cfg)
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	br := bridge.New(cfg.Port)
	// Sweeping is pointless for a one-shot resync.
	eng := engine.New(st, br, engine.Options{})
	go br.ListenAndServe(ctx)
	go eng.Run(ctx, br.Events(), br.Commands())

	fmt.Fprintf(os.Stderr, "Waiting for extension on port %d...\n", cfg.Port)
	deadline := time.Now().Add(time.Duration(*timeout) * time.Second)
	for !br.Connected() {
		if time.Now().After(deadline) {
			fmt.Fprintf(os.Stderr, "Timed out waiting for extension (%ds)\n", *timeout)
			os.Exit(1)
		}
		time.Sleep(100 * time.Millisecond)
	}

	opCtx, opCancel := context.WithTimeout(ctx, 30*time.Second)
	defer opCancel()
	if err := eng.SyncAll(opCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	m, err := st.LoadModel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	stats := m.ComputeStats()
	fmt.Printf("Synced %d tabs across %d windows\n", stats.Active, stats.Windows)
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file path")
	jsonFlag := fs.Bool("json", false, "Export as JSON instead of markdown")
	outFile := fs.String("out", "", "Output file path (default: stdout)")
	fs.Parse(args)

	cfg := loadConfig(*configPath, 0, 0)
	st := openStore(cfg)
	defer st.Close()

	m, err := st.LoadModel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var output string
	if *jsonFlag {
		output, err = export.JSON(m)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating JSON: %v\n", err)
			os.Exit(1)
		}
	} else {
		output = export.Markdown(m)
	}

	if *outFile != "" {
		if err := os.WriteFile(*outFile, []byte(output), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
			os.Exit(1)
		}
	} else {
		fmt.Print(output)
	}
}

func runAnalyze(args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file path")
	staleDays := fs.Int("stale-days", 7, "Days before a tab counts as stale")
	checkLinks := fs.Bool("check-links", false, "Probe suspended tab URLs over the network")
	fs.Parse(args)

	cfg := loadConfig(*configPath, 0, 0)
	st := openStore(cfg)
	defer st.Close()

	m, err := st.LoadModel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *checkLinks {
		fmt.Fprintln(os.Stderr, "Checking suspended tab links...")
	}
	report := analyzer.Analyze(m, time.Duration(*staleDays)*24*time.Hour, *checkLinks)
	fmt.Print(report.Format(m))
}

func runSnapshot(args []string) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		runSnapshotCreate(args)
		return
	}

	switch args[0] {
	case "create":
		runSnapshotCreate(args[1:])
	case "list":
		runSnapshotList(args[1:])
	case "diff":
		runSnapshotDiff(args[1:])
	case "delete":
		runSnapshotDelete(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown snapshot command %q. Use list, diff, or delete.\n", args[0])
		os.Exit(1)
	}
}

func runSnapshotCreate(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file path")
	label := fs.String("label", "", "Optional label for the snapshot")
	fs.Parse(args)

	cfg := loadConfig(*configPath, 0, 0)
	st := openStore(cfg)
	defer st.Close()

	m, err := st.LoadModel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	rev, created, diff, err := snapshot.Create(st, m, *label)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating snapshot: %v\n", err)
		os.Exit(1)
	}
	if !created {
		fmt.Printf("No changes since snapshot #%d\n", rev)
		return
	}

	stats := m.ComputeStats()
	fmt.Printf("Snapshot #%d created: %d tabs in %d windows\n", rev, len(m.Tabs), stats.Windows)
	if diff != nil && (len(diff.Added) > 0 || len(diff.Removed) > 0) {
		fmt.Println()
		fmt.Print(snapshot.Format(diff))
	}
}

func runSnapshotList(args []string) {
	fs := flag.NewFlagSet("snapshot list", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file path")
	fs.Parse(args)

	cfg := loadConfig(*configPath, 0, 0)
	st := openStore(cfg)
	defer st.Close()

	snaps, err := st.ListSnapshots()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing snapshots: %v\n", err)
		os.Exit(1)
	}
	if len(snaps) == 0 {
		fmt.Println("No snapshots found.")
		return
	}

	fmt.Printf("%-5s %5s  %-20s  %s\n", "REV", "TABS", "LABEL", "CREATED")
	for _, s := range snaps {
		fmt.Printf("%5d %5d  %-20s  %s\n",
			s.Rev, s.TabCount, s.Label, s.CreatedAt.Format("2006-01-02 15:04"))
	}
}

func runSnapshotDiff(args []string) {
	fs := flag.NewFlagSet("snapshot diff", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file path")
	fs.Parse(reorderArgs(args))

	cfg := loadConfig(*configPath, 0, 0)
	st := openStore(cfg)
	defer st.Close()

	switch fs.NArg() {
	case 0, 1:
		// Latest (or a specific rev) against the current session.
		rev := 0
		if fs.NArg() == 1 {
			var err error
			rev, err = strconv.Atoi(fs.Arg(0))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid revision number: %s\n", fs.Arg(0))
				os.Exit(1)
			}
		}
		snap, info, err := st.GetSnapshot(rev)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		current, err := st.LoadModel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Diff against snapshot #%d\n", info.Rev)
		fmt.Print(snapshot.Format(snapshot.Diff(snap, current)))

	case 2:
		rev1, err := strconv.Atoi(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid revision number: %s\n", fs.Arg(0))
			os.Exit(1)
		}
		rev2, err := strconv.Atoi(fs.Arg(1))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid revision number: %s\n", fs.Arg(1))
			os.Exit(1)
		}
		snap1, _, err := st.GetSnapshot(rev1)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		snap2, _, err := st.GetSnapshot(rev2)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Diff snapshot #%d against #%d\n", rev1, rev2)
		fmt.Print(snapshot.Format(snapshot.Diff(snap1, snap2)))

	default:
		fmt.Fprintln(os.Stderr, "Usage: tabruhe snapshot diff [rev] [rev2]")
		os.Exit(1)
	}
}

func runSnapshotDelete(args []string) {
	fs := flag.NewFlagSet("snapshot delete", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file path")
	yes := fs.Bool("yes", false, "Skip confirmation prompt")
	fs.Parse(reorderArgs(args))

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tabruhe snapshot delete <rev> [--yes]")
		os.Exit(1)
	}
	rev, err := strconv.Atoi(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid revision number: %s\n", fs.Arg(0))
		os.Exit(1)
	}

	if !*yes {
		fmt.Printf("Delete snapshot #%d? [y/N] ", rev)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("Aborted.")
			return
		}
	}

	cfg := loadConfig(*configPath, 0, 0)
	st := openStore(cfg)
	defer st.Close()

	if err := st.DeleteSnapshot(rev); err != nil {
		fmt.Fprintf(os.Stderr, "Error deleting snapshot: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Snapshot #%d deleted.\n", rev)
}

// reorderArgs moves flag arguments before positional arguments so that
// flag.Parse handles them correctly (it stops at the first non-flag arg).
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if strings.HasPrefix(args[i], "-") {
			flags = append(flags, args[i])
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				flags = append(flags, args[i+1])
				i++
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}
