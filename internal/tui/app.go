package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/tabruhe/internal/store"
	"github.com/lotas/tabruhe/internal/types"
)

// Controller is the slice of the engine the dashboard drives. Calls block
// until the engine has applied the operation, so a reload afterwards sees
// the result.
type Controller interface {
	SuspendTab(ctx context.Context, tid string) error
	RestoreTab(ctx context.Context, tid string) error
	DeleteTab(ctx context.Context, tid string) error
	SyncAll(ctx context.Context) error
}

const opTimeout = 10 * time.Second

type modelLoadedMsg struct {
	model *types.Model
	err   error
}

type storeChangedMsg struct{ keys []string }

type opDoneMsg struct{ err error }

// Model is the bubbletea model for the dashboard.
type Model struct {
	st      *store.Store
	ctrl    Controller
	changes <-chan []string
	isLive  func() bool

	session *types.Model
	tree    Tree
	styles  Styles
	theme   string

	searching bool
	query     string

	status string
	err    error
	width  int
	height int
}

// NewModel builds the dashboard over an open store and a running engine.
// isLive reports whether the extension is currently connected.
func NewModel(st *store.Store, ctrl Controller, isLive func() bool) Model {
	return Model{
		st:      st,
		ctrl:    ctrl,
		changes: st.Subscribe(),
		isLive:  isLive,
		styles:  themeStyles("dark"),
		theme:   "dark",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(loadModel(m.st), loadTheme(m.st), listenChanges(m.changes))
}

func loadModel(st *store.Store) tea.Cmd {
	return func() tea.Msg {
		model, err := st.LoadModel()
		return modelLoadedMsg{model: model, err: err}
	}
}

func loadTheme(st *store.Store) tea.Cmd {
	return func() tea.Msg {
		values, err := st.Get(store.KeyTheme)
		if err != nil {
			return nil
		}
		var theme string
		if raw, ok := values[store.KeyTheme]; ok {
			json.Unmarshal(raw, &theme)
		}
		if theme == "" {
			theme = "dark"
		}
		return themeMsg(theme)
	}
}

type themeMsg string

func listenChanges(ch <-chan []string) tea.Cmd {
	return func() tea.Msg {
		keys, ok := <-ch
		if !ok {
			return nil
		}
		return storeChangedMsg{keys: keys}
	}
}

func runOp(fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return opDoneMsg{err: fn(ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.tree.Width = m.width - 4
		m.tree.Height = m.height - 6
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)

	case modelLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.session = msg.model
		if m.tree.Model == nil {
			m.tree = NewTree(m.session)
			m.tree.Width = m.width - 4
			m.tree.Height = m.height - 6
		} else {
			m.tree.Rebuild(m.session)
		}
		return m, nil

	case storeChangedMsg:
		// The store is the single source of truth; any committed write
		// re-renders from a fresh load.
		return m, tea.Batch(loadModel(m.st), listenChanges(m.changes))

	case themeMsg:
		m.theme = string(msg)
		m.styles = themeStyles(m.theme)
		return m, nil

	case opDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("error: %v", msg.err)
		} else {
			m.status = ""
		}
		return m, loadModel(m.st)
	}

	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
	case "esc":
		m.searching = false
		m.query = ""
		m.tree.SetQuery("")
	case "backspace":
		if len(m.query) > 0 {
			runes := []rune(m.query)
			m.query = string(runes[:len(runes)-1])
			m.tree.SetQuery(m.query)
		}
	case "ctrl+c":
		return m, tea.Quit
	default:
		if msg.Type == tea.KeyRunes {
			m.query += string(msg.Runes)
			m.tree.SetQuery(m.query)
		}
	}
	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		m.tree.MoveUp()
	case "down", "j":
		m.tree.MoveDown()
	case "enter", "h", "l":
		m.tree.Toggle()
	case "/":
		m.searching = true
	case "esc":
		m.query = ""
		m.tree.SetQuery("")
	case "t":
		return m.toggleTheme()
	case "S":
		m.status = "syncing..."
		return m, runOp(m.ctrl.SyncAll)
	case "s":
		if node := m.tree.SelectedNode(); node != nil && node.Tab != nil && node.Tab.State == types.StateActive {
			m.status = "suspending..."
			tid := node.TabID
			return m, runOp(func(ctx context.Context) error { return m.ctrl.SuspendTab(ctx, tid) })
		}
	case "r":
		if node := m.tree.SelectedNode(); node != nil && node.Tab != nil && node.Tab.State == types.StateSuspended {
			m.status = "restoring..."
			tid := node.TabID
			return m, runOp(func(ctx context.Context) error { return m.ctrl.RestoreTab(ctx, tid) })
		}
	case "d":
		if node := m.tree.SelectedNode(); node != nil && node.Tab != nil {
			m.status = "deleting..."
			tid := node.TabID
			return m, runOp(func(ctx context.Context) error { return m.ctrl.DeleteTab(ctx, tid) })
		}
	}
	return m, nil
}

func (m Model) toggleTheme() (tea.Model, tea.Cmd) {
	if m.theme == "dark" {
		m.theme = "light"
	} else {
		m.theme = "dark"
	}
	m.styles = themeStyles(m.theme)

	raw, _ := json.Marshal(m.theme)
	st, theme := m.st, m.theme
	return m, func() tea.Msg {
		if err := st.Set(map[string][]byte{store.KeyTheme: raw}); err != nil {
			return opDoneMsg{err: fmt.Errorf("save theme %q: %w", theme, err)}
		}
		return nil
	}
}

func (m Model) View() string {
	if m.err != nil {
		return fmt.Sprintf("\n  Error: %v\n\n  Press q to quit.\n", m.err)
	}
	if m.session == nil {
		return "\n  Loading session...\n"
	}

	stats := m.session.ComputeStats()
	conn := "extension ○ waiting"
	if m.isLive != nil && m.isLive() {
		conn = "extension ● connected"
	}
	topBar := m.styles.TopBar.Render(fmt.Sprintf(
		"tabruhe  %s  ·  %d windows · %d active · %d suspended",
		conn, stats.Windows, stats.Active, stats.Suspended,
	))

	body := m.styles.Border.
		Width(max(m.tree.Width+2, 20)).
		Height(max(m.tree.Height, 3)).
		Render(m.tree.View(m.styles))

	detail := ""
	if node := m.tree.SelectedNode(); node != nil && node.Tab != nil {
		detail = m.styles.Detail.Render(truncate("  "+node.Tab.URL, m.width))
	}

	var bottomText string
	switch {
	case m.searching:
		bottomText = fmt.Sprintf("search: %s▌  ·  enter done · esc clear", m.query)
	case m.query != "":
		bottomText = fmt.Sprintf("[/%s]  ·  esc clear · ", m.query)
	}
	if !m.searching {
		bottomText += "↑↓/jk navigate · enter fold · / search · s suspend · r restore · d delete · S sync · t theme · q quit"
		if m.status != "" {
			bottomText += "  ·  " + m.status
		}
	}
	bottomBar := m.styles.BottomBar.Render(bottomText)

	return lipgloss.JoinVertical(lipgloss.Left, topBar, body, detail, bottomBar)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
