package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lotas/tabruhe/internal/types"
)

// ErrNoSnapshot is returned when the requested snapshot revision is absent.
var ErrNoSnapshot = fmt.Errorf("snapshot not found")

// SnapshotInfo describes one stored snapshot without its payload.
type SnapshotInfo struct {
	Rev       int
	Label     string
	TabCount  int
	CreatedAt time.Time
}

// SaveSnapshot stores a full copy of the model under a new revision and
// returns the revision number. The payload shares the kv codec.
func (s *Store) SaveSnapshot(m *types.Model, label string) (int, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return 0, fmt.Errorf("encode snapshot: %w", err)
	}
	res, err := s.db.Exec(
		"INSERT INTO snapshots (label, tab_count, data) VALUES (?, ?, ?)",
		label, len(m.Tabs), compress(data),
	)
	if err != nil {
		return 0, fmt.Errorf("write snapshot: %w", err)
	}
	rev, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("snapshot revision: %w", err)
	}
	return int(rev), nil
}

// ListSnapshots returns all snapshots, newest first.
func (s *Store) ListSnapshots() ([]SnapshotInfo, error) {
	rows, err := s.db.Query(
		"SELECT rev, label, tab_count, created_at FROM snapshots ORDER BY rev DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		if err := rows.Scan(&info.Rev, &info.Label, &info.TabCount, &info.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// GetSnapshot loads the model stored under the given revision. Revision 0
// means the latest snapshot.
func (s *Store) GetSnapshot(rev int) (*types.Model, SnapshotInfo, error) {
	query := "SELECT rev, label, tab_count, created_at, data FROM snapshots WHERE rev = ?"
	args := []any{rev}
	if rev == 0 {
		query = "SELECT rev, label, tab_count, created_at, data FROM snapshots ORDER BY rev DESC LIMIT 1"
		args = nil
	}

	var info SnapshotInfo
	var raw []byte
	err := s.db.QueryRow(query, args...).Scan(&info.Rev, &info.Label, &info.TabCount, &info.CreatedAt, &raw)
	if err == sql.ErrNoRows {
		return nil, SnapshotInfo{}, ErrNoSnapshot
	}
	if err != nil {
		return nil, SnapshotInfo{}, fmt.Errorf("read snapshot %d: %w", rev, err)
	}

	data, err := decompress(raw)
	if err != nil {
		return nil, SnapshotInfo{}, fmt.Errorf("decode snapshot %d: %w", info.Rev, err)
	}
	m := types.NewModel()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, SnapshotInfo{}, fmt.Errorf("parse snapshot %d: %w", info.Rev, err)
	}
	return m, info, nil
}

// DeleteSnapshot removes the given revision.
func (s *Store) DeleteSnapshot(rev int) error {
	res, err := s.db.Exec("DELETE FROM snapshots WHERE rev = ?", rev)
	if err != nil {
		return fmt.Errorf("delete snapshot %d: %w", rev, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoSnapshot
	}
	return nil
}
