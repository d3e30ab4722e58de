// Package sqlite persists sessions and conversation turns in a local
// SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ytakeda/execpersona/backend/internal/model/chat"
	"github.com/ytakeda/execpersona/backend/internal/storage"
)

// Store is a SQLite-backed session and history store.
type Store struct {
	db   *sql.DB
	path string
}

// New opens (or creates) the database file under dataDir and applies the
// schema.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "conversations.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_timeout=5000&_fk=1")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		persona_id TEXT NOT NULL,
		state TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_owner ON sessions(owner_id);

	CREATE TABLE IF NOT EXISTS turns (
		session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (session_id, seq),
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertSession stores a freshly created session.
func (s *Store) InsertSession(ctx context.Context, sess chat.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, owner_id, persona_id, state, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, sess.ID, sess.OwnerID, sess.PersonaID, string(sess.State), sess.CreatedAt)
	return storage.WrapIO("insert session", err)
}

// FetchSession loads a session by identifier regardless of owner or state.
func (s *Store) FetchSession(ctx context.Context, id string) (chat.Session, error) {
	var sess chat.Session
	var state string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, persona_id, state, created_at
		FROM sessions WHERE id = ?
	`, id).Scan(&sess.ID, &sess.OwnerID, &sess.PersonaID, &state, &sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return chat.Session{}, storage.ErrSessionNotFound
	}
	if err != nil {
		return chat.Session{}, storage.WrapIO("fetch session", err)
	}
	sess.State = chat.SessionState(state)
	return sess, nil
}

// SessionsByOwner lists the owner's sessions in creation order, active
// ones only.
func (s *Store) SessionsByOwner(ctx context.Context, ownerID string) ([]chat.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, persona_id, state, created_at
		FROM sessions WHERE owner_id = ? AND state = ? ORDER BY created_at
	`, ownerID, string(chat.SessionActive))
	if err != nil {
		return nil, storage.WrapIO("list sessions", err)
	}
	defer rows.Close()

	var sessions []chat.Session
	for rows.Next() {
		var sess chat.Session
		var state string
		if err := rows.Scan(&sess.ID, &sess.OwnerID, &sess.PersonaID, &state, &sess.CreatedAt); err != nil {
			return nil, storage.WrapIO("scan session", err)
		}
		sess.State = chat.SessionState(state)
		sessions = append(sessions, sess)
	}
	return sessions, storage.WrapIO("list sessions", rows.Err())
}

// MarkTerminated flips a session to the terminated state. Turns remain.
func (s *Store) MarkTerminated(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET state = ? WHERE id = ?
	`, string(chat.SessionTerminated), id)
	if err != nil {
		return storage.WrapIO("terminate session", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storage.WrapIO("terminate session", err)
	}
	if n == 0 {
		return storage.ErrSessionNotFound
	}
	return nil
}

// AppendExchange appends the user turn and the assistant turn of one
// exchange in a single transaction. Sequence numbers are assigned here
// from the per-session counter, so readers either see both turns or
// neither.
func (s *Store) AppendExchange(ctx context.Context, sessionID string, userTurn, assistantTurn chat.Turn) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.WrapIO("begin append", err)
	}
	defer tx.Rollback()

	var state string
	err = tx.QueryRowContext(ctx, `SELECT state FROM sessions WHERE id = ?`, sessionID).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrSessionNotFound
	}
	if err != nil {
		return storage.WrapIO("append exchange", err)
	}
	// Checked inside the transaction so a terminate racing this append
	// cannot slip new turns into a dead session.
	if state != string(chat.SessionActive) {
		return storage.ErrSessionNotFound
	}

	var lastSeq int64
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM turns WHERE session_id = ?
	`, sessionID).Scan(&lastSeq)
	if err != nil {
		return storage.WrapIO("append exchange", err)
	}

	for i, turn := range []chat.Turn{userTurn, assistantTurn} {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO turns (session_id, seq, role, content, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, sessionID, lastSeq+int64(i)+1, turn.Role, turn.Content, turn.CreatedAt)
		if err != nil {
			return storage.WrapIO("append exchange", err)
		}
	}

	return storage.WrapIO("commit append", tx.Commit())
}

// RecentTurns returns at most max turns in chronological order, the most
// recent ones when the session holds more.
func (s *Store) RecentTurns(ctx context.Context, sessionID string, max int) ([]chat.Turn, error) {
	if err := s.checkSession(ctx, sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, seq, role, content, created_at
		FROM turns WHERE session_id = ? ORDER BY seq DESC LIMIT ?
	`, sessionID, max)
	if err != nil {
		return nil, storage.WrapIO("recent turns", err)
	}
	defer rows.Close()

	turns, err := scanTurns(rows)
	if err != nil {
		return nil, err
	}
	// Query returned newest first.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// Turns returns the complete transcript in chronological order.
func (s *Store) Turns(ctx context.Context, sessionID string) ([]chat.Turn, error) {
	if err := s.checkSession(ctx, sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, seq, role, content, created_at
		FROM turns WHERE session_id = ? ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, storage.WrapIO("load turns", err)
	}
	defer rows.Close()

	return scanTurns(rows)
}

func (s *Store) checkSession(ctx context.Context, sessionID string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, sessionID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrSessionNotFound
	}
	return storage.WrapIO("check session", err)
}

func scanTurns(rows *sql.Rows) ([]chat.Turn, error) {
	var turns []chat.Turn
	for rows.Next() {
		var turn chat.Turn
		if err := rows.Scan(&turn.SessionID, &turn.Seq, &turn.Role, &turn.Content, &turn.CreatedAt); err != nil {
			return nil, storage.WrapIO("scan turn", err)
		}
		turns = append(turns, turn)
	}
	return turns, storage.WrapIO("scan turns", rows.Err())
}
