package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store journals outbound calls and their transfers. Calls are keyed by room
// name since one room carries exactly one call.
type Store struct {
	DB *sql.DB
}

type Call struct {
	Room      string
	Phone     string
	State     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Transfer struct {
	ID          string
	Room        string
	Identity    string
	Destination string
	Result      string
	CreatedAt   time.Time
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer at a time
	db.SetMaxOpenConns(1)
	s := &Store{DB: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS calls (room TEXT PRIMARY KEY, phone TEXT, state TEXT, created_at INTEGER, updated_at INTEGER);`,
		`CREATE TABLE IF NOT EXISTS transfers (id TEXT PRIMARY KEY, room TEXT, identity TEXT, destination TEXT, result TEXT, created_at INTEGER);`,
		`CREATE INDEX IF NOT EXISTS transfers_room ON transfers(room);`,
	}
	for _, q := range stmts {
		if _, err := s.DB.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// CreateCall records a call for room. Re-dispatching the same room resets it.
func (s *Store) CreateCall(room, phone, state string) error {
	if room == "" {
		return errors.New("room required")
	}
	now := time.Now().Unix()
	_, err := s.DB.Exec(`INSERT INTO calls(room, phone, state, created_at, updated_at) VALUES(?,?,?,?,?)
		ON CONFLICT(room) DO UPDATE SET phone = excluded.phone, state = excluded.state, updated_at = excluded.updated_at`,
		room, phone, state, now, now)
	return err
}

func (s *Store) UpdateCallState(room, state string) error {
	res, err := s.DB.Exec(`UPDATE calls SET state = ?, updated_at = ? WHERE room = ?`, state, time.Now().Unix(), room)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("call not found: %s", room)
	}
	return nil
}

func (s *Store) GetCall(room string) (Call, error) {
	var (
		c                Call
		created, updated int64
		phone, state     sql.NullString
	)
	row := s.DB.QueryRow(`SELECT room, phone, state, created_at, updated_at FROM calls WHERE room = ?`, room)
	if err := row.Scan(&c.Room, &phone, &state, &created, &updated); err != nil {
		return Call{}, err
	}
	c.Phone = phone.String
	c.State = state.String
	c.CreatedAt = time.Unix(created, 0)
	c.UpdatedAt = time.Unix(updated, 0)
	return c, nil
}

// RecordTransfer journals one transfer attempt and returns its id.
func (s *Store) RecordTransfer(room, identity, destination, result string) (string, error) {
	id := uuid.NewString()
	if _, err := s.DB.Exec(`INSERT INTO transfers(id, room, identity, destination, result, created_at) VALUES(?,?,?,?,?,?)`,
		id, room, identity, destination, result, time.Now().Unix()); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) ListTransfers(room string) ([]Transfer, error) {
	rows, err := s.DB.Query(`SELECT id, room, identity, destination, result, created_at FROM transfers WHERE room = ? ORDER BY created_at, rowid`, room)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transfer
	for rows.Next() {
		var (
			t       Transfer
			created int64
		)
		if err := rows.Scan(&t.ID, &t.Room, &t.Identity, &t.Destination, &t.Result, &created); err != nil {
			return nil, err
		}
		t.CreatedAt = time.Unix(created, 0)
		out = append(out, t)
	}
	return out, rows.Err()
}
