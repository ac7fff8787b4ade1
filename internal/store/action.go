package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DefaultListLimit caps action log queries without an explicit limit.
const DefaultListLimit = 100

// ActionEvent is one fired pointer action.
type ActionEvent struct {
	ID        string
	SessionID string
	Gesture   string
	Action    string
	X         float64
	Y         float64
	CreatedAt time.Time
}

// ActionRepository stores the action log.
type ActionRepository struct {
	db *sql.DB
}

// Actions returns the action repository for this store.
func (s *Store) Actions() *ActionRepository {
	return &ActionRepository{db: s.db}
}

// Create inserts an event, assigning an ID and timestamp when unset.
func (r *ActionRepository) Create(e *ActionEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO action_log (id, session_id, gesture, action, x, y, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.Gesture, e.Action, e.X, e.Y, e.CreatedAt,
	)
	return err
}

// GetByID retrieves an event by its ID.
func (r *ActionRepository) GetByID(id string) (*ActionEvent, error) {
	e := &ActionEvent{}
	err := r.db.QueryRow(
		`SELECT id, session_id, gesture, action, x, y, created_at
		 FROM action_log WHERE id = ?`,
		id,
	).Scan(&e.ID, &e.SessionID, &e.Gesture, &e.Action, &e.X, &e.Y, &e.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// List returns the newest events first. A sessionID of "" lists all sessions.
func (r *ActionRepository) List(sessionID string, limit int) ([]*ActionEvent, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var (
		rows *sql.Rows
		err  error
	)
	if sessionID == "" {
		rows, err = r.db.Query(
			`SELECT id, session_id, gesture, action, x, y, created_at
			 FROM action_log ORDER BY created_at DESC LIMIT ?`,
			limit,
		)
	} else {
		rows, err = r.db.Query(
			`SELECT id, session_id, gesture, action, x, y, created_at
			 FROM action_log WHERE session_id = ? ORDER BY created_at DESC LIMIT ?`,
			sessionID, limit,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*ActionEvent
	for rows.Next() {
		e := &ActionEvent{}
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Gesture, &e.Action, &e.X, &e.Y, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// DeleteBefore prunes events older than t and returns how many were removed.
func (r *ActionRepository) DeleteBefore(t time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM action_log WHERE created_at < ?`, t)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
