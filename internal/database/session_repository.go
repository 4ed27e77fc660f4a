package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/memodeck/pkg/models"
	"github.com/jmoiron/sqlx"
)

// SessionRepository handles store operations for study sessions and the
// session map record.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new repository instance.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Save writes the session and registers it as the current one in the
// session map.
func (r *SessionRepository) Save(ctx context.Context, session *models.StudySession) error {
	query := r.db.Rebind(`
		INSERT INTO sessions (id, deck_id, words, current_index, created_at, updated_at, completed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			words = excluded.words,
			current_index = excluded.current_index,
			updated_at = excluded.updated_at,
			completed = excluded.completed`)
	_, err := r.db.ExecContext(ctx, query,
		session.ID, session.DeckID, session.Words, session.CurrentIndex,
		session.CreatedAt, session.UpdatedAt, session.Completed)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}

	sm, err := r.Map(ctx)
	if err != nil {
		return err
	}
	found := false
	for _, id := range sm.Sessions {
		if id == session.ID {
			found = true
			break
		}
	}
	if !found {
		sm.Sessions = append(sm.Sessions, session.ID)
	}
	sm.CurrentSessionID = session.ID
	return r.SaveMap(ctx, sm)
}

// ByID returns the session with the given id, or nil if it does not exist.
func (r *SessionRepository) ByID(ctx context.Context, id string) (*models.StudySession, error) {
	var session models.StudySession
	query := r.db.Rebind("SELECT * FROM sessions WHERE id = ?")
	err := r.db.GetContext(ctx, &session, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	return &session, nil
}

// LatestIncomplete returns the most recently updated unfinished session of
// the deck, or nil when every session for it has completed.
func (r *SessionRepository) LatestIncomplete(ctx context.Context, deckID string) (*models.StudySession, error) {
	var session models.StudySession
	query := r.db.Rebind(`
		SELECT * FROM sessions
		WHERE deck_id = ? AND completed = ?
		ORDER BY updated_at DESC
		LIMIT 1`)
	err := r.db.GetContext(ctx, &session, query, deckID, false)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get incomplete session for deck %s: %w", deckID, err)
	}
	return &session, nil
}

// Map returns the session map record; an absent row yields an empty map.
func (r *SessionRepository) Map(ctx context.Context) (*models.SessionMap, error) {
	var sm models.SessionMap
	err := r.db.GetContext(ctx, &sm,
		"SELECT sessions, current_session_id FROM session_map WHERE id = 1")
	if errors.Is(err, sql.ErrNoRows) {
		return &models.SessionMap{Sessions: models.SessionIDs{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session map: %w", err)
	}
	return &sm, nil
}

// SaveMap writes the single session map row.
func (r *SessionRepository) SaveMap(ctx context.Context, sm *models.SessionMap) error {
	query := r.db.Rebind(`
		INSERT INTO session_map (id, sessions, current_session_id)
		VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			sessions = excluded.sessions,
			current_session_id = excluded.current_session_id`)
	_, err := r.db.ExecContext(ctx, query, sm.Sessions, sm.CurrentSessionID)
	if err != nil {
		return fmt.Errorf("failed to save session map: %w", err)
	}
	return nil
}

// Delete removes a session and unlinks it from the session map.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		r.db.Rebind("DELETE FROM sessions WHERE id = ?"), id); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}

	sm, err := r.Map(ctx)
	if err != nil {
		return err
	}
	kept := sm.Sessions[:0]
	for _, sid := range sm.Sessions {
		if sid != id {
			kept = append(kept, sid)
		}
	}
	sm.Sessions = kept
	if sm.CurrentSessionID == id {
		sm.CurrentSessionID = ""
	}
	return r.SaveMap(ctx, sm)
}
