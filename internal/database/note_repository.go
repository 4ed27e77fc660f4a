package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/memodeck/pkg/models"
	"github.com/jmoiron/sqlx"
)

// NoteRepository handles store operations for notes.
type NoteRepository struct {
	db *sqlx.DB
}

// NewNoteRepository creates a new repository instance.
func NewNoteRepository(db *sqlx.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// Upsert inserts the note or replaces an existing one with the same id.
func (r *NoteRepository) Upsert(ctx context.Context, note *models.Note) error {
	query := r.db.Rebind(`
		INSERT INTO notes (id, deck_id, model_id, fields, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			deck_id = excluded.deck_id,
			model_id = excluded.model_id,
			fields = excluded.fields,
			tags = excluded.tags,
			updated_at = excluded.updated_at`)
	_, err := r.db.ExecContext(ctx, query,
		note.ID, note.DeckID, note.ModelID, note.Fields, note.Tags,
		note.CreatedAt, note.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert note %s: %w", note.ID, err)
	}
	return nil
}

// ByID returns the note with the given id, or nil if it does not exist.
func (r *NoteRepository) ByID(ctx context.Context, id string) (*models.Note, error) {
	var note models.Note
	query := r.db.Rebind("SELECT * FROM notes WHERE id = ?")
	err := r.db.GetContext(ctx, &note, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note %s: %w", id, err)
	}
	return &note, nil
}

// SetDeckID backfills the deck association once the first card of the note
// is imported. Only overwrites an empty deck_id.
func (r *NoteRepository) SetDeckID(ctx context.Context, noteID, deckID string, updatedAt int64) error {
	query := r.db.Rebind(`
		UPDATE notes SET deck_id = ?, updated_at = ? WHERE id = ? AND deck_id = ''`)
	_, err := r.db.ExecContext(ctx, query, deckID, updatedAt, noteID)
	if err != nil {
		return fmt.Errorf("failed to set deck for note %s: %w", noteID, err)
	}
	return nil
}
