package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/memodeck/pkg/models"
	"github.com/jmoiron/sqlx"
)

// DeckRepository handles store operations for decks.
type DeckRepository struct {
	db *sqlx.DB
}

// NewDeckRepository creates a new repository instance.
func NewDeckRepository(db *sqlx.DB) *DeckRepository {
	return &DeckRepository{db: db}
}

// Create inserts a new deck.
func (r *DeckRepository) Create(ctx context.Context, deck *models.Deck) error {
	query := r.db.Rebind(`
		INSERT INTO decks (id, name, description, total_cards, learned_cards, created_at, updated_at, last_studied)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		deck.ID, deck.Name, deck.Description, deck.TotalCards, deck.LearnedCards,
		deck.CreatedAt, deck.UpdatedAt, deck.LastStudied)
	if err != nil {
		return fmt.Errorf("failed to create deck %s: %w", deck.ID, err)
	}
	return nil
}

// ByID returns the deck with the given id, or nil if it does not exist.
func (r *DeckRepository) ByID(ctx context.Context, id string) (*models.Deck, error) {
	var deck models.Deck
	query := r.db.Rebind("SELECT * FROM decks WHERE id = ?")
	err := r.db.GetContext(ctx, &deck, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deck %s: %w", id, err)
	}
	return &deck, nil
}

// ByName returns the first deck with the given name, or nil.
func (r *DeckRepository) ByName(ctx context.Context, name string) (*models.Deck, error) {
	var deck models.Deck
	query := r.db.Rebind("SELECT * FROM decks WHERE name = ? LIMIT 1")
	err := r.db.GetContext(ctx, &deck, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deck named %q: %w", name, err)
	}
	return &deck, nil
}

// All returns every deck ordered by name.
func (r *DeckRepository) All(ctx context.Context) ([]models.Deck, error) {
	var decks []models.Deck
	err := r.db.SelectContext(ctx, &decks, "SELECT * FROM decks ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	return decks, nil
}

// Update rewrites a deck's mutable attributes.
func (r *DeckRepository) Update(ctx context.Context, deck *models.Deck) error {
	query := r.db.Rebind(`
		UPDATE decks SET
			name = ?, description = ?, total_cards = ?, learned_cards = ?,
			updated_at = ?, last_studied = ?
		WHERE id = ?`)
	_, err := r.db.ExecContext(ctx, query,
		deck.Name, deck.Description, deck.TotalCards, deck.LearnedCards,
		deck.UpdatedAt, deck.LastStudied, deck.ID)
	if err != nil {
		return fmt.Errorf("failed to update deck %s: %w", deck.ID, err)
	}
	return nil
}

// SetCounts overwrites the aggregate counters of a deck.
func (r *DeckRepository) SetCounts(ctx context.Context, id string, total, learned int) error {
	query := r.db.Rebind(`
		UPDATE decks SET total_cards = ?, learned_cards = ?, updated_at = ? WHERE id = ?`)
	_, err := r.db.ExecContext(ctx, query, total, learned, nowMillis(), id)
	if err != nil {
		return fmt.Errorf("failed to set counts for deck %s: %w", id, err)
	}
	return nil
}

// SetLearnedCount overwrites only the learned counter, used by the
// reconciliation pass.
func (r *DeckRepository) SetLearnedCount(ctx context.Context, id string, learned int) error {
	query := r.db.Rebind("UPDATE decks SET learned_cards = ?, updated_at = ? WHERE id = ?")
	_, err := r.db.ExecContext(ctx, query, learned, nowMillis(), id)
	if err != nil {
		return fmt.Errorf("failed to set learned count for deck %s: %w", id, err)
	}
	return nil
}

// RecordStudied stamps last_studied and optionally bumps learned_cards for
// an answer whose card was previously New.
func (r *DeckRepository) RecordStudied(ctx context.Context, id string, when int64, firstLearned bool) error {
	var query string
	if firstLearned {
		query = r.db.Rebind(`
			UPDATE decks SET last_studied = ?, learned_cards = learned_cards + 1, updated_at = ? WHERE id = ?`)
	} else {
		query = r.db.Rebind(`
			UPDATE decks SET last_studied = ?, updated_at = ? WHERE id = ?`)
	}
	_, err := r.db.ExecContext(ctx, query, when, nowMillis(), id)
	if err != nil {
		return fmt.Errorf("failed to record study for deck %s: %w", id, err)
	}
	return nil
}

// Delete removes the deck together with its notes and cards.
func (r *DeckRepository) Delete(ctx context.Context, id string) error {
	for _, stmt := range []string{
		"DELETE FROM cards WHERE deck_id = ?",
		"DELETE FROM notes WHERE deck_id = ?",
		"DELETE FROM decks WHERE id = ?",
	} {
		if _, err := r.db.ExecContext(ctx, r.db.Rebind(stmt), id); err != nil {
			return fmt.Errorf("failed to delete deck %s: %w", id, err)
		}
	}
	return nil
}
