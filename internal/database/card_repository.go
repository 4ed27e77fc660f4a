package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/memodeck/pkg/models"
	"github.com/jmoiron/sqlx"
)

// CardRepository handles store operations for cards.
type CardRepository struct {
	db *sqlx.DB
}

// NewCardRepository creates a new repository instance.
func NewCardRepository(db *sqlx.DB) *CardRepository {
	return &CardRepository{db: db}
}

// Upsert inserts the card or replaces an existing one with the same id.
func (r *CardRepository) Upsert(ctx context.Context, card *models.Card) error {
	query := r.db.Rebind(`
		INSERT INTO cards (id, note_id, deck_id, ord, front, back, word, phonetic,
			type, queue, due, interval, factor, reps, lapses, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			note_id = excluded.note_id,
			deck_id = excluded.deck_id,
			ord = excluded.ord,
			front = excluded.front,
			back = excluded.back,
			word = excluded.word,
			phonetic = excluded.phonetic,
			type = excluded.type,
			queue = excluded.queue,
			due = excluded.due,
			interval = excluded.interval,
			factor = excluded.factor,
			reps = excluded.reps,
			lapses = excluded.lapses`)
	_, err := r.db.ExecContext(ctx, query,
		card.ID, card.NoteID, card.DeckID, card.Ord, card.Front, card.Back,
		card.Word, card.Phonetic, card.Type, card.Queue, card.Due,
		card.Interval, card.Factor, card.Reps, card.Lapses, card.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert card %s: %w", card.ID, err)
	}
	return nil
}

// Update rewrites the scheduling state of a card after an answer.
func (r *CardRepository) Update(ctx context.Context, card *models.Card) error {
	query := r.db.Rebind(`
		UPDATE cards SET
			type = ?, queue = ?, due = ?, interval = ?, factor = ?, reps = ?, lapses = ?
		WHERE id = ?`)
	_, err := r.db.ExecContext(ctx, query,
		card.Type, card.Queue, card.Due, card.Interval, card.Factor,
		card.Reps, card.Lapses, card.ID)
	if err != nil {
		return fmt.Errorf("failed to update card %s: %w", card.ID, err)
	}
	return nil
}

// ByID returns the card with the given id, or nil if it does not exist.
func (r *CardRepository) ByID(ctx context.Context, id string) (*models.Card, error) {
	var card models.Card
	query := r.db.Rebind("SELECT * FROM cards WHERE id = ?")
	err := r.db.GetContext(ctx, &card, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card %s: %w", id, err)
	}
	return &card, nil
}

// ByDeck returns every card of a deck.
func (r *CardRepository) ByDeck(ctx context.Context, deckID string) ([]models.Card, error) {
	var cards []models.Card
	query := r.db.Rebind("SELECT * FROM cards WHERE deck_id = ?")
	if err := r.db.SelectContext(ctx, &cards, query, deckID); err != nil {
		return nil, fmt.Errorf("failed to get cards for deck %s: %w", deckID, err)
	}
	return cards, nil
}

// Delete removes a single card.
func (r *CardRepository) Delete(ctx context.Context, id string) error {
	query := r.db.Rebind("DELETE FROM cards WHERE id = ?")
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete card %s: %w", id, err)
	}
	return nil
}

// DueCards returns review and day-learning cards of the deck that are due
// at or before now, most overdue first, capped at limit.
func (r *CardRepository) DueCards(ctx context.Context, deckID string, now int64, limit int) ([]models.Card, error) {
	var cards []models.Card
	query := r.db.Rebind(`
		SELECT * FROM cards
		WHERE deck_id = ? AND queue IN (?, ?) AND due <= ?
		ORDER BY due ASC
		LIMIT ?`)
	err := r.db.SelectContext(ctx, &cards, query,
		deckID, models.QueueReview, models.QueueDayLearning, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get due cards for deck %s: %w", deckID, err)
	}
	return cards, nil
}

// NewCards returns every unseen card of the deck in its authored order
// (due is the order index while a card is new).
func (r *CardRepository) NewCards(ctx context.Context, deckID string) ([]models.Card, error) {
	var cards []models.Card
	query := r.db.Rebind(`
		SELECT * FROM cards WHERE deck_id = ? AND queue = ? ORDER BY due ASC`)
	if err := r.db.SelectContext(ctx, &cards, query, deckID, models.QueueNew); err != nil {
		return nil, fmt.Errorf("failed to get new cards for deck %s: %w", deckID, err)
	}
	return cards, nil
}

// LearnedCards returns cards that have left the New state. An empty deck id
// spans all decks.
func (r *CardRepository) LearnedCards(ctx context.Context, deckID string) ([]models.Card, error) {
	var (
		cards []models.Card
		err   error
	)
	if deckID == "" {
		query := r.db.Rebind("SELECT * FROM cards WHERE type != ?")
		err = r.db.SelectContext(ctx, &cards, query, models.CardTypeNew)
	} else {
		query := r.db.Rebind("SELECT * FROM cards WHERE deck_id = ? AND type != ?")
		err = r.db.SelectContext(ctx, &cards, query, deckID, models.CardTypeNew)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get learned cards: %w", err)
	}
	return cards, nil
}

// DeckCounts returns the total card count and the count of cards whose
// queue has left New, the pair the deck aggregates are rebuilt from.
func (r *CardRepository) DeckCounts(ctx context.Context, deckID string) (total, learned int, err error) {
	query := r.db.Rebind(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN queue > 0 THEN 1 ELSE 0 END), 0)
		FROM cards WHERE deck_id = ?`)
	row := r.db.QueryRowContext(ctx, query, deckID)
	if err := row.Scan(&total, &learned); err != nil {
		return 0, 0, fmt.Errorf("failed to count cards for deck %s: %w", deckID, err)
	}
	return total, learned, nil
}

// CountNotNew returns the number of cards whose type has left New, the
// reconciliation definition of "learned".
func (r *CardRepository) CountNotNew(ctx context.Context, deckID string) (int, error) {
	var n int
	query := r.db.Rebind("SELECT COUNT(*) FROM cards WHERE deck_id = ? AND type != ?")
	if err := r.db.GetContext(ctx, &n, query, deckID, models.CardTypeNew); err != nil {
		return 0, fmt.Errorf("failed to count learned cards for deck %s: %w", deckID, err)
	}
	return n, nil
}
