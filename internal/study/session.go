// Package study selects bounded study sets, persists them as resumable
// sessions and routes each answer through the scheduler and the stats
// recorder. Every mutation is persisted before returning, so a crash
// between answers loses at most the in-flight answer.
package study

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/example/memodeck/internal/spaced_repetition"
	"github.com/example/memodeck/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrInvalidRating rejects ratings outside 1..4 at the session
	// boundary; the scheduler itself never validates.
	ErrInvalidRating = errors.New("rating must be between 1 and 4")
	// ErrSessionCompleted rejects answers against a finished session.
	ErrSessionCompleted = errors.New("session already completed")
)

// New-card ordering preferences.
const (
	OrderRandom     = "random"
	OrderSequential = "sequential"
)

// Config bounds session building.
type Config struct {
	// SessionSize caps how many cards one session holds.
	SessionSize int
	// NewCardOrder is OrderRandom or OrderSequential.
	NewCardOrder string
}

// CardStore is the slice of the store the manager needs for cards.
type CardStore interface {
	ByID(ctx context.Context, id string) (*models.Card, error)
	DueCards(ctx context.Context, deckID string, now int64, limit int) ([]models.Card, error)
	NewCards(ctx context.Context, deckID string) ([]models.Card, error)
	Update(ctx context.Context, card *models.Card) error
}

// SessionStore is the slice of the store the manager needs for sessions.
type SessionStore interface {
	Save(ctx context.Context, session *models.StudySession) error
	LatestIncomplete(ctx context.Context, deckID string) (*models.StudySession, error)
}

// ReviewLogger receives each answer for bookkeeping.
type ReviewLogger interface {
	LogReview(ctx context.Context, cardID, deckID string, rating int, timeMs int64, priorType models.CardType) error
}

// Manager owns the study loop state transitions.
type Manager struct {
	cards    CardStore
	sessions SessionStore
	stats    ReviewLogger
	cfg      Config
	log      *zap.Logger
	now      func() time.Time
	rng      *rand.Rand
}

// NewManager wires a session manager. A zero SessionSize defaults to 20.
func NewManager(cards CardStore, sessions SessionStore, stats ReviewLogger, cfg Config, log *zap.Logger) *Manager {
	if cfg.SessionSize <= 0 {
		cfg.SessionSize = 20
	}
	if cfg.NewCardOrder == "" {
		cfg.NewCardOrder = OrderRandom
	}
	return &Manager{
		cards:    cards,
		sessions: sessions,
		stats:    stats,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// StartOrResume resumes the deck's incomplete session if one exists,
// dropping slots whose cards have disappeared from the store; otherwise it
// builds and immediately persists a new bounded session of due cards
// topped up with new ones. Returns nil when the deck has nothing to study.
func (m *Manager) StartOrResume(ctx context.Context, deckID string) (*models.StudySession, error) {
	existing, err := m.sessions.LatestIncomplete(ctx, deckID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		resumed, err := m.resume(ctx, existing)
		if err != nil {
			return nil, err
		}
		if resumed != nil {
			return resumed, nil
		}
		// Resume degenerated to nothing; fall through to a new session.
	}

	return m.buildSession(ctx, deckID)
}

// resume revalidates a stored session against the current store. Slots
// referencing vanished cards are filtered out; a session left with no
// slots is marked completed and nil is returned.
func (m *Manager) resume(ctx context.Context, session *models.StudySession) (*models.StudySession, error) {
	kept := make(models.SessionWords, 0, len(session.Words))
	removed := 0
	for _, w := range session.Words {
		card, err := m.cards.ByID(ctx, w.ID)
		if err != nil {
			return nil, err
		}
		if card == nil {
			removed++
			continue
		}
		kept = append(kept, w)
	}

	if removed == 0 {
		return session, nil
	}

	m.log.Warn("dropping vanished cards from resumed session",
		zap.String("session_id", session.ID), zap.Int("removed", removed))

	session.Words = kept
	if session.CurrentIndex > len(kept) {
		session.CurrentIndex = len(kept)
	}
	session.UpdatedAt = m.now().UnixMilli()

	if len(kept) == 0 || session.CurrentIndex >= len(kept) {
		session.Completed = true
		if err := m.sessions.Save(ctx, session); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if err := m.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (m *Manager) buildSession(ctx context.Context, deckID string) (*models.StudySession, error) {
	now := m.now()

	selected, err := m.cards.DueCards(ctx, deckID, now.UnixMilli(), m.cfg.SessionSize)
	if err != nil {
		return nil, err
	}

	if remaining := m.cfg.SessionSize - len(selected); remaining > 0 {
		fresh, err := m.cards.NewCards(ctx, deckID)
		if err != nil {
			return nil, err
		}
		if m.cfg.NewCardOrder == OrderRandom {
			m.rng.Shuffle(len(fresh), func(i, j int) {
				fresh[i], fresh[j] = fresh[j], fresh[i]
			})
		}
		if len(fresh) > remaining {
			fresh = fresh[:remaining]
		}
		selected = append(selected, fresh...)
	}

	if len(selected) == 0 {
		return nil, nil
	}

	words := make(models.SessionWords, 0, len(selected))
	for _, c := range selected {
		words = append(words, models.SessionWord{ID: c.ID})
	}

	session := &models.StudySession{
		ID:        uuid.NewString(),
		DeckID:    deckID,
		Words:     words,
		CreatedAt: now.UnixMilli(),
		UpdatedAt: now.UnixMilli(),
	}
	if err := m.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// CurrentCard returns the card at the session's current index.
func (m *Manager) CurrentCard(ctx context.Context, session *models.StudySession) (*models.Card, error) {
	if session.CurrentIndex < 0 || session.CurrentIndex >= len(session.Words) {
		return nil, nil
	}
	return m.cards.ByID(ctx, session.Words[session.CurrentIndex].ID)
}

// RecordAnswer applies one rating to the session's current card: schedule,
// persist the card, log the review with its pre-answer type, store the
// rating on the slot and advance. The session completes when the index
// reaches the end of the word list.
func (m *Manager) RecordAnswer(ctx context.Context, session *models.StudySession, rating spaced_repetition.Rating, timeMs int64) error {
	if !rating.Valid() {
		return fmt.Errorf("%w: got %d", ErrInvalidRating, rating)
	}
	if session.Completed || session.CurrentIndex >= len(session.Words) {
		return ErrSessionCompleted
	}

	now := m.now()
	slot := &session.Words[session.CurrentIndex]

	card, err := m.cards.ByID(ctx, slot.ID)
	if err != nil {
		return err
	}
	if card == nil {
		// The card vanished mid-session; skip the slot.
		m.log.Warn("card missing mid-session, skipping slot",
			zap.String("session_id", session.ID), zap.String("card_id", slot.ID))
		return m.advance(ctx, session, now)
	}

	priorType := card.Type
	updated := spaced_repetition.Answer(*card, rating, now)
	if err := m.cards.Update(ctx, &updated); err != nil {
		return err
	}
	if err := m.stats.LogReview(ctx, card.ID, card.DeckID, int(rating), timeMs, priorType); err != nil {
		return err
	}

	slot.Result = int(rating)
	return m.advance(ctx, session, now)
}

func (m *Manager) advance(ctx context.Context, session *models.StudySession, now time.Time) error {
	session.CurrentIndex++
	if session.CurrentIndex >= len(session.Words) {
		session.CurrentIndex = len(session.Words)
		session.Completed = true
	}
	session.UpdatedAt = now.UnixMilli()
	return m.sessions.Save(ctx, session)
}

// Previous steps the session back one card without recording an answer.
func (m *Manager) Previous(ctx context.Context, session *models.StudySession) error {
	if session.CurrentIndex <= 0 {
		return nil
	}
	session.CurrentIndex--
	session.UpdatedAt = m.now().UnixMilli()
	return m.sessions.Save(ctx, session)
}

// Next steps the session forward one card without recording an answer.
// Unlike RecordAnswer it never walks past the last card.
func (m *Manager) Next(ctx context.Context, session *models.StudySession) error {
	if session.CurrentIndex >= len(session.Words)-1 {
		return nil
	}
	session.CurrentIndex++
	session.UpdatedAt = m.now().UnixMilli()
	return m.sessions.Save(ctx, session)
}
