// Package stats records review outcomes: the immutable review log, daily
// aggregate counters and the per-deck learned totals.
package stats

import (
	"context"
	"sync"
	"time"

	"github.com/example/memodeck/pkg/models"
	"go.uber.org/zap"
)

// ReviewLogStore is the slice of the store the recorder needs for logs and
// daily counters.
type ReviewLogStore interface {
	AppendReviewLog(ctx context.Context, log *models.ReviewLog) error
	AccumulateDailyStat(ctx context.Context, date string, learned bool, timeMs int64) error
	DailyStat(ctx context.Context, date string) (*models.DailyStat, error)
	AllDailyStats(ctx context.Context) ([]models.DailyStat, error)
	ReviewLogsBetween(ctx context.Context, from, to int64) ([]models.ReviewLog, error)
}

// DeckStatStore is the slice of the store the recorder needs for decks.
type DeckStatStore interface {
	RecordStudied(ctx context.Context, id string, when int64, firstLearned bool) error
	ByID(ctx context.Context, id string) (*models.Deck, error)
	SetLearnedCount(ctx context.Context, id string, learned int) error
}

// CardStatStore is the slice of the store the recorder needs for cards.
type CardStatStore interface {
	CountNotNew(ctx context.Context, deckID string) (int, error)
}

// Recorder writes review bookkeeping. It never schedules; it only observes
// answers that already happened.
type Recorder struct {
	logs  ReviewLogStore
	decks DeckStatStore
	cards CardStatStore
	log   *zap.Logger
	now   func() time.Time

	mu        sync.Mutex
	lastLogID int64
}

// NewRecorder wires a recorder over the given store slices.
func NewRecorder(logs ReviewLogStore, decks DeckStatStore, cards CardStatStore, log *zap.Logger) *Recorder {
	return &Recorder{
		logs:  logs,
		decks: decks,
		cards: cards,
		log:   log,
		now:   time.Now,
	}
}

// LogReview appends one review record carrying the pre-answer card type,
// accumulates today's counters and stamps the deck. An answer whose card
// was New or Relearning counts toward "learned" for the day; only a
// previously New card bumps the deck's learned total.
func (r *Recorder) LogReview(ctx context.Context, cardID, deckID string, rating int, timeMs int64, priorType models.CardType) error {
	now := r.now()
	entry := &models.ReviewLog{
		ID:        r.nextLogID(now),
		CardID:    cardID,
		Ease:      rating,
		TimeMs:    timeMs,
		PriorType: priorType,
	}
	if err := r.logs.AppendReviewLog(ctx, entry); err != nil {
		return err
	}

	learned := priorType == models.CardTypeNew || priorType == models.CardTypeRelearning
	if err := r.logs.AccumulateDailyStat(ctx, now.Format("2006-01-02"), learned, timeMs); err != nil {
		return err
	}

	return r.decks.RecordStudied(ctx, deckID, now.UnixMilli(), priorType == models.CardTypeNew)
}

// nextLogID turns the answer instant into a unique review log id. Answers
// landing in the same millisecond get consecutive ids.
func (r *Recorder) nextLogID(now time.Time) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := now.UnixMilli()
	if id <= r.lastLogID {
		id = r.lastLogID + 1
	}
	r.lastLogID = id
	return id
}

// SyncDeckStats recomputes a deck's learned counter from its cards and
// overwrites it when it has drifted. Used to repair the windows left by
// partial import or write failures.
func (r *Recorder) SyncDeckStats(ctx context.Context, deckID string) error {
	deck, err := r.decks.ByID(ctx, deckID)
	if err != nil {
		return err
	}
	if deck == nil {
		return nil
	}
	learned, err := r.cards.CountNotNew(ctx, deckID)
	if err != nil {
		return err
	}
	if learned == deck.LearnedCards {
		return nil
	}
	r.log.Info("repairing drifted deck stats",
		zap.String("deck_id", deckID),
		zap.Int("stored", deck.LearnedCards),
		zap.Int("actual", learned))
	return r.decks.SetLearnedCount(ctx, deckID, learned)
}

// DailyStats returns the counters for one YYYY-MM-DD date, or nil.
func (r *Recorder) DailyStats(ctx context.Context, date string) (*models.DailyStat, error) {
	return r.logs.DailyStat(ctx, date)
}

// AllDailyStats returns every recorded day in date order.
func (r *Recorder) AllDailyStats(ctx context.Context) ([]models.DailyStat, error) {
	return r.logs.AllDailyStats(ctx)
}

// LearnedCardIDsOn returns the unique ids of cards first learned on the
// given day, judging by review records whose pre-answer type was New.
func (r *Recorder) LearnedCardIDsOn(ctx context.Context, day time.Time) ([]string, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	from := start.UnixMilli()
	to := start.Add(24 * time.Hour).UnixMilli()

	logs, err := r.logs.ReviewLogsBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var ids []string
	for _, l := range logs {
		if l.PriorType != models.CardTypeNew || seen[l.CardID] {
			continue
		}
		seen[l.CardID] = true
		ids = append(ids, l.CardID)
	}
	return ids, nil
}
