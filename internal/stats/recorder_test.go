package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/memodeck/internal/database"
	"github.com/example/memodeck/pkg/models"
)

// testClock hands out strictly increasing instants so review log ids
// (millisecond timestamps) never collide.
type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestRecorder(t *testing.T) (*Recorder, *database.Repository, *testClock) {
	t.Helper()
	db, err := database.Connect(database.Options{Driver: "sqlite3", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := database.NewRepository(db)
	clock := &testClock{t: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)}
	recorder := NewRecorder(repo.StatsRepository, repo.DeckRepository, repo.CardRepository, zap.NewNop())
	recorder.now = clock.now
	return recorder, repo, clock
}

func seedDeck(t *testing.T, repo *database.Repository, deck models.Deck) {
	t.Helper()
	require.NoError(t, repo.DeckRepository.Create(context.Background(), &deck))
}

func TestRecorder_LogReview(t *testing.T) {
	t.Parallel()

	recorder, repo, _ := newTestRecorder(t)
	ctx := context.Background()
	seedDeck(t, repo, models.Deck{ID: "d1", Name: "Words"})

	// First sighting of a new card counts as learned, for the day and
	// for the deck.
	require.NoError(t, recorder.LogReview(ctx, "c1", "d1", 3, 4000, models.CardTypeNew))
	// A plain review counts toward reviews only.
	require.NoError(t, recorder.LogReview(ctx, "c2", "d1", 2, 2000, models.CardTypeReview))
	// A relearned lapse counts as learned for the day but not the deck.
	require.NoError(t, recorder.LogReview(ctx, "c3", "d1", 3, 1000, models.CardTypeRelearning))

	stat, err := recorder.DailyStats(ctx, "2026-08-30")
	require.NoError(t, err)
	require.NotNil(t, stat)
	assert.Equal(t, 3, stat.TotalCards)
	assert.Equal(t, 2, stat.LearnedCards)
	assert.Equal(t, 1, stat.ReviewCards)
	assert.Equal(t, int64(7000), stat.TimeSpent)

	deck, err := repo.DeckRepository.ByID(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 1, deck.LearnedCards)
	assert.NotZero(t, deck.LastStudied)

	// Every answer left an immutable log entry with its pre-answer type.
	logs, err := repo.StatsRepository.ReviewLogsBetween(ctx, 0, 1<<62)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, models.CardTypeNew, logs[0].PriorType)
	assert.Equal(t, 3, logs[0].Ease)
	assert.Equal(t, models.CardTypeReview, logs[1].PriorType)
	assert.Equal(t, models.CardTypeRelearning, logs[2].PriorType)
}

func TestRecorder_SyncDeckStats(t *testing.T) {
	t.Parallel()

	recorder, repo, _ := newTestRecorder(t)
	ctx := context.Background()
	seedDeck(t, repo, models.Deck{ID: "d1", Name: "Words", LearnedCards: 5})

	require.NoError(t, repo.CardRepository.Upsert(ctx, &models.Card{
		ID: "c1", NoteID: "n1", DeckID: "d1", Type: models.CardTypeReview,
	}))
	require.NoError(t, repo.CardRepository.Upsert(ctx, &models.Card{
		ID: "c2", NoteID: "n2", DeckID: "d1", Type: models.CardTypeNew,
	}))

	require.NoError(t, recorder.SyncDeckStats(ctx, "d1"))

	deck, err := repo.DeckRepository.ByID(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 1, deck.LearnedCards)

	// A second pass finds nothing to repair and an unknown deck is a no-op.
	require.NoError(t, recorder.SyncDeckStats(ctx, "d1"))
	require.NoError(t, recorder.SyncDeckStats(ctx, "ghost"))
}

func TestRecorder_LearnedCardIDsOn(t *testing.T) {
	t.Parallel()

	recorder, repo, _ := newTestRecorder(t)
	ctx := context.Background()

	day := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	inDay := day.Add(10 * time.Hour).UnixMilli()
	entries := []models.ReviewLog{
		{ID: inDay, CardID: "c1", Ease: 3, PriorType: models.CardTypeNew},
		{ID: inDay + 1, CardID: "c1", Ease: 1, PriorType: models.CardTypeLearning}, // repeat, not New
		{ID: inDay + 2, CardID: "c2", Ease: 4, PriorType: models.CardTypeNew},
		{ID: inDay + 3, CardID: "c3", Ease: 3, PriorType: models.CardTypeReview},
		{ID: day.Add(25 * time.Hour).UnixMilli(), CardID: "c4", Ease: 3, PriorType: models.CardTypeNew},
	}
	for i := range entries {
		require.NoError(t, repo.StatsRepository.AppendReviewLog(ctx, &entries[i]))
	}

	ids, err := recorder.LearnedCardIDsOn(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, ids)
}
