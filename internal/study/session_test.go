package study

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/memodeck/internal/database"
	"github.com/example/memodeck/internal/spaced_repetition"
	"github.com/example/memodeck/internal/stats"
	"github.com/example/memodeck/pkg/models"
)

func newTestManager(t *testing.T, cfg Config) (*Manager, *database.Repository) {
	t.Helper()
	db, err := database.Connect(database.Options{Driver: "sqlite3", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := database.NewRepository(db)
	recorder := stats.NewRecorder(repo.StatsRepository, repo.DeckRepository, repo.CardRepository, zap.NewNop())
	return NewManager(repo.CardRepository, repo.SessionRepository, recorder, cfg, zap.NewNop()), repo
}

func seedStudyDeck(t *testing.T, repo *database.Repository, newCount, dueCount int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.DeckRepository.Create(ctx, &models.Deck{ID: "d1", Name: "Words"}))
	for i := 0; i < newCount; i++ {
		require.NoError(t, repo.CardRepository.Upsert(ctx, &models.Card{
			ID:     fmt.Sprintf("new-%02d", i),
			NoteID: fmt.Sprintf("note-%02d", i),
			DeckID: "d1",
			Queue:  models.QueueNew,
			Due:    int64(i),
			Factor: 2500,
		}))
	}
	for i := 0; i < dueCount; i++ {
		require.NoError(t, repo.CardRepository.Upsert(ctx, &models.Card{
			ID:       fmt.Sprintf("due-%02d", i),
			NoteID:   fmt.Sprintf("dnote-%02d", i),
			DeckID:   "d1",
			Type:     models.CardTypeReview,
			Queue:    models.QueueReview,
			Due:      int64(1000 + i), // far in the past
			Interval: 6,
			Factor:   2500,
		}))
	}
}

func TestManager_StartOrResume_BuildsBoundedSession(t *testing.T) {
	t.Parallel()

	mgr, repo := newTestManager(t, Config{SessionSize: 5, NewCardOrder: OrderSequential})
	seedStudyDeck(t, repo, 10, 3)
	ctx := context.Background()

	session, err := mgr.StartOrResume(ctx, "d1")
	require.NoError(t, err)
	require.NotNil(t, session)
	require.Len(t, session.Words, 5)

	// Due cards come first, most overdue leading, then new cards in
	// authored order.
	assert.Equal(t, "due-00", session.Words[0].ID)
	assert.Equal(t, "due-01", session.Words[1].ID)
	assert.Equal(t, "due-02", session.Words[2].ID)
	assert.Equal(t, "new-00", session.Words[3].ID)
	assert.Equal(t, "new-01", session.Words[4].ID)

	// The session is persisted immediately and is the resumable one.
	stored, err := repo.SessionRepository.ByID(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.False(t, stored.Completed)
}

func TestManager_StartOrResume_NothingToStudy(t *testing.T) {
	t.Parallel()

	mgr, repo := newTestManager(t, Config{SessionSize: 5})
	require.NoError(t, repo.DeckRepository.Create(context.Background(), &models.Deck{ID: "d1", Name: "Empty"}))

	session, err := mgr.StartOrResume(context.Background(), "d1")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestManager_StartOrResume_RandomOrderKeepsDueFirst(t *testing.T) {
	t.Parallel()

	mgr, repo := newTestManager(t, Config{SessionSize: 6, NewCardOrder: OrderRandom})
	seedStudyDeck(t, repo, 20, 2)

	session, err := mgr.StartOrResume(context.Background(), "d1")
	require.NoError(t, err)
	require.Len(t, session.Words, 6)

	// Shuffling applies to the new-card tail only.
	assert.Equal(t, "due-00", session.Words[0].ID)
	assert.Equal(t, "due-01", session.Words[1].ID)
	for _, w := range session.Words[2:] {
		assert.Contains(t, w.ID, "new-")
	}
}

// Answering every card walks the index to the end exactly once and marks
// the session completed; the next start builds a fresh session.
func TestManager_SessionContinuity(t *testing.T) {
	t.Parallel()

	mgr, repo := newTestManager(t, Config{SessionSize: 4, NewCardOrder: OrderSequential})
	seedStudyDeck(t, repo, 8, 0)
	ctx := context.Background()

	session, err := mgr.StartOrResume(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, session.Words, 4)

	for i := 0; i < 4; i++ {
		card, err := mgr.CurrentCard(ctx, session)
		require.NoError(t, err)
		require.NotNil(t, card)
		require.NoError(t, mgr.RecordAnswer(ctx, session, spaced_repetition.Good, 1500))
	}

	assert.True(t, session.Completed)
	assert.Equal(t, 4, session.CurrentIndex)
	for _, w := range session.Words {
		assert.Equal(t, int(spaced_repetition.Good), w.Result)
	}

	// Answering past the end is rejected.
	err = mgr.RecordAnswer(ctx, session, spaced_repetition.Good, 0)
	assert.ErrorIs(t, err, ErrSessionCompleted)

	// Completed sessions are never resumed.
	next, err := mgr.StartOrResume(ctx, "d1")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.NotEqual(t, session.ID, next.ID)
	assert.Equal(t, "new-04", next.Words[0].ID)
}

func TestManager_RecordAnswer_InvalidRating(t *testing.T) {
	t.Parallel()

	mgr, repo := newTestManager(t, Config{SessionSize: 2, NewCardOrder: OrderSequential})
	seedStudyDeck(t, repo, 2, 0)
	ctx := context.Background()

	session, err := mgr.StartOrResume(ctx, "d1")
	require.NoError(t, err)

	err = mgr.RecordAnswer(ctx, session, spaced_repetition.Rating(7), 0)
	assert.ErrorIs(t, err, ErrInvalidRating)
	assert.Equal(t, 0, session.CurrentIndex)
}

func TestManager_RecordAnswer_PersistsScheduling(t *testing.T) {
	t.Parallel()

	mgr, repo := newTestManager(t, Config{SessionSize: 1, NewCardOrder: OrderSequential})
	seedStudyDeck(t, repo, 1, 0)
	ctx := context.Background()

	session, err := mgr.StartOrResume(ctx, "d1")
	require.NoError(t, err)
	require.NoError(t, mgr.RecordAnswer(ctx, session, spaced_repetition.Easy, 900))

	card, err := repo.CardRepository.ByID(ctx, "new-00")
	require.NoError(t, err)
	assert.Equal(t, models.QueueReview, card.Queue)
	assert.Equal(t, 4, card.Interval)
	assert.Equal(t, 1, card.Reps)

	// The answer reached the review log with the pre-answer type.
	logs, err := repo.StatsRepository.ReviewLogsBetween(ctx, 0, 1<<62)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.CardTypeNew, logs[0].PriorType)
}

func TestManager_ResumeFiltersVanishedCards(t *testing.T) {
	t.Parallel()

	mgr, repo := newTestManager(t, Config{SessionSize: 3, NewCardOrder: OrderSequential})
	seedStudyDeck(t, repo, 3, 0)
	ctx := context.Background()

	session, err := mgr.StartOrResume(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, session.Words, 3)

	// The deck is re-imported differently; one card disappears.
	require.NoError(t, repo.CardRepository.Delete(ctx, "new-01"))

	resumed, err := mgr.StartOrResume(ctx, "d1")
	require.NoError(t, err)
	require.NotNil(t, resumed)
	assert.Equal(t, session.ID, resumed.ID)
	require.Len(t, resumed.Words, 2)
	assert.Equal(t, "new-00", resumed.Words[0].ID)
	assert.Equal(t, "new-02", resumed.Words[1].ID)
}

func TestManager_ResumeWithAllCardsGoneStartsFresh(t *testing.T) {
	t.Parallel()

	mgr, repo := newTestManager(t, Config{SessionSize: 2, NewCardOrder: OrderSequential})
	seedStudyDeck(t, repo, 2, 0)
	ctx := context.Background()

	session, err := mgr.StartOrResume(ctx, "d1")
	require.NoError(t, err)
	for _, w := range session.Words {
		require.NoError(t, repo.CardRepository.Delete(ctx, w.ID))
	}

	// Every slot filtered out: the stale session completes and, the deck
	// now being empty, there is nothing new to build.
	next, err := mgr.StartOrResume(ctx, "d1")
	require.NoError(t, err)
	assert.Nil(t, next)

	stale, err := repo.SessionRepository.ByID(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, stale.Completed)
}

func TestManager_Navigation(t *testing.T) {
	t.Parallel()

	mgr, repo := newTestManager(t, Config{SessionSize: 3, NewCardOrder: OrderSequential})
	seedStudyDeck(t, repo, 3, 0)
	ctx := context.Background()

	session, err := mgr.StartOrResume(ctx, "d1")
	require.NoError(t, err)

	// Previous at the start and Next at the end are no-ops.
	require.NoError(t, mgr.Previous(ctx, session))
	assert.Equal(t, 0, session.CurrentIndex)

	require.NoError(t, mgr.Next(ctx, session))
	require.NoError(t, mgr.Next(ctx, session))
	assert.Equal(t, 2, session.CurrentIndex)
	require.NoError(t, mgr.Next(ctx, session))
	assert.Equal(t, 2, session.CurrentIndex)
	assert.False(t, session.Completed)

	require.NoError(t, mgr.Previous(ctx, session))
	assert.Equal(t, 1, session.CurrentIndex)
}
