// Package scheduler runs background maintenance for the store. Deck
// counters can drift when an import or a study loop dies between writes;
// a periodic reconciliation pass repairs them.
package scheduler

import (
	"context"
	"time"

	"github.com/example/memodeck/pkg/models"
	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// DeckLister enumerates the decks to reconcile.
type DeckLister interface {
	All(ctx context.Context) ([]models.Deck, error)
}

// StatsSyncer repairs one deck's aggregate counters.
type StatsSyncer interface {
	SyncDeckStats(ctx context.Context, deckID string) error
}

// Scheduler manages the periodic reconciliation task.
type Scheduler struct {
	scheduler *gocron.Scheduler
	decks     DeckLister
	stats     StatsSyncer
	log       *zap.Logger
}

// New creates a scheduler instance.
func New(decks DeckLister, stats StatsSyncer, log *zap.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		decks:     decks,
		stats:     stats,
		log:       log,
	}
}

// Start begins running the reconciliation pass at the given interval,
// non-blocking.
func (s *Scheduler) Start(interval time.Duration) error {
	if _, err := s.scheduler.Every(interval).Do(s.syncAllDecks); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	return nil
}

// Stop terminates all scheduled tasks.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) syncAllDecks() {
	ctx := context.Background()
	decks, err := s.decks.All(ctx)
	if err != nil {
		s.log.Error("failed to list decks for stat sync", zap.Error(err))
		return
	}
	for _, deck := range decks {
		if err := s.stats.SyncDeckStats(ctx, deck.ID); err != nil {
			s.log.Error("failed to sync deck stats",
				zap.String("deck_id", deck.ID), zap.Error(err))
		}
	}
}
