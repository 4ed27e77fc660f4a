package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/memodeck/pkg/models"
	"github.com/jmoiron/sqlx"
)

// StatsRepository handles store operations for review logs and daily
// aggregate counters.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository creates a new repository instance.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// AppendReviewLog inserts one immutable review record.
func (r *StatsRepository) AppendReviewLog(ctx context.Context, log *models.ReviewLog) error {
	query := r.db.Rebind(`
		INSERT INTO revlog (id, card_id, ease, time_ms, prior_type)
		VALUES (?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		log.ID, log.CardID, log.Ease, log.TimeMs, log.PriorType)
	if err != nil {
		return fmt.Errorf("failed to append review log %d: %w", log.ID, err)
	}
	return nil
}

// ReviewLogsBetween returns review records with id (timestamp) in [from, to).
func (r *StatsRepository) ReviewLogsBetween(ctx context.Context, from, to int64) ([]models.ReviewLog, error) {
	var logs []models.ReviewLog
	query := r.db.Rebind("SELECT * FROM revlog WHERE id >= ? AND id < ? ORDER BY id")
	if err := r.db.SelectContext(ctx, &logs, query, from, to); err != nil {
		return nil, fmt.Errorf("failed to get review logs: %w", err)
	}
	return logs, nil
}

// DailyStat returns the counters for one date, or nil when nothing was
// studied that day.
func (r *StatsRepository) DailyStat(ctx context.Context, date string) (*models.DailyStat, error) {
	var stat models.DailyStat
	query := r.db.Rebind("SELECT * FROM daily_stats WHERE date = ?")
	err := r.db.GetContext(ctx, &stat, query, date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily stat %s: %w", date, err)
	}
	return &stat, nil
}

// AllDailyStats returns every daily counter row ordered by date.
func (r *StatsRepository) AllDailyStats(ctx context.Context) ([]models.DailyStat, error) {
	var stats []models.DailyStat
	err := r.db.SelectContext(ctx, &stats, "SELECT * FROM daily_stats ORDER BY date")
	if err != nil {
		return nil, fmt.Errorf("failed to list daily stats: %w", err)
	}
	return stats, nil
}

// AccumulateDailyStat adds one answer's worth of counters to a date,
// creating the row if the day is new.
func (r *StatsRepository) AccumulateDailyStat(ctx context.Context, date string, learned bool, timeMs int64) error {
	learnedInc, reviewInc := 0, 1
	if learned {
		learnedInc, reviewInc = 1, 0
	}
	query := r.db.Rebind(`
		INSERT INTO daily_stats (date, total_cards, learned_cards, review_cards, time_spent)
		VALUES (?, 1, ?, ?, ?)
		ON CONFLICT (date) DO UPDATE SET
			total_cards = daily_stats.total_cards + 1,
			learned_cards = daily_stats.learned_cards + excluded.learned_cards,
			review_cards = daily_stats.review_cards + excluded.review_cards,
			time_spent = daily_stats.time_spent + excluded.time_spent`)
	_, err := r.db.ExecContext(ctx, query, date, learnedInc, reviewInc, timeMs)
	if err != nil {
		return fmt.Errorf("failed to accumulate daily stat %s: %w", date, err)
	}
	return nil
}
