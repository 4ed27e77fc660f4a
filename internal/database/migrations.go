package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// A migration is one idempotent schema step. Steps run in list order and
// each applied step is recorded in schema_migrations, so adding a new step
// to the end of the list is the only supported way to evolve the schema.
type migration struct {
	name  string
	stmts []string
}

var migrations = []migration{
	{
		name: "001_create_decks",
		stmts: []string{`
			CREATE TABLE IF NOT EXISTS decks (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				total_cards INTEGER NOT NULL DEFAULT 0,
				learned_cards INTEGER NOT NULL DEFAULT 0,
				created_at BIGINT NOT NULL,
				updated_at BIGINT NOT NULL,
				last_studied BIGINT NOT NULL DEFAULT 0
			)`,
		},
	},
	{
		name: "002_create_models",
		stmts: []string{`
			CREATE TABLE IF NOT EXISTS models (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				fields TEXT NOT NULL,
				templates TEXT NOT NULL,
				css TEXT NOT NULL DEFAULT ''
			)`,
		},
	},
	{
		name: "003_create_notes",
		stmts: []string{`
			CREATE TABLE IF NOT EXISTS notes (
				id TEXT PRIMARY KEY,
				deck_id TEXT NOT NULL DEFAULT '',
				model_id TEXT NOT NULL,
				fields TEXT NOT NULL,
				tags TEXT NOT NULL,
				created_at BIGINT NOT NULL,
				updated_at BIGINT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_notes_deck_id ON notes (deck_id)`,
		},
	},
	{
		name: "004_create_cards",
		stmts: []string{`
			CREATE TABLE IF NOT EXISTS cards (
				id TEXT PRIMARY KEY,
				note_id TEXT NOT NULL,
				deck_id TEXT NOT NULL,
				ord INTEGER NOT NULL DEFAULT 0,
				front TEXT NOT NULL DEFAULT '',
				back TEXT NOT NULL DEFAULT '',
				word TEXT NOT NULL DEFAULT '',
				phonetic TEXT NOT NULL DEFAULT '',
				type INTEGER NOT NULL DEFAULT 0,
				queue INTEGER NOT NULL DEFAULT 0,
				due BIGINT NOT NULL DEFAULT 0,
				interval INTEGER NOT NULL DEFAULT 0,
				factor INTEGER NOT NULL DEFAULT 2500,
				reps INTEGER NOT NULL DEFAULT 0,
				lapses INTEGER NOT NULL DEFAULT 0,
				created_at BIGINT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_cards_deck_id ON cards (deck_id)`,
			`CREATE INDEX IF NOT EXISTS idx_cards_note_id ON cards (note_id)`,
			`CREATE INDEX IF NOT EXISTS idx_cards_due ON cards (due)`,
		},
	},
	{
		name: "005_create_revlog",
		stmts: []string{`
			CREATE TABLE IF NOT EXISTS revlog (
				id BIGINT PRIMARY KEY,
				card_id TEXT NOT NULL,
				ease INTEGER NOT NULL,
				time_ms BIGINT NOT NULL DEFAULT 0,
				prior_type INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE INDEX IF NOT EXISTS idx_revlog_card_id ON revlog (card_id)`,
		},
	},
	{
		name: "006_create_daily_stats",
		stmts: []string{`
			CREATE TABLE IF NOT EXISTS daily_stats (
				date TEXT PRIMARY KEY,
				total_cards INTEGER NOT NULL DEFAULT 0,
				learned_cards INTEGER NOT NULL DEFAULT 0,
				review_cards INTEGER NOT NULL DEFAULT 0,
				time_spent BIGINT NOT NULL DEFAULT 0
			)`,
		},
	},
	{
		name: "007_create_sessions",
		stmts: []string{`
			CREATE TABLE IF NOT EXISTS sessions (
				id TEXT PRIMARY KEY,
				deck_id TEXT NOT NULL,
				words TEXT NOT NULL,
				current_index INTEGER NOT NULL DEFAULT 0,
				created_at BIGINT NOT NULL,
				updated_at BIGINT NOT NULL,
				completed BOOLEAN NOT NULL DEFAULT FALSE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_sessions_deck_id ON sessions (deck_id)`,
		},
	},
	{
		name: "008_create_session_map",
		stmts: []string{`
			CREATE TABLE IF NOT EXISTS session_map (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				sessions TEXT NOT NULL,
				current_session_id TEXT NOT NULL DEFAULT ''
			)`,
		},
	},
}

// Migrate applies every pending migration in order.
func Migrate(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name TEXT PRIMARY KEY,
			applied_at BIGINT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	applied := map[string]bool{}
	var names []string
	if err := db.Select(&names, "SELECT name FROM schema_migrations"); err != nil {
		return fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	for _, n := range names {
		applied[n] = true
	}

	for _, m := range migrations {
		if applied[m.name] {
			continue
		}
		for _, stmt := range m.stmts {
			if _, err := db.Exec(stmt); err != nil {
				return fmt.Errorf("migration %s failed: %w", m.name, err)
			}
		}
		if _, err := db.Exec(db.Rebind(
			"INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)"),
			m.name, nowMillis()); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", m.name, err)
		}
	}
	return nil
}
