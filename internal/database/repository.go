package database

import (
	"time"

	"github.com/jmoiron/sqlx"
)

// Repository bundles every store accessor behind one constructor so callers
// wire a single handle and tests can build it over an in-memory database.
type Repository struct {
	*DeckRepository
	*ModelRepository
	*NoteRepository
	*CardRepository
	*StatsRepository
	*SessionRepository
}

// NewRepository creates all repositories over one connection.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		DeckRepository:    NewDeckRepository(db),
		ModelRepository:   NewModelRepository(db),
		NoteRepository:    NewNoteRepository(db),
		CardRepository:    NewCardRepository(db),
		StatsRepository:   NewStatsRepository(db),
		SessionRepository: NewSessionRepository(db),
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
