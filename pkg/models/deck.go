package models

// Deck represents a collection of cards imported from an archive or spreadsheet
type Deck struct {
	ID           string `json:"id" db:"id"`
	Name         string `json:"name" db:"name"`
	Description  string `json:"description" db:"description"`
	TotalCards   int    `json:"total_cards" db:"total_cards"`
	LearnedCards int    `json:"learned_cards" db:"learned_cards"`
	CreatedAt    int64  `json:"created_at" db:"created_at"`     // Unix milliseconds
	UpdatedAt    int64  `json:"updated_at" db:"updated_at"`     // Unix milliseconds
	LastStudied  int64  `json:"last_studied" db:"last_studied"` // Unix milliseconds, 0 if never studied
}
