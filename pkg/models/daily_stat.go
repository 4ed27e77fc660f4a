package models

// DailyStat accumulates review counters for one calendar day.
type DailyStat struct {
	Date         string `json:"date" db:"date"` // YYYY-MM-DD
	TotalCards   int    `json:"total_cards" db:"total_cards"`
	LearnedCards int    `json:"learned_cards" db:"learned_cards"` // answers whose card was New or Relearning
	ReviewCards  int    `json:"review_cards" db:"review_cards"`
	TimeSpent    int64  `json:"time_spent" db:"time_spent"` // milliseconds
}
