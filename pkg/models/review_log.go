package models

// ReviewLog is the immutable record of one answer. PriorType is the card's
// type before the answer was applied; the scheduler changes the type as a
// side effect of the same answer, so it must be captured up front.
type ReviewLog struct {
	ID        int64    `json:"id" db:"id"` // Unix-millisecond timestamp of the review
	CardID    string   `json:"card_id" db:"card_id"`
	Ease      int      `json:"ease" db:"ease"` // 1=Again 2=Hard 3=Good 4=Easy
	TimeMs    int64    `json:"time_ms" db:"time_ms"`
	PriorType CardType `json:"prior_type" db:"prior_type"`
}
