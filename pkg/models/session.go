package models

// SessionWord is one slot of a study session: the card to show and, once
// answered, the rating it received.
type SessionWord struct {
	ID     string `json:"id"`
	Result int    `json:"result,omitempty"` // 0 until answered, else 1..4
}

// StudySession is a bounded, ordered, resumable study run over one deck.
// The word list is fixed at creation; only CurrentIndex, per-slot results
// and Completed change afterwards.
type StudySession struct {
	ID           string       `json:"id" db:"id"`
	DeckID       string       `json:"deck_id" db:"deck_id"`
	Words        SessionWords `json:"words" db:"words"`
	CurrentIndex int          `json:"current_index" db:"current_index"`
	CreatedAt    int64        `json:"created_at" db:"created_at"`
	UpdatedAt    int64        `json:"updated_at" db:"updated_at"`
	Completed    bool         `json:"completed" db:"completed"`
}

// SessionMap is the single persisted record tracking known sessions and
// which one is current.
type SessionMap struct {
	Sessions         SessionIDs `json:"sessions" db:"sessions"`
	CurrentSessionID string     `json:"current_session_id" db:"current_session_id"`
}
