package models

// CardType identifies where a card sits in the learning lifecycle.
type CardType int

const (
	CardTypeNew        CardType = 0
	CardTypeLearning   CardType = 1
	CardTypeReview     CardType = 2
	CardTypeRelearning CardType = 3
)

// Queue identifies the scheduling bucket a card currently occupies.
// The due column changes meaning with the queue: for QueueNew it is an
// order index, for every other queue it is an absolute Unix-millisecond
// instant.
type Queue int

const (
	QueueSuspended Queue = -1
	QueueNew       Queue = 0
	QueueLearning  Queue = 1
	QueueReview    Queue = 2
	// QueueDayLearning holds lapsed review cards waiting out their
	// relearning step, due at day granularity.
	QueueDayLearning Queue = 3
)

// Card is one renderable facet of a Note together with its scheduling state.
// Front and back are pre-rendered HTML; word and phonetic are heuristic
// extractions used by audio/display collaborators.
type Card struct {
	ID       string `json:"id" db:"id"`
	NoteID   string `json:"note_id" db:"note_id"`
	DeckID   string `json:"deck_id" db:"deck_id"`
	Ord      int    `json:"ord" db:"ord"` // template ordinal within the model
	Front    string `json:"front" db:"front"`
	Back     string `json:"back" db:"back"`
	Word     string `json:"word" db:"word"`
	Phonetic string `json:"phonetic" db:"phonetic"`

	Type     CardType `json:"type" db:"type"`
	Queue    Queue    `json:"queue" db:"queue"`
	Due      int64    `json:"due" db:"due"`
	Interval int      `json:"interval" db:"interval"` // days
	Factor   int      `json:"factor" db:"factor"`     // ease in thousandths, never below 1300 once reviewed
	Reps     int      `json:"reps" db:"reps"`
	Lapses   int      `json:"lapses" db:"lapses"`

	CreatedAt int64 `json:"created_at" db:"created_at"`
}
