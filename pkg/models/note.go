package models

// Note is one authored fact holding the field values a model renders from.
// DeckID starts empty and is backfilled when the first card that uses the
// note is imported.
type Note struct {
	ID        string   `json:"id" db:"id"`
	DeckID    string   `json:"deck_id" db:"deck_id"`
	ModelID   string   `json:"model_id" db:"model_id"`
	Fields    FieldMap `json:"fields" db:"fields"`
	Tags      Tags     `json:"tags" db:"tags"`
	CreatedAt int64    `json:"created_at" db:"created_at"`
	UpdatedAt int64    `json:"updated_at" db:"updated_at"`
}
