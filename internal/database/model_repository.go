package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/memodeck/pkg/models"
	"github.com/jmoiron/sqlx"
)

// ModelRepository handles store operations for note models.
type ModelRepository struct {
	db *sqlx.DB
}

// NewModelRepository creates a new repository instance.
func NewModelRepository(db *sqlx.DB) *ModelRepository {
	return &ModelRepository{db: db}
}

// Upsert inserts the model or replaces an existing one with the same id.
// Re-importing an archive refreshes its template definitions.
func (r *ModelRepository) Upsert(ctx context.Context, model *models.Model) error {
	query := r.db.Rebind(`
		INSERT INTO models (id, name, fields, templates, css)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			fields = excluded.fields,
			templates = excluded.templates,
			css = excluded.css`)
	_, err := r.db.ExecContext(ctx, query,
		model.ID, model.Name, model.Fields, model.Templates, model.CSS)
	if err != nil {
		return fmt.Errorf("failed to upsert model %s: %w", model.ID, err)
	}
	return nil
}

// ByID returns the model with the given id, or nil if it does not exist.
func (r *ModelRepository) ByID(ctx context.Context, id string) (*models.Model, error) {
	var model models.Model
	query := r.db.Rebind("SELECT * FROM models WHERE id = ?")
	err := r.db.GetContext(ctx, &model, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get model %s: %w", id, err)
	}
	return &model, nil
}
