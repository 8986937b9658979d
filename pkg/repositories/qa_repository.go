package repositories

import (
	"context"
	"fmt"

	"github.com/ami-sense/ami-engine/pkg/database"
	"github.com/ami-sense/ami-engine/pkg/models"
)

// QARepository defines the interface for curated question/answer pairs.
type QARepository interface {
	List(ctx context.Context) ([]*models.QAPair, error)
}

// qaRepository implements QARepository using PostgreSQL.
type qaRepository struct {
	db *database.DB
}

// NewQARepository creates a new QA repository.
func NewQARepository(db *database.DB) QARepository {
	return &qaRepository{db: db}
}

// List returns all curated QA pairs, oldest first.
func (r *qaRepository) List(ctx context.Context) ([]*models.QAPair, error) {
	query := `
		SELECT id, question, answer, created_at, updated_at
		FROM chatbot_qa
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list QA pairs: %w", err)
	}
	defer rows.Close()

	var pairs []*models.QAPair
	for rows.Next() {
		var p models.QAPair
		if err := rows.Scan(&p.ID, &p.Question, &p.Answer, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan QA pair: %w", err)
		}
		pairs = append(pairs, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating QA pairs: %w", err)
	}

	return pairs, nil
}

// Ensure qaRepository implements QARepository at compile time.
var _ QARepository = (*qaRepository)(nil)
