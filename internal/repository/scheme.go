package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ffcpay/statement-query/internal/domain/model"
)

// SchemeRepository — чтение справочника схем.
// Реализует scheme.Source.
type SchemeRepository struct {
	db DBTX
}

// NewSchemeRepository создаёт репозиторий схем.
func NewSchemeRepository(db DBTX) *SchemeRepository {
	return &SchemeRepository{db: db}
}

// ListSchemes возвращает активные схемы, упорядоченные по идентификатору.
func (r *SchemeRepository) ListSchemes(ctx context.Context) ([]model.Scheme, error) {
	rows, err := r.db.Query(ctx, `
		SELECT scheme_id, abbreviation, name
		FROM schemes
		WHERE active
		ORDER BY scheme_id`)
	if err != nil {
		return nil, fmt.Errorf("запрос справочника схем: %w", err)
	}

	schemes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Scheme, error) {
		var s model.Scheme
		err := row.Scan(&s.ID, &s.Abbreviation, &s.Name)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("чтение справочника схем: %w", err)
	}

	return schemes, nil
}
