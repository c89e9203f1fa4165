package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dtroode/vaultdrop-server/internal/model"
)

var _ model.PeriodStore = (*PeriodRepository)(nil)

// PeriodRepository reads the periods maintained by the content scheduler.
type PeriodRepository struct {
	db Querier
}

func NewPeriodRepository(db Querier) *PeriodRepository {
	return &PeriodRepository{
		db: db,
	}
}

func (r *PeriodRepository) Get(ctx context.Context, id string) (model.Period, error) {
	query := `SELECT id, display_name, is_active, starts_at FROM periods WHERE id = $1`

	return r.one(ctx, query, id)
}

func (r *PeriodRepository) GetActive(ctx context.Context) (model.Period, error) {
	query := `SELECT id, display_name, is_active, starts_at FROM periods WHERE is_active LIMIT 1`

	return r.one(ctx, query)
}

func (r *PeriodRepository) List(ctx context.Context) ([]model.Period, error) {
	query := `SELECT id, display_name, is_active, starts_at FROM periods ORDER BY starts_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list periods: %w", classify(err))
	}
	defer rows.Close()

	var periods []model.Period
	for rows.Next() {
		var p model.Period
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.IsActive, &p.StartsAt); err != nil {
			return nil, fmt.Errorf("failed to scan period: %w", classify(err))
		}
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list periods: %w", classify(err))
	}

	return periods, nil
}

func (r *PeriodRepository) one(ctx context.Context, query string, args ...any) (model.Period, error) {
	var p model.Period
	err := r.db.QueryRow(ctx, query, args...).Scan(&p.ID, &p.DisplayName, &p.IsActive, &p.StartsAt)
	if err != nil {
		err = classify(err)
		if errors.Is(err, model.ErrNotFound) {
			return model.Period{}, err
		}
		return model.Period{}, fmt.Errorf("failed to get period: %w", err)
	}
	return p, nil
}
