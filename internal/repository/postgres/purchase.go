package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/vaultdrop-server/internal/model"
)

var _ model.PurchaseStore = (*PurchaseRepository)(nil)

type PurchaseRepository struct {
	db Querier
}

func NewPurchaseRepository(db Querier) *PurchaseRepository {
	return &PurchaseRepository{
		db: db,
	}
}

// InsertIfAbsent relies on the (user_id, tier, period_id) unique index; a conflicting row
// yields no RETURNING row and is reported as model.ErrAlreadyExists.
func (r *PurchaseRepository) InsertIfAbsent(ctx context.Context, p model.Purchase) (model.Purchase, error) {
	query := `
		INSERT INTO purchases (id, user_id, tier, period_id, checkout_session_id, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		ON CONFLICT (user_id, tier, period_id) DO NOTHING
		RETURNING id, created_at`

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	err := r.db.QueryRow(ctx, query,
		p.ID, p.UserID, string(p.Tier), p.PeriodID, p.CheckoutSessionID, p.CreatedAt,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		err = classify(err)
		if errors.Is(err, model.ErrNotFound) {
			return model.Purchase{}, model.ErrAlreadyExists
		}
		return model.Purchase{}, fmt.Errorf("failed to insert purchase: %w", err)
	}

	return p, nil
}

func (r *PurchaseRepository) Get(ctx context.Context, b model.Bundle) (model.Purchase, error) {
	query := `
		SELECT id, user_id, tier, period_id, COALESCE(checkout_session_id, ''), created_at
		FROM purchases
		WHERE user_id = $1 AND tier = $2 AND period_id = $3`

	var p model.Purchase
	err := r.db.QueryRow(ctx, query, b.UserID, string(b.Tier), b.PeriodID).Scan(
		&p.ID, &p.UserID, &p.Tier, &p.PeriodID, &p.CheckoutSessionID, &p.CreatedAt,
	)
	if err != nil {
		err = classify(err)
		if errors.Is(err, model.ErrNotFound) {
			return model.Purchase{}, err
		}
		return model.Purchase{}, fmt.Errorf("failed to get purchase: %w", err)
	}

	return p, nil
}

func (r *PurchaseRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Purchase, error) {
	query := `
		SELECT id, user_id, tier, period_id, COALESCE(checkout_session_id, ''), created_at
		FROM purchases
		WHERE user_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", classify(err))
	}
	defer rows.Close()

	var purchases []model.Purchase
	for rows.Next() {
		var p model.Purchase
		if err := rows.Scan(&p.ID, &p.UserID, &p.Tier, &p.PeriodID, &p.CheckoutSessionID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", classify(err))
		}
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", classify(err))
	}

	return purchases, nil
}

func (r *PurchaseRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	const query = `DELETE FROM purchases WHERE user_id = $1`
	cmd, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete purchases: %w", classify(err))
	}
	return cmd.RowsAffected(), nil
}
