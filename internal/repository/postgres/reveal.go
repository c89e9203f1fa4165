package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/vaultdrop-server/internal/model"
)

var _ model.RevealStore = (*RevealRepository)(nil)

type RevealRepository struct {
	db Querier
}

func NewRevealRepository(db Querier) *RevealRepository {
	return &RevealRepository{
		db: db,
	}
}

// InsertIfAbsent only records a reveal when the bundle has a purchase. A missing purchase
// is reported as model.ErrNotEntitled, an existing reveal as model.ErrAlreadyExists.
func (r *RevealRepository) InsertIfAbsent(ctx context.Context, rv model.Reveal) (model.Reveal, error) {
	query := `
		WITH owned AS (
			SELECT 1 FROM purchases WHERE user_id = $2 AND tier = $3 AND period_id = $6
		), ins AS (
			INSERT INTO reveals (id, user_id, tier, media_key, item_index, period_id, revealed_at)
			SELECT $1, $2, $3, $4, $5, $6, $7 WHERE EXISTS (SELECT 1 FROM owned)
			ON CONFLICT (user_id, tier, media_key, period_id) DO NOTHING
			RETURNING id, revealed_at
		)
		SELECT EXISTS (SELECT 1 FROM owned), ins.id, ins.revealed_at
		FROM (SELECT 1) AS one LEFT JOIN ins ON TRUE`

	if rv.ID == uuid.Nil {
		rv.ID = uuid.New()
	}
	if rv.RevealedAt.IsZero() {
		rv.RevealedAt = time.Now().UTC()
	}

	var (
		owned      bool
		id         *uuid.UUID
		revealedAt *time.Time
	)
	err := r.db.QueryRow(ctx, query,
		rv.ID, rv.UserID, string(rv.Tier), rv.MediaKey, rv.ItemIndex, rv.PeriodID, rv.RevealedAt,
	).Scan(&owned, &id, &revealedAt)
	if err != nil {
		err = classify(err)
		if errors.Is(err, model.ErrAlreadyExists) {
			return model.Reveal{}, err
		}
		return model.Reveal{}, fmt.Errorf("failed to insert reveal: %w", err)
	}

	if !owned {
		return model.Reveal{}, model.ErrNotEntitled
	}
	if id == nil {
		return model.Reveal{}, model.ErrAlreadyExists
	}

	rv.ID = *id
	if revealedAt != nil {
		rv.RevealedAt = *revealedAt
	}
	return rv, nil
}

func (r *RevealRepository) ListForBundle(ctx context.Context, b model.Bundle) ([]model.Reveal, error) {
	query := `
		SELECT id, user_id, tier, media_key, item_index, period_id, revealed_at
		FROM reveals
		WHERE user_id = $1 AND tier = $2 AND period_id = $3
		ORDER BY item_index ASC`

	return r.list(ctx, query, b.UserID, string(b.Tier), b.PeriodID)
}

func (r *RevealRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Reveal, error) {
	query := `
		SELECT id, user_id, tier, media_key, item_index, period_id, revealed_at
		FROM reveals
		WHERE user_id = $1
		ORDER BY period_id, tier, item_index`

	return r.list(ctx, query, userID)
}

func (r *RevealRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	const query = `DELETE FROM reveals WHERE user_id = $1`
	cmd, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete reveals: %w", classify(err))
	}
	return cmd.RowsAffected(), nil
}

func (r *RevealRepository) list(ctx context.Context, query string, args ...any) ([]model.Reveal, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reveals: %w", classify(err))
	}
	defer rows.Close()

	var reveals []model.Reveal
	for rows.Next() {
		var rv model.Reveal
		err := rows.Scan(&rv.ID, &rv.UserID, &rv.Tier, &rv.MediaKey, &rv.ItemIndex, &rv.PeriodID, &rv.RevealedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reveal: %w", classify(err))
		}
		reveals = append(reveals, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list reveals: %w", classify(err))
	}

	return reveals, nil
}
