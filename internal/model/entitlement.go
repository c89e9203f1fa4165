package model

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Purchase records that a user owns a tier bundle for one period.
// At most one exists per (UserID, Tier, PeriodID).
type Purchase struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	Tier              Tier
	PeriodID          string
	CheckoutSessionID string
	CreatedAt         time.Time
}

// Reveal records the one-time disclosure of one item to one user.
// At most one exists per (UserID, Tier, MediaKey, PeriodID).
type Reveal struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Tier       Tier
	MediaKey   string
	ItemIndex  int
	PeriodID   string
	RevealedAt time.Time
}

// Period is a content rotation window. Owned by the content scheduler; read-only here.
type Period struct {
	ID          string
	DisplayName string
	IsActive    bool
	StartsAt    time.Time
}

// Bundle identifies one user's purchase scope.
type Bundle struct {
	UserID   uuid.UUID
	Tier     Tier
	PeriodID string
}

// Validate checks that every bundle field is present.
func (b Bundle) Validate() error {
	if b.UserID == uuid.Nil {
		return fmt.Errorf("%w: user is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(b.PeriodID) == "" {
		return fmt.Errorf("%w: period is required", ErrInvalidRequest)
	}
	if !b.Tier.Valid() {
		return fmt.Errorf("%w: unknown tier %q", ErrInvalidRequest, b.Tier)
	}
	return nil
}

// Item returns the bundle item at index.
func (b Bundle) Item(index int) MediaItem {
	return MediaItem{PeriodID: b.PeriodID, Tier: b.Tier, Index: index}
}

// PurchaseStore persists purchases.
type PurchaseStore interface {
	// InsertIfAbsent inserts p or returns ErrAlreadyExists when the bundle is already recorded.
	InsertIfAbsent(ctx context.Context, p Purchase) (Purchase, error)
	// Get returns the purchase for the bundle or ErrNotFound.
	Get(ctx context.Context, b Bundle) (Purchase, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Purchase, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// RevealStore persists reveals.
type RevealStore interface {
	// InsertIfAbsent inserts r or returns ErrAlreadyExists when the item is already revealed.
	InsertIfAbsent(ctx context.Context, r Reveal) (Reveal, error)
	// ListForBundle returns the bundle's reveals ordered by item index.
	ListForBundle(ctx context.Context, b Bundle) ([]Reveal, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Reveal, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// PeriodStore reads periods.
type PeriodStore interface {
	Get(ctx context.Context, id string) (Period, error)
	GetActive(ctx context.Context) (Period, error)
	List(ctx context.Context) ([]Period, error)
}
