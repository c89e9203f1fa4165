package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/vaultdrop-server/internal/model"
)

var (
	_ model.PurchaseStore = (*MemStore)(nil)
	_ model.PeriodStore   = (*MemPeriods)(nil)
)

type purchaseKey struct {
	user   uuid.UUID
	tier   model.Tier
	period string
}

type revealKey struct {
	user     uuid.UUID
	tier     model.Tier
	mediaKey string
	period   string
}

// MemStore is an in-memory entitlement store with the unique constraints of the
// Postgres schema. It is safe for concurrent use.
type MemStore struct {
	mu        sync.Mutex
	purchases map[purchaseKey]model.Purchase
	reveals   map[revealKey]model.Reveal
}

func NewMemStore() *MemStore {
	return &MemStore{
		purchases: make(map[purchaseKey]model.Purchase),
		reveals:   make(map[revealKey]model.Reveal),
	}
}

// Reveals exposes the reveal half of the store.
func (s *MemStore) Reveals() *MemReveals {
	return &MemReveals{s: s}
}

func (s *MemStore) InsertIfAbsent(_ context.Context, p model.Purchase) (model.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := purchaseKey{p.UserID, p.Tier, p.PeriodID}
	if _, ok := s.purchases[k]; ok {
		return model.Purchase{}, model.ErrAlreadyExists
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	s.purchases[k] = p
	return p, nil
}

func (s *MemStore) Get(_ context.Context, b model.Bundle) (model.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.purchases[purchaseKey{b.UserID, b.Tier, b.PeriodID}]
	if !ok {
		return model.Purchase{}, model.ErrNotFound
	}
	return p, nil
}

func (s *MemStore) ListByUser(_ context.Context, userID uuid.UUID) ([]model.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Purchase
	for k, p := range s.purchases {
		if k.user == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemStore) DeleteByUser(_ context.Context, userID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for k := range s.purchases {
		if k.user == userID {
			delete(s.purchases, k)
			n++
		}
	}
	return n, nil
}

// PurchaseCount returns the number of stored purchases.
func (s *MemStore) PurchaseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.purchases)
}

// RevealCount returns the number of stored reveals.
func (s *MemStore) RevealCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reveals)
}

// MemReveals implements model.RevealStore on top of a MemStore.
type MemReveals struct {
	s *MemStore
}

var _ model.RevealStore = (*MemReveals)(nil)

func (r *MemReveals) InsertIfAbsent(_ context.Context, rv model.Reveal) (model.Reveal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	k := revealKey{rv.UserID, rv.Tier, rv.MediaKey, rv.PeriodID}
	if _, ok := r.s.reveals[k]; ok {
		return model.Reveal{}, model.ErrAlreadyExists
	}
	if rv.ID == uuid.Nil {
		rv.ID = uuid.New()
	}
	if rv.RevealedAt.IsZero() {
		rv.RevealedAt = time.Now()
	}
	r.s.reveals[k] = rv
	return rv, nil
}

func (r *MemReveals) ListForBundle(_ context.Context, b model.Bundle) ([]model.Reveal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []model.Reveal
	for k, rv := range r.s.reveals {
		if k.user == b.UserID && k.tier == b.Tier && k.period == b.PeriodID {
			out = append(out, rv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemIndex < out[j].ItemIndex })
	return out, nil
}

func (r *MemReveals) ListByUser(_ context.Context, userID uuid.UUID) ([]model.Reveal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []model.Reveal
	for k, rv := range r.s.reveals {
		if k.user == userID {
			out = append(out, rv)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PeriodID != out[j].PeriodID {
			return out[i].PeriodID < out[j].PeriodID
		}
		if out[i].Tier != out[j].Tier {
			return out[i].Tier < out[j].Tier
		}
		return out[i].ItemIndex < out[j].ItemIndex
	})
	return out, nil
}

func (r *MemReveals) DeleteByUser(_ context.Context, userID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for k := range r.s.reveals {
		if k.user == userID {
			delete(r.s.reveals, k)
			n++
		}
	}
	return n, nil
}

// MemPeriods is a fixed period catalogue.
type MemPeriods struct {
	periods []model.Period
}

func NewMemPeriods(periods ...model.Period) *MemPeriods {
	return &MemPeriods{periods: periods}
}

func (m *MemPeriods) Get(_ context.Context, id string) (model.Period, error) {
	for _, p := range m.periods {
		if p.ID == id {
			return p, nil
		}
	}
	return model.Period{}, model.ErrNotFound
}

func (m *MemPeriods) GetActive(_ context.Context) (model.Period, error) {
	for _, p := range m.periods {
		if p.IsActive {
			return p, nil
		}
	}
	return model.Period{}, model.ErrNotFound
}

func (m *MemPeriods) List(_ context.Context) ([]model.Period, error) {
	out := append([]model.Period(nil), m.periods...)
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.After(out[j].StartsAt) })
	return out, nil
}
