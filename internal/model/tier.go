package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Tier is a fixed bundle class. The set is closed.
type Tier string

const (
	// TierEssential is the smallest bundle.
	TierEssential Tier = "essential"
	// TierPremium is the middle bundle.
	TierPremium Tier = "premium"
	// TierExclusive is the largest bundle.
	TierExclusive Tier = "exclusive"
)

// DefaultCurrency is the ISO currency of the price table.
const DefaultCurrency = "eur"

// TierSpec is the server-side configuration of one tier.
type TierSpec struct {
	Tier        Tier
	ItemCount   int
	PriceCents  int64
	DisplayName string
}

var tierSpecs = map[Tier]TierSpec{
	TierEssential: {Tier: TierEssential, ItemCount: 5, PriceCents: 1000, DisplayName: "Pack Essential - 5 médias"},
	TierPremium:   {Tier: TierPremium, ItemCount: 10, PriceCents: 2000, DisplayName: "Pack Premium - 10 médias"},
	TierExclusive: {Tier: TierExclusive, ItemCount: 15, PriceCents: 5000, DisplayName: "Pack Exclusive - 15 médias"},
}

// Tiers returns all tiers ordered by price.
func Tiers() []Tier {
	return []Tier{TierEssential, TierPremium, TierExclusive}
}

// ParseTier returns the tier for s or ErrInvalidRequest.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.TrimSpace(s))
	if _, ok := tierSpecs[t]; !ok {
		return "", fmt.Errorf("%w: unknown tier %q", ErrInvalidRequest, s)
	}
	return t, nil
}

// Valid reports whether t belongs to the closed tier set.
func (t Tier) Valid() bool {
	_, ok := tierSpecs[t]
	return ok
}

// Spec returns the configuration of t. The zero TierSpec is returned for unknown tiers.
func (t Tier) Spec() TierSpec {
	return tierSpecs[t]
}

// ItemCount returns the number of items in a bundle of t.
func (t Tier) ItemCount() int {
	return tierSpecs[t].ItemCount
}

// MediaItem addresses one asset of a bundle. It is never persisted.
type MediaItem struct {
	PeriodID string
	Tier     Tier
	Index    int
}

// ParseIndex parses a 1-based item index and checks it against the tier's item count.
func ParseIndex(t Tier, s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: item index %q is not a number", ErrInvalidRequest, s)
	}
	if n < 1 || n > t.ItemCount() {
		return 0, fmt.Errorf("%w: item index %d out of range for tier %s", ErrInvalidRequest, n, t)
	}
	return n, nil
}

// MediaKey is the stable identifier of the item inside its bundle, e.g. "premium-3".
func (m MediaItem) MediaKey() string {
	return fmt.Sprintf("%s-%d", m.Tier, m.Index)
}

// ObjectKey returns the private object store path of the item.
func (m MediaItem) ObjectKey(ext string) string {
	if ext == "" {
		ext = "jpg"
	}
	return fmt.Sprintf("%s/%s/%d.%s", m.PeriodID, m.Tier, m.Index, strings.TrimPrefix(ext, "."))
}

// CacheKey identifies the item in the signed URL cache.
func (m MediaItem) CacheKey() string {
	return m.PeriodID + "/" + string(m.Tier) + "/" + strconv.Itoa(m.Index)
}

// Validate checks that every field is present and the index is within the bundle.
func (m MediaItem) Validate() error {
	if strings.TrimSpace(m.PeriodID) == "" {
		return fmt.Errorf("%w: period is required", ErrInvalidRequest)
	}
	if !m.Tier.Valid() {
		return fmt.Errorf("%w: unknown tier %q", ErrInvalidRequest, m.Tier)
	}
	if m.Index < 1 || m.Index > m.Tier.ItemCount() {
		return fmt.Errorf("%w: item index %d out of range for tier %s", ErrInvalidRequest, m.Index, m.Tier)
	}
	return nil
}
