package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/dtroode/vaultdrop-server/internal/model"
)

// Media gates signed URL issuance on bundle progression.
type Media struct {
	progression *Progression
	access      *Access
}

// NewMedia creates a Media that checks progression before asking access for a URL.
func NewMedia(progression *Progression, access *Access) *Media {
	return &Media{
		progression: progression,
		access:      access,
	}
}

// URL returns a signed URL for item if userID may see it.
func (s *Media) URL(ctx context.Context, userID uuid.UUID, item model.MediaItem) (SignedURL, error) {
	if err := item.Validate(); err != nil {
		return SignedURL{}, err
	}
	if err := s.progression.CanAccess(ctx, userID, item); err != nil {
		return SignedURL{}, err
	}
	return s.access.IssueURL(ctx, item)
}
