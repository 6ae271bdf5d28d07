package services

import (
	"context"

	"github.com/civiclens/webclient/types"
)

// ProfileRepository reads persisted profiles.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (types.Profile, error)
}

// ProfileService looks up the persisted profile behind an identity.
type ProfileService struct {
	repo ProfileRepository
}

func NewProfileService(repo ProfileRepository) *ProfileService {
	return &ProfileService{repo: repo}
}

// GetProfile returns the profile of userID.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (types.Profile, error) {
	return s.repo.GetByID(ctx, userID)
}
