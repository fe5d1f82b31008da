package services

import (
	"context"
	"fmt"

	"github.com/ailearn/learnsync/core"
)

type ProfileService struct {
	api   *APIClient
	cache *EntityCache
}

func NewProfileService(api *APIClient, cache *EntityCache) *ProfileService {
	return &ProfileService{api: api, cache: cache}
}

// Me returns the caller's profile.
func (s *ProfileService) Me(ctx context.Context) (*core.Profile, error) {
	return Fetch(ctx, s.cache, ProfileKey, func(ctx context.Context) (*core.Profile, error) {
		var profile core.Profile
		if err := s.api.Do(ctx, Request{Operation: OpGetProfile}, &profile); err != nil {
			return nil, err
		}
		return &profile, nil
	})
}

// Update replaces the editable fields and returns the server's copy, which
// also becomes the cached profile.
func (s *ProfileService) Update(ctx context.Context, update core.ProfileUpdate) (*core.Profile, error) {
	req := Request{Operation: OpUpdateProfile, Form: update.FormData()}
	if update.Avatar != nil {
		req.Files = map[string]core.Upload{"avatar": *update.Avatar}
	}

	var profile core.Profile
	if err := s.api.Do(ctx, req, &profile); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	s.cache.AfterProfileUpdate(&profile)
	return &profile, nil
}
