package service

import (
	"context"

	"snapfeed/internal/gateway"
	"snapfeed/internal/models"
	"snapfeed/internal/store"
)

// DirectoryService lists users for search. It does not touch the store.
type DirectoryService struct {
	auth gateway.AuthGateway
}

// NewDirectoryService creates a new DirectoryService.
func NewDirectoryService(auth gateway.AuthGateway) *DirectoryService {
	return &DirectoryService{auth: auth}
}

// Search returns the users whose username contains term, ignoring case. An
// empty term returns everyone.
func (s *DirectoryService) Search(ctx context.Context, term string) ([]models.UserProfile, error) {
	var users []models.UserProfile
	err := track(ctx, "directory.search", map[string]interface{}{"term": term}, func(ctx context.Context) error {
		var err error
		users, err = s.auth.ListUsers(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return store.FilterUsers(users, term), nil
}
