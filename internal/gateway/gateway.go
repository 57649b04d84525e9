// Package gateway talks to the remote REST backend. Every call resolves to
// either a decoded payload or a *models.AppError whose Message is safe to
// show to the user.
package gateway

import (
	"context"

	"snapfeed/internal/models"
)

// AuthGateway covers account and session endpoints.
type AuthGateway interface {
	Register(ctx context.Context, in models.RegisterInput) (models.UserProfile, error)
	Login(ctx context.Context, in models.LoginInput) (models.CurrentUser, error)
	FetchCurrentSession(ctx context.Context) (models.CurrentUser, error)
	UpdateProfile(ctx context.Context, id string, patch models.ProfilePatch) (models.ProfileUpdate, error)
	DeleteAccount(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]models.UserProfile, error)
}

// PostGateway covers post and interaction endpoints.
type PostGateway interface {
	CreatePost(ctx context.Context, in models.PostInput) (models.Post, error)
	FetchMyPosts(ctx context.Context) ([]models.Post, error)
	FetchAllPosts(ctx context.Context) ([]models.Post, error)
	UpdatePost(ctx context.Context, id string, patch models.PostPatch) (models.Post, error)
	DeletePost(ctx context.Context, id string) error
	Like(ctx context.Context, postID string) (models.Post, error)
	AddComment(ctx context.Context, postID, text string) (models.Post, error)
	DeleteComment(ctx context.Context, postID, commentID string) (models.Post, error)
}

var (
	_ AuthGateway = (*Client)(nil)
	_ PostGateway = (*Client)(nil)
)
