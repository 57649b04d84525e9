package service

import (
	"context"
	"sync"
	"testing"

	"snapfeed/internal/models"
	"snapfeed/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// authGatewayStub is a stub for gateway.AuthGateway.
type authGatewayStub struct {
	registerFn      func(context.Context, models.RegisterInput) (models.UserProfile, error)
	loginFn         func(context.Context, models.LoginInput) (models.CurrentUser, error)
	currentFn       func(context.Context) (models.CurrentUser, error)
	updateProfileFn func(context.Context, string, models.ProfilePatch) (models.ProfileUpdate, error)
	deleteAccountFn func(context.Context, string) error
	listUsersFn     func(context.Context) ([]models.UserProfile, error)
}

func (s *authGatewayStub) Register(ctx context.Context, in models.RegisterInput) (models.UserProfile, error) {
	return s.registerFn(ctx, in)
}
func (s *authGatewayStub) Login(ctx context.Context, in models.LoginInput) (models.CurrentUser, error) {
	return s.loginFn(ctx, in)
}
func (s *authGatewayStub) FetchCurrentSession(ctx context.Context) (models.CurrentUser, error) {
	return s.currentFn(ctx)
}
func (s *authGatewayStub) UpdateProfile(ctx context.Context, id string, patch models.ProfilePatch) (models.ProfileUpdate, error) {
	return s.updateProfileFn(ctx, id, patch)
}
func (s *authGatewayStub) DeleteAccount(ctx context.Context, id string) error {
	return s.deleteAccountFn(ctx, id)
}
func (s *authGatewayStub) ListUsers(ctx context.Context) ([]models.UserProfile, error) {
	return s.listUsersFn(ctx)
}

func failingAuthGateway(t *testing.T) *authGatewayStub {
	fail := func() { t.Helper(); t.Fatal("unexpected gateway call") }
	return &authGatewayStub{
		registerFn: func(context.Context, models.RegisterInput) (models.UserProfile, error) {
			fail()
			return models.UserProfile{}, nil
		},
		loginFn: func(context.Context, models.LoginInput) (models.CurrentUser, error) {
			fail()
			return models.CurrentUser{}, nil
		},
		currentFn: func(context.Context) (models.CurrentUser, error) {
			fail()
			return models.CurrentUser{}, nil
		},
		updateProfileFn: func(context.Context, string, models.ProfilePatch) (models.ProfileUpdate, error) {
			fail()
			return models.ProfileUpdate{}, nil
		},
		deleteAccountFn: func(context.Context, string) error { fail(); return nil },
		listUsersFn: func(context.Context) ([]models.UserProfile, error) {
			fail()
			return nil, nil
		},
	}
}

// postGatewayStub is a stub for gateway.PostGateway.
type postGatewayStub struct {
	createFn        func(context.Context, models.PostInput) (models.Post, error)
	fetchMineFn     func(context.Context) ([]models.Post, error)
	fetchAllFn      func(context.Context) ([]models.Post, error)
	updateFn        func(context.Context, string, models.PostPatch) (models.Post, error)
	deleteFn        func(context.Context, string) error
	likeFn          func(context.Context, string) (models.Post, error)
	addCommentFn    func(context.Context, string, string) (models.Post, error)
	deleteCommentFn func(context.Context, string, string) (models.Post, error)
}

func (s *postGatewayStub) CreatePost(ctx context.Context, in models.PostInput) (models.Post, error) {
	return s.createFn(ctx, in)
}
func (s *postGatewayStub) FetchMyPosts(ctx context.Context) ([]models.Post, error) {
	return s.fetchMineFn(ctx)
}
func (s *postGatewayStub) FetchAllPosts(ctx context.Context) ([]models.Post, error) {
	return s.fetchAllFn(ctx)
}
func (s *postGatewayStub) UpdatePost(ctx context.Context, id string, patch models.PostPatch) (models.Post, error) {
	return s.updateFn(ctx, id, patch)
}
func (s *postGatewayStub) DeletePost(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}
func (s *postGatewayStub) Like(ctx context.Context, postID string) (models.Post, error) {
	return s.likeFn(ctx, postID)
}
func (s *postGatewayStub) AddComment(ctx context.Context, postID, text string) (models.Post, error) {
	return s.addCommentFn(ctx, postID, text)
}
func (s *postGatewayStub) DeleteComment(ctx context.Context, postID, commentID string) (models.Post, error) {
	return s.deleteCommentFn(ctx, postID, commentID)
}

func noopPostGateway() *postGatewayStub {
	return &postGatewayStub{
		createFn:        func(_ context.Context, in models.PostInput) (models.Post, error) { return models.Post{Title: in.Title}, nil },
		fetchMineFn:     func(context.Context) ([]models.Post, error) { return []models.Post{}, nil },
		fetchAllFn:      func(context.Context) ([]models.Post, error) { return []models.Post{}, nil },
		updateFn:        func(_ context.Context, id string, _ models.PostPatch) (models.Post, error) { return models.Post{ID: id}, nil },
		deleteFn:        func(context.Context, string) error { return nil },
		likeFn:          func(_ context.Context, id string) (models.Post, error) { return models.Post{ID: id}, nil },
		addCommentFn:    func(_ context.Context, id, _ string) (models.Post, error) { return models.Post{ID: id}, nil },
		deleteCommentFn: func(_ context.Context, id, _ string) (models.Post, error) { return models.Post{ID: id}, nil },
	}
}

// recorder captures the intent types a store receives.
type recorder struct {
	mu    sync.Mutex
	types []string
}

func newRecordedStore(t *testing.T, opts ...store.Option) (*store.Store, *recorder) {
	t.Helper()
	st := store.New(opts...)
	rec := &recorder{}
	unsubscribe := st.Subscribe(func(c store.Change) {
		rec.mu.Lock()
		rec.types = append(rec.types, c.Intent)
		rec.mu.Unlock()
	})
	t.Cleanup(unsubscribe)
	return st, rec
}

func (r *recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.types...)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeValidation), "expected validation error, got %v", err)
}
