package service

import (
	"context"
	"strings"

	"snapfeed/internal/gateway"
	"snapfeed/internal/models"
	"snapfeed/internal/store"
)

// SessionService drives sign-in, profile and account flows.
type SessionService struct {
	auth  gateway.AuthGateway
	store StateStore
}

// NewSessionService creates a new SessionService.
func NewSessionService(auth gateway.AuthGateway, st StateStore) *SessionService {
	return &SessionService{auth: auth, store: st}
}

// Register creates an account. It leaves the store untouched; the user signs
// in separately.
func (s *SessionService) Register(ctx context.Context, in models.RegisterInput) (models.UserProfile, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	switch {
	case in.Username == "":
		return models.UserProfile{}, models.NewValidationError("Please enter a username")
	case in.Email == "" || !strings.Contains(in.Email, "@"):
		return models.UserProfile{}, models.NewValidationError("Enter a valid email")
	case len(in.Password) < 8:
		return models.UserProfile{}, models.NewValidationError("Password must be at least 8 characters")
	}

	var profile models.UserProfile
	err := track(ctx, "session.register", map[string]interface{}{"email": in.Email}, func(ctx context.Context) error {
		var err error
		profile, err = s.auth.Register(ctx, in)
		return err
	})
	return profile, err
}

// Login signs in and records the session.
func (s *SessionService) Login(ctx context.Context, email, password string) (models.CurrentUser, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return models.CurrentUser{}, models.NewValidationError("All fields are required")
	}

	s.store.Dispatch(store.AuthStart{})
	var cu models.CurrentUser
	err := track(ctx, "session.login", map[string]interface{}{"email": email}, func(ctx context.Context) error {
		var err error
		cu, err = s.auth.Login(ctx, models.LoginInput{Email: email, Password: password})
		return err
	})
	if err != nil {
		s.store.Dispatch(store.AuthFailure{Message: models.UserMessage(err)})
		return models.CurrentUser{}, err
	}
	s.store.Dispatch(store.AuthSuccess{CurrentUser: cu})
	return cu, nil
}

// RefreshSession asks the backend whether the ambient cookie still belongs to
// a user, the way the app does on startup.
func (s *SessionService) RefreshSession(ctx context.Context) (models.CurrentUser, error) {
	s.store.Dispatch(store.AuthStart{})
	var cu models.CurrentUser
	err := track(ctx, "session.refresh", nil, func(ctx context.Context) error {
		var err error
		cu, err = s.auth.FetchCurrentSession(ctx)
		return err
	})
	if err != nil {
		s.store.Dispatch(store.AuthFailure{Message: models.UserMessage(err)})
		return models.CurrentUser{}, err
	}
	s.store.Dispatch(store.AuthSuccess{CurrentUser: cu})
	return cu, nil
}

// UpdateProfile patches the signed-in user's profile. An empty password is
// not sent.
func (s *SessionService) UpdateProfile(ctx context.Context, patch models.ProfilePatch) (models.ProfileUpdate, error) {
	id, err := requireUser(s.store)
	if err != nil {
		return models.ProfileUpdate{}, err
	}
	if strings.TrimSpace(patch.Password) == "" {
		patch.Password = ""
	}

	s.store.Dispatch(store.UpdateStart{})
	var res models.ProfileUpdate
	err = track(ctx, "session.updateProfile", map[string]interface{}{"user_id": id}, func(ctx context.Context) error {
		var err error
		res, err = s.auth.UpdateProfile(ctx, id, patch)
		return err
	})
	if err != nil {
		s.store.Dispatch(store.UpdateFailure{Message: models.UserMessage(err)})
		return models.ProfileUpdate{}, err
	}
	s.store.Dispatch(store.UpdateSuccess{User: res.User, Message: res.Message})
	return res, nil
}

// DeleteAccount removes the signed-in account and logs out. A failure leaves
// the session as it was.
func (s *SessionService) DeleteAccount(ctx context.Context) error {
	id, err := requireUser(s.store)
	if err != nil {
		return err
	}
	err = track(ctx, "session.deleteAccount", map[string]interface{}{"user_id": id}, func(ctx context.Context) error {
		return s.auth.DeleteAccount(ctx, id)
	})
	if err != nil {
		return err
	}
	s.store.Dispatch(store.Logout{})
	return nil
}

// Logout clears the session locally.
func (s *SessionService) Logout() {
	s.store.Dispatch(store.Logout{})
}

// ClearError dismisses the session error.
func (s *SessionService) ClearError() {
	s.store.Dispatch(store.ClearSessionError{})
}
