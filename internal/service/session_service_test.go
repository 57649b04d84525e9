package service

import (
	"context"
	"net/http"
	"testing"

	"snapfeed/internal/models"
	"snapfeed/internal/store"
	"snapfeed/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionService_Login_Success(t *testing.T) {
	t.Parallel()

	cu := testutil.CurrentUser()
	auth := failingAuthGateway(t)
	auth.loginFn = func(_ context.Context, in models.LoginInput) (models.CurrentUser, error) {
		assert.Equal(t, "alice@example.com", in.Email)
		return cu, nil
	}
	st, rec := newRecordedStore(t)
	svc := NewSessionService(auth, st)

	got, err := svc.Login(context.Background(), "  alice@example.com ", "secret")
	require.NoError(t, err)
	assert.Equal(t, cu.User.ID, got.User.ID)

	assert.Equal(t, []string{"user/signInStart", "user/signInSuccess"}, rec.Types())
	state := st.GetState().User
	require.NotNil(t, state.CurrentUser)
	assert.Equal(t, cu.User.ID, state.CurrentUser.User.ID)
	assert.Empty(t, state.Error)
	assert.True(t, state.Loading, "sign-in success leaves loading as it was")
}

func TestSessionService_Login_ClearsLoadingWhenConfigured(t *testing.T) {
	t.Parallel()

	auth := failingAuthGateway(t)
	auth.loginFn = func(context.Context, models.LoginInput) (models.CurrentUser, error) {
		return testutil.CurrentUser(), nil
	}
	st, _ := newRecordedStore(t, store.WithSessionReducer(store.SessionReducer{ClearLoadingOnAuthSuccess: true}))

	_, err := NewSessionService(auth, st).Login(context.Background(), "a@b.c", "secret")
	require.NoError(t, err)
	assert.False(t, st.GetState().User.Loading)
}

func TestSessionService_Login_Failure(t *testing.T) {
	t.Parallel()

	auth := failingAuthGateway(t)
	auth.loginFn = func(context.Context, models.LoginInput) (models.CurrentUser, error) {
		return models.CurrentUser{}, models.NewGatewayError("Invalid credentials", http.StatusUnauthorized, nil)
	}
	st, rec := newRecordedStore(t)

	_, err := NewSessionService(auth, st).Login(context.Background(), "a@b.c", "wrong")
	require.Error(t, err)

	assert.Equal(t, []string{"user/signInStart", "user/signInFailure"}, rec.Types())
	state := st.GetState().User
	assert.Nil(t, state.CurrentUser)
	assert.False(t, state.Loading)
	assert.Equal(t, "Invalid credentials", state.Error)
}

func TestSessionService_Login_Validation(t *testing.T) {
	t.Parallel()

	st, rec := newRecordedStore(t)
	svc := NewSessionService(failingAuthGateway(t), st)

	_, err := svc.Login(context.Background(), " ", "secret")
	assertValidationError(t, err)
	_, err = svc.Login(context.Background(), "a@b.c", "")
	assertValidationError(t, err)

	assert.Empty(t, rec.Types())
}

func TestSessionService_Register(t *testing.T) {
	t.Parallel()

	t.Run("validation", func(t *testing.T) {
		t.Parallel()
		svc := NewSessionService(failingAuthGateway(t), store.New())
		ctx := context.Background()

		_, err := svc.Register(ctx, models.RegisterInput{Email: "a@b.c", Password: "password123"})
		assertValidationError(t, err)
		_, err = svc.Register(ctx, models.RegisterInput{Username: "bob", Email: "nope", Password: "password123"})
		assertValidationError(t, err)
		_, err = svc.Register(ctx, models.RegisterInput{Username: "bob", Email: "a@b.c", Password: "short"})
		assertValidationError(t, err)
	})

	t.Run("does not sign in", func(t *testing.T) {
		t.Parallel()
		auth := failingAuthGateway(t)
		auth.registerFn = func(_ context.Context, in models.RegisterInput) (models.UserProfile, error) {
			return models.UserProfile{ID: "u1", Username: in.Username, Email: in.Email}, nil
		}
		st, rec := newRecordedStore(t)

		profile, err := NewSessionService(auth, st).Register(context.Background(), models.RegisterInput{
			Username: "bob", Email: "bob@example.com", Password: "password123",
		})
		require.NoError(t, err)
		assert.Equal(t, "bob", profile.Username)
		assert.Empty(t, rec.Types())
		assert.False(t, store.IsAuthenticated(st.GetState()))
	})
}

func TestSessionService_RefreshSession(t *testing.T) {
	t.Parallel()

	t.Run("restores the cookie session", func(t *testing.T) {
		t.Parallel()
		cu := testutil.CurrentUser()
		auth := failingAuthGateway(t)
		auth.currentFn = func(context.Context) (models.CurrentUser, error) { return cu, nil }
		st, rec := newRecordedStore(t)

		_, err := NewSessionService(auth, st).RefreshSession(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"user/signInStart", "user/signInSuccess"}, rec.Types())
		assert.Equal(t, cu.User.ID, store.CurrentUserID(st.GetState()))
	})

	t.Run("no session", func(t *testing.T) {
		t.Parallel()
		auth := failingAuthGateway(t)
		auth.currentFn = func(context.Context) (models.CurrentUser, error) {
			return models.CurrentUser{}, models.NewGatewayError("Unauthorized", http.StatusUnauthorized, nil)
		}
		st, _ := newRecordedStore(t)

		_, err := NewSessionService(auth, st).RefreshSession(context.Background())
		require.Error(t, err)
		assert.Equal(t, "Unauthorized", st.GetState().User.Error)
	})
}

func TestSessionService_UpdateProfile(t *testing.T) {
	t.Parallel()

	signedIn := func() store.RootState {
		state := store.NewRootState()
		cu := testutil.CurrentUser(func(u *models.UserProfile) { u.ID = "u1"; u.Username = "alice" })
		state.User.CurrentUser = &cu
		return state
	}

	t.Run("requires a session", func(t *testing.T) {
		t.Parallel()
		st, rec := newRecordedStore(t)
		_, err := NewSessionService(failingAuthGateway(t), st).UpdateProfile(context.Background(), models.ProfilePatch{Username: "x"})
		require.Error(t, err)
		assert.True(t, models.IsCode(err, models.CodeUnauthorized))
		assert.Empty(t, rec.Types())
	})

	t.Run("merges the returned user", func(t *testing.T) {
		t.Parallel()
		auth := failingAuthGateway(t)
		auth.updateProfileFn = func(_ context.Context, id string, patch models.ProfilePatch) (models.ProfileUpdate, error) {
			assert.Equal(t, "u1", id)
			assert.Empty(t, patch.Password, "blank passwords are not sent")
			return models.ProfileUpdate{User: models.UserProfile{ID: id, Username: patch.Username}, Message: "User updated successfully"}, nil
		}
		st, rec := newRecordedStore(t, store.WithInitialState(signedIn()))

		_, err := NewSessionService(auth, st).UpdateProfile(context.Background(), models.ProfilePatch{Username: "alicia", Password: "   "})
		require.NoError(t, err)

		assert.Equal(t, []string{"user/updateStart", "user/updateSuccess"}, rec.Types())
		state := st.GetState().User
		assert.Equal(t, "alicia", state.CurrentUser.User.Username)
		assert.NotEmpty(t, state.CurrentUser.User.Email, "fields absent from the response are kept")
		assert.Equal(t, "User updated successfully", state.CurrentUser.Message)
		assert.False(t, state.Loading)
	})

	t.Run("failure keeps the user", func(t *testing.T) {
		t.Parallel()
		auth := failingAuthGateway(t)
		auth.updateProfileFn = func(context.Context, string, models.ProfilePatch) (models.ProfileUpdate, error) {
			return models.ProfileUpdate{}, models.NewGatewayError("Username taken", http.StatusConflict, nil)
		}
		st, _ := newRecordedStore(t, store.WithInitialState(signedIn()))

		_, err := NewSessionService(auth, st).UpdateProfile(context.Background(), models.ProfilePatch{Username: "bob"})
		require.Error(t, err)
		state := st.GetState().User
		assert.Equal(t, "alice", state.CurrentUser.User.Username)
		assert.Equal(t, "Username taken", state.Error)
	})
}

func TestSessionService_DeleteAccount(t *testing.T) {
	t.Parallel()

	state := store.NewRootState()
	cu := testutil.CurrentUser()
	state.User.CurrentUser = &cu

	t.Run("logs out on success", func(t *testing.T) {
		t.Parallel()
		auth := failingAuthGateway(t)
		auth.deleteAccountFn = func(_ context.Context, id string) error {
			assert.Equal(t, cu.User.ID, id)
			return nil
		}
		st, rec := newRecordedStore(t, store.WithInitialState(state))

		require.NoError(t, NewSessionService(auth, st).DeleteAccount(context.Background()))
		assert.Equal(t, []string{"user/logout"}, rec.Types())
		assert.False(t, store.IsAuthenticated(st.GetState()))
	})

	t.Run("failure keeps the session", func(t *testing.T) {
		t.Parallel()
		auth := failingAuthGateway(t)
		auth.deleteAccountFn = func(context.Context, string) error {
			return models.NewGatewayError("Error deleting account", http.StatusInternalServerError, nil)
		}
		st, rec := newRecordedStore(t, store.WithInitialState(state))

		require.Error(t, NewSessionService(auth, st).DeleteAccount(context.Background()))
		assert.Empty(t, rec.Types())
		assert.True(t, store.IsAuthenticated(st.GetState()))
	})
}

func TestSessionService_LogoutAndClearError(t *testing.T) {
	t.Parallel()

	state := store.NewRootState()
	cu := testutil.CurrentUser()
	state.User.CurrentUser = &cu
	state.User.Error = "boom"
	st, rec := newRecordedStore(t, store.WithInitialState(state))
	svc := NewSessionService(failingAuthGateway(t), st)

	svc.ClearError()
	assert.Empty(t, st.GetState().User.Error)
	assert.True(t, store.IsAuthenticated(st.GetState()))

	svc.Logout()
	assert.Equal(t, store.SessionState{}, st.GetState().User)
	assert.Equal(t, []string{"user/clearError", "user/logout"}, rec.Types())
}

func TestSessionService_AgainstFakeBackend(t *testing.T) {
	b := testutil.NewFakeBackend(t)
	b.SeedUser("alice", "alice@example.com", "password123")
	client := newGatewayClient(t, b.URL())
	st := store.New()
	svc := NewSessionService(client, st)
	ctx := context.Background()

	_, err := svc.RefreshSession(ctx)
	require.Error(t, err, "no cookie yet")

	_, err = svc.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	_, err = svc.RefreshSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", st.GetState().User.CurrentUser.User.Username)

	_, err = svc.UpdateProfile(ctx, models.ProfilePatch{Username: "alicia"})
	require.NoError(t, err)
	assert.Equal(t, "alicia", st.GetState().User.CurrentUser.User.Username)

	require.NoError(t, svc.DeleteAccount(ctx))
	assert.False(t, store.IsAuthenticated(st.GetState()))
}
