package store

import "snapfeed/internal/models"

// SessionState holds the authenticated user and the auth-flow status.
type SessionState struct {
	CurrentUser *models.CurrentUser `json:"currentUser"`
	Loading     bool                `json:"loading"`
	Error       string              `json:"error,omitempty"`
}

// Phase names the session's position in the auth state machine.
type Phase string

const (
	PhaseAnonymous      Phase = "anonymous"
	PhaseAuthenticating Phase = "authenticating"
	PhaseAuthenticated  Phase = "authenticated"
	PhaseAuthFailed     Phase = "auth_failed"
)

// Phase derives the state-machine position from the slice.
func (s SessionState) Phase() Phase {
	switch {
	case s.Loading:
		return PhaseAuthenticating
	case s.Error != "":
		return PhaseAuthFailed
	case s.CurrentUser != nil:
		return PhaseAuthenticated
	default:
		return PhaseAnonymous
	}
}

// Session intents.
type (
	AuthStart   struct{}
	AuthSuccess struct {
		CurrentUser models.CurrentUser
	}
	AuthFailure struct {
		Message string
	}
	UpdateStart   struct{}
	UpdateSuccess struct {
		User    models.UserProfile
		Message string
	}
	UpdateFailure struct {
		Message string
	}
	Logout            struct{}
	ClearSessionError struct{}
)

func (AuthStart) Type() string         { return "user/signInStart" }
func (AuthSuccess) Type() string       { return "user/signInSuccess" }
func (AuthFailure) Type() string       { return "user/signInFailure" }
func (UpdateStart) Type() string       { return "user/updateStart" }
func (UpdateSuccess) Type() string     { return "user/updateSuccess" }
func (UpdateFailure) Type() string     { return "user/updateFailure" }
func (Logout) Type() string            { return "user/logout" }
func (ClearSessionError) Type() string { return "user/clearError" }

// SessionReducer reduces session intents.
//
// AuthSuccess leaves Loading as it was unless ClearLoadingOnAuthSuccess is
// set. Callers that rely on the loading flag after login should enable it.
type SessionReducer struct {
	ClearLoadingOnAuthSuccess bool
}

// ReduceSession applies intent with the default reducer.
func ReduceSession(state SessionState, intent Intent) SessionState {
	return SessionReducer{}.Reduce(state, intent)
}

// Reduce returns the state that follows state after intent. It never mutates
// state and ignores intents it does not own.
func (r SessionReducer) Reduce(state SessionState, intent Intent) SessionState {
	switch in := intent.(type) {
	case AuthStart, UpdateStart:
		state.Loading = true
		state.Error = ""
	case AuthSuccess:
		cu := in.CurrentUser
		state.CurrentUser = cu.Clone()
		state.Error = ""
		if r.ClearLoadingOnAuthSuccess {
			state.Loading = false
		}
	case AuthFailure:
		state.Loading = false
		state.Error = in.Message
	case UpdateSuccess:
		state.Loading = false
		state.Error = ""
		if state.CurrentUser == nil {
			break
		}
		merged, err := state.CurrentUser.User.Merge(in.User)
		if err != nil {
			state.Error = err.Error()
			break
		}
		state.CurrentUser = &models.CurrentUser{User: merged, Message: in.Message}
	case UpdateFailure:
		state.Loading = false
		state.Error = in.Message
	case Logout:
		return SessionState{}
	case ClearSessionError:
		state.Error = ""
	}
	return state
}
