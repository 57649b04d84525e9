package gateway

import (
	"context"
	"net/http"

	"snapfeed/internal/models"
)

// Register creates an account. The backend does not sign the new user in.
func (c *Client) Register(ctx context.Context, in models.RegisterInput) (models.UserProfile, error) {
	var out struct {
		User models.UserProfile `json:"user"`
	}
	err := c.do(ctx, endpoint{
		op:            "register",
		method:        http.MethodPost,
		path:          "/api/user/register",
		fallback:      "Registration failed",
		transportText: true,
	}, in, &out)
	return out.User, err
}

// Login authenticates and returns the session record. The session cookie
// lands in the client's jar.
func (c *Client) Login(ctx context.Context, in models.LoginInput) (models.CurrentUser, error) {
	var out models.CurrentUser
	err := c.do(ctx, endpoint{
		op:            "login",
		method:        http.MethodPost,
		path:          "/api/user/login",
		fallback:      "Login failed",
		transportText: true,
	}, in, &out)
	return out, err
}

// FetchCurrentSession asks the backend who the cookie belongs to. The
// endpoint answers with a bare profile, which is wrapped as a session record.
func (c *Client) FetchCurrentSession(ctx context.Context) (models.CurrentUser, error) {
	var profile models.UserProfile
	err := c.do(ctx, endpoint{
		op:            "currentUser",
		method:        http.MethodGet,
		path:          "/user/current-user",
		fallback:      "Failed to fetch current user",
		transportText: true,
	}, nil, &profile)
	if err != nil {
		return models.CurrentUser{}, err
	}
	return models.CurrentUser{User: profile}, nil
}

// UpdateProfile patches the profile of user id.
func (c *Client) UpdateProfile(ctx context.Context, id string, patch models.ProfilePatch) (models.ProfileUpdate, error) {
	var out models.ProfileUpdate
	err := c.do(ctx, endpoint{
		op:            "updateProfile",
		method:        http.MethodPut,
		path:          pathf("/api/user/updateuser/%s", id),
		fallback:      "Update failed",
		transportText: true,
	}, patch, &out)
	return out, err
}

// DeleteAccount removes user id.
func (c *Client) DeleteAccount(ctx context.Context, id string) error {
	return c.do(ctx, endpoint{
		op:       "deleteAccount",
		method:   http.MethodDelete,
		path:     pathf("/api/user/delete/%s", id),
		fallback: "Error deleting account",
	}, nil, nil)
}

// ListUsers returns every user known to the backend.
func (c *Client) ListUsers(ctx context.Context) ([]models.UserProfile, error) {
	var out []models.UserProfile
	err := c.do(ctx, endpoint{
		op:       "listUsers",
		method:   http.MethodGet,
		path:     "/api/user/all",
		fallback: "Failed to fetch users",
	}, nil, &out)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.UserProfile{}
	}
	return out, nil
}
