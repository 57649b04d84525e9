// Package models contains data structures for the client's domain models.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jinzhu/copier"
)

// UserProfile represents a user as returned by the backend.
// Fields beyond identity are kept in Extra so they survive a round trip.
// Present lists the identity keys a decoded payload carried, even when their
// value was empty; it is nil for profiles built in code.
type UserProfile struct {
	ID             string                     `json:"_id"`
	Username       string                     `json:"username"`
	Email          string                     `json:"email"`
	ProfilePicture string                     `json:"profilePicture,omitempty"`
	Extra          map[string]json.RawMessage `json:"-" copier:"-"`
	Present        []string                   `json:"-" copier:"-"`
}

type userProfileWire struct {
	ID             string `json:"_id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

var profileKnownKeys = []string{"_id", "id", "username", "email", "profilePicture"}

// UnmarshalJSON accepts both "_id" and "id" and keeps unknown fields.
func (u *UserProfile) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode user profile: %w", err)
	}
	id := rawID(raw["_id"])
	if id == "" {
		id = rawID(raw["id"])
	}
	*u = UserProfile{
		ID:             id,
		Username:       rawString(raw["username"]),
		Email:          rawString(raw["email"]),
		ProfilePicture: rawString(raw["profilePicture"]),
	}
	for _, k := range profileKnownKeys {
		if _, ok := raw[k]; ok {
			u.Present = appendKey(u.Present, canonicalKey(k))
		}
		delete(raw, k)
	}
	if len(raw) > 0 {
		u.Extra = raw
	}
	return nil
}

// MarshalJSON writes the identity fields followed by any retained extras.
func (u UserProfile) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(u.Extra)+4)
	for k, v := range u.Extra {
		out[k] = v
	}
	known, err := json.Marshal(userProfileWire{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		ProfilePicture: u.ProfilePicture,
	})
	if err != nil {
		return nil, err
	}
	var knownMap map[string]json.RawMessage
	if err := json.Unmarshal(known, &knownMap); err != nil {
		return nil, err
	}
	for k, v := range knownMap {
		out[k] = v
	}
	return json.Marshal(out)
}

// Merge returns a copy of u with patch applied on top. A decoded patch
// overwrites exactly the keys it carried, so a present empty value clears the
// field. A patch built in code applies its non-empty fields. Extra fields are
// merged key by key.
func (u UserProfile) Merge(patch UserProfile) (UserProfile, error) {
	merged := u.Clone()
	if patch.Present == nil {
		if err := copier.CopyWithOption(&merged, &patch, copier.Option{IgnoreEmpty: true, DeepCopy: true}); err != nil {
			return u.Clone(), fmt.Errorf("merge user profile: %w", err)
		}
	}
	for _, k := range patch.Present {
		switch k {
		case "_id":
			merged.ID = patch.ID
		case "username":
			merged.Username = patch.Username
		case "email":
			merged.Email = patch.Email
		case "profilePicture":
			merged.ProfilePicture = patch.ProfilePicture
		}
	}
	if len(patch.Extra) > 0 {
		if merged.Extra == nil {
			merged.Extra = make(map[string]json.RawMessage, len(patch.Extra))
		}
		for k, v := range patch.Extra {
			merged.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return merged, nil
}

func canonicalKey(k string) string {
	if k == "id" {
		return "_id"
	}
	return k
}

func appendKey(keys []string, k string) []string {
	for _, have := range keys {
		if have == k {
			return keys
		}
	}
	return append(keys, k)
}

// Clone returns a deep copy of u.
func (u UserProfile) Clone() UserProfile {
	c := u
	if u.Present != nil {
		c.Present = append([]string(nil), u.Present...)
	}
	if u.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(u.Extra))
		for k, v := range u.Extra {
			c.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return c
}

// CurrentUser is the authenticated session record.
type CurrentUser struct {
	User    UserProfile `json:"user"`
	Message string      `json:"message,omitempty"`
}

// Clone returns a deep copy of c.
func (c *CurrentUser) Clone() *CurrentUser {
	if c == nil {
		return nil
	}
	return &CurrentUser{User: c.User.Clone(), Message: c.Message}
}

// ProfilePatch is the body of a profile update request.
type ProfilePatch struct {
	Username       string `json:"username,omitempty"`
	Email          string `json:"email,omitempty"`
	Password       string `json:"password,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// ProfileUpdate is the backend's answer to a profile update.
type ProfileUpdate struct {
	Message string      `json:"message"`
	User    UserProfile `json:"data"`
}

// RegisterInput is the body of a signup request.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginInput is the body of a login request.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// rawID turns a JSON string or number into its string form.
func rawID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	_ = json.Unmarshal(raw, &s)
	return s
}
