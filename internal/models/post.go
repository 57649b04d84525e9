package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// UserRef is either a bare user id or an embedded profile. The backend
// populates references inconsistently, so both shapes are accepted.
type UserRef struct {
	ID      string
	Profile *UserProfile
}

// LikeEntry is one element of a post's likes list.
type LikeEntry = UserRef

// RefID builds a reference holding only an id.
func RefID(id string) UserRef {
	return UserRef{ID: id}
}

// RefProfile builds a reference holding a full profile.
func RefProfile(p UserProfile) UserRef {
	return UserRef{ID: p.ID, Profile: &p}
}

// UserID returns the referenced user's id regardless of shape.
func (r UserRef) UserID() string {
	if r.Profile != nil && r.Profile.ID != "" {
		return r.Profile.ID
	}
	return r.ID
}

// IsProfile reports whether the reference carries a populated profile.
func (r UserRef) IsProfile() bool {
	return r.Profile != nil
}

// Username returns the referenced username, or "" for bare ids.
func (r UserRef) Username() string {
	if r.Profile == nil {
		return ""
	}
	return r.Profile.Username
}

// UnmarshalJSON accepts a string id, a number id, null or a profile object.
func (r *UserRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*r = UserRef{}
		return nil
	case data[0] == '{':
		var p UserProfile
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decode user reference: %w", err)
		}
		*r = RefProfile(p)
		return nil
	default:
		id := rawID(data)
		if id == "" {
			return fmt.Errorf("decode user reference: unsupported value %s", string(data))
		}
		*r = RefID(id)
		return nil
	}
}

// MarshalJSON writes the profile when present, otherwise the bare id.
func (r UserRef) MarshalJSON() ([]byte, error) {
	if r.Profile != nil {
		return json.Marshal(r.Profile)
	}
	if r.ID == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.ID)
}

// Comment represents a comment on a post.
type Comment struct {
	ID     string  `json:"_id"`
	UserID UserRef `json:"userId"`
	Text   string  `json:"text"`
}

// Post represents an image post.
type Post struct {
	ID       string      `json:"_id"`
	Title    string      `json:"title"`
	Caption  string      `json:"caption"`
	Image    string      `json:"image"`
	UserID   UserRef     `json:"userId"`
	Likes    []LikeEntry `json:"likes"`
	Comments []Comment   `json:"comments"`
}

// PostInput is the body of a create-post request.
type PostInput struct {
	Title   string `json:"title"`
	Caption string `json:"caption"`
	Image   string `json:"image"`
}

// PostPatch is the body of an update-post request.
type PostPatch struct {
	Title   string `json:"title,omitempty"`
	Caption string `json:"caption,omitempty"`
	Image   string `json:"image,omitempty"`
}

// CommentInput is the body of an add-comment request.
type CommentInput struct {
	Text string `json:"text"`
}
