package store

import (
	"strings"

	"snapfeed/internal/models"
)

// IsAuthenticated reports whether a session user is present.
func IsAuthenticated(state RootState) bool {
	return state.User.CurrentUser != nil
}

// CurrentUserID returns the session user's id, or "".
func CurrentUserID(state RootState) string {
	if state.User.CurrentUser == nil {
		return ""
	}
	return state.User.CurrentUser.User.ID
}

// LikedBy reports whether userID appears in the post's likes, whichever shape
// each entry was delivered in.
func LikedBy(post models.Post, userID string) bool {
	if userID == "" {
		return false
	}
	for _, like := range post.Likes {
		if like.UserID() == userID {
			return true
		}
	}
	return false
}

// LikeCount returns the number of likes on post.
func LikeCount(post models.Post) int {
	return len(post.Likes)
}

// CanDeleteComment reports whether userID authored the comment.
func CanDeleteComment(comment models.Comment, userID string) bool {
	return userID != "" && comment.UserID.UserID() == userID
}

// FilterByAuthor keeps posts whose author username contains term,
// case-insensitively. The term is used as given. Posts whose author is a bare
// id have no username and never match, even for an empty term.
func FilterByAuthor(posts []models.Post, term string) []models.Post {
	term = strings.ToLower(term)
	out := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if p.UserID.IsProfile() && strings.Contains(strings.ToLower(p.UserID.Username()), term) {
			out = append(out, p)
		}
	}
	return out
}

// FilterUsers keeps users whose username contains term, case-insensitively.
func FilterUsers(users []models.UserProfile, term string) []models.UserProfile {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return users
	}
	out := make([]models.UserProfile, 0, len(users))
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.Username), term) {
			out = append(out, u)
		}
	}
	return out
}

// FindPost looks a post up by id, feed first.
func FindPost(state PostState, id string) (models.Post, bool) {
	for _, p := range state.AllPosts {
		if p.ID == id {
			return p, true
		}
	}
	for _, p := range state.UserPosts {
		if p.ID == id {
			return p, true
		}
	}
	return models.Post{}, false
}
