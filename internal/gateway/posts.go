package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"snapfeed/internal/models"
)

// postList accepts either a bare array or an object with a posts array.
// Anything else decodes as empty.
type postList []models.Post

func (l *postList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) > 0 && data[0] == '[':
		var posts []models.Post
		if err := json.Unmarshal(data, &posts); err != nil {
			return err
		}
		*l = posts
	case len(data) > 0 && data[0] == '{':
		var wrapped struct {
			Posts json.RawMessage `json:"posts"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return err
		}
		inner := bytes.TrimSpace(wrapped.Posts)
		if len(inner) > 0 && inner[0] == '[' {
			var posts []models.Post
			if err := json.Unmarshal(inner, &posts); err != nil {
				return err
			}
			*l = posts
		}
	}
	return nil
}

func (l postList) posts() []models.Post {
	if l == nil {
		return []models.Post{}
	}
	return []models.Post(l)
}

// CreatePost publishes a new post. The backend answers {message, post}.
func (c *Client) CreatePost(ctx context.Context, in models.PostInput) (models.Post, error) {
	var out struct {
		Post models.Post `json:"post"`
	}
	err := c.do(ctx, endpoint{
		op:       "createPost",
		method:   http.MethodPost,
		path:     "/api/userpost/addpost",
		fallback: "Post failed",
	}, in, &out)
	return out.Post, err
}

// FetchMyPosts lists the signed-in user's posts.
func (c *Client) FetchMyPosts(ctx context.Context) ([]models.Post, error) {
	var out postList
	err := c.do(ctx, endpoint{
		op:       "fetchUserPosts",
		method:   http.MethodGet,
		path:     "/api/userpost/myposts",
		fallback: "Failed to fetch posts",
	}, nil, &out)
	if err != nil {
		return nil, err
	}
	return out.posts(), nil
}

// FetchAllPosts lists the global feed.
func (c *Client) FetchAllPosts(ctx context.Context) ([]models.Post, error) {
	var out postList
	err := c.do(ctx, endpoint{
		op:       "fetchAllPosts",
		method:   http.MethodGet,
		path:     "/api/userpost/allpost",
		fallback: "Failed to fetch posts",
	}, nil, &out)
	if err != nil {
		return nil, err
	}
	return out.posts(), nil
}

// UpdatePost edits post id and returns it as stored.
func (c *Client) UpdatePost(ctx context.Context, id string, patch models.PostPatch) (models.Post, error) {
	var out models.Post
	err := c.do(ctx, endpoint{
		op:       "updatePost",
		method:   http.MethodPut,
		path:     pathf("/api/userpost/update/%s", id),
		fallback: "Update failed",
	}, patch, &out)
	return out, err
}

// DeletePost removes post id.
func (c *Client) DeletePost(ctx context.Context, id string) error {
	return c.do(ctx, endpoint{
		op:       "deletePost",
		method:   http.MethodDelete,
		path:     pathf("/api/userpost/delete/%s", id),
		fallback: "Delete failed",
	}, nil, nil)
}

// Like toggles the current user's like and returns the updated post.
func (c *Client) Like(ctx context.Context, postID string) (models.Post, error) {
	var out models.Post
	err := c.do(ctx, endpoint{
		op:       "likePost",
		method:   http.MethodPost,
		path:     pathf("/api/interact/like/%s", postID),
		fallback: "Failed to like post",
	}, struct{}{}, &out)
	return out, err
}

// AddComment appends a comment and returns the updated post.
func (c *Client) AddComment(ctx context.Context, postID, text string) (models.Post, error) {
	var out models.Post
	err := c.do(ctx, endpoint{
		op:       "addComment",
		method:   http.MethodPost,
		path:     pathf("/api/interact/comment/%s", postID),
		fallback: "Failed to add comment",
	}, models.CommentInput{Text: text}, &out)
	return out, err
}

// DeleteComment removes a comment and returns the updated post.
func (c *Client) DeleteComment(ctx context.Context, postID, commentID string) (models.Post, error) {
	var out models.Post
	err := c.do(ctx, endpoint{
		op:       "deleteComment",
		method:   http.MethodDelete,
		path:     pathf("/api/interact/comment/%s/delete/%s", postID, commentID),
		fallback: "Failed to delete comment",
	}, nil, &out)
	return out, err
}
