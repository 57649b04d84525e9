package service

import (
	"context"
	"strings"

	"snapfeed/internal/gateway"
	"snapfeed/internal/media"
	"snapfeed/internal/models"
	"snapfeed/internal/store"

	"golang.org/x/sync/errgroup"
)

// PostService drives the post and interaction flows.
type PostService struct {
	posts   gateway.PostGateway
	store   StateStore
	encoder *media.Encoder
}

// NewPostService creates a new PostService. A nil encoder uses the default
// upload limit.
func NewPostService(posts gateway.PostGateway, st StateStore, encoder *media.Encoder) *PostService {
	if encoder == nil {
		encoder = media.NewEncoder(0)
	}
	return &PostService{posts: posts, store: st, encoder: encoder}
}

// perform dispatches the start intent for op, runs call and dispatches the
// intent call returns on success or the failure intent otherwise.
func (s *PostService) perform(ctx context.Context, op store.PostOp, fields map[string]interface{}, call func(context.Context) (store.Intent, error)) error {
	s.store.Dispatch(store.PostStart{Op: op})
	var success store.Intent
	err := track(ctx, "posts."+op.String(), fields, func(ctx context.Context) error {
		var err error
		success, err = call(ctx)
		return err
	})
	if err != nil {
		s.store.Dispatch(store.PostFailure{Op: op, Message: models.UserMessage(err)})
		return err
	}
	s.store.Dispatch(success)
	return nil
}

// Create publishes a post and prepends it to the signed-in user's list.
func (s *PostService) Create(ctx context.Context, in models.PostInput) (models.Post, error) {
	var created models.Post
	err := s.perform(ctx, store.OpCreate, map[string]interface{}{"title": in.Title}, func(ctx context.Context) (store.Intent, error) {
		var err error
		created, err = s.posts.CreatePost(ctx, in)
		return store.PostCreated{Post: created}, err
	})
	if err != nil {
		return models.Post{}, err
	}
	return created, nil
}

// CreateWithImage encodes an uploaded image into the post before creating it.
// An image that fails validation is reported without touching the store.
func (s *PostService) CreateWithImage(ctx context.Context, in models.PostInput, content []byte, contentType string) (models.Post, error) {
	url, err := s.encoder.DataURL(content, contentType)
	if err != nil {
		return models.Post{}, err
	}
	in.Image = url
	return s.Create(ctx, in)
}

// FetchMine replaces the signed-in user's posts.
func (s *PostService) FetchMine(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	err := s.perform(ctx, store.OpFetchMine, nil, func(ctx context.Context) (store.Intent, error) {
		var err error
		posts, err = s.posts.FetchMyPosts(ctx)
		return store.MyPostsFetched{Posts: posts}, err
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// FetchFeed replaces the global feed.
func (s *PostService) FetchFeed(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	err := s.perform(ctx, store.OpFetchAll, nil, func(ctx context.Context) (store.Intent, error) {
		var err error
		posts, err = s.posts.FetchAllPosts(ctx)
		return store.FeedFetched{Posts: posts}, err
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// Refresh fetches the user's posts and the feed concurrently. Each family
// records its own outcome; the first error is returned.
func (s *PostService) Refresh(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		_, err := s.FetchMine(ctx)
		return err
	})
	g.Go(func() error {
		_, err := s.FetchFeed(ctx)
		return err
	})
	return g.Wait()
}

// Update edits a post and replaces it wherever it appears.
func (s *PostService) Update(ctx context.Context, id string, patch models.PostPatch) (models.Post, error) {
	if strings.TrimSpace(id) == "" {
		return models.Post{}, models.NewValidationError("No post selected")
	}
	var updated models.Post
	err := s.perform(ctx, store.OpUpdate, map[string]interface{}{"post_id": id}, func(ctx context.Context) (store.Intent, error) {
		var err error
		updated, err = s.posts.UpdatePost(ctx, id, patch)
		return store.PostUpdated{Post: updated}, err
	})
	if err != nil {
		return models.Post{}, err
	}
	return updated, nil
}

// Delete removes a post from both collections.
func (s *PostService) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return models.NewValidationError("No post selected")
	}
	return s.perform(ctx, store.OpDelete, map[string]interface{}{"post_id": id}, func(ctx context.Context) (store.Intent, error) {
		return store.PostDeleted{ID: id}, s.posts.DeletePost(ctx, id)
	})
}

// Like toggles the signed-in user's like on a post.
func (s *PostService) Like(ctx context.Context, postID string) (models.Post, error) {
	var liked models.Post
	err := s.perform(ctx, store.OpLike, map[string]interface{}{"post_id": postID}, func(ctx context.Context) (store.Intent, error) {
		var err error
		liked, err = s.posts.Like(ctx, postID)
		return store.PostLiked{Post: liked}, err
	})
	if err != nil {
		return models.Post{}, err
	}
	return liked, nil
}

// AddComment comments on a post. Blank text is rejected before anything is
// dispatched.
func (s *PostService) AddComment(ctx context.Context, postID, text string) (models.Post, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Post{}, models.NewValidationError("Comment cannot be empty")
	}
	var commented models.Post
	err := s.perform(ctx, store.OpAddComment, map[string]interface{}{"post_id": postID}, func(ctx context.Context) (store.Intent, error) {
		var err error
		commented, err = s.posts.AddComment(ctx, postID, text)
		return store.CommentAdded{Post: commented}, err
	})
	if err != nil {
		return models.Post{}, err
	}
	return commented, nil
}

// DeleteComment removes a comment from a post.
func (s *PostService) DeleteComment(ctx context.Context, postID, commentID string) (models.Post, error) {
	var uncommented models.Post
	fields := map[string]interface{}{"post_id": postID, "comment_id": commentID}
	err := s.perform(ctx, store.OpDeleteComment, fields, func(ctx context.Context) (store.Intent, error) {
		var err error
		uncommented, err = s.posts.DeleteComment(ctx, postID, commentID)
		return store.CommentDeleted{Post: uncommented}, err
	})
	if err != nil {
		return models.Post{}, err
	}
	return uncommented, nil
}

// ClearError dismisses the post error.
func (s *PostService) ClearError() {
	s.store.Dispatch(store.ClearPostError{})
}

// ResetCreate clears the create flow's loading and error.
func (s *PostService) ResetCreate() {
	s.store.Dispatch(store.ResetCreatePost{})
}
