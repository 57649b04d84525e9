package server

import (
	"io"
	"strings"

	"snapfeed/internal/models"
	"snapfeed/internal/store"

	"github.com/gofiber/fiber/v2"
)

// CreatePost publishes a post. A multipart body may carry the image as an
// "image" file part; it is encoded to a data URL before sending.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return s.createPostWithUpload(c)
	}

	var in models.PostInput
	if !parseBody(c, &in) {
		return nil
	}
	post, err := s.posts.Create(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

func (s *Server) createPostWithUpload(c *fiber.Ctx) error {
	in := models.PostInput{Title: c.FormValue("title"), Caption: c.FormValue("caption")}

	file, err := c.FormFile("image")
	if err != nil {
		return respondError(c, models.NewValidationError("No file uploaded"))
	}
	if file.Size > s.config.ImageMaxUploadBytes() {
		return respondError(c, models.NewValidationError("File too large"))
	}
	f, err := file.Open()
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	defer func() { _ = f.Close() }()
	content, err := io.ReadAll(io.LimitReader(f, s.config.ImageMaxUploadBytes()+1))
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}

	post, err := s.posts.CreateWithImage(c.UserContext(), in, content, file.Header.Get(fiber.HeaderContentType))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// RefreshPosts reloads the user's posts and the feed.
func (s *Server) RefreshPosts(c *fiber.Ctx) error {
	if err := s.posts.Refresh(c.UserContext()); err != nil {
		return respondError(c, err)
	}
	return c.JSON(s.snapshot())
}

// FetchMyPosts reloads the signed-in user's posts. ?author filters the
// result by author username.
func (s *Server) FetchMyPosts(c *fiber.Ctx) error {
	posts, err := s.posts.FetchMine(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"posts": authorFilter(c, posts)})
}

// FetchFeed reloads the global feed. ?author filters the result by author
// username.
func (s *Server) FetchFeed(c *fiber.Ctx) error {
	posts, err := s.posts.FetchFeed(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"posts": authorFilter(c, posts)})
}

// authorFilter applies ?author when the parameter is given at all; an empty
// value still drops posts whose author is a bare id.
func authorFilter(c *fiber.Ctx, posts []models.Post) []models.Post {
	if !c.Context().QueryArgs().Has("author") {
		return posts
	}
	return store.FilterByAuthor(posts, c.Query("author"))
}

// UpdatePost edits a post.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, ok := param(c, "id")
	if !ok {
		return nil
	}
	var patch models.PostPatch
	if !parseBody(c, &patch) {
		return nil
	}
	post, err := s.posts.Update(c.UserContext(), id, patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// DeletePost deletes a post.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, ok := param(c, "id")
	if !ok {
		return nil
	}
	if err := s.posts.Delete(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// LikePost toggles the signed-in user's like.
func (s *Server) LikePost(c *fiber.Ctx) error {
	id, ok := param(c, "id")
	if !ok {
		return nil
	}
	post, err := s.posts.Like(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"post":  post,
		"liked": store.LikedBy(post, store.CurrentUserID(s.store.GetState())),
		"likes": store.LikeCount(post),
	})
}

// AddComment comments on a post.
func (s *Server) AddComment(c *fiber.Ctx) error {
	id, ok := param(c, "id")
	if !ok {
		return nil
	}
	var in models.CommentInput
	if !parseBody(c, &in) {
		return nil
	}
	post, err := s.posts.AddComment(c.UserContext(), id, in.Text)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// DeleteComment removes one of the signed-in user's comments. A comment the
// store already knows to be someone else's is refused without a backend call.
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, ok := param(c, "id")
	if !ok {
		return nil
	}
	commentID, ok := param(c, "commentId")
	if !ok {
		return nil
	}
	if comment, found := s.knownComment(id, commentID); found {
		userID := store.CurrentUserID(s.store.GetState())
		if userID != "" && !store.CanDeleteComment(comment, userID) {
			return respondError(c, models.NewForbiddenError("You can only delete your own comments"))
		}
	}
	post, err := s.posts.DeleteComment(c.UserContext(), id, commentID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

func (s *Server) knownComment(postID, commentID string) (models.Comment, bool) {
	post, ok := store.FindPost(s.store.GetState().UserPost, postID)
	if !ok {
		return models.Comment{}, false
	}
	for _, cm := range post.Comments {
		if cm.ID == commentID {
			return cm, true
		}
	}
	return models.Comment{}, false
}

// ClearPostError dismisses the post error.
func (s *Server) ClearPostError(c *fiber.Ctx) error {
	s.posts.ClearError()
	return c.SendStatus(fiber.StatusNoContent)
}

// ResetCreatePost clears the create flow's loading and error.
func (s *Server) ResetCreatePost(c *fiber.Ctx) error {
	s.posts.ResetCreate()
	return c.SendStatus(fiber.StatusNoContent)
}
