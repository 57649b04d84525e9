package testutil

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"snapfeed/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"golang.org/x/crypto/bcrypt"
)

const sessionCookie = "token"

type fakeUser struct {
	profile      models.UserProfile
	passwordHash []byte
}

func hashPassword(password string) []byte {
	// MinCost keeps the suite fast; the hash only guards test fixtures.
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return hash
}

func (u *fakeUser) checkPassword(password string) bool {
	return bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)) == nil
}

type injectedFailure struct {
	status  int
	message string
}

// FakeBackend emulates the REST backend in memory: cookie sessions, users,
// posts, likes and comments. Failures can be injected per route.
type FakeBackend struct {
	Server *httptest.Server

	mu       sync.Mutex
	users    map[string]*fakeUser
	sessions map[string]string
	posts    []models.Post
	failures map[string]injectedFailure
	requests []string
}

// NewFakeBackend starts a backend that is closed when t finishes.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	b := &FakeBackend{
		users:    make(map[string]*fakeUser),
		sessions: make(map[string]string),
		failures: make(map[string]injectedFailure),
	}
	b.Server = httptest.NewServer(adaptor.FiberApp(b.app()))
	t.Cleanup(b.Server.Close)
	return b
}

// URL is the backend base URL.
func (b *FakeBackend) URL() string { return b.Server.URL }

// Fail makes the next request matching "METHOD /path" answer status with
// message. An empty message sends no body.
func (b *FakeBackend) Fail(method, path string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method+" "+path] = injectedFailure{status: status, message: message}
}

// Requests returns every "METHOD /path" served so far.
func (b *FakeBackend) Requests() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requests...)
}

// ExpireSessions forgets every issued session cookie.
func (b *FakeBackend) ExpireSessions() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions = make(map[string]string)
}

// SeedUser registers a user directly and returns its profile.
func (b *FakeBackend) SeedUser(username, email, password string) models.UserProfile {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addUserLocked(username, email, password)
}

// SeedPost stores p as if its author had created it.
func (b *FakeBackend) SeedPost(p models.Post) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.posts = append([]models.Post{p}, b.posts...)
}

// Post returns the stored copy of post id.
func (b *FakeBackend) Post(id string) (models.Post, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.posts {
		if p.ID == id {
			return p, true
		}
	}
	return models.Post{}, false
}

func (b *FakeBackend) addUserLocked(username, email, password string) models.UserProfile {
	profile := models.UserProfile{ID: NewID(), Username: username, Email: email}
	b.users[profile.ID] = &fakeUser{profile: profile, passwordHash: hashPassword(password)}
	return profile
}

func (b *FakeBackend) app() *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(b.record)

	app.Post("/api/user/register", b.register)
	app.Post("/api/user/login", b.login)
	app.Get("/user/current-user", b.auth, b.currentUser)
	app.Put("/api/user/updateuser/:id", b.auth, b.updateUser)
	app.Delete("/api/user/delete/:id", b.auth, b.deleteUser)
	app.Get("/api/user/all", b.auth, b.listUsers)

	app.Post("/api/userpost/addpost", b.auth, b.addPost)
	app.Get("/api/userpost/myposts", b.auth, b.myPosts)
	app.Get("/api/userpost/allpost", b.allPosts)
	app.Put("/api/userpost/update/:id", b.auth, b.updatePost)
	app.Delete("/api/userpost/delete/:id", b.auth, b.deletePost)

	app.Post("/api/interact/like/:id", b.auth, b.like)
	app.Post("/api/interact/comment/:id", b.auth, b.addComment)
	app.Delete("/api/interact/comment/:id/delete/:cid", b.auth, b.deleteComment)
	return app
}

func (b *FakeBackend) record(c *fiber.Ctx) error {
	key := c.Method() + " " + c.Path()
	b.mu.Lock()
	b.requests = append(b.requests, key)
	f, failing := b.failures[key]
	delete(b.failures, key)
	b.mu.Unlock()

	if failing {
		if f.message == "" {
			return c.SendStatus(f.status)
		}
		return c.Status(f.status).JSON(fiber.Map{"message": f.message})
	}
	return c.Next()
}

func (b *FakeBackend) auth(c *fiber.Ctx) error {
	b.mu.Lock()
	uid, ok := b.sessions[c.Cookies(sessionCookie)]
	if ok {
		_, ok = b.users[uid]
	}
	b.mu.Unlock()
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Unauthorized"})
	}
	c.Locals("uid", uid)
	return c.Next()
}

func uidOf(c *fiber.Ctx) string {
	uid, _ := c.Locals("uid").(string)
	return uid
}

func (b *FakeBackend) register(c *fiber.Ctx) error {
	var in models.RegisterInput
	if err := c.BodyParser(&in); err != nil || in.Email == "" || in.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "All fields are required"})
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if strings.EqualFold(u.profile.Email, in.Email) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "User already exists"})
		}
	}
	profile := b.addUserLocked(in.Username, in.Email, in.Password)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "User registered successfully", "user": profile})
}

func (b *FakeBackend) login(c *fiber.Ctx) error {
	var in models.LoginInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request"})
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if strings.EqualFold(u.profile.Email, in.Email) && u.checkPassword(in.Password) {
			token := NewID()
			b.sessions[token] = u.profile.ID
			c.Cookie(&fiber.Cookie{Name: sessionCookie, Value: token, Path: "/", HTTPOnly: true})
			return c.JSON(models.CurrentUser{User: u.profile, Message: "Login successful"})
		}
	}
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid credentials"})
}

func (b *FakeBackend) currentUser(c *fiber.Ctx) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return c.JSON(b.users[uidOf(c)].profile)
}

func (b *FakeBackend) updateUser(c *fiber.Ctx) error {
	if c.Params("id") != uidOf(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "You can only update your own account"})
	}
	var patch models.ProfilePatch
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request"})
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.users[uidOf(c)]
	merged, err := u.profile.Merge(models.UserProfile{
		Username:       patch.Username,
		Email:          patch.Email,
		ProfilePicture: patch.ProfilePicture,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	u.profile = merged
	if patch.Password != "" {
		u.passwordHash = hashPassword(patch.Password)
	}
	return c.JSON(models.ProfileUpdate{Message: "User updated successfully", User: u.profile})
}

func (b *FakeBackend) deleteUser(c *fiber.Ctx) error {
	if c.Params("id") != uidOf(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "You can only delete your own account"})
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.users, uidOf(c))
	delete(b.sessions, c.Cookies(sessionCookie))
	return c.JSON(fiber.Map{"message": "User deleted"})
}

func (b *FakeBackend) listUsers(c *fiber.Ctx) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.UserProfile, 0, len(b.users))
	for _, u := range b.users {
		out = append(out, u.profile)
	}
	return c.JSON(out)
}

func (b *FakeBackend) addPost(c *fiber.Ctx) error {
	var in models.PostInput
	if err := c.BodyParser(&in); err != nil || strings.TrimSpace(in.Title) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Title is required"})
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p := models.Post{
		ID:       NewID(),
		Title:    in.Title,
		Caption:  in.Caption,
		Image:    in.Image,
		UserID:   models.RefProfile(b.users[uidOf(c)].profile),
		Likes:    []models.LikeEntry{},
		Comments: []models.Comment{},
	}
	b.posts = append([]models.Post{p}, b.posts...)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Post created", "post": p})
}

func (b *FakeBackend) myPosts(c *fiber.Ctx) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []models.Post{}
	for _, p := range b.posts {
		if p.UserID.UserID() == uidOf(c) {
			out = append(out, p)
		}
	}
	return c.JSON(fiber.Map{"posts": out})
}

func (b *FakeBackend) allPosts(c *fiber.Ctx) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return c.JSON(append([]models.Post{}, b.posts...))
}

// mutatePost runs fn on the stored post and answers with the result.
func (b *FakeBackend) mutatePost(c *fiber.Ctx, ownerOnly bool, fn func(*models.Post) *injectedFailure) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.posts {
		if b.posts[i].ID != c.Params("id") {
			continue
		}
		if ownerOnly && b.posts[i].UserID.UserID() != uidOf(c) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "Not your post"})
		}
		if f := fn(&b.posts[i]); f != nil {
			return c.Status(f.status).JSON(fiber.Map{"message": f.message})
		}
		return c.JSON(b.posts[i])
	}
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Post not found"})
}

func (b *FakeBackend) updatePost(c *fiber.Ctx) error {
	var patch models.PostPatch
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request"})
	}
	return b.mutatePost(c, true, func(p *models.Post) *injectedFailure {
		if patch.Title != "" {
			p.Title = patch.Title
		}
		if patch.Caption != "" {
			p.Caption = patch.Caption
		}
		if patch.Image != "" {
			p.Image = patch.Image
		}
		return nil
	})
}

func (b *FakeBackend) deletePost(c *fiber.Ctx) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, p := range b.posts {
		if p.ID == c.Params("id") {
			if p.UserID.UserID() != uidOf(c) {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "Not your post"})
			}
			b.posts = append(b.posts[:i:i], b.posts[i+1:]...)
			return c.JSON(fiber.Map{"message": "Post deleted"})
		}
	}
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Post not found"})
}

// like toggles; likes are stored as bare ids the way the backend does.
func (b *FakeBackend) like(c *fiber.Ctx) error {
	uid := uidOf(c)
	return b.mutatePost(c, false, func(p *models.Post) *injectedFailure {
		kept := make([]models.LikeEntry, 0, len(p.Likes)+1)
		liked := false
		for _, l := range p.Likes {
			if l.UserID() == uid {
				liked = true
				continue
			}
			kept = append(kept, l)
		}
		if !liked {
			kept = append(kept, models.RefID(uid))
		}
		p.Likes = kept
		return nil
	})
}

func (b *FakeBackend) addComment(c *fiber.Ctx) error {
	var in models.CommentInput
	if err := c.BodyParser(&in); err != nil || strings.TrimSpace(in.Text) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Comment text is required"})
	}
	uid := uidOf(c)
	return b.mutatePost(c, false, func(p *models.Post) *injectedFailure {
		p.Comments = append(append([]models.Comment{}, p.Comments...), models.Comment{
			ID:     NewID(),
			UserID: models.RefProfile(b.users[uid].profile),
			Text:   in.Text,
		})
		return nil
	})
}

func (b *FakeBackend) deleteComment(c *fiber.Ctx) error {
	uid := uidOf(c)
	cid := c.Params("cid")
	return b.mutatePost(c, false, func(p *models.Post) *injectedFailure {
		kept := make([]models.Comment, 0, len(p.Comments))
		for _, cm := range p.Comments {
			if cm.ID == cid {
				if cm.UserID.UserID() != uid {
					return &injectedFailure{status: fiber.StatusForbidden, message: "Not your comment"}
				}
				continue
			}
			kept = append(kept, cm)
		}
		p.Comments = kept
		return nil
	})
}
