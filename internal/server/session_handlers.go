package server

import (
	"snapfeed/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Register creates an account without signing in.
func (s *Server) Register(c *fiber.Ctx) error {
	var in models.RegisterInput
	if !parseBody(c, &in) {
		return nil
	}
	profile, err := s.sessions.Register(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(profile)
}

// Login signs in with email and password.
func (s *Server) Login(c *fiber.Ctx) error {
	var in models.LoginInput
	if !parseBody(c, &in) {
		return nil
	}
	cu, err := s.sessions.Login(c.UserContext(), in.Email, in.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(cu)
}

// RefreshSession revalidates the backend session cookie.
func (s *Server) RefreshSession(c *fiber.Ctx) error {
	cu, err := s.sessions.RefreshSession(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(cu)
}

// Logout clears the session.
func (s *Server) Logout(c *fiber.Ctx) error {
	s.sessions.Logout()
	return c.SendStatus(fiber.StatusNoContent)
}

// ClearSessionError dismisses the session error.
func (s *Server) ClearSessionError(c *fiber.Ctx) error {
	s.sessions.ClearError()
	return c.SendStatus(fiber.StatusNoContent)
}

// UpdateProfile patches the signed-in user.
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var patch models.ProfilePatch
	if !parseBody(c, &patch) {
		return nil
	}
	res, err := s.sessions.UpdateProfile(c.UserContext(), patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// DeleteAccount deletes the signed-in account and logs out.
func (s *Server) DeleteAccount(c *fiber.Ctx) error {
	if err := s.sessions.DeleteAccount(c.UserContext()); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SearchUsers lists users whose username contains ?q.
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	users, err := s.directory.Search(c.UserContext(), c.Query("q"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"users": users})
}
