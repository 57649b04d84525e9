package server

import (
	"sort"

	"snapfeed/internal/store"

	"github.com/gofiber/fiber/v2"
)

// stateResponse is the body of GET /api/state and POST /api/dispatch.
type stateResponse struct {
	Seq           uint64          `json:"seq"`
	Authenticated bool            `json:"authenticated"`
	Phase         store.Phase     `json:"phase"`
	State         store.RootState `json:"state"`
}

func (s *Server) snapshot() stateResponse {
	// Seq is read first; the state can only be as new or newer.
	seq := s.store.Seq()
	state := s.store.GetState()
	return stateResponse{
		Seq:           seq,
		Authenticated: store.IsAuthenticated(state),
		Phase:         state.User.Phase(),
		State:         state,
	}
}

// GetState returns the current state tree.
func (s *Server) GetState(c *fiber.Ctx) error {
	return c.JSON(s.snapshot())
}

// Dispatch decodes a {type, payload} action and reduces it into the store.
func (s *Server) Dispatch(c *fiber.Ctx) error {
	var action store.Action
	if !parseBody(c, &action) {
		return nil
	}
	intent, err := store.DecodeAction(action)
	if err != nil {
		return respondError(c, err)
	}
	s.store.Dispatch(intent)
	return c.JSON(s.snapshot())
}

// GetIntentTypes lists the action types /api/dispatch accepts.
func (s *Server) GetIntentTypes(c *fiber.Ctx) error {
	types := store.IntentTypes()
	sort.Strings(types)
	return c.JSON(fiber.Map{"types": types})
}

// GetFeatureFlags returns the flags evaluated for the signed-in user.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"flags": s.flags.Snapshot(store.CurrentUserID(s.store.GetState())),
	})
}
