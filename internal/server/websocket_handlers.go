package server

import (
	"context"
	"time"

	"snapfeed/internal/models"
	"snapfeed/internal/notifications"
	"snapfeed/internal/observability"
	"snapfeed/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const anonymousSubject = "anonymous"

// IssueWSTicket returns a single-use ticket for opening /ws.
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	subject := store.CurrentUserID(s.store.GetState())
	if subject == "" {
		subject = anonymousSubject
	}
	ticket, expires, err := s.tickets.Issue(subject)
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_at": expires.UTC().Format(time.RFC3339),
	})
}

// WebSocketUpgrade admits websocket upgrades that carry a valid ticket.
func (s *Server) WebSocketUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	subject, err := s.tickets.Redeem(c.Query("ticket"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
	}
	c.Locals("wsSubject", subject)
	c.Locals("correlationID", observability.ExtractCorrelationID(c.UserContext()))
	return c.Next()
}

// WebSocketHandler streams state frames to the client and dispatches the
// actions it sends.
func (s *Server) WebSocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		ctx := context.Background()
		if cid, ok := conn.Locals("correlationID").(string); ok && cid != "" {
			ctx = observability.WithCorrelationID(ctx, cid)
		}

		client, err := s.relay.Hub().Register(ctx, conn)
		if err != nil {
			_ = conn.WriteMessage(websocket.TextMessage, notifications.ErrorFrame(models.NewValidationError(err.Error())))
			_ = conn.Close()
			return
		}

		s.relay.Welcome(client)
		go client.WritePump()
		client.ReadPump()
	})
}
