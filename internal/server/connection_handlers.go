package server

import (
	"strings"

	"weave/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SendConnectionRequest handles POST /api/connections?recipientId=
func (s *Server) SendConnectionRequest(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	recipientID := c.QueryInt("recipientId")
	if recipientID <= 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid recipient ID"))
	}

	conn, err := s.connectionSvc.SendRequest(c.Context(), userID, uint(recipientID))
	if err != nil {
		return respondWithAppError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(conn)
}

// AcceptConnection handles PUT /api/connections/:id
func (s *Server) AcceptConnection(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	conn, err := s.connectionSvc.Accept(c.Context(), userID, id)
	if err != nil {
		return respondWithAppError(c, err)
	}

	return c.JSON(conn)
}

// RemoveConnection handles DELETE /api/connections/:id. It both rejects a
// pending request and severs an accepted connection.
func (s *Server) RemoveConnection(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if _, err := s.connectionSvc.RemoveOrReject(c.Context(), userID, id); err != nil {
		return respondWithAppError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Connection removed"})
}

// MarkConnectionSeen handles PUT /api/connections/:id/seen
func (s *Server) MarkConnectionSeen(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	conn, err := s.connectionSvc.MarkSeen(c.Context(), userID, id)
	if err != nil {
		return respondWithAppError(c, err)
	}

	return c.JSON(conn)
}

// GetConnections handles GET /api/connections?status=&userId=.
// Without userId it lists the caller's own edges; with userId it lists
// another user's edges restricted to accepted ones.
func (s *Server) GetConnections(c *fiber.Ctx) error {
	callerID := c.Locals("userID").(uint)

	targetID := callerID
	if qid := c.QueryInt("userId"); qid > 0 {
		targetID = uint(qid)
	}

	// Statuses are stored lowercase; accept any casing from the client.
	status := models.ConnectionStatus(strings.ToLower(c.Query("status")))
	if targetID != callerID {
		// Pending requests and the seen flag are private to the participants.
		status = models.ConnectionStatusAccepted
	}

	conns, err := s.connectionSvc.ListForUser(c.Context(), targetID, status)
	if err != nil {
		return respondWithAppError(c, err)
	}

	return c.JSON(conns)
}

// GetSuggestions handles GET /api/suggestions?limit=. An absent or
// non-positive limit falls back to the configured default. The response
// carries public identity projections only; scores stay internal.
func (s *Server) GetSuggestions(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	limit := c.QueryInt("limit", 0)
	if limit <= 0 {
		limit = s.config.SuggestionMax
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	users, err := s.suggestionSvc.Suggestions(c.Context(), userID, limit)
	if err != nil {
		return respondWithAppError(c, err)
	}

	summaries := make([]models.UserSummary, len(users))
	for i := range users {
		summaries[i] = users[i].Summary()
	}
	return c.JSON(summaries)
}
