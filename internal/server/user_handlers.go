package server

import (
	"context"
	"errors"
	"time"

	"weave/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetAllUsers handles GET /api/users
func (s *Server) GetAllUsers(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	page := parsePagination(c, 100)

	users, err := s.userRepo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		// Check for timeout
		if errors.Is(err, context.DeadlineExceeded) {
			return c.Status(fiber.StatusGatewayTimeout).JSON(fiber.Map{
				"error": "Request timeout",
			})
		}
		return respondWithAppError(c, err)
	}

	summaries := make([]models.UserSummary, len(users))
	for i := range users {
		summaries[i] = users[i].Summary()
	}
	return c.JSON(summaries)
}

// GetUserProfile handles GET /api/users/:id
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	user, err := s.userRepo.GetByID(c.Context(), id)
	if err != nil {
		return respondWithAppError(c, err)
	}

	return c.JSON(user.Summary())
}

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	user, err := s.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		return respondWithAppError(c, err)
	}

	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/users/me. Only fields present in the
// request body are written; ProfileComplete is recomputed afterwards and
// never accepted from the client.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	ctx := c.Context()
	userID := c.Locals("userID").(uint)

	var req struct {
		FirstName      *string `json:"first_name"`
		LastName       *string `json:"last_name"`
		Profession     *string `json:"profession"`
		Bio            *string `json:"bio"`
		NativeLanguage *string `json:"native_language"`
		Hobbies        *string `json:"hobbies"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return respondWithAppError(c, err)
	}

	if req.FirstName != nil {
		user.FirstName = req.FirstName
	}
	if req.LastName != nil {
		user.LastName = req.LastName
	}
	if req.Profession != nil {
		user.Profession = req.Profession
	}
	if req.Bio != nil {
		user.Bio = req.Bio
	}
	if req.NativeLanguage != nil {
		user.NativeLanguage = req.NativeLanguage
	}
	if req.Hobbies != nil {
		user.Hobbies = req.Hobbies
	}
	user.ProfileComplete = user.ComputeProfileComplete()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return respondWithAppError(c, err)
	}

	return c.JSON(user)
}
