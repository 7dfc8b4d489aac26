package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"weave/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserApp(s *Server, userID uint) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", userID)
		return c.Next()
	})
	app.Get("/users/me", s.GetMyProfile)
	app.Put("/users/me", s.UpdateMyProfile)
	app.Get("/users", s.GetAllUsers)
	app.Get("/users/:id", s.GetUserProfile)
	return app
}

func TestUpdateMyProfile_PartialUpdateRecomputesCompleteness(t *testing.T) {
	t.Parallel()

	s, db := setupHandlerTestServer(t)

	// Bare account: no names, no hobbies.
	user := models.User{Email: "partial@example.com", Password: "pw"}
	require.NoError(t, db.Create(&user).Error)

	app := newUserApp(s, user.ID)

	putProfile := func(payload fiber.Map) models.User {
		body, err := json.Marshal(payload)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPut, "/users/me", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var updated models.User
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
		return updated
	}

	// Names alone are not enough.
	updated := putProfile(fiber.Map{"first_name": "Ada", "last_name": "Lovelace"})
	require.NotNil(t, updated.FirstName)
	assert.Equal(t, "Ada", *updated.FirstName)
	assert.False(t, updated.ProfileComplete)

	// Adding a hobby completes the profile; earlier fields persist.
	updated = putProfile(fiber.Map{"hobbies": "mathematics,chess"})
	require.NotNil(t, updated.FirstName)
	assert.Equal(t, "Ada", *updated.FirstName)
	assert.True(t, updated.ProfileComplete)
}

func TestUpdateMyProfile_IgnoresClientProfileComplete(t *testing.T) {
	t.Parallel()

	s, db := setupHandlerTestServer(t)
	user := models.User{Email: "sneaky@example.com", Password: "pw"}
	require.NoError(t, db.Create(&user).Error)

	app := newUserApp(s, user.ID)

	body := []byte(`{"bio":"hello","profile_complete":true}`)
	req := httptest.NewRequest(http.MethodPut, "/users/me", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated models.User
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
	assert.False(t, updated.ProfileComplete, "completeness is derived, never client-set")
}

func TestGetUserProfile_PublicProjectionOnly(t *testing.T) {
	t.Parallel()

	s, db := setupHandlerTestServer(t)
	viewer := createHandlerTestUser(t, db, "viewer@example.com")
	target := createHandlerTestUser(t, db, "target@example.com")

	app := newUserApp(s, viewer.ID)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/users/%d", target.ID), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var raw map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.Equal(t, float64(target.ID), raw["id"])
	assert.NotContains(t, raw, "email")
	assert.NotContains(t, raw, "hobbies")
}

func TestGetUserProfile_NotFound(t *testing.T) {
	t.Parallel()

	s, db := setupHandlerTestServer(t)
	viewer := createHandlerTestUser(t, db, "nf-viewer@example.com")

	app := newUserApp(s, viewer.ID)
	req := httptest.NewRequest(http.MethodGet, "/users/999999", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetAllUsers_Paginates(t *testing.T) {
	t.Parallel()

	s, db := setupHandlerTestServer(t)
	viewer := createHandlerTestUser(t, db, "page-viewer@example.com")
	for i := 0; i < 3; i++ {
		createHandlerTestUser(t, db, fmt.Sprintf("page-%d@example.com", i))
	}

	app := newUserApp(s, viewer.ID)

	req := httptest.NewRequest(http.MethodGet, "/users?limit=2&offset=0", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page []models.UserSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Len(t, page, 2)
}
