package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"weave/internal/config"
	"weave/internal/models"
	"weave/internal/repository"
	"weave/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupHandlerTestServer builds a Server over an in-memory sqlite database.
// The Prometheus middleware and Redis are left unset; handlers under test do
// not need them.
func setupHandlerTestServer(t *testing.T) (*Server, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Connection{}))

	userRepo := repository.NewUserRepository(db)
	connRepo := repository.NewConnectionRepository(db)

	s := &Server{
		config: &config.Config{
			JWTSecret:     "handler-test-secret-0123456789abcdef",
			Port:          "0",
			SuggestionMax: service.DefaultSuggestionLimit,
		},
		db:       db,
		userRepo: userRepo,
		connRepo: connRepo,
	}
	s.connectionSvc = service.NewConnectionService(connRepo, userRepo, nil)
	s.suggestionSvc = service.NewSuggestionService(connRepo, userRepo)
	return s, db
}

// newAuthedApp mounts the connection routes behind a stub auth layer that
// pins the caller to userID.
func newAuthedApp(s *Server, userID uint) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", userID)
		return c.Next()
	})
	app.Post("/connections", s.SendConnectionRequest)
	app.Get("/connections", s.GetConnections)
	app.Put("/connections/:id/seen", s.MarkConnectionSeen)
	app.Put("/connections/:id", s.AcceptConnection)
	app.Delete("/connections/:id", s.RemoveConnection)
	app.Get("/suggestions", s.GetSuggestions)
	return app
}

func createHandlerTestUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()
	first := "Test"
	last := "User"
	hobbies := "hiking"
	user := models.User{
		Email:     email,
		Password:  "irrelevant",
		FirstName: &first,
		LastName:  &last,
		Hobbies:   &hobbies,
	}
	user.ProfileComplete = user.ComputeProfileComplete()
	require.NoError(t, db.Create(&user).Error)
	return user
}

func doRequest(t *testing.T, app *fiber.App, method, target string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeConnection(t *testing.T, resp *http.Response) models.Connection {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var conn models.Connection
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&conn))
	return conn
}

func TestSendConnectionRequest_Created(t *testing.T) {
	t.Parallel()

	s, db := setupHandlerTestServer(t)
	author := createHandlerTestUser(t, db, "author@example.com")
	recipient := createHandlerTestUser(t, db, "recipient@example.com")

	app := newAuthedApp(s, author.ID)
	resp := doRequest(t, app, http.MethodPost,
		fmt.Sprintf("/connections?recipientId=%d", recipient.ID))

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	conn := decodeConnection(t, resp)
	assert.Equal(t, author.ID, conn.AuthorID)
	assert.Equal(t, recipient.ID, conn.RecipientID)
	assert.Equal(t, models.ConnectionStatusPending, conn.Status)
	assert.False(t, conn.Seen)
}

func TestSendConnectionRequest_DuplicateEitherDirection(t *testing.T) {
	t.Parallel()

	s, db := setupHandlerTestServer(t)
	author := createHandlerTestUser(t, db, "dup-author@example.com")
	recipient := createHandlerTestUser(t, db, "dup-recipient@example.com")

	authorApp := newAuthedApp(s, author.ID)
	resp := doRequest(t, authorApp, http.MethodPost,
		fmt.Sprintf("/connections?recipientId=%d", recipient.ID))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	// Same direction.
	resp = doRequest(t, authorApp, http.MethodPost,
		fmt.Sprintf("/connections?recipientId=%d", recipient.ID))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	_ = resp.Body.Close()

	// Reverse direction hits the same undirected pair.
	recipientApp := newAuthedApp(s, recipient.ID)
	resp = doRequest(t, recipientApp, http.MethodPost,
		fmt.Sprintf("/connections?recipientId=%d", author.ID))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestSendConnectionRequest_BadInputs(t *testing.T) {
	t.Parallel()

	s, db := setupHandlerTestServer(t)
	author := createHandlerTestUser(t, db, "bad-author@example.com")
	app := newAuthedApp(s, author.ID)

	tests := []struct {
		name     string
		target   string
		expected int
	}{
		{"missing recipient", "/connections", http.StatusBadRequest},
		{"non-numeric recipient", "/connections?recipientId=abc", http.StatusBadRequest},
		{"self request", fmt.Sprintf("/connections?recipientId=%d", author.ID), http.StatusBadRequest},
		{"unknown recipient", "/connections?recipientId=9999", http.StatusNotFound},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			resp := doRequest(t, app, http.MethodPost, tt.target)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expected, resp.StatusCode)
		})
	}
}

func TestAcceptConnection_RecipientOnly(t *testing.T) {
	t.Parallel()

	s, db := setupHandlerTestServer(t)
	author := createHandlerTestUser(t, db, "acc-author@example.com")
	recipient := createHandlerTestUser(t, db, "acc-recipient@example.com")

	authorApp := newAuthedApp(s, author.ID)
	resp := doRequest(t, authorApp, http.MethodPost,
		fmt.Sprintf("/connections?recipientId=%d", recipient.ID))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	conn := decodeConnection(t, resp)

	// The author cannot accept their own request.
	resp = doRequest(t, authorApp, http.MethodPut,
		fmt.Sprintf("/connections/%d", conn.ID))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()

	recipientApp := newAuthedApp(s, recipient.ID)
	resp = doRequest(t, recipientApp, http.MethodPut,
		fmt.Sprintf("/connections/%d", conn.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	accepted := decodeConnection(t, resp)
	assert.Equal(t, models.ConnectionStatusAccepted, accepted.Status)

	// Accepting twice is a state conflict.
	resp = doRequest(t, recipientApp, http.MethodPut,
		fmt.Sprintf("/connections/%d", conn.ID))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestAcceptConnection_NotFound(t *testing.T) {
	t.Parallel()

	s, db := setupHandlerTestServer(t)
	caller := createHandlerTestUser(t, db, "nf-caller@example.com")

	app := newAuthedApp(s, caller.ID)
	resp := doRequest(t, app, http.MethodPut, "/connections/424242")
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMarkConnectionSeen_RecipientOnly(t *testing.T) {
	t.Parallel()

	s, db := setupHandlerTestServer(t)
	author := createHandlerTestUser(t, db, "seen-author@example.com")
	recipient := createHandlerTestUser(t, db, "seen-recipient@example.com")

	authorApp := newAuthedApp(s, author.ID)
	resp := doRequest(t, authorApp, http.MethodPost,
		fmt.Sprintf("/connections?recipientId=%d", recipient.ID))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	conn := decodeConnection(t, resp)

	resp = doRequest(t, authorApp, http.MethodPut,
		fmt.Sprintf("/connections/%d/seen", conn.ID))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()

	recipientApp := newAuthedApp(s, recipient.ID)
	resp = doRequest(t, recipientApp, http.MethodPut,
		fmt.Sprintf("/connections/%d/seen", conn.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	seen := decodeConnection(t, resp)
	assert.True(t, seen.Seen)

	// Marking again is a harmless no-op.
	resp = doRequest(t, recipientApp, http.MethodPut,
		fmt.Sprintf("/connections/%d/seen", conn.ID))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestRemoveConnection_AllowsNewRequest(t *testing.T) {
	t.Parallel()

	s, db := setupHandlerTestServer(t)
	author := createHandlerTestUser(t, db, "rm-author@example.com")
	recipient := createHandlerTestUser(t, db, "rm-recipient@example.com")

	authorApp := newAuthedApp(s, author.ID)
	resp := doRequest(t, authorApp, http.MethodPost,
		fmt.Sprintf("/connections?recipientId=%d", recipient.ID))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	conn := decodeConnection(t, resp)

	// The recipient rejects by deleting the pending request.
	recipientApp := newAuthedApp(s, recipient.ID)
	resp = doRequest(t, recipientApp, http.MethodDelete,
		fmt.Sprintf("/connections/%d", conn.ID))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	// Removal frees the pair for a fresh request, in either direction.
	resp = doRequest(t, recipientApp, http.MethodPost,
		fmt.Sprintf("/connections?recipientId=%d", author.ID))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestRemoveConnection_ThirdPartyForbidden(t *testing.T) {
	t.Parallel()

	s, db := setupHandlerTestServer(t)
	author := createHandlerTestUser(t, db, "3p-author@example.com")
	recipient := createHandlerTestUser(t, db, "3p-recipient@example.com")
	outsider := createHandlerTestUser(t, db, "3p-outsider@example.com")

	authorApp := newAuthedApp(s, author.ID)
	resp := doRequest(t, authorApp, http.MethodPost,
		fmt.Sprintf("/connections?recipientId=%d", recipient.ID))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	conn := decodeConnection(t, resp)

	outsiderApp := newAuthedApp(s, outsider.ID)
	resp = doRequest(t, outsiderApp, http.MethodDelete,
		fmt.Sprintf("/connections/%d", conn.ID))
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestGetConnections_StatusFilterAndPrivacy(t *testing.T) {
	t.Parallel()

	s, db := setupHandlerTestServer(t)
	alice := createHandlerTestUser(t, db, "list-alice@example.com")
	bob := createHandlerTestUser(t, db, "list-bob@example.com")
	carol := createHandlerTestUser(t, db, "list-carol@example.com")

	// alice -> bob accepted, carol -> alice pending.
	aliceApp := newAuthedApp(s, alice.ID)
	resp := doRequest(t, aliceApp, http.MethodPost,
		fmt.Sprintf("/connections?recipientId=%d", bob.ID))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	conn := decodeConnection(t, resp)

	bobApp := newAuthedApp(s, bob.ID)
	resp = doRequest(t, bobApp, http.MethodPut,
		fmt.Sprintf("/connections/%d", conn.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	carolApp := newAuthedApp(s, carol.ID)
	resp = doRequest(t, carolApp, http.MethodPost,
		fmt.Sprintf("/connections?recipientId=%d", alice.ID))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	decodeList := func(resp *http.Response) []models.Connection {
		defer func() { _ = resp.Body.Close() }()
		var conns []models.Connection
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&conns))
		return conns
	}

	// No filter defaults to accepted, so the pending edge stays hidden.
	resp = doRequest(t, aliceApp, http.MethodGet, "/connections")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	unfiltered := decodeList(resp)
	require.Len(t, unfiltered, 1)
	assert.Equal(t, models.ConnectionStatusAccepted, unfiltered[0].Status)

	resp = doRequest(t, aliceApp, http.MethodGet, "/connections?status=pending")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pending := decodeList(resp)
	require.Len(t, pending, 1)
	assert.Equal(t, carol.ID, pending[0].AuthorID)

	// The filter accepts any casing.
	resp = doRequest(t, aliceApp, http.MethodGet, "/connections?status=PENDING")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	upper := decodeList(resp)
	require.Len(t, upper, 1)
	assert.Equal(t, models.ConnectionStatusPending, upper[0].Status)

	// Viewing another user's edges only ever exposes accepted ones, even
	// when pending is asked for explicitly.
	resp = doRequest(t, bobApp, http.MethodGet,
		fmt.Sprintf("/connections?userId=%d&status=pending", alice.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	visible := decodeList(resp)
	require.Len(t, visible, 1)
	assert.Equal(t, models.ConnectionStatusAccepted, visible[0].Status)
}

func TestGetSuggestions_ReturnsPublicProjection(t *testing.T) {
	t.Parallel()

	s, db := setupHandlerTestServer(t)
	seed := createHandlerTestUser(t, db, "sug-seed@example.com")
	bridge := createHandlerTestUser(t, db, "sug-bridge@example.com")
	candidate := createHandlerTestUser(t, db, "sug-candidate@example.com")

	// seed -- bridge -- candidate, both accepted.
	seedApp := newAuthedApp(s, seed.ID)
	resp := doRequest(t, seedApp, http.MethodPost,
		fmt.Sprintf("/connections?recipientId=%d", bridge.ID))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	first := decodeConnection(t, resp)

	bridgeApp := newAuthedApp(s, bridge.ID)
	resp = doRequest(t, bridgeApp, http.MethodPut,
		fmt.Sprintf("/connections/%d", first.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doRequest(t, bridgeApp, http.MethodPost,
		fmt.Sprintf("/connections?recipientId=%d", candidate.ID))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	second := decodeConnection(t, resp)

	candidateApp := newAuthedApp(s, candidate.ID)
	resp = doRequest(t, candidateApp, http.MethodPut,
		fmt.Sprintf("/connections/%d", second.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doRequest(t, seedApp, http.MethodGet, "/suggestions")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer func() { _ = resp.Body.Close() }()

	var raw []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	require.Len(t, raw, 1)
	assert.Equal(t, float64(candidate.ID), raw[0]["id"])
	// Private fields must not leak through the projection.
	assert.NotContains(t, raw[0], "email")
	assert.NotContains(t, raw[0], "bio")
	assert.NotContains(t, raw[0], "hobbies")
}

func TestGetSuggestions_ConfiguredDefaultLimit(t *testing.T) {
	t.Parallel()

	s, db := setupHandlerTestServer(t)
	s.config.SuggestionMax = 1

	seed := createHandlerTestUser(t, db, "lim-seed@example.com")
	bridge := createHandlerTestUser(t, db, "lim-bridge@example.com")
	first := createHandlerTestUser(t, db, "lim-first@example.com")
	second := createHandlerTestUser(t, db, "lim-second@example.com")

	connectAccepted := func(author, recipient uint) {
		resp := doRequest(t, newAuthedApp(s, author), http.MethodPost,
			fmt.Sprintf("/connections?recipientId=%d", recipient))
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		conn := decodeConnection(t, resp)

		resp = doRequest(t, newAuthedApp(s, recipient), http.MethodPut,
			fmt.Sprintf("/connections/%d", conn.ID))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()
	}

	// Two second-degree candidates behind the bridge.
	connectAccepted(seed.ID, bridge.ID)
	connectAccepted(bridge.ID, first.ID)
	connectAccepted(bridge.ID, second.ID)

	decodeSummaries := func(resp *http.Response) []models.UserSummary {
		defer func() { _ = resp.Body.Close() }()
		var summaries []models.UserSummary
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&summaries))
		return summaries
	}

	seedApp := newAuthedApp(s, seed.ID)

	// Without an explicit limit the configured default applies.
	resp := doRequest(t, seedApp, http.MethodGet, "/suggestions")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeSummaries(resp), 1)

	// An explicit limit overrides it.
	resp = doRequest(t, seedApp, http.MethodGet, "/suggestions?limit=2")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeSummaries(resp), 2)
}
