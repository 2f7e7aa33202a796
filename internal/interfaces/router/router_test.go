package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	authsvc "estates-backend/internal/application/auth"
	"estates-backend/internal/application/notifications"
	"estates-backend/internal/config"
	"estates-backend/internal/domain"
	"estates-backend/internal/pkg/constants"
	"estates-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type client struct {
	t      *testing.T
	app    *fiber.App
	cookie string
}

func (c *client) do(method, path string, body interface{}) (int, map[string]interface{}) {
	c.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}
	resp, err := c.app.Test(req, 5000)
	require.NoError(c.t, err)
	for _, sc := range resp.Header.Values("Set-Cookie") {
		if strings.HasPrefix(sc, "estates.sid=s:") {
			c.cookie = strings.SplitN(sc, ";", 2)[0]
		}
	}
	var out map[string]interface{}
	b, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(b, &out)
	return resp.StatusCode, out
}

func seedUser(t *testing.T, db *gorm.DB, email, role string) {
	t.Helper()
	hash, err := authsvc.HashPassword("password123")
	require.NoError(t, err)
	require.NoError(t, db.Create(&domain.User{Fullname: role, Email: email, PasswordHash: hash, Role: role}).Error)
}

func setupServer(t *testing.T) (*Server, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	rdb, _ := testutil.NewRedis(t)
	seedUser(t, db, "agent@example.com", constants.Agent)
	seedUser(t, db, "admin@example.com", constants.Admin)
	seedUser(t, db, "client@example.com", constants.Customer)

	cfg := &config.Config{Env: "test", NotifyTimeout: time.Second, HealthAdminKey: "k"}
	srv, err := CreateApp(cfg, Options{DB: db, Redis: rdb})
	require.NoError(t, err)
	require.NotNil(t, srv.Dispatcher)
	return srv, db
}

func login(t *testing.T, srv *Server, email string) *client {
	t.Helper()
	c := &client{t: t, app: srv.App}
	status, out := c.do("POST", "/api/v1/auth/login", map[string]string{"email": email, "password": "password123"})
	require.Equal(t, fiber.StatusOK, status, out)
	require.NotEmpty(t, c.cookie)
	return c
}

func dataOf(out map[string]interface{}) map[string]interface{} {
	d, _ := out["data"].(map[string]interface{})
	return d
}

func TestEndToEnd_ListingReviewAndEnquiry(t *testing.T) {
	srv, _ := setupServer(t)
	agent := login(t, srv, "agent@example.com")
	admin := login(t, srv, "admin@example.com")
	cust := login(t, srv, "client@example.com")
	anon := &client{t: t, app: srv.App}

	status, out := agent.do("POST", "/api/v1/listings", map[string]interface{}{
		"title":   "Villa A",
		"price":   5000000,
		"images":  []string{"a.jpg"},
		"address": "Palm Jumeirah",
		"submit":  true,
	})
	require.Equal(t, fiber.StatusCreated, status, out)
	listingID, _ := dataOf(out)["listing_id"].(string)
	base := "/api/v1/listings/" + listingID

	status, _ = agent.do("POST", base+"/approve", nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, out = admin.do("POST", base+"/approve", nil)
	require.Equal(t, fiber.StatusOK, status, out)
	status, out = agent.do("POST", base+"/publish", nil)
	require.Equal(t, fiber.StatusOK, status, out)
	assert.Equal(t, true, dataOf(out)["published"])

	status, out = anon.do("GET", "/api/v1/listings/public", nil)
	require.Equal(t, fiber.StatusOK, status)
	items, _ := out["data"].([]interface{})
	assert.Len(t, items, 1)

	status, out = cust.do("POST", "/api/v1/engagements", map[string]interface{}{
		"listing_id": listingID,
		"email":      "cara@example.com",
		"message":    "Is the villa still available?",
	})
	require.Equal(t, fiber.StatusCreated, status, out)
	engagementID, _ := dataOf(out)["engagement_id"].(string)

	status, out = agent.do("POST", "/api/v1/engagements/"+engagementID+"/respond", map[string]string{
		"decision":         "respond",
		"response_message": "Yes, viewings on Monday",
	})
	require.Equal(t, fiber.StatusOK, status, out)
	assert.Equal(t, "responded", dataOf(out)["status"])

	status, out = admin.do("POST", "/api/v1/engagements/"+engagementID+"/respond", map[string]string{"decision": "respond"})
	assert.Equal(t, fiber.StatusConflict, status)

	srv.Dispatcher.Wait()
	status, out = admin.do("GET", "/api/v1/notifications/recent", nil)
	require.Equal(t, fiber.StatusOK, status)
	feed, _ := out["data"].([]interface{})
	types := make([]string, 0, len(feed))
	for _, raw := range feed {
		ev, _ := raw.(map[string]interface{})
		types = append(types, ev["type"].(string))
	}
	assert.ElementsMatch(t, []string{
		string(notifications.ListingSubmitted),
		string(notifications.ListingApproved),
		string(notifications.EngagementCreated),
		string(notifications.EngagementResponded),
	}, types)

	status, _ = agent.do("GET", "/api/v1/notifications/recent", nil)
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestEndToEnd_SessionRequiredAndHealth(t *testing.T) {
	srv, _ := setupServer(t)
	anon := &client{t: t, app: srv.App}

	status, _ := anon.do("GET", "/api/v1/listings", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, out := anon.do("POST", "/api/v1/auth/login", map[string]string{"email": "agent@example.com", "password": "nope"})
	assert.Equal(t, fiber.StatusUnauthorized, status, out)

	status, out = anon.do("GET", "/health/json", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "estates-api", out["service"])

	require.NoError(t, srv.Shutdown(context.Background()))
}
