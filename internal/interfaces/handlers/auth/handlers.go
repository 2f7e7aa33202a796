package auth

import (
	"context"
	"errors"

	authsvc "estates-backend/internal/application/auth"
	"estates-backend/internal/middleware"
	"estates-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const userSessionsPrefix = "user_sessions:"

// Handlers holds dependencies for auth endpoints.
type Handlers struct {
	UserFinder authsvc.UserFinder
	Rdb        *redis.Client
	Config     middleware.SessionConfig
}

// Login POST /api/v1/auth/login: authenticate, open a session, track it under user_sessions:<id>.
func (h *Handlers) Login(c *fiber.Ctx) error {
	if h.UserFinder == nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	var req authsvc.LoginInput
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Email and password are required", fiber.StatusBadRequest, nil)
	}
	if req.Email == "" || req.Password == "" {
		return response.Error(c, "Email and password are required", fiber.StatusBadRequest, nil)
	}

	user, err := h.UserFinder.FindByEmailAndPassword(c.UserContext(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, authsvc.ErrEmailPasswordRequired):
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		case errors.Is(err, authsvc.ErrInvalidEmail), errors.Is(err, authsvc.ErrIncorrectPassword):
			return response.Error(c, err.Error(), fiber.StatusUnauthorized, nil)
		default:
			log.Error().Err(err).Msg("auth/login: user lookup failed")
			return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
		}
	}

	sessionID := middleware.RegenerateSessionID(c)
	middleware.SetSessionUser(c, middleware.SessionUser{
		UserID:   user.UserID.String(),
		Fullname: user.Fullname,
		Email:    user.Email,
		Role:     user.Role,
	})

	if err := h.Rdb.SAdd(c.UserContext(), userSessionsPrefix+user.UserID.String(), sessionID).Err(); err != nil {
		log.Error().Err(err).Msg("auth/login: tracking session failed")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = "s:" + sessionID
	c.Cookie(&cookie)

	return response.Success(c, "Login successful", fiber.Map{
		"user": fiber.Map{
			"user_id":  user.UserID.String(),
			"fullname": user.Fullname,
			"email":    user.Email,
			"role":     user.Role,
		},
	}, nil)
}

// Me GET /api/v1/auth/me
func (h *Handlers) Me(c *fiber.Ctx) error {
	sessionID := middleware.GetSessionID(c)
	sessionUser := middleware.GetUser(c)

	if sessionID == "" {
		cookieVal := c.Cookies(middleware.SessionCookieName)
		log.Debug().Str("path", "/auth/me").
			Bool("cookie_present", cookieVal != "").
			Msg("auth/me: no session id")
	} else if sessionUser == nil {
		log.Debug().Str("path", "/auth/me").Str("session_id_prefix", truncate(sessionID, 8)).
			Msg("auth/me: session has no user")
	}

	user, err := authsvc.VerifyUser(sessionUser)
	if err != nil {
		return response.Error(c, "Not authenticated", fiber.StatusUnauthorized, nil)
	}
	return response.Success(c, "Authenticated", fiber.Map{"user": user}, nil)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// Logout DELETE /api/v1/auth/logout
func (h *Handlers) Logout(c *fiber.Ctx) error {
	sessionID := middleware.GetSessionID(c)
	sessionUser := middleware.GetUser(c)
	ctx := c.UserContext()

	if sessionUser != nil && sessionID != "" {
		if m, ok := sessionUser.(map[string]interface{}); ok {
			if userID, _ := m["user_id"].(string); userID != "" {
				_ = h.Rdb.SRem(ctx, userSessionsPrefix+userID, sessionID).Err()
			}
		}
	}
	if sessionID != "" {
		_ = h.Rdb.Del(ctx, middleware.SessionRedisPrefix+sessionID).Err()
	}

	middleware.DestroySession(c)
	h.clearCookie(c)
	return response.Success(c, "Logged out successfully", nil, nil)
}

func (h *Handlers) clearCookie(c *fiber.Ctx) {
	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = ""
	cookie.MaxAge = -1
	if h.Config.IsProduction && !h.Config.AllowCrossSiteDev && h.Config.CookieDomain != "" {
		cookie.Domain = h.Config.CookieDomain
	}
	c.Cookie(&cookie)
}

// LogoutAll DELETE /api/v1/auth/sessions: end every session of the current user.
func (h *Handlers) LogoutAll(c *fiber.Ctx) error {
	shape, err := authsvc.VerifyUser(middleware.GetUser(c))
	if err != nil {
		return response.Error(c, "Not authenticated", fiber.StatusUnauthorized, nil)
	}
	n, err := destroyUserSessions(c.UserContext(), h.Rdb, shape.UserID)
	if err != nil {
		log.Error().Err(err).Str("user_id", shape.UserID).Msg("auth/sessions: destroy failed")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	middleware.DestroySession(c)
	h.clearCookie(c)
	return response.Success(c, "All sessions ended", fiber.Map{"sessions": n}, nil)
}

// destroyUserSessions deletes each session:<sid> tracked for the user and the tracking set itself.
func destroyUserSessions(ctx context.Context, rdb *redis.Client, userID string) (int, error) {
	key := userSessionsPrefix + userID
	sessionIDs, err := rdb.SMembers(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	pipe := rdb.TxPipeline()
	for _, sid := range sessionIDs {
		pipe.Del(ctx, middleware.SessionRedisPrefix+sid)
	}
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return len(sessionIDs), nil
}
