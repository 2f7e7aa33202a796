package middleware

import (
	authsvc "estates-backend/internal/application/auth"
	"estates-backend/internal/domain"
	"estates-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const (
	userLocal  = "user"
	actorLocal = "actor"
)

// RequireAuth ensures a valid user is in the session and attaches the actor.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := resolveActor(c)
		if actor == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		return c.Next()
	}
}

// OptionalActor attaches the actor when a user is signed in and lets anonymous requests through.
func OptionalActor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		resolveActor(c)
		return c.Next()
	}
}

func resolveActor(c *fiber.Ctx) *domain.Actor {
	shape, err := authsvc.VerifyUser(c.Locals(userLocal))
	if err != nil {
		return nil
	}
	actor, err := shape.Actor()
	if err != nil {
		return nil
	}
	c.Locals(actorLocal, actor)
	return actor
}

// GetUser returns the session user from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

// ActorFromContext returns the actor attached by RequireAuth or OptionalActor, or nil.
func ActorFromContext(c *fiber.Ctx) *domain.Actor {
	a, _ := c.Locals(actorLocal).(*domain.Actor)
	return a
}
