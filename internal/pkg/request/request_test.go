package request

import (
	"errors"
	"net/http/httptest"
	"testing"

	"estates-backend/internal/pkg/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, target string, fn func(c *fiber.Ctx) error) {
	t.Helper()
	app := fiber.New()
	app.Get("/items/:id", fn)
	resp, err := app.Test(httptest.NewRequest("GET", target, nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestUUIDParam(t *testing.T) {
	run(t, "/items/550e8400-e29b-41d4-a716-446655440000", func(c *fiber.Ctx) error {
		id, err := UUIDParam(c, "id")
		assert.NoError(t, err)
		assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", id.String())
		return c.SendStatus(fiber.StatusOK)
	})
	run(t, "/items/nope", func(c *fiber.Ctx) error {
		_, err := UUIDParam(c, "id")
		assert.True(t, errors.Is(err, apperr.ErrValidation))
		return c.SendStatus(fiber.StatusOK)
	})
}

func TestPage(t *testing.T) {
	run(t, "/items/x?limit=10&offset=20", func(c *fiber.Ctx) error {
		limit, offset, err := Page(c)
		assert.NoError(t, err)
		assert.Equal(t, 10, limit)
		assert.Equal(t, 20, offset)
		return c.SendStatus(fiber.StatusOK)
	})
	run(t, "/items/x", func(c *fiber.Ctx) error {
		limit, offset, err := Page(c)
		assert.NoError(t, err)
		assert.Zero(t, limit)
		assert.Zero(t, offset)
		return c.SendStatus(fiber.StatusOK)
	})
	run(t, "/items/x?offset=-1", func(c *fiber.Ctx) error {
		_, _, err := Page(c)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		return c.SendStatus(fiber.StatusOK)
	})
}

func TestOptionalQueries(t *testing.T) {
	run(t, "/items/x?published=true&listing_id=bad", func(c *fiber.Ctx) error {
		p, err := OptionalBoolQuery(c, "published")
		assert.NoError(t, err)
		require.NotNil(t, p)
		assert.True(t, *p)

		missing, err := OptionalBoolQuery(c, "other")
		assert.NoError(t, err)
		assert.Nil(t, missing)

		_, err = OptionalUUIDQuery(c, "listing_id")
		assert.Error(t, err)
		return c.SendStatus(fiber.StatusOK)
	})
}
