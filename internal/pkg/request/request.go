// Package request parses path and query parameters into workflow inputs.
package request

import (
	"strconv"
	"strings"

	"estates-backend/internal/pkg/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// UUIDParam reads a UUID path parameter.
func UUIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(c.Params(name))
	if raw == "" {
		return uuid.Nil, apperr.Validation(name, "%s is required", name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.Validation(name, "Invalid %s format", name)
	}
	return id, nil
}

// OptionalUUIDQuery reads a UUID query parameter; absent means nil.
func OptionalUUIDQuery(c *fiber.Ctx, name string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.Validation(name, "Invalid %s format", name)
	}
	return &id, nil
}

// OptionalBoolQuery reads true/false; absent means nil.
func OptionalBoolQuery(c *fiber.Ctx, name string) (*bool, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperr.Validation(name, "%s must be true or false", name)
	}
	return &v, nil
}

// Page reads limit and offset. Zero limit lets the store apply its default.
func Page(c *fiber.Ctx) (limit, offset int, err error) {
	if limit, err = nonNegative(c, "limit"); err != nil {
		return 0, 0, err
	}
	if offset, err = nonNegative(c, "offset"); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func nonNegative(c *fiber.Ctx, name string) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Validation(name, "%s must be a non-negative integer", name)
	}
	return n, nil
}

// PageMeta is the metadata block returned with paged lists.
func PageMeta(limit, offset, count int) fiber.Map {
	return fiber.Map{"limit": limit, "offset": offset, "count": count}
}
