package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/eduwork-api/internal/middleware"
	"github.com/noah-isme/eduwork-api/internal/service"
	"github.com/noah-isme/eduwork-api/internal/utils"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseQueryUint(c *fiber.Ctx, key string) (uint, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(parsed), nil
}

// parseQueryTime reads an RFC 3339 timestamp query value. Empty values yield nil.
func parseQueryTime(c *fiber.Ctx, key string) (*time.Time, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	parsed = parsed.UTC()
	return &parsed, nil
}

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	value := strings.TrimSpace(c.Params(name))
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid identifier")
	}
	return uint(parsed), nil
}

func userIDFromContext(c *fiber.Ctx) uint {
	if v := c.Locals("user_id"); v != nil {
		if id, ok := v.(uint); ok {
			return id
		}
		if id, ok := v.(int); ok {
			if id < 0 {
				return 0
			}
			return uint(id)
		}
	}
	return 0
}

func userRoleFromContext(c *fiber.Ctx) string {
	if v := c.Locals("user_role"); v != nil {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}

// actorFromContext builds the explicit service actor from the JWT locals.
func actorFromContext(c *fiber.Ctx) service.Actor {
	return service.NewActor(userIDFromContext(c), userRoleFromContext(c))
}

func requestContext(c *fiber.Ctx) context.Context {
	if ctx := c.UserContext(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// statusForKind maps lifecycle error kinds to HTTP status codes.
func statusForKind(kind service.ErrorKind) int {
	switch kind {
	case service.KindNotFound:
		return fiber.StatusNotFound
	case service.KindNotAuthorized:
		return fiber.StatusForbidden
	case service.KindAlreadyEvaluated,
		service.KindGroupHasSubmission,
		service.KindWorkFrozen,
		service.KindAssignmentHasSubmission,
		service.KindStudentAlreadyGrouped,
		service.KindDuplicateGroupName:
		return fiber.StatusConflict
	default:
		return fiber.StatusBadRequest
	}
}

// handleError answers a failed service call. Lifecycle and validation errors
// are returned to the client; anything else is logged and hidden.
func handleError(c *fiber.Ctx, logger zerolog.Logger, err error, failure string) error {
	if kind, ok := service.KindOf(err); ok {
		return utils.Fail(c, statusForKind(kind), err.Error(), fiber.Map{"kind": string(kind)})
	}
	if isValidationError(err) {
		return utils.Fail(c, fiber.StatusBadRequest, err.Error(), fiber.Map{"kind": "ValidationFailed"})
	}

	requestLogger(logger, c).Error().Err(err).Str("path", c.Path()).Msg(failure)
	return utils.SendError(c, fiber.StatusInternalServerError, failure)
}
