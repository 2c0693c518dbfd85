package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/eduwork-api/internal/models"
	"github.com/noah-isme/eduwork-api/internal/utils"
)

// RequireRole ensures that the authenticated user possesses one of the allowed
// roles. Legacy aliases such as "teacher" or "admin" are accepted on both sides.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		if normalized := models.ParseRole(role); normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		role := normalizeRoleValue(c.Locals("user_role"))
		if _, ok := allowed[role]; !ok {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

func normalizeRoleValue(value interface{}) models.Role {
	switch v := value.(type) {
	case models.Role:
		return models.ParseRole(string(v))
	case string:
		return models.ParseRole(v)
	case fmt.Stringer:
		return models.ParseRole(v.String())
	default:
		if value == nil {
			return ""
		}
		return models.ParseRole(fmt.Sprintf("%v", value))
	}
}
