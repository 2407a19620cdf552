package middleware

import (
	"crypto/subtle"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ClearMarkApp/backend/internal/utils"
)

const (
	// HeaderAPIKey carries the shared service key.
	HeaderAPIKey = "X-API-Key"
	// RoleService is assigned to callers authenticated with the shared key.
	RoleService = "service"
	// RoleInstructor is the JWT role allowed to manage coursework.
	RoleInstructor = "instructor"
	// RoleStudent is the JWT role of learners.
	RoleStudent = "student"
)

// AuthConfig lists the accepted credentials. Empty values disable that scheme.
type AuthConfig struct {
	APIKey    string
	JWTSecret string
}

// Authenticate accepts either the shared X-API-Key or an HS256 bearer token.
func Authenticate(cfg AuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if key := strings.TrimSpace(c.Get(HeaderAPIKey)); key != "" {
			if cfg.APIKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(cfg.APIKey)) != 1 {
				return utils.SendError(c, fiber.StatusForbidden, "invalid api key")
			}
			c.Locals("user_role", RoleService)
			return c.Next()
		}

		authorization := c.Get(fiber.HeaderAuthorization)
		if authorization == "" || cfg.JWTSecret == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}

		const bearer = "Bearer "
		if len(authorization) <= len(bearer) || !strings.EqualFold(authorization[:len(bearer)], bearer) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		if userID, ok := userIDFromClaims(claims); ok {
			c.Locals("user_id", userID)
		}
		if role := roleFromClaims(claims); role != "" {
			c.Locals("user_role", role)
		}

		return c.Next()
	}
}

func userIDFromClaims(claims jwt.MapClaims) (uint, bool) {
	for _, key := range []string{"sub", "user_id"} {
		switch v := claims[key].(type) {
		case float64:
			if v > 0 {
				return uint(v), true
			}
		case string:
			if parsed, err := strconv.ParseUint(v, 10, 64); err == nil {
				return uint(parsed), true
			}
		}
	}

	return 0, false
}

func roleFromClaims(claims jwt.MapClaims) string {
	switch v := claims["role"].(type) {
	case string:
		return normalizeRoleValue(v)
	case []interface{}:
		for _, item := range v {
			if role := normalizeRoleValue(item); role != "" {
				return role
			}
		}
	}
	return ""
}
