package middleware

import (
	"strings"
	"time"

	"schedboard/config"
	"schedboard/database"
	"schedboard/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Regional string `json:"regional"`
	jwt.RegisteredClaims
}

// Permission names checked before elevated board operations.
const (
	PermEditEvents        = "edit_events"
	PermEditConfig        = "edit_config"
	PermManageInstructors = "manage_instructors"
	PermPublish           = "publish"
)

// rolePermissions maps a role to the permissions it grants. The superadmin
// role implicitly grants everything.
var rolePermissions = map[string][]string{
	"admin":  {PermEditEvents, PermEditConfig, PermManageInstructors, PermPublish},
	"editor": {PermEditEvents},
	"viewer": {},
}

// GenerateToken creates a new JWT token for a user
func GenerateToken(user *models.User) (string, error) {
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		Regional: user.Regional,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(config.AppConfig.JWTExpiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.JWTSecret))
}

// JWTMiddleware validates JWT tokens
func JWTMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authorization header",
			})
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format",
			})
		}

		token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
			return []byte(config.AppConfig.JWTSecret), nil
		})

		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		claims, ok := token.Claims.(*Claims)
		if !ok || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token claims",
			})
		}

		// Verify user still exists and is active
		var user models.User
		if err := database.DB.Where("id = ? AND active = ?", claims.UserID, true).First(&user).Error; err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "User not found or inactive",
			})
		}

		c.Locals("user", &user)
		c.Locals("claims", claims)

		return c.Next()
	}
}

// HasPermission reports whether the authenticated user holds the named
// permission. Pure predicate over the request claims, no side effects.
func HasPermission(c *fiber.Ctx, name string) bool {
	claims, ok := c.Locals("claims").(*Claims)
	if !ok {
		return false
	}
	if claims.Role == "superadmin" {
		return true
	}
	for _, p := range rolePermissions[claims.Role] {
		if p == name {
			return true
		}
	}
	return false
}

// IsSuperAdmin reports whether the authenticated user is a superadmin.
func IsSuperAdmin(c *fiber.Ctx) bool {
	claims, ok := c.Locals("claims").(*Claims)
	return ok && claims.Role == "superadmin"
}

// RequirePermission middleware rejects requests lacking the named permission
func RequirePermission(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !HasPermission(c, name) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Insufficient permissions",
			})
		}
		return c.Next()
	}
}

// GetCurrentUser returns the current authenticated user
func GetCurrentUser(c *fiber.Ctx) (*models.User, error) {
	user, ok := c.Locals("user").(*models.User)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "User not found in context")
	}
	return user, nil
}

// GetCurrentClaims returns the current JWT claims
func GetCurrentClaims(c *fiber.Ctx) (*Claims, error) {
	claims, ok := c.Locals("claims").(*Claims)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Claims not found in context")
	}
	return claims, nil
}
