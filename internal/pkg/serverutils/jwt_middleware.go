package serverutils

import (
	"os"

	"coach-membership-be/internal/entity"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JwtMiddleware verifies the bearer token issued by the auth collaborator
// and exposes the caller identity as fiber locals. The token is trusted for
// identity and role; resource ownership is re-verified by the services.
func JwtMiddleware(ctx *fiber.Ctx) error {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Missing token"})
	}
	tokenStr := authHeader[7:]

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})

	if err != nil || !token.Valid {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token"})
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid claims"})
	}

	ctx.Locals("user_id", claims["user_id"])
	ctx.Locals("role", claims["role"])
	return ctx.Next()
}

// RequireAdmin must run after JwtMiddleware.
func RequireAdmin(ctx *fiber.Ctx) error {
	role, _ := ctx.Locals("role").(string)
	if role != string(entity.RoleAdmin) {
		return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "Admin access required"})
	}
	return ctx.Next()
}

// CallerId parses the user_id local set by JwtMiddleware.
func CallerId(ctx *fiber.Ctx) (uuid.UUID, error) {
	idStr, _ := ctx.Locals("user_id").(string)
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fiber.ErrUnauthorized
	}
	return id, nil
}

// CallerRole returns the role local set by JwtMiddleware.
func CallerRole(ctx *fiber.Ctx) entity.Role {
	role, _ := ctx.Locals("role").(string)
	return entity.Role(role)
}
