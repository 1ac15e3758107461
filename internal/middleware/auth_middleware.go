package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/desmond009/Twin-up/internal/db"
	"github.com/desmond009/Twin-up/internal/models"
	"github.com/desmond009/Twin-up/internal/utils"
)

func unauthorized(c fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

// bearerToken достает токен из заголовка Authorization
func bearerToken(c fiber.Ctx) (string, string) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", "Missing authorization header"
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", "Invalid authorization header format"
	}
	return parts[1], ""
}

// AuthMiddleware создаёт middleware для проверки JWT пользователя
func AuthMiddleware(jwtService *utils.JWTService) fiber.Handler {
	return func(c fiber.Ctx) error {
		tokenString, problem := bearerToken(c)
		if problem != "" {
			return unauthorized(c, problem)
		}

		userID, err := jwtService.ExtractUserID(tokenString)
		if err != nil {
			return unauthorized(c, "Invalid or expired token")
		}

		// Добавляем userID в контекст
		c.Locals("userID", userID)

		return c.Next()
	}
}

// OptionalAuth добавляет userID, если передан валидный токен, и пропускает запрос без него
func OptionalAuth(jwtService *utils.JWTService) fiber.Handler {
	return func(c fiber.Ctx) error {
		if tokenString, problem := bearerToken(c); problem == "" {
			if userID, err := jwtService.ExtractUserID(tokenString); err == nil {
				c.Locals("userID", userID)
			}
		}
		return c.Next()
	}
}

// UserID возвращает ID текущего пользователя
func UserID(c fiber.Ctx) (uuid.UUID, bool) {
	raw, ok := c.Locals("userID").(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// MustUserID возвращает ID пользователя или ошибку для защищенных маршрутов
func MustUserID(c fiber.Ctx) (uuid.UUID, error) {
	id, ok := UserID(c)
	if !ok {
		return uuid.Nil, models.Errorf(models.ErrUnauthorized, "Not authorized")
	}
	return id, nil
}

// AdminLookup загружает администратора по ID
type AdminLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Admin, error)
}

// AdminAuthMiddleware проверяет токен администратора и активность учетной записи
func AdminAuthMiddleware(jwtService *utils.JWTService, admins AdminLookup) fiber.Handler {
	return func(c fiber.Ctx) error {
		tokenString, problem := bearerToken(c)
		if problem != "" {
			return unauthorized(c, problem)
		}

		raw, err := jwtService.ExtractAdminID(tokenString)
		if err != nil {
			return unauthorized(c, "Invalid or expired token")
		}
		adminID, err := uuid.Parse(raw)
		if err != nil {
			return unauthorized(c, "Invalid admin ID")
		}

		ctx, cancel := db.GetContext()
		defer cancel()

		admin, err := admins.GetByID(ctx, adminID)
		if err != nil {
			return unauthorized(c, "Admin not found")
		}
		if !admin.IsActive {
			return RespondError(c, models.Errorf(models.ErrForbidden, "Admin account is deactivated"))
		}

		c.Locals("admin", admin)
		return c.Next()
	}
}

// CurrentAdmin возвращает администратора, загруженного AdminAuthMiddleware
func CurrentAdmin(c fiber.Ctx) *models.Admin {
	admin, _ := c.Locals("admin").(*models.Admin)
	return admin
}

// RequirePermission пропускает только администраторов с правом p
func RequirePermission(p models.Permission) fiber.Handler {
	return func(c fiber.Ctx) error {
		admin := CurrentAdmin(c)
		if admin == nil {
			return unauthorized(c, "Not authorized")
		}
		if !admin.Can(p) {
			return RespondError(c, models.Errorf(models.ErrForbidden, "Insufficient permissions"))
		}
		return c.Next()
	}
}
