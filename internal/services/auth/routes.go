package auth

import (
	"github.com/gofiber/fiber/v3"

	"github.com/desmond009/Twin-up/internal/middleware"
)

// SetupRoutes регистрирует маршруты в Fiber
func (s *AuthService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/auth")

	// Вход и восстановление пароля ограничены по частоте
	limit := s.limiter.Handler()
	api.Post("/register", limit, s.RegisterHandler)
	api.Post("/login", limit, s.LoginHandler)
	api.Post("/telegram", limit, s.TelegramAuthHandler)
	api.Post("/forgot-password", limit, s.ForgotPasswordHandler)
	api.Post("/reset-password/:token", limit, s.ResetPasswordHandler)

	// Защищенные маршруты
	auth := middleware.AuthMiddleware(s.jwtService)
	api.Get("/me", auth, s.MeHandler)
	api.Post("/logout", auth, s.LogoutHandler)
	api.Post("/change-password", auth, s.ChangePasswordHandler)
	api.Post("/refresh-token", auth, s.RefreshTokenHandler)
}
