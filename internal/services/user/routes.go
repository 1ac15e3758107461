package user

import (
	"github.com/gofiber/fiber/v3"

	"github.com/desmond009/Twin-up/internal/middleware"
)

// SetupRoutes настраивает маршруты для API пользователей
func (s *UserService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/users")

	optional := middleware.OptionalAuth(s.jwtService)
	auth := middleware.AuthMiddleware(s.jwtService)

	api.Get("/search", optional, s.SearchUsers)

	api.Get("/me", auth, s.GetMyProfile)
	api.Put("/me", auth, s.UpdateMyProfile)
	api.Delete("/me", auth, s.DeleteMyAccount)
	api.Post("/me/photo", auth, s.UploadMyPhoto)
	api.Delete("/me/photo", auth, s.RemoveMyPhoto)
	api.Get("/me/feedback", auth, s.GetMyFeedback)
	api.Post("/me/availability", auth, s.UpdateMyAvailability)

	api.Get("/:id", optional, s.GetUserProfile)
	api.Get("/:id/feedback", s.GetUserFeedback)
}
