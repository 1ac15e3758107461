package cloudinary

import (
	"github.com/gofiber/fiber/v3"

	"github.com/desmond009/Twin-up/internal/middleware"
)

// SetupRoutes настраивает маршруты для прямой загрузки фото
func (s *CloudinaryService) SetupRoutes(app *fiber.App) {
	protected := app.Group("/api/upload")
	protected.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для получения параметров загрузки
	protected.Get("/params", s.GenerateUploadParams)
}
