package notification

import (
	"github.com/gofiber/fiber/v3"

	"github.com/desmond009/Twin-up/internal/middleware"
)

// SetupRoutes настраивает маршруты для API уведомлений
func (s *NotificationService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/notifications")
	api.Use(middleware.AuthMiddleware(s.jwtService))

	api.Get("/", s.GetNotifications)
	api.Get("/unread", s.GetUnreadCount)
	api.Post("/mark-read", s.MarkAsRead)
	api.Post("/mark-all-read", s.MarkAllAsRead)
	api.Delete("/", s.DeleteNotifications)
	api.Delete("/:id", s.DeleteNotification)
}
