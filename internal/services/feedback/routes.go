package feedback

import (
	"github.com/gofiber/fiber/v3"

	"github.com/desmond009/Twin-up/internal/middleware"
)

// SetupRoutes настраивает маршруты для API отзывов
func (s *FeedbackService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/feedback")

	// Публичный маршрут
	api.Get("/user/:userId", s.GetUserFeedback)

	auth := middleware.AuthMiddleware(s.jwtService)
	api.Post("/", auth, s.SubmitFeedback)
	api.Get("/pending", auth, s.GetPendingFeedback)
	api.Get("/swap/:swapId", auth, s.GetSwapFeedback)
	api.Put("/:id", auth, s.UpdateFeedback)
	api.Delete("/:id", auth, s.DeleteFeedback)
}
