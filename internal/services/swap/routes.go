package swap

import (
	"github.com/gofiber/fiber/v3"

	"github.com/desmond009/Twin-up/internal/middleware"
	"github.com/desmond009/Twin-up/internal/models"
)

// SetupRoutes настраивает маршруты для API обменов
func (s *SwapService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/swaps")
	api.Use(middleware.AuthMiddleware(s.jwtService))

	api.Post("/", s.CreateSwap)
	api.Get("/", s.GetSwaps)
	api.Get("/inbox", s.GetInbox)
	api.Get("/stats/overview", s.GetStats)
	api.Get("/:id", s.GetSwap)
	api.Post("/:id/accept", s.action(models.SwapAccept))
	api.Post("/:id/reject", s.action(models.SwapReject))
	api.Post("/:id/cancel", s.action(models.SwapCancel))
	api.Post("/:id/complete", s.action(models.SwapComplete))
	api.Delete("/:id", s.DeleteSwap)
}
