package admin

import (
	"github.com/gofiber/fiber/v3"

	"github.com/desmond009/Twin-up/internal/middleware"
	"github.com/desmond009/Twin-up/internal/models"
)

// SetupRoutes регистрирует маршруты админки
func (s *AdminService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/admin")

	if s.limiter != nil {
		api.Post("/login", s.limiter.Handler(), s.LoginHandler)
	} else {
		api.Post("/login", s.LoginHandler)
	}

	auth := middleware.AdminAuthMiddleware(s.jwtService, s.admins)
	can := middleware.RequirePermission

	api.Get("/me", auth, s.MeHandler)
	api.Get("/dashboard", auth, can(models.PermViewAnalytics), s.GetDashboard)
	api.Get("/analytics", auth, can(models.PermViewAnalytics), s.GetAnalytics)
	api.Get("/reports/:type", auth, can(models.PermViewReports), s.GetReport)

	// Пользователи
	api.Get("/users", auth, can(models.PermManageUsers), s.GetUsers)
	api.Get("/users/:id", auth, can(models.PermManageUsers), s.GetUser)
	api.Put("/users/:id", auth, can(models.PermManageUsers), s.UpdateUser)
	api.Delete("/users/:id", auth, can(models.PermManageUsers), s.DeleteUserHandler)

	// Обмены и отзывы
	api.Get("/swaps", auth, can(models.PermManageSwaps), s.GetSwaps)
	api.Get("/swaps/:id", auth, can(models.PermManageSwaps), s.GetSwap)
	api.Delete("/swaps/:id", auth, can(models.PermManageSwaps), s.DeleteSwapHandler)
	api.Get("/feedback", auth, can(models.PermManageFeedback), s.GetFeedback)
	api.Delete("/feedback/:id", auth, can(models.PermManageFeedback), s.DeleteFeedbackHandler)

	api.Post("/notifications/broadcast", auth, can(models.PermSendNotifications), s.SendBroadcast)

	// Администраторы
	api.Get("/admins", auth, can(models.PermManageAdmins), s.GetAdmins)
	api.Post("/admins", auth, can(models.PermManageAdmins), s.CreateAdminHandler)
	api.Put("/admins/:id", auth, can(models.PermManageAdmins), s.UpdateAdminHandler)
	api.Delete("/admins/:id", auth, can(models.PermManageAdmins), s.DeleteAdminHandler)
}
