package admin

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/desmond009/Twin-up/internal/db"
	"github.com/desmond009/Twin-up/internal/middleware"
	"github.com/desmond009/Twin-up/internal/models"
)

const defaultListLimit = 20

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type broadcastRequest struct {
	Type      string   `json:"type"`
	Title     string   `json:"title"`
	Message   string   `json:"message"`
	UserIDs   []string `json:"user_ids"`
	SendToAll bool     `json:"send_to_all"`
}

// LoginHandler выдает токен администратора
func (s *AdminService) LoginHandler(c fiber.Ctx) error {
	var req loginRequest
	if err := c.Bind().Body(&req); err != nil {
		return models.NewValidationError("body", "Invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return models.NewValidationError("email", "Email and password are required")
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	session, err := s.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "Login successful", session)
}

// MeHandler возвращает текущего администратора
func (s *AdminService) MeHandler(c fiber.Ctx) error {
	return middleware.Success(c, fiber.StatusOK, "", fiber.Map{"admin": middleware.CurrentAdmin(c)})
}

// GetDashboard возвращает сводку платформы
func (s *AdminService) GetDashboard(c fiber.Ctx) error {
	ctx, cancel := db.GetContext()
	defer cancel()

	dashboard, err := s.Dashboard(ctx)
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "", dashboard)
}

// GetUsers возвращает пользователей с поиском и фильтром по статусу
func (s *AdminService) GetUsers(c fiber.Ctx) error {
	ctx, cancel := db.GetContext()
	defer cancel()

	users, pagination, err := s.ListUsers(ctx, models.AccountFilter{
		Search: c.Query("search"),
		Status: c.Query("status", "all"),
		Page:   middleware.PageFromQuery(c, defaultListLimit),
	})
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "", fiber.Map{
		"users":      users,
		"pagination": pagination,
	})
}

// GetUser возвращает пользователя со статистикой обменов
func (s *AdminService) GetUser(c fiber.Ctx) error {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	detail, err := s.User(ctx, id)
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "", detail)
}

// UpdateUser блокирует или верифицирует пользователя
func (s *AdminService) UpdateUser(c fiber.Ctx) error {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		return err
	}
	var req UserModeration
	if err := c.Bind().Body(&req); err != nil {
		return models.NewValidationError("body", "Invalid request body")
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	user, err := s.ModerateUser(ctx, id, req)
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "User updated successfully", fiber.Map{"user": user})
}

// DeleteUserHandler удаляет пользователя
func (s *AdminService) DeleteUserHandler(c fiber.Ctx) error {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := s.DeleteUser(ctx, id); err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "User deleted successfully", nil)
}

// GetSwaps возвращает обмены с фильтром по статусу
func (s *AdminService) GetSwaps(c fiber.Ctx) error {
	var status *models.SwapStatus
	if raw := c.Query("status"); raw != "" && raw != "all" {
		st, err := models.ParseSwapStatus(raw)
		if err != nil {
			return err
		}
		status = &st
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	page := middleware.PageFromQuery(c, defaultListLimit)
	swaps, pagination, err := s.ListSwaps(ctx, status, page)
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "", fiber.Map{
		"swaps":      swaps,
		"pagination": pagination,
	})
}

// GetSwap возвращает обмен
func (s *AdminService) GetSwap(c fiber.Ctx) error {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	swap, err := s.Swap(ctx, id)
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "", fiber.Map{"swap": swap})
}

// DeleteSwapHandler удаляет обмен
func (s *AdminService) DeleteSwapHandler(c fiber.Ctx) error {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := s.DeleteSwap(ctx, id); err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "Swap deleted successfully", nil)
}

// GetFeedback возвращает все отзывы
func (s *AdminService) GetFeedback(c fiber.Ctx) error {
	ctx, cancel := db.GetContext()
	defer cancel()

	items, pagination, err := s.ListFeedback(ctx, middleware.PageFromQuery(c, defaultListLimit))
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "", fiber.Map{
		"feedback":   items,
		"pagination": pagination,
	})
}

// DeleteFeedbackHandler удаляет отзыв
func (s *AdminService) DeleteFeedbackHandler(c fiber.Ctx) error {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := s.DeleteFeedback(ctx, id); err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "Feedback deleted successfully", nil)
}

// SendBroadcast рассылает уведомление пользователям
func (s *AdminService) SendBroadcast(c fiber.Ctx) error {
	var req broadcastRequest
	if err := c.Bind().Body(&req); err != nil {
		return models.NewValidationError("body", "Invalid request body")
	}
	ids, err := middleware.ParseUUIDs("user_ids", req.UserIDs)
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	sent, err := s.Broadcast(ctx, models.Broadcast{
		Type:      models.NotificationType(req.Type),
		Title:     req.Title,
		Message:   req.Message,
		UserIDs:   ids,
		SendToAll: req.SendToAll,
	})
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, fmt.Sprintf("Notification sent to %d users", sent),
		fiber.Map{"sent_count": sent})
}

// GetAnalytics возвращает аналитику за период
func (s *AdminService) GetAnalytics(c fiber.Ctx) error {
	period, err := models.ParseAnalyticsPeriod(c.Query("period"))
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	analytics, err := s.Analytics(ctx, period)
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "", analytics)
}

func queryDate(c fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, models.NewValidationError(key, "Date must be in YYYY-MM-DD format")
	}
	return &t, nil
}

// GetReport отдает выгрузку в JSON или CSV
func (s *AdminService) GetReport(c fiber.Ctx) error {
	reportType, err := models.ParseReportType(c.Params("type"))
	if err != nil {
		return err
	}
	format := c.Query("format", "json")
	if format != "json" && format != "csv" {
		return models.NewValidationError("format", "Format must be json or csv")
	}
	from, err := queryDate(c, "from")
	if err != nil {
		return err
	}
	to, err := queryDate(c, "to")
	if err != nil {
		return err
	}
	if to != nil {
		end := to.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	report, err := s.Report(ctx, reportType, models.ReportRange{From: from, To: to})
	if err != nil {
		return err
	}

	if format == "json" {
		return middleware.Success(c, fiber.StatusOK, "", fiber.Map{
			"type":  reportType,
			"count": len(report.Records()),
			"rows":  report,
		})
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, report); err != nil {
		return err
	}
	filename := fmt.Sprintf("%s-report-%s.csv", reportType, s.now().Format("2006-01-02"))
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Status(fiber.StatusOK).Send(buf.Bytes())
}

// GetAdmins возвращает администраторов
func (s *AdminService) GetAdmins(c fiber.Ctx) error {
	ctx, cancel := db.GetContext()
	defer cancel()

	admins, err := s.ListAdmins(ctx)
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "", fiber.Map{"admins": admins})
}

// CreateAdminHandler создает администратора
func (s *AdminService) CreateAdminHandler(c fiber.Ctx) error {
	var req AdminInput
	if err := c.Bind().Body(&req); err != nil {
		return models.NewValidationError("body", "Invalid request body")
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	admin, err := s.CreateAdmin(ctx, req)
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusCreated, "Admin created successfully", fiber.Map{"admin": admin})
}

// UpdateAdminHandler меняет администратора
func (s *AdminService) UpdateAdminHandler(c fiber.Ctx) error {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		return err
	}
	var req AdminPatch
	if err := c.Bind().Body(&req); err != nil {
		return models.NewValidationError("body", "Invalid request body")
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	admin, err := s.UpdateAdmin(ctx, middleware.CurrentAdmin(c), id, req)
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "Admin updated successfully", fiber.Map{"admin": admin})
}

// DeleteAdminHandler удаляет администратора
func (s *AdminService) DeleteAdminHandler(c fiber.Ctx) error {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := s.DeleteAdmin(ctx, middleware.CurrentAdmin(c), id); err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "Admin deleted successfully", nil)
}
