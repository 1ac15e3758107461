package notification

import (
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/desmond009/Twin-up/internal/db"
	"github.com/desmond009/Twin-up/internal/middleware"
	"github.com/desmond009/Twin-up/internal/models"
)

const defaultListLimit = 20

type idsRequest struct {
	NotificationIDs []string `json:"notification_ids"`
}

// requestIDs берет ID из тела запроса, а при его отсутствии из ?ids=a,b
func requestIDs(c fiber.Ctx) ([]string, error) {
	var req idsRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().Body(&req); err != nil {
			return nil, models.NewValidationError("notification_ids", "Notification IDs must be an array")
		}
	}
	if len(req.NotificationIDs) == 0 {
		req.NotificationIDs = middleware.QueryList(c, "ids")
	}
	return req.NotificationIDs, nil
}

// GetNotifications возвращает уведомления текущего пользователя
func (s *NotificationService) GetNotifications(c fiber.Ctx) error {
	userID, err := middleware.MustUserID(c)
	if err != nil {
		return err
	}

	filter := models.NotificationFilter{
		UserID: userID,
		Page:   middleware.PageFromQuery(c, defaultListLimit),
	}
	if t := c.Query("type"); t != "" && t != "all" {
		nt := models.NotificationType(t)
		if !nt.Valid() {
			return models.NewValidationError("type", "Invalid notification type")
		}
		filter.Type = &nt
	}
	if filter.Read, err = middleware.QueryBool(c, "read"); err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	page, err := s.List(ctx, filter)
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "", page)
}

// GetUnreadCount возвращает количество непрочитанных уведомлений
func (s *NotificationService) GetUnreadCount(c fiber.Ctx) error {
	userID, err := middleware.MustUserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	count, err := s.UnreadCount(ctx, userID)
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "", fiber.Map{"count": count})
}

// MarkAsRead отмечает выбранные (или все) уведомления прочитанными
func (s *NotificationService) MarkAsRead(c fiber.Ctx) error {
	userID, err := middleware.MustUserID(c)
	if err != nil {
		return err
	}

	raw, err := requestIDs(c)
	if err != nil {
		return err
	}
	var ids []uuid.UUID
	if len(raw) > 0 {
		if ids, err = middleware.ParseUUIDs("notification_ids", raw); err != nil {
			return err
		}
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	n, err := s.MarkRead(ctx, userID, ids)
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "Notifications marked as read", fiber.Map{"updated": n})
}

// MarkAllAsRead отмечает все уведомления прочитанными
func (s *NotificationService) MarkAllAsRead(c fiber.Ctx) error {
	userID, err := middleware.MustUserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	n, err := s.MarkRead(ctx, userID, nil)
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "All notifications marked as read", fiber.Map{"updated": n})
}

// DeleteNotification удаляет одно уведомление
func (s *NotificationService) DeleteNotification(c fiber.Ctx) error {
	userID, err := middleware.MustUserID(c)
	if err != nil {
		return err
	}
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := s.Delete(ctx, userID, id); err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "Notification deleted successfully", nil)
}

// DeleteNotifications удаляет несколько уведомлений
func (s *NotificationService) DeleteNotifications(c fiber.Ctx) error {
	userID, err := middleware.MustUserID(c)
	if err != nil {
		return err
	}

	raw, err := requestIDs(c)
	if err != nil {
		return err
	}
	ids, err := middleware.ParseUUIDs("notification_ids", raw)
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	n, err := s.DeleteMany(ctx, userID, ids)
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, fmt.Sprintf("%d notification(s) deleted successfully", n), fiber.Map{"deleted": n})
}
