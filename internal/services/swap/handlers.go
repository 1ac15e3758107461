package swap

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/desmond009/Twin-up/internal/db"
	"github.com/desmond009/Twin-up/internal/middleware"
	"github.com/desmond009/Twin-up/internal/models"
)

const defaultListLimit = 10

type createRequest struct {
	ToUserID        string   `json:"to_user_id"`
	SkillsOffered   []string `json:"skills_offered"`
	SkillsRequested []string `json:"skills_requested"`
	Message         string   `json:"message"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func statusFilter(c fiber.Ctx) (*models.SwapStatus, error) {
	raw := c.Query("status")
	if raw == "" {
		return nil, nil
	}
	st, err := models.ParseSwapStatus(raw)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// CreateSwap создает запрос на обмен
func (s *SwapService) CreateSwap(c fiber.Ctx) error {
	userID, err := middleware.MustUserID(c)
	if err != nil {
		return err
	}

	var req createRequest
	if err := c.Bind().Body(&req); err != nil {
		return models.NewValidationError("body", "Invalid request body")
	}

	// Некорректный ID получателя ловится валидацией NewSwap
	toUserID, _ := uuid.Parse(req.ToUserID)

	ctx, cancel := db.GetContext()
	defer cancel()

	sw, err := s.Create(ctx, models.NewSwap{
		FromUserID:      userID,
		ToUserID:        toUserID,
		SkillsOffered:   req.SkillsOffered,
		SkillsRequested: req.SkillsRequested,
		Message:         req.Message,
	})
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusCreated, "Swap request sent successfully", fiber.Map{"swap": sw})
}

func (s *SwapService) list(c fiber.Ctx, typ string) error {
	userID, err := middleware.MustUserID(c)
	if err != nil {
		return err
	}
	status, err := statusFilter(c)
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	swaps, pagination, err := s.List(ctx, models.SwapFilter{
		UserID: &userID,
		Type:   typ,
		Status: status,
		Page:   middleware.PageFromQuery(c, defaultListLimit),
	})
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "", fiber.Map{"swaps": swaps, "pagination": pagination})
}

// GetSwaps возвращает обмены пользователя (type=all|sent|received)
func (s *SwapService) GetSwaps(c fiber.Ctx) error {
	return s.list(c, c.Query("type", "all"))
}

// GetInbox возвращает входящие запросы
func (s *SwapService) GetInbox(c fiber.Ctx) error {
	return s.list(c, "received")
}

// GetSwap возвращает один обмен
func (s *SwapService) GetSwap(c fiber.Ctx) error {
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

	sw, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "", fiber.Map{"swap": sw})
}

var actionMessages = map[models.SwapAction]string{
	models.SwapAccept:   "Swap request accepted successfully",
	models.SwapReject:   "Swap request rejected successfully",
	models.SwapCancel:   "Swap request cancelled successfully",
	models.SwapComplete: "Swap completed successfully",
}

// action строит handler для перехода статуса
func (s *SwapService) action(action models.SwapAction) fiber.Handler {
	return func(c fiber.Ctx) error {
		userID, err := middleware.MustUserID(c)
		if err != nil {
			return err
		}
		id, err := middleware.ParamUUID(c, "id")
		if err != nil {
			return err
		}

		var req reasonRequest
		if len(c.Body()) > 0 {
			if err := c.Bind().Body(&req); err != nil {
				return models.NewValidationError("reason", "Invalid request body")
			}
		}
		if len([]rune(req.Reason)) > 500 {
			return models.NewValidationError("reason", "Reason cannot be more than 500 characters")
		}

		ctx, cancel := db.GetContext()
		defer cancel()

		sw, err := s.Act(ctx, userID, id, action, req.Reason)
		if err != nil {
			return err
		}
		return middleware.Success(c, fiber.StatusOK, actionMessages[action], fiber.Map{"swap": sw})
	}
}

// DeleteSwap удаляет собственный запрос
func (s *SwapService) DeleteSwap(c fiber.Ctx) error {
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
	return middleware.Success(c, fiber.StatusOK, "Swap request deleted successfully", nil)
}

// GetStats возвращает количество обменов по статусам
func (s *SwapService) GetStats(c fiber.Ctx) error {
	userID, err := middleware.MustUserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	stats, err := s.Stats(ctx, userID)
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "", fiber.Map{"stats": stats})
}
