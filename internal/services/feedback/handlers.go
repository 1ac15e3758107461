package feedback

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/desmond009/Twin-up/internal/db"
	"github.com/desmond009/Twin-up/internal/middleware"
	"github.com/desmond009/Twin-up/internal/models"
)

const defaultListLimit = 10

type submitRequest struct {
	SwapID  string `json:"swap_id"`
	Stars   int    `json:"stars"`
	Comment string `json:"comment"`
}

// SubmitFeedback оставляет отзыв по завершенному обмену
func (s *FeedbackService) SubmitFeedback(c fiber.Ctx) error {
	userID, err := middleware.MustUserID(c)
	if err != nil {
		return err
	}

	var req submitRequest
	if err := c.Bind().Body(&req); err != nil {
		return models.NewValidationError("body", "Invalid request body")
	}

	v := &models.ValidationError{}
	swapID, err := uuid.Parse(req.SwapID)
	if err != nil {
		v.Add("swap_id", "Valid swap ID is required")
	}
	models.ValidateFeedback(v, req.Stars, req.Comment)
	if err := v.Err(); err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	result, err := s.Submit(ctx, userID, swapID, req.Stars, req.Comment)
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusCreated, "Feedback submitted successfully", result)
}

// GetSwapFeedback возвращает отзывы участников обмена
func (s *FeedbackService) GetSwapFeedback(c fiber.Ctx) error {
	userID, err := middleware.MustUserID(c)
	if err != nil {
		return err
	}
	swapID, err := middleware.ParamUUID(c, "swapId")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	result, err := s.ForSwap(ctx, userID, swapID)
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "", result)
}

// GetUserFeedback возвращает отзывы о пользователе (публичный маршрут)
func (s *FeedbackService) GetUserFeedback(c fiber.Ctx) error {
	userID, err := middleware.ParamUUID(c, "userId")
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	items, pagination, err := s.ForUser(ctx, userID, middleware.PageFromQuery(c, defaultListLimit))
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "", fiber.Map{"feedback": items, "pagination": pagination})
}

// UpdateFeedback меняет свой отзыв
func (s *FeedbackService) UpdateFeedback(c fiber.Ctx) error {
	userID, err := middleware.MustUserID(c)
	if err != nil {
		return err
	}
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	var req Revision
	if err := c.Bind().Body(&req); err != nil {
		return models.NewValidationError("body", "Invalid request body")
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	fb, err := s.Update(ctx, userID, id, req)
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "Feedback updated successfully", fiber.Map{"feedback": fb})
}

// DeleteFeedback удаляет свой отзыв
func (s *FeedbackService) DeleteFeedback(c fiber.Ctx) error {
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
	return middleware.Success(c, fiber.StatusOK, "Feedback deleted successfully", nil)
}

// GetPendingFeedback возвращает обмены, ожидающие отзыва пользователя
func (s *FeedbackService) GetPendingFeedback(c fiber.Ctx) error {
	userID, err := middleware.MustUserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	swaps, pagination, err := s.Pending(ctx, userID, middleware.PageFromQuery(c, defaultListLimit))
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "", fiber.Map{"swaps": swaps, "pagination": pagination})
}
