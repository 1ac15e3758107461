package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	log "github.com/sirupsen/logrus"

	"github.com/desmond009/Twin-up/internal/models"
)

var errorStatuses = []struct {
	kind   error
	status int
}{
	{models.ErrValidation, fiber.StatusBadRequest},
	{models.ErrInvalidState, fiber.StatusBadRequest},
	{models.ErrNotFound, fiber.StatusNotFound},
	{models.ErrForbidden, fiber.StatusForbidden},
	{models.ErrConflict, fiber.StatusConflict},
	{models.ErrUnauthorized, fiber.StatusUnauthorized},
	{models.ErrLocked, fiber.StatusLocked},
}

// StatusFor возвращает HTTP статус для доменной ошибки
func StatusFor(err error) int {
	for _, e := range errorStatuses {
		if errors.Is(err, e.kind) {
			return e.status
		}
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

// RespondError пишет ошибку в едином формате ответа
func RespondError(c fiber.Ctx, err error) error {
	status := StatusFor(err)
	body := fiber.Map{"success": false}

	var ve *models.ValidationError
	var de *models.Error
	var fe *fiber.Error
	switch {
	case errors.As(err, &ve):
		body["message"] = "Validation failed"
		body["errors"] = ve.Errors
	case errors.As(err, &de):
		body["message"] = de.Message
	case status == fiber.StatusInternalServerError:
		log.WithError(err).WithField("path", c.Path()).Error("❌ Внутренняя ошибка")
		body["message"] = "Internal server error"
	case errors.As(err, &fe):
		body["message"] = fe.Message
	default:
		body["message"] = err.Error()
	}

	return c.Status(status).JSON(body)
}

// ErrorHandler - обработчик ошибок fiber, возвращенных из handlers
func ErrorHandler(c fiber.Ctx, err error) error {
	return RespondError(c, err)
}

// Success пишет успешный ответ
func Success(c fiber.Ctx, status int, message string, data any) error {
	body := fiber.Map{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	return c.Status(status).JSON(body)
}
