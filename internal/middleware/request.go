package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/desmond009/Twin-up/internal/models"
)

// PageFromQuery читает page и limit из строки запроса
func PageFromQuery(c fiber.Ctx, defaultLimit int) models.Page {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", strconv.Itoa(defaultLimit)))
	return models.NewPage(page, limit, defaultLimit)
}

// ParamUUID разбирает UUID из параметра маршрута
func ParamUUID(c fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, models.NewValidationError(name, "Invalid ID format")
	}
	return id, nil
}

// QueryList читает список значений через запятую
func QueryList(c fiber.Ctx, key string) []string {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseUUIDs разбирает список UUID, field используется в ошибке валидации
func ParseUUIDs(field string, raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, models.NewValidationError(field, "Invalid ID format")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// QueryBool читает необязательный булев параметр
func QueryBool(c fiber.Ctx, key string) (*bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, models.NewValidationError(key, strings.ToUpper(key[:1])+key[1:]+" must be a boolean")
	}
	return &b, nil
}
