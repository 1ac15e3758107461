package middleware

import (
	"github.com/gofiber/fiber/v3"

	"github.com/desmond009/Twin-up/internal/metrics"
)

// Metrics записывает количество и длительность запросов по шаблону маршрута
func Metrics() fiber.Handler {
	return func(c fiber.Ctx) error {
		done := metrics.RequestStarted()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = StatusFor(err)
		}
		path := c.Route().Path
		if path == "" {
			path = "unmatched"
		}
		done(c.Method(), path, status)
		return err
	}
}
