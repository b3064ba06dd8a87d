package middleware

import (
	"strconv"
	"time"

	"nikki/internal/metrics"

	"github.com/gofiber/fiber/v2"
)

// HTTPMetrics counts requests and records their latency per route pattern.
func HTTPMetrics() fiber.Handler {
	metrics.Init()

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		route := c.Route().Path
		if route == "" {
			route = c.Path()
		}
		code := strconv.Itoa(status)
		metrics.RequestsTotal.WithLabelValues(route, c.Method(), code).Inc()
		metrics.RequestLatency.WithLabelValues(c.Method(), route, code).Observe(time.Since(start).Seconds())
		return err
	}
}
