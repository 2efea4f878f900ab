package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/ai-messenger/internal/core/domain"
)

// ClientIP stores the caller's address in the request context so services
// can attach it to activity events.
func ClientIP() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			c.SetRequest(req.WithContext(domain.WithClientIP(req.Context(), c.RealIP())))
			return next(c)
		}
	}
}
