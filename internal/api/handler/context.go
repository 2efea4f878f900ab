package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/ai-messenger/internal/core/domain"
)

// Keys under which the session middleware stores the authenticated user and
// the bearer token it was resolved from.
const (
	ContextUserKey  = "user"
	ContextTokenKey = "session_token"
)

// ctxUser returns the user injected by the session middleware. A missing user
// means the route was registered without the middleware.
func ctxUser(c echo.Context) (*domain.User, error) {
	u, _ := c.Get(ContextUserKey).(*domain.User)
	if u == nil || u.ID == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing session")
	}
	return u, nil
}

func ctxToken(c echo.Context) string {
	tok, _ := c.Get(ContextTokenKey).(string)
	return tok
}

// normalizer is implemented by requests that clean up fields before validation.
type normalizer interface {
	normalize()
}

// bindAndValidate decodes the request and runs the registered validator.
// Validation failures surface as 422.
func bindAndValidate(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}
	if c.Echo().Validator == nil {
		return nil
	}
	if err := c.Validate(dst); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return nil
}
