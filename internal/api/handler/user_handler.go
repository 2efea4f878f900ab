package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/ai-messenger/internal/core/ports"
)

// UserHandler serves profile, contact and conversation views.
type UserHandler struct {
	service ports.MessageService
}

func NewUserHandler(service ports.MessageService) *UserHandler {
	return &UserHandler{service: service}
}

// Me handles GET /v1/me.
//
// @Summary      Current user profile
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  userResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	profile, err := h.service.Profile(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(profile))
}

// List handles GET /v1/users.
//
// @Summary      List other users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  usersResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/users [get]
func (h *UserHandler) List(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	users, err := h.service.Contacts(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}

	resp := usersResponse{Users: make([]userResponse, 0, len(users))}
	for _, u := range users {
		resp.Users = append(resp.Users, toUserResponse(u))
	}
	return c.JSON(http.StatusOK, resp)
}

// Conversation handles GET /v1/conversations/:username.
//
// @Summary      Messages exchanged with another user, newest first
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        username  path      string  true   "Other party"
// @Param        limit     query     int     false  "Page size (default 50, max 100)"
// @Param        offset    query     int     false  "Page offset"
// @Success      200       {object}  conversationResponse
// @Failure      401       {object}  errorResponse
// @Failure      404       {object}  errorResponse
// @Router       /v1/conversations/{username} [get]
func (h *UserHandler) Conversation(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	var q conversationQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}

	other := c.Param("username")
	page, err := h.service.Conversation(c.Request().Context(), user.ID, other, q.Limit, q.Offset)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, conversationResponse{
		With:     other,
		Messages: toMessageResponses(page.Messages),
		Pagination: paginationResponse{
			Total:   page.Total,
			Limit:   page.Limit,
			Offset:  page.Offset,
			HasMore: page.HasMore,
		},
	})
}
