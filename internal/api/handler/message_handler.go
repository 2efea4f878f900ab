package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/ai-messenger/internal/api/metrics"
	"github.com/99minutos/ai-messenger/internal/core/domain"
	"github.com/99minutos/ai-messenger/internal/core/ports"
)

// MessageHandler handles the message ledger endpoints.
type MessageHandler struct {
	service ports.MessageService
}

func NewMessageHandler(service ports.MessageService) *MessageHandler {
	return &MessageHandler{service: service}
}

// Send handles POST /v1/messages.
//
// @Summary      Submit a message for relay
// @Tags         messages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      sendMessageRequest  true  "Message; recipient defaults to the sender"
// @Success      202   {object}  sendMessageResponse
// @Failure      401   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/messages [post]
func (h *MessageHandler) Send(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	var req sendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	id, err := h.service.Send(c.Request().Context(), ports.SendInput{
		SenderID:  user.ID,
		Recipient: req.Recipient,
		Body:      req.Body,
	})
	if err != nil {
		return err
	}
	metrics.MessagesSubmittedTotal.Inc()

	return c.JSON(http.StatusAccepted, sendMessageResponse{
		MessageID: id,
		Status:    string(domain.StatusPending),
	})
}

// Poll handles GET /v1/messages.
//
// @Summary      Poll messages addressed to the caller, any status
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        since  query     int  false  "Return messages with id greater than this"
// @Param        limit  query     int  false  "Maximum number of messages"
// @Success      200    {object}  pollResponse
// @Failure      401    {object}  errorResponse
// @Failure      422    {object}  errorResponse
// @Router       /v1/messages [get]
func (h *MessageHandler) Poll(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	var q pollQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}

	msgs, err := h.service.Poll(c.Request().Context(), user.ID, q.Since, q.Limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, pollResponse{Messages: toMessageResponses(msgs)})
}

// MarkConsumed handles POST /v1/messages/:id/consumed.
//
// @Summary      Mark a message as consumed
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Message id"
// @Success      200  {object}  statusResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/messages/{id}/consumed [post]
func (h *MessageHandler) MarkConsumed(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid message id")
	}

	if err := h.service.MarkConsumed(c.Request().Context(), id, user.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, statusResponse{Status: "consumed"})
}
