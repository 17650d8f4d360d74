package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/curator/models"
)

// Acknowledger accepts inbound operator events; transport.Hub implements it.
type Acknowledger interface {
	DeliverReply(r models.Reply) bool
	DeliverGesture(g models.Gesture) bool
}

// OperatorHandler turns chat-bridge callbacks into replies and gestures. The
// sender is always the authenticated subject, never a body field.
type OperatorHandler struct {
	Acks Acknowledger
}

func (h *OperatorHandler) Register(g *echo.Group, mw ...echo.MiddlewareFunc) {
	g.Use(mw...)
	g.POST("/replies", h.reply)
	g.POST("/gestures", h.gesture)
}

// Reply
//
//	@Summary	Deliver an operator text reply
//	@Tags		operator
//	@Accept		json
//	@Produce	json
//	@Param		payload	body		ReplyRequest	true	"Reply"
//	@Success	202		{object}	DeliveryResponse
//	@Failure	400		{object}	HTTPError
//	@Router		/api/operator/replies [post]
func (h *OperatorHandler) reply(c echo.Context) error {
	var req ReplyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.ChannelID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "channel_id required")
	}
	sender, _ := SubjectFromContext(c.Request().Context())
	consumed := h.Acks.DeliverReply(models.Reply{SenderID: sender, ChannelID: req.ChannelID, Text: req.Text})
	return c.JSON(http.StatusAccepted, DeliveryResponse{Consumed: consumed})
}

// Gesture
//
//	@Summary	Deliver an operator reaction on a presented item
//	@Tags		operator
//	@Accept		json
//	@Produce	json
//	@Param		payload	body		GestureRequest	true	"Gesture"
//	@Success	202		{object}	DeliveryResponse
//	@Failure	400		{object}	HTTPError
//	@Router		/api/operator/gestures [post]
func (h *OperatorHandler) gesture(c echo.Context) error {
	var req GestureRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.MessageID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message_id required")
	}
	sender, _ := SubjectFromContext(c.Request().Context())
	consumed := h.Acks.DeliverGesture(models.Gesture{
		SenderID:   sender,
		MessageRef: models.MessageRef(req.MessageID),
		Emoji:      req.Emoji,
	})
	return c.JSON(http.StatusAccepted, DeliveryResponse{Consumed: consumed})
}
