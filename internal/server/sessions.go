package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/curator/internal/curation"
	"github.com/mohammad-safakhou/curator/models"
)

// SessionManager is the part of curation.Manager the HTTP layer drives.
type SessionManager interface {
	StartSession(ctx context.Context, req models.Requester, category string) (*curation.Session, error)
	Stop() error
	State() curation.State
	Current() (curation.Snapshot, bool)
}

type SessionsHandler struct {
	Manager   SessionManager
	Notifier  curation.Notifier
	Requester models.Requester
	// DefaultCategory is used when a start request names none.
	DefaultCategory string
}

func (h *SessionsHandler) Register(g *echo.Group, mw ...echo.MiddlewareFunc) {
	g.Use(mw...)
	g.POST("", h.start)
	g.DELETE("", h.stop)
	g.GET("/current", h.current)
}

// Start
//
//	@Summary		Start a curation session
//	@Description	Supersedes any active session, fetches a batch and presents it to the operator
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		StartSessionRequest	false	"Optional category"
//	@Success		201		{object}	StartSessionResponse
//	@Success		200		{object}	StartSessionResponse	"No new candidates"
//	@Failure		409		{object}	HTTPError
//	@Router			/api/sessions [post]
func (h *SessionsHandler) start(c echo.Context) error {
	var req StartSessionRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = h.DefaultCategory
	}

	ctx := c.Request().Context()
	if h.Notifier != nil {
		notice := "Fetching a fresh batch for you 🧙‍♂️..."
		if category != "" {
			notice = fmt.Sprintf("Fetching a fresh batch from %s 🧙‍♂️...", category)
		}
		_, _ = h.Notifier.Send(ctx, h.Requester, models.Message{Text: notice})
	}
	s, err := h.Manager.StartSession(ctx, h.Requester, category)
	switch {
	case err == nil:
		snap := s.Snapshot()
		return c.JSON(http.StatusCreated, StartSessionResponse{Status: "presented", Session: &snap})
	case errors.Is(err, models.ErrEmptyBatch):
		return c.JSON(http.StatusOK, StartSessionResponse{Status: "empty"})
	case errors.Is(err, curation.ErrSessionSuperseded), errors.Is(err, curation.ErrSessionStopped):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, curation.ErrManagerClosed):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
}

// Stop
//
//	@Summary	Stop the active session without publishing
//	@Tags		sessions
//	@Success	204
//	@Failure	404	{object}	HTTPError
//	@Router		/api/sessions [delete]
func (h *SessionsHandler) stop(c echo.Context) error {
	if err := h.Manager.Stop(); err != nil {
		if errors.Is(err, curation.ErrNoActiveSession) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// Current
//
//	@Summary	Manager state and the active session, if any
//	@Tags		sessions
//	@Produce	json
//	@Success	200	{object}	CurrentSessionResponse
//	@Router		/api/sessions/current [get]
func (h *SessionsHandler) current(c echo.Context) error {
	resp := CurrentSessionResponse{State: h.Manager.State()}
	if snap, ok := h.Manager.Current(); ok {
		resp.Session = &snap
	}
	return c.JSON(http.StatusOK, resp)
}
