// Package http exposes the origination engine over echo. Handlers bind and
// validate JSON, map domain errors to status codes and delegate everything
// else to the usecases.
package http

import (
	stdhttp "net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type Handler struct{}

func NewHandler() *Handler { return &Handler{} }

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(stdhttp.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
	})
}
