package report

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/PPA-BE/Orders-At-Peak/internal/platform/httpx"
)

// PathPing reports whether PDF conversion is reachable.
const PathPing = "/api/pdf/ping"

// Handler manages report endpoints.
type Handler struct {
	client *Client
	logger *slog.Logger
}

// NewHandler creates a report handler.
func NewHandler(client *Client, logger *slog.Logger) *Handler {
	return &Handler{client: client, logger: logger}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get(PathPing, h.ping)
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		httpx.Error(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
}
