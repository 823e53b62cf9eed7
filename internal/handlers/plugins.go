package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/troupehq/troupe/internal/plugin"
)

// PluginsHandler exposes the plugin registry for inspection and manual
// reloads. The filesystem watcher covers the common case; the reload
// endpoint exists for deployments without inotify.
type PluginsHandler struct {
	registry *plugin.Registry
	logger   *slog.Logger
}

func NewPluginsHandler(log *slog.Logger, reg *plugin.Registry) *PluginsHandler {
	return &PluginsHandler{
		registry: reg,
		logger:   log.With(slog.String("handler", "plugins")),
	}
}

func (h *PluginsHandler) Register(e *echo.Echo) {
	g := e.Group("/plugins")
	g.GET("", h.List)
	g.POST("/reload", h.Reload)
}

func (h *PluginsHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, h.registry.Names())
}

func (h *PluginsHandler) Reload(c echo.Context) error {
	if err := h.registry.Reload(); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	names := h.registry.Names()
	h.logger.Info("plugins reloaded", slog.Int("count", len(names)))
	return c.JSON(http.StatusOK, names)
}
