package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/troupehq/troupe/internal/store"
)

// ConfigsHandler exposes the runtime settings key/value table. Values take
// effect on the next message; nothing is cached across requests.
type ConfigsHandler struct {
	store  store.Store
	logger *slog.Logger
}

func NewConfigsHandler(log *slog.Logger, st store.Store) *ConfigsHandler {
	return &ConfigsHandler{
		store:  st,
		logger: log.With(slog.String("handler", "configs")),
	}
}

func (h *ConfigsHandler) Register(e *echo.Echo) {
	g := e.Group("/configs")
	g.GET("", h.List)
	g.GET("/:key", h.Get)
	g.PUT("/:key", h.Set)
}

type configValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (h *ConfigsHandler) List(c echo.Context) error {
	configs, err := h.store.ListConfigs(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, configs)
}

func (h *ConfigsHandler) Get(c echo.Context) error {
	key := c.Param("key")
	value, err := h.store.GetConfig(c.Request().Context(), key)
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "config not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, configValue{Key: key, Value: value})
}

func (h *ConfigsHandler) Set(c echo.Context) error {
	var body configValue
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	key := c.Param("key")
	if err := h.store.SetConfig(c.Request().Context(), key, body.Value); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.logger.Info("config updated", slog.String("key", key))
	return c.JSON(http.StatusOK, configValue{Key: key, Value: body.Value})
}
