package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/troupehq/troupe/internal/store"
)

// PresetsHandler manages stored prompt templates.
type PresetsHandler struct {
	store  store.Store
	logger *slog.Logger
}

func NewPresetsHandler(log *slog.Logger, st store.Store) *PresetsHandler {
	return &PresetsHandler{
		store:  st,
		logger: log.With(slog.String("handler", "presets")),
	}
}

func (h *PresetsHandler) Register(e *echo.Echo) {
	g := e.Group("/presets")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:name", h.Get)
	g.DELETE("/:name", h.Delete)
}

func (h *PresetsHandler) List(c echo.Context) error {
	presets, err := h.store.ListPresets(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, presets)
}

func (h *PresetsHandler) Get(c echo.Context) error {
	preset, err := h.store.GetPreset(c.Request().Context(), c.Param("name"))
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "preset not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, preset)
}

func (h *PresetsHandler) Create(c echo.Context) error {
	var preset store.Preset
	if err := c.Bind(&preset); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if preset.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "preset name is required")
	}
	if preset.Template == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "preset template is required")
	}
	created, err := h.store.CreatePreset(c.Request().Context(), preset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.logger.Info("preset created", slog.String("name", created.Name))
	return c.JSON(http.StatusCreated, created)
}

func (h *PresetsHandler) Delete(c echo.Context) error {
	err := h.store.DeletePreset(c.Request().Context(), c.Param("name"))
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "preset not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
