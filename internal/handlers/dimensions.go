package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/troupehq/troupe/internal/dimension"
	"github.com/troupehq/troupe/internal/store"
)

// DimensionsHandler manages per-conversation context records.
type DimensionsHandler struct {
	store  store.Store
	logger *slog.Logger
}

func NewDimensionsHandler(log *slog.Logger, st store.Store) *DimensionsHandler {
	return &DimensionsHandler{
		store:  st,
		logger: log.With(slog.String("handler", "dimensions")),
	}
}

func (h *DimensionsHandler) Register(e *echo.Echo) {
	g := e.Group("/dimensions")
	g.GET("", h.List)
	g.GET("/:channel_id", h.Get)
	g.PUT("/:channel_id", h.Upsert)
	g.DELETE("/:channel_id", h.Delete)
}

func (h *DimensionsHandler) List(c echo.Context) error {
	dims, err := h.store.ListDimensions(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, dims)
}

func (h *DimensionsHandler) Get(c echo.Context) error {
	dim, err := h.store.GetDimension(c.Request().Context(), c.Param("channel_id"))
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "dimension not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, dim)
}

// Upsert creates the dimension when missing, then applies the update, so
// the admin UI can configure a channel before the first message arrives.
func (h *DimensionsHandler) Upsert(c echo.Context) error {
	var dim dimension.Dimension
	if err := c.Bind(&dim); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	dim.ChannelID = c.Param("channel_id")

	ctx := c.Request().Context()
	if _, err := h.store.EnsureDimension(ctx, dim.ChannelID, dim.Name); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.store.UpdateDimension(ctx, dim); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.logger.Info("dimension updated", slog.String("channel", dim.ChannelID))
	return c.JSON(http.StatusOK, dim)
}

func (h *DimensionsHandler) Delete(c echo.Context) error {
	err := h.store.DeleteDimension(c.Request().Context(), c.Param("channel_id"))
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "dimension not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
