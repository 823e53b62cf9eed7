package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/troupehq/troupe/internal/character"
	"github.com/troupehq/troupe/internal/store"
)

// CharactersHandler manages character CRUD via the admin API.
type CharactersHandler struct {
	store  store.Store
	logger *slog.Logger
}

func NewCharactersHandler(log *slog.Logger, st store.Store) *CharactersHandler {
	return &CharactersHandler{
		store:  st,
		logger: log.With(slog.String("handler", "characters")),
	}
}

func (h *CharactersHandler) Register(e *echo.Echo) {
	g := e.Group("/characters")
	g.GET("", h.List)
	g.GET("/:name", h.Get)
	g.POST("", h.Create)
	g.PUT("/:name", h.Update)
	g.DELETE("/:name", h.Delete)
}

// List godoc
// @Summary List all characters
// @Tags characters
// @Success 200 {array} character.Character
// @Failure 500 {object} ErrorResponse
// @Router /characters [get]
func (h *CharactersHandler) List(c echo.Context) error {
	chars, err := h.store.ListCharacters(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, chars)
}

func (h *CharactersHandler) Get(c echo.Context) error {
	char, err := h.store.GetCharacter(c.Request().Context(), c.Param("name"))
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "character not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, char)
}

func (h *CharactersHandler) Create(c echo.Context) error {
	var char character.Character
	if err := c.Bind(&char); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(char.Name) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	if err := h.store.CreateCharacter(c.Request().Context(), char); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.logger.Info("character created", slog.String("name", char.Name))
	return c.JSON(http.StatusCreated, char)
}

func (h *CharactersHandler) Update(c echo.Context) error {
	var char character.Character
	if err := c.Bind(&char); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	char.Name = c.Param("name")

	err := h.store.UpdateCharacter(c.Request().Context(), char)
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "character not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, char)
}

func (h *CharactersHandler) Delete(c echo.Context) error {
	err := h.store.DeleteCharacter(c.Request().Context(), c.Param("name"))
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "character not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
