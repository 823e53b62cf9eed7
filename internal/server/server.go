package server

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/troupehq/troupe/internal/auth"
	"github.com/troupehq/troupe/internal/handlers"
)

type Server struct {
	echo *echo.Echo
	addr string
}

func NewServer(addr string, jwtSecret string, pingHandler *handlers.PingHandler, authHandler *handlers.AuthHandler, charactersHandler *handlers.CharactersHandler, dimensionsHandler *handlers.DimensionsHandler, configsHandler *handlers.ConfigsHandler, presetsHandler *handlers.PresetsHandler, pluginsHandler *handlers.PluginsHandler) *Server {
	if addr == "" {
		addr = ":8080"
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(auth.JWTMiddleware(jwtSecret, func(c echo.Context) bool {
		return shouldSkipJWT(c.Request().URL.Path)
	}))

	if pingHandler != nil {
		pingHandler.Register(e)
	}
	if authHandler != nil {
		authHandler.Register(e)
	}
	if charactersHandler != nil {
		charactersHandler.Register(e)
	}
	if dimensionsHandler != nil {
		dimensionsHandler.Register(e)
	}
	if configsHandler != nil {
		configsHandler.Register(e)
	}
	if presetsHandler != nil {
		presetsHandler.Register(e)
	}
	if pluginsHandler != nil {
		pluginsHandler.Register(e)
	}

	return &Server{
		echo: e,
		addr: addr,
	}
}

func shouldSkipJWT(path string) bool {
	return path == "/ping" || path == "/health" || path == "/auth/login"
}

func (s *Server) Start() error {
	return s.echo.Start(s.addr)
}

func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
