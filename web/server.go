// Package web exposes the chat API: sending messages, polling for new ones,
// configuration transparency, and verified-file downloads.
package web

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mkale/sleuth/agent"
	"github.com/mkale/sleuth/chat"
	"github.com/mkale/sleuth/config"
	"github.com/rs/zerolog"
)

type Server struct {
	echo   *echo.Echo
	store  *chat.Store
	agent  *agent.Agent
	cfg    *config.Config
	logger zerolog.Logger
}

func NewServer(cfg *config.Config, a *agent.Agent, store *chat.Store, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:   e,
		store:  store,
		agent:  a,
		cfg:    cfg,
		logger: logger.With().Str("component", "web").Logger(),
	}
	s.registerRoutes()
	return s
}

// Start blocks serving on addr.
func (s *Server) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("starting server")
	return s.echo.Start(addr)
}
