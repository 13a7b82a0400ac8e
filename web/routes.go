package web

import (
	"context"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/labstack/echo/v4"
	"github.com/mkale/sleuth/agent"
	"github.com/mkale/sleuth/chat"
	"github.com/mkale/sleuth/config"
	"github.com/mkale/sleuth/tools"
)

func (s *Server) registerRoutes() {
	s.echo.POST("/api/chat", s.sendMessage)
	s.echo.GET("/api/chat/:id", s.getChat)
	s.echo.GET("/api/config/prompts", s.getPrompts)
	s.echo.GET("/api/config/system", s.getSystemConfig)
	s.echo.GET("/api/files/download", s.downloadFile)
}

type sendMessageRequest struct {
	Message string `json:"message"`
	ChatID  string `json:"chat_id"`
}

// sendMessage appends a user message and schedules one loop invocation in
// the background. Creates a new chat when no id is given.
func (s *Server) sendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Message is required")
	}

	var conv *chat.Conversation
	if req.ChatID != "" {
		existing, ok := s.store.Get(req.ChatID)
		if !ok {
			return echo.NewHTTPError(http.StatusNotFound, "Chat not found")
		}
		if existing.Processing() {
			return echo.NewHTTPError(http.StatusConflict, "Chat is still processing")
		}
		conv = existing
	} else {
		conv = s.store.Create()
	}

	conv.AddUserMessage(message)
	// The flag goes up before the worker is dispatched; a poller (or a
	// second message) must never observe processing=false while a run is
	// about to start.
	conv.SetProcessing(true)

	go func() {
		defer conv.SetProcessing(false)
		s.agent.ProcessMessage(context.Background(), conv)
	}()

	return c.JSON(http.StatusOK, map[string]string{"chat_id": conv.ID()})
}

// getChat polls for messages appended at or after the "since" index.
func (s *Server) getChat(c echo.Context) error {
	since, _ := strconv.Atoi(c.QueryParam("since"))
	view, ok := s.store.View(c.Param("id"), since)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Chat not found")
	}
	return c.JSON(http.StatusOK, view)
}

func (s *Server) getPrompts(c echo.Context) error {
	prompts := s.cfg.PrebuiltPrompts
	if prompts == nil {
		prompts = []config.PrebuiltPrompt{}
	}
	return c.JSON(http.StatusOK, prompts)
}

// getSystemConfig exposes the full agent setup: prompt, tool schemas, and
// runtime settings.
func (s *Server) getSystemConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"system_prompt": agent.BuildSystemPrompt(),
		"tools":         tools.Schemas(),
		"agent": map[string]any{
			"model":          s.cfg.Agent.Model,
			"max_tool_calls": s.cfg.Agent.MaxToolCalls,
			"temperature":    s.cfg.Agent.Temperature,
		},
		"prebuilt_prompts": s.cfg.PrebuiltPrompts,
	})
}

// downloadFile serves one downloaded artifact. The path must stay inside
// the download dir and the filename must match a configured serve pattern.
func (s *Server) downloadFile(c echo.Context) error {
	requested := c.QueryParam("path")
	if requested == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "path is required")
	}

	baseDir, err := filepath.Abs(s.cfg.Download.BaseDir)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "download dir unavailable")
	}
	full, err := filepath.Abs(filepath.Join(baseDir, requested))
	if err != nil || !strings.HasPrefix(full, baseDir+string(filepath.Separator)) {
		return echo.NewHTTPError(http.StatusForbidden, "Access denied")
	}

	name := filepath.Base(full)
	if !s.servable(name) {
		return echo.NewHTTPError(http.StatusForbidden, "Access denied")
	}

	return c.Attachment(full, name)
}

// servable checks the filename against the configured glob allowlist.
func (s *Server) servable(name string) bool {
	lower := strings.ToLower(name)
	for _, pattern := range s.cfg.Download.ServePatterns {
		if ok, err := doublestar.Match(strings.ToLower(pattern), lower); err == nil && ok {
			return true
		}
	}
	return false
}
