package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mkale/sleuth/agent"
	"github.com/mkale/sleuth/chat"
	"github.com/mkale/sleuth/config"
	"github.com/mkale/sleuth/llm"
	"github.com/mkale/sleuth/tools"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *chat.Store, *config.Config) {
	t.Helper()
	cfg := config.Default()
	cfg.Download.BaseDir = t.TempDir()

	a := agent.New(cfg, &llm.MockClient{}, tools.NewRegistry(), agent.NopAudit(), zerolog.Nop())
	store := chat.NewStore()
	return NewServer(cfg, a, store, zerolog.Nop()), store, cfg
}

func doJSON(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func doGET(s *Server, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestSendMessageRequiresContent(t *testing.T) {
	s, _, _ := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, doJSON(s, http.MethodPost, "/api/chat", `{"message":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(s, http.MethodPost, "/api/chat", `{"message":"   "}`).Code)
}

func TestSendMessageUnknownChat(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := doJSON(s, http.MethodPost, "/api/chat", `{"message":"hi","chat_id":"missing"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendMessageConflictWhileProcessing(t *testing.T) {
	s, store, _ := newTestServer(t)
	conv := store.Create()
	conv.SetProcessing(true)

	rec := doJSON(s, http.MethodPost, "/api/chat", `{"message":"hi","chat_id":"`+conv.ID()+`"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSendMessageCreatesChatAndRunsAgent(t *testing.T) {
	s, store, _ := newTestServer(t)

	rec := doJSON(s, http.MethodPost, "/api/chat", `{"message":"hello agent"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	chatID := resp["chat_id"]
	require.NotEmpty(t, chatID)

	conv, ok := store.Get(chatID)
	require.True(t, ok)

	require.Eventually(t, func() bool {
		return !conv.Processing() && conv.Len() >= 2
	}, 2*time.Second, 10*time.Millisecond)

	msgs := conv.MessagesSince(0)
	assert.Equal(t, chat.RoleUser, msgs[0].Role)
	assert.Equal(t, "hello agent", msgs[0].Content)
	assert.Equal(t, chat.RoleAssistant, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "hello agent")
}

func TestGetChatSince(t *testing.T) {
	s, store, _ := newTestServer(t)
	conv := store.Create()
	conv.AddUserMessage("one")
	conv.AddUserMessage("two")
	conv.AddUserMessage("three")

	rec := doGET(s, "/api/chat/"+conv.ID()+"?since=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var view chat.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, conv.ID(), view.ID)
	require.Len(t, view.Messages, 1)
	assert.Equal(t, "three", view.Messages[0].Content)
	assert.Equal(t, 3, view.TotalMessages)
	assert.False(t, view.Processing)
}

func TestGetChatUnknown(t *testing.T) {
	s, _, _ := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, doGET(s, "/api/chat/missing").Code)
}

func TestPromptsDefaultToEmptyArray(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := doGET(s, "/api/config/prompts")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestPromptsFromConfig(t *testing.T) {
	s, _, cfg := newTestServer(t)
	cfg.PrebuiltPrompts = []config.PrebuiltPrompt{
		{ID: "p1", Label: "Find a filing", Message: "Find the filing for", Prefill: true},
	}

	rec := doGET(s, "/api/config/prompts")
	require.Equal(t, http.StatusOK, rec.Code)

	var prompts []config.PrebuiltPrompt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prompts))
	require.Len(t, prompts, 1)
	assert.Equal(t, "p1", prompts[0].ID)
	assert.True(t, prompts[0].Prefill)
}

func TestSystemConfigExposesAgentSetup(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := doGET(s, "/api/config/system")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["system_prompt"])
	assert.Len(t, body["tools"], 3)

	agentInfo, ok := body["agent"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "gpt-4.1", agentInfo["model"])
	assert.EqualValues(t, 50, agentInfo["max_tool_calls"])
}

func TestDownloadRequiresPath(t *testing.T) {
	s, _, _ := newTestServer(t)
	assert.Equal(t, http.StatusBadRequest, doGET(s, "/api/files/download").Code)
}

func TestDownloadDeniesTraversal(t *testing.T) {
	s, _, cfg := newTestServer(t)
	outside := filepath.Join(filepath.Dir(cfg.Download.BaseDir), "secret.pdf")
	require.NoError(t, os.WriteFile(outside, []byte("top secret"), 0o644))

	rec := doGET(s, "/api/files/download?path="+url.QueryEscape("../secret.pdf"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDownloadDeniesNonServablePattern(t *testing.T) {
	s, _, cfg := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Download.BaseDir, "tool.exe"), []byte("MZ"), 0o644))

	rec := doGET(s, "/api/files/download?path=tool.exe")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDownloadServesAllowedFile(t *testing.T) {
	s, _, cfg := newTestServer(t)
	content := []byte("%PDF-1.4 fake report body")
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Download.BaseDir, "report.pdf"), content, 0o644))

	rec := doGET(s, "/api/files/download?path=report.pdf")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, content, rec.Body.Bytes())
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "report.pdf")
}
