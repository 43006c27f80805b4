package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zhouzirui/companionbot/backend/internal/middleware"
	"github.com/zhouzirui/companionbot/backend/internal/model/wellness"
	"github.com/zhouzirui/companionbot/backend/internal/repository"
	"github.com/zhouzirui/companionbot/backend/internal/service/ai"
	authService "github.com/zhouzirui/companionbot/backend/internal/service/auth"
	chatService "github.com/zhouzirui/companionbot/backend/internal/service/chat"
	"github.com/zhouzirui/companionbot/backend/internal/service/sentiment"
)

func newTestRouter() http.Handler {
	chatSvc := chatService.NewService(
		sentiment.NewClassifier(nil, sentiment.Config{}),
		ai.NewGenerator(nil, ai.GeneratorConfig{}),
		repository.NewMemoryTurnStore(),
		chatService.Config{},
	)
	return NewRouter(Dependencies{
		Chat:       chatSvc,
		Auth:       authService.NewService(repository.NewMemoryUserStore(), authService.Config{Secret: "test"}),
		Activities: wellness.NewMemoryStore(wellness.Seed()),
		Limiter:    middleware.NewRateLimiter(middleware.RateLimitConfig{}),
		Status:     func() map[string]string { return map[string]string{"sentiment": "heuristic"} },
	})
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestRootAndHealth(t *testing.T) {
	h := newTestRouter()

	resp := do(t, h, http.MethodGet, "/api/", "", nil)
	if resp.Code != http.StatusOK || !bytes.Contains(resp.Body.Bytes(), []byte("CompanionBot API - Mental Health Support")) {
		t.Fatalf("unexpected root response %d %s", resp.Code, resp.Body.String())
	}

	resp = do(t, h, http.MethodGet, "/api/health", "", nil)
	if resp.Code != http.StatusOK || !bytes.Contains(resp.Body.Bytes(), []byte(`"sentiment":"heuristic"`)) {
		t.Fatalf("unexpected health response %d %s", resp.Code, resp.Body.String())
	}
}

func TestChatRequiresToken(t *testing.T) {
	h := newTestRouter()
	if resp := do(t, h, http.MethodGet, "/api/chat/history", "", nil); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if resp := do(t, h, http.MethodGet, "/api/chat/history", "garbage", nil); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token, got %d", resp.Code)
	}
}

func TestFullTurnFlow(t *testing.T) {
	h := newTestRouter()

	resp := do(t, h, http.MethodPost, "/api/auth/register", "", map[string]string{"username": "alice", "password": "pw"})
	if resp.Code != http.StatusOK {
		t.Fatalf("register: %d %s", resp.Code, resp.Body.String())
	}
	var session struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &session)

	resp = do(t, h, http.MethodPost, "/api/chat/message", session.Token, map[string]string{"message": "I feel so anxious today"})
	if resp.Code != http.StatusOK {
		t.Fatalf("message: %d %s", resp.Code, resp.Body.String())
	}
	var turn struct {
		Sentiment   string `json:"sentiment"`
		BotResponse string `json:"bot_response"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &turn)
	if turn.Sentiment != "NEGATIVE" || turn.BotResponse != ai.FallbackReply {
		t.Fatalf("unexpected turn %+v", turn)
	}

	resp = do(t, h, http.MethodGet, "/api/chat/history", session.Token, nil)
	var history []map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &history)
	if len(history) != 1 {
		t.Fatalf("expected one turn in history, got %d", len(history))
	}

	resp = do(t, h, http.MethodDelete, "/api/chat/clear", session.Token, nil)
	if resp.Code != http.StatusOK || !bytes.Contains(resp.Body.Bytes(), []byte("Cleared 1 messages")) {
		t.Fatalf("clear: %d %s", resp.Code, resp.Body.String())
	}
}

func TestWellnessIsPublic(t *testing.T) {
	h := newTestRouter()
	if resp := do(t, h, http.MethodGet, "/api/wellness/activities", "", nil); resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}
