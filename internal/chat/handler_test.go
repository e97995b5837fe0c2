package chat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/avasilyev/mailsmith/internal/api"
	"github.com/avasilyev/mailsmith/internal/identity"
	"github.com/avasilyev/mailsmith/internal/llm"
)

func newChatHandler(mock *fakeLLM) *Handler {
	svc := NewService(mock, &fakeSearcher{url: "https://images.example/x.jpg"}, "gpt-4o")
	return NewHandler(svc, api.NewRateLimiter(100, time.Minute), NoopConversationLogger{})
}

func chatBody() string {
	return `{
		"systemPrompt": "You are an AI assistant that helps with email template modifications.",
		"userMessage": "make it blue",
		"userChatHistory": [{"role": "user", "content": "hi"}],
		"emailContent": "<p>A</p>"
	}`
}

func TestHandleChatUnauthorized(t *testing.T) {
	mock := &fakeLLM{responses: []*llm.ChatCompletion{textCompletion("unexpected")}}
	h := newChatHandler(mock)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(chatBody()))
	w := httptest.NewRecorder()
	h.HandleChat(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if len(mock.requests) != 0 {
		t.Fatalf("expected zero upstream calls, got %d", len(mock.requests))
	}
}

func TestHandleChatSuccess(t *testing.T) {
	mock := &fakeLLM{responses: []*llm.ChatCompletion{textCompletion("<p>A blue</p>")}}
	h := newChatHandler(mock)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(chatBody()))
	req = req.WithContext(identity.WithIdentity(req.Context(), "anon_user", "tab-1"))
	w := httptest.NewRecorder()
	h.HandleChat(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var result UpdateChatResult
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !result.Success {
		t.Error("expected success=true")
	}
	if result.Response != "<p>A blue</p>" {
		t.Errorf("response = %q", result.Response)
	}
}

func TestHandleChatInvalidBody(t *testing.T) {
	mock := &fakeLLM{}
	h := newChatHandler(mock)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{not json`))
	req = req.WithContext(identity.WithIdentity(req.Context(), "anon_user", "tab-1"))
	w := httptest.NewRecorder()
	h.HandleChat(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if len(mock.requests) != 0 {
		t.Fatal("expected no upstream calls for invalid body")
	}
}

func TestHandleChatMalformedHistoryRole(t *testing.T) {
	mock := &fakeLLM{}
	h := newChatHandler(mock)

	body := `{"userMessage":"x","userChatHistory":[{"role":"tool","content":"y"}],"emailContent":""}`
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req = req.WithContext(identity.WithIdentity(req.Context(), "anon_user", "tab-1"))
	w := httptest.NewRecorder()
	h.HandleChat(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHandleChatUpstreamFailure(t *testing.T) {
	mock := &fakeLLM{responses: []*llm.ChatCompletion{nil}, errs: []error{llm.ErrUnavailable}}
	h := newChatHandler(mock)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(chatBody()))
	req = req.WithContext(identity.WithIdentity(req.Context(), "anon_user", "tab-1"))
	w := httptest.NewRecorder()
	h.HandleChat(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}

func TestHandleChatRateLimit(t *testing.T) {
	mock := &fakeLLM{responses: []*llm.ChatCompletion{textCompletion("a"), textCompletion("b")}}
	svc := NewService(mock, &fakeSearcher{}, "gpt-4o")
	h := NewHandler(svc, api.NewRateLimiter(1, time.Minute), NoopConversationLogger{})

	for i, wantStatus := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(chatBody()))
		req = req.WithContext(identity.WithIdentity(req.Context(), "anon_user", "tab-1"))
		w := httptest.NewRecorder()
		h.HandleChat(w, req)
		if w.Code != wantStatus {
			t.Fatalf("request %d: status = %d, want %d", i, w.Code, wantStatus)
		}
	}
}
