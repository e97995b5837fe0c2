package chat

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/avasilyev/mailsmith/internal/api"
	"github.com/avasilyev/mailsmith/internal/identity"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// maxRequestBodySize caps chat request bodies (1MB). Drafts and history are
// otherwise forwarded verbatim; the provider's own limits do the rest.
const maxRequestBodySize = 1 << 20

// Handler handles chat orchestration HTTP requests.
type Handler struct {
	svc         *Service
	rateLimiter *api.RateLimiter
	log         ConversationLogger
}

// NewHandler creates a chat handler.
func NewHandler(svc *Service, rateLimiter *api.RateLimiter, conversationLogger ConversationLogger) *Handler {
	if conversationLogger == nil {
		conversationLogger = NoopConversationLogger{}
	}
	return &Handler{
		svc:         svc,
		rateLimiter: rateLimiter,
		log:         conversationLogger,
	}
}

// RegisterRoutes registers chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/chat", h.HandleChat)
}

// HandleChat handles POST /api/chat requests.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if !h.rateLimiter.Allow(userID) {
		api.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req UpdateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	reqID := chiMiddleware.GetReqID(r.Context())
	slog.Info("Chat update request",
		"user_id", userID,
		"session_id", sessionID,
		"message_length", len(req.UserMessage),
		"draft_length", len(req.EmailContent),
		"history_turns", len(req.History),
	)
	h.log.Log(ConversationLogEvent{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		UserID:    userID,
		SessionID: sessionID,
		Direction: "outbound",
		EventType: "chat_user_message",
		Content:   req.UserMessage,
		Meta:      map[string]any{"request_id": reqID},
	})

	result, err := h.svc.UpdateChat(r.Context(), req)
	if err != nil {
		slog.Error("Chat update failed", "user_id", userID, "error", err)
		api.Error(w, http.StatusInternalServerError, "an unexpected error occurred")
		return
	}

	h.log.Log(ConversationLogEvent{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		UserID:    userID,
		SessionID: sessionID,
		Direction: "inbound",
		EventType: "chat_assistant_message",
		Content:   result.Response,
		Meta:      map[string]any{"request_id": reqID},
	})

	api.JSON(w, http.StatusOK, result)
}
