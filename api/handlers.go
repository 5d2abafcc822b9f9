// Package api is the narrow HTTP surface next to the websocket endpoint:
// history, conversation bootstrap and health. Everything else rides the
// socket.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"fanshub-chat/auth"
	"fanshub-chat/domain"
	apperrors "fanshub-chat/errors"
	"fanshub-chat/runtime"
	"fanshub-chat/runtime/workers"
	"fanshub-chat/services"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

type Handlers struct {
	service     services.IChatService
	tokens      auth.TokenService
	registry    *runtime.Registry
	broadcaster *runtime.Broadcaster
	telemetry   *workers.TelemetryWorker
	log         *slog.Logger
}

func NewHandlers(service services.IChatService, tokens auth.TokenService,
	registry *runtime.Registry, broadcaster *runtime.Broadcaster,
	telemetry *workers.TelemetryWorker, log *slog.Logger) *Handlers {
	return &Handlers{
		service:     service,
		tokens:      tokens,
		registry:    registry,
		broadcaster: broadcaster,
		telemetry:   telemetry,
		log:         log,
	}
}

func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /chats/start", h.StartConversation)
	mux.HandleFunc("GET /chats/{id}/messages", h.History)
	mux.HandleFunc("GET /healthz", h.Healthz)
}

// callerID authenticates the request from its bearer token, falling back to
// the token query parameter the websocket endpoint uses.
func (h *Handlers) callerID(r *http.Request) (string, error) {
	tokenStr, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		tokenStr = r.URL.Query().Get("token")
	}
	if tokenStr == "" {
		return "", apperrors.ErrInvalidToken
	}
	return h.tokens.ValidateToken(tokenStr)
}

type startConversationRequest struct {
	PeerID string `json:"peer_id" validate:"required"`
}

type conversationResponse struct {
	ID           string    `json:"id"`
	CreatorID    string    `json:"creator_id"`
	SubscriberID string    `json:"subscriber_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// StartConversation returns the caller's conversation with the named peer,
// creating it on first contact. Calling it twice, from either side, lands on
// the same conversation.
func (h *Handlers) StartConversation(w http.ResponseWriter, r *http.Request) {
	callerID, err := h.callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var body startConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperrors.ErrMalformedFrame)
		return
	}
	if err := validate.Struct(body); err != nil {
		writeError(w, apperrors.ErrMalformedFrame)
		return
	}

	conv, err := h.service.StartConversation(callerID, body.PeerID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, conversationResponse{
		ID:           conv.ID.String(),
		CreatorID:    conv.CreatorID,
		SubscriberID: conv.SubscriberID,
		CreatedAt:    conv.CreatedAt,
	})
}

type messageResponse struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"sender_id"`
	Body      string    `json:"body,omitempty"`
	MediaURL  string    `json:"media_url,omitempty"`
	MediaKind string    `json:"media_kind,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Read      bool      `json:"read"`
}

type historyResponse struct {
	Messages []messageResponse `json:"messages"`
	Cursor   *string           `json:"cursor,omitempty"`
}

// History serves one page of the conversation, newest first, and marks the
// peer's messages read: fetching the thread is what reading it means.
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	callerID, err := h.callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	convID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, apperrors.ErrMalformedFrame)
		return
	}

	if _, err := h.service.Authorize(convID, callerID); err != nil {
		writeError(w, err)
		return
	}

	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}

	messages, next, err := h.service.History(convID, callerID, cursor)
	if err != nil {
		writeError(w, err)
		return
	}

	page := historyResponse{Messages: make([]messageResponse, 0, len(messages)), Cursor: next}
	for _, m := range messages {
		page.Messages = append(page.Messages, toMessageResponse(m))
	}
	writeJSON(w, http.StatusOK, page)
}

func toMessageResponse(m domain.Message) messageResponse {
	resp := messageResponse{
		ID:        m.ID.String(),
		SenderID:  m.SenderID,
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
		Read:      m.Read,
	}
	if m.Media != nil {
		resp.MediaURL = m.Media.Path
		resp.MediaKind = string(m.Media.Kind)
	}
	return resp
}

type healthResponse struct {
	Status    string         `json:"status"`
	Sessions  int            `json:"sessions"`
	Groups    int            `json:"groups"`
	Published int64          `json:"published"`
	Process   workers.Sample `json:"process"`
}

// Healthz is unauthenticated: liveness plus the runtime counters an operator
// glances at first.
func (h *Handlers) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Sessions:  h.registry.Sessions(),
		Groups:    h.registry.Groups(),
		Published: h.broadcaster.Published(),
		Process:   h.telemetry.Last(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperrors.HTTPStatus(err), map[string]string{"error": err.Error()})
}
