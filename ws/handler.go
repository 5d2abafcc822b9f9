package ws

import (
	"context"
	"log/slog"
	"net/http"

	"fanshub-chat/auth"
	apperrors "fanshub-chat/errors"
	"fanshub-chat/services"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Handler upgrades GET /ws/chats/{id} into a live session. Every check runs
// before the upgrade: a rejected caller gets a plain HTTP status and no
// connection state is ever created for it.
type Handler struct {
	service        services.IChatService
	tokens         auth.TokenService
	sinkBufferSize int
	upgrader       websocket.Upgrader
	log            *slog.Logger
}

func NewHandler(service services.IChatService, tokens auth.TokenService, sinkBufferSize int, log *slog.Logger) *Handler {
	return &Handler{
		service:        service,
		tokens:         tokens,
		sinkBufferSize: sinkBufferSize,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	userID, err := h.tokens.ValidateToken(tokenStr)
	if err != nil {
		http.Error(w, err.Error(), apperrors.HTTPStatus(err))
		return
	}

	convID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid conversation id", http.StatusBadRequest)
		return
	}

	conv, err := h.service.Authorize(convID, userID)
	if err != nil {
		http.Error(w, err.Error(), apperrors.HTTPStatus(err))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Upgrade failed", "error", err)
		return
	}

	sink := NewSink(h.sinkBufferSize)
	session := NewSession(conn, h.service, sink, conv, userID, h.log)
	h.service.Join(conv.ID, session.ID, userID, sink)

	// The request context dies when this handler returns; the hijacked
	// connection outlives it, so the pumps run on their own context.
	go session.WritePump()
	go session.ReadPump(context.Background())
}
