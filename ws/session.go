package ws

import (
	"context"
	"log/slog"
	"time"

	"fanshub-chat/domain"
	apperrors "fanshub-chat/errors"
	"fanshub-chat/services"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Session is one live websocket connection of one participant inside one
// conversation. A participant with two open tabs holds two sessions.
type Session struct {
	ID            string
	conn          *websocket.Conn
	service       services.IChatService
	sink          *Sink
	conv          domain.Conversation
	participantID string
	done          chan struct{}
	log           *slog.Logger
}

func NewSession(conn *websocket.Conn, service services.IChatService, sink *Sink, conv domain.Conversation, participantID string, log *slog.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		ID:            id,
		conn:          conn,
		service:       service,
		sink:          sink,
		conv:          conv,
		participantID: participantID,
		done:          make(chan struct{}),
		log:           log.With("session", id, "conversation", conv.ID, "participant", participantID),
	}
}

// ReadPump owns the connection teardown: when the read loop ends, for any
// reason, the session leaves the conversation exactly once and the write
// pump is released.
func (s *Session) ReadPump(ctx context.Context) {
	defer func() {
		s.service.Leave(s.conv.ID, s.ID, s.participantID)
		close(s.done)
		s.conn.Close()
		s.log.Info("Session closed")
	}()

	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("Unexpected close", "error", err)
			}
			return
		}
		s.handleFrame(ctx, raw)
	}
}

// handleFrame processes one inbound frame. A malformed or rejected frame is
// dropped; the connection stays open. The recover fence keeps one poisoned
// frame from taking the whole session down.
func (s *Session) handleFrame(ctx context.Context, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Frame handler panicked", "panic", r)
		}
	}()

	frame, err := DecodeInbound(raw)
	if err != nil {
		s.log.Warn("Malformed frame dropped")
		return
	}

	switch frame.Type {
	case FrameChatText:
		err = s.service.SendText(ctx, s.conv.ID, s.participantID, frame.Body)
	case FrameChatMedia:
		err = s.service.SendMedia(ctx, s.conv.ID, s.participantID, frame.Data, frame.ContentType)
	case FrameTyping:
		err = s.service.Typing(ctx, s.conv.ID, s.participantID, frame.IsTyping)
	}

	switch {
	case err == nil:
	case apperrors.IsClientError(err):
		s.log.Warn("Frame rejected", "type", frame.Type, "error", err)
	default:
		s.log.Error("Frame failed", "type", frame.Type, "error", err)
	}
}

// WritePump drains the session sink onto the wire and keeps the connection
// alive with pings. It exits when the read pump closes the session.
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case e := <-s.sink.Events:
			payload, err := EncodeEvent(e)
			if err != nil {
				s.log.Error("Event encoding failed", "error", err)
				continue
			}
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
