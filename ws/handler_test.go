package ws

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"fanshub-chat/auth"
	"fanshub-chat/contract"
	"fanshub-chat/domain"
	"fanshub-chat/domain/event"
	"fanshub-chat/errors"
	"fanshub-chat/mocks"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testSecret = "handler-test-secret"

func newTestServer(t *testing.T, svc *mocks.MockIChatService) (*httptest.Server, auth.TokenService) {
	tokens := auth.NewTokenService(testSecret)
	handler := NewHandler(svc, tokens, 16, slog.Default())

	mux := http.NewServeMux()
	mux.Handle("GET /ws/chats/{id}", handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, tokens
}

func wsURL(server *httptest.Server, convID domain.ConversationID, token string) string {
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	return url + "/ws/chats/" + convID.String() + "?token=" + token
}

func TestHandler_RejectsBeforeUpgrade(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockIChatService(ctrl)
	server, tokens := newTestServer(t, svc)
	convID := uuid.New()

	token, err := tokens.GenerateToken("alice", time.Hour)
	require.NoError(t, err)

	t.Run("should refuse a missing token", func(t *testing.T) {
		req := require.New(t)

		_, resp, err := websocket.DefaultDialer.Dial(wsURL(server, convID, ""), nil)

		req.Error(err)
		req.Equal(http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("should refuse a forged token", func(t *testing.T) {
		req := require.New(t)

		_, resp, err := websocket.DefaultDialer.Dial(wsURL(server, convID, "not-a-jwt"), nil)

		req.Error(err)
		req.Equal(http.StatusForbidden, resp.StatusCode)
	})

	t.Run("should refuse a non-participant without joining anything", func(t *testing.T) {
		req := require.New(t)
		svc.EXPECT().
			Authorize(convID, "alice").
			Return(domain.Conversation{}, errors.ErrNotParticipant).
			Times(1)
		svc.EXPECT().Join(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		_, resp, err := websocket.DefaultDialer.Dial(wsURL(server, convID, token), nil)

		req.Error(err)
		req.Equal(http.StatusForbidden, resp.StatusCode)
	})

	t.Run("should refuse a malformed conversation id", func(t *testing.T) {
		req := require.New(t)
		url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/chats/not-a-uuid?token=" + token

		_, resp, err := websocket.DefaultDialer.Dial(url, nil)

		req.Error(err)
		req.Equal(http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("should refuse a missing conversation", func(t *testing.T) {
		req := require.New(t)
		svc.EXPECT().
			Authorize(convID, "alice").
			Return(domain.Conversation{}, errors.ErrConversationNotFound).
			Times(1)

		_, resp, err := websocket.DefaultDialer.Dial(wsURL(server, convID, token), nil)

		req.Error(err)
		req.Equal(http.StatusNotFound, resp.StatusCode)
	})
}

func TestHandler_SessionLifecycle(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockIChatService(ctrl)
	server, tokens := newTestServer(t, svc)

	convID := uuid.New()
	conv := domain.Conversation{ID: convID, CreatorID: "alice", SubscriberID: "bob"}
	token, err := tokens.GenerateToken("alice", time.Hour)
	req.NoError(err)

	var mu sync.Mutex
	var joinedSession string
	var leftSession string
	left := make(chan struct{})

	svc.EXPECT().Authorize(convID, "alice").Return(conv, nil).Times(1)
	svc.EXPECT().
		Join(convID, gomock.Any(), "alice", gomock.Any()).
		Do(func(_ domain.ConversationID, sessionID, _ string, _ contract.EventSink) {
			mu.Lock()
			joinedSession = sessionID
			mu.Unlock()
		}).
		Times(1)
	svc.EXPECT().SendText(gomock.Any(), convID, "alice", "hello").Return(nil).Times(1)
	svc.EXPECT().
		Leave(convID, gomock.Any(), "alice").
		Do(func(_ domain.ConversationID, sessionID, _ string) {
			mu.Lock()
			leftSession = sessionID
			mu.Unlock()
			close(left)
		}).
		Times(1)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, convID, token), nil)
	req.NoError(err)

	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"chat_text","body":"hello"}`)))

	// A malformed frame is dropped, the connection survives it.
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"self-destruct"}`)))
	req.NoError(conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()

	select {
	case <-left:
	case <-time.After(2 * time.Second):
		t.Fatal("session never left the conversation")
	}
	mu.Lock()
	defer mu.Unlock()
	req.NotEmpty(joinedSession)
	req.Equal(joinedSession, leftSession)
}

func TestHandler_DeliversFanoutToClient(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockIChatService(ctrl)
	server, tokens := newTestServer(t, svc)

	convID := uuid.New()
	conv := domain.Conversation{ID: convID, CreatorID: "alice", SubscriberID: "bob"}
	token, err := tokens.GenerateToken("bob", time.Hour)
	req.NoError(err)

	sinkCh := make(chan contract.EventSink, 1)
	svc.EXPECT().Authorize(convID, "bob").Return(conv, nil).Times(1)
	svc.EXPECT().
		Join(convID, gomock.Any(), "bob", gomock.Any()).
		Do(func(_ domain.ConversationID, _, _ string, sink contract.EventSink) {
			sinkCh <- sink
		}).
		Times(1)
	left := make(chan struct{})
	svc.EXPECT().
		Leave(convID, gomock.Any(), "bob").
		Do(func(domain.ConversationID, string, string) { close(left) }).
		Times(1)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, convID, token), nil)
	req.NoError(err)
	defer func() {
		conn.Close()
		select {
		case <-left:
		case <-time.After(2 * time.Second):
			t.Fatal("session never left the conversation")
		}
	}()

	sink := <-sinkCh
	req.NoError(sink.Consume(t.Context(), event.ChatMessage{
		ID:           uuid.New(),
		Conversation: convID,
		SenderID:     "alice",
		Body:         "ping",
		At:           time.Now().UTC(),
	}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	req.NoError(err)
	req.Contains(string(payload), `"type":"message"`)
	req.Contains(string(payload), `"body":"ping"`)
}
