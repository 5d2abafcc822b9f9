package test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fanshub-chat/api"
	"fanshub-chat/auth"
	"fanshub-chat/moderation"
	"fanshub-chat/presence"
	"fanshub-chat/repositories"
	"fanshub-chat/runtime"
	"fanshub-chat/runtime/workers"
	"fanshub-chat/services"
	"fanshub-chat/storage"
	"fanshub-chat/ws"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/kelseyhightower/envconfig"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	PresenceCooldown time.Duration `envconfig:"E2E_PRESENCE_COOLDOWN" default:"150ms"`
	BufferSize       int           `envconfig:"E2E_BUFFER_SIZE" default:"64"`
	SinkTimeout      time.Duration `envconfig:"E2E_SINK_TIMEOUT" default:"1s"`
	JWTSecret        string        `envconfig:"E2E_JWT_SECRET" default:"integration-secret"`
}

type testStack struct {
	server *httptest.Server
	tokens auth.TokenService
	config testConfig
}

func startStack(t *testing.T) testStack {
	req := require.New(t)
	var config testConfig
	req.NoError(envconfig.Process("", &config))

	// Reduced to 16 Mo for testing (avoid 20 Go of storage)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)

	log := slog.Default()
	blobs, err := storage.NewDiskBlobStore(t.TempDir(), "/media", log)
	req.NoError(err)
	moderator, err := moderation.NewModerator([]string{"crypto"}, '*')
	req.NoError(err)

	registry := runtime.NewRegistry()
	broadcaster := runtime.NewBroadcaster(registry, config.BufferSize, config.SinkTimeout, log)
	tracker := presence.NewTracker(broadcaster, config.PresenceCooldown, log)
	telemetry := workers.NewTelemetryWorker(time.Minute, log)

	supervisor := workers.NewSupervisor(log, 200*time.Millisecond)
	supervisor.Add(runtime.NewFanoutWorker(broadcaster, log), telemetry)
	ctx, cancel := context.WithCancel(context.Background())
	go supervisor.Run(ctx)

	tokens := auth.NewTokenService(config.JWTSecret)
	service := services.NewChatService(
		repositories.NewConversationRepository(db, log),
		repositories.NewMessageRepository(db, log, lo.ToPtr(100)),
		blobs, registry, tracker, broadcaster, &moderator, log,
	)

	mux := http.NewServeMux()
	mux.Handle("GET /ws/chats/{id}", ws.NewHandler(service, tokens, config.BufferSize, log))
	api.NewHandlers(service, tokens, registry, broadcaster, telemetry, log).Register(mux)
	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		server.Close()
		cancel()
		supervisor.Stop()
		db.Close()
	})
	return testStack{server: server, tokens: tokens, config: config}
}

func (s testStack) bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := s.tokens.GenerateToken(userID, time.Hour)
	require.NoError(t, err)
	return token
}

func (s testStack) startConversation(t *testing.T, callerID, peerID string) string {
	req := require.New(t)
	httpReq, err := http.NewRequest(http.MethodPost, s.server.URL+"/chats/start",
		strings.NewReader(`{"peer_id":"`+peerID+`"}`))
	req.NoError(err)
	httpReq.Header.Set("Authorization", "Bearer "+s.bearer(t, callerID))

	resp, err := http.DefaultClient.Do(httpReq)
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)

	var conv struct {
		ID string `json:"id"`
	}
	req.NoError(json.NewDecoder(resp.Body).Decode(&conv))
	return conv.ID
}

func (s testStack) dial(t *testing.T, convID, userID string) *websocket.Conn {
	req := require.New(t)
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") +
		"/ws/chats/" + convID + "?token=" + s.bearer(t, userID)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	req.NoError(err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil drains frames off the connection until one satisfies the
// predicate, skipping the rest. Interleavings of presence, typing and
// message frames are expected and legitimate.
func readUntil(t *testing.T, conn *websocket.Conn, within time.Duration, match func(map[string]any) bool) map[string]any {
	t.Helper()
	deadline := time.Now().Add(within)
	conn.SetReadDeadline(deadline)
	for time.Now().Before(deadline) {
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err)
		var frame map[string]any
		require.NoError(t, json.Unmarshal(payload, &frame))
		if match(frame) {
			return frame
		}
	}
	t.Fatal("expected frame never arrived")
	return nil
}

func frameOf(frameType string) func(map[string]any) bool {
	return func(f map[string]any) bool { return f["type"] == frameType }
}

func Test_Scenario_MessageDelivery(t *testing.T) {
	req := require.New(t)
	stack := startStack(t)
	convID := stack.startConversation(t, "alice", "bob")

	alice := stack.dial(t, convID, "alice")
	readUntil(t, alice, 2*time.Second, frameOf("presence"))

	bob := stack.dial(t, convID, "bob")
	readUntil(t, bob, 2*time.Second, frameOf("presence"))

	// When alice posts a message containing a censored word
	err := alice.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"chat_text","body":"no crypto talk"}`))
	req.NoError(err)

	// Then bob receives it masked, and so does alice's own session
	got := readUntil(t, bob, 2*time.Second, frameOf("message"))
	req.Equal("no ****** talk", got["body"])
	req.Equal("alice", got["sender_id"])
	echo := readUntil(t, alice, 2*time.Second, frameOf("message"))
	req.Equal("no ****** talk", echo["body"])

	// And the stored history agrees with what was broadcast
	httpReq, err := http.NewRequest(http.MethodGet,
		stack.server.URL+"/chats/"+convID+"/messages", nil)
	req.NoError(err)
	httpReq.Header.Set("Authorization", "Bearer "+stack.bearer(t, "bob"))
	resp, err := http.DefaultClient.Do(httpReq)
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)

	var page struct {
		Messages []struct {
			Body string `json:"body"`
			Read bool   `json:"read"`
		} `json:"messages"`
	}
	req.NoError(json.NewDecoder(resp.Body).Decode(&page))
	req.Len(page.Messages, 1)
	req.Equal("no ****** talk", page.Messages[0].Body)
	req.True(page.Messages[0].Read)
}

func Test_Scenario_TypingRelay(t *testing.T) {
	req := require.New(t)
	stack := startStack(t)
	convID := stack.startConversation(t, "alice", "bob")

	alice := stack.dial(t, convID, "alice")
	bob := stack.dial(t, convID, "bob")

	err := alice.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"typing","is_typing":true}`))
	req.NoError(err)

	got := readUntil(t, bob, 2*time.Second, frameOf("typing"))
	req.Equal("alice", got["participant_id"])
	req.Equal(true, got["is_typing"])
}

func Test_Scenario_PresenceCooldown(t *testing.T) {
	req := require.New(t)
	stack := startStack(t)
	convID := stack.startConversation(t, "alice", "bob")

	alice := stack.dial(t, convID, "alice")
	readUntil(t, alice, 2*time.Second, frameOf("presence"))

	bob := stack.dial(t, convID, "bob")
	online := readUntil(t, alice, 2*time.Second, func(f map[string]any) bool {
		return f["type"] == "presence" && f["participant_id"] == "bob"
	})
	req.Equal("online", online["status"])

	// When bob's only session closes, offline arrives after the cooldown,
	// never immediately
	disconnectedAt := time.Now()
	bob.Close()
	offline := readUntil(t, alice, 5*time.Second, func(f map[string]any) bool {
		return f["type"] == "presence" && f["participant_id"] == "bob" &&
			f["status"] == "offline"
	})
	req.NotNil(offline)
	req.GreaterOrEqual(time.Since(disconnectedAt), stack.config.PresenceCooldown)
}
