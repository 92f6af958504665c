package realtime_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"taskboard/backend/internal/realtime"
	"taskboard/backend/internal/services"

	"github.com/gofrs/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*realtime.Hub, *httptest.Server, context.CancelFunc) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	hub := realtime.NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		workspaceID := uuid.FromStringOrNil(r.URL.Query().Get("workspace"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		realtime.NewClient(hub, conn, workspaceID, uuid.Must(uuid.NewV4())).Serve()
	}))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, srv, cancel
}

func dial(t *testing.T, hub *realtime.Hub, srv *httptest.Server, workspaceID uuid.UUID, want int) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?workspace=" + workspaceID.String()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.Clients(workspaceID) == want }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func TestHubDeliversOnlyToWorkspaceRoom(t *testing.T) {
	hub, srv, _ := startHub(t)
	wsA := uuid.Must(uuid.NewV4())
	wsB := uuid.Must(uuid.NewV4())

	connA := dial(t, hub, srv, wsA, 1)
	connB := dial(t, hub, srv, wsB, 1)

	taskID := uuid.Must(uuid.NewV4())
	hub.Publish(context.Background(), services.BoardEvent{
		Type:        services.EventTaskMoved,
		WorkspaceID: wsA,
		ResourceID:  taskID,
	})

	connA.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := connA.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type string              `json:"type"`
		Data services.BoardEvent `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "task.moved", msg.Type)
	assert.Equal(t, taskID, msg.Data.ResourceID)

	connB.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = connB.ReadMessage()
	assert.Error(t, err, "other workspace must not receive the event")

	stats := hub.Stats()
	assert.Equal(t, 2, stats["clients"])
	assert.Equal(t, 2, stats["workspaces"])
}

func TestClientAnswersPing(t *testing.T) {
	hub, srv, _ := startHub(t)
	conn := dial(t, hub, srv, uuid.Must(uuid.NewV4()), 1)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg realtime.Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "pong", msg.Type)
}

func TestClientDisconnectLeavesRoom(t *testing.T) {
	hub, srv, _ := startHub(t)
	workspaceID := uuid.Must(uuid.NewV4())
	conn := dial(t, hub, srv, workspaceID, 1)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Clients(workspaceID) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubStopClosesClients(t *testing.T) {
	hub, srv, cancel := startHub(t)
	workspaceID := uuid.Must(uuid.NewV4())
	conn := dial(t, hub, srv, workspaceID, 1)

	cancel()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Eventually(t, func() bool { return hub.Clients(workspaceID) == 0 }, 2*time.Second, 10*time.Millisecond)
}
