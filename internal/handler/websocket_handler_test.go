package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialSamples(t *testing.T, s *testServer, query string) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(s.router)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/samples" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil returns the first message of the given type
func readUntil(t *testing.T, conn *websocket.Conn, messageType string) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", messageType)

		var message map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &message))
		if message["type"] == messageType {
			return message
		}
	}
}

func TestWebSocket_StreamsSamplesAndCommands(t *testing.T) {
	s := newPollingTestServer(t, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.websocket.Run(ctx)

	conn := dialSamples(t, s, "")

	initial := readUntil(t, conn, "initial_status")
	data, ok := initial["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, data["connected"])

	require.NoError(t, s.service.Connect(context.Background(), "/dev/ttyUSB0"))

	sample := readUntil(t, conn, "temperature_sample")
	event, ok := sample["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "TEMPERATURE_SAMPLE", event["event_type"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":       "device_command",
		"request_id": "req-1",
		"data":       map[string]interface{}{"kind": "get_laser"},
	}))

	response := readUntil(t, conn, "command_response")
	assert.Equal(t, "req-1", response["request_id"])
	result, ok := response["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, result["success"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":       "device_command",
		"request_id": "req-2",
		"data":       map[string]interface{}{"kind": "set_emissivity", "payload": map[string]interface{}{"value": 2}},
	}))

	response = readUntil(t, conn, "command_response")
	assert.Equal(t, "req-2", response["request_id"])
	result = response["data"].(map[string]interface{})
	assert.Equal(t, false, result["success"])
	assert.EqualValues(t, http.StatusBadRequest, result["status"])
}

func TestWebSocket_PingAndUnknownMessage(t *testing.T) {
	s := newTestServer(t)
	conn := dialSamples(t, s, "?topic=diagnostic")
	readUntil(t, conn, "initial_status")

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "ping", "request_id": "p"}))
	pong := readUntil(t, conn, "pong")
	assert.Equal(t, "p", pong["request_id"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "reboot"}))
	readUntil(t, conn, "error")

	stats := s.websocket.GetConnectionStats()
	assert.Equal(t, 1, stats.TotalConnections)
	assert.Equal(t, 1, stats.ByTopic["diagnostic"])
}

func TestConnectionManager_TopicFiltering(t *testing.T) {
	manager := NewConnectionManager()

	all := &Client{ID: "all", Send: make(chan []byte, 4)}
	diagnostics := &Client{ID: "diag", Send: make(chan []byte, 4)}
	diagnostics.Subscribe("DIAGNOSTIC")

	manager.Register(all)
	manager.Register(diagnostics)

	assert.Equal(t, 1, manager.Broadcast("temperature_sample", []byte("a")))
	assert.Equal(t, 2, manager.Broadcast("diagnostic", []byte("b")))
	assert.Len(t, all.Send, 2)
	assert.Len(t, diagnostics.Send, 1)

	manager.Unregister(diagnostics)
	manager.Unregister(diagnostics)
	assert.False(t, manager.SendTo(diagnostics, []byte("c")))

	manager.CloseAll()
	assert.Equal(t, 0, manager.GetStats().TotalConnections)

	queued := 0
	for range all.Send {
		queued++
	}
	assert.Equal(t, 2, queued)
}
