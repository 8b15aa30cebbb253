package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pyrometer-service/internal/config"
	"pyrometer-service/internal/driver/optris"
	"pyrometer-service/internal/driver/optris/optristest"
	"pyrometer-service/internal/middleware"
	"pyrometer-service/internal/repository"
	"pyrometer-service/internal/service"
)

type testServer struct {
	router    *gin.Engine
	device    *optristest.Device
	service   *service.PyrometerService
	bus       *service.EventBus
	websocket *WebSocketHandler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newPollingTestServer(t, time.Hour)
}

func newPollingTestServer(t *testing.T, interval time.Duration) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	cfg := &config.Config{
		App: config.AppConfig{Name: "pyrometer-service", Version: "test", Environment: "test"},
		Device: config.DeviceConfig{
			ID:               "cslaser-test",
			Port:             "/dev/ttyUSB0",
			PollingInterval:  interval,
			OperationTimeout: time.Second,
		},
		Database: config.DatabaseConfig{Retention: 24 * time.Hour},
	}

	device := optristest.NewDevice()
	session := optris.NewSession(optris.DefaultConfig(cfg.Device.ID), logger, optris.WithTransportFactory(device.Factory()))
	repo := repository.NewMemoryOperationRepository()
	bus := service.NewEventBus(logger)
	go bus.Start()

	pyrometerService := service.NewPyrometerService(cfg, session, repo, bus, logger)
	operationService := service.NewOperationService(repo, cfg, logger)
	wsHandler := NewWebSocketHandler(pyrometerService, bus, nil, logger)

	router := gin.New()
	router.Use(middleware.RequestIDMiddleware())
	NewHealthHandler(nil, pyrometerService, cfg, logger).RegisterRoutes(router.Group(""))
	api := router.Group("/api/v1")
	NewDeviceHandler(pyrometerService, logger).RegisterRoutes(api)
	NewOperationHandler(operationService, logger).RegisterRoutes(api)
	wsHandler.RegisterRoutes(router.Group("/ws"))

	t.Cleanup(func() {
		_ = pyrometerService.Close()
		bus.Close()
	})

	return &testServer{
		router:    router,
		device:    device,
		service:   pyrometerService,
		bus:       bus,
		websocket: wsHandler,
	}
}

type apiResponse struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"request_id"`
	Error     *struct {
		Code    string `json:"code"`
		Details string `json:"details"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, body string) (int, apiResponse) {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp apiResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w.Code, resp
}

func (s *testServer) connect(t *testing.T) {
	t.Helper()
	code, resp := s.do(t, http.MethodPost, "/api/v1/device/connect", "")
	require.Equal(t, http.StatusOK, code, resp.Message)

	require.Eventually(t, func() bool {
		_, ok := s.service.LastReading()
		return ok
	}, 2*time.Second, 5*time.Millisecond)
}

func TestDeviceHandler_ConnectAndStatus(t *testing.T) {
	s := newTestServer(t)

	code, resp := s.do(t, http.MethodGet, "/api/v1/device/temperature", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)

	s.connect(t)
	assert.Equal(t, "/dev/ttyUSB0", s.device.Port())

	code, resp = s.do(t, http.MethodGet, "/api/v1/device/status", "")
	require.Equal(t, http.StatusOK, code)
	var status service.DeviceStatusResponse
	require.NoError(t, json.Unmarshal(resp.Data, &status))
	assert.True(t, status.Connected)
	assert.Equal(t, "cslaser-test", status.DeviceID)
	assert.NotEmpty(t, resp.RequestID)

	code, resp = s.do(t, http.MethodGet, "/api/v1/device/temperature", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `23.5`, string(extract(t, resp.Data, "celsius")))

	code, _ = s.do(t, http.MethodPost, "/api/v1/device/connect", `{"port":"/dev/ttyUSB1"}`)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/device/disconnect", "")
	assert.Equal(t, http.StatusOK, code)
	assert.False(t, s.service.IsConnected())
}

func TestDeviceHandler_ConnectOpenFailure(t *testing.T) {
	s := newTestServer(t)
	s.device.OpenErr = optristest.ErrUnplugged

	code, resp := s.do(t, http.MethodPost, "/api/v1/device/connect", "")
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "DEVICE_REJECTED", resp.Error.Code)
}

func TestDeviceHandler_CommandStatusMapping(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodGet, "/api/v1/device/emissivity", "")
	assert.Equal(t, http.StatusConflict, code, "not connected")

	s.connect(t)

	code, _ = s.do(t, http.MethodPut, "/api/v1/device/emissivity", `{"value": 1.5}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPut, "/api/v1/device/emissivity", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/device/commands", `{"kind":"reboot"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	s.device.Truncate(0)
	code, resp := s.do(t, http.MethodGet, "/api/v1/device/emissivity", "")
	assert.Equal(t, http.StatusGatewayTimeout, code)
	assert.Equal(t, "DEVICE_TIMEOUT", resp.Error.Code)

	s.device.CorruptNextEcho()
	code, _ = s.do(t, http.MethodPut, "/api/v1/device/laser", `{"on": true}`)
	assert.Equal(t, http.StatusBadGateway, code)

	code, resp = s.do(t, http.MethodPut, "/api/v1/device/emissivity", `{"value": 0.9}`)
	require.Equal(t, http.StatusOK, code)
	var result service.CommandResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, "set_emissivity", string(result.Kind))
	assert.Equal(t, uint16(900), s.device.EmissivityRaw())

	code, resp = s.do(t, http.MethodPost, "/api/v1/device/laser/toggle", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `true`, string(extract(t, extract(t, resp.Data, "result"), "on")))
	assert.True(t, s.device.LaserOn())

	code, _ = s.do(t, http.MethodPost, "/api/v1/device/commands", `{"kind":"head_temperature"}`)
	assert.Equal(t, http.StatusOK, code)
}

func TestOperationHandler_ListAndGet(t *testing.T) {
	s := newTestServer(t)
	s.connect(t)

	code, _ := s.do(t, http.MethodGet, "/api/v1/device/laser", "")
	require.Equal(t, http.StatusOK, code)
	s.device.Truncate(0)
	code, _ = s.do(t, http.MethodGet, "/api/v1/device/laser", "")
	require.Equal(t, http.StatusGatewayTimeout, code)

	code, resp := s.do(t, http.MethodGet, "/api/v1/operations?sort_order=asc", "")
	require.Equal(t, http.StatusOK, code)

	var list struct {
		Operations []struct {
			ID     string `json:"id"`
			Kind   string `json:"kind"`
			Status string `json:"status"`
		} `json:"operations"`
		Pagination service.PaginationResult `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	require.Len(t, list.Operations, 2)
	assert.Equal(t, 2, list.Pagination.Total)
	assert.Equal(t, "SUCCESS", list.Operations[0].Status)
	assert.Equal(t, "TIMEOUT", list.Operations[1].Status)

	code, resp = s.do(t, http.MethodGet, "/api/v1/operations?status=TIMEOUT", "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Len(t, list.Operations, 1)

	code, _ = s.do(t, http.MethodGet, "/api/v1/operations/"+list.Operations[0].ID, "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/operations/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/operations/6f1c8a52-4a8e-4d47-9a57-2a1f0c9b7e11", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/operations?kind=reboot", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/operations/stats", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestHealthHandler_InMemoryJournal(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "healthy", health.Checks["database"].Status)
	assert.Equal(t, "disconnected", health.Checks["device"].Status)

	for _, path := range []string{"/ready", "/live"} {
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestDeviceErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrUnknownCommand, http.StatusBadRequest},
		{optris.ErrInvalidEmissivity, http.StatusBadRequest},
		{optris.ErrNotConnected, http.StatusConflict},
		{service.ErrAlreadyConnected, http.StatusConflict},
		{&optris.ConnectError{Port: "/dev/ttyUSB0", Err: optristest.ErrUnplugged}, http.StatusBadGateway},
		{optris.ErrTimeout, http.StatusGatewayTimeout},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		status, _ := deviceErrorStatus(tc.err)
		assert.Equal(t, tc.want, status, tc.err.Error())
	}
}

func extract(t *testing.T, raw json.RawMessage, key string) json.RawMessage {
	t.Helper()
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))
	value, ok := fields[key]
	require.True(t, ok, key)
	return value
}
