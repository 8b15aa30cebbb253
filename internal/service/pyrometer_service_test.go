package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pyrometer-service/internal/config"
	"pyrometer-service/internal/driver/optris"
	"pyrometer-service/internal/driver/optris/optristest"
	"pyrometer-service/internal/model"
	"pyrometer-service/internal/poller"
	"pyrometer-service/internal/repository"
)

type fixture struct {
	service *PyrometerService
	device  *optristest.Device
	repo    repository.OperationRepository
	bus     *EventBus
	samples chan model.TemperatureReading
}

func newFixture(t *testing.T, interval time.Duration) *fixture {
	t.Helper()
	logger := zap.NewNop()

	cfg := &config.Config{
		Device: config.DeviceConfig{
			ID:                "cslaser-test",
			PollingInterval:   interval,
			OperationTimeout:  time.Second,
			LaserOffOnConnect: true,
		},
	}

	device := optristest.NewDevice()
	session := optris.NewSession(optris.DefaultConfig(cfg.Device.ID), logger, optris.WithTransportFactory(device.Factory()))
	repo := repository.NewMemoryOperationRepository()
	bus := NewEventBus(logger)
	go bus.Start()

	f := &fixture{
		service: NewPyrometerService(cfg, session, repo, bus, logger),
		device:  device,
		repo:    repo,
		bus:     bus,
		samples: make(chan model.TemperatureReading, 64),
	}
	f.service.OnTemperatureSample(func(celsius float64, ts time.Time) {
		select {
		case f.samples <- model.TemperatureReading{Celsius: celsius, Timestamp: ts}:
		default:
		}
	})

	t.Cleanup(func() {
		_ = f.service.Close()
		bus.Close()
	})
	return f
}

// connect connects and waits for the immediate first sample so later
// commands do not race with it
func (f *fixture) connect(t *testing.T) {
	t.Helper()
	require.NoError(t, f.service.Connect(context.Background(), "/dev/ttyUSB0"))
	select {
	case <-f.samples:
	case <-time.After(2 * time.Second):
		t.Fatal("no sample after connect")
	}
}

func (f *fixture) journal(t *testing.T) []*model.DeviceOperation {
	t.Helper()
	ops, _, err := f.repo.List(context.Background(), &repository.OperationFilter{SortOrder: "asc"})
	require.NoError(t, err)
	return ops
}

func TestConnect_RequiresPort(t *testing.T) {
	f := newFixture(t, time.Hour)
	assert.ErrorIs(t, f.service.Connect(context.Background(), ""), ErrPortRequired)
	assert.False(t, f.service.IsConnected())
}

func TestConnect_PreparesDeviceAndPolls(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.device.Laser = true
	f.connect(t)

	assert.True(t, f.service.IsConnected())
	assert.Equal(t, "/dev/ttyUSB0", f.device.Port())
	assert.False(t, f.device.LaserOn(), "laser is switched off on connect")

	reading, ok := f.service.LastReading()
	require.True(t, ok)
	assert.InDelta(t, 23.5, reading.Celsius, 1e-9)

	status := f.service.Status()
	assert.True(t, status.Connected)
	assert.Equal(t, poller.StateRunning, status.PollerState)
	require.NotNil(t, status.LastReading)
	require.NotNil(t, status.Transport)
	assert.True(t, status.Transport.IsConnected)

	// Same port is a no-op, another port is refused
	assert.NoError(t, f.service.Connect(context.Background(), "/dev/ttyUSB0"))
	assert.ErrorIs(t, f.service.Connect(context.Background(), "/dev/ttyUSB1"), ErrAlreadyConnected)
}

func TestConnect_OpenFailure(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.device.OpenErr = optristest.ErrUnplugged

	err := f.service.Connect(context.Background(), "/dev/ttyUSB0")
	var connectErr *optris.ConnectError
	require.ErrorAs(t, err, &connectErr)
	assert.ErrorIs(t, err, optristest.ErrUnplugged)
	assert.False(t, f.service.IsConnected())
	assert.Equal(t, poller.StateStopped, f.service.Status().PollerState)
}

func TestIssueCommand_EmissivityAndLaser(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.connect(t)
	ctx := context.Background()

	result, err := f.service.IssueCommand(ctx, model.CommandSetEmissivity, model.JSONObject{"value": 0.9})
	require.NoError(t, err)
	assert.Equal(t, 0.9, result.Result["emissivity"])
	assert.Equal(t, uint16(900), f.device.EmissivityRaw())

	result, err = f.service.IssueCommand(ctx, model.CommandGetEmissivity, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.9, result.Result["emissivity"], 1e-9)

	result, err = f.service.IssueCommand(ctx, model.CommandToggleLaser, nil)
	require.NoError(t, err)
	assert.Equal(t, true, result.Result["on"])
	assert.True(t, f.device.LaserOn())

	for i := 0; i < 2; i++ {
		_, err = f.service.IssueCommand(ctx, model.CommandSetLaser, model.JSONObject{"on": true})
		require.NoError(t, err)
	}
	assert.True(t, f.device.LaserOn())

	result, err = f.service.IssueCommand(ctx, model.CommandSerialNumber, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(65536), result.Result["serial_number"])

	ops := f.journal(t)
	require.Len(t, ops, 6)
	for _, op := range ops {
		assert.Equal(t, model.OperationStatusSuccess, op.Status, op.Kind)
		assert.Equal(t, "cslaser-test", op.DeviceID)
		assert.NotNil(t, op.DurationMs)
	}
}

func TestIssueCommand_RejectsBeforeJournaling(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.connect(t)
	ctx := context.Background()

	_, err := f.service.IssueCommand(ctx, model.CommandSetEmissivity, model.JSONObject{"value": 1.5})
	assert.ErrorIs(t, err, optris.ErrInvalidEmissivity)

	_, err = f.service.IssueCommand(ctx, model.CommandSetEmissivity, model.JSONObject{"value": "high"})
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = f.service.IssueCommand(ctx, model.CommandSetLaser, model.JSONObject{})
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = f.service.IssueCommand(ctx, model.CommandKind("reboot"), nil)
	assert.ErrorIs(t, err, ErrUnknownCommand)

	assert.Empty(t, f.journal(t))
	assert.Equal(t, uint16(950), f.device.EmissivityRaw())
}

func TestIssueCommand_NotConnected(t *testing.T) {
	f := newFixture(t, time.Hour)

	_, err := f.service.IssueCommand(context.Background(), model.CommandTargetTemperature, nil)
	assert.ErrorIs(t, err, optris.ErrNotConnected)
	assert.Zero(t, f.device.Writes())

	ops := f.journal(t)
	require.Len(t, ops, 1)
	assert.Equal(t, model.OperationStatusFailed, ops[0].Status)
	require.NotNil(t, ops[0].ErrorMessage)
}

func TestIssueCommand_ShortResponses(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.connect(t)
	ctx := context.Background()

	f.device.Truncate(0)
	_, err := f.service.IssueCommand(ctx, model.CommandHeadTemperature, nil)
	assert.ErrorIs(t, err, optris.ErrTimeout)

	f.device.Truncate(1)
	_, err = f.service.IssueCommand(ctx, model.CommandHeadTemperature, nil)
	assert.ErrorIs(t, err, optris.ErrShortRead)
	assert.False(t, errors.Is(err, optris.ErrTimeout))

	f.device.CorruptNextEcho()
	_, err = f.service.IssueCommand(ctx, model.CommandSetLaser, model.JSONObject{"on": true})
	assert.ErrorIs(t, err, optris.ErrAckMismatch)

	// The line recovers after the failures
	result, err := f.service.IssueCommand(ctx, model.CommandHeadTemperature, nil)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, result.Result["celsius"], 1e-9)

	ops := f.journal(t)
	require.Len(t, ops, 4)
	assert.Equal(t, model.OperationStatusTimeout, ops[0].Status)
	assert.Equal(t, model.OperationStatusFailed, ops[1].Status)
	assert.Equal(t, model.OperationStatusFailed, ops[2].Status)
	assert.Equal(t, model.OperationStatusSuccess, ops[3].Status)
}

func TestIssueCommand_PublishesOutcome(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.connect(t)

	events := f.bus.Subscribe(model.EventOperationCompleted, model.EventOperationFailed)
	defer f.bus.Unsubscribe(events)

	_, err := f.service.IssueCommand(context.Background(), model.CommandGetLaser, nil)
	require.NoError(t, err)

	select {
	case event := <-events:
		assert.Equal(t, model.EventOperationCompleted, event.EventType)
		assert.Equal(t, "get_laser", event.Data["kind"])
		assert.Equal(t, false, event.Data["write"])
	case <-time.After(2 * time.Second):
		t.Fatal("no operation event")
	}

	_, err = f.service.IssueCommand(context.Background(), model.CommandSetLaser, model.JSONObject{"on": true})
	require.NoError(t, err)

	select {
	case event := <-events:
		assert.Equal(t, "set_laser", event.Data["kind"])
		assert.Equal(t, true, event.Data["write"])
	case <-time.After(2 * time.Second):
		t.Fatal("no operation event")
	}
}

func TestConnect_ReadsEmissivityWithoutForcingLaser(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.service.config.Device.LaserOffOnConnect = false
	f.device.Laser = true
	f.connect(t)

	assert.True(t, f.device.LaserOn(), "laser left as found")

	var opcodes []byte
	for _, frame := range f.device.Written() {
		opcodes = append(opcodes, frame[0])
	}
	assert.Contains(t, opcodes, byte(0x04), "emissivity read after connect")
	assert.NotContains(t, opcodes, byte(0x90))
}

func TestDisconnect_StopsPollingBeforeReturn(t *testing.T) {
	f := newFixture(t, 5*time.Millisecond)
	f.device.ReadDelay = 2 * time.Millisecond
	f.connect(t)

	// Let a few ticks happen
	for i := 0; i < 3; i++ {
		select {
		case <-f.samples:
		case <-time.After(2 * time.Second):
			t.Fatal("polling stalled")
		}
	}

	require.NoError(t, f.service.Disconnect(context.Background()))
	writes := f.device.Writes()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, writes, f.device.Writes(), "no exchange after disconnect")
	assert.False(t, f.service.IsConnected())
	assert.Equal(t, poller.StateStopped, f.service.Status().PollerState)

	// Last good reading survives the disconnect
	_, ok := f.service.LastReading()
	assert.True(t, ok)

	// Disconnect is idempotent and reconnecting starts a fresh poller
	require.NoError(t, f.service.Disconnect(context.Background()))
	f.connect(t)
	assert.Equal(t, poller.StateRunning, f.service.Status().PollerState)
}

func TestCommandsInterleaveWithPolling(t *testing.T) {
	f := newFixture(t, time.Millisecond)
	f.connect(t)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		_, err := f.service.IssueCommand(ctx, model.CommandGetEmissivity, nil)
		require.NoError(t, err)
	}

	require.NoError(t, f.service.Disconnect(ctx))
	assert.Zero(t, f.device.Overlaps())
	assert.Zero(t, f.device.Interleaves())
}

func TestSampleErrorsBecomeDiagnostics(t *testing.T) {
	f := newFixture(t, time.Hour)
	diagnostics := f.bus.Subscribe(model.EventDiagnostic)
	defer f.bus.Unsubscribe(diagnostics)

	f.device.Truncate(2, 2, 0)
	require.NoError(t, f.service.Connect(context.Background(), "/dev/ttyUSB0"))

	select {
	case event := <-diagnostics:
		assert.Equal(t, "WARNING", event.Severity)
		assert.Equal(t, "cslaser-test", event.DeviceID)
	case <-time.After(2 * time.Second):
		t.Fatal("no diagnostic event")
	}

	_, ok := f.service.LastReading()
	assert.False(t, ok)
	assert.NotEmpty(t, f.service.Status().LastSampleError)
}

func TestEventBus_FiltersByType(t *testing.T) {
	bus := NewEventBus(zap.NewNop())
	go bus.Start()
	defer bus.Close()

	all := bus.Subscribe()
	samples := bus.Subscribe(model.EventTemperatureSample)

	bus.Publish(model.DeviceEvent{EventType: model.EventDiagnostic})
	bus.Publish(model.NewSampleEvent("cslaser-1", model.TemperatureReading{Celsius: 900, Timestamp: time.Now()}))

	receive := func(ch <-chan model.DeviceEvent) model.DeviceEvent {
		select {
		case event := <-ch:
			return event
		case <-time.After(2 * time.Second):
			t.Fatal("event not delivered")
		}
		return model.DeviceEvent{}
	}

	assert.Equal(t, model.EventDiagnostic, receive(all).EventType)
	assert.Equal(t, model.EventTemperatureSample, receive(all).EventType)
	assert.Equal(t, model.EventTemperatureSample, receive(samples).EventType)

	bus.Unsubscribe(samples)
	_, open := <-samples
	assert.False(t, open)

	bus.Close()
	_, open = <-all
	assert.False(t, open)
	_, open = <-bus.Subscribe()
	assert.False(t, open, "subscribing after close yields a closed channel")
}
