// internal/service/event_bus.go
package service

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"pyrometer-service/internal/model"
)

const (
	eventQueueSize      = 1000
	subscriberQueueSize = 100
)

// EventBus manages event distribution
type EventBus struct {
	subscribers map[chan model.DeviceEvent][]model.EventType
	events      chan model.DeviceEvent
	quit        chan struct{}
	closeOnce   sync.Once
	closed      bool
	mutex       sync.RWMutex
	logger      *zap.Logger
}

// NewEventBus creates a new event bus
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[chan model.DeviceEvent][]model.EventType),
		events:      make(chan model.DeviceEvent, eventQueueSize),
		quit:        make(chan struct{}),
		logger:      logger.With(zap.String("component", "event_bus")),
	}
}

// Start distributes events until Close is called
func (eb *EventBus) Start() {
	for {
		select {
		case event := <-eb.events:
			eb.distributeEvent(event)
		case <-eb.quit:
			return
		}
	}
}

// Close stops distribution and closes every subscriber channel
func (eb *EventBus) Close() {
	eb.closeOnce.Do(func() {
		close(eb.quit)

		eb.mutex.Lock()
		defer eb.mutex.Unlock()
		for subscriber := range eb.subscribers {
			close(subscriber)
		}
		eb.subscribers = make(map[chan model.DeviceEvent][]model.EventType)
		eb.closed = true
	})
}

// Publish publishes an event without blocking
func (eb *EventBus) Publish(event model.DeviceEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case eb.events <- event:
	default:
		eb.logger.Warn("Event bus full, dropping event",
			zap.String("event_type", string(event.EventType)),
		)
	}
}

// Subscribe returns a channel receiving events of the given types, or of
// every type when none are given
func (eb *EventBus) Subscribe(eventTypes ...model.EventType) <-chan model.DeviceEvent {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	subscriber := make(chan model.DeviceEvent, subscriberQueueSize)
	if eb.closed {
		close(subscriber)
		return subscriber
	}
	eb.subscribers[subscriber] = eventTypes
	return subscriber
}

// Unsubscribe removes and closes a subscription
func (eb *EventBus) Unsubscribe(subscription <-chan model.DeviceEvent) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	for subscriber := range eb.subscribers {
		if subscriber == subscription {
			delete(eb.subscribers, subscriber)
			close(subscriber)
			return
		}
	}
}

// distributeEvent distributes an event to subscribers
func (eb *EventBus) distributeEvent(event model.DeviceEvent) {
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()

	for subscriber, eventTypes := range eb.subscribers {
		if !wants(eventTypes, event.EventType) {
			continue
		}
		select {
		case subscriber <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}

func wants(eventTypes []model.EventType, eventType model.EventType) bool {
	if len(eventTypes) == 0 {
		return true
	}
	for _, t := range eventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}

// DeviceEventHandler forwards driver events to the bus
type DeviceEventHandler struct {
	bus    *EventBus
	logger *zap.Logger
}

// NewDeviceEventHandler creates a new device event handler
func NewDeviceEventHandler(bus *EventBus, logger *zap.Logger) *DeviceEventHandler {
	return &DeviceEventHandler{
		bus:    bus,
		logger: logger,
	}
}

// OnDeviceConnected handles device connected events
func (deh *DeviceEventHandler) OnDeviceConnected(deviceID string) {
	deh.bus.Publish(model.DeviceEvent{
		EventType: model.EventDeviceConnected,
		DeviceID:  deviceID,
		Data:      model.JSONObject{"status": string(model.DeviceStatusOnline)},
		Source:    "driver",
		Severity:  "INFO",
	})

	deh.logger.Info("Device connected event published", zap.String("device_id", deviceID))
}

// OnDeviceDisconnected handles device disconnected events
func (deh *DeviceEventHandler) OnDeviceDisconnected(deviceID string, reason string) {
	deh.bus.Publish(model.DeviceEvent{
		EventType: model.EventDeviceDisconnected,
		DeviceID:  deviceID,
		Data: model.JSONObject{
			"status": string(model.DeviceStatusOffline),
			"reason": reason,
		},
		Source:   "driver",
		Severity: "INFO",
	})

	deh.logger.Info("Device disconnected event published",
		zap.String("device_id", deviceID),
		zap.String("reason", reason),
	)
}

// OnDeviceError handles device error events
func (deh *DeviceEventHandler) OnDeviceError(deviceID string, err error) {
	deh.bus.Publish(model.DeviceEvent{
		EventType: model.EventDeviceError,
		DeviceID:  deviceID,
		Data: model.JSONObject{
			"status": string(model.DeviceStatusError),
			"error":  err.Error(),
		},
		Source:   "driver",
		Severity: "ERROR",
	})

	deh.logger.Error("Device error event published",
		zap.String("device_id", deviceID),
		zap.Error(err),
	)
}
