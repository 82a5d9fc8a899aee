package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// EventType identifies what changed
type EventType string

const (
	EventCategoriesChanged EventType = "categories.changed"
	EventItemsChanged      EventType = "inventory_items.changed"
	EventShoppingChanged   EventType = "shopping_list_items.changed"
)

// Event represents a committed change to the store
type Event struct {
	Type      EventType              `json:"type"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// Handler is a function that handles events. Handlers run on the publishing
// goroutine and must not block.
type Handler func(ctx context.Context, event Event) error

// PubSub provides simple in-memory publish/subscribe functionality
type PubSub struct {
	mu       sync.RWMutex
	handlers map[EventType]map[string]Handler
	logger   *logrus.Logger
}

// NewPubSub creates a new PubSub instance
func NewPubSub(logger *logrus.Logger) *PubSub {
	if logger == nil {
		logger = logrus.New()
	}

	return &PubSub{
		handlers: make(map[EventType]map[string]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for an event type and returns a function that removes it
func (ps *PubSub) Subscribe(eventType EventType, handler Handler) func() {
	if handler == nil {
		ps.logger.WithField("event_type", eventType).Warn("attempted to subscribe nil handler")
		return func() {}
	}

	id := uuid.New().String()

	ps.mu.Lock()
	if ps.handlers[eventType] == nil {
		ps.handlers[eventType] = make(map[string]Handler)
	}
	ps.handlers[eventType][id] = handler
	count := len(ps.handlers[eventType])
	ps.mu.Unlock()

	ps.logger.WithFields(logrus.Fields{
		"event_type":      eventType,
		"subscription_id": id,
		"handler_count":   count,
	}).Debug("handler subscribed to event")

	var once sync.Once
	return func() {
		once.Do(func() {
			ps.mu.Lock()
			delete(ps.handlers[eventType], id)
			ps.mu.Unlock()
		})
	}
}

// Publish sends an event to all registered handlers
func (ps *PubSub) Publish(ctx context.Context, event Event) {
	if event.Type == "" {
		ps.logger.Warn("attempted to publish event with empty type")
		return
	}
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}

	ps.mu.RLock()
	handlers := make([]Handler, 0, len(ps.handlers[event.Type]))
	for _, h := range ps.handlers[event.Type] {
		handlers = append(handlers, h)
	}
	ps.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	for _, h := range handlers {
		if err := h(ctx, event); err != nil {
			ps.logger.WithFields(logrus.Fields{
				"event_type": event.Type,
				"error":      err.Error(),
			}).Error("handler failed to process event")
		}
	}
}

// GetHandlerCount returns the number of handlers for an event type
func (ps *PubSub) GetHandlerCount(eventType EventType) int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	return len(ps.handlers[eventType])
}

// Clear removes all handlers for an event type, or all handlers if eventType is empty
func (ps *PubSub) Clear(eventType EventType) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if eventType == "" {
		ps.handlers = make(map[EventType]map[string]Handler)
		ps.logger.Debug("cleared all event handlers")
	} else {
		delete(ps.handlers, eventType)
		ps.logger.WithField("event_type", eventType).Debug("cleared handlers for event type")
	}
}
