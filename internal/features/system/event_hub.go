package system

import (
	"context"
	"encoding/json"
	"sync"

	common_models "go-approvals/internal/common/models"

	"go.uber.org/zap"
)

const subscriberBuffer = 32

// Subscription receives the approval events of one tenant.
type Subscription struct {
	TenantID string
	Events   chan []byte
}

// EventHub fans committed approval events out to websocket subscribers of
// the same tenant. Slow subscribers lose events rather than block commits.
type EventHub struct {
	Logger *zap.Logger

	mu          sync.RWMutex
	subscribers map[string]map[*Subscription]struct{}
}

func NewEventHub(logger *zap.Logger) *EventHub {
	return &EventHub{
		Logger:      logger.Named("events"),
		subscribers: make(map[string]map[*Subscription]struct{}),
	}
}

func (h *EventHub) Subscribe(tenantID string) *Subscription {
	sub := &Subscription{TenantID: tenantID, Events: make(chan []byte, subscriberBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subscribers[tenantID] == nil {
		h.subscribers[tenantID] = make(map[*Subscription]struct{})
	}
	h.subscribers[tenantID][sub] = struct{}{}
	return sub
}

func (h *EventHub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.subscribers[sub.TenantID]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.Events)
	if len(subs) == 0 {
		delete(h.subscribers, sub.TenantID)
	}
}

// Subscribers reports how many connections listen on a tenant.
func (h *EventHub) Subscribers(tenantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[tenantID])
}

// Publish never fails the caller; delivery problems are only logged.
func (h *EventHub) Publish(ctx context.Context, event common_models.ApprovalEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.Logger.Error("failed to encode approval event",
			zap.String("request_id", event.RequestID),
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subscribers[event.TenantID] {
		select {
		case sub.Events <- payload:
		default:
			h.Logger.Warn("dropping approval event for slow subscriber",
				zap.String("tenant_id", event.TenantID),
				zap.String("request_id", event.RequestID),
				zap.String("type", string(event.Type)),
			)
		}
	}
}
