package pubsub

import (
	"context"
	"fmt"
	"sync"

	"payments-webhook-layer/internal/domain"

	"github.com/rs/zerolog"
)

// EventChannel represents one subscription to the integration event stream.
type EventChannel struct {
	ID     string
	Filter *EventFilter
	Events chan *domain.IntegrationEvent
	Done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

// EventFilter filters the events a subscriber receives.
type EventFilter struct {
	Providers    []string // filter by provider code
	ConnectionID string   // filter by owning connection
}

// EventPubSub fans recorded integration events out to in-process subscribers
// (the operator event tail). Delivery is best-effort; a slow subscriber drops
// events rather than blocking the recorder.
type EventPubSub struct {
	mu       sync.RWMutex
	channels map[string]*EventChannel
	logger   zerolog.Logger
	nextID   int64
	idMu     sync.Mutex
}

// NewEventPubSub creates a new event pub/sub system.
func NewEventPubSub(logger zerolog.Logger) *EventPubSub {
	return &EventPubSub{
		channels: make(map[string]*EventChannel),
		logger:   logger,
	}
}

// Subscribe creates a new subscription channel.
func (ps *EventPubSub) Subscribe(ctx context.Context, filter *EventFilter) *EventChannel {
	ps.idMu.Lock()
	ps.nextID++
	id := fmt.Sprintf("channel-%d", ps.nextID)
	ps.idMu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)

	channel := &EventChannel{
		ID:     id,
		Filter: filter,
		Events: make(chan *domain.IntegrationEvent, 16),
		Done:   make(chan struct{}),
		ctx:    subCtx,
		cancel: cancel,
	}

	ps.mu.Lock()
	ps.channels[id] = channel
	ps.mu.Unlock()

	ps.logger.Info().
		Str("channelId", id).
		Interface("filter", filter).
		Msg("Event subscription created")

	go func() {
		<-subCtx.Done()
		ps.Unsubscribe(id)
	}()

	return channel
}

// Unsubscribe removes a subscription channel.
func (ps *EventPubSub) Unsubscribe(channelID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	channel, exists := ps.channels[channelID]
	if !exists {
		return
	}

	close(channel.Events)
	close(channel.Done)
	channel.cancel()
	delete(ps.channels, channelID)

	ps.logger.Info().
		Str("channelId", channelID).
		Msg("Event subscription removed")
}

// Publish broadcasts an integration event to all matching subscribers.
func (ps *EventPubSub) Publish(event *domain.IntegrationEvent) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for _, channel := range ps.channels {
		if !matchesFilter(event, channel.Filter) {
			continue
		}
		select {
		case channel.Events <- event:
		case <-channel.ctx.Done():
		default:
			ps.logger.Warn().
				Str("channelId", channel.ID).
				Msg("Channel buffer full, dropping event")
		}
	}
}

// SubscriberCount returns the number of live subscriptions.
func (ps *EventPubSub) SubscriberCount() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.channels)
}

func matchesFilter(event *domain.IntegrationEvent, filter *EventFilter) bool {
	if filter == nil {
		return true
	}

	if len(filter.Providers) > 0 {
		match := false
		for _, p := range filter.Providers {
			if event.ProviderCode == p {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}

	if filter.ConnectionID != "" && event.ConnectionID != filter.ConnectionID {
		return false
	}

	return true
}
