// Package live pushes photo events to staff watching a session over a
// websocket.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"qr_photo/internal/domain/models"
	"qr_photo/internal/lib/logger/sl"
	"qr_photo/internal/metrics"

	"github.com/google/uuid"
)

const (
	broadcastBuffer = 256
	sendBuffer      = 32
)

var ErrHubClosed = errors.New("live hub is not running")

// Subscriber is one connection watching one session.
type Subscriber struct {
	SessionID uuid.UUID
	send      chan []byte
}

// Messages yields encoded events. It is closed when the subscriber is
// removed from the hub.
func (s *Subscriber) Messages() <-chan []byte {
	return s.send
}

// Hub routes events to the subscribers of their session. All subscriber
// bookkeeping happens on the Run goroutine.
type Hub struct {
	log *slog.Logger

	subscribers map[uuid.UUID]map[*Subscriber]struct{}
	broadcast   chan models.PhotoEvent
	register    chan *Subscriber
	unregister  chan *Subscriber
	done        chan struct{}
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:         log,
		subscribers: make(map[uuid.UUID]map[*Subscriber]struct{}),
		broadcast:   make(chan models.PhotoEvent, broadcastBuffer),
		register:    make(chan *Subscriber),
		unregister:  make(chan *Subscriber),
		done:        make(chan struct{}),
	}
}

// Run processes registrations and events until ctx is cancelled. Every
// remaining subscriber is closed on exit.
func (h *Hub) Run(ctx context.Context) {
	const op = "live.Hub.Run"

	log := h.log.With(slog.String("op", op))

	defer func() {
		close(h.done)
		for _, subs := range h.subscribers {
			for sub := range subs {
				close(sub.send)
				metrics.LiveSubscribers.Dec()
			}
		}
		h.subscribers = nil
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case sub := <-h.register:
			h.add(sub)

		case sub := <-h.unregister:
			h.remove(sub)

		case event := <-h.broadcast:
			h.dispatch(log, event)
		}
	}
}

func (h *Hub) dispatch(log *slog.Logger, event models.PhotoEvent) {
	subs := h.subscribers[event.SessionID]
	if len(subs) == 0 {
		return
	}

	msg, err := json.Marshal(event)
	if err != nil {
		log.Error("failed to encode event", sl.Err(err))
		return
	}

	for sub := range subs {
		select {
		case sub.send <- msg:
		default:
			log.Warn("dropping slow subscriber", slog.String("session_id", sub.SessionID.String()))
			h.remove(sub)
		}
	}
}

func (h *Hub) add(sub *Subscriber) {
	if h.subscribers[sub.SessionID] == nil {
		h.subscribers[sub.SessionID] = make(map[*Subscriber]struct{})
	}
	h.subscribers[sub.SessionID][sub] = struct{}{}
	metrics.LiveSubscribers.Inc()
}

func (h *Hub) remove(sub *Subscriber) {
	subs, ok := h.subscribers[sub.SessionID]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}

	delete(subs, sub)
	close(sub.send)
	metrics.LiveSubscribers.Dec()

	if len(subs) == 0 {
		delete(h.subscribers, sub.SessionID)
	}
}

// Publish queues an event without blocking. Events are dropped when the
// queue is full or the hub has stopped.
func (h *Hub) Publish(event models.PhotoEvent) {
	select {
	case h.broadcast <- event:
	case <-h.done:
	default:
		h.log.Warn("live event queue full, dropping event",
			slog.String("type", event.Type),
			slog.String("session_id", event.SessionID.String()),
		)
	}
}

func (h *Hub) Subscribe(ctx context.Context, sessionID uuid.UUID) (*Subscriber, error) {
	sub := &Subscriber{
		SessionID: sessionID,
		send:      make(chan []byte, sendBuffer),
	}

	select {
	case h.register <- sub:
		return sub, nil
	case <-h.done:
		return nil, ErrHubClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Unsubscribe removes sub. It is a no-op for subscribers already dropped.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	select {
	case h.unregister <- sub:
	case <-h.done:
	}
}
