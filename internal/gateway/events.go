package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/jmertens/ctxweave/internal/hook"
)

// streamedEvents are the hook events forwarded to WebSocket clients.
var streamedEvents = []hook.Event{
	hook.EventConfigLoaded,
	hook.EventLayerLoaded,
	hook.EventMainPromptBuilt,
	hook.EventSubagentPromptBuilt,
	hook.EventCacheCorrupt,
}

// eventEnvelope is one streamed event on the wire.
type eventEnvelope struct {
	Event hook.Event     `json:"event"`
	At    time.Time      `json:"at"`
	Data  map[string]any `json:"data,omitempty"`
}

// eventStream fans hook events out to connected WebSocket clients. Slow
// clients are dropped rather than allowed to stall the hook pipeline.
type eventStream struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[chan eventEnvelope]struct{}
	closed  bool
}

func newEventStream(logger *slog.Logger) *eventStream {
	return &eventStream{
		logger:  logger,
		clients: make(map[chan eventEnvelope]struct{}),
	}
}

// subscribe registers a forwarding handler for every streamed event.
func (s *eventStream) subscribe(hooks *hook.Registry) {
	for _, event := range streamedEvents {
		hooks.Register(event, func(_ context.Context, payload hook.Payload) error {
			s.broadcast(event, payload)
			return nil
		})
	}
}

// broadcast queues an event for every connected client. Prompt text is
// elided from the payload; it can be megabytes and clients only need the
// accounting fields.
func (s *eventStream) broadcast(event hook.Event, payload hook.Payload) {
	data := make(map[string]any, len(payload))
	for k, v := range payload {
		if k == "prompt" {
			continue
		}
		data[k] = v
	}
	env := eventEnvelope{Event: event, At: time.Now().UTC(), Data: data}

	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.clients {
		select {
		case ch <- env:
		default:
			// Client is not draining; drop it.
			delete(s.clients, ch)
			close(ch)
		}
	}
}

// handleWebSocket upgrades the connection and streams events until the
// client disconnects or the server shuts down.
func (s *eventStream) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Error("websocket accept failed", "error", err)
		return
	}
	defer func() {
		_ = conn.Close(websocket.StatusInternalError, "unexpected close")
	}()

	ch := make(chan eventEnvelope, 64)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	s.clients[ch] = struct{}{}
	s.mu.Unlock()

	defer s.remove(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "client gone")
			return
		case env, ok := <-ch:
			if !ok {
				_ = conn.Close(websocket.StatusPolicyViolation, "client too slow")
				return
			}
			data, err := json.Marshal(env)
			if err != nil {
				s.logger.Error("event marshal failed", "event", env.Event, "error", err)
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
		}
	}
}

// remove drops a client channel if it is still registered.
func (s *eventStream) remove(ch chan eventEnvelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[ch]; ok {
		delete(s.clients, ch)
		close(ch)
	}
}

// closeAll disconnects every client and refuses new ones.
func (s *eventStream) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for ch := range s.clients {
		delete(s.clients, ch)
		close(ch)
	}
}
