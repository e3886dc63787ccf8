package events

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"go.uber.org/zap"
)

type Event struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans published events out to in-process subscribers (the SSE stream).
// Slow subscribers drop events rather than block publishers.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
	buf  int
}

func NewHub(buffer int) *Hub {
	return &Hub{subs: make(map[chan Event]struct{}), buf: buffer}
}

func (h *Hub) Publish(_ context.Context, topic string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	evt := Event{Topic: topic, Payload: payload}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- evt:
		default:
		}
	}
	return nil
}

func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.buf)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

type Publisher interface {
	Publish(ctx context.Context, topic string, data any) error
}

// Fanout publishes to every target. A failing target is logged and does not
// stop the others; the first error is returned.
type Fanout struct {
	targets []Publisher
	log     *zap.Logger
}

func NewFanout(log *zap.Logger, targets ...Publisher) *Fanout {
	return &Fanout{targets: targets, log: log}
}

func (f *Fanout) Publish(ctx context.Context, topic string, data any) error {
	var first error
	for _, t := range f.targets {
		if err := t.Publish(ctx, topic, data); err != nil {
			f.log.Warn("publish failed", zap.String("topic", topic), zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Filter forwards only topics that start with one of its prefixes.
type Filter struct {
	target   Publisher
	prefixes []string
}

func NewFilter(target Publisher, prefixes ...string) *Filter {
	return &Filter{target: target, prefixes: prefixes}
}

func (f *Filter) Publish(ctx context.Context, topic string, data any) error {
	for _, p := range f.prefixes {
		if strings.HasPrefix(topic, p) {
			return f.target.Publish(ctx, topic, data)
		}
	}
	return nil
}

// PublicFeed is what anonymous /events subscribers may see: catalog changes
// only. Order events carry customer data and never reach the hub.
func PublicFeed(h *Hub) *Filter {
	return NewFilter(h, "product.", "category.")
}
