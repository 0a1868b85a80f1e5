package report

import (
	"context"
	"sync"

	"github.com/entrhq/harness/pkg/scenario"
)

// Item is one payload held by a MemorySink.
type Item struct {
	ScenarioID string
	Data       []byte
	MimeType   string
	Name       string
}

// MemorySink keeps payloads in memory. It is safe for concurrent use.
type MemorySink struct {
	mu    sync.Mutex
	items []Item
}

// NewMemorySink creates an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Attach implements evidence.Sink.
func (s *MemorySink) Attach(ctx context.Context, data []byte, mimeType, name string) error {
	key, _ := scenario.KeyFromContext(ctx)
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, Item{ScenarioID: key, Data: buf, MimeType: mimeType, Name: name})
	return nil
}

// Items returns every payload in arrival order.
func (s *MemorySink) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// ItemsFor returns the payloads forwarded for one scenario.
func (s *MemorySink) ItemsFor(scenarioID string) []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Item
	for _, it := range s.items {
		if it.ScenarioID == scenarioID {
			out = append(out, it)
		}
	}
	return out
}
