package chat

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// recorder is an Outbound that keeps every accepted frame. A positive limit makes
// Enqueue fail once that many frames are queued.
type recorder struct {
	mu     sync.Mutex
	frames [][]byte
	limit  int
	closed bool
}

func (r *recorder) Enqueue(frame []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || (r.limit > 0 && len(r.frames) >= r.limit) {
		return false
	}
	r.frames = append(r.frames, frame)
	return true
}

func (r *recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

func (r *recorder) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// received decodes every frame the recorder accepted.
func (r *recorder) received(t *testing.T) []wireFrame {
	t.Helper()

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]wireFrame, 0, len(r.frames))
	for _, raw := range r.frames {
		var f wireFrame
		require.NoError(t, json.Unmarshal(raw, &f))
		out = append(out, f)
	}
	return out
}

func (r *recorder) events(t *testing.T) []string {
	t.Helper()

	var names []string
	for _, f := range r.received(t) {
		names = append(names, f.Event)
	}
	return names
}

type wireFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// sequentialIDs returns an id generator yielding prefix-1, prefix-2, ...
func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func connect(m *Manager) (ConnectionID, *recorder) {
	out := &recorder{}
	return m.Registry().OnConnect(out), out
}
