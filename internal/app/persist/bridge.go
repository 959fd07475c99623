//go:generate go run go.uber.org/mock/mockgen -source=bridge.go -destination=../../mocks/mock_store.go -package=mocks

/*
Package persist hands accepted chat messages to the message store off the realtime path.

Bridge.Persist never blocks and never fails: messages go to a bounded queue drained by
a fixed pool of workers. A full queue drops the message, a failed write is logged and
counted. Delivery to participants never depends on the store.
*/
package persist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"bookchat/internal/app/chat"
	"bookchat/internal/pkg/errs"
	"bookchat/internal/pkg/logx"
	"bookchat/internal/pkg/metric"
)

// Store writes one message durably.
type Store interface {
	Save(ctx context.Context, msg chat.Message) error
}

// Options sizes the bridge.
type Options struct {
	QueueSize int
	Workers   int
	Timeout   time.Duration
}

// DefaultOptions are used for zero fields of the Options passed to NewBridge.
var DefaultOptions = Options{
	QueueSize: 1024,
	Workers:   4,
	Timeout:   5 * time.Second,
}

// Bridge is a chat.Persister backed by a Store.
type Bridge struct {
	store   Store
	queue   chan chat.Message
	timeout time.Duration

	// mu guards closed against Persist racing Close.
	mu     sync.RWMutex
	closed bool

	wg     sync.WaitGroup
	logger zerolog.Logger
}

// NewBridge starts the workers and returns the bridge. Call Close to stop it.
func NewBridge(store Store, opts Options) *Bridge {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultOptions.QueueSize
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultOptions.Workers
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions.Timeout
	}

	b := &Bridge{
		store:   store,
		queue:   make(chan chat.Message, opts.QueueSize),
		timeout: opts.Timeout,
		logger:  logx.Component("persist"),
	}

	b.wg.Add(opts.Workers)
	for range opts.Workers {
		go b.work()
	}

	b.logger.Info().
		Int("workers", opts.Workers).
		Int("queue_size", opts.QueueSize).
		Dur("timeout", opts.Timeout).
		Msg("Persistence bridge started.")

	return b
}

// Persist implements chat.Persister. It queues msg and returns immediately.
func (b *Bridge) Persist(msg chat.Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.logger.Warn().Str("message_id", msg.ID).Msg("Bridge closed, message not persisted.")
		metric.RecordDropped(metric.DropPersistQueue)
		return
	}

	select {
	case b.queue <- msg:
	default:
		b.logger.Warn().
			Err(errs.NewError(errs.ErrPersistQueueFull)).
			Str("message_id", msg.ID).
			Str("room_id", string(msg.RoomID)).
			Msg("Persistence queue full, message dropped.")
		metric.RecordDropped(metric.DropPersistQueue)
	}
}

// Close stops accepting messages and waits until the queued ones have been written.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()

	b.wg.Wait()
	b.logger.Info().Msg("Persistence bridge stopped.")
}

func (b *Bridge) work() {
	defer b.wg.Done()

	for msg := range b.queue {
		b.save(msg)
	}
}

// save performs one write. Errors and panics from the store end here.
func (b *Bridge) save(msg chat.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	start := time.Now()
	err := b.safeSave(ctx, msg)
	metric.RecordPersist(err, time.Since(start))

	if err != nil {
		b.logger.Error().
			Err(err).
			Int("code", errs.ErrPersistFailed).
			Str("message_id", msg.ID).
			Str("room_id", string(msg.RoomID)).
			Msg("Failed to persist message.")
	}
}

func (b *Bridge) safeSave(ctx context.Context, msg chat.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("store panic: %v", r)
		}
	}()

	return b.store.Save(ctx, msg)
}

// Discard is a Store that accepts and drops every message.
type Discard struct{}

// Save implements Store.
func (Discard) Save(context.Context, chat.Message) error { return nil }
