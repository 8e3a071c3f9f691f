package logger

import (
	"context"
	"sync"
	"sync/atomic"
)

// AsyncConfig configures the async logger wrapper.
type AsyncConfig struct {
	Enabled      bool
	QueueSize    int
	WorkerCount  int
	DropWhenFull bool
}

type asyncEntry struct {
	emit func(msg string, args ...any)
	msg  string
	args []any
}

type asyncQueue struct {
	entries      chan asyncEntry
	dropWhenFull bool
	dropped      atomic.Int64
	mu           sync.RWMutex
	closed       bool
	wg           sync.WaitGroup
}

// AsyncLogger hands entries to background workers so request goroutines do
// not block on log I/O.
type AsyncLogger struct {
	base  Logger
	queue *asyncQueue
}

// WrapAsync wraps base with async dispatch when cfg.Enabled is set, and
// returns base unchanged otherwise.
func WrapAsync(base Logger, cfg AsyncConfig) Logger {
	if !cfg.Enabled {
		return base
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}

	q := &asyncQueue{
		entries:      make(chan asyncEntry, cfg.QueueSize),
		dropWhenFull: cfg.DropWhenFull,
	}
	for i := 0; i < cfg.WorkerCount; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for entry := range q.entries {
				entry.emit(entry.msg, entry.args...)
			}
		}()
	}
	return &AsyncLogger{base: base, queue: q}
}

func (l *AsyncLogger) Debug(msg string, args ...any) { l.enqueue(l.base.Debug, msg, args) }
func (l *AsyncLogger) Info(msg string, args ...any)  { l.enqueue(l.base.Info, msg, args) }
func (l *AsyncLogger) Warn(msg string, args ...any)  { l.enqueue(l.base.Warn, msg, args) }
func (l *AsyncLogger) Error(msg string, args ...any) { l.enqueue(l.base.Error, msg, args) }

// With returns a child sharing the same worker queue.
func (l *AsyncLogger) With(args ...any) Logger {
	return &AsyncLogger{base: l.base.With(args...), queue: l.queue}
}

// WithContext resolves the correlation fields synchronously, before the
// request releases them, and shares the worker queue.
func (l *AsyncLogger) WithContext(ctx context.Context) Logger {
	return &AsyncLogger{base: l.base.WithContext(ctx), queue: l.queue}
}

// Dropped returns the number of entries discarded because the queue was full.
func (l *AsyncLogger) Dropped() int64 {
	return l.queue.dropped.Load()
}

// Close drains queued entries and stops the workers. Entries logged after
// Close are written synchronously.
func (l *AsyncLogger) Close() {
	l.queue.mu.Lock()
	if l.queue.closed {
		l.queue.mu.Unlock()
		return
	}
	l.queue.closed = true
	close(l.queue.entries)
	l.queue.mu.Unlock()
	l.queue.wg.Wait()
}

func (l *AsyncLogger) enqueue(emit func(string, ...any), msg string, args []any) {
	l.queue.mu.RLock()
	defer l.queue.mu.RUnlock()
	if l.queue.closed {
		emit(msg, args...)
		return
	}
	entry := asyncEntry{emit: emit, msg: msg, args: args}
	if !l.queue.dropWhenFull {
		l.queue.entries <- entry
		return
	}
	select {
	case l.queue.entries <- entry:
	default:
		l.queue.dropped.Add(1)
	}
}
