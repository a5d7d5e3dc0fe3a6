package portfolio

import (
	"context"
	"sync"
)

// Latest runs calls so that only the most recent one matters: starting a
// call cancels the one still in flight. Recomputations triggered by rapid
// parameter changes use it so stale results never overwrite newer ones.
type Latest struct {
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// Run cancels any in-flight call and runs fn with a fresh context. When a
// newer call superseded this one, Run returns context.Canceled even if fn
// finished successfully.
func (l *Latest) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.seq++
	mine := l.seq
	l.cancel = cancel
	l.mu.Unlock()

	err := fn(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if mine != l.seq {
		return context.Canceled
	}
	l.cancel = nil
	cancel()
	return err
}
