package engine

import (
	"context"
	"errors"
)

var ErrLoopStopped = errors.New("engine: loop stopped")

const defaultLoopDepth = 256

// Loop runs every engine access on one goroutine. Link readers, the api
// and the presence sequencer submit work; only Run touches the engine.
type Loop struct {
	engine *Engine
	queue  chan func(*Engine)
	done   chan struct{}
}

func NewLoop(e *Engine, depth int) *Loop {
	if depth <= 0 {
		depth = defaultLoopDepth
	}
	return &Loop{
		engine: e,
		queue:  make(chan func(*Engine), depth),
		done:   make(chan struct{}),
	}
}

// Post queues fn without waiting for it to run. Work from one caller runs
// in submission order. Returns false once the loop has stopped.
func (l *Loop) Post(fn func(*Engine)) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.queue <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Call runs fn on the loop and waits for its result.
func (l *Loop) Call(ctx context.Context, fn func(*Engine) error) error {
	result := make(chan error, 1)
	ok := l.Post(func(e *Engine) {
		result <- fn(e)
	})
	if !ok {
		return ErrLoopStopped
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		select {
		case err := <-result:
			return err
		default:
			return ErrLoopStopped
		}
	}
}

// Run processes queued work until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.queue:
			fn(l.engine)
		}
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
