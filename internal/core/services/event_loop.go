package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Dispatcher serializes closures onto the goroutine owning session state.
type Dispatcher interface {
	Post(task func())
}

// InlineDispatcher runs every task on the caller's goroutine.
type InlineDispatcher struct{}

func (InlineDispatcher) Post(task func()) { task() }

// EventLoop is the single owner of session state. Transport callbacks,
// store watchers, timers and HTTP intents post closures into it.
type EventLoop struct {
	tasks  chan func()
	done   chan struct{}
	logger *zap.SugaredLogger
}

func NewEventLoop(size int, logger *zap.SugaredLogger) *EventLoop {
	if size <= 0 {
		size = 256
	}
	return &EventLoop{
		tasks:  make(chan func(), size),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Post enqueues task. Tasks posted after the loop stopped are dropped.
func (l *EventLoop) Post(task func()) {
	select {
	case l.tasks <- task:
	case <-l.done:
	}
}

// Run executes tasks until ctx is cancelled.
func (l *EventLoop) Run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-l.tasks:
			l.execute(task)
		}
	}
}

func (l *EventLoop) execute(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Errorw("Event loop task panicked", "panic", fmt.Sprint(r))
		}
	}()
	task()
}

// call posts task to d and waits for it to finish or ctx to end.
func call(ctx context.Context, d Dispatcher, task func()) error {
	finished := make(chan struct{})
	d.Post(func() {
		defer close(finished)
		task()
	})
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
