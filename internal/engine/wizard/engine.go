package wizard

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/domain"
	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/services/stream"
)

type Options struct {
	Backend    Backend
	Subscriber stream.Subscriber
	Logger     *zap.Logger
}

// Engine runs the wizard controller on its own goroutine and talks to a
// front-end through events and actions.
type Engine struct {
	opt Options
}

func New(opt Options) *Engine { return &Engine{opt: opt} }

// Run closes ch when ctx is done, actions is closed, or a quit action
// arrives.
func (e *Engine) Run(ctx context.Context, ch chan<- domain.Event, actions <-chan domain.Action) {
	go func() {
		defer close(ch)

		emit := func(ev domain.Event) {
			if ev.TS.IsZero() {
				ev.TS = time.Now()
			}
			select {
			case <-ctx.Done():
			case ch <- ev:
			}
		}

		posts := make(chan func(), 64)
		post := func(f func()) {
			select {
			case <-ctx.Done():
			case posts <- f:
			}
		}

		c := NewController(ctx, ControllerOptions{
			Backend:    e.opt.Backend,
			Subscriber: e.opt.Subscriber,
			Logger:     e.opt.Logger,
			Emit:       emit,
			Post:       post,
		})
		defer c.Shutdown()
		c.Start()

		for {
			select {
			case <-ctx.Done():
				return
			case a, ok := <-actions:
				if !ok || a.Type == domain.ActionQuit {
					return
				}
				c.Handle(a)
			case f := <-posts:
				f()
			}
		}
	}()
}
