package audit

import "context"

// Mirror receives copies of appended entries. Implementations are
// best-effort; the hash chain never depends on them.
type Mirror interface {
	Publish(ctx context.Context, e Entry)
}

// Worker consumes audit entries from a channel and forwards them to a mirror.
// It keeps background processing testable without wiring queue
// implementations into the enforcement path.
type Worker struct {
	inbox  <-chan Entry
	mirror Mirror
}

func NewWorker(inbox <-chan Entry, mirror Mirror) *Worker {
	return &Worker{inbox: inbox, mirror: mirror}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry := <-w.inbox:
			w.mirror.Publish(ctx, entry)
		}
	}
}
