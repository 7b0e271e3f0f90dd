package audit

import (
	"context"

	"go.uber.org/zap"
)

// Appender is the durable, chain-maintaining side of the audit trail.
type Appender interface {
	Append(ctx context.Context, e Entry) (*Entry, error)
}

// Publisher fronts the Appender and fans successful entries out to an
// optional mirror channel. The chain write stays synchronous - it is the
// source of truth - while mirroring is best-effort and never blocks or fails
// an enforcement decision.
type Publisher struct {
	primary Appender
	inbox   chan<- Entry
	log     *zap.Logger
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithMirrorChannel fans appended entries into ch, typically consumed by a
// Worker driving a Kafka mirror.
func WithMirrorChannel(ch chan<- Entry) PublisherOption {
	return func(p *Publisher) { p.inbox = ch }
}

func NewPublisher(primary Appender, log *zap.Logger, opts ...PublisherOption) *Publisher {
	p := &Publisher{primary: primary, log: log}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

func (p *Publisher) Append(ctx context.Context, e Entry) (*Entry, error) {
	entry, err := p.primary.Append(ctx, e)
	if err != nil {
		return nil, err
	}
	if p.inbox != nil {
		select {
		case p.inbox <- *entry:
		default:
			p.log.Warn("audit mirror inbox full, dropping mirror copy",
				zap.String("event_id", entry.EventID))
		}
	}
	return entry, nil
}
