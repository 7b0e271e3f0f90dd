package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// KafkaMirror publishes entry copies to a Kafka topic for operator pipelines
// (SIEM, long-term retention). It is a mirror only: the file chain remains
// the source of truth and produce failures are logged, never surfaced to the
// enforcement path.
type KafkaMirror struct {
	client *kgo.Client
	log    *zap.Logger
}

func NewKafkaMirror(brokers []string, topic string, log *zap.Logger) (*KafkaMirror, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("init kafka mirror: %w", err)
	}
	return &KafkaMirror{client: client, log: log}, nil
}

func (m *KafkaMirror) Publish(ctx context.Context, e Entry) {
	data, err := json.Marshal(e)
	if err != nil {
		m.log.Warn("marshal audit mirror entry", zap.Error(err))
		return
	}
	record := &kgo.Record{
		Key:   []byte(e.UserID),
		Value: data,
	}
	m.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			m.log.Warn("audit mirror produce failed",
				zap.String("event_id", e.EventID),
				zap.Error(err))
		}
	})
}

func (m *KafkaMirror) Close() {
	m.client.Close()
}
