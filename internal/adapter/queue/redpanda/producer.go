// Package redpanda publishes and consumes application re-scoring events
// over Kafka-compatible brokers.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/job-match-scorer/internal/domain"
	"github.com/fairyhunter13/job-match-scorer/internal/health"
	"github.com/fairyhunter13/job-match-scorer/internal/observability"
)

// DefaultTopic carries re-scoring requests for edited applications.
const DefaultTopic = "application-rescore"

// Record header keys.
const (
	HeaderEventID       = "event_id"
	HeaderApplicationID = "application_id"
	HeaderRequestID     = "request_id"
)

// syncProducer is the part of *kgo.Client the Producer needs.
type syncProducer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Ping(ctx context.Context) error
	Close()
}

// Producer publishes RescoreEvents. Records are keyed by application id so
// edits of one application are re-scored in order.
type Producer struct {
	client syncProducer
	topic  string
	obs    *observability.ObservableClient
	flag   *health.Flag
}

var _ domain.RescoreQueue = (*Producer)(nil)

// NewProducer connects to brokers and makes sure topic exists.
func NewProducer(ctx context.Context, brokers []string, topic string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("op=redpanda.NewProducer: no seed brokers provided")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequestRetries(10),
		kgo.ProducerBatchMaxBytes(1000000),
		kgo.WithHooks(tracingHooks()...),
	)
	if err != nil {
		return nil, fmt.Errorf("op=redpanda.NewProducer: %w", err)
	}
	if err := ensureTopic(ctx, client, topic, 3, 1); err != nil {
		slog.Warn("failed to ensure topic, it may already exist", slog.String("topic", topic), slog.Any("error", err))
	}
	slog.Info("redpanda producer created", slog.Any("brokers", brokers), slog.String("topic", topic))
	return newProducer(client, topic, brokers[0]), nil
}

func newProducer(client syncProducer, topic, endpoint string) *Producer {
	return &Producer{
		client: client,
		topic:  topic,
		obs:    observability.NewObservableClient(observability.DependencyQueue, endpoint),
		flag:   health.NewFlag(string(observability.DependencyQueue), true),
	}
}

func tracingHooks() []kgo.Hook {
	tracer := kotel.NewTracer(
		kotel.TracerProvider(otel.GetTracerProvider()),
		kotel.TracerPropagator(otel.GetTextMapPropagator()),
	)
	return kotel.NewKotel(kotel.WithTracer(tracer)).Hooks()
}

// EnqueueRescore publishes ev and returns its application id once the broker acknowledged it.
func (p *Producer) EnqueueRescore(ctx domain.Context, ev domain.RescoreEvent) (string, error) {
	if ev.ApplicationID == "" {
		return "", fmt.Errorf("op=redpanda.EnqueueRescore: %w: application id required", domain.ErrInvalidArgument)
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("op=redpanda.EnqueueRescore: %w", err)
	}
	rec := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(ev.ApplicationID),
		Value: b,
		Headers: []kgo.RecordHeader{
			{Key: HeaderEventID, Value: []byte(ev.EventID)},
			{Key: HeaderApplicationID, Value: []byte(ev.ApplicationID)},
		},
	}
	if rid := observability.RequestIDFromContext(ctx); rid != "" {
		rec.Headers = append(rec.Headers, kgo.RecordHeader{Key: HeaderRequestID, Value: []byte(rid)})
	}

	err = p.obs.ExecuteWithMetrics(ctx, "produce", func(ctx context.Context) error {
		return p.client.ProduceSync(ctx, rec).FirstErr()
	})
	p.flag.Set(err == nil)
	if err != nil {
		return "", fmt.Errorf("op=redpanda.EnqueueRescore: %w: %v", domain.ErrUpstreamUnavailable, err)
	}
	observability.LoggerWithRequestID(ctx).Info("rescore event published",
		slog.String("topic", p.topic),
		slog.String("application_id", ev.ApplicationID),
		slog.String("event_id", ev.EventID))
	return ev.ApplicationID, nil
}

// Available reports whether the last produce or ping reached the brokers.
func (p *Producer) Available() bool { return p.flag.IsHealthy() }

// Reprobe pings the brokers and stores the result in the health flag.
func (p *Producer) Reprobe(ctx context.Context) bool {
	err := p.client.Ping(ctx)
	if p.flag.Set(err == nil) {
		observability.LoggerWithRequestID(ctx).Info("queue health changed", slog.Bool("healthy", err == nil), slog.Any("ping_error", err))
	}
	return err == nil
}

// Stats reports in-process produce statistics.
func (p *Producer) Stats() map[string]interface{} { return p.obs.GetHealthStatus() }

// Close flushes and closes the client.
func (p *Producer) Close() error {
	if p.client != nil {
		p.client.Close()
	}
	return nil
}
