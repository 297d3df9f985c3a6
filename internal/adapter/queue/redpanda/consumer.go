package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/job-match-scorer/internal/domain"
	"github.com/fairyhunter13/job-match-scorer/internal/observability"
)

// RescoreHandler processes one decoded re-scoring event.
type RescoreHandler interface {
	HandleRescore(ctx domain.Context, ev domain.RescoreEvent) error
}

// fetcher is the part of *kgo.Client the Consumer needs.
type fetcher interface {
	PollFetches(ctx context.Context) kgo.Fetches
	CommitRecords(ctx context.Context, rs ...*kgo.Record) error
	Close()
}

// Consumer reads RescoreEvents with a consumer group and hands each to the
// handler. Offsets are committed after a record is handled, so delivery is
// at-least-once; re-scoring is idempotent, which makes redelivery harmless.
// Each record is handed to the handler once; the handler owns any retries.
type Consumer struct {
	client  fetcher
	handler RescoreHandler
	tracer  *kotel.Tracer
	groupID string
	topic   string
}

// NewConsumer joins groupID on topic.
func NewConsumer(ctx context.Context, brokers []string, groupID, topic string, h RescoreHandler) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("op=redpanda.NewConsumer: no seed brokers provided")
	}
	if groupID == "" {
		return nil, fmt.Errorf("op=redpanda.NewConsumer: missing required group ID")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	tracer := kotel.NewTracer(
		kotel.TracerProvider(otel.GetTracerProvider()),
		kotel.TracerPropagator(otel.GetTextMapPropagator()),
		kotel.ConsumerGroup(groupID),
	)
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topic),
		kgo.DisableAutoCommit(),
		kgo.FetchIsolationLevel(kgo.ReadCommitted()),
		kgo.DialTimeout(10*time.Second),
		kgo.SessionTimeout(30*time.Second),
		kgo.HeartbeatInterval(3*time.Second),
		kgo.FetchMaxWait(5*time.Second),
		kgo.WithHooks(kotel.NewKotel(kotel.WithTracer(tracer)).Hooks()...),
	)
	if err != nil {
		return nil, fmt.Errorf("op=redpanda.NewConsumer: %w", err)
	}
	if err := ensureTopic(ctx, client, topic, 3, 1); err != nil {
		slog.Warn("failed to ensure topic, it may already exist", slog.String("topic", topic), slog.Any("error", err))
	}
	slog.Info("redpanda consumer created", slog.String("group_id", groupID), slog.String("topic", topic))
	c := newConsumer(client, h)
	c.tracer, c.groupID, c.topic = tracer, groupID, topic
	return c, nil
}

func newConsumer(client fetcher, h RescoreHandler) *Consumer {
	return &Consumer{client: client, handler: h}
}

// Run polls until ctx is cancelled or the client is closed.
func (c *Consumer) Run(ctx context.Context) error {
	slog.Info("redpanda consumer started", slog.String("group_id", c.groupID), slog.String("topic", c.topic))
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			slog.Error("fetch error", slog.String("topic", topic), slog.Int("partition", int(partition)), slog.Any("error", err))
		})
		var done []*kgo.Record
		fetches.EachRecord(func(r *kgo.Record) {
			if err := c.processRecord(ctx, r); err != nil && ctx.Err() != nil {
				return
			}
			done = append(done, r)
		})
		if len(done) == 0 {
			continue
		}
		if err := c.client.CommitRecords(ctx, done...); err != nil {
			slog.Error("commit failed", slog.Int("records", len(done)), slog.Any("error", err))
		}
	}
}

// processRecord decodes r and hands it to the handler. Failed records are
// logged and skipped.
func (c *Consumer) processRecord(ctx context.Context, r *kgo.Record) error {
	if c.tracer != nil {
		_, pspan := c.tracer.WithProcessSpan(r)
		defer pspan.End()
		ctx = trace.ContextWithSpan(ctx, pspan)
	}
	ctx, span := otel.Tracer("queue.consumer").Start(ctx, "ProcessRescore")
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.topic", r.Topic),
		attribute.Int64("messaging.offset", r.Offset),
	)

	var ev domain.RescoreEvent
	if err := json.Unmarshal(r.Value, &ev); err != nil {
		slog.Error("dropping undecodable rescore record",
			slog.String("failure_code", failureCode(err)),
			slog.Int64("offset", r.Offset),
			slog.Int("partition", int(r.Partition)),
			slog.Any("error", err))
		span.SetStatus(codes.Error, "decode")
		return err
	}
	if rid := header(r, HeaderRequestID); rid != "" {
		ctx = observability.ContextWithRequestID(ctx, rid)
	}
	ctx = observability.ContextWithLogger(ctx, observability.LoggerFromContext(ctx).With(
		slog.String("event_id", ev.EventID)))
	lg := observability.LoggerWithRequestID(ctx).With(slog.String("application_id", ev.ApplicationID))

	if err := c.handler.HandleRescore(ctx, ev); err != nil {
		lg.Error("rescore failed, skipping record",
			slog.String("failure_code", failureCode(err)),
			slog.Bool("retryable", !permanent(err)),
			slog.Any("error", err))
		span.SetStatus(codes.Error, failureCode(err))
		return err
	}
	return nil
}

func header(r *kgo.Record, key string) string {
	for _, h := range r.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// Close leaves the group and closes the client.
func (c *Consumer) Close() error {
	if c.client != nil {
		c.client.Close()
	}
	return nil
}
