package redpanda

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/fairyhunter13/job-match-scorer/internal/domain"
	"github.com/fairyhunter13/job-match-scorer/internal/observability"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
	pingErr error
	closed  bool
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	f.records = append(f.records, rs...)
	out := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		out = append(out, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return out
}

func (f *fakeProducer) Close() { f.closed = true }

func (f *fakeProducer) Ping(context.Context) error { return f.pingErr }

func sampleEvent() domain.RescoreEvent {
	return domain.RescoreEvent{
		EventID:       "e-1",
		ApplicationID: "app-1",
		Request: domain.ScoreRequest{
			Application: domain.Application{ID: "app-1", Resume: "JVBERi0="},
			JobOffer:    domain.JobOffer{Title: "Engineer", Skills: "Go"},
		},
	}
}

func TestProducer_EnqueueRescore(t *testing.T) {
	fp := &fakeProducer{}
	p := newProducer(fp, DefaultTopic, "localhost:19092")
	ctx := observability.ContextWithRequestID(context.Background(), "req-1")

	id, err := p.EnqueueRescore(ctx, sampleEvent())
	require.NoError(t, err)
	assert.Equal(t, "app-1", id)
	require.Len(t, fp.records, 1)

	rec := fp.records[0]
	assert.Equal(t, DefaultTopic, rec.Topic)
	assert.Equal(t, "app-1", string(rec.Key))
	assert.Equal(t, "e-1", header(rec, HeaderEventID))
	assert.Equal(t, "app-1", header(rec, HeaderApplicationID))
	assert.Equal(t, "req-1", header(rec, HeaderRequestID))

	var got domain.RescoreEvent
	require.NoError(t, json.Unmarshal(rec.Value, &got))
	assert.Equal(t, sampleEvent(), got)

	assert.Equal(t, int64(1), p.Stats()["total_requests"])
	require.NoError(t, p.Close())
	assert.True(t, fp.closed)
}

func TestProducer_EnqueueRescore_Errors(t *testing.T) {
	p := newProducer(&fakeProducer{err: errors.New("broker down")}, DefaultTopic, "b")
	_, err := p.EnqueueRescore(context.Background(), sampleEvent())
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)

	ev := sampleEvent()
	ev.ApplicationID = ""
	_, err = p.EnqueueRescore(context.Background(), ev)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestNewProducer_NoBrokers(t *testing.T) {
	_, err := NewProducer(context.Background(), nil, "")
	assert.Error(t, err)
}

func TestProducer_AvailabilityFollowsBroker(t *testing.T) {
	fp := &fakeProducer{err: errors.New("broker down")}
	p := newProducer(fp, DefaultTopic, "localhost:9092")
	require.True(t, p.Available())

	_, err := p.EnqueueRescore(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.False(t, p.Available())

	fp.pingErr = errors.New("still down")
	assert.False(t, p.Reprobe(context.Background()))

	fp.pingErr, fp.err = nil, nil
	assert.True(t, p.Reprobe(context.Background()))
	assert.True(t, p.Available())
	assert.EqualValues(t, 1, p.Stats()["total_requests"])
}
