package ml

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/job-match-scorer/internal/domain"
	"github.com/fairyhunter13/job-match-scorer/internal/health"
)

type fakeML struct {
	srv      *httptest.Server
	predicts atomic.Int32
	rootCode atomic.Int32
}

func newFakeML(t *testing.T, predict http.HandlerFunc) *fakeML {
	t.Helper()
	f := &fakeML{}
	f.rootCode.Store(http.StatusOK)
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.WriteHeader(int(f.rootCode.Load()))
		case predictPath:
			f.predicts.Add(1)
			predict(w, r)
		case modelInfoPath:
			_, _ = w.Write([]byte(`{"success":true,"model_info":{"model_type":"RandomForest","accuracy":0.87}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

var (
	cv  = domain.CvData{Skills: []string{"java", "sql"}, ExperienceYears: 6, RawText: "java sql"}
	job = domain.MLJobData{Title: "Backend", RequiredSkills: "Java, SQL", Description: "5+ years", RequiredExperience: 5}
)

func TestPredict_Success(t *testing.T) {
	var got predictRequest
	f := newFakeML(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true,"prediction":"ACCEPTED","ml_score":80,"confidence":"high"}`))
	})
	c := New(context.Background(), f.srv.URL)
	require.True(t, c.Available())

	p := c.Predict(context.Background(), cv, job)
	assert.Equal(t, domain.MLPrediction{Prediction: domain.PredictionAccepted, MLScore: 80, Confidence: domain.ConfidenceHigh, Available: true}, p)
	assert.Equal(t, cv, got.CvData)
	assert.Equal(t, job, got.JobData)
}

func TestPredict_MissingFieldsUseDefaults(t *testing.T) {
	f := newFakeML(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"prediction":"MAYBE"}`))
	})
	c := New(context.Background(), f.srv.URL)

	p := c.Predict(context.Background(), domain.CvData{}, job)
	assert.Equal(t, domain.PredictionUnknown, p.Prediction)
	assert.Equal(t, 50.0, p.MLScore)
	assert.Equal(t, domain.ConfidenceLow, p.Confidence)
	assert.True(t, p.Available)
}

func TestPredict_UnhealthyMakesNoCall(t *testing.T) {
	f := newFakeML(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("predict must not be called")
	})
	f.rootCode.Store(http.StatusServiceUnavailable)
	c := New(context.Background(), f.srv.URL)
	require.False(t, c.Available())

	assert.Equal(t, domain.FallbackPrediction(), c.Predict(context.Background(), cv, job))
	assert.EqualValues(t, 0, f.predicts.Load())
}

func TestPredict_FailuresLatch(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non-2xx", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) }},
		{"malformed", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`not json`)) }},
		{"success false", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"success":false,"error":"model not loaded"}`))
		}},
		{"score out of range", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"success":true,"prediction":"ACCEPTED","ml_score":180,"confidence":"high"}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeML(t, tt.handler)
			c := New(context.Background(), f.srv.URL)

			assert.Equal(t, domain.FallbackPrediction(), c.Predict(context.Background(), cv, job))
			assert.False(t, c.Available())

			assert.Equal(t, domain.FallbackPrediction(), c.Predict(context.Background(), cv, job))
			assert.EqualValues(t, 1, f.predicts.Load(), "second call skips the network")
		})
	}
}

func TestPredict_Timeout(t *testing.T) {
	release := make(chan struct{})
	f := newFakeML(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	c := New(context.Background(), f.srv.URL, WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
	start := time.Now()
	assert.Equal(t, domain.FallbackPrediction(), c.Predict(context.Background(), cv, job))
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.False(t, c.Available())
}

func TestReprobe(t *testing.T) {
	f := newFakeML(t, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) })
	flag := health.NewFlag("ml", true)
	c := New(context.Background(), f.srv.URL, WithHealthFlag(flag))
	_ = c.Predict(context.Background(), cv, job)
	require.False(t, flag.IsHealthy())

	assert.True(t, c.Reprobe(context.Background()))
	assert.True(t, c.Available())

	f.rootCode.Store(http.StatusInternalServerError)
	assert.False(t, c.Reprobe(context.Background()))
	assert.False(t, c.Available())
}

func TestModelInfo(t *testing.T) {
	f := newFakeML(t, func(w http.ResponseWriter, r *http.Request) {})
	c := New(context.Background(), f.srv.URL)

	info, err := c.ModelInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "RandomForest", info["model_type"])
	assert.True(t, c.Available())
}

func TestModelInfo_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(context.Background(), url)
	assert.False(t, c.Available())
	_, err := c.ModelInfo(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstreamUnavailable))
}

func TestNew_Timeouts(t *testing.T) {
	f := newFakeML(t, func(w http.ResponseWriter, r *http.Request) {})
	c := New(context.Background(), f.srv.URL+"/", WithTimeouts(2*time.Second, 3*time.Second))
	assert.Equal(t, 5*time.Second, c.httpClient.Timeout)
	assert.Equal(t, f.srv.URL, c.baseURL)
}
