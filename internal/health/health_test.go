package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/job-match-scorer/internal/domain"
)

func TestFlag_Latch(t *testing.T) {
	f := NewFlag("nlp", true)
	assert.Equal(t, "nlp", f.Name())
	assert.True(t, f.IsHealthy())

	assert.True(t, f.MarkUnhealthy(), "first flip reports a change")
	assert.False(t, f.MarkUnhealthy(), "second flip is a no-op")
	assert.False(t, f.IsHealthy())

	assert.True(t, f.MarkHealthy())
	assert.False(t, f.MarkHealthy())
	assert.True(t, f.IsHealthy())

	assert.True(t, f.Set(false))
	assert.False(t, f.Set(false))
}

func TestFlag_ConcurrentFlips(t *testing.T) {
	f := NewFlag("ml", true)
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.MarkUnhealthy()
			_ = f.IsHealthy()
		}()
	}
	wg.Wait()
	assert.False(t, f.IsHealthy())
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ok", http.StatusOK, false},
		{"no content", http.StatusNoContent, false},
		{"server error", http.StatusInternalServerError, true},
		{"not found", http.StatusNotFound, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/", r.URL.Path)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := Probe(context.Background(), srv.Client(), srv.URL)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrUpstreamUnavailable))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestProbe_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := Probe(context.Background(), nil, url)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}
