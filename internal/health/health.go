// Package health tracks whether a remote dependency is currently assumed reachable.
package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/fairyhunter13/job-match-scorer/internal/domain"
)

// Flag is a per-dependency availability latch. Once marked unhealthy it
// stays that way until something explicitly marks it healthy again.
// Safe for concurrent use.
type Flag struct {
	name    string
	healthy atomic.Bool
}

// NewFlag returns a flag in the given initial state.
func NewFlag(name string, healthy bool) *Flag {
	f := &Flag{name: name}
	f.healthy.Store(healthy)
	return f
}

// Name identifies the dependency the flag belongs to.
func (f *Flag) Name() string { return f.name }

// IsHealthy reports the current state.
func (f *Flag) IsHealthy() bool { return f.healthy.Load() }

// MarkUnhealthy latches the flag to false and reports whether this call changed it.
func (f *Flag) MarkUnhealthy() bool { return f.healthy.Swap(false) }

// MarkHealthy sets the flag to true and reports whether this call changed it.
func (f *Flag) MarkHealthy() bool { return !f.healthy.Swap(true) }

// Set stores v and reports whether the state changed.
func (f *Flag) Set(v bool) bool { return f.healthy.Swap(v) != v }

// Probe issues an unauthenticated GET to baseURL's root and returns nil on a 2xx answer.
func Probe(ctx context.Context, client *http.Client, baseURL string) error {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("op=health.Probe: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("op=health.Probe: %w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("op=health.Probe: %w: status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}
	return nil
}
