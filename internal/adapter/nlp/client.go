// Package nlp is the client of the remote CV extraction service.
//
// The service receives a base64 resume and answers with the skills,
// experience and text it found. Any failure latches the service's health
// flag to unhealthy and yields a deterministic size-based estimate instead,
// so extraction itself never fails.
package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	obsadapter "github.com/fairyhunter13/job-match-scorer/internal/adapter/observability"
	"github.com/fairyhunter13/job-match-scorer/internal/domain"
	"github.com/fairyhunter13/job-match-scorer/internal/health"
	"github.com/fairyhunter13/job-match-scorer/internal/observability"
	"github.com/fairyhunter13/job-match-scorer/pkg/textx"
)

const (
	extractPath = "/api/extract-cv-data"
	// maxResponseBytes bounds the extraction response body.
	maxResponseBytes = 8 << 20

	DefaultConnectTimeout = 10 * time.Second
	DefaultReadTimeout    = 30 * time.Second
)

// Client implements domain.CVExtractor over HTTP/JSON.
type Client struct {
	baseURL    string
	httpClient *http.Client
	flag       *health.Flag
	obs        *observability.ObservableClient
	validate   *validator.Validate

	connectTimeout time.Duration
	readTimeout    time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithTimeouts sets the connect and read timeouts of the default transport.
func WithTimeouts(connect, read time.Duration) Option {
	return func(c *Client) {
		if connect > 0 {
			c.connectTimeout = connect
		}
		if read > 0 {
			c.readTimeout = read
		}
	}
}

// WithHTTPClient replaces the HTTP client; timeouts are then the caller's concern.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithHealthFlag shares an existing flag with the client.
func WithHealthFlag(f *health.Flag) Option {
	return func(c *Client) { c.flag = f }
}

// New constructs the client and probes the service once; the probe result
// seeds the health flag.
func New(ctx context.Context, baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		connectTimeout: DefaultConnectTimeout,
		readTimeout:    DefaultReadTimeout,
		obs:            observability.NewObservableClient(observability.DependencyNLP, baseURL),
		validate:       validator.New(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.httpClient == nil {
		c.httpClient = newHTTPClient(c.connectTimeout, c.readTimeout)
	}
	if c.flag == nil {
		c.flag = health.NewFlag(string(observability.DependencyNLP), true)
	}
	c.Reprobe(ctx)
	return c
}

// newHTTPClient bounds connection setup by connect and the whole exchange by connect+read.
func newHTTPClient(connect, read time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: connect, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   connect,
		ResponseHeaderTimeout: read,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
	}
	return &http.Client{
		Timeout:   connect + read,
		Transport: otelhttp.NewTransport(tr),
	}
}

// Available reports the current health flag.
func (c *Client) Available() bool { return c.flag.IsHealthy() }

// Flag exposes the health flag for reporting.
func (c *Client) Flag() *health.Flag { return c.flag }

// Stats returns in-process call statistics.
func (c *Client) Stats() map[string]interface{} { return c.obs.GetHealthStatus() }

// Reprobe re-runs the root liveness probe and stores its result in the health flag.
func (c *Client) Reprobe(ctx context.Context) bool {
	err := health.Probe(ctx, c.httpClient, c.baseURL)
	ok := err == nil
	if c.flag.Set(ok) {
		observability.LoggerWithRequestID(ctx).Info("nlp service health changed",
			slog.Bool("healthy", ok), slog.Any("probe_error", err))
	}
	obsadapter.SetDependencyHealth(string(observability.DependencyNLP), ok)
	return ok
}

type extractRequest struct {
	Resume   string          `json:"resume"`
	FileType domain.FileKind `json:"file_type"`
}

type extractResponse struct {
	Success         bool     `json:"success"`
	Skills          []string `json:"skills" validate:"omitempty,dive,max=200"`
	ExperienceYears int      `json:"experience_years" validate:"gte=0,lte=80"`
	Education       []string `json:"education"`
	RawText         string   `json:"raw_text"`
	WordCount       int      `json:"word_count" validate:"gte=0"`
	Error           string   `json:"error"`
}

// Extract implements domain.CVExtractor. It never fails: an empty resume
// yields empty CvData without a network call, and every remote failure
// yields SizeFallback.
func (c *Client) Extract(ctx context.Context, resume string, kind domain.FileKind) domain.CvData {
	if strings.TrimSpace(resume) == "" {
		return domain.CvData{}
	}
	lg := observability.LoggerWithRequestID(ctx)
	if !c.flag.IsHealthy() {
		lg.Info("nlp service unavailable, using size-based estimate", slog.Int("resume_chars", len(resume)))
		obsadapter.RecordFallback(string(observability.DependencyNLP), "unhealthy")
		return SizeFallback(resume)
	}
	if kind == "" {
		kind = DetectFileKind(resume)
	}

	var out domain.CvData
	err := c.obs.ExecuteWithMetrics(ctx, "extract", func(callCtx context.Context) error {
		cv, err := c.extract(callCtx, resume, kind)
		out = cv
		return err
	})
	if err != nil {
		if c.flag.MarkUnhealthy() {
			obsadapter.SetDependencyHealth(string(observability.DependencyNLP), false)
		}
		lg.Warn("nlp extraction failed, service marked unhealthy",
			slog.Any("error", err), slog.Int("resume_chars", len(resume)))
		obsadapter.RecordFallback(string(observability.DependencyNLP), "call_failed")
		return SizeFallback(resume)
	}
	lg.Info("nlp extraction succeeded",
		slog.Int("skills", len(out.Skills)),
		slog.Int("experience_years", out.ExperienceYears),
		slog.Int("education", len(out.Education)))
	return out
}

func (c *Client) extract(ctx context.Context, resume string, kind domain.FileKind) (domain.CvData, error) {
	body, err := json.Marshal(extractRequest{Resume: resume, FileType: kind})
	if err != nil {
		return domain.CvData{}, fmt.Errorf("op=nlp.extract: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+extractPath, bytes.NewReader(body))
	if err != nil {
		return domain.CvData{}, fmt.Errorf("op=nlp.extract: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.CvData{}, fmt.Errorf("op=nlp.extract: %w: %w", domain.ErrUpstreamUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.CvData{}, &observability.CallError{Kind: "status", Err: fmt.Errorf("op=nlp.extract: %w: status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)}
	}

	var er extractResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&er); err != nil {
		return domain.CvData{}, &observability.CallError{Kind: "decode", Err: fmt.Errorf("op=nlp.extract: %w: %w", domain.ErrSchemaInvalid, err)}
	}
	if !er.Success {
		msg := er.Error
		if msg == "" {
			msg = "success=false"
		}
		return domain.CvData{}, &observability.CallError{Kind: "not_success", Err: fmt.Errorf("op=nlp.extract: %w: %s", domain.ErrUpstreamUnavailable, msg)}
	}
	if err := c.validate.Struct(er); err != nil {
		return domain.CvData{}, &observability.CallError{Kind: "schema", Err: fmt.Errorf("op=nlp.extract: %w: %w", domain.ErrSchemaInvalid, err)}
	}
	return toCvData(er), nil
}

// toCvData normalizes skills to distinct lowercase tokens and sanitizes the text.
func toCvData(er extractResponse) domain.CvData {
	skills := make([]string, 0, len(er.Skills))
	seen := make(map[string]struct{}, len(er.Skills))
	for _, s := range er.Skills {
		s = textx.Normalize(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		skills = append(skills, s)
	}
	raw := textx.SanitizeText(er.RawText)
	wc := er.WordCount
	if wc == 0 {
		wc = textx.WordCount(raw)
	}
	return domain.CvData{
		Skills:          skills,
		ExperienceYears: er.ExperienceYears,
		Education:       er.Education,
		RawText:         raw,
		WordCount:       wc,
	}
}

// Size thresholds of the fallback estimate, in resume characters.
const (
	comprehensiveResumeChars = 100_000
	standardResumeChars      = 50_000
)

// SizeFallback estimates CvData from the resume length alone. It is coarse
// and only keeps the pipeline going when extraction is unavailable. The size
// label goes into Education; RawText stays empty so no job keyword can match it.
func SizeFallback(resume string) domain.CvData {
	cv := domain.CvData{Skills: []string{}, Fallback: true}
	switch n := len(resume); {
	case n > comprehensiveResumeChars:
		cv.ExperienceYears, cv.Education = 5, []string{"comprehensive"}
	case n > standardResumeChars:
		cv.ExperienceYears, cv.Education = 3, []string{"standard"}
	default:
		cv.ExperienceYears, cv.Education = 1, []string{"basic"}
	}
	return cv
}
