// Package ml is the client of the remote ML prediction service.
package ml

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
)

const (
	predictPath   = "/api/predict"
	modelInfoPath = "/api/model-info"

	maxResponseBytes = 1 << 20

	DefaultConnectTimeout = 10 * time.Second
	DefaultReadTimeout    = 30 * time.Second
)

// Client implements domain.Predictor over HTTP/JSON. It probes the service
// once at construction; while the health flag is down Predict answers with
// domain.FallbackPrediction without touching the network.
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

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithHealthFlag shares an existing flag with the client.
func WithHealthFlag(f *health.Flag) Option {
	return func(c *Client) { c.flag = f }
}

// New constructs the client and runs the one-time liveness probe.
func New(ctx context.Context, baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		connectTimeout: DefaultConnectTimeout,
		readTimeout:    DefaultReadTimeout,
		obs:            observability.NewObservableClient(observability.DependencyML, baseURL),
		validate:       validator.New(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.httpClient == nil {
		tr := &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: c.connectTimeout, KeepAlive: 30 * time.Second}).DialContext,
			TLSHandshakeTimeout:   c.connectTimeout,
			ResponseHeaderTimeout: c.readTimeout,
			MaxIdleConnsPerHost:   4,
			IdleConnTimeout:       90 * time.Second,
		}
		c.httpClient = &http.Client{Timeout: c.connectTimeout + c.readTimeout, Transport: otelhttp.NewTransport(tr)}
	}
	if c.flag == nil {
		c.flag = health.NewFlag(string(observability.DependencyML), true)
	}
	c.Reprobe(ctx)
	return c
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
		observability.LoggerWithRequestID(ctx).Info("ml service health changed",
			slog.Bool("healthy", ok), slog.Any("probe_error", err))
	}
	obsadapter.SetDependencyHealth(string(observability.DependencyML), ok)
	return ok
}

type predictRequest struct {
	CvData  domain.CvData    `json:"cv_data"`
	JobData domain.MLJobData `json:"job_data"`
}

type predictResponse struct {
	Success    bool     `json:"success"`
	Prediction string   `json:"prediction"`
	MLScore    *float64 `json:"ml_score" validate:"omitempty,gte=0,lte=100"`
	Confidence string   `json:"confidence"`
	Error      string   `json:"error"`
}

// Predict implements domain.Predictor. Failures latch the health flag and
// return domain.FallbackPrediction; nothing is retried.
func (c *Client) Predict(ctx context.Context, cv domain.CvData, job domain.MLJobData) domain.MLPrediction {
	lg := observability.LoggerWithRequestID(ctx)
	if !c.flag.IsHealthy() {
		obsadapter.RecordFallback(string(observability.DependencyML), "unhealthy")
		lg.Debug("ml service unavailable, skipping prediction")
		return domain.FallbackPrediction()
	}

	var out domain.MLPrediction
	err := c.obs.ExecuteWithMetrics(ctx, "predict", func(callCtx context.Context) error {
		p, err := c.predict(callCtx, cv, job)
		out = p
		return err
	})
	if err != nil {
		if c.flag.MarkUnhealthy() {
			obsadapter.SetDependencyHealth(string(observability.DependencyML), false)
		}
		obsadapter.RecordFallback(string(observability.DependencyML), "call_failed")
		lg.Warn("ml prediction failed, service marked unhealthy", slog.Any("error", err))
		return domain.FallbackPrediction()
	}
	lg.Info("ml prediction received",
		slog.String("prediction", string(out.Prediction)),
		slog.Float64("ml_score", out.MLScore),
		slog.String("confidence", string(out.Confidence)))
	return out
}

func (c *Client) predict(ctx context.Context, cv domain.CvData, job domain.MLJobData) (domain.MLPrediction, error) {
	if cv.Skills == nil {
		cv.Skills = []string{}
	}
	body, err := json.Marshal(predictRequest{CvData: cv, JobData: job})
	if err != nil {
		return domain.MLPrediction{}, fmt.Errorf("op=ml.predict: %w", err)
	}
	var pr predictResponse
	if err := c.postJSON(ctx, predictPath, body, &pr); err != nil {
		return domain.MLPrediction{}, err
	}
	if !pr.Success {
		msg := pr.Error
		if msg == "" {
			msg = "success=false"
		}
		return domain.MLPrediction{}, &observability.CallError{Kind: "not_success", Err: fmt.Errorf("op=ml.predict: %w: %s", domain.ErrUpstreamUnavailable, msg)}
	}
	if err := c.validate.Struct(pr); err != nil {
		return domain.MLPrediction{}, &observability.CallError{Kind: "schema", Err: fmt.Errorf("op=ml.predict: %w: %w", domain.ErrSchemaInvalid, err)}
	}
	score := 50.0
	if pr.MLScore != nil {
		score = *pr.MLScore
	}
	return domain.MLPrediction{
		Prediction: domain.ParsePrediction(pr.Prediction),
		MLScore:    score,
		Confidence: domain.ParseConfidence(pr.Confidence),
		Available:  true,
	}, nil
}

type modelInfoResponse struct {
	Success   bool             `json:"success"`
	ModelInfo domain.ModelInfo `json:"model_info"`
	Error     string           `json:"error"`
}

// ModelInfo fetches the model description. It does not touch the health flag.
func (c *Client) ModelInfo(ctx context.Context) (domain.ModelInfo, error) {
	var mi modelInfoResponse
	err := c.obs.ExecuteWithMetrics(ctx, "model_info", func(callCtx context.Context) error {
		return c.getJSON(callCtx, modelInfoPath, &mi)
	})
	if err != nil {
		return nil, err
	}
	if !mi.Success {
		return nil, fmt.Errorf("op=ml.ModelInfo: %w: %s", domain.ErrUpstreamUnavailable, mi.Error)
	}
	return mi.ModelInfo, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("op=ml.post: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("op=ml.get: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("op=ml.do: %w: %w", domain.ErrUpstreamUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &observability.CallError{Kind: "status", Err: fmt.Errorf("op=ml.do: %w: status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)}
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return &observability.CallError{Kind: "decode", Err: fmt.Errorf("op=ml.do: %w: %w", domain.ErrSchemaInvalid, err)}
	}
	return nil
}
