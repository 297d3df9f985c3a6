package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	obsadapter "github.com/fairyhunter13/job-match-scorer/internal/adapter/observability"
)

// ObservableClient wraps calls to one remote dependency with a span, a
// Prometheus sample and in-process statistics. It never retries and adds
// no timeout of its own; the wrapped call is attempted exactly once.
type ObservableClient struct {
	Metrics    *ConnectionMetrics
	Dependency Dependency
	Endpoint   string

	tracer trace.Tracer
}

// NewObservableClient creates a new observable client
func NewObservableClient(dep Dependency, endpoint string) *ObservableClient {
	return &ObservableClient{
		Metrics:    NewConnectionMetrics(dep, endpoint),
		Dependency: dep,
		Endpoint:   endpoint,
		tracer:     otel.Tracer("job-match-scorer/" + string(dep)),
	}
}

// ExecuteWithMetrics runs operation once and records its outcome.
func (oc *ObservableClient) ExecuteWithMetrics(
	ctx context.Context,
	operationName string,
	operation func(ctx context.Context) error,
) error {
	ctx, span := oc.tracer.Start(ctx, fmt.Sprintf("%s.%s", oc.Dependency, operationName))
	defer span.End()
	span.SetAttributes(
		attribute.String("dependency", string(oc.Dependency)),
		attribute.String("endpoint", oc.Endpoint),
		attribute.String("operation.name", operationName),
	)

	oc.Metrics.RecordRequest()
	start := time.Now()
	err := operation(ctx)
	duration := time.Since(start)

	status := classify(err)
	lg := LoggerWithRequestID(ctx)
	switch status {
	case StatusSuccess:
		oc.Metrics.RecordSuccess(duration)
		span.SetStatus(codes.Ok, "")
		lg.Debug("remote call succeeded",
			slog.String("dependency", string(oc.Dependency)),
			slog.String("operation", operationName),
			slog.Duration("duration", duration))
	case StatusTimeout:
		oc.Metrics.RecordTimeout()
		span.RecordError(err)
		span.SetStatus(codes.Error, StatusTimeout)
		lg.Warn("remote call timed out",
			slog.String("dependency", string(oc.Dependency)),
			slog.String("operation", operationName),
			slog.String("endpoint", oc.Endpoint),
			slog.Duration("duration", duration))
	default:
		oc.Metrics.RecordFailure(errorKind(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		lg.Warn("remote call failed",
			slog.String("dependency", string(oc.Dependency)),
			slog.String("operation", operationName),
			slog.String("endpoint", oc.Endpoint),
			slog.Any("error", err),
			slog.Duration("duration", duration))
	}
	span.SetAttributes(attribute.String("status", status), attribute.Float64("duration.seconds", duration.Seconds()))
	obsadapter.ObserveRemoteCall(string(oc.Dependency), operationName, status, duration)
	return err
}

// GetHealthStatus returns the call statistics of the dependency.
func (oc *ObservableClient) GetHealthStatus() map[string]interface{} {
	return oc.Metrics.GetStats()
}

func classify(err error) string {
	if err == nil {
		return StatusSuccess
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return StatusTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return StatusTimeout
	}
	return StatusError
}

// errorKind keeps the error_counts keys bounded.
func errorKind(err error) string {
	var ne net.Error
	var ce *CallError
	switch {
	case errors.As(err, &ce):
		return ce.Kind
	case errors.As(err, &ne):
		return "network"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "other"
	}
}

// CallError tags a failed remote call with a bounded kind such as "status" or "decode".
type CallError struct {
	Kind string
	Err  error
}

func (e *CallError) Error() string { return e.Kind + ": " + e.Err.Error() }

func (e *CallError) Unwrap() error { return e.Err }
