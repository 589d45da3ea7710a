// Package clientpack dispatches MWS calls through a client's throttle
// manager. Client packs expose their manager through ThrottleAware and their
// transport through Caller; ThrottledCall admits and then forwards a call.
package clientpack

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/mws-orders-client/pkg/metrics"
	"github.com/Sternrassler/mws-orders-client/pkg/mws"
	"github.com/Sternrassler/mws-orders-client/pkg/throttle"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/Sternrassler/mws-orders-client/pkg/clientpack"

// Prometheus metrics for dispatched calls.
var (
	dispatchCallsTotal = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "mws_dispatch_calls_total",
		Help: "Total throttled calls by method and outcome",
	}, []string{"method", "outcome"})

	dispatchAdmissionSeconds = promauto.With(metrics.Registry).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mws_dispatch_admission_seconds",
		Help:    "Time spent waiting for throttle admission by method",
		Buckets: []float64{0.001, 0.01, 0.1, 1, 10, 60, 300},
	}, []string{"method"})
)

// ErrNoThrottleManager is returned when a client exposes no throttle manager.
var ErrNoThrottleManager = errors.New("client has no throttle manager")

// ThrottleAware is implemented by client packs that own a throttle manager.
type ThrottleAware interface {
	ThrottleManager() *throttle.Manager
}

// Caller performs an MWS call identified by its method identifier.
type Caller interface {
	Call(ctx context.Context, method string, params *mws.Params) (*mws.Response, error)
}

// PreAdmitter is implemented by clients that can refuse a call before it
// is admitted, so a refused call takes no throttle token and never waits.
type PreAdmitter interface {
	PreAdmit(ctx context.Context, method string) error
}

// ThrottledClient is a throttle-aware client that can perform calls.
type ThrottledClient interface {
	ThrottleAware
	Caller
}

// ThrottledCall waits for the client's throttle manager to admit method,
// then performs the call. Clients implementing PreAdmitter are consulted
// first. Admission failures are wrapped with the method name; pre-admission
// and transport errors are returned as they are.
func ThrottledCall(ctx context.Context, client ThrottledClient, method string, params *mws.Params) (*mws.Response, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "mws."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("mws.method", method),
			attribute.Int("mws.params", params.Len()),
		),
	)
	defer span.End()

	callID := span.SpanContext().TraceID().String()
	if !span.SpanContext().TraceID().IsValid() {
		callID = uuid.New().String()
	}
	logger := log.With().
		Str("component", "clientpack").
		Str("call_id", callID).
		Str("method", method).
		Logger()

	manager := client.ThrottleManager()
	if manager == nil {
		span.SetStatus(codes.Error, ErrNoThrottleManager.Error())
		return nil, fmt.Errorf("%s: %w", method, ErrNoThrottleManager)
	}

	if pre, ok := client.(PreAdmitter); ok {
		if err := pre.PreAdmit(ctx, method); err != nil {
			dispatchCallsTotal.WithLabelValues(method, "refused").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, "call refused before admission")
			logger.Warn().Err(err).Msg("Call refused before admission")
			return nil, err
		}
	}

	start := time.Now()
	if err := manager.Admit(ctx, method); err != nil {
		dispatchCallsTotal.WithLabelValues(method, "not_admitted").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "throttle admission failed")
		logger.Warn().Err(err).Dur("waited", time.Since(start)).Msg("Call not admitted")
		return nil, fmt.Errorf("admit %s: %w", method, err)
	}
	waited := time.Since(start)
	dispatchAdmissionSeconds.WithLabelValues(method).Observe(waited.Seconds())
	span.SetAttributes(attribute.Int64("mws.admission_wait_ms", waited.Milliseconds()))

	logger.Debug().Dur("waited", waited).Msg("Call admitted")

	resp, err := client.Call(ctx, method, params)
	if err != nil {
		dispatchCallsTotal.WithLabelValues(method, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "mws call failed")
		logger.Debug().Err(err).Msg("Call failed")
		return nil, err
	}

	dispatchCallsTotal.WithLabelValues(method, "ok").Inc()
	if resp != nil {
		span.SetAttributes(
			attribute.Int("http.status_code", resp.StatusCode),
			attribute.String("mws.request_id", resp.Metadata.RequestID),
		)
	}
	return resp, nil
}
