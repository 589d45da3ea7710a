// Package metrics exposes the Prometheus metrics of the MWS client packs.
// Metrics are declared with promauto.With(Registry) in the packages that
// record them (throttle, quota, mws, clientpack); this package serves and
// inspects them.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Registry is the registerer all package metrics are registered with.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer matching Registry.
var Gatherer = prometheus.DefaultGatherer

// Prefix is the name prefix shared by every metric of this module.
const Prefix = "mws_"

// Handler returns an http.Handler serving the metrics in text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Serve serves /metrics on addr until ctx ends.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Names returns the sorted names of the registered metrics starting with
// Prefix that have recorded at least one series.
func Names() ([]string, error) {
	families, err := Gatherer.Gather()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, mf := range families {
		if strings.HasPrefix(mf.GetName(), Prefix) {
			names = append(names, mf.GetName())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Metrics Documentation
//
// Throttle Metrics (pkg/throttle):
//   - mws_throttle_admissions_total{method, bucket, outcome} (Counter): admission decisions
//     (admitted, waited, denied, wait_exceeded, cancelled)
//   - mws_throttle_wait_seconds{bucket} (Histogram): time spent waiting for a token
//   - mws_throttle_tokens{bucket} (Gauge): tokens left after the last take
//
// Dispatch Metrics (pkg/clientpack):
//   - mws_dispatch_calls_total{method, outcome} (Counter): throttled calls (ok, error, refused, not_admitted)
//   - mws_dispatch_admission_seconds{method} (Histogram): admission wait per call
//
// Request Metrics (pkg/mws):
//   - mws_requests_total{action, status} (Counter): requests by action and HTTP status
//   - mws_request_duration_seconds{action} (Histogram): call duration including retries
//   - mws_errors_total{class} (Counter): errors by class (client, server, throttled, network)
//   - mws_quota_remaining{action} (Gauge): hourly quota left as reported by MWS
//
// Quota Metrics (pkg/quota):
//   - mws_quota_refusals_total{bucket} (Counter): calls refused while the hourly quota was exhausted
//   - mws_quota_low_total{bucket} (Counter): responses reporting less than 10% of the hourly quota left
//
// Retry Metrics (pkg/mws):
//   - mws_retries_total{error_class} (Counter): retry attempts by error class
//   - mws_retry_backoff_seconds{error_class} (Histogram): backoff duration by error class
//   - mws_retry_exhausted_total{error_class} (Counter): calls that exhausted MaxErrorRetry
//
// Example Prometheus Queries:
//
//   # Calls refused by the max wait bound
//   sum by (method) (rate(mws_throttle_admissions_total{outcome="wait_exceeded"}[5m]))
//
//   # Server-side throttling despite local buckets
//   rate(mws_errors_total{class="throttled"}[5m])
//
//   # P95 admission wait
//   histogram_quantile(0.95, rate(mws_dispatch_admission_seconds_bucket[5m]))
