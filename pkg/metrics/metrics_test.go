package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var testCounter = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
	Name: "mws_metrics_test_total",
	Help: "Counter used by the metrics package tests",
})

func TestRegistry(t *testing.T) {
	if Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
	if Gatherer != prometheus.DefaultGatherer {
		t.Error("Gatherer should be the default Prometheus gatherer")
	}
}

func TestNames(t *testing.T) {
	testCounter.Inc()

	names, err := Names()
	if err != nil {
		t.Fatalf("Names() error = %v", err)
	}
	found := false
	for _, n := range names {
		if !strings.HasPrefix(n, Prefix) {
			t.Errorf("Names() returned %q without prefix", n)
		}
		if n == "mws_metrics_test_total" {
			found = true
		}
	}
	if !found {
		t.Errorf("Names() = %v, want mws_metrics_test_total", names)
	}
}

func TestHandler(t *testing.T) {
	testCounter.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(string(body), "mws_metrics_test_total") {
		t.Errorf("body does not contain test counter")
	}
}

func TestServe_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "127.0.0.1:0") }()

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Serve() error = %v", err)
	}
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	err := Registry.Register(prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mws_metrics_test_total",
		Help: "Counter used by the metrics package tests",
	}))
	var already prometheus.AlreadyRegisteredError
	if !errors.As(err, &already) {
		t.Errorf("Register() error = %v, want AlreadyRegisteredError", err)
	}
}
