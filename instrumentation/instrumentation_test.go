package instrumentation

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewDisabledUsesNoop(t *testing.T) {
	inst, err := New(Config{ServiceName: "aeroscan-test"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if inst.Metrics() == nil {
		t.Fatal("Metrics() = nil, want instruments even when disabled")
	}

	// Recording against the no-op provider must be safe.
	ctx := context.Background()
	inst.Metrics().RecordHTTPRequest(ctx, "GET", "/api/health", 200, 1.5)
	inst.Metrics().RecordFlowStarted(ctx)
	inst.Metrics().RecordRateLimitExceeded(ctx, "ip")

	if err := inst.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestMetricsRecorded(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	inst, err := New(Config{
		ServiceName:   "aeroscan-test",
		Enabled:       true,
		MeterProvider: provider,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	m := inst.Metrics()
	m.RecordHTTPRequest(ctx, "GET", "/api/search", 200, 12.5)
	m.RecordFlowStarted(ctx)
	m.RecordCallbackProcessed(ctx, true)
	m.RecordCodeExchange(ctx, true)
	m.RecordTokenRefresh(ctx, false)
	m.RecordResultConsumed(ctx, true)
	m.RecordUpstreamCall(ctx, "/search", 200, 40.0)
	m.RecordUpstreamFallback(ctx, "partner-bearer")
	m.RecordRateLimitExceeded(ctx, "ip")

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	recorded := make(map[string]bool)
	for _, scope := range rm.ScopeMetrics {
		for _, metric := range scope.Metrics {
			recorded[metric.Name] = true
		}
	}

	for _, name := range []string{
		"aeroscan.http.requests.total",
		"aeroscan.http.request.duration",
		"aeroscan.oauth.flow.started",
		"aeroscan.oauth.callback.processed",
		"aeroscan.oauth.code.exchanged",
		"aeroscan.oauth.token.refreshed",
		"aeroscan.oauth.result.consumed",
		"aeroscan.upstream.calls.total",
		"aeroscan.upstream.call.duration",
		"aeroscan.upstream.auth.fallbacks",
		"aeroscan.security.ratelimit.exceeded",
	} {
		if !recorded[name] {
			t.Errorf("metric %s was not recorded", name)
		}
	}
}

func TestMeterScopeNaming(t *testing.T) {
	inst, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	// Scoped meters and tracers must not panic on the noop providers.
	_ = inst.Meter("http")
	_ = inst.Tracer("flow")
}
