package instrumentation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds pre-configured metric instruments for all layers
type Metrics struct {
	// HTTP layer
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	// OAuth flow
	FlowStarted       metric.Int64Counter
	CallbackProcessed metric.Int64Counter
	CodeExchanged     metric.Int64Counter
	TokenRefreshed    metric.Int64Counter
	ResultConsumed    metric.Int64Counter

	// Upstream partner API
	UpstreamCallsTotal   metric.Int64Counter
	UpstreamCallDuration metric.Float64Histogram
	UpstreamFallbacks    metric.Int64Counter

	// Security
	RateLimitExceeded metric.Int64Counter
}

func newMetrics(inst *Instrumentation) (*Metrics, error) {
	m := &Metrics{}
	httpMeter := inst.Meter("http")
	flowMeter := inst.Meter("flow")
	upstreamMeter := inst.Meter("upstream")
	securityMeter := inst.Meter("security")

	var err error
	m.HTTPRequestsTotal, err = httpMeter.Int64Counter(
		"aeroscan.http.requests.total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http.requests.total counter: %w", err)
	}

	m.HTTPRequestDuration, err = httpMeter.Float64Histogram(
		"aeroscan.http.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http.request.duration histogram: %w", err)
	}

	m.FlowStarted, err = flowMeter.Int64Counter(
		"aeroscan.oauth.flow.started",
		metric.WithDescription("Number of OAuth flows started"),
		metric.WithUnit("{flow}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth.flow.started counter: %w", err)
	}

	m.CallbackProcessed, err = flowMeter.Int64Counter(
		"aeroscan.oauth.callback.processed",
		metric.WithDescription("Number of OAuth callbacks processed"),
		metric.WithUnit("{callback}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth.callback.processed counter: %w", err)
	}

	m.CodeExchanged, err = flowMeter.Int64Counter(
		"aeroscan.oauth.code.exchanged",
		metric.WithDescription("Number of authorization codes exchanged for tokens"),
		metric.WithUnit("{exchange}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth.code.exchanged counter: %w", err)
	}

	m.TokenRefreshed, err = flowMeter.Int64Counter(
		"aeroscan.oauth.token.refreshed",
		metric.WithDescription("Number of tokens refreshed"),
		metric.WithUnit("{refresh}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth.token.refreshed counter: %w", err)
	}

	m.ResultConsumed, err = flowMeter.Int64Counter(
		"aeroscan.oauth.result.consumed",
		metric.WithDescription("Number of one-time OAuth results retrieved"),
		metric.WithUnit("{result}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth.result.consumed counter: %w", err)
	}

	m.UpstreamCallsTotal, err = upstreamMeter.Int64Counter(
		"aeroscan.upstream.calls.total",
		metric.WithDescription("Total number of upstream partner API calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream.calls.total counter: %w", err)
	}

	m.UpstreamCallDuration, err = upstreamMeter.Float64Histogram(
		"aeroscan.upstream.call.duration",
		metric.WithDescription("Upstream call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream.call.duration histogram: %w", err)
	}

	m.UpstreamFallbacks, err = upstreamMeter.Int64Counter(
		"aeroscan.upstream.auth.fallbacks",
		metric.WithDescription("Number of auth header fallback attempts against the upstream"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream.auth.fallbacks counter: %w", err)
	}

	m.RateLimitExceeded, err = securityMeter.Int64Counter(
		"aeroscan.security.ratelimit.exceeded",
		metric.WithDescription("Number of rate limit violations"),
		metric.WithUnit("{violation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create security.ratelimit.exceeded counter: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request metric
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, endpoint string, statusCode int, durationMs float64) {
	attrs := []attribute.KeyValue{
		attribute.String("method", method),
		attribute.String("endpoint", endpoint),
		attribute.Int("status", statusCode),
	}

	m.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.HTTPRequestDuration.Record(ctx, durationMs, metric.WithAttributes(attribute.String("endpoint", endpoint)))
}

// RecordFlowStarted records an OAuth flow start
func (m *Metrics) RecordFlowStarted(ctx context.Context) {
	m.FlowStarted.Add(ctx, 1)
}

// RecordCallbackProcessed records a callback outcome
func (m *Metrics) RecordCallbackProcessed(ctx context.Context, success bool) {
	m.CallbackProcessed.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("success", success),
	))
}

// RecordCodeExchange records an authorization code exchange
func (m *Metrics) RecordCodeExchange(ctx context.Context, success bool) {
	m.CodeExchanged.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("success", success),
	))
}

// RecordTokenRefresh records a refresh-token exchange
func (m *Metrics) RecordTokenRefresh(ctx context.Context, success bool) {
	m.TokenRefreshed.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("success", success),
	))
}

// RecordResultConsumed records a one-time result retrieval
func (m *Metrics) RecordResultConsumed(ctx context.Context, found bool) {
	m.ResultConsumed.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("found", found),
	))
}

// RecordUpstreamCall records one proxied upstream call
func (m *Metrics) RecordUpstreamCall(ctx context.Context, endpoint string, statusCode int, durationMs float64) {
	m.UpstreamCallsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.Int("status", statusCode),
	))
	m.UpstreamCallDuration.Record(ctx, durationMs, metric.WithAttributes(attribute.String("endpoint", endpoint)))
}

// RecordUpstreamFallback records one auth header fallback attempt
func (m *Metrics) RecordUpstreamFallback(ctx context.Context, strategy string) {
	m.UpstreamFallbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("strategy", strategy),
	))
}

// RecordRateLimitExceeded records a rate limit violation
func (m *Metrics) RecordRateLimitExceeded(ctx context.Context, limiterType string) {
	m.RateLimitExceeded.Add(ctx, 1, metric.WithAttributes(
		attribute.String("limiter_type", limiterType),
	))
}
