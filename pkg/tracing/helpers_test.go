package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opencensus.io/trace"

	"github.com/localboost/localboost/config"
)

func TestStartServiceSpan(t *testing.T) {
	ctx, span := StartServiceSpan(context.Background(), "BroadcastScheduler", "Run")
	defer span.End()

	require.NotNil(t, span)
	assert.NotNil(t, trace.FromContext(ctx))
}

func TestEndSpan(t *testing.T) {
	_, span := trace.StartSpan(context.Background(), "test")
	EndSpan(span, nil)

	_, span = trace.StartSpan(context.Background(), "test-with-error")
	EndSpan(span, errors.New("test error"))
}

func TestTraceMethod(t *testing.T) {
	called := false
	err := TraceMethod(context.Background(), "svc", "ok", func(ctx context.Context) error {
		called = true
		assert.NotNil(t, trace.FromContext(ctx))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)

	testErr := errors.New("test error")
	err = TraceMethod(context.Background(), "svc", "fail", func(ctx context.Context) error {
		return testErr
	})
	assert.Equal(t, testErr, err)
}

func TestAddAttributeAndMarkSpanError(t *testing.T) {
	// no span in context: both are no-ops
	AddAttribute(context.Background(), "key", "value")
	MarkSpanError(context.Background(), errors.New("ignored"))

	ctx, span := trace.StartSpan(context.Background(), "attrs")
	defer span.End()
	AddAttribute(ctx, "string", "v")
	AddAttribute(ctx, "int", 3)
	AddAttribute(ctx, "int64", int64(4))
	AddAttribute(ctx, "bool", true)
	AddAttribute(ctx, "other", 1.5)
	MarkSpanError(ctx, nil)
	MarkSpanError(ctx, errors.New("boom"))
}

func TestWrapHTTPClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := WrapHTTPClient(&http.Client{Timeout: 5 * time.Second})
	assert.Equal(t, 5*time.Second, client.Timeout)

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	assert.Equal(t, 30*time.Second, WrapHTTPClient(nil).Timeout)
}

func TestInitTracing_UnsupportedExporters(t *testing.T) {
	_, err := InitTracing(&config.TracingConfig{Enabled: true, TraceExporter: "carrier-pigeon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported trace exporter")

	_, err = InitTracing(&config.TracingConfig{MetricsExporter: "statsd"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported metrics exporter")

	_, err = InitTracing(&config.TracingConfig{Enabled: true, TraceExporter: "jaeger"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Jaeger endpoint is required")
}

func TestInitTracing_Prometheus(t *testing.T) {
	exporters, err := InitTracing(&config.TracingConfig{ServiceName: "localboost-test", MetricsExporter: "prometheus"})
	require.NoError(t, err)
	require.NotNil(t, exporters.MetricsHandler)

	rec := httptest.NewRecorder()
	exporters.MetricsHandler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
