package tracing

import (
	"context"
	"os"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	oteltrace "go.opentelemetry.io/otel/trace"
)

func TestGetVersion(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected string
	}{
		{
			name:     "with SERVICE_VERSION set",
			envValue: "v1.2.3",
			expected: "v1.2.3",
		},
		{
			name:     "with SERVICE_VERSION not set",
			envValue: "",
			expected: "dev",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv("SERVICE_VERSION", tt.envValue)
				defer os.Unsetenv("SERVICE_VERSION")
			} else {
				os.Unsetenv("SERVICE_VERSION")
			}

			if result := getVersion(); result != tt.expected {
				t.Errorf("getVersion() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestGetInstanceID(t *testing.T) {
	original, had := os.LookupEnv("HOSTNAME")
	defer func() {
		if had {
			os.Setenv("HOSTNAME", original)
		} else {
			os.Unsetenv("HOSTNAME")
		}
	}()

	tests := []struct {
		name     string
		hostname string
		expected string
	}{
		{
			name:     "with HOSTNAME set",
			hostname: "worker-01",
			expected: "worker-01",
		},
		{
			name:     "with HOSTNAME not set",
			hostname: "",
			expected: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Unsetenv("HOSTNAME")
			if tt.hostname != "" {
				os.Setenv("HOSTNAME", tt.hostname)
			}

			if result := getInstanceID(); result != tt.expected {
				t.Errorf("getInstanceID() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestGetOTLPEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected string
	}{
		{
			name:     "with http:// prefix",
			envValue: "http://tempo:4318",
			expected: "tempo:4318",
		},
		{
			name:     "with https:// prefix",
			envValue: "https://tempo:4318",
			expected: "tempo:4318",
		},
		{
			name:     "without protocol prefix",
			envValue: "otel-collector:4318",
			expected: "otel-collector:4318",
		},
		{
			name:     "empty environment variable",
			envValue: "",
			expected: "tempo:4318",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", tt.envValue)
				defer os.Unsetenv("OTEL_EXPORTER_OTLP_ENDPOINT")
			} else {
				os.Unsetenv("OTEL_EXPORTER_OTLP_ENDPOINT")
			}

			if result := getOTLPEndpoint(); result != tt.expected {
				t.Errorf("getOTLPEndpoint() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestStartSpan(t *testing.T) {
	tests := []struct {
		name     string
		spanName string
		attrs    []attribute.KeyValue
	}{
		{
			name:     "span without attributes",
			spanName: "task.enqueue",
			attrs:    nil,
		},
		{
			name:     "span with attributes",
			spanName: "worker.task",
			attrs: []attribute.KeyValue{
				attribute.String("event", "task.router.backup"),
				attribute.String("router.host", "192.0.2.10"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			newCtx, span := StartSpan(ctx, tt.spanName, tt.attrs...)

			if newCtx == nil {
				t.Error("StartSpan() returned nil context")
			}
			if span == nil {
				t.Fatal("StartSpan() returned nil span")
			}
			if oteltrace.SpanFromContext(newCtx) == nil {
				t.Error("StartSpan() span not found in returned context")
			}
			span.End()
		})
	}
}

func TestGetTraceID(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := trace.NewTracerProvider(trace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)

	tests := []struct {
		name    string
		hasSpan bool
	}{
		{
			name:    "context with valid span",
			hasSpan: true,
		},
		{
			name:    "context without span",
			hasSpan: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()

			if tt.hasSpan {
				var span oteltrace.Span
				ctx, span = StartSpan(ctx, "test-span")
				defer span.End()
			}

			traceID := GetTraceID(ctx)

			if tt.hasSpan {
				if len(traceID) != 32 {
					t.Errorf("GetTraceID() length = %d, want 32 hex characters", len(traceID))
				}
			} else {
				if traceID != "" {
					t.Errorf("GetTraceID() = %q, want empty string without span", traceID)
				}
			}
		})
	}
}

func TestSpanHelpersDoNotPanic(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := trace.NewTracerProvider(trace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)

	tests := []struct {
		name    string
		hasSpan bool
		err     error
	}{
		{
			name:    "with span and error",
			hasSpan: true,
			err:     context.DeadlineExceeded,
		},
		{
			name:    "without span",
			hasSpan: false,
			err:     context.Canceled,
		},
		{
			name:    "nil error",
			hasSpan: true,
			err:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()

			if tt.hasSpan {
				var span oteltrace.Span
				ctx, span = StartSpan(ctx, "test-span")
				defer span.End()
			}

			AddSpanEvent(ctx, "ssh.get_running_config", attribute.String("router.host", "192.0.2.10"))
			SetSpanError(ctx, tt.err)
		})
	}
}

func TestQueueHeaderRoundTrip(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := trace.NewTracerProvider(trace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	ctx := context.Background()
	ctx, span := StartSpan(ctx, "task.enqueue")
	defer span.End()

	originalTraceID := GetTraceID(ctx)
	if originalTraceID == "" {
		t.Fatal("failed to get trace ID from original context")
	}

	headers := InjectQueueHeaders(ctx)
	if len(headers) == 0 {
		t.Fatal("InjectQueueHeaders() returned empty headers")
	}

	found := false
	for key := range headers {
		if strings.Contains(strings.ToLower(key), "trace") {
			found = true
			break
		}
	}
	if !found {
		t.Error("InjectQueueHeaders() did not include trace context headers")
	}

	newCtx := ExtractQueueHeaders(context.Background(), headers)
	newCtx, childSpan := StartSpan(newCtx, "worker.task")
	defer childSpan.End()

	if extracted := GetTraceID(newCtx); extracted != originalTraceID {
		t.Errorf("trace ID changed during round-trip: original=%s, extracted=%s", originalTraceID, extracted)
	}
}

func TestExtractQueueHeadersTolerance(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
	}{
		{
			name:    "empty headers",
			headers: map[string]string{},
		},
		{
			name:    "nil headers",
			headers: nil,
		},
		{
			name: "invalid trace context",
			headers: map[string]string{
				"traceparent": "not-a-trace-context",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if ctx := ExtractQueueHeaders(context.Background(), tt.headers); ctx == nil {
				t.Error("ExtractQueueHeaders() returned nil context")
			}
		})
	}
}

func TestTracerNameConstant(t *testing.T) {
	expected := "github.com/routerops/routerops"
	if TracerName != expected {
		t.Errorf("TracerName constant = %q, want %q", TracerName, expected)
	}
}
