package observability

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/tbourn/go-fedi-core/internal/config"
)

type recordingExporter struct {
	mu    sync.Mutex
	spans []sdktrace.ReadOnlySpan
	shut  bool
}

func (r *recordingExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spans = append(r.spans, spans...)
	return nil
}

func (r *recordingExporter) Shutdown(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shut = true
	return nil
}

// withExporter swaps the exporter factory and restores it, along with the
// OTel globals, when the test ends.
func withExporter(t *testing.T, fn func(context.Context, config.OTELConfig) (sdktrace.SpanExporter, error)) {
	t.Helper()
	prevTP, prevProp, prevNew := otel.GetTracerProvider(), otel.GetTextMapPropagator(), newExporter
	newExporter = fn
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
		newExporter = prevNew
	})
}

func enabled(ratio float64) config.OTELConfig {
	return config.OTELConfig{Enabled: true, Insecure: true, Endpoint: "localhost:4317", ServiceName: "go-fedi-core", SampleRatio: ratio}
}

func TestSetupOTel_Disabled(t *testing.T) {
	called := false
	withExporter(t, func(context.Context, config.OTELConfig) (sdktrace.SpanExporter, error) {
		called = true
		return nil, nil
	})
	prev := otel.GetTracerProvider()

	shutdown, err := SetupOTel(context.Background(), config.OTELConfig{}, "v1", "social.example")
	if err != nil || shutdown == nil {
		t.Fatalf("SetupOTel = %v", err)
	}
	if called || otel.GetTracerProvider() != prev {
		t.Fatalf("disabled tracing touched the globals")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown: %v", err)
	}
}

func TestSetupOTel_ExportsSpansWithInstanceResource(t *testing.T) {
	exp := &recordingExporter{}
	withExporter(t, func(context.Context, config.OTELConfig) (sdktrace.SpanExporter, error) { return exp, nil })

	shutdown, err := SetupOTel(context.Background(), enabled(1), "v1.2.3", "social.example")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	_, span := otel.Tracer("webfinger/Resolver").Start(context.Background(), "Resolve")
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	exp.mu.Lock()
	defer exp.mu.Unlock()
	if !exp.shut || len(exp.spans) != 1 || exp.spans[0].Name() != "Resolve" {
		t.Fatalf("exported = %d spans, shut = %v", len(exp.spans), exp.shut)
	}
	attrs := map[string]string{}
	for _, kv := range exp.spans[0].Resource().Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	if attrs["service.name"] != "go-fedi-core" || attrs["service.version"] != "v1.2.3" || attrs["service.instance.id"] != "social.example" {
		t.Fatalf("resource = %v", attrs)
	}
}

func TestSetupOTel_InstallsPropagator(t *testing.T) {
	withExporter(t, func(context.Context, config.OTELConfig) (sdktrace.SpanExporter, error) {
		return &recordingExporter{}, nil
	})
	shutdown, err := SetupOTel(context.Background(), enabled(1), "v1", "social.example")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	ctx, span := otel.Tracer("t").Start(context.Background(), "outbound")
	defer span.End()
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	if carrier.Get("traceparent") == "" {
		t.Fatalf("traceparent not injected: %v", carrier)
	}
}

func TestSetupOTel_ExporterErrorLeavesGlobals(t *testing.T) {
	withExporter(t, func(context.Context, config.OTELConfig) (sdktrace.SpanExporter, error) {
		return nil, errors.New("dial refused")
	})
	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()

	if _, err := SetupOTel(context.Background(), enabled(1), "v1", "social.example"); err == nil {
		t.Fatalf("expected exporter error")
	}
	if otel.GetTracerProvider() != prevTP || otel.GetTextMapPropagator() != prevProp {
		t.Fatalf("globals changed on failure")
	}
}

func TestSetupOTel_DefaultExporterIsLazy(t *testing.T) {
	withExporter(t, newExporter)
	for _, insecure := range []bool{true, false} {
		cfg := enabled(0.5)
		cfg.Insecure = insecure
		shutdown, err := SetupOTel(context.Background(), cfg, "v1", "social.example")
		if err != nil {
			t.Fatalf("insecure=%v: %v", insecure, err)
		}
		_ = shutdown(context.Background())
	}
}

func TestSampler(t *testing.T) {
	cases := []struct {
		ratio float64
		want  string
	}{
		{1, "ParentBased{root:AlwaysOnSampler"},
		{2, "ParentBased{root:AlwaysOnSampler"},
		{0, "ParentBased{root:AlwaysOffSampler"},
		{0.25, "ParentBased{root:TraceIDRatioBased{0.25}"},
	}
	for _, tc := range cases {
		if got := sampler(tc.ratio).Description(); !strings.HasPrefix(got, tc.want) {
			t.Fatalf("sampler(%v) = %q", tc.ratio, got)
		}
	}
}
