package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type recordingSpan struct {
	noop.Span

	mu     sync.Mutex
	name   string
	kind   trace.SpanKind
	attrs  map[attribute.Key]attribute.Value
	status codes.Code
	ended  bool
}

func (s *recordingSpan) SetAttributes(kv ...attribute.KeyValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range kv {
		s.attrs[a.Key] = a.Value
	}
}

func (s *recordingSpan) SetStatus(code codes.Code, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = code
}

func (s *recordingSpan) End(...trace.SpanEndOption) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended = true
}

type recordingTracer struct {
	noop.Tracer
	spans []*recordingSpan
}

func (t *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	s := &recordingSpan{name: name, kind: cfg.SpanKind(), attrs: map[attribute.Key]attribute.Value{}}
	s.SetAttributes(cfg.Attributes()...)
	t.spans = append(t.spans, s)
	return trace.ContextWithSpan(ctx, s), s
}

type recordingProvider struct {
	noop.TracerProvider
	tracer *recordingTracer
}

func (p *recordingProvider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return p.tracer
}

func newRecordingProvider() *recordingProvider {
	return &recordingProvider{tracer: &recordingTracer{}}
}

func TestOpenTelemetryMiddleware_RecordsRequestSpan(t *testing.T) {
	tp := newRecordingProvider()
	var inHandler trace.Span
	h := OpenTelemetry(
		WithTracerProvider(tp),
		WithAttributeExtractor(func(*http.Request) []attribute.KeyValue {
			return []attribute.KeyValue{attribute.String("test.attr", "ok")}
		}),
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inHandler = trace.SpanFromContext(r.Context())
		http.Error(w, "Bad Request", http.StatusBadRequest)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/engine.io/?sid=abc&transport=websocket", nil))

	if len(tp.tracer.spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(tp.tracer.spans))
	}
	span := tp.tracer.spans[0]
	if inHandler != trace.Span(span) {
		t.Fatal("handler context does not carry the request span")
	}
	if span.name != "engineio GET" || span.kind != trace.SpanKindServer || !span.ended {
		t.Fatalf("span = %q kind=%v ended=%v", span.name, span.kind, span.ended)
	}
	want := map[attribute.Key]string{
		"engineio.session_id": "abc",
		"engineio.transport":  "websocket",
		"http.method":         "GET",
		"test.attr":           "ok",
	}
	for k, v := range want {
		if got := span.attrs[k].AsString(); got != v {
			t.Errorf("attr %s = %q, want %q", k, got, v)
		}
	}
	if got := span.attrs["http.status_code"].AsInt64(); got != http.StatusBadRequest {
		t.Errorf("http.status_code = %d, want 400", got)
	}
	if span.status != codes.Ok {
		t.Errorf("status = %v, want Ok for a client error", span.status)
	}
}

func TestOpenTelemetryMiddleware_ServerErrorMarksSpan(t *testing.T) {
	tp := newRecordingProvider()
	h := OpenTelemetry(WithTracerProvider(tp))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/engine.io/", nil))

	span := tp.tracer.spans[0]
	if span.status != codes.Error {
		t.Fatalf("status = %v, want Error", span.status)
	}
	if _, ok := span.attrs["engineio.session_id"]; ok {
		t.Fatal("session id attribute set without a sid")
	}
	if got := span.attrs["engineio.transport"].AsString(); got != "polling" {
		t.Fatalf("transport = %q, want polling", got)
	}
}

func TestOpenTelemetryMiddleware_FilterSkipsTracing(t *testing.T) {
	tp := newRecordingProvider()
	nextCalled := false
	h := OpenTelemetry(
		WithTracerProvider(tp),
		WithRequestFilter(func(r *http.Request) bool { return r.URL.Path != "/healthz" }),
	)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { nextCalled = true }))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if !nextCalled {
		t.Fatal("expected next to be called")
	}
	if len(tp.tracer.spans) != 0 {
		t.Fatalf("spans = %d, want 0 when filter skips tracing", len(tp.tracer.spans))
	}
}
