package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// recordSpans installs an in-memory tracer provider for the test and
// serves one request through a traced router.
func recordSpans(t *testing.T, status int, req *http.Request) (*httptest.ResponseRecorder, tracetest.SpanStubs) {
	t.Helper()

	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})

	r := chi.NewRouter()
	r.Use(Tracing("review-api"))
	r.Get("/api/reviews/{id}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(status) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec, exp.GetSpans()
}

func TestTracing(t *testing.T) {
	rec, spans := recordSpans(t, http.StatusOK, httptest.NewRequest(http.MethodGet, "/api/reviews/42", nil))

	require.Len(t, spans, 1)
	s := spans[0]
	assert.Equal(t, "GET /api/reviews/{id}", s.Name)
	assert.Contains(t, s.Attributes, attribute.String("http.route", "/api/reviews/{id}"))
	assert.Contains(t, s.Attributes, attribute.Int("http.response.status_code", http.StatusOK))
	assert.Equal(t, codes.Unset, s.Status.Code)
	assert.NotEmpty(t, rec.Header().Get("Traceparent"))
}

func TestTracing_ServerError(t *testing.T) {
	_, spans := recordSpans(t, http.StatusBadGateway, httptest.NewRequest(http.MethodGet, "/api/reviews/7", nil))

	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "Bad Gateway", spans[0].Status.Description)
}

func TestTracing_InboundParent(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/reviews/7", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	_, spans := recordSpans(t, http.StatusOK, req)

	require.Len(t, spans, 1)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", spans[0].SpanContext.TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", spans[0].Parent.SpanID().String())
	assert.True(t, spans[0].Parent.IsRemote())
}
