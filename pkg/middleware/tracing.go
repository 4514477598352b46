package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracing opens one server span per request. An inbound traceparent header
// is honored and echoed back. Once chi has matched, the span is named after
// the route pattern so /reviews/{id} groups all ids together.
func Tracing(serviceName string) func(http.Handler) http.Handler {
	tracer := otel.Tracer("github.com/JLTC3111/Quyenhair/" + serviceName)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			carrier := otel.GetTextMapPropagator()
			parent := carrier.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			ctx, span := tracer.Start(parent, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(requestAttributes(r)...),
			)
			defer span.End()
			carrier.Inject(ctx, propagation.HeaderCarrier(w.Header()))

			sr := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(sr, r.WithContext(ctx))
			finishSpan(span, r, sr.statusCode())
		})
	}
}

func requestAttributes(r *http.Request) []attribute.KeyValue {
	proto := "http"
	switch {
	case r.TLS != nil:
		proto = "https"
	case r.Header.Get("X-Forwarded-Proto") != "":
		proto = r.Header.Get("X-Forwarded-Proto")
	}
	return []attribute.KeyValue{
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.URLPath(r.URL.Path),
		semconv.URLScheme(proto),
		semconv.UserAgentOriginal(r.UserAgent()),
	}
}

func finishSpan(span trace.Span, r *http.Request, status int) {
	if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
		span.SetName(r.Method + " " + rc.RoutePattern())
		span.SetAttributes(semconv.HTTPRoute(rc.RoutePattern()))
	}
	span.SetAttributes(semconv.HTTPResponseStatusCode(status))
	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}
