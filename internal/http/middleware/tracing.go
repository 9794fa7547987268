package middleware

import (
	"net/http"

	"go.opencensus.io/plugin/ochttp"
	"go.opencensus.io/trace"
)

// TracingMiddleware starts an opencensus span per request and tags it with
// the tenant and the response status
func TracingMiddleware(next http.Handler) http.Handler {
	tagged := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		span := trace.FromContext(r.Context())
		if span != nil {
			span.AddAttributes(
				trace.StringAttribute("http.path", r.URL.Path),
				trace.StringAttribute("http.method", r.Method),
			)
			if tenantID := r.Header.Get(TenantHeader); tenantID != "" {
				span.AddAttributes(trace.StringAttribute("tenant_id", tenantID))
			}
			if requestID := r.Header.Get("X-Request-ID"); requestID != "" {
				span.AddAttributes(trace.StringAttribute("http.request_id", requestID))
			}
		}
		next.ServeHTTP(&statusRecorder{ResponseWriter: w, span: span}, r)
	})

	return &ochttp.Handler{
		Handler: tagged,
		FormatSpanName: func(r *http.Request) string {
			return r.Method + " " + r.URL.Path
		},
		IsPublicEndpoint: true,
	}
}

// statusRecorder copies the response status onto the span
type statusRecorder struct {
	http.ResponseWriter
	span       *trace.Span
	statusCode int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.statusCode = code
	if s.span != nil {
		s.span.AddAttributes(trace.Int64Attribute("http.status_code", int64(code)))
		if code >= 500 {
			s.span.SetStatus(trace.Status{Code: trace.StatusCodeUnknown, Message: http.StatusText(code)})
		}
	}
	s.ResponseWriter.WriteHeader(code)
}
