package router

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/mailbite/internal/pkg/config"
	"github.com/shandysiswandi/mailbite/internal/pkg/goerror"
	"github.com/shandysiswandi/mailbite/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// maxLoggedBody caps the JSON bodies copied into logs. Drafts are at most a
// few KB, so this keeps whole requests and responses.
const maxLoggedBody = 16 << 10

const (
	sessionNone    = "none"
	sessionIssued  = "issued"
	sessionCleared = "cleared"
)

func matchedRoutePath(r *http.Request) string {
	if pattern := httprouter.ParamsFromContext(r.Context()).MatchedRoutePath(); pattern != "" {
		return pattern
	}
	return r.URL.Path
}

// apiResource is the first segment after the API version, e.g. "campaign"
// for /api/v1/campaign/recipients/prune. Routes outside /api/ report "".
func apiResource(route string) string {
	rest, ok := strings.CutPrefix(route, "/api/")
	if !ok {
		return ""
	}
	_, rest, _ = strings.Cut(rest, "/")
	resource, _, _ := strings.Cut(rest, "/")
	return resource
}

func isMediaType(contentType, want string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == want
}

// redactHeaders masks configured headers and keeps only cookie names, so a
// signed session never ends up in logs.
func redactHeaders(h http.Header, maskKeys map[string]struct{}) http.Header {
	out := h.Clone()
	for key := range out {
		if _, found := maskKeys[strings.ToLower(key)]; found {
			out.Set(key, "***")
		}
	}

	if cookies := (&http.Request{Header: h}).Cookies(); len(cookies) > 0 {
		names := make([]string, 0, len(cookies))
		for _, c := range cookies {
			names = append(names, c.Name+"=***")
		}
		out.Set("Cookie", strings.Join(names, "; "))
	}
	out.Del("Set-Cookie")
	return out
}

// sessionCookieState reports whether the response issued or expired a
// cookie.
func sessionCookieState(h http.Header) string {
	state := sessionNone
	for _, line := range h.Values("Set-Cookie") {
		c, err := http.ParseSetCookie(line)
		if err != nil {
			continue
		}
		if c.MaxAge < 0 || c.Value == "" {
			state = sessionCleared
			continue
		}
		return sessionIssued
	}
	return state
}

// requestBodyForLog describes the request body without consuming it.
// Uploads are never read here: they carry recipient lists and the handler
// enforces its own size limit.
func requestBodyForLog(r *http.Request, maskKeys map[string]struct{}) any {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}

	contentType := r.Header.Get("Content-Type")
	if !isMediaType(contentType, "application/json") {
		mt, _, _ := mime.ParseMediaType(contentType)
		return map[string]any{"omitted": true, "content_type": mt, "bytes": r.ContentLength}
	}

	head, err := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody+1))
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(head), r.Body))
	if err != nil {
		return nil
	}
	return jsonForLog(head, maskKeys)
}

func jsonForLog(body []byte, maskKeys map[string]struct{}) any {
	if len(body) == 0 {
		return nil
	}
	if len(body) > maxLoggedBody {
		return map[string]any{"truncated": true, "bytes": len(body)}
	}

	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return map[string]any{"invalid_json": true, "bytes": len(body)}
	}
	return instrument.MaskData(v, maskKeys)
}

// responseRecorder keeps the status, size and the head of the JSON body
// written by the router.
type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	body   bytes.Buffer
	err    error
}

func (w *responseRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseRecorder) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	if room := maxLoggedBody + 1 - w.body.Len(); room > 0 {
		w.body.Write(p[:min(len(p), room)])
	}

	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

// SetError is called by the router with the handler error.
func (w *responseRecorder) SetError(err error) {
	w.err = err
}

func (w *responseRecorder) statusCode() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

type httpTelemetry struct {
	tracer   trace.Tracer
	requests metric.Int64Counter
	duration metric.Float64Histogram
	maskKeys map[string]struct{}
}

func newHTTPTelemetry(cfg config.Config, ins instrument.Instrumentation) *httpTelemetry {
	t := &httpTelemetry{tracer: ins.Tracer("http.server")}
	if cfg != nil {
		t.maskKeys = instrument.MaskKeys(cfg.GetArray("instrument.log_mask_fields"))
	}

	meter := ins.Meter("http.server")
	var err error
	if t.requests, err = meter.Int64Counter("http.server.requests",
		metric.WithDescription("HTTP requests by route, resource and status")); err != nil {
		slog.Error("failed to create http request counter", "error", err)
	}
	if t.duration, err = meter.Float64Histogram("http.server.duration",
		metric.WithDescription("HTTP request duration"), metric.WithUnit("ms")); err != nil {
		slog.Error("failed to create http duration histogram", "error", err)
	}
	return t
}

// errorAttributes tags the span with the taxonomy code of a handler error,
// so 409/410/429 outcomes can be told apart without reading logs.
func errorAttributes(span trace.Span, status int, err error) {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}

	span.RecordError(err)
	var gerr *goerror.Error
	if errors.As(err, &gerr) {
		span.SetAttributes(
			attribute.String("app.error.type", gerr.Type().String()),
			attribute.String("app.error.code", gerr.Code().String()),
		)
	}
	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

func (t *httpTelemetry) serve(next http.Handler, w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	route := matchedRoutePath(r)
	resource := apiResource(route)

	ctx, span := t.tracer.Start(r.Context(), r.Method+" "+route, trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String(route),
		attribute.String("app.api.resource", resource),
		semconv.UserAgentOriginal(r.UserAgent()),
	))
	defer span.End()

	if isMediaType(r.Header.Get("Content-Type"), "multipart/form-data") {
		span.SetAttributes(attribute.Int64("app.upload.bytes", r.ContentLength))
	}

	slog.InfoContext(ctx, "request received",
		"method", r.Method,
		"path", route,
		"resource", resource,
		"headers", redactHeaders(r.Header, t.maskKeys),
		"body", requestBodyForLog(r, t.maskKeys),
	)

	rec := &responseRecorder{ResponseWriter: w}
	next.ServeHTTP(rec, r.WithContext(ctx))

	status := rec.statusCode()
	sess := sessionCookieState(rec.Header())
	latency := time.Since(start)

	errorAttributes(span, status, rec.err)
	span.SetAttributes(
		semconv.HTTPResponseStatusCodeKey.Int(status),
		attribute.Int("http.response.body.size", rec.bytes),
		attribute.String("app.session.cookie", sess),
	)

	attrs := metric.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String(route),
		semconv.HTTPResponseStatusCodeKey.Int(status),
		attribute.String("app.api.resource", resource),
	)
	if t.requests != nil {
		t.requests.Add(ctx, 1, attrs)
	}
	if t.duration != nil {
		t.duration.Record(ctx, float64(latency.Milliseconds()), attrs)
	}

	slog.InfoContext(ctx, "response sent",
		"method", r.Method,
		"path", route,
		"status", status,
		"bytes", rec.bytes,
		"session", sess,
		"latency_ms", latency.Milliseconds(),
		"body", jsonForLog(rec.body.Bytes(), t.maskKeys),
	)
}

func middlewareObservability(cfg config.Config, ins instrument.Instrumentation) Middleware {
	t := newHTTPTelemetry(cfg, ins)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.serve(next, w, r)
		})
	}
}
