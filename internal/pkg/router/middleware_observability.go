package router

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/taskdeck/internal/pkg/config"
	"github.com/shandysiswandi/taskdeck/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	maxLoggedBodyBytes = 32 * 1024
	masked             = "***"
)

// credentialFields are masked in logged bodies and query strings whatever
// instrument.log_mask_fields says. They cover sign-in, the authenticator
// codes, the account page and the external sign-in callback.
var credentialFields = []string{
	"password", "confirm_password",
	"code", "totp_code", "token",
	"secret", "totp_secret", "provisioning_uri",
	"state",
}

// credentialHeaders carry the session and are never logged.
var credentialHeaders = []string{"authorization", "cookie", "set-cookie"}

// redactor masks credentials out of what the access log records.
type redactor struct {
	fields  map[string]struct{}
	headers map[string]struct{}
}

func newRedactor(cfg config.Config) redactor {
	rd := redactor{fields: make(map[string]struct{}), headers: make(map[string]struct{})}

	extra := []string(nil)
	if cfg != nil {
		extra = cfg.GetArray("instrument.log_mask_fields")
	}
	for _, f := range append(append([]string{}, credentialFields...), extra...) {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			rd.fields[f] = struct{}{}
			rd.headers[f] = struct{}{}
		}
	}
	for _, h := range credentialHeaders {
		rd.headers[h] = struct{}{}
	}

	return rd
}

func (rd redactor) field(k string) bool {
	_, ok := rd.fields[strings.ToLower(k)]
	return ok
}

func (rd redactor) header(h http.Header) http.Header {
	out := h.Clone()
	for k := range out {
		if _, ok := rd.headers[strings.ToLower(k)]; ok {
			out.Set(k, masked)
		}
	}
	return out
}

// uri masks credential query parameters, such as the code and state an
// identity provider sends back.
func (rd redactor) uri(u *url.URL) string {
	if u.RawQuery == "" {
		return u.RequestURI()
	}

	q, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return u.EscapedPath() + "?" + masked
	}
	for k := range q {
		if rd.field(k) {
			q[k] = []string{masked}
		}
	}
	return u.EscapedPath() + "?" + q.Encode()
}

func (rd redactor) value(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if rd.field(k) {
				out[k] = masked
				continue
			}
			out[k] = rd.value(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = rd.value(inner)
		}
		return out
	default:
		return v
	}
}

// body renders a request or response body for the log. JSON and form
// bodies are masked field by field. Other text is logged only when no
// credential field name appears in it.
func (rd redactor) body(contentType string, raw []byte) any {
	if len(raw) == 0 {
		return nil
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err == nil {
		return rd.value(doc)
	}

	if strings.HasPrefix(strings.ToLower(contentType), "application/x-www-form-urlencoded") {
		if values, err := url.ParseQuery(string(raw)); err == nil {
			out := make(map[string]any, len(values))
			for k, v := range values {
				switch {
				case rd.field(k):
					out[k] = masked
				case len(v) == 1:
					out[k] = v[0]
				default:
					out[k] = v
				}
			}
			return out
		}
	}

	if !utf8.Valid(raw) {
		return "<binary body omitted>"
	}
	lower := strings.ToLower(string(raw))
	for f := range rd.fields {
		if strings.Contains(lower, f) {
			return "<unparsed body omitted>"
		}
	}
	return string(raw)
}

// statusRecorder keeps the status, the size and the head of the body for
// the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	body   bytes.Buffer
	capped bool
	err    error
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	if room := maxLoggedBodyBytes - w.body.Len(); room > 0 {
		if len(p) > room {
			w.body.Write(p[:room])
			w.capped = true
		} else {
			w.body.Write(p)
		}
	} else if len(p) > 0 {
		w.capped = true
	}

	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

// SetError records the handler error for the span.
func (w *statusRecorder) SetError(err error) { w.err = err }

func (w *statusRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

//nolint:err113 // it use dynamic error
func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	return h.Hijack()
}

func (w *statusRecorder) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *statusRecorder) logBody(rd redactor) any {
	out := rd.body(w.Header().Get("Content-Type"), w.body.Bytes())
	if w.capped {
		return map[string]any{"body": out, "truncated": true}
	}
	return out
}

func matchedRoutePath(r *http.Request) string {
	if pattern := httprouter.ParamsFromContext(r.Context()).MatchedRoutePath(); pattern != "" {
		return pattern
	}
	return r.URL.Path
}

// peekBody reads the head of the request body for the log and leaves the
// body intact for the handler.
func peekBody(r *http.Request) []byte {
	if r.Body == nil {
		return nil
	}

	//nolint:errcheck // best effort for logging only
	head, _ := io.ReadAll(io.LimitReader(r.Body, maxLoggedBodyBytes+1))
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(head), r.Body))
	return head[:min(len(head), maxLoggedBodyBytes)]
}

type httpMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func newHTTPMetrics(ins instrument.Instrumentation) httpMetrics {
	meter := ins.Meter("http.server")

	var m httpMetrics
	var err error
	m.requests, err = meter.Int64Counter("http.server.requests", metric.WithDescription("Number of HTTP requests received"))
	if err != nil {
		slog.Error("failed to create http request counter", "error", err)
	}
	m.duration, err = meter.Float64Histogram("http.server.duration", metric.WithDescription("HTTP request duration in milliseconds"), metric.WithUnit("ms"))
	if err != nil {
		slog.Error("failed to create http duration histogram", "error", err)
	}
	return m
}

// middlewareObservability traces every request, counts it and writes one
// access log line on the way in and one on the way out, with credentials
// masked.
func middlewareObservability(cfg config.Config, ins instrument.Instrumentation) Middleware {
	rd := newRedactor(cfg)
	tracer := ins.Tracer("http.server")
	metrics := newHTTPMetrics(ins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			route := matchedRoutePath(r)
			uri := rd.uri(r.URL)

			ctx, span := tracer.Start(r.Context(), r.Method+" "+route,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.HTTPRouteKey.String(route),
					semconv.ClientAddressKey.String(ClientIP(r.Context())),
				),
			)
			defer span.End()

			slog.InfoContext(ctx, "request received",
				"method", r.Method,
				"path", route,
				"uri", uri,
				"client_ip", ClientIP(r.Context()),
				"headers", rd.header(r.Header),
				"body", rd.body(r.Header.Get("Content-Type"), peekBody(r)),
			)

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(ctx))

			status := rec.code()
			latency := time.Since(start)
			attrs := []attribute.KeyValue{
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.HTTPRouteKey.String(route),
				semconv.HTTPResponseStatusCodeKey.Int(status),
			}

			if rec.err != nil {
				span.RecordError(rec.err)
			}
			switch {
			case status < http.StatusInternalServerError:
				span.SetStatus(codes.Ok, "")
			case rec.err != nil:
				span.SetStatus(codes.Error, rec.err.Error())
			default:
				span.SetStatus(codes.Error, http.StatusText(status))
			}
			span.SetAttributes(attrs...)
			span.SetAttributes(
				semconv.NetworkProtocolVersionKey.String(r.Proto),
				semconv.ServerAddressKey.String(r.Host),
				attribute.String("http.user_agent", r.UserAgent()),
				attribute.Int("http.response_content_length", rec.bytes),
			)

			if metrics.requests != nil {
				metrics.requests.Add(ctx, 1, metric.WithAttributes(attrs...))
			}
			if metrics.duration != nil {
				metrics.duration.Record(ctx, float64(latency.Milliseconds()), metric.WithAttributes(attrs...))
			}

			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			slog.Log(ctx, level, "response sent",
				"method", r.Method,
				"path", route,
				"uri", uri,
				"status", status,
				"bytes", rec.bytes,
				"latency_ms", latency.Milliseconds(),
				"body", rec.logBody(rd),
			)
		})
	}
}
