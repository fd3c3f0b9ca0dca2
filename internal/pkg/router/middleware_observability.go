package router

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/posture/internal/pkg/config"
	"github.com/shandysiswandi/posture/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// maxLoggedBody matches the request body cap, so every accepted body is
// logged whole.
const maxLoggedBody = maxBodyBytes

// exchange captures what the observability middleware needs from one
// request/response pair.
type exchange struct {
	http.ResponseWriter
	status int
	size   int
	body   bytes.Buffer
	err    error
}

func (e *exchange) WriteHeader(code int) {
	e.status = code
	e.ResponseWriter.WriteHeader(code)
}

func (e *exchange) Write(p []byte) (int, error) {
	if e.status == 0 {
		e.status = http.StatusOK
	}
	if room := maxLoggedBody - e.body.Len(); room > 0 {
		e.body.Write(p[:min(len(p), room)])
	}
	n, err := e.ResponseWriter.Write(p)
	e.size += n
	return n, err
}

// SetError receives the handler error so the span can record it.
func (e *exchange) SetError(err error) {
	e.err = err
}

func (e *exchange) statusCode() int {
	if e.status == 0 {
		return http.StatusOK
	}
	return e.status
}

// errorCode is the "code" of an ErrorBody response, if any.
func (e *exchange) errorCode() string {
	if e.statusCode() < http.StatusBadRequest {
		return ""
	}
	var body ErrorBody
	if json.Unmarshal(e.body.Bytes(), &body) != nil {
		return ""
	}
	return body.Code
}

func matchedRoutePath(r *http.Request) string {
	if pattern := httprouter.ParamsFromContext(r.Context()).MatchedRoutePath(); pattern != "" {
		return pattern
	}
	return r.URL.Path
}

// peekBody reads up to maxLoggedBody bytes and puts them back in front of the
// remaining body.
func peekBody(r *http.Request) []byte {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}

	//nolint:errcheck // logging only
	head, _ := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody))
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(head), r.Body))
	return head
}

// actionOf returns the "action" member of a JSON request body.
func actionOf(body []byte) string {
	var probe struct {
		Action string `json:"action"`
	}
	if json.Unmarshal(body, &probe) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(probe.Action))
}

func maskedJSON(body []byte, maskKeys map[string]struct{}) any {
	if len(body) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return "<non-json body omitted>"
	}
	return instrument.MaskData(v, maskKeys)
}

func maskedHeaders(h http.Header, maskKeys map[string]struct{}) http.Header {
	out := h.Clone()
	for key := range out {
		if _, ok := maskKeys[strings.ToLower(key)]; ok {
			out.Set(key, "***")
		}
	}
	return out
}

// defaultMaskFields are always masked in request logs, on top of
// instrument.log_mask_fields.
var defaultMaskFields = []string{"authorization", "secret", "code", "verificationCode", "provisioningUri"}

func getMaskKeys(cfg config.Config) map[string]struct{} {
	fields := defaultMaskFields
	if cfg != nil {
		fields = append(slices.Clone(defaultMaskFields), cfg.GetArray("instrument.log_mask_fields")...)
	}
	return instrument.MaskKeys(fields)
}

func middlewareObservability(cfg config.Config, ins instrument.Instrumentation) Middleware {
	maskKeys := getMaskKeys(cfg)
	tracer := ins.Tracer("http.server")
	meter := ins.Meter("http.server")

	requests, err := meter.Int64Counter("http.server.requests", metric.WithDescription("Number of HTTP requests received"))
	if err != nil {
		slog.Error("failed to create http request counter", "error", err)
	}

	duration, err := meter.Float64Histogram("http.server.duration",
		metric.WithDescription("HTTP request duration"), metric.WithUnit("ms"))
	if err != nil {
		slog.Error("failed to create http duration histogram", "error", err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			route := matchedRoutePath(r)
			reqBody := peekBody(r)
			action := actionOf(reqBody)

			ctx, span := tracer.Start(r.Context(), r.Method+" "+route,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.HTTPRouteKey.String(route),
					semconv.UserAgentOriginal(r.UserAgent()),
				))
			defer span.End()

			slog.InfoContext(ctx, "request received",
				"method", r.Method,
				"path", route,
				"action", action,
				"headers", maskedHeaders(r.Header, maskKeys),
				"body", maskedJSON(reqBody, maskKeys),
			)

			ex := &exchange{ResponseWriter: w}
			next.ServeHTTP(ex, r.WithContext(ctx))

			status := ex.statusCode()
			code := ex.errorCode()
			attrs := []attribute.KeyValue{
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.HTTPRouteKey.String(route),
				semconv.HTTPResponseStatusCodeKey.Int(status),
				attribute.String("twofactor.action", action),
				attribute.String("error.code", code),
			}

			span.SetAttributes(attrs...)
			span.SetAttributes(attribute.Int("http.response.body.size", ex.size))
			if ex.err != nil {
				span.RecordError(ex.err)
			}
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			} else {
				span.SetStatus(codes.Ok, "")
			}

			elapsed := time.Since(start)
			if requests != nil {
				requests.Add(ctx, 1, metric.WithAttributes(attrs...))
			}
			if duration != nil {
				duration.Record(ctx, float64(elapsed.Microseconds())/1000, metric.WithAttributes(attrs...))
			}

			slog.InfoContext(ctx, "response sent",
				"method", r.Method,
				"path", route,
				"action", action,
				"status", status,
				"code", code,
				"bytes", ex.size,
				"latency_ms", elapsed.Milliseconds(),
				"body", maskedJSON(ex.body.Bytes(), maskKeys),
			)
		})
	}
}
