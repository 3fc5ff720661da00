package observability

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger. "debug" switches to a colored
// console encoder; any other level logs JSON. Unknown levels mean info.
func NewLogger(level, service string) *zap.Logger {
	level = strings.ToLower(strings.TrimSpace(level))

	cfg := zap.NewProductionConfig()
	cfg.Sampling = nil
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	if level == "debug" {
		cfg.Development = true
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	logger, err := cfg.Build(zap.Fields(zap.String("service", service)))
	if err != nil {
		panic("observability: build logger: " + err.Error())
	}
	return logger
}

// ZapLoggerMiddleware writes one line per request. Server errors log at
// Error, client errors at Warn. The chi route pattern is logged instead of
// the raw path so ids do not explode cardinality.
func ZapLoggerMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := append(requestFields(r),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("latency", time.Since(start)),
			)

			switch {
			case status >= http.StatusInternalServerError:
				logger.Error("request failed", fields...)
			case status >= http.StatusBadRequest:
				logger.Warn("request rejected", fields...)
			default:
				logger.Info("request served", fields...)
			}
		})
	}
}

func requestFields(r *http.Request) []zap.Field {
	route := r.URL.Path
	if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
		route = rc.RoutePattern()
	}
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("route", route),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	}

	q := r.URL.Query()
	if u := q.Get("user_id"); u != "" {
		fields = append(fields, zap.String("user_id", u))
	}
	if m, y := q.Get("month"), q.Get("year"); m != "" || y != "" {
		fields = append(fields, zap.String("period", y+"-"+m))
	}
	return fields
}

// TracingMiddleware continues a trace started by the caller, if any.
func TracingMiddleware(next http.Handler) http.Handler {
	propagator := propagation.NewCompositeTextMapPropagator(
		otel.GetTextMapPropagator(),
		propagation.TraceContext{},
	)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
