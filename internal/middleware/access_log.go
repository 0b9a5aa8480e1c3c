package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/patrickwarner/consentstudio/internal/observability"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// AccessLog logs a sampled share of requests through the request logger set
// by WithTraceLogger. Server errors are always logged.
func AccessLog(fallback *zap.Logger, rate float64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status < http.StatusInternalServerError && !observability.ShouldSample(rate) {
				return
			}
			LoggerFromRequest(r, fallback).Info("request served",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)))
		})
	}
}
