package web

import (
	"log/slog"
	"net/http"
	"time"
)

// statusRecorder keeps the code a handler wrote so the access log can report
// it; handlers that never call WriteHeader count as 200.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// accessLog wraps the mux and emits one line per served request.
func accessLog(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request served",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"status", rec.code,
			"elapsed", time.Since(started).String(),
		)
	})
}
