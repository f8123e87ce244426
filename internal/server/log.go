package server

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		setCORSHeaders(w, s.opts.CORS)
		sw := newStatusResponseWriter(w)
		next.ServeHTTP(sw, r)
		s.log.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.Status()),
			zap.Int64("bytes", sw.bytes),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
