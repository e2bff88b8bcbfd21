package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"lojasocial/internal/pkg/logger"
)

// statusRecorder guarda o status escrito pelo handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Hijack é necessário para o upgrade de WebSocket atravessar o middleware.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("ResponseWriter não suporta Hijack")
	}
	s.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// RequestLogger regista método, caminho, status e duração de cada pedido.
func RequestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			fields := map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rec.status,
				"duration_ms": time.Since(start).Milliseconds(),
			}
			if rec.status >= http.StatusInternalServerError {
				log.Warn("Pedido HTTP terminou com erro.", fields)
				return
			}
			log.Info("Pedido HTTP.", fields)
		})
	}
}
