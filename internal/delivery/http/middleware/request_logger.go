package middleware

import (
	"net/http"
	"time"

	"storefront-console/pkg/logger"
	"storefront-console/pkg/utils"

	"github.com/google/uuid"
)

// NewRequestLogger assigns a request id, puts a request-scoped logger in the
// context and logs every request with its status and duration. The user id is
// read from the token claims because the session is resolved further down.
func NewRequestLogger(tokens *utils.TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" || len(requestID) > 64 {
				requestID = uuid.New().String()[:8]
			}
			reqLogger := logger.WithRequestID(requestID)
			r = r.WithContext(logger.NewContext(r.Context(), &reqLogger))
			w.Header().Set("X-Request-ID", requestID)

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			userID := ""
			if tokens != nil {
				if claims, err := tokens.Parse(utils.ExtractToken(r)); err == nil {
					userID = claims.UserID
				}
			}

			event := reqLogger.Info()
			if wrapped.statusCode >= 500 {
				event = reqLogger.Error()
			} else if wrapped.statusCode >= 400 {
				event = reqLogger.Warn()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("query", r.URL.RawQuery).
				Int("status", wrapped.statusCode).
				Dur("duration_ms", time.Since(start)).
				Str("ip", clientIP(r)).
				Str("user_agent", r.UserAgent()).
				Str("user_id", userID).
				Msg("HTTP")
		})
	}
}

// responseWriter captures the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
