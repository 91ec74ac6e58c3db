package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/pitabwire/util"
	"github.com/rs/xid"
)

// requestLogger tags every request with an id and logs its outcome.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		logger := util.Log(r.Context()).
			WithField("request_id", xid.New().String()).
			WithField("method", r.Method).
			WithField("path", r.URL.Path)

		ctx := util.ContextWithLogger(r.Context(), logger)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r.WithContext(ctx))

		logger.WithField("status", recorder.status).
			WithField("duration", time.Since(start).String()).
			Info("request completed")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// adminOnly rejects requests without a configured administrator key.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.isPrivileged(r) {
			s.writeJSON(w, http.StatusUnauthorized, errorBody{
				Code:    "unauthorized",
				Message: s.message(r.Context(), r, "unauthorized"),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
