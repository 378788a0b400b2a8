package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mugiliam/hatchdockstore/internal/common"
	"github.com/rs/zerolog/log"
)

const RequestIdHeader = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// LoadContext gives every request an id and a logger carrying it. An id sent by
// the client is kept.
func LoadContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestId := r.Header.Get(RequestIdHeader)
		if requestId == "" {
			requestId = uuid.NewString()
		}
		w.Header().Set(RequestIdHeader, requestId)

		logger := log.Logger.With().Str("request_id", requestId).Logger()
		ctx := common.SetRequestIdInContext(logger.WithContext(r.Context()), requestId)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))
		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
