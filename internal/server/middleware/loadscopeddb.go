package middleware

import (
	"net/http"

	"github.com/mugiliam/hatchdockstore/internal/db"
	"github.com/mugiliam/hatchdockstore/internal/httpx"
	"github.com/rs/zerolog/log"
)

// LoadScopedDB puts a database handle on the request context and releases it
// when the request is done.
func LoadScopedDB(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := db.ConnCtx(r.Context())
		if !db.HasDB(ctx) {
			log.Ctx(ctx).Error().Msg("no database connection")
			httpx.ErrApplicationError("database unavailable").Send(w)
			return
		}
		defer db.DB(ctx).Close(ctx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
