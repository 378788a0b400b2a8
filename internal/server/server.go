package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mugiliam/hatchdockstore/internal/apis"
	"github.com/mugiliam/hatchdockstore/internal/config"
	"github.com/mugiliam/hatchdockstore/internal/entrymanager"
	"github.com/mugiliam/hatchdockstore/internal/httpx"
	"github.com/mugiliam/hatchdockstore/internal/server/middleware"
	"github.com/mugiliam/hatchdockstore/pkg/api"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type HatchDockstoreServer struct {
	Router  *chi.Mux
	manager *entrymanager.Manager
}

func CreateNewServer(m *entrymanager.Manager) (*HatchDockstoreServer, error) {
	if m == nil {
		return nil, fmt.Errorf("entry manager is required")
	}
	s := &HatchDockstoreServer{manager: m}
	s.Router = chi.NewRouter()
	return s, nil
}

func (s *HatchDockstoreServer) MountHandlers() {
	s.Router.Use(middleware.LoadContext)
	if config.Config().Server.HandleCORS {
		s.Router.Use(s.HandleCORS)
	}
	s.Router.Route("/api/v1", s.mountResourceHandlers)
	if log.Logger.GetLevel() <= zerolog.TraceLevel {
		walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
			log.Trace().Str("method", method).Str("route", route).Msg("route")
			return nil
		}
		if err := chi.Walk(s.Router, walkFunc); err != nil {
			log.Error().Err(err).Msg("unable to walk routes")
		}
	}
}

func (s *HatchDockstoreServer) mountResourceHandlers(r chi.Router) {
	r.Get("/version", s.getVersion)
	r.Group(func(r chi.Router) {
		r.Use(middleware.LoadScopedDB)
		apis.Router(s.manager)(r)
	})
}

func (s *HatchDockstoreServer) getVersion(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("GetVersion")
	rsp := &api.GetVersionRsp{
		ServerVersion: api.ServerVersion,
		ApiVersion:    api.ApiVersion_1_0,
	}
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, rsp)
}

func (s *HatchDockstoreServer) HandleCORS(next http.Handler) http.Handler {
	origin := config.Config().Server.CORSOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Request-ID")

		if r.Method == http.MethodOptions {
			log.Ctx(r.Context()).Debug().Msg("OPTIONS request")
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
