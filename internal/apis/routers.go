package apis

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mugiliam/hatchdockstore/internal/entrymanager"
	"github.com/mugiliam/hatchdockstore/internal/httpx"
)

type handlers struct {
	m *entrymanager.Manager
}

type handlerParam struct {
	Method  string
	Path    string
	Handler httpx.RequestHandler
}

func (h *handlers) routes() []handlerParam {
	return []handlerParam{
		{Method: http.MethodPost, Path: "/entries", Handler: h.registerEntry},
		{Method: http.MethodGet, Path: "/entries/{entryId}", Handler: h.getEntry},
		{Method: http.MethodDelete, Path: "/entries/{entryId}", Handler: h.deleteEntry},
		{Method: http.MethodPut, Path: "/entries/{entryId}/descriptor-path", Handler: h.updateDescriptorPath},
		{Method: http.MethodPost, Path: "/entries/{entryId}/refresh", Handler: h.refreshEntry},
		{Method: http.MethodPost, Path: "/entries/{entryId}/versions/{versionName}/refresh", Handler: h.refreshVersion},
		{Method: http.MethodPut, Path: "/entries/{entryId}/versions/{versionName}", Handler: h.updateVersion},
		{Method: http.MethodPut, Path: "/entries/{entryId}/default-version", Handler: h.setDefaultVersion},
		{Method: http.MethodPost, Path: "/entries/{entryId}/publish", Handler: h.publishEntry},
		{Method: http.MethodDelete, Path: "/entries/{entryId}/publish", Handler: h.unpublishEntry},
		{Method: http.MethodPost, Path: "/entries/{entryId}/checker", Handler: h.addChecker},
		{Method: http.MethodPut, Path: "/entries/{entryId}/checker", Handler: h.assignChecker},
		{Method: http.MethodGet, Path: "/entries/{entryId}/events", Handler: h.listEvents},
		{Method: http.MethodGet, Path: "/organizations/{sourceControl}/{organization}/entries", Handler: h.listEntries},
		{Method: http.MethodPost, Path: "/organizations/{sourceControl}/{organization}/refresh", Handler: h.refreshOrganization},
		{Method: http.MethodGet, Path: "/metrics/published", Handler: h.countPublished},
		{Method: http.MethodPost, Path: "/hosted", Handler: h.createHosted},
		{Method: http.MethodPost, Path: "/hosted/{entryId}/versions", Handler: h.editHosted},
		{Method: http.MethodPost, Path: "/discover", Handler: h.discoverEntries},
	}
}

// Router mounts the entry routes. The request context must carry a database
// handle.
func Router(m *entrymanager.Manager) func(r chi.Router) {
	h := &handlers{m: m}
	return func(r chi.Router) {
		for _, handler := range h.routes() {
			r.Method(handler.Method, handler.Path, httpx.WrapHttpRsp(handler.Handler, ToHttpxError))
		}
	}
}
