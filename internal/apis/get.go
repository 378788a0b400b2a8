package apis

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mugiliam/hatchdockstore/internal/httpx"
	"github.com/mugiliam/hatchdockstore/pkg/api"
	"github.com/mugiliam/hatchdockstore/pkg/types"
)

func (h *handlers) getEntry(r *http.Request) (*httpx.Response, error) {
	id, err := entryID(r, "entryId")
	if err != nil {
		return nil, err
	}
	d, err := h.m.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	return detailResponse(http.StatusOK, d), nil
}

func (h *handlers) listEntries(r *http.Request) (*httpx.Response, error) {
	sc, ok := types.ParseSourceControl(chi.URLParam(r, "sourceControl"))
	if !ok {
		return nil, httpx.ErrInvalidRequest("unsupported source control")
	}
	entries, err := h.m.List(r.Context(), sc, chi.URLParam(r, "organization"))
	if err != nil {
		return nil, err
	}
	rsp := make([]api.Entry, 0, len(entries))
	for i := range entries {
		rsp = append(rsp, toApiEntry(&entries[i], nil))
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   rsp,
	}, nil
}

func (h *handlers) listEvents(r *http.Request) (*httpx.Response, error) {
	id, err := entryID(r, "entryId")
	if err != nil {
		return nil, err
	}
	events, err := h.m.ListEvents(r.Context(), id)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   toApiEvents(events),
	}, nil
}

func (h *handlers) countPublished(r *http.Request) (*httpx.Response, error) {
	t := types.EntryType(r.URL.Query().Get("type"))
	if t == "" {
		t = types.EntryTypeWorkflow
	}
	n, err := h.m.CountPublished(r.Context(), t)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   api.CountRsp{EntryType: string(t), Count: n},
	}, nil
}
