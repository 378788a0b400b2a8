package apis

import (
	"net/http"

	"github.com/mugiliam/hatchdockstore/internal/entrymanager"
	"github.com/mugiliam/hatchdockstore/internal/httpx"
)

func (h *handlers) registerEntry(r *http.Request) (*httpx.Response, error) {
	req := &entrymanager.RegisterRequest{}
	if err := readRequest(r, req); err != nil {
		return nil, err
	}
	e, err := h.m.Register(r.Context(), req)
	if err != nil {
		return nil, err
	}
	return entryResponse(http.StatusCreated, e), nil
}

func (h *handlers) createHosted(r *http.Request) (*httpx.Response, error) {
	req := &entrymanager.CreateHostedRequest{}
	if err := readRequest(r, req); err != nil {
		return nil, err
	}
	e, err := h.m.CreateHosted(r.Context(), req)
	if err != nil {
		return nil, err
	}
	return entryResponse(http.StatusCreated, e), nil
}

func (h *handlers) editHosted(r *http.Request) (*httpx.Response, error) {
	id, err := entryID(r, "entryId")
	if err != nil {
		return nil, err
	}
	req := &entrymanager.EditHostedRequest{}
	if err := readRequest(r, req); err != nil {
		return nil, err
	}
	v, err := h.m.EditHosted(r.Context(), id, req)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Response:   toApiVersion(v),
	}, nil
}

func (h *handlers) addChecker(r *http.Request) (*httpx.Response, error) {
	id, err := entryID(r, "entryId")
	if err != nil {
		return nil, err
	}
	req := &entrymanager.AddCheckerRequest{}
	if err := readRequest(r, req); err != nil {
		return nil, err
	}
	checker, err := h.m.AddCheckerWorkflow(r.Context(), id, req)
	if err != nil {
		return nil, err
	}
	return entryResponse(http.StatusCreated, checker), nil
}

func (h *handlers) discoverEntries(r *http.Request) (*httpx.Response, error) {
	req := &entrymanager.DiscoverRequest{}
	if err := readRequest(r, req); err != nil {
		return nil, err
	}
	entries, err := h.m.DiscoverEntries(r.Context(), req)
	if err != nil {
		return nil, err
	}
	rsp := make([]any, 0, len(entries))
	for i := range entries {
		rsp = append(rsp, toApiEntry(&entries[i], nil))
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   rsp,
	}, nil
}
