package apis

import (
	"net/http"

	"github.com/mugiliam/hatchdockstore/internal/httpx"
)

func (h *handlers) deleteEntry(r *http.Request) (*httpx.Response, error) {
	id, err := entryID(r, "entryId")
	if err != nil {
		return nil, err
	}
	if err := h.m.Delete(r.Context(), id); err != nil {
		return nil, err
	}
	return nil, nil
}

func (h *handlers) unpublishEntry(r *http.Request) (*httpx.Response, error) {
	id, err := entryID(r, "entryId")
	if err != nil {
		return nil, err
	}
	e, err := h.m.Unpublish(r.Context(), id)
	if err != nil {
		return nil, err
	}
	return entryResponse(http.StatusOK, e), nil
}
