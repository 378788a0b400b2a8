package apis

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mugiliam/hatchdockstore/internal/httpx"
	"github.com/mugiliam/hatchdockstore/pkg/api"
	"github.com/mugiliam/hatchdockstore/pkg/types"
)

func (h *handlers) updateDescriptorPath(r *http.Request) (*httpx.Response, error) {
	id, err := entryID(r, "entryId")
	if err != nil {
		return nil, err
	}
	req := &api.UpdateDescriptorPathReq{}
	if err := readRequest(r, req); err != nil {
		return nil, err
	}
	n, err := h.m.UpdateDefaultDescriptorPath(r.Context(), id, req.DescriptorPath)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   api.UpdateDescriptorPathRsp{Desynced: n},
	}, nil
}

func (h *handlers) refreshEntry(r *http.Request) (*httpx.Response, error) {
	id, err := entryID(r, "entryId")
	if err != nil {
		return nil, err
	}
	hard, err := hardRefresh(r)
	if err != nil {
		return nil, err
	}
	d, err := h.m.Refresh(r.Context(), id, hard)
	if err != nil {
		return nil, err
	}
	return detailResponse(http.StatusOK, d), nil
}

func (h *handlers) refreshVersion(r *http.Request) (*httpx.Response, error) {
	id, err := entryID(r, "entryId")
	if err != nil {
		return nil, err
	}
	hard, err := hardRefresh(r)
	if err != nil {
		return nil, err
	}
	name, err := pathParam(r, "versionName")
	if err != nil {
		return nil, err
	}
	d, err := h.m.RefreshVersion(r.Context(), id, name, hard)
	if err != nil {
		return nil, err
	}
	return detailResponse(http.StatusOK, d), nil
}

func (h *handlers) refreshOrganization(r *http.Request) (*httpx.Response, error) {
	sc, ok := types.ParseSourceControl(chi.URLParam(r, "sourceControl"))
	if !ok {
		return nil, httpx.ErrInvalidRequest("unsupported source control")
	}
	res, err := h.m.RefreshOrganization(r.Context(), sc, chi.URLParam(r, "organization"))
	if err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   res,
	}, nil
}

func (h *handlers) updateVersion(r *http.Request) (*httpx.Response, error) {
	id, err := entryID(r, "entryId")
	if err != nil {
		return nil, err
	}
	name, err := pathParam(r, "versionName")
	if err != nil {
		return nil, err
	}
	req := &api.UpdateVersionReq{}
	if err := readRequest(r, req); err != nil {
		return nil, err
	}
	if req.Hidden == nil && req.DescriptorPath == nil {
		return nil, httpx.ErrInvalidRequest("nothing to update")
	}
	ctx := r.Context()
	if req.DescriptorPath != nil {
		if _, err := h.m.UpdateVersionDescriptorPath(ctx, id, name, *req.DescriptorPath); err != nil {
			return nil, err
		}
	}
	if req.Hidden != nil {
		if _, err := h.m.SetVersionHidden(ctx, id, name, *req.Hidden); err != nil {
			return nil, err
		}
	}
	d, err := h.m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return detailResponse(http.StatusOK, d), nil
}

func (h *handlers) setDefaultVersion(r *http.Request) (*httpx.Response, error) {
	id, err := entryID(r, "entryId")
	if err != nil {
		return nil, err
	}
	req := &api.SetDefaultVersionReq{}
	if err := readRequest(r, req); err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, httpx.ErrInvalidRequest("missing version name")
	}
	e, err := h.m.SetDefaultVersion(r.Context(), id, req.Name)
	if err != nil {
		return nil, err
	}
	return entryResponse(http.StatusOK, e), nil
}

func (h *handlers) publishEntry(r *http.Request) (*httpx.Response, error) {
	id, err := entryID(r, "entryId")
	if err != nil {
		return nil, err
	}
	e, err := h.m.Publish(r.Context(), id)
	if err != nil {
		return nil, err
	}
	return entryResponse(http.StatusOK, e), nil
}

func (h *handlers) assignChecker(r *http.Request) (*httpx.Response, error) {
	id, err := entryID(r, "entryId")
	if err != nil {
		return nil, err
	}
	req := &api.AssignCheckerReq{}
	if err := readRequest(r, req); err != nil {
		return nil, err
	}
	checkerID, err := uuid.Parse(req.CheckerID)
	if err != nil {
		return nil, httpx.ErrInvalidRequest("invalid checker id")
	}
	e, err := h.m.AssignChecker(r.Context(), id, checkerID)
	if err != nil {
		return nil, err
	}
	return entryResponse(http.StatusOK, e), nil
}
