package apis

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mugiliam/hatchdockstore/internal/db/models"
	"github.com/mugiliam/hatchdockstore/internal/entrymanager"
	"github.com/mugiliam/hatchdockstore/internal/httpx"
	"github.com/mugiliam/hatchdockstore/pkg/api"
	"github.com/tidwall/gjson"
)

const maxRequestSize = 8 << 20

func entryID(r *http.Request, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		return uuid.Nil, httpx.ErrInvalidRequest("invalid entry id")
	}
	return id, nil
}

// pathParam returns a decoded path parameter. chi matches on the raw path when
// the request has one, so escaped slashes in version names arrive encoded.
func pathParam(r *http.Request, param string) (string, error) {
	v, err := url.PathUnescape(chi.URLParam(r, param))
	if err != nil {
		return "", httpx.ErrInvalidRequest("invalid " + param)
	}
	return v, nil
}

func readRequest(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestSize))
	if err != nil {
		return httpx.ErrUnableToReadRequest()
	}
	if !gjson.ValidBytes(body) {
		return httpx.ErrInvalidRequest("unable to parse request")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return httpx.ErrInvalidRequest("unable to parse request: " + err.Error())
	}
	return nil
}

// hardRefresh reads the hard query parameter. Absent means false.
func hardRefresh(r *http.Request) (bool, error) {
	s := r.URL.Query().Get("hard")
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, httpx.ErrInvalidRequest("invalid value for hard")
	}
	return b, nil
}

func toApiEntry(e *models.Entry, versions []models.Version) api.Entry {
	out := api.Entry{
		ID:                       e.EntryID.String(),
		Path:                     e.Path,
		EntryType:                string(e.EntryType),
		Mode:                     string(e.Mode),
		SourceControl:            string(e.SourceControl),
		Organization:             e.Organization,
		Repository:               e.Repository,
		EntryName:                e.EntryName,
		DescriptorLanguage:       string(e.DescriptorLanguage),
		DefaultDescriptorPath:    e.DefaultDescriptorPath,
		DefaultTestParameterPath: e.DefaultTestParameterPath,
		DefaultVersion:           e.DefaultVersion,
		IsPublished:              e.IsPublished,
		IsChecker:                e.IsChecker,
		Author:                   e.Author,
		Email:                    e.Email,
		Description:              e.Description,
	}
	if e.CheckerID != nil {
		id := e.CheckerID.String()
		out.CheckerID = &id
	}
	if e.HasImage() {
		out.Image = e.ImageRegistry + "/" + e.ImageNamespace + "/" + e.ImageName
	}
	if !e.LastUpdated.IsZero() {
		t := e.LastUpdated
		out.LastUpdated = &t
	}
	for i := range versions {
		out.Versions = append(out.Versions, toApiVersion(&versions[i]))
	}
	return out
}

func toApiVersion(v *models.Version) api.Version {
	out := api.Version{
		ID:                                v.VersionID.String(),
		Name:                              v.Name,
		Reference:                         v.Reference,
		ReferenceType:                     string(v.ReferenceType),
		CommitID:                          v.CommitID,
		Valid:                             v.Valid,
		ValidationMessage:                 v.ValidationMessage,
		Hidden:                            v.Hidden,
		DirtyBit:                          v.DirtyBit,
		Synced:                            v.Synced,
		LastModified:                      v.LastModified,
		DescriptorPath:                    v.DescriptorPath,
		TestParameterPaths:                v.TestParameterPaths,
		Author:                            v.Author,
		Email:                             v.Email,
		Description:                       v.Description,
		PublicAccessibleTestParameterFile: v.PublicAccessibleTestParameterFile,
	}
	if v.DescriptorPathOverride != nil {
		out.DescriptorPath = *v.DescriptorPathOverride
	}
	if img := v.ImageMetadata; img != nil {
		out.Image = &api.ImageMetadata{ImageID: img.ImageID, Size: img.Size}
		for _, c := range img.Checksums {
			out.Image.Checksums = append(out.Image.Checksums, api.Checksum{Type: c.Type, Checksum: c.Checksum})
		}
	}
	return out
}

func toApiEvents(events []models.Event) []api.Event {
	out := make([]api.Event, 0, len(events))
	for _, ev := range events {
		out = append(out, api.Event{
			ID:          ev.EventID.String(),
			Type:        string(ev.Type),
			VersionName: ev.VersionName,
			Details:     ev.Details,
			CreatedAt:   ev.CreatedAt,
		})
	}
	return out
}

func detailResponse(status int, d *entrymanager.Detail) *httpx.Response {
	return &httpx.Response{
		StatusCode: status,
		Response:   toApiEntry(&d.Entry, d.Versions),
	}
}

func entryResponse(status int, e *models.Entry) *httpx.Response {
	rsp := &httpx.Response{
		StatusCode: status,
		Response:   toApiEntry(e, nil),
	}
	if status == http.StatusCreated {
		rsp.Location = "/api/v1/entries/" + e.EntryID.String()
	}
	return rsp
}
