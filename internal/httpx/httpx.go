package httpx

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Response is what a handler returns on success. Response is marshalled to JSON
// unless it is nil.
type Response struct {
	StatusCode int
	Location   string
	Response   any
}

type RequestHandler func(r *http.Request) (*Response, error)

// ErrorMapper converts a handler error into an *Error. Errors that are not
// converted are reported as internal server errors.
type ErrorMapper func(err error) error

func WrapHttpRsp(handler RequestHandler, mappers ...ErrorMapper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rsp, err := handler(r)
		if err != nil {
			for _, m := range mappers {
				err = m(err)
			}
			if httpErr, ok := err.(*Error); ok {
				httpErr.Send(w)
				return
			}
			log.Ctx(r.Context()).Error().Err(err).Msg("unhandled error")
			ErrApplicationError().Send(w)
			return
		}
		if rsp == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if rsp.Location != "" {
			w.Header().Set("Location", rsp.Location)
		}
		if rsp.Response == nil {
			w.WriteHeader(rsp.StatusCode)
			return
		}
		SendJsonRsp(r.Context(), w, rsp.StatusCode, rsp.Response)
	}
}

func SendJsonRsp(ctx context.Context, w http.ResponseWriter, statusCode int, rsp any) {
	var b []byte
	switch v := rsp.(type) {
	case []byte:
		b = v
	case json.RawMessage:
		b = v
	default:
		var err error
		b, err = json.Marshal(rsp)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("unable to marshal response")
			ErrApplicationError().Send(w)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(b); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("unable to write response")
	}
}
