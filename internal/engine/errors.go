package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/flexsearch/indexer/internal/util"
)

const (
	typeAlreadyExists = "resource_already_exists_exception"
	typeIndexNotFound = "index_not_found_exception"
)

// ResponseError is an error body returned by the engine.
type ResponseError struct {
	Status int
	Type   string
	Reason string
}

func (e *ResponseError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("elasticsearch [%d]", e.Status)
	}
	return fmt.Sprintf("elasticsearch [%d] %s: %s", e.Status, e.Type, e.Reason)
}

// IsAlreadyExists reports whether err says the index already exists.
func IsAlreadyExists(err error) bool {
	var rerr *ResponseError
	return errors.As(err, &rerr) && rerr.Type == typeAlreadyExists
}

// IsNotFound reports whether err is a 404 from the engine, whatever the
// missing resource is.
func IsNotFound(err error) bool {
	var rerr *ResponseError
	return errors.As(err, &rerr) && (rerr.Status == http.StatusNotFound || rerr.Type == typeIndexNotFound)
}

type errorEnvelope struct {
	Status int             `json:"status"`
	Error  json.RawMessage `json:"error"`
}

type errorCause struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

func decodeError(res *esapi.Response) *ResponseError {
	rerr := &ResponseError{Status: res.StatusCode}

	raw, err := io.ReadAll(res.Body)
	if err != nil || len(raw) == 0 {
		return rerr
	}

	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || len(env.Error) == 0 {
		rerr.Reason = string(raw)
		return rerr
	}

	var cause errorCause
	if err := json.Unmarshal(env.Error, &cause); err == nil {
		rerr.Type = cause.Type
		rerr.Reason = cause.Reason
		return rerr
	}
	// some endpoints return the error as a plain string
	var reason string
	if err := json.Unmarshal(env.Error, &reason); err == nil {
		rerr.Reason = reason
	}
	return rerr
}

// classify maps an engine error onto the service error taxonomy. The
// ResponseError stays reachable through errors.As.
func classify(rerr *ResponseError) error {
	switch {
	case rerr.Status == http.StatusBadRequest && rerr.Type != typeAlreadyExists:
		return util.ErrQueryInvalid.Wrap(rerr)
	case rerr.Status == http.StatusNotFound:
		return util.ErrNotFound.Wrap(rerr)
	case rerr.Status == http.StatusRequestTimeout || rerr.Status == http.StatusGatewayTimeout:
		return util.ErrEngineTimeout.Wrap(rerr)
	case rerr.Status >= 500:
		return util.ErrEngineUnavailable.Wrap(rerr)
	default:
		return util.WrapError(rerr, "Engine request failed")
	}
}
