// Package rest adapts small request handlers to the cerr response receiver.
package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/kazz187/labtrack/pkg/cerr"
	"github.com/kazz187/labtrack/pkg/date"
)

const maxBodyBytes = 1 << 20

// HandlerFunc returns the value to encode as JSON, or an error.
type HandlerFunc func(r *http.Request) (any, error)

// Handle wraps fn so its result is written by the cerr chi middleware.
func Handle(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := fn(r)
		if err != nil {
			cerr.SetJSONError(r.Context(), err)
			return
		}
		cerr.SetJSONResponse(r.Context(), resp)
	}
}

// Create is Handle with a 201 status on success.
func Create(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := fn(r)
		if err != nil {
			cerr.SetJSONError(r.Context(), err)
			return
		}
		cerr.SetCreatedJSONResponse(r.Context(), resp)
	}
}

// Decode reads a JSON request body into v, rejecting unknown fields.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return cerr.NewError(cerr.InvalidArgument, "request body is empty", err)
		}
		return cerr.NewError(cerr.InvalidArgument, "malformed request body", err)
	}
	return nil
}

// QueryInt parses an integer query parameter, returning def when absent.
func QueryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, cerr.NewInvalidArgumentError("invalid query parameter", map[string]string{
			key: fmt.Sprintf("%q is not a non-negative integer", v),
		})
	}
	return n, nil
}

// QueryDate parses a YYYY-MM-DD query parameter; absent means the zero date.
func QueryDate(r *http.Request, key string) (date.Date, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return date.Date{}, nil
	}
	d, err := date.Parse(v)
	if err != nil {
		return date.Date{}, cerr.NewInvalidArgumentError("invalid query parameter", map[string]string{
			key: "expected YYYY-MM-DD",
		})
	}
	return d, nil
}

// Pagination reads limit (default 50) and offset query parameters.
func Pagination(r *http.Request) (limit, offset int, err error) {
	if limit, err = QueryInt(r, "limit", 50); err != nil {
		return 0, 0, err
	}
	if offset, err = QueryInt(r, "offset", 0); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

// Page is the envelope for paginated list responses.
type Page[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
