package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"unidiary/internal/gateway"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

// decodeJSON reads a single JSON document into v. Numbers are kept as
// json.Number so money survives without float rounding.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON body", errBadRequest)
	}
	return nil
}

// decodePatch reads a partial row and refuses fields the caller may not set.
// Ownership is decided by the server's scope, never by the request.
func decodePatch(w http.ResponseWriter, r *http.Request, protected ...string) (gateway.Row, error) {
	var patch gateway.Row
	if err := decodeJSON(w, r, &patch); err != nil {
		return nil, err
	}
	if len(patch) == 0 {
		return nil, fmt.Errorf("%w: empty patch", errBadRequest)
	}
	for _, key := range append([]string{gateway.ColumnOwnerID}, protected...) {
		if _, ok := patch[key]; ok {
			return nil, fmt.Errorf("%w: field %q cannot be changed", errBadRequest, key)
		}
	}
	if d, ok := patch["description"].(string); ok {
		patch["description"] = sanitizeInput(d)
	}
	return patch, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
