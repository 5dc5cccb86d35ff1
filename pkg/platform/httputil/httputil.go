// Package httputil holds the JSON response helpers shared by every handler.
package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	dErrors "storefront/pkg/domain-errors"
)

const maxBodyBytes = 1 << 20

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates err into a status and an {"error","error_description"} body.
// Internal errors never leak their description.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.HTTPStatus(code)
	body := map[string]string{"error": string(code)}
	if status < http.StatusInternalServerError {
		var de *dErrors.Error
		if errors.As(err, &de) {
			body["error_description"] = de.Message
		}
	}
	WriteJSON(w, status, body)
}

// DecodeJSON reads a bounded JSON body into v.
func DecodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read request body")
	}
	if strings.TrimSpace(string(body)) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "empty request body")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "invalid JSON payload")
	}
	return nil
}
