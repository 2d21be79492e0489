// Package respond writes the JSON bodies shared by every handler.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/crmapi"
)

// ErrorBody is the JSON shape of every failed request.
type ErrorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, ErrorBody{Error: msg})
}

// Fields reports field-level validation failures.
func Fields(w http.ResponseWriter, msg string, fields map[string]string) {
	JSON(w, http.StatusUnprocessableEntity, ErrorBody{Error: msg, Fields: fields})
}

// Upstream maps a backend failure to a status and a displayable message.
func Upstream(w http.ResponseWriter, err error) {
	JSON(w, UpstreamStatus(err), ErrorBody{Error: crmapi.UserMessage(err)})
}

// UpstreamStatus is the status the gateway answers with for a backend error.
func UpstreamStatus(err error) int {
	var httpErr *crmapi.HTTPError
	switch {
	case errors.Is(err, crmapi.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &httpErr):
		switch httpErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusBadRequest, http.StatusConflict:
			return httpErr.StatusCode
		}
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}

// Decode reads a JSON request body into dst, rejecting unknown fields.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
