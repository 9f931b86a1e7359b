// Package httpapi serves the JSON envelope API: the public login surface,
// the management surface and the auxiliary status surface, each on its own
// listener.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/and161185/authd/internal/errs"
)

// Envelope is the uniform response body. Code 0 is success; every error kind
// has a stable negative code so clients can branch without parsing messages.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

const (
	CodeOK                 = 0
	CodeValidation         = -1
	CodeNotFound           = -2
	CodeDuplicateUsername  = -3
	CodeInvalidCredentials = -4
	CodeBackendUnreachable = -5
	CodeNotRemovable       = -6
	CodeActiveConnection   = -7
	CodeConflict           = -8
	CodeConfigType         = -9
	CodeUnknownProcess     = -10
	CodeInternal           = -32
)

var errorCodes = []struct {
	sentinel error
	status   int
	code     int
}{
	{errs.ErrValidation, http.StatusBadRequest, CodeValidation},
	{errs.ErrDuplicateUsername, http.StatusConflict, CodeDuplicateUsername},
	{errs.ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials},
	{errs.ErrBackendUnreachable, http.StatusBadGateway, CodeBackendUnreachable},
	{errs.ErrNotRemovable, http.StatusForbidden, CodeNotRemovable},
	{errs.ErrActiveConnection, http.StatusConflict, CodeActiveConnection},
	{errs.ErrConflict, http.StatusConflict, CodeConflict},
	{errs.ErrConfigType, http.StatusBadRequest, CodeConfigType},
	{errs.ErrUnknownProcess, http.StatusNotFound, CodeUnknownProcess},
	{errs.ErrNotFound, http.StatusNotFound, CodeNotFound},
}

func writeJSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Envelope{Code: CodeOK, Message: "ok", Data: data})
}

// writeError maps a service error to its envelope code. Unrecognized errors
// become CodeInternal with a generic message; the detail goes to the log
// only.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	for _, m := range errorCodes {
		if errors.Is(err, m.sentinel) {
			writeJSON(w, m.status, Envelope{Code: m.code, Message: err.Error()})
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, Envelope{Code: CodeInternal, Message: "internal error"})
}

// decodeJSON reads the request body into dst, answering a validation-coded
// envelope itself when the body is malformed.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, Envelope{Code: CodeValidation, Message: "malformed json body"})
		return false
	}
	return true
}
