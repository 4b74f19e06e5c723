package handlers

import (
	"encoding/json"
	"net/http"

	"relay/pkg/auth"
	"relay/pkg/errs"
	"relay/pkg/logger"
	"relay/pkg/utils"
)

// maxBodyBytes caps JSON request bodies.
var maxBodyBytes int64 = 1 << 20

// SetMaxBodySize overrides the request body cap from configuration.
func SetMaxBodySize(n int64) {
	if n > 0 {
		maxBodyBytes = n
	}
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

// writeErr maps a domain error onto the HTTP response. Internal failures
// are logged and hidden behind a generic message.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := errs.Status(err)
	if status == http.StatusInternalServerError {
		logger.Error("request_failed", "path", r.URL.Path, "error", err)
		utils.JSONError(w, status, "internal error")
		return
	}
	utils.JSONError(w, status, err.Error())
}

// caller returns the authenticated user id, failing the request when the
// session middleware did not run.
func caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.JSONError(w, http.StatusUnauthorized, "missing session token")
		return "", false
	}
	return uid, true
}
