package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"relay/pkg/accounts"
	"relay/pkg/errs"
	"relay/pkg/utils"
)

// RegisterUsers registers profile, presence and lookup routes.
func RegisterUsers(r *mux.Router) {
	r.HandleFunc("/users/me", getMe).Methods(http.MethodGet)
	r.HandleFunc("/users/me", updateMe).Methods(http.MethodPut)
	r.HandleFunc("/users/me/presence", setPresence).Methods(http.MethodPut)
	r.HandleFunc("/users/me/heartbeat", heartbeat).Methods(http.MethodPost)
	r.HandleFunc("/users/lookup", lookupUser).Methods(http.MethodGet)
}

// getMe handles GET /v1/users/me.
func getMe(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	u, err := accounts.Get(uid)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, u.Public())
}

type profileReq struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

// updateMe handles PUT /v1/users/me.
func updateMe(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	var req profileReq
	if !decode(w, r, &req) {
		return
	}
	u, err := accounts.UpdateProfile(uid, req.FirstName, req.LastName, req.Username)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, u.Public())
}

type presenceReq struct {
	Online bool `json:"online"`
}

// setPresence handles PUT /v1/users/me/presence.
func setPresence(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	var req presenceReq
	if !decode(w, r, &req) {
		return
	}
	u, err := accounts.SetOnline(uid, req.Online)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, u.Public())
}

// heartbeat handles POST /v1/users/me/heartbeat.
func heartbeat(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	if err := accounts.Heartbeat(uid); err != nil {
		writeErr(w, r, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ok"})
}

// lookupUser handles GET /v1/users/lookup?phone=... and resolves another
// user by phone number for starting a chat.
func lookupUser(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	phone := r.URL.Query().Get("phone")
	if phone == "" {
		writeErr(w, r, errs.E(errs.Validation, "phone query parameter required"))
		return
	}
	p, err := accounts.ResolveByPhone(uid, phone)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, p)
}
