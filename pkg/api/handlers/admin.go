package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"relay/pkg/accounts"
	"relay/pkg/models"
	"relay/pkg/utils"
	"relay/pkg/ws"
)

// RegisterAdmin registers the developer-only moderation routes.
func RegisterAdmin(r *mux.Router) {
	r.HandleFunc("/admin/users", adminListUsers).Methods(http.MethodGet)
	r.HandleFunc("/admin/users/{id}/blocked", adminSetBlocked).Methods(http.MethodPut)
	r.HandleFunc("/admin/users/{id}", adminDeleteUser).Methods(http.MethodDelete)
}

// adminListUsers handles GET /v1/admin/users: every account, oldest
// first. The admin listing is the one place full records (including the
// password hash) are exposed; developer status is re-verified per call.
func adminListUsers(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	users, err := accounts.ListAllUsers(uid)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	_ = utils.JSONWrite(w, http.StatusOK, users)
}

type blockedReq struct {
	Blocked bool `json:"blocked"`
}

// adminSetBlocked handles PUT /v1/admin/users/{id}/blocked.
func adminSetBlocked(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	var req blockedReq
	if !decode(w, r, &req) {
		return
	}
	target := mux.Vars(r)["id"]
	u, err := accounts.SetBlocked(uid, target, req.Blocked)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	ws.Default.SendToUsers(ws.Event{
		Type: "account.blocked",
		Data: map[string]bool{"blocked": req.Blocked},
	}, target)
	_ = utils.JSONWrite(w, http.StatusOK, u.Public())
}

// adminDeleteUser handles DELETE /v1/admin/users/{id}: removes the
// account, its chats and all their messages.
func adminDeleteUser(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	target := mux.Vars(r)["id"]
	if err := accounts.DeleteUser(uid, target); err != nil {
		writeErr(w, r, err)
		return
	}
	ws.Default.SendToUsers(ws.Event{Type: "account.deleted"}, target)
	w.WriteHeader(http.StatusNoContent)
}
