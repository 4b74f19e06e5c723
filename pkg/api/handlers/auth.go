package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"relay/pkg/accounts"
	"relay/pkg/auth"
	"relay/pkg/models"
	"relay/pkg/utils"
)

// RegisterAuth registers the unauthenticated credential endpoints.
func RegisterAuth(r *mux.Router) {
	r.HandleFunc("/auth/register", registerAccount).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", login).Methods(http.MethodPost)
}

type credentialsReq struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type sessionResp struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

// registerAccount handles POST /v1/auth/register.
func registerAccount(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if !decode(w, r, &req) {
		return
	}
	u, err := accounts.Register(req.Phone, req.Password)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	token, err := auth.IssueSession(u.ID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusCreated, sessionResp{Token: token, User: u.Public()})
}

// login handles POST /v1/auth/login.
func login(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if !decode(w, r, &req) {
		return
	}
	u, err := accounts.Authenticate(req.Phone, req.Password)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	token, err := auth.IssueSession(u.ID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, sessionResp{Token: token, User: u.Public()})
}
