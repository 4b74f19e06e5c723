// Package api wires the versioned HTTP surface: auth, users, chats,
// admin and the websocket event stream.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"relay/pkg/api/handlers"
	"relay/pkg/auth"
)

// Handler returns the /v1 API router. Everything except registration and
// login requires a session token.
func Handler() http.Handler {
	r := mux.NewRouter()
	v1 := r.PathPrefix("/v1").Subrouter()

	open := v1.NewRoute().Subrouter()
	handlers.RegisterAuth(open)

	authed := v1.NewRoute().Subrouter()
	authed.Use(auth.RequireSession)
	handlers.RegisterUsers(authed)
	handlers.RegisterChats(authed)
	handlers.RegisterAdmin(authed)
	handlers.RegisterEvents(authed)

	return r
}
