package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"relay/pkg/chats"
	"relay/pkg/errs"
	"relay/pkg/models"
	"relay/pkg/utils"
	"relay/pkg/ws"
)

// RegisterChats registers conversation and message routes.
func RegisterChats(r *mux.Router) {
	r.HandleFunc("/chats", openChat).Methods(http.MethodPost)
	r.HandleFunc("/chats", listChats).Methods(http.MethodGet)
	r.HandleFunc("/chats/{id}", getChat).Methods(http.MethodGet)
	r.HandleFunc("/chats/{id}", deleteChat).Methods(http.MethodDelete)
	r.HandleFunc("/chats/{id}/messages", sendMessage).Methods(http.MethodPost)
	r.HandleFunc("/chats/{id}/messages", listMessages).Methods(http.MethodGet)
	r.HandleFunc("/chats/{id}/typing", signalTyping).Methods(http.MethodPost)
	r.HandleFunc("/chats/{id}/typing", peerTyping).Methods(http.MethodGet)
}

type openChatReq struct {
	PeerID string `json:"peer_id"`
}

// openChat handles POST /v1/chats: returns the chat with the peer,
// creating it on first contact.
func openChat(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	var req openChatReq
	if !decode(w, r, &req) {
		return
	}
	if req.PeerID == "" {
		writeErr(w, r, errs.E(errs.Validation, "peer_id is required"))
		return
	}
	c, created, err := chats.GetOrCreate(uid, req.PeerID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
		ws.Default.SendToUsers(ws.Event{Type: "chat.created", Data: c}, c.Peer(uid))
	}
	_ = utils.JSONWrite(w, status, c)
}

// listChats handles GET /v1/chats.
func listChats(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	out, err := chats.List(uid)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, out)
}

// getChat handles GET /v1/chats/{id}.
func getChat(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	c, err := chats.Get(uid, mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, r, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, c)
}

// deleteChat handles DELETE /v1/chats/{id}. Deletion is symmetric: the
// chat and its history disappear for both participants.
func deleteChat(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	chatID := mux.Vars(r)["id"]
	c, err := chats.Get(uid, chatID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if err := chats.Delete(uid, chatID); err != nil {
		writeErr(w, r, err)
		return
	}
	ws.Default.SendToUsers(ws.Event{Type: "chat.deleted", Data: map[string]string{"chat_id": chatID}}, c.Peer(uid))
	w.WriteHeader(http.StatusNoContent)
}

type sendMessageReq struct {
	Text string `json:"text"`
}

// sendMessage handles POST /v1/chats/{id}/messages.
func sendMessage(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	var req sendMessageReq
	if !decode(w, r, &req) {
		return
	}
	chatID := mux.Vars(r)["id"]
	m, err := chats.Append(uid, chatID, req.Text)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	c, err := chats.Get(uid, chatID)
	if err == nil {
		ws.Default.SendToUsers(ws.Event{Type: "message.new", Data: m}, c.Peer(uid), uid)
	}
	_ = utils.JSONWrite(w, http.StatusCreated, m)
}

// listMessages handles GET /v1/chats/{id}/messages?limit=n, oldest-first.
func listMessages(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeErr(w, r, errs.E(errs.Validation, "invalid limit"))
			return
		}
		limit = n
	}
	out, err := chats.Messages(uid, mux.Vars(r)["id"], limit)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if out == nil {
		out = []models.Message{}
	}
	_ = utils.JSONWrite(w, http.StatusOK, out)
}

// signalTyping handles POST /v1/chats/{id}/typing.
func signalTyping(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	c, err := chats.MarkTyping(uid, mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, r, err)
		return
	}
	ws.Default.SendToUsers(ws.Event{
		Type: "typing",
		Data: map[string]string{"chat_id": c.ID, "user_id": uid},
	}, c.Peer(uid))
	w.WriteHeader(http.StatusNoContent)
}

// peerTyping handles GET /v1/chats/{id}/typing: whether the other
// participant is currently typing.
func peerTyping(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	c, err := chats.Get(uid, mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, r, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]bool{
		"typing": chats.PeerIsTyping(uid, c),
	})
}
