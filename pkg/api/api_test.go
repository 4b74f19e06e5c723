package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"relay/pkg/accounts"
	"relay/pkg/auth"
	"relay/pkg/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	auth.Configure("test-secret", time.Hour)
	accounts.SetDeveloperCred("+79022428092", "devpass")

	srv := httptest.NewServer(Handler())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func register(t *testing.T, srv *httptest.Server, phone, password string) (token, userID string) {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/v1/auth/register", "", map[string]string{
		"phone": phone, "password": password,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status %d (%v)", phone, resp.StatusCode, body)
	}
	token = body["token"].(string)
	userID = body["user"].(map[string]interface{})["id"].(string)
	return token, userID
}

func TestRegisterLoginFlow(t *testing.T) {
	srv := newTestServer(t)

	token, _ := register(t, srv, "+79998887766", "pass123")
	if token == "" {
		t.Fatal("no session token issued")
	}

	// duplicate phone
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/auth/register", "", map[string]string{
		"phone": "+79998887766", "password": "other",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register status = %d, want 409", resp.StatusCode)
	}

	// wrong password
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/v1/auth/login", "", map[string]string{
		"phone": "+79998887766", "password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d, want 401", resp.StatusCode)
	}
	if body["error"] == "" {
		t.Fatal("error body missing")
	}

	// correct login
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/v1/auth/login", "", map[string]string{
		"phone": "+79998887766", "password": "pass123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want 200", resp.StatusCode)
	}
	user := body["user"].(map[string]interface{})
	if user["username"] != "user7766" {
		t.Fatalf("username = %v, want user7766", user["username"])
	}
	if user["is_online"] != true {
		t.Fatal("login should mark user online")
	}

	// session required for protected routes
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/v1/chats", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated list status = %d, want 401", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/v1/chats", "not-a-token", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("garbage token status = %d, want 401", resp.StatusCode)
	}
}

func TestProfileAndLookup(t *testing.T) {
	srv := newTestServer(t)
	tokA, _ := register(t, srv, "+15552220001", "pw")
	_, idB := register(t, srv, "+15552220002", "pw")

	resp, body := doJSON(t, http.MethodPut, srv.URL+"/v1/users/me", tokA, map[string]string{
		"first_name": "Alice", "last_name": "Smith", "username": "Alice_01",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update profile status = %d (%v)", resp.StatusCode, body)
	}
	if body["username"] != "alice_01" {
		t.Fatalf("username = %v, want normalized alice_01", body["username"])
	}

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/v1/users/lookup?phone=%2B15552220002", tokA, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("lookup status = %d (%v)", resp.StatusCode, body)
	}
	if body["id"] != idB {
		t.Fatalf("lookup returned %v, want %s", body["id"], idB)
	}
	if _, ok := body["password_hash"]; ok {
		t.Fatal("lookup leaked password hash")
	}

	// own phone reads as not found
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/v1/users/lookup?phone=%2B15552220001", tokA, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("self lookup status = %d, want 404", resp.StatusCode)
	}
}

func TestChatAndMessageFlow(t *testing.T) {
	srv := newTestServer(t)
	tokA, idA := register(t, srv, "+15553330001", "pw")
	tokB, idB := register(t, srv, "+15553330002", "pw")

	// self chat rejected
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/chats", tokA, map[string]string{"peer_id": idA})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("self chat status = %d, want 400", resp.StatusCode)
	}

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/v1/chats", tokA, map[string]string{"peer_id": idB})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("open chat status = %d (%v)", resp.StatusCode, body)
	}
	chatID := body["id"].(string)

	// reopening from either side returns the same chat with 200
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/v1/chats", tokB, map[string]string{"peer_id": idA})
	if resp.StatusCode != http.StatusOK || body["id"] != chatID {
		t.Fatalf("reopen: status %d id %v, want 200 %s", resp.StatusCode, body["id"], chatID)
	}

	msgURL := fmt.Sprintf("%s/v1/chats/%s/messages", srv.URL, chatID)

	// whitespace-only text rejected
	resp, _ = doJSON(t, http.MethodPost, msgURL, tokA, map[string]string{"text": "   "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("blank message status = %d, want 400", resp.StatusCode)
	}

	for i, tok := range []string{tokA, tokB, tokA} {
		resp, _ = doJSON(t, http.MethodPost, msgURL, tok, map[string]string{"text": fmt.Sprintf("msg %d", i)})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("send %d status = %d, want 201", i, resp.StatusCode)
		}
	}

	req, _ := http.NewRequest(http.MethodGet, msgURL, nil)
	req.Header.Set("Authorization", "Bearer "+tokB)
	listResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	defer listResp.Body.Close()
	var msgs []map[string]interface{}
	if err := json.NewDecoder(listResp.Body).Decode(&msgs); err != nil {
		t.Fatalf("decode messages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	if msgs[0]["text"] != "msg 0" || msgs[2]["text"] != "msg 2" {
		t.Fatalf("messages out of order: %v", msgs)
	}

	// outsider cannot read
	tokC, _ := register(t, srv, "+15553330003", "pw")
	resp, _ = doJSON(t, http.MethodGet, msgURL, tokC, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("outsider read status = %d, want 403", resp.StatusCode)
	}

	// typing signal is visible to the peer but not to the sender
	typingURL := fmt.Sprintf("%s/v1/chats/%s/typing", srv.URL, chatID)
	resp, _ = doJSON(t, http.MethodPost, typingURL, tokB, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("typing status = %d, want 204", resp.StatusCode)
	}
	resp, body = doJSON(t, http.MethodGet, typingURL, tokA, nil)
	if resp.StatusCode != http.StatusOK || body["typing"] != true {
		t.Fatalf("peer typing = %v (status %d), want true", body["typing"], resp.StatusCode)
	}
	resp, body = doJSON(t, http.MethodGet, typingURL, tokB, nil)
	if resp.StatusCode != http.StatusOK || body["typing"] != false {
		t.Fatalf("own typing leaked back: %v", body["typing"])
	}
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/v1/chats", tokA, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list chats status = %d", resp.StatusCode)
	}

	// delete removes the chat for both sides
	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/v1/chats/"+chatID, tokB, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete chat status = %d, want 204", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/v1/chats/"+chatID, tokA, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("deleted chat status = %d, want 404", resp.StatusCode)
	}
}

func TestAdminEndpoints(t *testing.T) {
	srv := newTestServer(t)
	tokDev, _ := register(t, srv, "+79022428092", "devpass")
	tokA, idA := register(t, srv, "+15554440001", "pw")
	tokB, idB := register(t, srv, "+15554440002", "pw")

	// wrong password on the reserved developer phone is rejected outright
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/auth/register", "", map[string]string{
		"phone": "+79022428092", "password": "not-it",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("reserved phone register status = %d, want 403", resp.StatusCode)
	}

	// non-developer gets 403
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/v1/admin/users", tokA, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-dev admin list status = %d, want 403", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/v1/admin/users", tokDev, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dev admin list status = %d, want 200", resp.StatusCode)
	}

	// open a chat between A and B, then block B
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/v1/chats", tokA, map[string]string{"peer_id": idB})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("open chat status = %d", resp.StatusCode)
	}
	chatID := body["id"].(string)

	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/v1/admin/users/"+idB+"/blocked", tokDev, map[string]bool{"blocked": true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("block status = %d, want 200", resp.StatusCode)
	}

	// sends now conflict in both directions
	msgURL := fmt.Sprintf("%s/v1/chats/%s/messages", srv.URL, chatID)
	resp, _ = doJSON(t, http.MethodPost, msgURL, tokA, map[string]string{"text": "hi"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("send to blocked status = %d, want 409", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPost, msgURL, tokB, map[string]string{"text": "hi"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("send from blocked status = %d, want 409", resp.StatusCode)
	}

	// self moderation rejected
	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/v1/admin/users/"+mustDevID(t, srv, tokDev)+"/blocked", tokDev, map[string]bool{"blocked": true})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("self block status = %d, want 403", resp.StatusCode)
	}

	// delete A: their chats disappear for B too
	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/v1/admin/users/"+idA, tokDev, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("admin delete status = %d, want 204", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/v1/chats/"+chatID, tokB, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("chat survived account deletion: %d", resp.StatusCode)
	}
	// A's session no longer resolves to an account
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/v1/users/me", tokA, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("deleted account profile status = %d, want 404", resp.StatusCode)
	}
}

func mustDevID(t *testing.T, srv *httptest.Server, tokDev string) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/v1/users/me", tokDev, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dev profile status = %d", resp.StatusCode)
	}
	return body["id"].(string)
}
