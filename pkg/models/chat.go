package models

// Chat is the unique conversation container for an unordered pair of users.
// UserA/UserB are stored sorted (UserA < UserB) so the pair has a single
// canonical form.
type Chat struct {
	ID    string `json:"id"`
	UserA string `json:"user_a"`
	UserB string `json:"user_b"`
	// CreatedTS is unix nanoseconds; LastMsgTS is zero until the first
	// message and drives chat-list ordering afterwards.
	CreatedTS int64 `json:"created_ts"`
	LastMsgTS int64 `json:"last_msg_ts,omitempty"`
}

// HasParticipant reports whether id is one of the two chat members.
func (c Chat) HasParticipant(id string) bool {
	return id != "" && (c.UserA == id || c.UserB == id)
}

// Peer returns the other participant relative to id, or empty when id is
// not a participant.
func (c Chat) Peer(id string) string {
	switch id {
	case c.UserA:
		return c.UserB
	case c.UserB:
		return c.UserA
	}
	return ""
}

// ChatSummary is a chat enriched with the other participant's public
// profile, as returned by the chat listing.
type ChatSummary struct {
	Chat
	Peer       PublicUser `json:"peer"`
	PeerTyping bool       `json:"peer_typing,omitempty"`
}
