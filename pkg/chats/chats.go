// Package chats implements 1:1 conversations: opening, listing, deleting
// and the append-only message flow between two participants.
package chats

import (
	"relay/pkg/errs"
	"relay/pkg/models"
	"relay/pkg/presence"
	"relay/pkg/store"
	"relay/pkg/validation"
)

// GetOrCreate opens the chat between self and peer, creating it on first
// contact. Opening a chat with yourself is invalid, and either side being
// blocked freezes the pair.
func GetOrCreate(selfID, peerID string) (models.Chat, bool, error) {
	var c models.Chat
	if selfID == peerID {
		return c, false, errs.E(errs.Validation, "cannot chat with yourself")
	}
	self, err := store.GetUser(selfID)
	if err != nil {
		return c, false, err
	}
	peer, err := store.GetUser(peerID)
	if err != nil {
		return c, false, err
	}
	if self.IsBlocked || peer.IsBlocked {
		return c, false, errs.E(errs.StateConflict, "account is blocked")
	}
	return store.GetOrCreateChat(selfID, peerID)
}

// List returns the caller's chats enriched with the peer's public profile
// and live typing state, most recent activity first.
func List(selfID string) ([]models.ChatSummary, error) {
	cs, err := store.ListUserChats(selfID)
	if err != nil {
		return nil, err
	}
	out := make([]models.ChatSummary, 0, len(cs))
	for _, c := range cs {
		peerID := c.Peer(selfID)
		peer, err := store.GetUser(peerID)
		if err != nil {
			if errs.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, models.ChatSummary{
			Chat:       c,
			Peer:       peer.Public(),
			PeerTyping: presence.IsTyping(c.ID, peerID),
		})
	}
	return out, nil
}

// Get loads a chat the caller participates in.
func Get(selfID, chatID string) (models.Chat, error) {
	c, err := store.GetChat(chatID)
	if err != nil {
		return c, err
	}
	if !c.HasParticipant(selfID) {
		return c, errs.E(errs.NotAuthorized, "not a participant")
	}
	return c, nil
}

// Delete removes a chat and its messages for both participants. Only a
// participant may delete it.
func Delete(selfID, chatID string) error {
	if _, err := Get(selfID, chatID); err != nil {
		return err
	}
	if err := store.DeleteChatCascade(chatID); err != nil {
		return err
	}
	presence.ClearChat(chatID)
	return nil
}

// Append adds a message to a chat. The text is trimmed and must be
// non-empty; a blocked participant on either side freezes the chat.
func Append(selfID, chatID, text string) (models.Message, error) {
	var m models.Message
	body, err := validation.MessageText(text)
	if err != nil {
		return m, err
	}
	c, err := Get(selfID, chatID)
	if err != nil {
		return m, err
	}
	self, err := store.GetUser(selfID)
	if err != nil {
		return m, err
	}
	peer, err := store.GetUser(c.Peer(selfID))
	if err != nil {
		return m, err
	}
	if self.IsBlocked || peer.IsBlocked {
		return m, errs.E(errs.StateConflict, "account is blocked")
	}
	m = models.Message{
		Sender: selfID,
		Text:   body,
	}
	return store.AppendMessage(c, m)
}

// Messages returns a chat's history oldest-first for any participant,
// blocked or not. A positive limit keeps only the newest messages.
func Messages(selfID, chatID string, limit int) ([]models.Message, error) {
	if _, err := Get(selfID, chatID); err != nil {
		return nil, err
	}
	return store.ListMessages(chatID, limit)
}

// PeerIsTyping reports whether the other participant of c is typing.
func PeerIsTyping(selfID string, c models.Chat) bool {
	return presence.IsTyping(c.ID, c.Peer(selfID))
}

// MarkTyping records a typing signal from a participant.
func MarkTyping(selfID, chatID string) (models.Chat, error) {
	c, err := Get(selfID, chatID)
	if err != nil {
		return c, err
	}
	presence.MarkTyping(chatID, selfID)
	return c, nil
}
