package presence

import (
	"sync"
	"time"
)

// Typing state is deliberately in-memory: signals live for a couple of
// seconds and losing them on restart is harmless.

type typingKey struct {
	chat string
	user string
}

var (
	mu     sync.Mutex
	window = 2 * time.Second
	typing = map[typingKey]time.Time{}
)

// SetWindow changes how long a typing signal stays live after the last
// refresh.
func SetWindow(d time.Duration) {
	if d <= 0 {
		return
	}
	mu.Lock()
	window = d
	mu.Unlock()
}

// MarkTyping records that a user is typing in a chat. Repeated calls
// refresh the deadline rather than extending it additively.
func MarkTyping(chatID, userID string) {
	mu.Lock()
	typing[typingKey{chat: chatID, user: userID}] = time.Now().Add(window)
	mu.Unlock()
}

// IsTyping reports whether a user's typing signal is still live, expiring
// it lazily when stale.
func IsTyping(chatID, userID string) bool {
	k := typingKey{chat: chatID, user: userID}
	mu.Lock()
	defer mu.Unlock()
	dl, ok := typing[k]
	if !ok {
		return false
	}
	if time.Now().After(dl) {
		delete(typing, k)
		return false
	}
	return true
}

// ClearChat drops any typing state for a chat, used when the chat is
// deleted.
func ClearChat(chatID string) {
	mu.Lock()
	defer mu.Unlock()
	for k := range typing {
		if k.chat == chatID {
			delete(typing, k)
		}
	}
}

// Sweep removes expired typing entries and returns how many were dropped.
func Sweep() int {
	now := time.Now()
	mu.Lock()
	defer mu.Unlock()
	n := 0
	for k, dl := range typing {
		if now.After(dl) {
			delete(typing, k)
			n++
		}
	}
	return n
}

// Reset drops all typing state. Test helper.
func Reset() {
	mu.Lock()
	typing = map[typingKey]time.Time{}
	mu.Unlock()
}
