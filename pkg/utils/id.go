package utils

import (
	"crypto/rand"
	"sync"

	"github.com/oklog/ulid/v2"
)

// IDs are monotonic ULIDs: lexicographic order matches generation order,
// which gives messages a stable tie-break when timestamps collide.
var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

func newULID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Now(), entropy).String()
}

// GenUserID returns a new account id.
func GenUserID() string { return "usr_" + newULID() }

// GenChatID returns a new chat id.
func GenChatID() string { return "chat_" + newULID() }

// GenMsgID returns a new message id.
func GenMsgID() string { return "msg_" + newULID() }
