package store

import (
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"relay/pkg/logger"
)

var (
	db     *pebble.DB
	dbPath string
)

// seq disambiguates message keys when multiple messages share the same
// nanosecond timestamp.
var seq uint64

// chatMu serializes appends per chat so timestamps stay non-decreasing
// within a single chat's log.
var chatMu sync.Map // chatID -> *sync.Mutex

// lastTS tracks the last timestamp assigned per chat.
var (
	lastTSMu sync.Mutex
	lastTS   = map[string]int64{}
)

// pairMu serializes chat creation per participant pair so concurrent
// opens converge on a single chat.
var pairMu sync.Map // "lo|hi" -> *sync.Mutex

// Open opens (or creates) a Pebble database at the given path and keeps
// a global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_pebble_db", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return err
	}
	dbPath = path
	logger.Info("pebble_opened", "path", path)
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

// Path returns the directory the store was opened at.
func Path() string {
	return dbPath
}

func ensureOpen() error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	return nil
}

func lockChat(chatID string) *sync.Mutex {
	v, _ := chatMu.LoadOrStore(chatID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func lockPair(lo, hi string) *sync.Mutex {
	v, _ := pairMu.LoadOrStore(lo+"|"+hi, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Key layout. All records are JSON values under prefixed string keys:
//
//	user:<id>                      account record
//	phone:<phone>                  phone -> user id
//	username:<name>                username -> user id
//	chat:<id>:meta                 chat record
//	chat:<id>:msg:<ts>-<seq>       message, ts zero-padded for sort order
//	pair:<lo>:<hi>                 sorted participant pair -> chat id
//	chatuser:<uid>:<chatid>        membership index per user
func userKey(id string) string       { return "user:" + id }
func phoneKey(phone string) string   { return "phone:" + phone }
func usernameKey(name string) string { return "username:" + name }
func chatMetaKey(id string) string   { return "chat:" + id + ":meta" }
func chatMsgPrefix(id string) string { return "chat:" + id + ":msg:" }
func pairKey(lo, hi string) string   { return "pair:" + lo + ":" + hi }
func chatUserKey(uid, chatID string) string {
	return "chatuser:" + uid + ":" + chatID
}
func chatUserPrefix(uid string) string { return "chatuser:" + uid + ":" }

// prefixUpperBound returns the smallest key greater than every key with
// the given prefix.
func prefixUpperBound(prefix string) []byte {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return b[:i+1]
		}
	}
	return nil
}
