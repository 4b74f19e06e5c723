package store

import (
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/cockroachdb/pebble"

	"relay/pkg/errs"
	"relay/pkg/logger"
	"relay/pkg/models"
	"relay/pkg/utils"
)

// GetOrCreateChat returns the chat between two users, creating it if
// absent. Creation runs under a per-pair lock so concurrent opens from
// both sides converge on one chat. Returns created=true when a new chat
// was written.
func GetOrCreateChat(a, b string) (models.Chat, bool, error) {
	var c models.Chat
	if err := ensureOpen(); err != nil {
		return c, false, err
	}
	lo, hi := a, b
	if hi < lo {
		lo, hi = hi, lo
	}
	mu := lockPair(lo, hi)
	mu.Lock()
	defer mu.Unlock()

	if id, ok, err := lookupPair(lo, hi); err != nil {
		return c, false, err
	} else if ok {
		existing, err := GetChat(id)
		return existing, false, err
	}

	c = models.Chat{
		ID:        utils.GenChatID(),
		UserA:     lo,
		UserB:     hi,
		CreatedTS: time.Now().UTC().UnixNano(),
	}
	data, err := json.Marshal(c)
	if err != nil {
		return c, false, errs.Wrap(errs.Internal, "encode chat", err)
	}
	batch := db.NewBatch()
	defer batch.Close()
	if err := batch.Set([]byte(chatMetaKey(c.ID)), data, nil); err != nil {
		return c, false, err
	}
	if err := batch.Set([]byte(pairKey(lo, hi)), []byte(c.ID), nil); err != nil {
		return c, false, err
	}
	if err := batch.Set([]byte(chatUserKey(lo, c.ID)), nil, nil); err != nil {
		return c, false, err
	}
	if err := batch.Set([]byte(chatUserKey(hi, c.ID)), nil, nil); err != nil {
		return c, false, err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return c, false, err
	}
	logger.Info("chat_created", "chat", c.ID)
	return c, true, nil
}

func lookupPair(lo, hi string) (string, bool, error) {
	val, closer, err := db.Get([]byte(pairKey(lo, hi)))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	defer closer.Close()
	return string(val), true, nil
}

// PairExists reports whether a chat already links the two users.
func PairExists(a, b string) (bool, error) {
	if err := ensureOpen(); err != nil {
		return false, err
	}
	lo, hi := a, b
	if hi < lo {
		lo, hi = hi, lo
	}
	_, ok, err := lookupPair(lo, hi)
	return ok, err
}

// GetChat loads a chat by id.
func GetChat(id string) (models.Chat, error) {
	var c models.Chat
	if err := ensureOpen(); err != nil {
		return c, err
	}
	val, closer, err := db.Get([]byte(chatMetaKey(id)))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return c, errs.E(errs.NotFound, "chat not found")
		}
		return c, err
	}
	defer closer.Close()
	if err := json.Unmarshal(val, &c); err != nil {
		return c, errs.Wrap(errs.Internal, "decode chat", err)
	}
	return c, nil
}

// ListUserChats returns the chats a user participates in, most recent
// activity first. Chats without messages sort after active ones, by
// creation time descending.
func ListUserChats(uid string) ([]models.Chat, error) {
	if err := ensureOpen(); err != nil {
		return nil, err
	}
	prefix := chatUserPrefix(uid)
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Chat
	for iter.First(); iter.Valid(); iter.Next() {
		chatID := string(iter.Key()[len(prefix):])
		c, err := GetChat(chatID)
		if err != nil {
			if errs.IsNotFound(err) {
				logger.Warn("dangling_chat_index", "user", uid, "chat", chatID)
				continue
			}
			return nil, err
		}
		out = append(out, c)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if (a.LastMsgTS > 0) != (b.LastMsgTS > 0) {
			return a.LastMsgTS > 0
		}
		if a.LastMsgTS != b.LastMsgTS {
			return a.LastMsgTS > b.LastMsgTS
		}
		if a.CreatedTS != b.CreatedTS {
			return a.CreatedTS > b.CreatedTS
		}
		// ULIDs are monotonic, so id order matches creation order
		return a.ID > b.ID
	})
	return out, nil
}

// DeleteChatCascade removes a chat, its pair and membership indexes, and
// all of its messages in one atomic batch. Deletion is symmetric: the
// chat disappears for both participants.
func DeleteChatCascade(id string) error {
	if err := ensureOpen(); err != nil {
		return err
	}
	c, err := GetChat(id)
	if err != nil {
		return err
	}
	b := db.NewBatch()
	defer b.Close()
	if err := deleteChatInBatch(b, c); err != nil {
		return err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return err
	}
	logger.Info("chat_deleted", "chat", id)
	return nil
}

func deleteChatInBatch(b *pebble.Batch, c models.Chat) error {
	prefix := chatMsgPrefix(c.ID)
	if err := b.DeleteRange([]byte(prefix), prefixUpperBound(prefix), nil); err != nil {
		return err
	}
	if err := b.Delete([]byte(chatMetaKey(c.ID)), nil); err != nil {
		return err
	}
	if err := b.Delete([]byte(pairKey(c.UserA, c.UserB)), nil); err != nil {
		return err
	}
	if err := b.Delete([]byte(chatUserKey(c.UserA, c.ID)), nil); err != nil {
		return err
	}
	return b.Delete([]byte(chatUserKey(c.UserB, c.ID)), nil)
}
