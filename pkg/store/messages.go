package store

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"

	"relay/pkg/errs"
	"relay/pkg/models"
	"relay/pkg/telemetry"
	"relay/pkg/utils"
)

// AppendMessage stores a message at the tail of a chat's log and bumps
// the chat's last-activity timestamp in the same batch. Appends to one
// chat are serialized and timestamps forced non-decreasing, so the log
// order is a total order even when the clock steps backwards. The
// message id is assigned here, under the chat lock: monotonic ULIDs
// minted in append order keep ids ascending at equal timestamps.
func AppendMessage(chat models.Chat, msg models.Message) (models.Message, error) {
	if err := ensureOpen(); err != nil {
		return msg, err
	}
	mu := lockChat(chat.ID)
	mu.Lock()
	defer mu.Unlock()

	msg.ID = utils.GenMsgID()
	ts := time.Now().UTC().UnixNano()
	lastTSMu.Lock()
	if prev := lastTS[chat.ID]; ts < prev {
		ts = prev
	}
	lastTS[chat.ID] = ts
	lastTSMu.Unlock()
	msg.TS = ts
	msg.Chat = chat.ID

	s := atomic.AddUint64(&seq, 1)
	key := fmt.Sprintf("%s%020d-%06d", chatMsgPrefix(chat.ID), ts, s)

	data, err := json.Marshal(msg)
	if err != nil {
		return msg, errs.Wrap(errs.Internal, "encode message", err)
	}
	chat.LastMsgTS = ts
	chatData, err := json.Marshal(chat)
	if err != nil {
		return msg, errs.Wrap(errs.Internal, "encode chat", err)
	}

	b := db.NewBatch()
	defer b.Close()
	if err := b.Set([]byte(key), data, nil); err != nil {
		return msg, err
	}
	if err := b.Set([]byte(chatMetaKey(chat.ID)), chatData, nil); err != nil {
		return msg, err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return msg, err
	}
	telemetry.MessagesAppended.Inc()
	return msg, nil
}

// ListMessages returns a chat's messages oldest-first. A positive limit
// keeps only the newest limit messages, still oldest-first.
func ListMessages(chatID string, limit int) ([]models.Message, error) {
	if err := ensureOpen(); err != nil {
		return nil, err
	}
	prefix := chatMsgPrefix(chatID)
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Message
	for iter.First(); iter.Valid(); iter.Next() {
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}
