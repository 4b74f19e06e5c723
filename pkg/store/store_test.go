package store

import (
	"sync"
	"testing"
	"time"

	"relay/pkg/errs"
	"relay/pkg/models"
	"relay/pkg/utils"
)

func openTestStore(t *testing.T) {
	t.Helper()
	if err := Open(t.TempDir()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = Close() })
}

func mkUser(t *testing.T, phone, username string) models.User {
	t.Helper()
	u := models.User{
		ID:        utils.GenUserID(),
		Phone:     phone,
		Username:  username,
		FirstName: "User",
		CreatedAt: time.Now().UTC().UnixNano(),
	}
	if err := CreateUser(u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestUserRoundTripAndIndexes(t *testing.T) {
	openTestStore(t)
	u := mkUser(t, "+15550000001", "user0001")

	got, err := GetUser(u.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.Phone != u.Phone {
		t.Fatalf("phone = %q, want %q", got.Phone, u.Phone)
	}

	byPhone, err := GetUserByPhone(u.Phone)
	if err != nil || byPhone.ID != u.ID {
		t.Fatalf("get by phone: %v (id %q)", err, byPhone.ID)
	}

	owner, taken, err := LookupUsername(u.Username)
	if err != nil || !taken || owner != u.ID {
		t.Fatalf("lookup username: owner=%q taken=%v err=%v", owner, taken, err)
	}

	if _, err := GetUser("usr_missing"); !errs.IsNotFound(err) {
		t.Fatalf("missing user error = %v, want not found", err)
	}
}

func TestConcurrentGetOrCreateChatConverges(t *testing.T) {
	openTestStore(t)
	a := mkUser(t, "+15550000002", "user0002")
	b := mkUser(t, "+15550000003", "user0003")

	const n = 16
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// half the callers pass the pair reversed
			x, y := a.ID, b.ID
			if i%2 == 1 {
				x, y = y, x
			}
			c, _, err := GetOrCreateChat(x, y)
			if err != nil {
				t.Errorf("get or create: %v", err)
				return
			}
			ids[i] = c.ID
		}(i)
	}
	wg.Wait()
	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatalf("concurrent opens diverged: %q vs %q", id, ids[0])
		}
	}
}

func TestConcurrentAppendTotalOrder(t *testing.T) {
	openTestStore(t)
	a := mkUser(t, "+15550000004", "user0004")
	b := mkUser(t, "+15550000005", "user0005")
	c, _, err := GetOrCreateChat(a.ID, b.ID)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m := models.Message{Sender: a.ID, Text: "hi"}
			if _, err := AppendMessage(c, m); err != nil {
				t.Errorf("append: %v", err)
			}
		}()
	}
	wg.Wait()

	msgs, err := ListMessages(c.ID, 0)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != n {
		t.Fatalf("got %d messages, want %d", len(msgs), n)
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].TS < msgs[i-1].TS {
			t.Fatalf("timestamps regressed at %d: %d < %d", i, msgs[i].TS, msgs[i-1].TS)
		}
		if msgs[i].TS == msgs[i-1].TS && msgs[i].ID <= msgs[i-1].ID {
			t.Fatalf("ids regressed at equal ts %d: %q after %q", msgs[i].TS, msgs[i].ID, msgs[i-1].ID)
		}
	}

	got, err := GetChat(c.ID)
	if err != nil {
		t.Fatalf("get chat: %v", err)
	}
	if got.LastMsgTS != msgs[len(msgs)-1].TS {
		t.Fatalf("chat LastMsgTS = %d, want %d", got.LastMsgTS, msgs[len(msgs)-1].TS)
	}
}

func TestEqualTimestampIDsFollowAppendOrder(t *testing.T) {
	openTestStore(t)
	a := mkUser(t, "+15550000016", "user0016")
	b := mkUser(t, "+15550000017", "user0017")
	c, _, err := GetOrCreateChat(a.ID, b.ID)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}

	// force the clamp: a last timestamp far in the future makes every
	// append land on the same tick, as after a backwards clock step
	pinned := time.Now().UTC().Add(time.Hour).UnixNano()
	lastTSMu.Lock()
	lastTS[c.ID] = pinned
	lastTSMu.Unlock()

	for i := 0; i < 5; i++ {
		if _, err := AppendMessage(c, models.Message{Sender: a.ID, Text: "hi"}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	msgs, err := ListMessages(c.ID, 0)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 5 {
		t.Fatalf("got %d messages, want 5", len(msgs))
	}
	for i, m := range msgs {
		if m.TS != pinned {
			t.Fatalf("message %d ts = %d, want pinned %d", i, m.TS, pinned)
		}
		if i > 0 && msgs[i].ID <= msgs[i-1].ID {
			t.Fatalf("ids out of order at equal ts: %q after %q", msgs[i].ID, msgs[i-1].ID)
		}
	}
}

func TestListMessagesLimitKeepsNewest(t *testing.T) {
	openTestStore(t)
	a := mkUser(t, "+15550000006", "user0006")
	b := mkUser(t, "+15550000007", "user0007")
	c, _, err := GetOrCreateChat(a.ID, b.ID)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	var last models.Message
	for i := 0; i < 5; i++ {
		last, err = AppendMessage(c, models.Message{Sender: a.ID, Text: "m"})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		c, _ = GetChat(c.ID)
	}
	msgs, err := ListMessages(c.ID, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[1].ID != last.ID {
		t.Fatalf("limit did not keep the newest message")
	}
}

func TestDeleteChatCascade(t *testing.T) {
	openTestStore(t)
	a := mkUser(t, "+15550000008", "user0008")
	b := mkUser(t, "+15550000009", "user0009")
	c, _, err := GetOrCreateChat(a.ID, b.ID)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	if _, err := AppendMessage(c, models.Message{Sender: a.ID, Text: "hi"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := DeleteChatCascade(c.ID); err != nil {
		t.Fatalf("delete chat: %v", err)
	}
	if _, err := GetChat(c.ID); !errs.IsNotFound(err) {
		t.Fatalf("chat still present after delete: %v", err)
	}
	msgs, err := ListMessages(c.ID, 0)
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("messages survived delete: %d", len(msgs))
	}
	ok, err := PairExists(a.ID, b.ID)
	if err != nil || ok {
		t.Fatalf("pair index survived delete (ok=%v err=%v)", ok, err)
	}

	// recreating after delete yields a fresh chat
	c2, created, err := GetOrCreateChat(a.ID, b.ID)
	if err != nil || !created {
		t.Fatalf("recreate after delete: created=%v err=%v", created, err)
	}
	if c2.ID == c.ID {
		t.Fatal("recreated chat reused old id")
	}
}

func TestDeleteUserCascade(t *testing.T) {
	openTestStore(t)
	a := mkUser(t, "+15550000010", "user0010")
	b := mkUser(t, "+15550000011", "user0011")
	c, _, err := GetOrCreateChat(a.ID, b.ID)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	if _, err := AppendMessage(c, models.Message{Sender: b.ID, Text: "hi"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	// an unrelated pair's chat must survive the cascade untouched
	x := mkUser(t, "+15550000018", "user0018")
	y := mkUser(t, "+15550000019", "user0019")
	other, _, err := GetOrCreateChat(x.ID, y.ID)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	if _, err := AppendMessage(other, models.Message{Sender: x.ID, Text: "hey"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := DeleteUserCascade(a.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, err := GetUser(a.ID); !errs.IsNotFound(err) {
		t.Fatalf("user still present: %v", err)
	}
	if _, err := GetUserByPhone(a.Phone); !errs.IsNotFound(err) {
		t.Fatalf("phone index survived: %v", err)
	}
	// the peer's chat list no longer contains the shared chat
	bs, err := ListUserChats(b.ID)
	if err != nil {
		t.Fatalf("list peer chats: %v", err)
	}
	if len(bs) != 0 {
		t.Fatalf("peer still sees %d chats", len(bs))
	}
	if _, err := GetChat(other.ID); err != nil {
		t.Fatalf("unrelated chat lost in cascade: %v", err)
	}
	msgs, err := ListMessages(other.ID, 0)
	if err != nil {
		t.Fatalf("list unrelated messages: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("unrelated chat has %d messages, want 1", len(msgs))
	}
	xs, err := ListUserChats(x.ID)
	if err != nil || len(xs) != 1 {
		t.Fatalf("unrelated user chat list: %d chats, err=%v", len(xs), err)
	}
}

func TestListUserChatsOrdering(t *testing.T) {
	openTestStore(t)
	a := mkUser(t, "+15550000012", "user0012")
	b := mkUser(t, "+15550000013", "user0013")
	c := mkUser(t, "+15550000014", "user0014")
	d := mkUser(t, "+15550000015", "user0015")

	withMsg, _, err := GetOrCreateChat(a.ID, b.ID)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	if _, _, err := GetOrCreateChat(a.ID, c.ID); err != nil {
		t.Fatalf("create chat: %v", err)
	}
	empty2, _, err := GetOrCreateChat(a.ID, d.ID)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	if _, err := AppendMessage(withMsg, models.Message{Sender: a.ID, Text: "hi"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	out, err := ListUserChats(a.ID)
	if err != nil {
		t.Fatalf("list chats: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("got %d chats, want 3", len(out))
	}
	// active chat first, then empty chats newest-created first
	if out[0].ID != withMsg.ID {
		t.Fatalf("active chat not first: %q", out[0].ID)
	}
	if out[1].ID != empty2.ID {
		t.Fatalf("empty chats not ordered by creation desc")
	}
}
