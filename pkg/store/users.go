package store

import (
	"encoding/json"
	"errors"
	"sort"

	"github.com/cockroachdb/pebble"

	"relay/pkg/errs"
	"relay/pkg/logger"
	"relay/pkg/models"
)

// CreateUser writes a new account plus its phone and username indexes in
// one batch. Callers hold the registration lock so uniqueness checks and
// the write are not interleaved.
func CreateUser(u models.User) error {
	if err := ensureOpen(); err != nil {
		return err
	}
	data, err := json.Marshal(u)
	if err != nil {
		return errs.Wrap(errs.Internal, "encode user", err)
	}
	b := db.NewBatch()
	defer b.Close()
	if err := b.Set([]byte(userKey(u.ID)), data, nil); err != nil {
		return err
	}
	if err := b.Set([]byte(phoneKey(u.Phone)), []byte(u.ID), nil); err != nil {
		return err
	}
	if err := b.Set([]byte(usernameKey(u.Username)), []byte(u.ID), nil); err != nil {
		return err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return err
	}
	logger.Info("user_created", "user", u.ID)
	return nil
}

// SaveUser overwrites an existing account record. Index updates (username
// changes) are the caller's responsibility via RenameUsername.
func SaveUser(u models.User) error {
	if err := ensureOpen(); err != nil {
		return err
	}
	data, err := json.Marshal(u)
	if err != nil {
		return errs.Wrap(errs.Internal, "encode user", err)
	}
	return db.Set([]byte(userKey(u.ID)), data, pebble.Sync)
}

// RenameUsername swaps the username index from old to new together with
// the updated account record, atomically.
func RenameUsername(u models.User, oldName string) error {
	if err := ensureOpen(); err != nil {
		return err
	}
	data, err := json.Marshal(u)
	if err != nil {
		return errs.Wrap(errs.Internal, "encode user", err)
	}
	b := db.NewBatch()
	defer b.Close()
	if oldName != "" && oldName != u.Username {
		if err := b.Delete([]byte(usernameKey(oldName)), nil); err != nil {
			return err
		}
	}
	if err := b.Set([]byte(usernameKey(u.Username)), []byte(u.ID), nil); err != nil {
		return err
	}
	if err := b.Set([]byte(userKey(u.ID)), data, nil); err != nil {
		return err
	}
	return b.Commit(pebble.Sync)
}

// GetUser loads an account by id.
func GetUser(id string) (models.User, error) {
	var u models.User
	if err := ensureOpen(); err != nil {
		return u, err
	}
	val, closer, err := db.Get([]byte(userKey(id)))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return u, errs.E(errs.NotFound, "user not found")
		}
		return u, err
	}
	defer closer.Close()
	if err := json.Unmarshal(val, &u); err != nil {
		return u, errs.Wrap(errs.Internal, "decode user", err)
	}
	return u, nil
}

// GetUserByPhone resolves a phone number to the full account record.
func GetUserByPhone(phone string) (models.User, error) {
	var u models.User
	if err := ensureOpen(); err != nil {
		return u, err
	}
	val, closer, err := db.Get([]byte(phoneKey(phone)))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return u, errs.E(errs.NotFound, "user not found")
		}
		return u, err
	}
	id := string(val)
	closer.Close()
	return GetUser(id)
}

// LookupUsername reports whether a username is taken and by whom.
func LookupUsername(name string) (string, bool, error) {
	if err := ensureOpen(); err != nil {
		return "", false, err
	}
	val, closer, err := db.Get([]byte(usernameKey(name)))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	defer closer.Close()
	return string(val), true, nil
}

// ListUsers returns every account ordered by creation time ascending.
func ListUsers() ([]models.User, error) {
	if err := ensureOpen(); err != nil {
		return nil, err
	}
	prefix := "user:"
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.User
	for iter.First(); iter.Valid(); iter.Next() {
		var u models.User
		if err := json.Unmarshal(iter.Value(), &u); err != nil {
			logger.Warn("skip_bad_user_record", "key", string(iter.Key()))
			continue
		}
		out = append(out, u)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt == out[j].CreatedAt {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt < out[j].CreatedAt
	})
	return out, nil
}

// DeleteUserCascade removes an account, its indexes, every chat it
// participates in and all messages in those chats, in one atomic batch.
func DeleteUserCascade(id string) error {
	if err := ensureOpen(); err != nil {
		return err
	}
	u, err := GetUser(id)
	if err != nil {
		return err
	}
	chats, err := ListUserChats(id)
	if err != nil {
		return err
	}
	b := db.NewBatch()
	defer b.Close()
	for _, c := range chats {
		if err := deleteChatInBatch(b, c); err != nil {
			return err
		}
	}
	if err := b.Delete([]byte(phoneKey(u.Phone)), nil); err != nil {
		return err
	}
	if err := b.Delete([]byte(usernameKey(u.Username)), nil); err != nil {
		return err
	}
	if err := b.Delete([]byte(userKey(id)), nil); err != nil {
		return err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return err
	}
	logger.Info("user_deleted", "user", id, "chats", len(chats))
	return nil
}
