// Package accounts implements registration, authentication, profiles and
// presence on top of the store.
package accounts

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"relay/pkg/errs"
	"relay/pkg/logger"
	"relay/pkg/models"
	"relay/pkg/store"
	"relay/pkg/telemetry"
	"relay/pkg/utils"
	"relay/pkg/validation"
)

// regMu serializes registrations so phone and username uniqueness checks
// cannot race with the subsequent write.
var regMu sync.Mutex

var (
	devPhone    string
	devPassword string
)

// SetDeveloperCred installs the privileged credential pair. Registering
// with exactly this phone and password yields the developer account.
func SetDeveloperCred(phone, password string) {
	devPhone = strings.TrimSpace(phone)
	devPassword = password
}

// Register creates a new account. The phone must be unused; the initial
// username is derived from the phone and uniquified if taken. New
// accounts start online.
func Register(phone, password string) (models.User, error) {
	var u models.User
	phone = strings.TrimSpace(phone)
	if err := validation.ValidatePhone(phone); err != nil {
		return u, err
	}
	if password == "" {
		return u, errs.E(errs.Validation, "password is required")
	}

	isDev := false
	if devPhone != "" && phone == devPhone {
		if password != devPassword {
			// the developer phone is reserved for the exact pair
			return u, errs.E(errs.NotAuthorized, "phone number is reserved")
		}
		isDev = true
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return u, errs.Wrap(errs.Internal, "hash password", err)
	}

	regMu.Lock()
	defer regMu.Unlock()

	if _, err := store.GetUserByPhone(phone); err == nil {
		return u, errs.E(errs.Conflict, "phone already registered")
	} else if !errs.IsNotFound(err) {
		return u, err
	}

	username, err := pickUsername(validation.DefaultUsername(phone))
	if err != nil {
		return u, err
	}

	now := time.Now().UTC()
	u = models.User{
		ID:           utils.GenUserID(),
		Phone:        phone,
		PasswordHash: string(hash),
		FirstName:    "User",
		Username:     username,
		IsDeveloper:  isDev,
		IsOnline:     true,
		LastSeen:     now.UnixNano(),
		CreatedAt:    now.UnixNano(),
	}
	if err := store.CreateUser(u); err != nil {
		return u, err
	}
	telemetry.Registrations.Inc()
	logger.Info("registered", "user", u.ID, "developer", isDev)
	return u, nil
}

// pickUsername returns base if free, otherwise base2, base3, ... Caller
// holds regMu.
func pickUsername(base string) (string, error) {
	name := base
	for i := 2; ; i++ {
		_, taken, err := store.LookupUsername(name)
		if err != nil {
			return "", err
		}
		if !taken {
			return name, nil
		}
		name = fmt.Sprintf("%s%d", base, i)
	}
}

// Authenticate verifies a phone and password pair. Failures are reported
// uniformly so callers cannot probe which part was wrong. A successful
// login marks the user online.
func Authenticate(phone, password string) (models.User, error) {
	var u models.User
	u, err := store.GetUserByPhone(strings.TrimSpace(phone))
	if err != nil {
		if errs.IsNotFound(err) {
			return u, errs.E(errs.Unauthenticated, "invalid credentials")
		}
		return u, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return u, errs.E(errs.Unauthenticated, "invalid credentials")
	}
	u.IsOnline = true
	u.LastSeen = time.Now().UTC().UnixNano()
	if err := store.SaveUser(u); err != nil {
		return u, err
	}
	telemetry.Logins.Inc()
	logger.Info("login", "user", u.ID)
	return u, nil
}

// Get loads an account by id.
func Get(id string) (models.User, error) {
	return store.GetUser(id)
}

// UpdateProfile changes first name, last name and username. Usernames are
// normalized and must be unique; re-saving your own username is not a
// collision.
func UpdateProfile(id, firstName, lastName, username string) (models.User, error) {
	var u models.User
	if err := validation.ValidateProfile(firstName); err != nil {
		return u, err
	}
	username = validation.NormalizeUsername(username)
	if err := validation.ValidateUsername(username); err != nil {
		return u, err
	}

	regMu.Lock()
	defer regMu.Unlock()

	u, err := store.GetUser(id)
	if err != nil {
		return u, err
	}
	if owner, taken, err := store.LookupUsername(username); err != nil {
		return u, err
	} else if taken && owner != id {
		return u, errs.E(errs.Conflict, "username already taken")
	}

	oldName := u.Username
	u.FirstName = strings.TrimSpace(firstName)
	u.LastName = strings.TrimSpace(lastName)
	u.Username = username
	if username != oldName {
		err = store.RenameUsername(u, oldName)
	} else {
		err = store.SaveUser(u)
	}
	if err != nil {
		return u, err
	}
	return u, nil
}

// SetOnline flips a user's presence. Going offline stamps last seen.
func SetOnline(id string, online bool) (models.User, error) {
	u, err := store.GetUser(id)
	if err != nil {
		return u, err
	}
	u.IsOnline = online
	u.LastSeen = time.Now().UTC().UnixNano()
	if err := store.SaveUser(u); err != nil {
		return u, err
	}
	return u, nil
}

// Heartbeat refreshes a user's last-seen stamp and keeps them online.
func Heartbeat(id string) error {
	u, err := store.GetUser(id)
	if err != nil {
		return err
	}
	u.IsOnline = true
	u.LastSeen = time.Now().UTC().UnixNano()
	return store.SaveUser(u)
}

// ResolveByPhone finds another user by phone number for starting a chat.
// Looking yourself up reports not found, same as an unknown number.
func ResolveByPhone(selfID, phone string) (models.PublicUser, error) {
	var p models.PublicUser
	u, err := store.GetUserByPhone(strings.TrimSpace(phone))
	if err != nil {
		return p, err
	}
	if u.ID == selfID {
		return p, errs.E(errs.NotFound, "user not found")
	}
	return u.Public(), nil
}

// IsContact reports whether the two users already share a chat.
func IsContact(a, b string) (bool, error) {
	return store.PairExists(a, b)
}
