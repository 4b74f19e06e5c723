package models

// User is the stored account record. PasswordHash is credential material:
// it is persisted and visible to the admin listing only; every other caller
// gets the Public() projection.
type User struct {
	ID           string `json:"id"`
	Phone        string `json:"phone"`
	PasswordHash string `json:"password_hash,omitempty"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username"`
	// IsDeveloper is set once at registration when the configured developer
	// credential pair matches; immutable afterwards.
	IsDeveloper bool `json:"is_developer,omitempty"`
	IsBlocked   bool `json:"is_blocked,omitempty"`
	IsOnline    bool `json:"is_online,omitempty"`
	// LastSeen/CreatedAt are unix nanoseconds (UTC).
	LastSeen  int64 `json:"last_seen,omitempty"`
	CreatedAt int64 `json:"created_at"`
}

// PublicUser is the profile shape returned to non-admin callers.
type PublicUser struct {
	ID          string `json:"id"`
	Phone       string `json:"phone"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name,omitempty"`
	Username    string `json:"username"`
	IsDeveloper bool   `json:"is_developer,omitempty"`
	IsBlocked   bool   `json:"is_blocked,omitempty"`
	IsOnline    bool   `json:"is_online,omitempty"`
	LastSeen    int64  `json:"last_seen,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}

// Public strips credential material from the record.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:          u.ID,
		Phone:       u.Phone,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Username:    u.Username,
		IsDeveloper: u.IsDeveloper,
		IsBlocked:   u.IsBlocked,
		IsOnline:    u.IsOnline,
		LastSeen:    u.LastSeen,
		CreatedAt:   u.CreatedAt,
	}
}
