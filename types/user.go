package types

import "time"

// User is the durable profile behind a connection. The friend code is the
// public handle, unique across all users, and doubles as the primary key in
// the store.
type User struct {
	Code        string     `json:"friendCode" gorm:"primaryKey"`
	Name        string     `json:"name"`
	Avatar      string     `json:"avatar"`
	AvatarTheme string     `json:"avatarTheme"`
	Country     string     `json:"country"`
	Online      bool       `json:"online" gorm:"-"`
	LastSeen    time.Time  `json:"lastSeen"`
	Friends     StringList `json:"friends"` // friend codes, symmetric
	Admin       bool       `json:"admin"`
	Dev         bool       `json:"dev"`
}

// HasFriend reports whether code is already in the friend set.
func (u *User) HasFriend(code string) bool {
	for _, c := range u.Friends {
		if c == code {
			return true
		}
	}
	return false
}

// AddFriend appends code to the friend set, idempotently.
func (u *User) AddFriend(code string) {
	if !u.HasFriend(code) {
		u.Friends = append(u.Friends, code)
	}
}

// Privileged reports whether the user may act on messages they did not
// author.
func (u *User) Privileged() bool {
	return u.Admin || u.Dev
}

// FriendInfo is one entry of a friend listing: the durable profile fields
// merged with the current online status.
type FriendInfo struct {
	Code   string `json:"friendCode"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Online bool   `json:"online"`
}
