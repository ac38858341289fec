package types

// Room is either a fixed public room seeded at boot or a private room
// created at runtime. Membership and history are volatile and live in the
// session core; only the private-room metadata is persisted.
//
// Private room passwords are stored and compared in plaintext, and two
// private rooms may share a name with different passwords.
type Room struct {
	Id       string `json:"id" gorm:"primaryKey"`
	Name     string `json:"name"`
	Private  bool   `json:"private"`
	Password string `json:"-"`
}
