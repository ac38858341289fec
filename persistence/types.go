package persistence

import (
	"errors"
	"fmt"

	"github.com/parlorchat/parlor/config"
	"github.com/parlorchat/parlor/types"
)

// ErrNotFound is returned by lookups when no record exists, regardless of
// the backend.
var ErrNotFound = errors.New("not found")

// Store is the durable-store contract of the session core. Every method may
// fail; callers log and continue on the volatile path.
type Store interface {
	FindUserByCode(code string) (*types.User, error)
	UpsertUser(user types.User) error
	Users() ([]*types.User, error)
	DeleteUser(code string) error

	// AppendMessage stores the message and returns its durable id.
	AppendMessage(msg types.Message) (string, error)
	// MessagesByRoom returns the newest limit messages of a room in
	// insertion order, oldest first. limit <= 0 means no limit.
	MessagesByRoom(roomId string, limit int) ([]*types.Message, error)
	DeleteMessage(id, roomId string) error
	UpsertReaction(messageId, emoji string, reactors []string) error

	CreatePrivateRoom(room types.Room) error
	PrivateRooms() ([]*types.Room, error)
	FindPrivateRoomByNameAndPassword(name, password string) (*types.Room, error)
	DeleteRoom(id string) error

	CreateFriendRequest(req types.FriendRequest) error
	UpdateFriendRequestStatus(id, status string) error
	// AddFriendLink records the symmetric link in both users' durable
	// friend sets.
	AddFriendLink(a, b string) error

	Close() error
}

// NewStore creates the store configured in cfg. A nil store (with nil
// error) means no persistence is configured and the core runs volatile-only.
func NewStore(cfg *config.Config) (Store, error) {
	switch cfg.PersistenceConfig.Type {
	case "":
		return nil, nil
	case "buntdb":
		return NewBuntStore(cfg)
	case "sqlite", "postgres":
		return NewGormStore(cfg)
	}
	return nil, fmt.Errorf("unknown persistence type %q", cfg.PersistenceConfig.Type)
}
