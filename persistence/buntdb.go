package persistence

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/parlorchat/parlor/config"
	"github.com/parlorchat/parlor/types"
	"github.com/tidwall/buntdb"
)

// Key layout:
//   user:<code>                       user record
//   msg:<roomId>:<seq>                message record, seq is a zero-padded
//                                     per-room counter so keys sort in
//                                     insertion order and never collide
//   msgseq:<roomId>                   last assigned message seq of the room
//   msgid:<id>                        durable message id -> message key
//   privroom:<id>                     private room record
//   freq:<id>                         friend request record

type BuntStore struct {
	db *buntdb.DB
	fl *flock.Flock
}

func NewBuntStore(cfg *config.Config) (Store, error) {
	fileName := cfg.PersistenceConfig.DSN
	if fileName == "" {
		return nil, nil // no or wrong configuration, ignore the store
	}
	var fl *flock.Flock
	if cfg.PersistenceConfig.FlockPath != "" {
		fl = flock.New(cfg.PersistenceConfig.FlockPath)
		locked, err := fl.TryLock()
		if err != nil {
			return nil, err
		}
		if !locked {
			return nil, fmt.Errorf("store file is locked by another process")
		}
	}
	db, err := buntdb.Open(fileName)
	if err != nil {
		if fl != nil {
			fl.Unlock()
		}
		return nil, err
	}
	return &BuntStore{db: db, fl: fl}, nil
}

func (s *BuntStore) FindUserByCode(code string) (*types.User, error) {
	user := &types.User{}
	err := s.db.View(func(tx *buntdb.Tx) error {
		val, err := tx.Get("user:" + code)
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(val), user)
	})
	if err == buntdb.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *BuntStore) UpsertUser(user types.User) error {
	if user.Code == "" {
		return fmt.Errorf("no friend code")
	}
	u, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set("user:"+user.Code, string(u), nil)
		return err
	})
}

func (s *BuntStore) Users() ([]*types.User, error) {
	users := make([]*types.User, 0)
	err := s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys("user:*", func(key, val string) bool {
			user := &types.User{}
			if err := json.Unmarshal([]byte(val), user); err == nil {
				users = append(users, user)
			}
			return true
		})
	})
	return users, err
}

func (s *BuntStore) DeleteUser(code string) error {
	err := s.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete("user:" + code)
		return err
	})
	if err == buntdb.ErrNotFound {
		return ErrNotFound
	}
	return err
}

func (s *BuntStore) AppendMessage(msg types.Message) (string, error) {
	id := uuid.NewString()
	msg.Id = id
	m, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	err = s.db.Update(func(tx *buntdb.Tx) error {
		seq := 1
		val, err := tx.Get("msgseq:" + msg.RoomId)
		if err == nil {
			prev, err := strconv.Atoi(val)
			if err != nil {
				return err
			}
			seq = prev + 1
		} else if err != buntdb.ErrNotFound {
			return err
		}
		if _, _, err := tx.Set("msgseq:"+msg.RoomId, strconv.Itoa(seq), nil); err != nil {
			return err
		}
		key := fmt.Sprintf("msg:%s:%020d", msg.RoomId, seq)
		if _, _, err := tx.Set(key, string(m), nil); err != nil {
			return err
		}
		_, _, err = tx.Set("msgid:"+id, key, nil)
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *BuntStore) MessagesByRoom(roomId string, limit int) ([]*types.Message, error) {
	messages := make([]*types.Message, 0)
	err := s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys("msg:"+roomId+":*", func(key, val string) bool {
			msg := &types.Message{}
			if err := json.Unmarshal([]byte(val), msg); err == nil {
				msg.Persisted = true
				messages = append(messages, msg)
			}
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

func (s *BuntStore) DeleteMessage(id, roomId string) error {
	err := s.db.Update(func(tx *buntdb.Tx) error {
		key, err := tx.Get("msgid:" + id)
		if err != nil {
			return err
		}
		if !strings.HasPrefix(key, "msg:"+roomId+":") {
			return buntdb.ErrNotFound
		}
		if _, err := tx.Delete(key); err != nil {
			return err
		}
		_, err = tx.Delete("msgid:" + id)
		return err
	})
	if err == buntdb.ErrNotFound {
		return ErrNotFound
	}
	return err
}

func (s *BuntStore) UpsertReaction(messageId, emoji string, reactors []string) error {
	err := s.db.Update(func(tx *buntdb.Tx) error {
		key, err := tx.Get("msgid:" + messageId)
		if err != nil {
			return err
		}
		val, err := tx.Get(key)
		if err != nil {
			return err
		}
		msg := &types.Message{}
		if err := json.Unmarshal([]byte(val), msg); err != nil {
			return err
		}
		if msg.Reactions == nil {
			msg.Reactions = make(types.ReactionMap)
		}
		msg.Reactions[emoji] = reactors
		m, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		_, _, err = tx.Set(key, string(m), nil)
		return err
	})
	if err == buntdb.ErrNotFound {
		return ErrNotFound
	}
	return err
}

func (s *BuntStore) CreatePrivateRoom(room types.Room) error {
	r, err := json.Marshal(room)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set("privroom:"+room.Id, string(r), nil)
		return err
	})
}

func (s *BuntStore) PrivateRooms() ([]*types.Room, error) {
	rooms := make([]*types.Room, 0)
	err := s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys("privroom:*", func(key, val string) bool {
			room := &types.Room{}
			if err := json.Unmarshal([]byte(val), room); err == nil {
				rooms = append(rooms, room)
			}
			return true
		})
	})
	return rooms, err
}

func (s *BuntStore) FindPrivateRoomByNameAndPassword(name, password string) (*types.Room, error) {
	rooms, err := s.PrivateRooms()
	if err != nil {
		return nil, err
	}
	for _, room := range rooms {
		if room.Name == name && room.Password == password {
			return room, nil
		}
	}
	return nil, ErrNotFound
}

func (s *BuntStore) DeleteRoom(id string) error {
	err := s.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete("privroom:" + id)
		return err
	})
	if err == buntdb.ErrNotFound {
		return ErrNotFound
	}
	return err
}

func (s *BuntStore) CreateFriendRequest(req types.FriendRequest) error {
	r, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set("freq:"+req.Id, string(r), nil)
		return err
	})
}

func (s *BuntStore) UpdateFriendRequestStatus(id, status string) error {
	err := s.db.Update(func(tx *buntdb.Tx) error {
		val, err := tx.Get("freq:" + id)
		if err != nil {
			return err
		}
		req := &types.FriendRequest{}
		if err := json.Unmarshal([]byte(val), req); err != nil {
			return err
		}
		req.Status = status
		r, err := json.Marshal(req)
		if err != nil {
			return err
		}
		_, _, err = tx.Set("freq:"+id, string(r), nil)
		return err
	})
	if err == buntdb.ErrNotFound {
		return ErrNotFound
	}
	return err
}

func (s *BuntStore) AddFriendLink(a, b string) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		link := func(code, friend string) error {
			val, err := tx.Get("user:" + code)
			if err == buntdb.ErrNotFound {
				// not registered durably yet, the link is recorded on
				// the other side
				return nil
			}
			if err != nil {
				return err
			}
			user := &types.User{}
			if err := json.Unmarshal([]byte(val), user); err != nil {
				return err
			}
			user.AddFriend(friend)
			u, err := json.Marshal(user)
			if err != nil {
				return err
			}
			_, _, err = tx.Set("user:"+code, string(u), nil)
			return err
		}
		if err := link(a, b); err != nil {
			return err
		}
		return link(b, a)
	})
}

func (s *BuntStore) Close() error {
	err := s.db.Close()
	if s.fl != nil {
		s.fl.Unlock()
	}
	return err
}
