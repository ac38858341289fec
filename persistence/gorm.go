package persistence

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/parlorchat/parlor/config"
	"github.com/parlorchat/parlor/types"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(cfg *config.Config) (Store, error) {
	db, err := setupGormDB(cfg)
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, nil // no or wrong configuration, ignore the store
	}
	return &GormStore{db: db}, nil
}

func setupGormDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.PersistenceConfig.DSN == "" {
		return nil, nil
	}
	var dial gorm.Dialector
	switch cfg.PersistenceConfig.Type {
	case "postgres":
		dial = postgres.Open(cfg.PersistenceConfig.DSN)

	case "sqlite":
		dial = sqlite.Open(cfg.PersistenceConfig.DSN)

	default:
		return nil, fmt.Errorf("invalid gorm configuration")
	}
	db, err := gorm.Open(dial, &gorm.Config{})
	if err != nil {
		return nil, err
	}
	db.Migrator().AutoMigrate(&types.User{}, &types.Room{}, &types.Message{}, &types.FriendRequest{})
	return db, nil
}

func (s *GormStore) FindUserByCode(code string) (*types.User, error) {
	user := &types.User{Code: code}
	err := s.db.First(user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *GormStore) UpsertUser(user types.User) error {
	if user.Code == "" {
		return fmt.Errorf("no friend code")
	}
	return s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&user).Error
}

func (s *GormStore) Users() ([]*types.User, error) {
	users := make([]*types.User, 0)
	err := s.db.Find(&users).Error
	return users, err
}

func (s *GormStore) DeleteUser(code string) error {
	return s.db.Delete(&types.User{Code: code}).Error
}

func (s *GormStore) AppendMessage(msg types.Message) (string, error) {
	msg.Id = uuid.NewString()
	if err := s.db.Create(&msg).Error; err != nil {
		return "", err
	}
	return msg.Id, nil
}

func (s *GormStore) MessagesByRoom(roomId string, limit int) ([]*types.Message, error) {
	messages := make([]*types.Message, 0)
	q := s.db.Where("room_id = ?", roomId).Order("timestamp DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&messages).Error; err != nil {
		return nil, err
	}
	// newest-first from the query, flip to insertion order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	for _, msg := range messages {
		msg.Persisted = true
	}
	return messages, nil
}

func (s *GormStore) DeleteMessage(id, roomId string) error {
	res := s.db.Where("id = ? AND room_id = ?", id, roomId).Delete(&types.Message{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) UpsertReaction(messageId, emoji string, reactors []string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		msg := &types.Message{Id: messageId}
		err := tx.First(msg).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if msg.Reactions == nil {
			msg.Reactions = make(types.ReactionMap)
		}
		msg.Reactions[emoji] = reactors
		return tx.Model(msg).Update("reactions", msg.Reactions).Error
	})
}

func (s *GormStore) CreatePrivateRoom(room types.Room) error {
	room.Private = true
	return s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&room).Error
}

func (s *GormStore) PrivateRooms() ([]*types.Room, error) {
	rooms := make([]*types.Room, 0)
	err := s.db.Where("private = ?", true).Find(&rooms).Error
	return rooms, err
}

func (s *GormStore) FindPrivateRoomByNameAndPassword(name, password string) (*types.Room, error) {
	room := &types.Room{}
	err := s.db.Where("name = ? AND password = ? AND private = ?", name, password, true).First(room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return room, nil
}

func (s *GormStore) DeleteRoom(id string) error {
	return s.db.Delete(&types.Room{Id: id}).Error
}

func (s *GormStore) CreateFriendRequest(req types.FriendRequest) error {
	return s.db.Create(&req).Error
}

func (s *GormStore) UpdateFriendRequestStatus(id, status string) error {
	res := s.db.Model(&types.FriendRequest{Id: id}).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) AddFriendLink(a, b string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		link := func(code, friend string) error {
			user := &types.User{Code: code}
			err := tx.First(user).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			user.AddFriend(friend)
			return tx.Model(user).Update("friends", user.Friends).Error
		}
		if err := link(a, b); err != nil {
			return err
		}
		return link(b, a)
	})
}

func (s *GormStore) Close() error {
	return nil
}
