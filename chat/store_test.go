package chat

import (
	"fmt"

	"github.com/parlorchat/parlor/persistence"
	"github.com/parlorchat/parlor/types"
)

// fakeStore is an in-memory persistence.Store for core tests. Setting fail
// makes every call return an error, for the degrade-to-volatile paths.
type fakeStore struct {
	users    map[string]types.User
	messages map[string][]*types.Message // by room id, insertion order
	rooms    map[string]types.Room
	requests map[string]types.FriendRequest

	seq  int
	fail bool
}

var _ persistence.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[string]types.User),
		messages: make(map[string][]*types.Message),
		rooms:    make(map[string]types.Room),
		requests: make(map[string]types.FriendRequest),
	}
}

func (s *fakeStore) err() error {
	if s.fail {
		return fmt.Errorf("store unavailable")
	}
	return nil
}

func (s *fakeStore) FindUserByCode(code string) (*types.User, error) {
	if err := s.err(); err != nil {
		return nil, err
	}
	user, ok := s.users[code]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	u := user
	return &u, nil
}

func (s *fakeStore) UpsertUser(user types.User) error {
	if err := s.err(); err != nil {
		return err
	}
	s.users[user.Code] = user
	return nil
}

func (s *fakeStore) Users() ([]*types.User, error) {
	if err := s.err(); err != nil {
		return nil, err
	}
	users := make([]*types.User, 0, len(s.users))
	for code := range s.users {
		u := s.users[code]
		users = append(users, &u)
	}
	return users, nil
}

func (s *fakeStore) DeleteUser(code string) error {
	if err := s.err(); err != nil {
		return err
	}
	delete(s.users, code)
	return nil
}

func (s *fakeStore) AppendMessage(msg types.Message) (string, error) {
	if err := s.err(); err != nil {
		return "", err
	}
	s.seq++
	msg.Id = fmt.Sprintf("m%04d", s.seq)
	m := msg
	s.messages[msg.RoomId] = append(s.messages[msg.RoomId], &m)
	return msg.Id, nil
}

func (s *fakeStore) MessagesByRoom(roomId string, limit int) ([]*types.Message, error) {
	if err := s.err(); err != nil {
		return nil, err
	}
	messages := s.messages[roomId]
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	out := make([]*types.Message, 0, len(messages))
	for _, msg := range messages {
		m := *msg
		m.Persisted = true
		out = append(out, &m)
	}
	return out, nil
}

func (s *fakeStore) DeleteMessage(id, roomId string) error {
	if err := s.err(); err != nil {
		return err
	}
	messages := s.messages[roomId]
	for i, msg := range messages {
		if msg.Id == id {
			s.messages[roomId] = append(messages[:i], messages[i+1:]...)
			return nil
		}
	}
	return persistence.ErrNotFound
}

func (s *fakeStore) UpsertReaction(messageId, emoji string, reactors []string) error {
	if err := s.err(); err != nil {
		return err
	}
	for _, messages := range s.messages {
		for _, msg := range messages {
			if msg.Id == messageId {
				if msg.Reactions == nil {
					msg.Reactions = make(types.ReactionMap)
				}
				msg.Reactions[emoji] = reactors
				return nil
			}
		}
	}
	return persistence.ErrNotFound
}

func (s *fakeStore) CreatePrivateRoom(room types.Room) error {
	if err := s.err(); err != nil {
		return err
	}
	s.rooms[room.Id] = room
	return nil
}

func (s *fakeStore) PrivateRooms() ([]*types.Room, error) {
	if err := s.err(); err != nil {
		return nil, err
	}
	rooms := make([]*types.Room, 0, len(s.rooms))
	for id := range s.rooms {
		r := s.rooms[id]
		rooms = append(rooms, &r)
	}
	return rooms, nil
}

func (s *fakeStore) FindPrivateRoomByNameAndPassword(name, password string) (*types.Room, error) {
	if err := s.err(); err != nil {
		return nil, err
	}
	for id := range s.rooms {
		room := s.rooms[id]
		if room.Name == name && room.Password == password {
			return &room, nil
		}
	}
	return nil, persistence.ErrNotFound
}

func (s *fakeStore) DeleteRoom(id string) error {
	if err := s.err(); err != nil {
		return err
	}
	delete(s.rooms, id)
	return nil
}

func (s *fakeStore) CreateFriendRequest(req types.FriendRequest) error {
	if err := s.err(); err != nil {
		return err
	}
	s.requests[req.Id] = req
	return nil
}

func (s *fakeStore) UpdateFriendRequestStatus(id, status string) error {
	if err := s.err(); err != nil {
		return err
	}
	req, ok := s.requests[id]
	if !ok {
		return persistence.ErrNotFound
	}
	req.Status = status
	s.requests[id] = req
	return nil
}

func (s *fakeStore) AddFriendLink(a, b string) error {
	if err := s.err(); err != nil {
		return err
	}
	link := func(code, friend string) {
		user, ok := s.users[code]
		if !ok {
			return
		}
		user.AddFriend(friend)
		s.users[code] = user
	}
	link(a, b)
	link(b, a)
	return nil
}

func (s *fakeStore) Close() error { return nil }
