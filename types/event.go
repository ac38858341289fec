package types

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Inbound event names. The set is closed: anything else is logged and
// dropped by the hub.
const (
	EventUserRegister    = "user:register"
	EventUserFindByCode  = "user:findByCode"
	EventRoomJoin        = "room:join"
	EventMessageSend     = "message:send"
	EventReactionAdd     = "reaction:add"
	EventMessageDelete   = "message:delete"
	EventRoomCreate      = "room:create"
	EventRoomJoinPrivate = "room:joinPrivate"
	EventFriendRequest   = "friend:request"
	EventFriendAccept    = "friend:accept"
	EventFriendDecline   = "friend:decline"
)

// Outbound event names.
const (
	EventUserRegistered    = "user:registered"
	EventUserFound         = "user:found"
	EventUserNotFound      = "user:notFound"
	EventUserJoined        = "user:joined"
	EventUserLeft          = "user:left"
	EventOnlineUpdate      = "online:update"
	EventRoomSnapshot      = "room:snapshot"
	EventMessageNew        = "message:new"
	EventReactionUpdate    = "reaction:update"
	EventMessageDeleted    = "message:deleted"
	EventRoomCreated       = "room:created"
	EventRoomJoined        = "room:joined"
	EventRoomError         = "room:error"
	EventFriendIncoming    = "friend:request"
	EventFriendRequestSent = "friend:requestSent"
	EventFriendError       = "friend:error"
	EventFriendAccepted    = "friend:accepted"
	EventFriendDeclined    = "friend:declined"
)

// Inbound payloads, one struct per event name.

type RegisterPayload struct {
	Name        string `mapstructure:"name"`
	Avatar      string `mapstructure:"avatar"`
	AvatarTheme string `mapstructure:"avatarTheme"`
	Country     string `mapstructure:"country"`
	FriendCode  string `mapstructure:"friendCode"`
}

type FindByCodePayload struct {
	Code string `mapstructure:"code"`
}

type JoinPayload struct {
	RoomId string `mapstructure:"roomId"`
}

type SendPayload struct {
	Text string `mapstructure:"text"`
}

type ReactionPayload struct {
	MessageId string `mapstructure:"messageId"`
	Emoji     string `mapstructure:"emoji"`
}

type DeletePayload struct {
	MessageId string `mapstructure:"messageId"`
	RoomId    string `mapstructure:"roomId"`
}

type CreateRoomPayload struct {
	Name     string `mapstructure:"name"`
	Password string `mapstructure:"password"`
}

type JoinPrivatePayload struct {
	Name     string `mapstructure:"name"`
	Password string `mapstructure:"password"`
}

type FriendRequestPayload struct {
	Code string `mapstructure:"code"`
}

type FriendAcceptPayload struct {
	From      string `mapstructure:"fromId"`
	RequestId string `mapstructure:"requestId"`
}

type FriendDeclinePayload struct {
	RequestId string `mapstructure:"requestId"`
}

// DecodeInbound turns the raw data of a frame into the payload struct for
// the given event name. Unknown fields are ignored, fields of the wrong
// scalar type are weakly converted (clients are not strict about numbers vs.
// strings).
func DecodeInbound(event string, data json.RawMessage) (interface{}, error) {
	raw := make(map[string]interface{})
	if len(data) > 0 {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	}
	var payload interface{}
	switch event {
	case EventUserRegister:
		payload = &RegisterPayload{}
	case EventUserFindByCode:
		payload = &FindByCodePayload{}
	case EventRoomJoin:
		payload = &JoinPayload{}
	case EventMessageSend:
		payload = &SendPayload{}
	case EventReactionAdd:
		payload = &ReactionPayload{}
	case EventMessageDelete:
		payload = &DeletePayload{}
	case EventRoomCreate:
		payload = &CreateRoomPayload{}
	case EventRoomJoinPrivate:
		payload = &JoinPrivatePayload{}
	case EventFriendRequest:
		payload = &FriendRequestPayload{}
	case EventFriendAccept:
		payload = &FriendAcceptPayload{}
	case EventFriendDecline:
		payload = &FriendDeclinePayload{}
	default:
		return nil, fmt.Errorf("unknown event %q", event)
	}
	if err := mapstructure.WeakDecode(raw, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Outbound payloads.

// RoomSnapshot is the join acknowledgment: bounded history (oldest first),
// the resolved member list and the online count.
type RoomSnapshot struct {
	RoomId      string     `json:"roomId"`
	Messages    []*Message `json:"messages"`
	Users       []RoomUser `json:"users"`
	OnlineCount int        `json:"onlineCount"`
}

// RoomUser is one entry of a room member list.
type RoomUser struct {
	Id     string `json:"id"` // connection id
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type OnlinePayload struct {
	RoomId string `json:"roomId"`
	Count  int    `json:"count"`
}

type PresencePayload struct {
	RoomId string `json:"roomId"`
	Name   string `json:"name"`
}

type ReactionUpdatePayload struct {
	MessageId string   `json:"messageId"`
	Emoji     string   `json:"emoji"`
	Reactors  []string `json:"reactors"`
}

type MessageDeletedPayload struct {
	MessageId string `json:"messageId"`
	RoomId    string `json:"roomId"`
}

type RoomCreatedPayload struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

type RoomErrorPayload struct {
	Error string `json:"error"`
}

type RegisteredPayload struct {
	User    *User        `json:"user"`
	Friends []FriendInfo `json:"friends"`
}

type FriendIncomingPayload struct {
	RequestId string `json:"requestId"`
	Code      string `json:"friendCode"`
	Name      string `json:"name"`
	Avatar    string `json:"avatar"`
}

type FriendRequestSentPayload struct {
	RequestId string `json:"requestId"`
	Code      string `json:"friendCode"`
}

type FriendErrorPayload struct {
	Error string `json:"error"`
}

type FriendAcceptedPayload struct {
	Code string `json:"friendCode"`
	Name string `json:"name"`
}

type FriendDeclinedPayload struct {
	RequestId string `json:"requestId"`
}
