package types

import "time"

// Friend request states.
const (
	FriendRequestPending  = "pending"
	FriendRequestAccepted = "accepted"
	FriendRequestDeclined = "declined"
)

// FriendRequest is a directed edge from requester to target. Once resolved
// it is removed from the pending set; the durable record keeps the terminal
// status. An accepted request promotes to a symmetric link in both users'
// friend sets, which has no further transitions.
type FriendRequest struct {
	Id      string    `json:"id" gorm:"primaryKey"`
	From    string    `json:"from"` // requester friend code
	To      string    `json:"to"`   // target friend code
	Status  string    `json:"status"`
	Created time.Time `json:"created"`
}
