package chat

import (
	"time"

	"github.com/google/uuid"
	"github.com/parlorchat/parlor/globals"
	"github.com/parlorchat/parlor/persistence"
	"github.com/parlorchat/parlor/types"
)

// Friends tracks directed pending requests and promotes accepted ones to
// the symmetric friend link. However many accepted requests a pair
// accumulates, at most one link exists between them.
type Friends struct {
	store    persistence.Store
	registry *Registry

	pending map[string]*types.FriendRequest
}

func NewFriends(store persistence.Store, registry *Registry) *Friends {
	return &Friends{
		store:    store,
		registry: registry,
		pending:  make(map[string]*types.FriendRequest),
	}
}

// Request creates a pending request from the identity behind connId to the
// holder of code. The sender always gets friend:requestSent on success,
// whether or not the target is connected; the target is only notified live
// when it is.
func (f *Friends) Request(connId, code string) []Emission {
	requester := f.registry.Resolve(connId)
	if requester == nil {
		return []Emission{toConn(connId, types.EventFriendError, types.FriendErrorPayload{Error: "register before sending friend requests"})}
	}
	if requester.Code == code {
		return []Emission{toConn(connId, types.EventFriendError, types.FriendErrorPayload{Error: "that is your own friend code"})}
	}
	target := f.registry.FindByCode(code)
	if target == nil {
		return []Emission{toConn(connId, types.EventFriendError, types.FriendErrorPayload{Error: "unknown friend code"})}
	}
	if requester.HasFriend(code) || target.HasFriend(requester.Code) {
		return []Emission{toConn(connId, types.EventFriendError, types.FriendErrorPayload{Error: "already friends"})}
	}
	req := f.findPending(requester.Code, code)
	if req == nil {
		req = &types.FriendRequest{
			Id:      uuid.NewString(),
			From:    requester.Code,
			To:      code,
			Status:  types.FriendRequestPending,
			Created: time.Now(),
		}
		f.pending[req.Id] = req
		if f.store != nil {
			if err := f.store.CreateFriendRequest(*req); err != nil {
				globals.AppLogger.Error("could not store friend request", "request", req.Id, "error", err)
			}
		}
	}
	emissions := []Emission{
		toConn(connId, types.EventFriendRequestSent, types.FriendRequestSentPayload{RequestId: req.Id, Code: code}),
	}
	if targetConn, online := f.registry.ConnByCode(code); online {
		emissions = append(emissions, toConn(targetConn, types.EventFriendIncoming, types.FriendIncomingPayload{
			RequestId: req.Id,
			Code:      requester.Code,
			Name:      requester.Name,
			Avatar:    requester.Avatar,
		}))
	}
	return emissions
}

// Accept resolves a pending request addressed to the identity behind
// connId, records the symmetric link on both sides and notifies the
// original requester when currently connected. The link is recorded
// durably even when the requester is offline, so it is there on reconnect.
func (f *Friends) Accept(connId, fromCode, requestId string) []Emission {
	acceptor := f.registry.Resolve(connId)
	if acceptor == nil {
		return nil
	}
	req := f.pending[requestId]
	if req == nil || req.To != acceptor.Code || req.From != fromCode {
		return []Emission{toConn(connId, types.EventFriendError, types.FriendErrorPayload{Error: "unknown friend request"})}
	}
	delete(f.pending, requestId)
	if acceptor.HasFriend(req.From) {
		// the link already exists, the request is redundant; still settle
		// the durable record so it does not stay pending forever
		req.Status = types.FriendRequestAccepted
		if f.store != nil {
			if err := f.store.UpdateFriendRequestStatus(req.Id, req.Status); err != nil && err != persistence.ErrNotFound {
				globals.AppLogger.Error("could not update friend request", "request", req.Id, "error", err)
			}
		}
		return []Emission{toConn(connId, types.EventFriendError, types.FriendErrorPayload{Error: "already friends"})}
	}
	req.Status = types.FriendRequestAccepted

	acceptor.AddFriend(req.From)
	requester := f.registry.FindByCode(req.From)
	if requester != nil {
		requester.AddFriend(acceptor.Code)
	}
	if f.store != nil {
		if err := f.store.UpdateFriendRequestStatus(req.Id, req.Status); err != nil && err != persistence.ErrNotFound {
			globals.AppLogger.Error("could not update friend request", "request", req.Id, "error", err)
		}
		if err := f.store.AddFriendLink(req.From, req.To); err != nil {
			globals.AppLogger.Error("could not store friend link", "from", req.From, "to", req.To, "error", err)
		}
	}

	requesterName := ""
	if requester != nil {
		requesterName = requester.Name
	}
	emissions := []Emission{
		toConn(connId, types.EventFriendAccepted, types.FriendAcceptedPayload{Code: req.From, Name: requesterName}),
	}
	if requesterConn, online := f.registry.ConnByCode(req.From); online {
		emissions = append(emissions, toConn(requesterConn, types.EventFriendAccepted, types.FriendAcceptedPayload{
			Code: acceptor.Code,
			Name: acceptor.Name,
		}))
	}
	return emissions
}

// Decline marks the request declined and drops it from the pending set.
// There is no re-request guard: the same requester may try again later.
func (f *Friends) Decline(connId, requestId string) []Emission {
	req := f.pending[requestId]
	if req == nil {
		return nil
	}
	delete(f.pending, requestId)
	req.Status = types.FriendRequestDeclined
	if f.store != nil {
		if err := f.store.UpdateFriendRequestStatus(req.Id, req.Status); err != nil && err != persistence.ErrNotFound {
			globals.AppLogger.Error("could not update friend request", "request", req.Id, "error", err)
		}
	}
	return []Emission{toConn(connId, types.EventFriendDeclined, types.FriendDeclinedPayload{RequestId: requestId})}
}

// List merges the durable friend set with live online status. Offline
// friends fall back to their durable profile fields.
func (f *Friends) List(user *types.User) []types.FriendInfo {
	if user == nil {
		return nil
	}
	infos := make([]types.FriendInfo, 0, len(user.Friends))
	for _, code := range user.Friends {
		friend := f.registry.FindByCode(code)
		if friend == nil {
			infos = append(infos, types.FriendInfo{Code: code})
			continue
		}
		infos = append(infos, PublicProfile(friend))
	}
	return infos
}

func (f *Friends) findPending(from, to string) *types.FriendRequest {
	for _, req := range f.pending {
		if req.From == from && req.To == to {
			return req
		}
	}
	return nil
}
