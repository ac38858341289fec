package chat

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/folkengine/goname"
	lru "github.com/hashicorp/golang-lru"
	"github.com/parlorchat/parlor/config"
	"github.com/parlorchat/parlor/globals"
	"github.com/parlorchat/parlor/persistence"
	"github.com/parlorchat/parlor/types"
)

const codeCacheSize = 1024

// Registry maps ephemeral connections to durable identities. The store is
// authoritative; the registry is a volatile projection keyed by the current
// connection, with an LRU cache in front of store lookups for offline users.
type Registry struct {
	cfg   *config.Config
	store persistence.Store

	byConn     map[string]*types.User
	connByCode map[string]string

	codeCache *lru.Cache
	rnd       *rand.Rand
}

func NewRegistry(cfg *config.Config, store persistence.Store) *Registry {
	cache, _ := lru.New(codeCacheSize)
	return &Registry{
		cfg:        cfg,
		store:      store,
		byConn:     make(map[string]*types.User),
		connByCode: make(map[string]string),
		codeCache:  cache,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Register binds a durable identity to connId. A registration carrying a
// known friend code updates the existing identity's mutable fields instead
// of recreating it; a registration without a code mints a fresh unique one.
// A failing store write is logged only, the volatile projection still
// reflects the attempted values so the session stays usable.
func (r *Registry) Register(connId string, p types.RegisterPayload) *types.User {
	code := p.FriendCode
	if code == "" {
		code = r.mintCode()
	}
	user := r.lookup(code)
	if user == nil {
		user = &types.User{Code: code}
	}
	if p.Name != "" {
		user.Name = p.Name
	}
	if user.Name == "" {
		user.Name = goname.New(goname.FantasyMap).FirstLast() + " (guest)"
	}
	user.Avatar = p.Avatar
	user.AvatarTheme = p.AvatarTheme
	user.Country = p.Country
	if r.cfg != nil && r.cfg.AdminUser != "" && r.cfg.AdminUser == code {
		user.Admin = true
	}
	user.Online = true
	user.LastSeen = time.Now()

	r.byConn[connId] = user
	r.connByCode[code] = connId
	r.codeCache.Remove(code)

	if r.store != nil {
		if err := r.store.UpsertUser(*user); err != nil {
			globals.AppLogger.Error("could not store user", "code", code, "error", err)
		}
	}
	return user
}

// FindByCode resolves a friend code to an identity, falling back to the
// store for users that are currently disconnected.
func (r *Registry) FindByCode(code string) *types.User {
	return r.lookup(code)
}

// Resolve returns the identity bound to connId, if any.
func (r *Registry) Resolve(connId string) *types.User {
	return r.byConn[connId]
}

// ConnByCode returns the connection currently bound to a friend code.
func (r *Registry) ConnByCode(code string) (string, bool) {
	connId, ok := r.connByCode[code]
	return connId, ok
}

// Release marks the identity behind connId offline, stamps lastSeen and
// drops the volatile bindings. The durable identity is kept.
func (r *Registry) Release(connId string) *types.User {
	user := r.byConn[connId]
	if user == nil {
		return nil
	}
	user.Online = false
	user.LastSeen = time.Now()
	delete(r.byConn, connId)
	if r.connByCode[user.Code] == connId {
		delete(r.connByCode, user.Code)
	}
	r.codeCache.Add(user.Code, user)
	if r.store != nil {
		if err := r.store.UpsertUser(*user); err != nil {
			globals.AppLogger.Error("could not store user on release", "code", user.Code, "error", err)
		}
	}
	return user
}

// FlushPresence persists lastSeen for every online identity. Runs on a cron
// schedule so a crash loses at most one interval of presence data.
func (r *Registry) FlushPresence() {
	if r.store == nil {
		return
	}
	now := time.Now()
	for _, user := range r.byConn {
		user.LastSeen = now
		if err := r.store.UpsertUser(*user); err != nil {
			globals.AppLogger.Error("could not flush presence", "code", user.Code, "error", err)
		}
	}
}

func (r *Registry) lookup(code string) *types.User {
	if code == "" {
		return nil
	}
	if connId, ok := r.connByCode[code]; ok {
		return r.byConn[connId]
	}
	if cached, ok := r.codeCache.Get(code); ok {
		return cached.(*types.User)
	}
	if r.store == nil {
		return nil
	}
	user, err := r.store.FindUserByCode(code)
	if err == persistence.ErrNotFound {
		return nil
	}
	if err != nil {
		globals.AppLogger.Error("could not look up user", "code", code, "error", err)
		return nil
	}
	r.codeCache.Add(code, user)
	return user
}

// mintCode generates an unused friend code. Codes are "USR" plus digits,
// widening by one digit every few collisions.
func (r *Registry) mintCode() string {
	digits := 4
	for attempt := 0; ; attempt++ {
		if attempt > 0 && attempt%8 == 0 {
			digits++
		}
		low := intPow(10, digits-1)
		code := fmt.Sprintf("USR%d", low+r.rnd.Intn(9*low))
		if r.lookup(code) == nil {
			return code
		}
	}
}

func intPow(base, exp int) int {
	res := 1
	for i := 0; i < exp; i++ {
		res *= base
	}
	return res
}

// PublicProfile strips the fields that are not shown to other users.
func PublicProfile(user *types.User) types.FriendInfo {
	info := types.FriendInfo{}
	if user != nil {
		info = types.FriendInfo{
			Code:   user.Code,
			Name:   user.Name,
			Avatar: user.Avatar,
			Online: user.Online,
		}
	}
	return info
}

// displayName is what presence events carry for an unregistered connection.
func displayName(user *types.User) string {
	if user == nil || strings.TrimSpace(user.Name) == "" {
		return "Guest"
	}
	return user.Name
}
