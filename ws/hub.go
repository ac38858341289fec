package ws

import (
	"time"

	"github.com/parlorchat/parlor/chat"
	"github.com/parlorchat/parlor/config"
	"github.com/parlorchat/parlor/filter"
	"github.com/parlorchat/parlor/globals"
	"github.com/parlorchat/parlor/types"
	"github.com/robfig/cron/v3"
)

const (
	inboundChannelSize  = 1000
	registerChannelSize = 16
)

type inboundFrame struct {
	client *Client
	msg    types.WebsocketMessage
}

// Hub owns the connected clients and runs the single event loop of the
// process. Every inbound frame, connect and disconnect is handled to
// completion before the next one, so the core's state transitions never
// interleave.
type Hub struct {
	core *chat.Core
	cfg  *config.Config

	// clients by connection id, confined to the Run goroutine
	clients map[string]*Client

	Register   chan *Client
	Unregister chan *Client
	Inbound    chan inboundFrame

	presenceTick chan struct{}
}

func NewHub(cfg *config.Config, core *chat.Core) *Hub {
	return &Hub{
		core:         core,
		cfg:          cfg,
		clients:      make(map[string]*Client),
		Register:     make(chan *Client, registerChannelSize),
		Unregister:   make(chan *Client, registerChannelSize),
		Inbound:      make(chan inboundFrame, inboundChannelSize),
		presenceTick: make(chan struct{}, 1),
	}
}

// Run is the main hub event loop handling register, unregister and inbound
// frames.
func (h *Hub) Run() {
	cronRunner := cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := cronRunner.AddFunc("@every 1m", func() {
		select {
		case h.presenceTick <- struct{}{}:
		default:
		}
	})
	if err != nil {
		globals.AppLogger.Error("could not schedule presence flush", "error", err)
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	for {
		select {
		case client := <-h.Register:
			h.clients[client.Id] = client

		case client := <-h.Unregister:
			if _, ok := h.clients[client.Id]; !ok {
				continue
			}
			h.deliver(h.core.Disconnect(client.Id))
			delete(h.clients, client.Id)
			client.conn.Close()
			// wait for the read/write loops before closing the send
			// channel, there must be no in-flight write on it
			client.Wait()
			close(client.Send)

		case frame := <-h.Inbound:
			// frames may still sit in the channel after a disconnect was
			// handled; acting on them would resurrect state for a dead
			// connection
			if _, ok := h.clients[frame.client.Id]; !ok {
				continue
			}
			h.deliver(h.core.HandleEvent(frame.client.Id, frame.msg.Event, frame.msg.Data))

		case <-h.presenceTick:
			h.core.FlushPresence()
		}
	}
}

// deliver fans emissions out to their audiences. Runs inside the loop
// goroutine, so reads of core state are never concurrent with mutation.
func (h *Hub) deliver(emissions []chat.Emission) {
	for _, em := range emissions {
		data, err := types.Frame(em.Event, em.Payload)
		if err != nil {
			globals.AppLogger.Error("could not marshal frame", "event", em.Event, "error", err)
			continue
		}
		prog, err := filter.Compile(em.Filter)
		if err != nil {
			globals.AppLogger.Error("could not compile delivery filter", "error", err)
		}
		switch em.Scope {
		case chat.ScopeConn:
			h.send(em.ConnId, data)

		case chat.ScopeRoom, chat.ScopeRoomExcept:
			for _, connId := range h.core.Members(em.RoomId) {
				if em.Scope == chat.ScopeRoomExcept && connId == em.ConnId {
					continue
				}
				if !filter.Allow(prog, h.core.Resolve(connId)) {
					continue
				}
				h.send(connId, data)
			}
		}
	}
}

// send never blocks the loop: a client whose buffer is full has stalled its
// connection and loses the frame.
func (h *Hub) send(connId string, data []byte) {
	client, ok := h.clients[connId]
	if !ok {
		return
	}
	select {
	case client.Send <- data:
	default:
		globals.AppLogger.Warn("dropping frame for stalled client", "conn", connId)
	}
}
