package chat

import (
	"encoding/json"
	"testing"

	"github.com/parlorchat/parlor/config"
	"github.com/parlorchat/parlor/persistence"
	"github.com/parlorchat/parlor/types"
)

func testConfig() *config.Config {
	return &config.Config{}
}

func newTestCore(store persistence.Store) *Core {
	return NewCore(testConfig(), store)
}

// register binds a named identity to connId through the full dispatch path.
func register(t *testing.T, core *Core, connId, name, code string) *types.User {
	t.Helper()
	payload, err := json.Marshal(map[string]string{"name": name, "friendCode": code})
	if err != nil {
		t.Fatal(err)
	}
	core.HandleEvent(connId, types.EventUserRegister, payload)
	user := core.registry.Resolve(connId)
	if user == nil {
		t.Fatalf("no identity bound to %s after register", connId)
	}
	return user
}

func join(t *testing.T, core *Core, connId, roomId string) []Emission {
	t.Helper()
	payload, err := json.Marshal(map[string]string{"roomId": roomId})
	if err != nil {
		t.Fatal(err)
	}
	return core.HandleEvent(connId, types.EventRoomJoin, payload)
}

func send(t *testing.T, core *Core, connId, text string) []Emission {
	t.Helper()
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		t.Fatal(err)
	}
	return core.HandleEvent(connId, types.EventMessageSend, payload)
}

// emissionsByEvent filters emissions down to one event name.
func emissionsByEvent(emissions []Emission, event string) []Emission {
	out := make([]Emission, 0)
	for _, em := range emissions {
		if em.Event == event {
			out = append(out, em)
		}
	}
	return out
}

func firstEmission(emissions []Emission, event string) *Emission {
	for i := range emissions {
		if emissions[i].Event == event {
			return &emissions[i]
		}
	}
	return nil
}
