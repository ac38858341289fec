package types

import "encoding/json"

// JSON-serialized WebsocketMessage is what is actually sent via the
// Websocket connection.
type WebsocketMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Frame serializes an outbound event into the wire framing.
func Frame(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(WebsocketMessage{Event: event, Data: data})
}
