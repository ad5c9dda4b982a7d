package contracts

import "encoding/json"

// WSFrame is what a channel subscriber receives over WebSocket.
type WSFrame struct {
	Type    string          `json:"type"`    // lifecycle event name, e.g. "car-arrived"
	Channel string          `json:"channel"` // e.g. "customer:9000000001"
	Data    json.RawMessage `json:"data"`
}

// WSClientMessage is the envelope clients send after authentication.
type WSClientMessage struct {
	Type string          `json:"type"` // "ping" | "subscribe"
	Data json.RawMessage `json:"data,omitempty"`
}

// WSAuthResult answers the first (auth) frame.
type WSAuthResult struct {
	Type    string `json:"type"` // "auth_success" | "auth_error"
	Channel string `json:"channel,omitempty"`
	Message string `json:"message,omitempty"`
}

// BusMessage is the AMQP body carrying a lifecycle event between services.
type BusMessage struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
	Envelope
}
