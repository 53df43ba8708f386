package liveserver

// Message is the envelope every WebSocket frame carries.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// MessageType constants
const (
	TypeInit        = "init"
	TypeSlotUpdated = "slot.updated"
	TypePrices      = "prices"
)

// NewMessage creates a Message
func NewMessage(msgType string, data interface{}) Message {
	return Message{
		Type: msgType,
		Data: data,
	}
}

// NewInitMessage wraps a full grid snapshot, sent once per connection.
func NewInitMessage(data interface{}) Message {
	return NewMessage(TypeInit, data)
}

// NewSlotUpdatedMessage wraps a single committed slot change.
func NewSlotUpdatedMessage(data interface{}) Message {
	return NewMessage(TypeSlotUpdated, data)
}

// NewPricesMessage wraps the periodically recomputed price map.
func NewPricesMessage(data interface{}) Message {
	return NewMessage(TypePrices, data)
}
