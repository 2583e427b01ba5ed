package channel

import (
	"encoding/json"
	"fmt"
)

// Message is an inbound push frame.
type Message struct {
	Meta       Meta            `json:"meta"`
	Message    json.RawMessage `json:"message"`
	ServerTime int64           `json:"serverTime"`
}

// Meta describes a frame.
type Meta struct {
	Category string      `json:"category"`
	Type     MessageType `json:"type"`
}

// MessageType is the payload media type.
type MessageType struct {
	Type    string `json:"type"`
	SubType string `json:"subType"`
}

// DecodeMessage parses a text frame.
func DecodeMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, err
	}
	if m.Meta.Category == "" {
		return Message{}, fmt.Errorf("frame has no category")
	}
	return m, nil
}

// field walks path through the message payload and renders the value found
// there. Missing values render as "".
func (m Message) field(path ...string) string {
	var v any
	if err := json.Unmarshal(m.Message, &v); err != nil {
		return ""
	}
	for _, key := range path {
		obj, ok := v.(map[string]any)
		if !ok {
			return ""
		}
		v = obj[key]
	}
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64, bool:
		return fmt.Sprint(t)
	default:
		raw, _ := json.Marshal(t)
		return string(raw)
	}
}

// payload renders the raw message payload.
func (m Message) payload() string {
	if len(m.Message) == 0 {
		return ""
	}
	return string(m.Message)
}
