package types

import "encoding/json"

// Signaling message actions exchanged with a viewer. The set is closed: any
// other action is a protocol error.
const (
	ActionOffer  = "offer"
	ActionAnswer = "answer"
	ActionICE    = "ice"
	ActionBye    = "bye"
)

// SignalMessage is one message on a viewer signaling channel.
// Data is kept raw so each handler decodes only what it understands.
type SignalMessage struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// SessionDescriptionData carries the SDP payload of offer and answer messages.
type SessionDescriptionData struct {
	SDP  string `json:"sdp"`
	Type string `json:"type"`
}
