package session

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/pion/webrtc/v4"

	"github.com/blume-tech/jetson-app/tool"
	"github.com/blume-tech/jetson-app/types"
)

// SignalingChannel carries ordered, bidirectional signaling messages between
// one viewer and its session. Read blocks until a message arrives or the
// channel is closed by either side.
type SignalingChannel interface {
	Read() (*types.SignalMessage, error)
	Write(msg *types.SignalMessage) error
	Close() error
}

// DecodeMessage parses raw channel bytes into a signaling message and
// rejects unknown actions. Anything that fails here is a protocol error.
func DecodeMessage(data []byte) (*types.SignalMessage, error) {
	var msg types.SignalMessage
	if err := sonic.UnmarshalString(tool.BytesToString(data), &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrSignalingProtocol, err)
	}
	switch msg.Action {
	case types.ActionOffer, types.ActionAnswer, types.ActionICE, types.ActionBye:
		return &msg, nil
	default:
		return nil, fmt.Errorf("%w: unknown action %q", types.ErrSignalingProtocol, msg.Action)
	}
}

// EncodeMessage serializes a signaling message for the wire.
func EncodeMessage(msg *types.SignalMessage) ([]byte, error) {
	data, err := sonic.MarshalString(msg)
	if err != nil {
		return nil, err
	}
	return tool.StringToBytes(data), nil
}

// offerMessage wraps a local session description as an outbound offer.
func offerMessage(desc webrtc.SessionDescription) (*types.SignalMessage, error) {
	data, err := sonic.Marshal(types.SessionDescriptionData{
		SDP:  desc.SDP,
		Type: desc.Type.String(),
	})
	if err != nil {
		return nil, err
	}
	return &types.SignalMessage{Action: types.ActionOffer, Data: data}, nil
}

// iceMessage wraps a local ICE candidate for the side channel.
func iceMessage(candidate *webrtc.ICECandidate) (*types.SignalMessage, error) {
	data, err := sonic.Marshal(candidate.ToJSON())
	if err != nil {
		return nil, err
	}
	return &types.SignalMessage{Action: types.ActionICE, Data: data}, nil
}

// decodeAnswer extracts the remote description from an answer message.
func decodeAnswer(msg *types.SignalMessage) (webrtc.SessionDescription, error) {
	var payload types.SessionDescriptionData
	if err := sonic.Unmarshal(msg.Data, &payload); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("%w: malformed answer: %v", types.ErrSignalingProtocol, err)
	}
	if payload.SDP == "" || payload.Type != "answer" {
		return webrtc.SessionDescription{}, fmt.Errorf("%w: malformed answer payload", types.ErrSignalingProtocol)
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: payload.SDP}, nil
}

// decodeICECandidate extracts a remote ICE candidate from an ice message.
func decodeICECandidate(msg *types.SignalMessage) (webrtc.ICECandidateInit, error) {
	var candidate webrtc.ICECandidateInit
	if err := sonic.Unmarshal(msg.Data, &candidate); err != nil {
		return webrtc.ICECandidateInit{}, fmt.Errorf("%w: malformed ice candidate: %v", types.ErrSignalingProtocol, err)
	}
	return candidate, nil
}
