package proto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

const (
	InboundTypeJoinRoom  = "join_room"
	InboundTypeLeaveRoom = "leave_room"
	InboundTypeChat      = "chat"
	InboundTypeErase     = "erase"

	OutboundTypeChat       = "chat"
	OutboundTypeErase      = "erase"
	OutboundTypeUserJoined = "user_joined"
	OutboundTypeUserLeft   = "user_left"
	OutboundTypeError      = "error"
)

// Application close codes sent when a connection is refused or terminated.
const (
	CloseNormal          = 1000
	CloseTryAgainLater   = 1013
	CloseMissingToken    = 4000
	CloseAuthFailed      = 4001
	CloseLivenessTimeout = 4002
)

// RoomID accepts a JSON integer or a string holding a base-10 integer.
type RoomID int64

// UnmarshalJSON implements json.Unmarshaler.
func (r *RoomID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("roomId must be an integer: %w", err)
	}
	*r = RoomID(n)
	return nil
}

// Inbound is the envelope for frames coming from the client.
type Inbound struct {
	Type    string  `json:"type"`
	RoomID  *RoomID `json:"roomId"`
	Message *string `json:"message"`
}

// ShapeEvent carries a chat or erase payload to room members.
type ShapeEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	RoomID  int64  `json:"roomId"`
}

// MemberEvent notifies room members that a user joined or left.
type MemberEvent struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
	RoomID int64  `json:"roomId"`
}

// ErrorEvent reports a rejected frame back to its sender.
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Encode serializes an outbound frame. Outbound types only hold strings and
// integers, so marshalling cannot fail for them.
func Encode(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(ErrorEvent{Type: OutboundTypeError, Message: "encode failed"}) //nolint:errcheck // fixed shape
	}
	return b
}

// ChatFrame builds the outbound chat broadcast.
func ChatFrame(roomID int64, message string) []byte {
	return Encode(ShapeEvent{Type: OutboundTypeChat, Message: message, RoomID: roomID})
}

// EraseFrame builds the outbound erase broadcast.
func EraseFrame(roomID int64, message string) []byte {
	return Encode(ShapeEvent{Type: OutboundTypeErase, Message: message, RoomID: roomID})
}

// UserJoinedFrame builds the membership notification sent on join.
func UserJoinedFrame(roomID int64, userID string) []byte {
	return Encode(MemberEvent{Type: OutboundTypeUserJoined, UserID: userID, RoomID: roomID})
}

// UserLeftFrame builds the membership notification sent on leave or disconnect.
func UserLeftFrame(roomID int64, userID string) []byte {
	return Encode(MemberEvent{Type: OutboundTypeUserLeft, UserID: userID, RoomID: roomID})
}

// ErrorFrame builds an error reply for the sender.
func ErrorFrame(code, msg string) []byte {
	return Encode(ErrorEvent{Type: OutboundTypeError, Message: msg, Code: code})
}
