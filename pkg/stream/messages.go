package stream

import "github.com/entrhq/surf/pkg/cdp"

// Message types exchanged with viewer clients.
const (
	// Server → client
	MessageState = "state"
	MessageFrame = "frame"
	MessageError = "error"

	// Client → server
	MessageInputMouse    = "input_mouse"
	MessageInputKeyboard = "input_keyboard"
	MessageInputTouch    = "input_touch"
)

// StateMessage reports the shared session state. It is sent to a client
// immediately on connect and broadcast to everyone on any transition, so
// client counts stay consistent across the group.
type StateMessage struct {
	Type      string `json:"type"`
	Connected bool   `json:"connected"`
	Streaming bool   `json:"streaming"`
	Clients   int    `json:"clients"`
}

// FrameMessage carries one captured frame to a viewer.
type FrameMessage struct {
	Type     string            `json:"type"`
	Data     string            `json:"data"`
	Metadata cdp.FrameMetadata `json:"metadata"`
}

// ErrorMessage reports a per-client protocol error. It never closes the
// connection; the client may keep sending valid messages.
type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
