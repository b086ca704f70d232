package cdp

import (
	"errors"
	"fmt"
)

// CaptureOptions configures the screencast started by StartCapture.
type CaptureOptions struct {
	// Quality is the JPEG compression quality, 0-100 (default 80)
	Quality int

	// MaxWidth and MaxHeight constrain frame dimensions; zero means
	// unconstrained
	MaxWidth  int
	MaxHeight int

	// EveryNthFrame skips frames at the source; 1 captures every frame
	EveryNthFrame int
}

// Default capture settings
const (
	DefaultQuality       = 80
	DefaultEveryNthFrame = 1
)

func (o CaptureOptions) withDefaults() CaptureOptions {
	if o.Quality == 0 {
		o.Quality = DefaultQuality
	}
	if o.EveryNthFrame == 0 {
		o.EveryNthFrame = DefaultEveryNthFrame
	}
	return o
}

// FrameMetadata carries the viewport and scroll state a frame was captured
// under, as reported by the capture source.
type FrameMetadata struct {
	DeviceWidth     float64 `json:"deviceWidth"`
	DeviceHeight    float64 `json:"deviceHeight"`
	PageScaleFactor float64 `json:"pageScaleFactor"`
	OffsetTop       float64 `json:"offsetTop"`
	ScrollOffsetX   float64 `json:"scrollOffsetX"`
	ScrollOffsetY   float64 `json:"scrollOffsetY"`
	Timestamp       float64 `json:"timestamp,omitempty"`
}

// Frame is one captured frame: a base64 image payload plus its metadata.
type Frame struct {
	Data     string        `json:"data"`
	Metadata FrameMetadata `json:"metadata"`
}

// StartCapture begins the screencast, invoking onFrame for every decoded
// frame. Each frame is acknowledged back to the source after onFrame
// returns; the source holds the next frame until the acknowledgment
// arrives, so a slow consumer stalls the stream rather than flooding it.
// Fails if a capture is already active.
func (m *SessionManager) StartCapture(onFrame func(Frame), opts CaptureOptions) error {
	session, err := m.Session()
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.capturing {
		m.mu.Unlock()
		return ErrCaptureActive
	}
	if m.session != session {
		m.mu.Unlock()
		return errors.New("session invalidated before capture started")
	}

	// The listener is installed once per session and consults the current
	// callback under the lock, so stop/start cycles do not stack handlers.
	if !m.frameListener {
		session.On("Page.screencastFrame", func(params map[string]interface{}) {
			m.handleScreencastFrame(session, params)
		})
		m.frameListener = true
	}
	m.onFrame = onFrame
	m.capturing = true
	m.mu.Unlock()

	opts = opts.withDefaults()
	params := map[string]interface{}{
		"format":        "jpeg",
		"quality":       opts.Quality,
		"everyNthFrame": opts.EveryNthFrame,
	}
	if opts.MaxWidth > 0 {
		params["maxWidth"] = opts.MaxWidth
	}
	if opts.MaxHeight > 0 {
		params["maxHeight"] = opts.MaxHeight
	}

	// The send happens with the lock released: frame events may already be
	// in flight on the transport goroutine, and their handler needs the
	// lock before the command response can be delivered.
	if _, err := session.Send("Page.startScreencast", params); err != nil {
		m.mu.Lock()
		m.capturing = false
		m.onFrame = nil
		m.mu.Unlock()
		return fmt.Errorf("failed to start screencast: %w", err)
	}
	return nil
}

// StopCapture stops the screencast. Calling it when no capture is active is
// a no-op.
func (m *SessionManager) StopCapture() error {
	m.mu.Lock()
	if !m.capturing {
		m.mu.Unlock()
		return nil
	}
	m.capturing = false
	m.onFrame = nil
	session := m.session
	m.mu.Unlock()

	if _, err := session.Send("Page.stopScreencast", nil); err != nil {
		return fmt.Errorf("failed to stop screencast: %w", err)
	}
	return nil
}

// Capturing reports whether a capture stream is currently running.
func (m *SessionManager) Capturing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.capturing
}

// handleScreencastFrame decodes one frame event, delivers it and
// acknowledges receipt. The acknowledgment is sent even when no callback is
// registered so the source never stalls on a stopped consumer.
func (m *SessionManager) handleScreencastFrame(session interface {
	Send(method string, params map[string]interface{}) (interface{}, error)
}, params map[string]interface{}) {
	frame, ackID := decodeScreencastFrame(params)

	m.mu.Lock()
	onFrame := m.onFrame
	m.mu.Unlock()

	if onFrame != nil {
		onFrame(frame)
	}

	_, _ = session.Send("Page.screencastFrameAck", map[string]interface{}{
		"sessionId": ackID,
	})
}

// decodeScreencastFrame maps a raw frame event into the stable Frame shape,
// returning the source's frame id for acknowledgment.
func decodeScreencastFrame(params map[string]interface{}) (Frame, interface{}) {
	frame := Frame{}
	frame.Data, _ = params["data"].(string)

	if md, ok := params["metadata"].(map[string]interface{}); ok {
		frame.Metadata = FrameMetadata{
			DeviceWidth:     floatField(md, "deviceWidth"),
			DeviceHeight:    floatField(md, "deviceHeight"),
			PageScaleFactor: floatField(md, "pageScaleFactor"),
			OffsetTop:       floatField(md, "offsetTop"),
			ScrollOffsetX:   floatField(md, "scrollOffsetX"),
			ScrollOffsetY:   floatField(md, "scrollOffsetY"),
			Timestamp:       floatField(md, "timestamp"),
		}
	}

	return frame, params["sessionId"]
}

// floatField reads a numeric field from decoded JSON, tolerating the int
// types some transports produce.
func floatField(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}
