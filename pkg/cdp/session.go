// Package cdp manages the low-level debug-protocol session used for screen
// capture and synthetic input injection.
//
// A SessionManager caches at most one protocol session per browser
// instance, bound to the page that was active when the session was
// created. The binding is deliberate: switching the active page does not
// rebind the session. Callers that switch pages while streaming must call
// Invalidate so the next use binds to the new page.
//
// Only the Chromium engine exposes the protocol; requesting a session for
// any other engine fails with ErrUnsupportedEngine.
package cdp

import (
	"errors"
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/surf/pkg/browser"
)

var (
	// ErrUnsupportedEngine is returned when the running engine does not
	// expose a debug-protocol session.
	ErrUnsupportedEngine = errors.New("debug protocol requires chromium")

	// ErrCaptureActive is returned by StartCapture when a capture stream
	// is already running.
	ErrCaptureActive = errors.New("capture already active")
)

// TargetSource is the slice of the target registry the session manager
// needs: the active page to bind to and the engine variant to gate on.
type TargetSource interface {
	ActivePage() (playwright.Page, error)
	Engine() browser.Engine
}

// SessionManager lazily establishes and caches one protocol session, and
// exposes capture and input-dispatch primitives over it.
type SessionManager struct {
	mu      sync.Mutex
	targets TargetSource

	session       playwright.CDPSession
	frameListener bool
	capturing     bool
	onFrame       func(Frame)
}

// NewSessionManager creates a session manager reading targets from the
// given source. No session is established until first use.
func NewSessionManager(targets TargetSource) *SessionManager {
	return &SessionManager{targets: targets}
}

// Session returns the cached protocol session, creating one bound to the
// current active page if none exists.
//
// Protocol roundtrips never happen while the lock is held: the transport
// delivers events and command responses on one goroutine, and the frame
// event handler takes the same lock, so a roundtrip under the lock would
// deadlock against an in-flight frame.
func (m *SessionManager) Session() (playwright.CDPSession, error) {
	m.mu.Lock()
	session := m.session
	m.mu.Unlock()
	if session != nil {
		return session, nil
	}
	return m.bind()
}

// bind creates a session against the current active page and caches it.
// When another caller bound one concurrently the fresh session is detached
// and the cached one wins.
func (m *SessionManager) bind() (playwright.CDPSession, error) {
	if engine := m.targets.Engine(); !engine.SupportsCDP() {
		return nil, fmt.Errorf("%w: engine is %q", ErrUnsupportedEngine, engine)
	}

	page, err := m.targets.ActivePage()
	if err != nil {
		return nil, fmt.Errorf("no page to bind session to: %w", err)
	}

	session, err := page.Context().NewCDPSession(page)
	if err != nil {
		return nil, fmt.Errorf("failed to create debug session: %w", err)
	}

	m.mu.Lock()
	if m.session != nil {
		cached := m.session
		m.mu.Unlock()
		_ = session.Detach() // lost the race, discard the extra session
		return cached, nil
	}
	m.session = session
	m.frameListener = false
	m.mu.Unlock()
	return session, nil
}

// Invalidate drops the cached session so the next use binds to the current
// active page. Any running capture is stopped first. Detach failures are
// swallowed; the session is discarded either way.
func (m *SessionManager) Invalidate() {
	m.mu.Lock()
	session := m.session
	capturing := m.capturing
	m.session = nil
	m.frameListener = false
	m.capturing = false
	m.onFrame = nil
	m.mu.Unlock()

	if session == nil {
		return
	}
	if capturing {
		_, _ = session.Send("Page.stopScreencast", nil)
	}
	_ = session.Detach() // ignore errors, continue teardown
}

// Close tears the session down. It is the cleanup hook the target registry
// runs during its own Close.
func (m *SessionManager) Close() error {
	m.Invalidate()
	return nil
}
