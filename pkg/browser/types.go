package browser

// Engine identifies which browser engine a Manager drives.
type Engine string

const (
	// EngineChromium is the Chromium engine. It is the only engine that
	// exposes the low-level debug protocol used for capture and input
	// injection.
	EngineChromium Engine = "chromium"

	// EngineFirefox is the Firefox engine.
	EngineFirefox Engine = "firefox"

	// EngineWebKit is the WebKit engine.
	EngineWebKit Engine = "webkit"
)

// Valid reports whether e names a known engine.
func (e Engine) Valid() bool {
	switch e {
	case EngineChromium, EngineFirefox, EngineWebKit:
		return true
	}
	return false
}

// SupportsCDP reports whether the engine exposes a debug-protocol session.
// Callers must check this before requesting capture or input injection.
func (e Engine) SupportsCDP() bool {
	return e == EngineChromium
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// Proxy configures an upstream proxy for the browser instance.
type Proxy struct {
	// Server is the proxy URL, e.g. "http://host:3128" or "socks5://host:1080"
	Server string

	// Bypass is a comma-separated list of hosts to connect to directly
	Bypass string

	// Username and Password are optional proxy credentials
	Username string
	Password string
}

// LaunchOptions configures the browser instance created by Launch.
type LaunchOptions struct {
	// Engine selects the browser engine (default: chromium)
	Engine Engine

	// Headless controls whether the browser runs without a visible window
	Headless bool

	// Viewport sets the initial viewport size
	Viewport *Viewport

	// Proxy optionally routes browser traffic through a proxy
	Proxy *Proxy

	// ExecutablePath overrides the browser binary location
	ExecutablePath string

	// ExtraHTTPHeaders are sent with every request in the context
	ExtraHTTPHeaders map[string]string

	// Extensions are unpacked extension directories to load.
	// Chromium only; silently ignored for other engines.
	Extensions []string

	// RemoteDebuggingPort exposes the debug protocol on a fixed port.
	// Chromium only; silently ignored for other engines.
	RemoteDebuggingPort int

	// UserDataDir enables persistent mode: the context is backed by the
	// given profile directory and reused across runs. When empty the
	// browser is ephemeral (fresh process, fresh profile).
	UserDataDir string

	// SlowMo delays each driver operation by the given milliseconds
	SlowMo float64

	// Timeout is the default timeout for driver operations (milliseconds)
	Timeout float64
}

// PageSelector chooses a page for SwitchPage. Exactly one field is honored,
// checked in order: Index, URL, Title. URL and Title match by substring.
type PageSelector struct {
	Index *int
	URL   string
	Title string
}

// FrameSelector chooses a frame for SwitchToFrame. Exactly one field is
// honored, checked in order: Selector, Name, URL. Selector must reference
// an element that is itself a frame container (iframe/frame).
type FrameSelector struct {
	Selector string
	Name     string
	URL      string
}

// PageInfo describes one page in the registry's ordered list.
type PageInfo struct {
	Index  int    `json:"index"`
	URL    string `json:"url"`
	Title  string `json:"title"`
	Active bool   `json:"active"`
}

// FrameInfo describes one frame of the active page.
type FrameInfo struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	IsMain bool   `json:"isMain"`
}

// ActivePageIndex selects the currently active page in ClosePage.
const ActivePageIndex = -1

// Default values for launch options
const (
	DefaultEngine         = EngineChromium
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultTimeout        = 30000.0 // 30 seconds in milliseconds
)
