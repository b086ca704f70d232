package browser

import (
	"fmt"
	"io"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// Manager owns one browser instance and the registry of its open pages.
// It tracks which page and frame are active, and holds the current ref map
// used to resolve element references.
//
// A Manager is designed to be driven by one control flow at a time. Callers
// issuing commands from multiple goroutines must serialize them themselves
// (e.g. through a command queue); the Manager does no internal locking.
type Manager struct {
	pw          *playwright.Playwright
	engine      Engine
	browser     playwright.Browser        // nil in persistent mode
	context     playwright.BrowserContext // first context is authoritative
	pages       []playwright.Page
	activePage  int
	activeFrame playwright.Frame // nil means the active page's main frame
	refs        map[string]RefEntry
	persistent  bool
	launched    bool
	cleanups    []func() error
}

// NewManager creates a manager with no browser instance. Call Launch to
// start one.
func NewManager() *Manager {
	return &Manager{
		refs: make(map[string]RefEntry),
	}
}

// Engine returns the engine variant of the running instance. Meaningful
// only after Launch.
func (m *Manager) Engine() Engine {
	return m.engine
}

// RegisterCleanup registers a hook that runs first during Close. Hooks run
// in registration order and their errors are swallowed so a failing hook
// never blocks teardown. The debug session manager registers its teardown
// here.
func (m *Manager) RegisterCleanup(fn func() error) {
	m.cleanups = append(m.cleanups, fn)
}

// Launch starts the browser instance. It fails if the manager already owns
// one. With UserDataDir set the context is persistent (profile-backed,
// reused across runs); otherwise a fresh process, context and page are
// created. After a successful launch the active page is index 0 and no
// frame override is set.
func (m *Manager) Launch(opts LaunchOptions) error {
	if m.launched {
		return ErrAlreadyLaunched
	}

	if opts.Engine == "" {
		opts.Engine = DefaultEngine
	}
	if !opts.Engine.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownEngine, opts.Engine)
	}
	if opts.Viewport == nil {
		opts.Viewport = &Viewport{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		}
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}

	// Install and run the driver quietly so daemon output stays clean
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(runOpts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	args := chromiumArgs(opts)

	if opts.UserDataDir != "" {
		if err := m.launchPersistent(pw, opts, args); err != nil {
			_ = pw.Stop()
			return err
		}
	} else {
		if err := m.launchEphemeral(pw, opts, args); err != nil {
			_ = pw.Stop()
			return err
		}
	}

	m.pw = pw
	m.engine = opts.Engine
	m.activePage = 0
	m.activeFrame = nil
	m.launched = true
	return nil
}

// launchEphemeral starts a fresh process with one context and one page.
func (m *Manager) launchEphemeral(pw *playwright.Playwright, opts LaunchOptions, args []string) error {
	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Timeout:  playwright.Float(opts.Timeout),
	}
	if len(args) > 0 {
		launchOpts.Args = args
	}
	if opts.ExecutablePath != "" {
		launchOpts.ExecutablePath = playwright.String(opts.ExecutablePath)
	}
	if opts.SlowMo > 0 {
		launchOpts.SlowMo = playwright.Float(opts.SlowMo)
	}
	if opts.Proxy != nil {
		launchOpts.Proxy = proxyOptions(opts.Proxy)
	}

	browser, err := browserType(pw, opts.Engine).Launch(launchOpts)
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
	}
	if len(opts.ExtraHTTPHeaders) > 0 {
		contextOpts.ExtraHttpHeaders = opts.ExtraHTTPHeaders
	}
	context, err := browser.NewContext(contextOpts)
	if err != nil {
		_ = browser.Close()
		return fmt.Errorf("failed to create context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		_ = context.Close()
		_ = browser.Close()
		return fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(opts.Timeout)

	m.browser = browser
	m.context = context
	m.pages = []playwright.Page{page}
	m.persistent = false
	return nil
}

// launchPersistent opens a profile-directory-backed context. If the profile
// already has open pages the registry adopts them instead of creating a new
// one.
func (m *Manager) launchPersistent(pw *playwright.Playwright, opts LaunchOptions, args []string) error {
	launchOpts := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(opts.Headless),
		Timeout:  playwright.Float(opts.Timeout),
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
	}
	if len(args) > 0 {
		launchOpts.Args = args
	}
	if opts.ExecutablePath != "" {
		launchOpts.ExecutablePath = playwright.String(opts.ExecutablePath)
	}
	if opts.SlowMo > 0 {
		launchOpts.SlowMo = playwright.Float(opts.SlowMo)
	}
	if opts.Proxy != nil {
		launchOpts.Proxy = proxyOptions(opts.Proxy)
	}
	if len(opts.ExtraHTTPHeaders) > 0 {
		launchOpts.ExtraHttpHeaders = opts.ExtraHTTPHeaders
	}

	context, err := browserType(pw, opts.Engine).LaunchPersistentContext(opts.UserDataDir, launchOpts)
	if err != nil {
		return fmt.Errorf("failed to launch persistent context: %w", err)
	}

	pages := context.Pages()
	if len(pages) == 0 {
		page, err := context.NewPage()
		if err != nil {
			_ = context.Close()
			return fmt.Errorf("failed to create page: %w", err)
		}
		pages = []playwright.Page{page}
	}
	for _, p := range pages {
		p.SetDefaultTimeout(opts.Timeout)
	}

	m.browser = nil
	m.context = context
	m.pages = pages
	m.persistent = true
	return nil
}

// Close tears everything down and resets the manager to its pre-launch
// state. It is idempotent and safe to call when Launch was never called.
// Cleanup hook failures and driver close failures are swallowed so a
// failing cleanup never blocks the overall close.
func (m *Manager) Close() error {
	for _, fn := range m.cleanups {
		_ = fn() // ignore errors, continue cleanup
	}
	m.cleanups = nil

	if m.persistent {
		if m.context != nil {
			_ = m.context.Close()
		}
	} else if m.browser != nil {
		_ = m.browser.Close()
	}
	if m.pw != nil {
		_ = m.pw.Stop()
	}

	m.pw = nil
	m.browser = nil
	m.context = nil
	m.pages = nil
	m.activePage = 0
	m.activeFrame = nil
	m.refs = make(map[string]RefEntry)
	m.persistent = false
	m.launched = false
	m.engine = ""
	return nil
}

// browserType maps an engine variant to the driver's browser type.
func browserType(pw *playwright.Playwright, engine Engine) playwright.BrowserType {
	switch engine {
	case EngineFirefox:
		return pw.Firefox
	case EngineWebKit:
		return pw.WebKit
	default:
		return pw.Chromium
	}
}

// chromiumArgs builds the engine-specific startup arguments. Only Chromium
// understands these flags; for other engines the result is empty and the
// options are ignored.
func chromiumArgs(opts LaunchOptions) []string {
	if opts.Engine != EngineChromium {
		return nil
	}

	var args []string
	if opts.RemoteDebuggingPort > 0 {
		args = append(args, fmt.Sprintf("--remote-debugging-port=%d", opts.RemoteDebuggingPort))
	}
	if len(opts.Extensions) > 0 {
		joined := strings.Join(opts.Extensions, ",")
		args = append(args,
			"--disable-extensions-except="+joined,
			"--load-extension="+joined,
		)
	}
	return args
}

func proxyOptions(p *Proxy) *playwright.Proxy {
	proxy := &playwright.Proxy{Server: p.Server}
	if p.Bypass != "" {
		proxy.Bypass = playwright.String(p.Bypass)
	}
	if p.Username != "" {
		proxy.Username = playwright.String(p.Username)
	}
	if p.Password != "" {
		proxy.Password = playwright.String(p.Password)
	}
	return proxy
}
