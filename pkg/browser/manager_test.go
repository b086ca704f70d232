package browser

import (
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fakes embed the driver interfaces so only the methods the registry
// touches need real implementations.

type fakePage struct {
	playwright.Page
	url    string
	title  string
	closed bool
	main   playwright.Frame
	frames []playwright.Frame
}

func (p *fakePage) URL() string            { return p.url }
func (p *fakePage) Title() (string, error) { return p.title, nil }
func (p *fakePage) Close(options ...playwright.PageCloseOptions) error {
	p.closed = true
	return nil
}
func (p *fakePage) MainFrame() playwright.Frame { return p.main }
func (p *fakePage) Frames() []playwright.Frame  { return p.frames }

type fakeContext struct {
	playwright.BrowserContext
	created []*fakePage
}

func (c *fakeContext) NewPage() (playwright.Page, error) {
	page := &fakePage{url: "about:blank", main: &fakeFrame{name: "", url: "about:blank"}}
	c.created = append(c.created, page)
	return page, nil
}

type fakeFrame struct {
	playwright.Frame
	name string
	url  string

	// recorded GetByRole / Locator calls
	gotRole     playwright.AriaRole
	gotOpts     []playwright.FrameGetByRoleOptions
	gotSelector string

	handles map[string]playwright.ElementHandle
}

func (f *fakeFrame) Name() string { return f.name }
func (f *fakeFrame) URL() string  { return f.url }

func (f *fakeFrame) GetByRole(role playwright.AriaRole, options ...playwright.FrameGetByRoleOptions) playwright.Locator {
	f.gotRole = role
	f.gotOpts = options
	return &fakeLocator{role: string(role), nth: -1}
}

func (f *fakeFrame) Locator(selector string, options ...playwright.FrameLocatorOptions) playwright.Locator {
	f.gotSelector = selector
	return &fakeLocator{selector: selector, nth: -1}
}

func (f *fakeFrame) QuerySelector(selector string, options ...playwright.FrameQuerySelectorOptions) (playwright.ElementHandle, error) {
	return f.handles[selector], nil
}

// locatorIface lets fakeLocator embed the driver interface under a field
// name that does not collide with the interface's own Locator method.
type locatorIface = playwright.Locator

type fakeLocator struct {
	locatorIface
	role     string
	selector string
	nth      int
}

func (l *fakeLocator) Nth(index int) playwright.Locator {
	copied := *l
	copied.nth = index
	return &copied
}

type fakeHandle struct {
	playwright.ElementHandle
	frame playwright.Frame
}

func (h *fakeHandle) ContentFrame() (playwright.Frame, error) { return h.frame, nil }

// newTestManager wires a launched manager around fakes, bypassing the
// driver boot that Launch performs.
func newTestManager(pages ...*fakePage) (*Manager, *fakeContext) {
	ctx := &fakeContext{}
	m := NewManager()
	m.context = ctx
	m.engine = EngineChromium
	m.launched = true
	for _, p := range pages {
		m.pages = append(m.pages, p)
	}
	return m, ctx
}

func page(url, title string) *fakePage {
	return &fakePage{url: url, title: title, main: &fakeFrame{url: url}}
}

func TestLaunchRejectsUnknownEngine(t *testing.T) {
	m := NewManager()
	err := m.Launch(LaunchOptions{Engine: Engine("opera")})
	require.ErrorIs(t, err, ErrUnknownEngine)
}

func TestLaunchFailsWhenAlreadyLaunched(t *testing.T) {
	m, _ := newTestManager(page("https://a.test", "A"))
	err := m.Launch(LaunchOptions{})
	require.ErrorIs(t, err, ErrAlreadyLaunched)
}

func TestOperationsBeforeLaunch(t *testing.T) {
	m := NewManager()

	require.ErrorIs(t, m.NewPage(""), ErrNotLaunched)
	require.ErrorIs(t, m.ClosePage(0), ErrNotLaunched)
	require.ErrorIs(t, m.SwitchPage(PageSelector{URL: "x"}), ErrNoPages)

	_, err := m.ActivePage()
	require.ErrorIs(t, err, ErrNoPages)

	_, err = m.ActiveFrame()
	require.ErrorIs(t, err, ErrNoPages)

	_, err = m.Frames()
	require.ErrorIs(t, err, ErrNoPages)

	_, err = m.PagesWithTitles()
	require.ErrorIs(t, err, ErrNoPages)
}

func TestCloseIsIdempotentAndSafeBeforeLaunch(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}

func TestCloseRunsCleanupHooksAndSwallowsErrors(t *testing.T) {
	m, _ := newTestManager(page("https://a.test", "A"))

	ran := 0
	m.RegisterCleanup(func() error { ran++; return assert.AnError })
	m.RegisterCleanup(func() error { ran++; return nil })

	require.NoError(t, m.Close())
	assert.Equal(t, 2, ran)
	assert.Empty(t, m.Pages())

	// second close must not rerun hooks
	require.NoError(t, m.Close())
	assert.Equal(t, 2, ran)
}

func TestClosePageReplacesLastPage(t *testing.T) {
	first := page("https://a.test", "A")
	m, ctx := newTestManager(first)

	require.NoError(t, m.ClosePage(0))

	assert.True(t, first.closed)
	require.Len(t, m.Pages(), 1, "registry must never be empty while a context exists")
	assert.Equal(t, 0, m.ActiveIndex())
	require.Len(t, ctx.created, 1)
}

func TestClosePageClampsActiveIndex(t *testing.T) {
	m, _ := newTestManager(
		page("https://a.test", "A"),
		page("https://b.test", "B"),
		page("https://c.test", "C"),
	)
	require.NoError(t, m.SwitchPage(PageSelector{Index: playwright.Int(2)}))

	require.NoError(t, m.ClosePage(2))

	assert.Equal(t, 1, m.ActiveIndex())
	assert.Len(t, m.Pages(), 2)
}

func TestClosePageDefaultsToActive(t *testing.T) {
	a := page("https://a.test", "A")
	b := page("https://b.test", "B")
	m, _ := newTestManager(a, b)
	require.NoError(t, m.SwitchPage(PageSelector{Index: playwright.Int(1)}))

	require.NoError(t, m.ClosePage(ActivePageIndex))

	assert.True(t, b.closed)
	assert.False(t, a.closed)
	assert.Equal(t, 0, m.ActiveIndex())
}

func TestClosePageOutOfRange(t *testing.T) {
	m, _ := newTestManager(page("https://a.test", "A"))
	require.ErrorIs(t, m.ClosePage(3), ErrPageIndexOutOfRange)
	require.ErrorIs(t, m.ClosePage(-2), ErrPageIndexOutOfRange)
}

func TestClosePageClearsFrameOverride(t *testing.T) {
	a := page("https://a.test", "A")
	b := page("https://b.test", "B")
	sub := &fakeFrame{name: "child", url: "https://a.test/frame"}
	a.frames = []playwright.Frame{a.main.(*fakeFrame), sub}
	m, _ := newTestManager(a, b)

	require.NoError(t, m.SwitchToFrame(FrameSelector{Name: "child"}))
	require.NoError(t, m.ClosePage(1))

	frame, err := m.ActiveFrame()
	require.NoError(t, err)
	assert.Same(t, a.main, frame)
}

func TestSwitchPageSelectorPriority(t *testing.T) {
	m, _ := newTestManager(
		page("https://alpha.test/home", "Alpha Home"),
		page("https://beta.test/dash", "Beta Dashboard"),
	)

	// index has priority over url/title
	require.NoError(t, m.SwitchPage(PageSelector{Index: playwright.Int(1), URL: "alpha"}))
	assert.Equal(t, 1, m.ActiveIndex())

	// substring match on url
	require.NoError(t, m.SwitchPage(PageSelector{URL: "alpha.test"}))
	assert.Equal(t, 0, m.ActiveIndex())

	// substring match on title
	require.NoError(t, m.SwitchPage(PageSelector{Title: "Dashboard"}))
	assert.Equal(t, 1, m.ActiveIndex())
}

func TestSwitchPageDescriptiveErrors(t *testing.T) {
	m, _ := newTestManager(page("https://alpha.test", "Alpha"))

	err := m.SwitchPage(PageSelector{URL: "missing.test"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.test")

	err = m.SwitchPage(PageSelector{Title: "Nowhere"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Nowhere")

	err = m.SwitchPage(PageSelector{Index: playwright.Int(5)})
	require.ErrorIs(t, err, ErrPageIndexOutOfRange)

	err = m.SwitchPage(PageSelector{})
	require.Error(t, err)
}

func TestSwitchPageResetsFrameOverride(t *testing.T) {
	a := page("https://a.test", "A")
	sub := &fakeFrame{name: "child", url: "https://a.test/frame"}
	a.frames = []playwright.Frame{a.main.(*fakeFrame), sub}
	b := page("https://b.test", "B")
	m, _ := newTestManager(a, b)

	require.NoError(t, m.SwitchToFrame(FrameSelector{Name: "child"}))
	require.NoError(t, m.SwitchPage(PageSelector{Index: playwright.Int(1)}))

	frame, err := m.ActiveFrame()
	require.NoError(t, err)
	assert.Same(t, b.main, frame, "active frame must fall back to the new page's main frame")
}

func TestActiveFrameFallsBackToMainFrame(t *testing.T) {
	a := page("https://a.test", "A")
	m, _ := newTestManager(a)

	frame, err := m.ActiveFrame()
	require.NoError(t, err)
	assert.Same(t, a.main, frame)
}

func TestSwitchToFrameByName(t *testing.T) {
	a := page("https://a.test", "A")
	sub := &fakeFrame{name: "checkout", url: "https://pay.test/embed"}
	a.frames = []playwright.Frame{a.main.(*fakeFrame), sub}
	m, _ := newTestManager(a)

	require.NoError(t, m.SwitchToFrame(FrameSelector{Name: "checkout"}))

	frame, err := m.ActiveFrame()
	require.NoError(t, err)
	assert.Same(t, sub, frame)

	err = m.SwitchToFrame(FrameSelector{Name: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no frame named "nope"`)
}

func TestSwitchToFrameByURL(t *testing.T) {
	a := page("https://a.test", "A")
	sub := &fakeFrame{name: "", url: "https://pay.test/embed"}
	a.frames = []playwright.Frame{a.main.(*fakeFrame), sub}
	m, _ := newTestManager(a)

	require.NoError(t, m.SwitchToFrame(FrameSelector{URL: "pay.test"}))

	frame, err := m.ActiveFrame()
	require.NoError(t, err)
	assert.Same(t, sub, frame)

	err = m.SwitchToFrame(FrameSelector{URL: "elsewhere"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "elsewhere")
}

func TestSwitchToFrameBySelector(t *testing.T) {
	a := page("https://a.test", "A")
	main := a.main.(*fakeFrame)
	sub := &fakeFrame{name: "embed", url: "https://pay.test/embed"}
	main.handles = map[string]playwright.ElementHandle{
		"iframe#pay": &fakeHandle{frame: sub},
		"div#plain":  &fakeHandle{frame: nil},
	}
	m, _ := newTestManager(a)

	require.NoError(t, m.SwitchToFrame(FrameSelector{Selector: "iframe#pay"}))
	frame, err := m.ActiveFrame()
	require.NoError(t, err)
	assert.Same(t, sub, frame)

	m.SwitchToMainFrame()

	// element exists but is not a frame container
	err = m.SwitchToFrame(FrameSelector{Selector: "div#plain"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a frame")

	// element missing entirely
	err = m.SwitchToFrame(FrameSelector{Selector: "iframe#ghost"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no element found")
}

func TestSwitchToMainFrame(t *testing.T) {
	a := page("https://a.test", "A")
	sub := &fakeFrame{name: "child", url: "https://a.test/frame"}
	a.frames = []playwright.Frame{a.main.(*fakeFrame), sub}
	m, _ := newTestManager(a)

	require.NoError(t, m.SwitchToFrame(FrameSelector{Name: "child"}))
	m.SwitchToMainFrame()

	frame, err := m.ActiveFrame()
	require.NoError(t, err)
	assert.Same(t, a.main, frame)
}

func TestFramesEnumeration(t *testing.T) {
	a := page("https://a.test", "A")
	main := a.main.(*fakeFrame)
	sub := &fakeFrame{name: "child", url: "https://a.test/frame"}
	a.frames = []playwright.Frame{main, sub}
	m, _ := newTestManager(a)

	infos, err := m.Frames()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.True(t, infos[0].IsMain)
	assert.False(t, infos[1].IsMain)
	assert.Equal(t, "child", infos[1].Name)
	assert.Equal(t, "https://a.test/frame", infos[1].URL)
}

func TestPagesEnumeration(t *testing.T) {
	m, _ := newTestManager(
		page("https://a.test", "A"),
		page("https://b.test", "B"),
	)

	infos := m.Pages()
	require.Len(t, infos, 2)
	assert.Equal(t, "https://a.test", infos[0].URL)
	assert.Empty(t, infos[0].Title, "light variant must not fetch titles")
	assert.True(t, infos[0].Active)

	withTitles, err := m.PagesWithTitles()
	require.NoError(t, err)
	assert.Equal(t, "A", withTitles[0].Title)
	assert.Equal(t, "B", withTitles[1].Title)
}

func TestChromiumArgs(t *testing.T) {
	tests := []struct {
		name string
		opts LaunchOptions
		want []string
	}{
		{
			name: "non-chromium engines ignore protocol flags",
			opts: LaunchOptions{Engine: EngineFirefox, RemoteDebuggingPort: 9222, Extensions: []string{"/ext"}},
			want: nil,
		},
		{
			name: "debug port",
			opts: LaunchOptions{Engine: EngineChromium, RemoteDebuggingPort: 9222},
			want: []string{"--remote-debugging-port=9222"},
		},
		{
			name: "extensions",
			opts: LaunchOptions{Engine: EngineChromium, Extensions: []string{"/ext/a", "/ext/b"}},
			want: []string{
				"--disable-extensions-except=/ext/a,/ext/b",
				"--load-extension=/ext/a,/ext/b",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chromiumArgs(tt.opts))
		})
	}
}

func TestEngineCapabilities(t *testing.T) {
	assert.True(t, EngineChromium.SupportsCDP())
	assert.False(t, EngineFirefox.SupportsCDP())
	assert.False(t, EngineWebKit.SupportsCDP())
	assert.False(t, Engine("opera").Valid())
}
