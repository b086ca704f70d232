package browser

import (
	"regexp"

	"github.com/playwright-community/playwright-go"
)

// RefEntry describes one element captured by a DOM snapshot: its ARIA role,
// an optional accessible name, and an optional disambiguation ordinal when
// role+name alone matched more than one element.
type RefEntry struct {
	Role string  `json:"role"`
	Name *string `json:"name,omitempty"`
	Nth  *int    `json:"nth,omitempty"`
}

// refTokenPattern accepts the three textual ref forms: "e3", "@e3" and
// "ref=e3".
var refTokenPattern = regexp.MustCompile(`^(?:ref=|@)?(e\d+)$`)

// parseRefToken extracts the canonical ref id from a token, reporting
// whether the token is ref-shaped at all.
func parseRefToken(token string) (string, bool) {
	match := refTokenPattern.FindStringSubmatch(token)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// SetRefMap replaces the current ref map wholesale. Snapshots produce a
// fresh map each time; stale ids from earlier snapshots stop resolving.
func (m *Manager) SetRefMap(refs map[string]RefEntry) {
	if refs == nil {
		refs = make(map[string]RefEntry)
	}
	m.refs = refs
}

// RefMap returns the current ref map.
func (m *Manager) RefMap() map[string]RefEntry {
	return m.refs
}

// ResolveRef resolves a ref token into a live locator against the active
// frame. The boolean reports whether the token named a known ref; tokens
// that are not ref-shaped or reference an unknown id return (nil, false,
// nil) so the caller can fall back to treating the raw token as a selector.
//
// Resolution is lazy: the locator is built against the frame that is active
// at call time, so the ref survives DOM mutation as long as its role, name
// and ordinal still describe the same logical element.
func (m *Manager) ResolveRef(token string) (playwright.Locator, bool, error) {
	id, ok := parseRefToken(token)
	if !ok {
		return nil, false, nil
	}
	entry, ok := m.refs[id]
	if !ok {
		return nil, false, nil
	}

	frame, err := m.ActiveFrame()
	if err != nil {
		return nil, false, err
	}

	opts := playwright.FrameGetByRoleOptions{}
	if entry.Name != nil {
		opts.Name = *entry.Name
		opts.Exact = playwright.Bool(true)
	}
	locator := frame.GetByRole(playwright.AriaRole(entry.Role), opts)
	if entry.Nth != nil {
		locator = locator.Nth(*entry.Nth)
	}
	return locator, true, nil
}

// GetLocator turns a token into a locator on the active frame. Ref tokens
// resolve through the ref map; everything else is treated as a raw selector.
// This is the public superset of ResolveRef that automation callers use.
func (m *Manager) GetLocator(token string) (playwright.Locator, error) {
	locator, ok, err := m.ResolveRef(token)
	if err != nil {
		return nil, err
	}
	if ok {
		return locator, nil
	}

	frame, err := m.ActiveFrame()
	if err != nil {
		return nil, err
	}
	return frame.Locator(token), nil
}
