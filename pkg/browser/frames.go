package browser

import (
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// ActiveFrame returns the frame automation calls should act against: the
// explicitly selected frame if SwitchToFrame set one, otherwise the active
// page's main frame.
func (m *Manager) ActiveFrame() (playwright.Frame, error) {
	page, err := m.ActivePage()
	if err != nil {
		return nil, err
	}
	if m.activeFrame != nil {
		return m.activeFrame, nil
	}
	return page.MainFrame(), nil
}

// SwitchToFrame selects a frame of the active page as the target for
// subsequent element operations. Exactly one criterion is applied, checked
// in order: element selector, frame name, frame URL substring. Each failure
// mode reports distinctly so callers can branch on it.
func (m *Manager) SwitchToFrame(sel FrameSelector) error {
	page, err := m.ActivePage()
	if err != nil {
		return err
	}

	switch {
	case sel.Selector != "":
		frame, err := m.ActiveFrame()
		if err != nil {
			return err
		}
		handle, err := frame.QuerySelector(sel.Selector)
		if err != nil {
			return fmt.Errorf("frame element query failed: %w", err)
		}
		if handle == nil {
			return fmt.Errorf("no element found matching selector %q", sel.Selector)
		}
		content, err := handle.ContentFrame()
		if err != nil || content == nil {
			return fmt.Errorf("element %q is not a frame", sel.Selector)
		}
		m.activeFrame = content

	case sel.Name != "":
		var found playwright.Frame
		for _, f := range page.Frames() {
			if f.Name() == sel.Name {
				found = f
				break
			}
		}
		if found == nil {
			return fmt.Errorf("no frame named %q", sel.Name)
		}
		m.activeFrame = found

	case sel.URL != "":
		var found playwright.Frame
		for _, f := range page.Frames() {
			if strings.Contains(f.URL(), sel.URL) {
				found = f
				break
			}
		}
		if found == nil {
			return fmt.Errorf("no frame with URL containing %q", sel.URL)
		}
		m.activeFrame = found

	default:
		return fmt.Errorf("switch to frame: no selector given")
	}

	return nil
}

// SwitchToMainFrame clears the frame override unconditionally. Subsequent
// operations target the active page's main frame again.
func (m *Manager) SwitchToMainFrame() {
	m.activeFrame = nil
}

// Frames enumerates the frames of the active page in driver order.
func (m *Manager) Frames() ([]FrameInfo, error) {
	page, err := m.ActivePage()
	if err != nil {
		return nil, err
	}

	main := page.MainFrame()
	frames := page.Frames()
	infos := make([]FrameInfo, 0, len(frames))
	for i, f := range frames {
		infos = append(infos, FrameInfo{
			Index:  i,
			Name:   f.Name(),
			URL:    f.URL(),
			IsMain: f == main,
		})
	}
	return infos, nil
}
