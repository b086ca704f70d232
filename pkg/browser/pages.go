package browser

import (
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// NewPage appends a page to the registry, makes it active and clears any
// frame override. When url is non-empty the page navigates there before
// returning.
func (m *Manager) NewPage(url string) error {
	if m.context == nil {
		return ErrNotLaunched
	}

	page, err := m.context.NewPage()
	if err != nil {
		return fmt.Errorf("failed to create page: %w", err)
	}

	m.pages = append(m.pages, page)
	m.activePage = len(m.pages) - 1
	m.activeFrame = nil

	if url != "" {
		if _, err := page.Goto(url); err != nil {
			return fmt.Errorf("navigation failed: %w", err)
		}
	}
	return nil
}

// ClosePage closes the page at index (ActivePageIndex closes the active
// page). The registry guarantees at least one page exists whenever a
// context exists: closing the last page immediately creates a replacement
// at index 0. When the active index would fall outside the list it clamps
// to the last valid index. The frame override is always cleared.
func (m *Manager) ClosePage(index int) error {
	if m.context == nil {
		return ErrNotLaunched
	}
	if index == ActivePageIndex {
		index = m.activePage
	}
	if index < 0 || index >= len(m.pages) {
		return fmt.Errorf("%w: %d (have %d pages)", ErrPageIndexOutOfRange, index, len(m.pages))
	}

	_ = m.pages[index].Close() // ignore errors, the page is gone either way
	m.pages = append(m.pages[:index], m.pages[index+1:]...)

	if len(m.pages) == 0 {
		page, err := m.context.NewPage()
		if err != nil {
			return fmt.Errorf("failed to create replacement page: %w", err)
		}
		m.pages = []playwright.Page{page}
		m.activePage = 0
	} else if m.activePage >= len(m.pages) {
		m.activePage = len(m.pages) - 1
	}

	m.activeFrame = nil
	return nil
}

// SwitchPage makes another page active. Exactly one selector field is
// honored, checked in priority order: index, URL substring, title
// substring. Switching always clears the frame override.
func (m *Manager) SwitchPage(sel PageSelector) error {
	if len(m.pages) == 0 {
		return ErrNoPages
	}

	switch {
	case sel.Index != nil:
		if *sel.Index < 0 || *sel.Index >= len(m.pages) {
			return fmt.Errorf("%w: %d (have %d pages)", ErrPageIndexOutOfRange, *sel.Index, len(m.pages))
		}
		m.activePage = *sel.Index

	case sel.URL != "":
		found := -1
		for i, page := range m.pages {
			if strings.Contains(page.URL(), sel.URL) {
				found = i
				break
			}
		}
		if found < 0 {
			return fmt.Errorf("no page with URL containing %q", sel.URL)
		}
		m.activePage = found

	case sel.Title != "":
		found := -1
		for i, page := range m.pages {
			title, err := page.Title()
			if err != nil {
				continue // unreadable title never matches
			}
			if strings.Contains(title, sel.Title) {
				found = i
				break
			}
		}
		if found < 0 {
			return fmt.Errorf("no page with title containing %q", sel.Title)
		}
		m.activePage = found

	default:
		return fmt.Errorf("switch page: no selector given")
	}

	m.activeFrame = nil
	return nil
}

// ActivePage returns the currently active page.
func (m *Manager) ActivePage() (playwright.Page, error) {
	if len(m.pages) == 0 {
		return nil, ErrNoPages
	}
	return m.pages[m.activePage], nil
}

// ActiveIndex returns the index of the active page.
func (m *Manager) ActiveIndex() int {
	return m.activePage
}

// Pages enumerates the registry without touching the live pages; titles
// are left empty because fetching them is an operation against the page.
func (m *Manager) Pages() []PageInfo {
	infos := make([]PageInfo, 0, len(m.pages))
	for i, page := range m.pages {
		infos = append(infos, PageInfo{
			Index:  i,
			URL:    page.URL(),
			Active: i == m.activePage,
		})
	}
	return infos
}

// PagesWithTitles enumerates the registry including page titles. Title
// retrieval is I/O against each live page; pages whose title cannot be
// read report an empty title.
func (m *Manager) PagesWithTitles() ([]PageInfo, error) {
	if len(m.pages) == 0 {
		return nil, ErrNoPages
	}
	infos := make([]PageInfo, 0, len(m.pages))
	for i, page := range m.pages {
		title, err := page.Title()
		if err != nil {
			title = ""
		}
		infos = append(infos, PageInfo{
			Index:  i,
			URL:    page.URL(),
			Title:  title,
			Active: i == m.activePage,
		})
	}
	return infos, nil
}
