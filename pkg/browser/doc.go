// Package browser manages a single browser instance and its targets
// through Playwright.
//
// The package is built around the Manager, which owns the browser process
// (or persistent profile context), an ordered registry of open pages, the
// active page/frame selection, and the ref map used to resolve element
// references.
//
// # Lifecycle
//
// A Manager moves through an explicit lifecycle:
//
//  1. NewManager creates an empty manager
//  2. Launch starts the instance (ephemeral or persistent profile)
//  3. Page and frame operations act on the registry
//  4. Close tears everything down and resets the manager
//
// The registry maintains one invariant throughout: while a context exists
// there is always at least one page. Closing the last page creates a
// replacement immediately, so callers never observe an empty registry.
//
// # Refs
//
// External snapshot tooling assigns short ids ("e1", "e2", ...) to elements
// it observed, described by ARIA role, accessible name and an optional
// ordinal. The Manager stores the latest map and resolves tokens lazily
// against whichever frame is active when the ref is used:
//
//	locator, err := manager.GetLocator("@e3")
//
// Tokens that do not name a known ref fall back to raw selector resolution,
// so GetLocator accepts both ref tokens and plain selectors.
//
// # Concurrency
//
// The Manager does no internal locking. It is meant to be driven by one
// command flow at a time; concurrent mutation of the active page or frame
// must be serialized by the caller.
package browser
