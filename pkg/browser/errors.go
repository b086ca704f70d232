package browser

import "errors"

var (
	// ErrAlreadyLaunched is returned by Launch when the manager already
	// owns a browser instance.
	ErrAlreadyLaunched = errors.New("browser already launched")

	// ErrNotLaunched is returned by operations that require a browser
	// context before Launch has succeeded.
	ErrNotLaunched = errors.New("browser not launched")

	// ErrNoPages is returned when an operation needs a page but the
	// registry has none.
	ErrNoPages = errors.New("no pages open")

	// ErrPageIndexOutOfRange is returned for page indexes outside the
	// registry's ordered list.
	ErrPageIndexOutOfRange = errors.New("page index out of range")

	// ErrUnknownEngine is returned by Launch for engine names outside the
	// supported set.
	ErrUnknownEngine = errors.New("unknown browser engine")
)
