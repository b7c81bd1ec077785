package repository

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrElementNotFound is returned when a selector matches nothing in time.
	ErrElementNotFound = errors.New("element not found")
	// ErrSessionClosed is returned once the underlying browser is gone.
	ErrSessionClosed = errors.New("browser session closed")
)

// Browser is a live, stateful browsing session. Selectors are CSS selectors.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	// Click performs a native click on the first visible match.
	Click(ctx context.Context, selector string) error
	// ClickJS calls element.click() from script, which works on elements hidden
	// behind overlays.
	ClickJS(ctx context.Context, selector string) error
	SendKeys(ctx context.Context, selector, keys string) error
	PressEnter(ctx context.Context, selector string) error
	// DispatchInput fires a bubbling "input" event on the element.
	DispatchInput(ctx context.Context, selector string) error
	Evaluate(ctx context.Context, script string, res any) error
	ScrollToBottom(ctx context.Context) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Exists(ctx context.Context, selector string) (bool, error)
	// Attribute returns the attribute of the first match; ok is false when the
	// element or the attribute is missing.
	Attribute(ctx context.Context, selector, name string) (value string, ok bool, err error)
	// HTML returns a snapshot of the current document.
	HTML(ctx context.Context) (string, error)
	Back(ctx context.Context) error
	Screenshot(ctx context.Context, path string) error
	Close() error
}

// BrowserFactory starts new browsing sessions.
type BrowserFactory interface {
	Open(ctx context.Context) (Browser, error)
}
