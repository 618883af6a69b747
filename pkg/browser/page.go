// Package browser owns the single page a workflow run drives: the Page
// abstraction step runners program against, the go-rod implementation of it,
// and the Session that acquires and releases the underlying browser.
package browser

import (
	"context"
	"fmt"
)

// WaitUntil is the navigation milestone Navigate blocks for.
type WaitUntil string

const (
	WaitCommit           WaitUntil = "commit"
	WaitDOMContentLoaded WaitUntil = "domcontentloaded"
	WaitLoad             WaitUntil = "load"
	WaitNetworkIdle      WaitUntil = "networkidle"
)

// ParseWaitUntil maps a workflow value onto a WaitUntil. Empty means load.
func ParseWaitUntil(s string) (WaitUntil, error) {
	switch WaitUntil(s) {
	case "":
		return WaitLoad, nil
	case WaitCommit, WaitDOMContentLoaded, WaitLoad, WaitNetworkIdle:
		return WaitUntil(s), nil
	default:
		return "", fmt.Errorf("unsupported wait_until %q (expected commit, domcontentloaded, load or networkidle)", s)
	}
}

// ElementState is the condition WaitForSelector blocks for.
type ElementState string

const (
	StateVisible  ElementState = "visible"
	StateHidden   ElementState = "hidden"
	StateAttached ElementState = "attached"
	StateDetached ElementState = "detached"
)

// ParseElementState maps a workflow value onto an ElementState. Empty means visible.
func ParseElementState(s string) (ElementState, error) {
	switch ElementState(s) {
	case "":
		return StateVisible, nil
	case StateVisible, StateHidden, StateAttached, StateDetached:
		return ElementState(s), nil
	default:
		return "", fmt.Errorf("unsupported state %q (expected visible, hidden, attached or detached)", s)
	}
}

// Page is the one browser tab a run acts on. Every call blocks until the
// operation completes or ctx is done; callers bound ctx with the step timeout.
// Selector-based calls act on the first element matching the CSS selector.
type Page interface {
	Navigate(ctx context.Context, url string, waitUntil WaitUntil) error
	URL(ctx context.Context) (string, error)

	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, value string, clear bool) error
	Select(ctx context.Context, selector string, values []string) error
	// Press sends key to the element matching selector, or to the page when
	// selector is empty.
	Press(ctx context.Context, selector, key string) error

	WaitForSelector(ctx context.Context, selector string, state ElementState) error
	WaitForNetworkIdle(ctx context.Context) error
	// WaitForURLExcluding blocks until the page URL no longer contains fragment.
	WaitForURLExcluding(ctx context.Context, fragment string) error

	// IsVisible waits, within ctx, for selector to be visible. Absent or
	// hidden elements report false or an error.
	IsVisible(ctx context.Context, selector string) (bool, error)
	TextContent(ctx context.Context, selector string) (string, error)

	Screenshot(ctx context.Context, path string, fullPage bool) error
	// Download clicks selector, waits for the download it triggers and stores
	// it in dir under the browser's suggested filename, returning the path.
	Download(ctx context.Context, selector, dir string) (string, error)
}
