// Package browsertest provides an in-memory browser.Page for tests.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/arnavsurve/portalstep/pkg/browser"
)

// ErrNotFound is returned for selectors listed in Page.Missing.
var ErrNotFound = errors.New("element not found")

// Page records every call and answers from its configuration. Calls are
// recorded as "op:arg" (for example "click:#submit", "navigate:https://x").
type Page struct {
	mu sync.Mutex

	// CurrentURL is what URL returns; Navigate sets it unless Redirects
	// maps the target elsewhere.
	CurrentURL string
	Redirects  map[string]string
	// URLAfter moves the page to a new URL after the recorded call with
	// that key succeeds, e.g. "click:#signin" -> "https://idp/mfa".
	URLAfter map[string]string

	// Missing selectors fail every element operation with ErrNotFound.
	Missing map[string]bool
	// Hidden selectors exist but report not visible.
	Hidden map[string]bool
	Texts  map[string]string
	// Errors fails the call with the recorded key.
	Errors map[string]error

	// WriteFiles makes Screenshot and Download create real files.
	WriteFiles   bool
	DownloadName string

	calls   []string
	fills   map[string]string
	pressed []string
}

// New returns an empty fake page positioned at about:blank.
func New() *Page {
	return &Page{
		CurrentURL: "about:blank",
		Redirects:  map[string]string{},
		URLAfter:   map[string]string{},
		Missing:    map[string]bool{},
		Hidden:     map[string]bool{},
		Texts:      map[string]string{},
		Errors:     map[string]error{},
		fills:      map[string]string{},
	}
}

var _ browser.Page = (*Page)(nil)

// Calls returns a copy of the recorded calls.
func (p *Page) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// CallsWithPrefix returns the recorded calls that start with prefix.
func (p *Page) CallsWithPrefix(prefix string) []string {
	var out []string
	for _, c := range p.Calls() {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// Filled returns the last value written to selector.
func (p *Page) Filled(selector string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.fills[selector]
	return v, ok
}

// Pressed returns the keys pressed, in order.
func (p *Page) Pressed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.pressed...)
}

func (p *Page) Navigate(ctx context.Context, url string, _ browser.WaitUntil) error {
	key := "navigate:" + url
	if err := p.begin(ctx, key, ""); err != nil {
		return err
	}
	p.mu.Lock()
	p.CurrentURL = url
	if to, ok := p.Redirects[url]; ok {
		p.CurrentURL = to
	}
	p.mu.Unlock()
	p.after(key)
	return nil
}

func (p *Page) URL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.CurrentURL, nil
}

func (p *Page) Click(ctx context.Context, selector string) error {
	key := "click:" + selector
	if err := p.begin(ctx, key, selector); err != nil {
		return err
	}
	p.after(key)
	return nil
}

func (p *Page) Fill(ctx context.Context, selector, value string, clear bool) error {
	key := "fill:" + selector
	if err := p.begin(ctx, key, selector); err != nil {
		return err
	}
	p.mu.Lock()
	if clear {
		p.fills[selector] = value
	} else {
		p.fills[selector] += value
	}
	p.mu.Unlock()
	p.after(key)
	return nil
}

func (p *Page) Select(ctx context.Context, selector string, values []string) error {
	key := "select:" + selector
	if err := p.begin(ctx, key, selector); err != nil {
		return err
	}
	p.mu.Lock()
	p.fills[selector] = strings.Join(values, ",")
	p.mu.Unlock()
	p.after(key)
	return nil
}

func (p *Page) Press(ctx context.Context, selector, key string) error {
	callKey := "press:" + key
	if selector != "" {
		callKey = "press:" + selector + ":" + key
	}
	if err := p.begin(ctx, callKey, selector); err != nil {
		return err
	}
	p.mu.Lock()
	p.pressed = append(p.pressed, key)
	p.mu.Unlock()
	p.after(callKey)
	return nil
}

func (p *Page) WaitForSelector(ctx context.Context, selector string, state browser.ElementState) error {
	key := "wait:" + selector + ":" + string(state)
	p.record(key)
	if err := p.failure(ctx, key); err != nil {
		return err
	}
	p.mu.Lock()
	missing, hidden := p.Missing[selector], p.Hidden[selector]
	p.mu.Unlock()

	var satisfied bool
	switch state {
	case browser.StateAttached:
		satisfied = !missing
	case browser.StateDetached:
		satisfied = missing
	case browser.StateHidden:
		satisfied = missing || hidden
	default:
		satisfied = !missing && !hidden
	}
	if !satisfied {
		return fmt.Errorf("waiting for %q to be %s: %w", selector, state, context.DeadlineExceeded)
	}
	return nil
}

func (p *Page) WaitForNetworkIdle(ctx context.Context) error {
	return p.begin(ctx, "wait:networkidle", "")
}

func (p *Page) WaitForURLExcluding(ctx context.Context, fragment string) error {
	key := "waiturl:" + fragment
	if err := p.begin(ctx, key, ""); err != nil {
		return err
	}
	p.after(key)
	p.mu.Lock()
	defer p.mu.Unlock()
	if strings.Contains(p.CurrentURL, fragment) {
		return fmt.Errorf("waiting to leave %q: %w", fragment, context.DeadlineExceeded)
	}
	return nil
}

func (p *Page) IsVisible(ctx context.Context, selector string) (bool, error) {
	key := "visible:" + selector
	if err := p.begin(ctx, key, selector); err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.Hidden[selector], nil
}

func (p *Page) TextContent(ctx context.Context, selector string) (string, error) {
	key := "text:" + selector
	if err := p.begin(ctx, key, selector); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Texts[selector], nil
}

func (p *Page) Screenshot(ctx context.Context, path string, fullPage bool) error {
	key := "screenshot:" + path
	if err := p.begin(ctx, key, ""); err != nil {
		return err
	}
	if p.WriteFiles {
		return os.WriteFile(path, []byte("png"), 0644)
	}
	return nil
}

func (p *Page) Download(ctx context.Context, selector, dir string) (string, error) {
	key := "download:" + selector
	if err := p.begin(ctx, key, selector); err != nil {
		return "", err
	}
	name := p.DownloadName
	if name == "" {
		name = "download.bin"
	}
	path := filepath.Join(dir, name)
	if p.WriteFiles {
		if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
			return "", err
		}
	}
	return path, nil
}

// begin records the call and reports a configured error, a missing selector
// or a finished context.
func (p *Page) begin(ctx context.Context, key, selector string) error {
	p.record(key)
	if err := p.failure(ctx, key); err != nil {
		return err
	}
	if selector != "" {
		p.mu.Lock()
		missing := p.Missing[selector]
		p.mu.Unlock()
		if missing {
			return fmt.Errorf("locating %q: %w", selector, ErrNotFound)
		}
	}
	return nil
}

func (p *Page) record(key string) {
	p.mu.Lock()
	p.calls = append(p.calls, key)
	p.mu.Unlock()
}

func (p *Page) failure(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Errors[key]
}

func (p *Page) after(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if to, ok := p.URLAfter[key]; ok {
		p.CurrentURL = to
	}
}
