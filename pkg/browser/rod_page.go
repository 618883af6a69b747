package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// requestIdleWindow is how long the network must stay quiet to count as idle.
const requestIdleWindow = 500 * time.Millisecond

const (
	jsElementHidden = `(s) => {
		const el = document.querySelector(s);
		if (!el) return true;
		const style = window.getComputedStyle(el);
		return style.display === 'none' || style.visibility === 'hidden' || el.getClientRects().length === 0;
	}`
	jsElementDetached = `(s) => !document.querySelector(s)`
	jsURLExcludes     = `(f) => !window.location.href.includes(f)`
)

// RodPage drives a single go-rod page. The browser handle is kept for
// download interception, which is configured per browser context.
type RodPage struct {
	browser *rod.Browser
	page    *rod.Page
}

// NewRodPage wraps an existing rod page owned by b.
func NewRodPage(b *rod.Browser, p *rod.Page) *RodPage {
	return &RodPage{browser: b, page: p}
}

func (p *RodPage) Navigate(ctx context.Context, url string, waitUntil WaitUntil) error {
	pg := p.page.Context(ctx)

	var wait func()
	switch waitUntil {
	case WaitDOMContentLoaded:
		wait = pg.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	case WaitLoad:
		wait = pg.WaitNavigation(proto.PageLifecycleEventNameLoad)
	case WaitNetworkIdle:
		wait = pg.WaitNavigation(proto.PageLifecycleEventNameNetworkIdle)
	}

	if err := pg.Navigate(url); err != nil {
		return opError(ctx, fmt.Sprintf("navigating to %q", url), err)
	}
	if wait != nil {
		wait()
	}
	if err := ctx.Err(); err != nil {
		return opError(ctx, fmt.Sprintf("waiting for %s on %q", waitUntil, url), err)
	}
	return nil
}

func (p *RodPage) URL(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", opError(ctx, "reading page url", err)
	}
	return info.URL, nil
}

func (p *RodPage) Click(ctx context.Context, selector string) error {
	el, err := p.element(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return opError(ctx, fmt.Sprintf("clicking %q", selector), err)
	}
	return nil
}

func (p *RodPage) Fill(ctx context.Context, selector, value string, clear bool) error {
	el, err := p.element(ctx, selector)
	if err != nil {
		return err
	}
	if clear {
		if err := el.SelectAllText(); err != nil {
			return opError(ctx, fmt.Sprintf("clearing %q", selector), err)
		}
	}
	if err := el.Input(value); err != nil {
		return opError(ctx, fmt.Sprintf("filling %q", selector), err)
	}
	return nil
}

func (p *RodPage) Select(ctx context.Context, selector string, values []string) error {
	el, err := p.element(ctx, selector)
	if err != nil {
		return err
	}

	byValue := make([]string, len(values))
	for i, v := range values {
		byValue[i] = "option[value=" + strconv.Quote(v) + "]"
	}
	if err := el.Select(byValue, true, rod.SelectorTypeCSSSector); err == nil {
		return nil
	}
	// Fall back to matching the visible option label.
	if err := el.Select(values, true, rod.SelectorTypeText); err != nil {
		return opError(ctx, fmt.Sprintf("selecting %v in %q", values, selector), err)
	}
	return nil
}

func (p *RodPage) Press(ctx context.Context, selector, key string) error {
	k, err := keyFor(key)
	if err != nil {
		return err
	}
	if selector == "" {
		if err := p.page.Context(ctx).Keyboard.Press(k); err != nil {
			return opError(ctx, fmt.Sprintf("pressing %q", key), err)
		}
		return nil
	}
	el, err := p.element(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.Type(k); err != nil {
		return opError(ctx, fmt.Sprintf("pressing %q on %q", key, selector), err)
	}
	return nil
}

func (p *RodPage) WaitForSelector(ctx context.Context, selector string, state ElementState) error {
	pg := p.page.Context(ctx)
	switch state {
	case StateAttached:
		_, err := p.element(ctx, selector)
		return err
	case StateHidden:
		if err := pg.Wait(rod.Eval(jsElementHidden, selector)); err != nil {
			return opError(ctx, fmt.Sprintf("waiting for %q to be hidden", selector), err)
		}
		return nil
	case StateDetached:
		if err := pg.Wait(rod.Eval(jsElementDetached, selector)); err != nil {
			return opError(ctx, fmt.Sprintf("waiting for %q to be detached", selector), err)
		}
		return nil
	default:
		el, err := p.element(ctx, selector)
		if err != nil {
			return err
		}
		if err := el.WaitVisible(); err != nil {
			return opError(ctx, fmt.Sprintf("waiting for %q to be visible", selector), err)
		}
		return nil
	}
}

func (p *RodPage) WaitForNetworkIdle(ctx context.Context) error {
	wait := p.page.Context(ctx).WaitRequestIdle(requestIdleWindow, nil, nil, nil)
	wait()
	if err := ctx.Err(); err != nil {
		return opError(ctx, "waiting for network idle", err)
	}
	return nil
}

func (p *RodPage) WaitForURLExcluding(ctx context.Context, fragment string) error {
	if err := p.page.Context(ctx).Wait(rod.Eval(jsURLExcludes, fragment)); err != nil {
		return opError(ctx, fmt.Sprintf("waiting to leave %q", fragment), err)
	}
	return nil
}

func (p *RodPage) IsVisible(ctx context.Context, selector string) (bool, error) {
	el, err := p.element(ctx, selector)
	if err != nil {
		return false, err
	}
	if err := el.WaitVisible(); err != nil {
		return false, opError(ctx, fmt.Sprintf("waiting for %q to be visible", selector), err)
	}
	return true, nil
}

func (p *RodPage) TextContent(ctx context.Context, selector string) (string, error) {
	el, err := p.element(ctx, selector)
	if err != nil {
		return "", err
	}
	text, err := el.Text()
	if err != nil {
		return "", opError(ctx, fmt.Sprintf("reading text of %q", selector), err)
	}
	return text, nil
}

func (p *RodPage) Screenshot(ctx context.Context, path string, fullPage bool) error {
	data, err := p.page.Context(ctx).Screenshot(fullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return opError(ctx, "capturing screenshot", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing screenshot %q: %w", path, err)
	}
	return nil
}

func (p *RodPage) Download(ctx context.Context, selector, dir string) (string, error) {
	el, err := p.element(ctx, selector)
	if err != nil {
		return "", err
	}

	wait := p.browser.Context(ctx).WaitDownload(dir)
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return "", opError(ctx, fmt.Sprintf("clicking download trigger %q", selector), err)
	}
	info := wait()
	if err := ctx.Err(); err != nil {
		return "", opError(ctx, fmt.Sprintf("waiting for download from %q", selector), err)
	}
	if info == nil {
		return "", fmt.Errorf("download from %q did not start", selector)
	}

	// The browser stores the file under its GUID; give it the suggested name.
	name := filepath.Base(info.SuggestedFilename)
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = info.GUID
	}
	src := filepath.Join(dir, info.GUID)
	dst := filepath.Join(dir, name)
	if src != dst {
		if err := os.Rename(src, dst); err != nil {
			return "", fmt.Errorf("renaming download %q to %q: %w", src, dst, err)
		}
	}
	return dst, nil
}

func (p *RodPage) element(ctx context.Context, selector string) (*rod.Element, error) {
	el, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		return nil, opError(ctx, fmt.Sprintf("locating %q", selector), err)
	}
	return el, nil
}

// opError names the failed operation and marks deadline expiry as a timeout.
func opError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: timed out: %w", op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
