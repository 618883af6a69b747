package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

var _ Page = (*RodPage)(nil)

// Config is the workflow's browser block.
type Config struct {
	// Persistent keeps the profile in ContextDir across runs so established
	// logins and remembered second-factor devices survive. Persistent
	// sessions always open a visible window.
	Persistent bool   `yaml:"persistent" json:"persistent"`
	ContextDir string `yaml:"context_dir,omitempty" json:"context_dir,omitempty"`
	Headless   bool   `yaml:"headless" json:"headless"`
	// Bin pins the browser executable. When empty a locally installed
	// Chrome/Chromium is used, or one is fetched.
	Bin string `yaml:"bin,omitempty" json:"bin,omitempty"`
}

// DefaultProfileDir is where persistent sessions keep their profile when the
// workflow does not name one.
func DefaultProfileDir() string {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	return filepath.Join(cacheDir, "portalstep", "profile")
}

// Session owns the launched browser process and the one page of a run.
type Session struct {
	cfg      Config
	launcher *launcher.Launcher
	browser  *rod.Browser
	rodPage  *rod.Page
	page     *RodPage

	closeOnce sync.Once
	closeErr  error
}

// Acquire launches a browser for cfg and opens the run's page. Any failure
// tears down whatever was started.
func Acquire(ctx context.Context, cfg Config) (*Session, error) {
	l, err := newLauncher(cfg)
	if err != nil {
		return nil, err
	}

	controlURL, err := l.Context(ctx).Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	s := &Session{cfg: cfg, launcher: l}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		s.Close()
		return nil, fmt.Errorf("connecting to browser at %s: %w", controlURL, err)
	}
	s.browser = b

	owner := b
	if !cfg.Persistent {
		incognito, err := b.Incognito()
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("creating isolated browser context: %w", err)
		}
		owner = incognito
	}

	pg, err := owner.Page(proto.TargetCreateTarget{})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("opening page: %w", err)
	}
	s.rodPage = pg
	s.page = NewRodPage(owner, pg)
	return s, nil
}

// Page returns the run's page.
func (s *Session) Page() Page {
	return s.page
}

// Persistent reports whether the profile outlives the session.
func (s *Session) Persistent() bool {
	return s.cfg.Persistent
}

// Close releases the page, the browser connection and the browser process.
// Ephemeral profiles are deleted. Safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.rodPage != nil {
			if err := s.rodPage.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing page: %w", err))
			}
		}
		if s.browser != nil {
			if err := s.browser.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing browser: %w", err))
			}
		}
		if s.launcher != nil {
			s.launcher.Kill()
			if !s.cfg.Persistent {
				s.launcher.Cleanup()
			}
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

func newLauncher(cfg Config) (*launcher.Launcher, error) {
	l := launcher.New()

	switch {
	case cfg.Bin != "":
		l = l.Bin(cfg.Bin)
	default:
		if path, found := launcher.LookPath(); found {
			l = l.Bin(path)
		}
	}

	if !cfg.Persistent {
		return l.Headless(cfg.Headless), nil
	}

	dir := cfg.ContextDir
	if dir == "" {
		dir = DefaultProfileDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating browser profile directory %q: %w", dir, err)
	}
	return l.UserDataDir(dir).Headless(false), nil
}
