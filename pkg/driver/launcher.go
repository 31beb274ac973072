package driver

import (
	"fmt"
	"io"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/driftlens/pkg/config"
)

// Launcher owns the Playwright driver process.
type Launcher struct {
	pw *playwright.Playwright
}

// Session is one launched browser with a single page.
type Session struct {
	Environment string
	Browser     playwright.Browser
	Context     playwright.BrowserContext
	Page        playwright.Page
}

// NewLauncher installs the browsers if needed and starts Playwright.
func NewLauncher(browsers []string) (*Launcher, error) {
	opts := &playwright.RunOptions{
		Browsers: browsers,
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if err := playwright.Install(opts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}
	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	return &Launcher{pw: pw}, nil
}

func (l *Launcher) browserType(env string) (playwright.BrowserType, error) {
	switch env {
	case "chromium":
		return l.pw.Chromium, nil
	case "webkit":
		return l.pw.WebKit, nil
	case "firefox":
		return l.pw.Firefox, nil
	default:
		return nil, fmt.Errorf("unknown browser %q", env)
	}
}

// Open launches env and navigates a fresh page to cfg.URL.
func (l *Launcher) Open(env string, cfg config.Driver) (*Session, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("driver url is required")
	}
	bt, err := l.browserType(env)
	if err != nil {
		return nil, err
	}

	browser, err := bt.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch %s: %w", env, err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  cfg.ViewportWidth,
			Height: cfg.ViewportHeight,
		},
	})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(float64(cfg.ReadyTimeout.Milliseconds()))

	if _, err := page.Goto(cfg.URL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	}); err != nil {
		page.Close()
		bctx.Close()
		browser.Close()
		return nil, fmt.Errorf("navigation failed: %w", err)
	}

	return &Session{Environment: env, Browser: browser, Context: bctx, Page: page}, nil
}

// Close releases the session's page, context and browser.
func (s *Session) Close() error {
	_ = s.Page.Close()
	_ = s.Context.Close()
	return s.Browser.Close()
}

// Stop shuts down Playwright.
func (l *Launcher) Stop() error {
	if err := l.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}
