// Package browser provides the live lookup surface: a places.Provider that
// opens headless Chrome sessions through chromedp.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/placescraper/internal/htmlview"
	"github.com/JakeFAU/placescraper/internal/places"
)

// ErrClosed is returned by operations on a closed page.
var ErrClosed = errors.New("browser: page closed")

const defaultNavTimeout = 45 * time.Second

// hideWebdriver keeps pages from detecting the automation flag.
const hideWebdriver = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`

// Config controls how browser sessions are launched.
type Config struct {
	Headless      bool          `mapstructure:"headless"`
	ExecPath      string        `mapstructure:"exec_path"`
	UserAgent     string        `mapstructure:"user_agent"`
	WindowWidth   int           `mapstructure:"window_width"`
	WindowHeight  int           `mapstructure:"window_height"`
	DisableImages bool          `mapstructure:"disable_images"`
	NavTimeout    time.Duration `mapstructure:"nav_timeout"`
	// MaxParallel caps concurrently open sessions; zero means unbounded.
	MaxParallel int `mapstructure:"max_parallel"`
}

// Provider launches one browser process per session.
type Provider struct {
	cfg     Config
	limiter chan struct{}
	logger  *zap.Logger
}

var _ places.Provider = (*Provider)(nil)

// New creates a Provider.
func New(cfg Config, logger *zap.Logger) (*Provider, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = defaultNavTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}
	return &Provider{cfg: cfg, limiter: limiter, logger: logger}, nil
}

func (p *Provider) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)
	if p.cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	opts = append(opts,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("lang", "id-ID"),
	)
	if p.cfg.WindowWidth > 0 && p.cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(p.cfg.WindowWidth, p.cfg.WindowHeight))
	}
	if p.cfg.DisableImages {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}
	if p.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(p.cfg.UserAgent))
	}
	if p.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(p.cfg.ExecPath))
	}
	return opts
}

// Open launches a browser and returns its first tab. The session outlives
// ctx; it ends only when the page is closed.
func (p *Provider) Open(ctx context.Context) (places.Page, error) {
	if err := p.acquire(ctx); err != nil {
		return nil, err
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), p.allocatorOptions()...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	pg := &Page{
		tab:        tabCtx,
		cancel:     func() { tabCancel(); allocCancel() },
		release:    p.release,
		navTimeout: p.cfg.NavTimeout,
	}
	if err := pg.run(ctx, p.cfg.NavTimeout, p.setupAction()); err != nil {
		_ = pg.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	p.logger.Debug("browser session opened")
	return pg, nil
}

func (p *Provider) setupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if p.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(p.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		if _, err := cdppage.AddScriptToEvaluateOnNewDocument(hideWebdriver).Do(ctx); err != nil {
			return fmt.Errorf("mask webdriver: %w", err)
		}
		return nil
	})
}

func (p *Provider) acquire(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	select {
	case p.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("browser slot wait canceled: %w", ctx.Err())
	}
}

func (p *Provider) release() {
	if p.limiter == nil {
		return
	}
	select {
	case <-p.limiter:
	default:
	}
}

// Page is one live browser tab.
type Page struct {
	tab        context.Context
	cancel     context.CancelFunc
	release    func()
	navTimeout time.Duration

	once   sync.Once
	closed bool
	mu     sync.Mutex
}

var _ places.Page = (*Page)(nil)

// run executes actions on the tab, bounded by timeout and by ctx. A failure
// after the tab itself died is reported as places.ErrSessionBroken.
func (pg *Page) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	pg.mu.Lock()
	closed := pg.closed
	pg.mu.Unlock()
	if closed {
		return ErrClosed
	}
	runCtx, cancel := context.WithCancel(pg.tab)
	defer cancel()
	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, timeout)
		defer cancelTimeout()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if pg.tab.Err() != nil {
			return fmt.Errorf("%w: %w", places.ErrSessionBroken, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// Navigate loads url and waits for the document body.
func (pg *Page) Navigate(ctx context.Context, url string) error {
	return pg.run(ctx, pg.navTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// Location returns the current URL.
func (pg *Page) Location(ctx context.Context) (string, error) {
	var loc string
	if err := pg.run(ctx, pg.navTimeout, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// Snapshot captures the rendered document as a static view.
func (pg *Page) Snapshot(ctx context.Context) (places.Node, error) {
	var html string
	if err := pg.run(ctx, pg.navTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return htmlview.Parse(html)
}

// WaitFor blocks until selector is visible or timeout elapses.
func (pg *Page) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = pg.navTimeout
	}
	if err := pg.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("wait for %q: %w", selector, places.ErrNotFound)
		}
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	return nil
}

// ScrollToEnd scrolls the first element matching selector to its bottom.
func (pg *Page) ScrollToEnd(ctx context.Context, selector string) error {
	var ok bool
	if err := pg.run(ctx, pg.navTimeout, chromedp.Evaluate(scrollScript(selector), &ok)); err != nil {
		return fmt.Errorf("scroll %q: %w", selector, err)
	}
	if !ok {
		return fmt.Errorf("scroll %q: %w", selector, places.ErrNotFound)
	}
	return nil
}

// Click clicks the index-th element matching selector.
func (pg *Page) Click(ctx context.Context, selector string, index int) error {
	var ok bool
	if err := pg.run(ctx, pg.navTimeout, chromedp.Evaluate(clickScript(selector, index), &ok)); err != nil {
		return fmt.Errorf("click %q[%d]: %w", selector, index, err)
	}
	if !ok {
		return fmt.Errorf("click %q[%d]: %w", selector, index, places.ErrNotFound)
	}
	return nil
}

// Back navigates one step back in history.
func (pg *Page) Back(ctx context.Context) error {
	return pg.run(ctx, pg.navTimeout, chromedp.NavigateBack())
}

// Close shuts the tab and its browser process. Closing twice is a no-op.
func (pg *Page) Close() error {
	pg.once.Do(func() {
		pg.mu.Lock()
		pg.closed = true
		pg.mu.Unlock()
		pg.cancel()
		if pg.release != nil {
			pg.release()
		}
	})
	return nil
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func scrollScript(selector string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	el.scrollTop = el.scrollHeight;
	return true;
})()`, quote(selector))
}

func clickScript(selector string, index int) string {
	return fmt.Sprintf(`(() => {
	const els = document.querySelectorAll(%s);
	if (els.length <= %d) return false;
	els[%d].scrollIntoView({block: 'center'});
	els[%d].click();
	return true;
})()`, quote(selector), index, index, index)
}
