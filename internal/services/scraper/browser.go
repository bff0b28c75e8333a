package scraper

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scout/internal/common"
	"github.com/ternarybob/scout/internal/interfaces"
)

// Browser owns one exclusive Chrome session for a scraper run. Sessions are
// never shared between workers.
type Browser struct {
	config          *common.ScraperConfig
	logger          arbor.ILogger
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	allocatorCancel context.CancelFunc
	rng             *rand.Rand
}

// NewBrowser starts a Chrome session with anti-detection options and verifies
// it responds before handing it to the caller
func NewBrowser(ctx context.Context, config *common.ScraperConfig, logger arbor.ILogger) (*Browser, error) {
	b := &Browser{
		config: config,
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(ctx, b.buildAllocatorOptions()...)
	b.allocatorCancel = allocatorCancel

	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	b.browserCtx = browserCtx
	b.browserCancel = browserCancel

	// Startup test: an unresponsive browser fails the task before any
	// navigation work is queued
	testCtx, testCancel := context.WithTimeout(browserCtx, 15*time.Second)
	defer testCancel()
	if err := chromedp.Run(testCtx,
		chromedp.Navigate("about:blank"),
		emulation.SetDeviceMetricsOverride(1920, 1080, 1.0, false),
	); err != nil {
		b.Close()
		return nil, fmt.Errorf("%w: browser startup failed: %v", interfaces.ErrUpstreamBrowser, err)
	}

	logger.Debug().Msg("Browser session started")
	return b, nil
}

// buildAllocatorOptions creates Chrome allocator options. Container
// workarounds (no-sandbox, shared memory) plus automation fingerprint
// suppression.
func (b *Browser) buildAllocatorOptions() []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoSandbox,
		chromedp.UserAgent(b.config.UserAgent),

		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("excludeSwitches", "enable-automation"),
		chromedp.Flag("useAutomationExtension", false),

		chromedp.WindowSize(1920, 1080),
	}

	if b.config.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	}

	return opts
}

// Navigate loads a URL, waits for rendering, injects the stealth script and
// returns the rendered HTML plus the URL actually landed on (which differs
// from the target on bot challenges and redirects)
func (b *Browser) Navigate(ctx context.Context, targetURL string) (html string, landedURL string, err error) {
	navCtx, cancel := context.WithTimeout(b.browserCtx, b.config.NavTimeout)
	defer cancel()

	// Propagate caller cancellation into the browser context
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	err = chromedp.Run(navCtx,
		chromedp.Navigate(targetURL),
		chromedp.Sleep(2*time.Second),
		chromedp.Evaluate(stealthJS, nil),
		chromedp.OuterHTML("html", &html),
		chromedp.Location(&landedURL),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
		return "", "", fmt.Errorf("navigation failed: %w", err)
	}

	return html, landedURL, nil
}

// HumanDelay sleeps a randomized interval between navigations to reduce bot
// detection. Returns early on cancellation.
func (b *Browser) HumanDelay(ctx context.Context) {
	minDelay := b.config.MinHumanDelay
	maxDelay := b.config.MaxHumanDelay
	if maxDelay <= minDelay {
		maxDelay = minDelay + time.Millisecond
	}

	jitter := minDelay + time.Duration(b.rng.Int63n(int64(maxDelay-minDelay)))
	select {
	case <-ctx.Done():
	case <-time.After(jitter):
	}
}

// Close tears down the browser session
func (b *Browser) Close() {
	if b.browserCancel != nil {
		b.browserCancel()
	}
	if b.allocatorCancel != nil {
		b.allocatorCancel()
	}
}

// stealthJS suppresses the headless fingerprints the site checks for
const stealthJS = `
	Object.defineProperty(navigator, 'webdriver', {
		get: () => undefined,
		configurable: true
	});

	Object.defineProperty(navigator, 'plugins', {
		get: () => {
			const plugins = [
				{ name: 'Chrome PDF Plugin', filename: 'internal-pdf-viewer' },
				{ name: 'Chrome PDF Viewer', filename: 'mhjfbmdgcfjbbpaeojofohoefgiehjai' },
				{ name: 'Native Client', filename: 'internal-nacl-plugin' }
			];
			plugins.length = 3;
			return plugins;
		},
		configurable: true
	});

	Object.defineProperty(navigator, 'languages', {
		get: () => ['en-US', 'en'],
		configurable: true
	});

	if (!window.chrome) window.chrome = {};
	window.chrome.runtime = { id: undefined };

	const getParameter = WebGLRenderingContext.prototype.getParameter;
	WebGLRenderingContext.prototype.getParameter = function(parameter) {
		if (parameter === 37445) return 'Intel Inc.';
		if (parameter === 37446) return 'Intel Iris OpenGL Engine';
		return getParameter.call(this, parameter);
	};
`
