package fetch

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/chromedp/chromedp"
)

// Browser loads pages through the anonymizing proxy.
type Browser interface {
	// Load navigates to url, waits for wait, and returns the page HTML.
	Load(ctx context.Context, url string, wait time.Duration) (string, error)
	// Close releases the browser.
	Close()
}

// ChromeOptions configures the headless Chrome browser.
type ChromeOptions struct {
	ProxyHost string
	ProxyPort int
	UserAgent string
	// ExecPath overrides the Chrome binary; empty uses the default lookup.
	ExecPath string
	// Headful shows the browser window.
	Headful         bool
	PageLoadTimeout time.Duration
}

// Chrome is a Browser backed by chromedp. One tab is reused for every page.
type Chrome struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	timeout     time.Duration
}

// NewChrome starts a Chrome instance routed through the SOCKS proxy.
func NewChrome(ctx context.Context, opts ChromeOptions) (*Chrome, error) {
	proxy := fmt.Sprintf("socks5://%s:%d", opts.ProxyHost, opts.ProxyPort)

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !opts.Headful),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.ProxyServer(proxy),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// Start the browser now so setup failures surface here
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	timeout := opts.PageLoadTimeout
	if timeout <= 0 {
		timeout = DefaultPageLoadTimeout
	}

	log.Printf("INFO: Browser started with proxy %s", proxy)

	return &Chrome{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		timeout:     timeout,
	}, nil
}

// Load implements Browser.
func (c *Chrome) Load(ctx context.Context, url string, wait time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	runCtx, cancel := context.WithTimeout(c.ctx, c.timeout+wait)
	defer cancel()

	// Stop the page load if the caller gives up
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(wait),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("failed to load %s: %w", url, err)
	}

	return html, nil
}

// Close implements Browser.
func (c *Chrome) Close() {
	c.cancelTab()
	c.cancelAlloc()
}
