// Package fetch retrieves leak-site pages over Tor. It walks a site's
// mirrors until one serves a page that passes the site's verification rule.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/pevans/leakwatch/scraper"
)

// Defaults for browser timing.
const (
	DefaultMinWait         = 10 * time.Second
	DefaultMaxWait         = 20 * time.Second
	DefaultTorCheckWait    = 3 * time.Second
	DefaultPageLoadTimeout = 120 * time.Second
)

// TorCheckURL reports whether the request arrived through Tor.
const TorCheckURL = "https://check.torproject.org/"

var (
	// ErrAllMirrorsFailed is returned when no mirror served a verified page.
	ErrAllMirrorsFailed = errors.New("all mirrors failed")
	// ErrNotTor is returned when the Tor check page does not confirm Tor.
	ErrNotTor = errors.New("not connected through Tor")
)

// Timing controls the delays inserted after each navigation.
type Timing struct {
	MinWait      time.Duration
	MaxWait      time.Duration
	TorCheckWait time.Duration
	// AntiBot enables the post-navigation wait at all.
	AntiBot bool
	// Randomize picks a wait between MinWait and MaxWait instead of MinWait.
	Randomize bool
}

// DefaultTiming returns the built-in timing.
func DefaultTiming() Timing {
	return Timing{
		MinWait:      DefaultMinWait,
		MaxWait:      DefaultMaxWait,
		TorCheckWait: DefaultTorCheckWait,
		AntiBot:      true,
		Randomize:    true,
	}
}

// Fetcher loads and verifies site pages.
type Fetcher struct {
	Browser Browser
	Timing  Timing
	// float returns a value in [0, 1) for randomized waits.
	float func() float64
}

// New returns a fetcher using browser.
func New(browser Browser, timing Timing) *Fetcher {
	return &Fetcher{
		Browser: browser,
		Timing:  timing,
		float:   rand.Float64,
	}
}

// WaitTime returns the delay to apply after a navigation.
func (f *Fetcher) WaitTime() time.Duration {
	t := f.Timing
	if !t.AntiBot {
		return 0
	}
	if !t.Randomize || t.MaxWait <= t.MinWait {
		return t.MinWait
	}
	return t.MinWait + time.Duration(f.float()*float64(t.MaxWait-t.MinWait))
}

// MirrorURL turns a bare onion host into an http URL.
func MirrorURL(mirror string) string {
	if strings.Contains(mirror, "://") {
		return mirror
	}
	return "http://" + mirror
}

// Fetch tries each mirror of site in order and returns the first page that
// passes verification.
func (f *Fetcher) Fetch(ctx context.Context, site *scraper.SiteDescriptor) (mirror, html string, err error) {
	for _, m := range site.Mirrors {
		if err := ctx.Err(); err != nil {
			return "", "", err
		}

		url := MirrorURL(m)
		log.Printf("INFO: Trying %s mirror: %s", site.Name(), m)

		wait := f.WaitTime()
		if wait > 0 {
			log.Printf("INFO: Waiting %.2f seconds for anti-bot measures...", wait.Seconds())
		}

		page, err := f.Browser.Load(ctx, url, wait)
		if err != nil {
			log.Printf("ERROR: Error visiting %s: %v", url, err)
			continue
		}

		if !Verify(page, site.Verification) {
			log.Printf("WARN: %s '%s' not found in page for %s, might not be the correct site",
				site.Verification.Type, site.Verification.Value, site.Name())
			continue
		}

		log.Printf("INFO: Successfully connected to %s", m)
		return m, page, nil
	}

	return "", "", fmt.Errorf("%s: %w", site.Name(), ErrAllMirrorsFailed)
}

// Verify reports whether html satisfies the verification rule. An empty
// type is treated as text.
func Verify(html string, v scraper.Verification) bool {
	switch v.Type {
	case "", scraper.VerifyText:
		return strings.Contains(html, v.Value)
	case scraper.VerifyClass:
		return strings.Contains(html, `class="`+v.Value+`"`) ||
			strings.Contains(html, `class='`+v.Value+`'`)
	case scraper.VerifySelector:
		sel, err := cascadia.Compile(v.Value)
		if err != nil {
			log.Printf("WARN: Invalid verification selector %q: %v", v.Value, err)
			return false
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return false
		}
		return doc.FindMatcher(sel).Length() > 0
	default:
		return false
	}
}

// CheckTor loads the Tor Project check page and confirms the connection
// goes through Tor.
func (f *Fetcher) CheckTor(ctx context.Context) error {
	page, err := f.Browser.Load(ctx, TorCheckURL, f.Timing.TorCheckWait)
	if err != nil {
		return fmt.Errorf("failed to connect to Tor: %w", err)
	}

	if !strings.Contains(page, "Congratulations") {
		return ErrNotTor
	}

	log.Printf("INFO: Successfully connected to Tor!")
	return nil
}
