package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pevans/leakwatch/archive"
	"github.com/pevans/leakwatch/config"
	"github.com/pevans/leakwatch/extract"
	"github.com/pevans/leakwatch/fetch"
	"github.com/pevans/leakwatch/notify"
	"github.com/pevans/leakwatch/scraper"
	"github.com/pevans/leakwatch/sites"
	"github.com/pevans/leakwatch/timesource"
	"github.com/pevans/leakwatch/tracker"
)

// scanner holds the collaborators of one scan run.
type scanner struct {
	fetcher   *fetch.Fetcher
	engine    *extract.Engine
	tracker   *tracker.Tracker
	snapshots *fetch.Snapshots
}

func handleScan(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	configPath, verbose := configFlags(fs)
	sitesFlag := fs.String("sites", "", "Comma-separated site keys to scan (TARGET_SITES)")
	noProcess := fs.Bool("no-process", false, "Skip archiving after scraping")
	noTelegram := fs.Bool("no-telegram", false, "Disable Telegram notifications")
	var browserOpts, proxyOpts, scrapingOpts stringList
	fs.Var(&browserOpts, "browser-config", "Override a browser setting (key.path=value, repeatable)")
	fs.Var(&proxyOpts, "proxy-config", "Override a proxy setting (key.path=value, repeatable)")
	fs.Var(&scrapingOpts, "scraping-config", "Override a scraping setting (key.path=value, repeatable)")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath, *verbose)
	if err != nil {
		return fail("Failed to load configuration: %v", err)
	}
	for section, opts := range map[string]stringList{
		"browser":  browserOpts,
		"proxy":    proxyOpts,
		"scraping": scrapingOpts,
	} {
		if err := config.ApplyOverrides(cfg, section, opts); err != nil {
			return fail("Invalid --%s-config: %v", section, err)
		}
	}

	targets := cfg.TargetSites
	if *sitesFlag != "" {
		targets = sites.ParseTargets(*sitesFlag)
	}

	store, err := sites.Load(cfg.Paths.SitesDir, targets)
	if err != nil {
		return fail("Failed to load site configurations: %v", err)
	}
	if store.Len() == 0 {
		return fail("No site configurations found in %s; run 'leakwatch sites init'", cfg.Paths.SitesDir)
	}

	runID := uuid.New()
	log.Printf("INFO: Starting scan %s of %d sites", runID, store.Len())

	browser, err := fetch.NewChrome(ctx, fetch.ChromeOptions{
		ProxyHost:       cfg.Proxy.Proxy.Host,
		ProxyPort:       cfg.Proxy.Proxy.Port,
		UserAgent:       cfg.Browser.UserAgent,
		ExecPath:        cfg.Browser.ChromePath,
		Headful:         cfg.Browser.Headful,
		PageLoadTimeout: config.Seconds(cfg.Browser.Timing.PageLoadTimeout),
	})
	if err != nil {
		return fail("Failed to set up browser: %v", err)
	}
	defer browser.Close()

	fetcher := fetch.New(browser, fetchTiming(cfg.Browser))
	if err := fetcher.CheckTor(ctx); err != nil {
		return fail("Tor connection check failed: %v", err)
	}

	var notifier tracker.Notifier
	var dispatcher *notify.Dispatcher
	if cfg.Telegram.Enabled && !*noTelegram {
		dispatcher = newDispatcher(cfg)
		if dispatcher.Ledger != nil {
			defer dispatcher.Ledger.Close()
		}
		notifier = dispatcher
	} else {
		log.Printf("INFO: Telegram notifications disabled")
	}

	engine := extract.New()
	engine.Verbose = cfg.Debug

	s := &scanner{
		fetcher: fetcher,
		engine:  engine,
		tracker: tracker.New(cfg.Paths.PerGroupDir, cfg.Paths.OutputDir, notifier),
		snapshots: &fetch.Snapshots{
			Dir:        cfg.Paths.SnapshotsDir,
			Enabled:    cfg.Scraping.Snapshots.SaveHTML,
			MaxPerSite: cfg.Scraping.Snapshots.MaxSnapshotsPerSite,
			Cleanup:    cfg.Scraping.Snapshots.CleanupOldSnapshots,
		},
	}

	var scanned []string
	total, discovered := 0, 0
	for _, site := range store.All() {
		if ctx.Err() != nil {
			log.Printf("WARN: Scan interrupted")
			break
		}

		result, ok := s.scanSite(ctx, site)
		if !ok {
			continue
		}
		scanned = append(scanned, site.Name())
		total += result.Total
		discovered += result.New
	}

	log.Printf("INFO: Scan %s complete: %d sites, %d entities, %d new", runID, len(scanned), total, discovered)

	if dispatcher != nil {
		if !dispatcher.NotifyScan(ctx, scanned, total, discovered) {
			log.Printf("WARN: Failed to send scan summary")
		}
	}

	if *noProcess {
		log.Printf("INFO: Skipping entity processing (--no-process)")
		return 0
	}

	clock := timesource.New(cfg.TimeSources)
	clock.Verbose = cfg.Debug
	if _, err := runArchive(ctx, cfg, clock); err != nil && !errors.Is(err, archive.ErrNoValidEntities) {
		log.Printf("ERROR: Entity processing failed: %v", err)
	}

	return 0
}

// scanSite fetches, extracts and reconciles one site. Failures are logged
// and reported as !ok so the scan moves on to the next site.
func (s *scanner) scanSite(ctx context.Context, site *scraper.SiteDescriptor) (tracker.UpdateResult, bool) {
	log.Printf("INFO: Processing site: %s", site.Name())

	_, html, err := s.fetcher.Fetch(ctx, site)
	if err != nil {
		log.Printf("ERROR: Failed to fetch %s: %v", site.Name(), err)
		return tracker.UpdateResult{}, false
	}

	if _, err := s.snapshots.Save(site.SiteKey, html); err != nil {
		log.Printf("ERROR: Failed to save HTML snapshot for %s: %v", site.Name(), err)
	}

	entities, err := s.engine.ExtractSite(html, site)
	if err != nil {
		log.Printf("ERROR: Failed to extract entities from %s: %v", site.Name(), err)
		return tracker.UpdateResult{}, false
	}

	result, err := s.tracker.Update(ctx, tracker.MetaFor(site), entities)
	if err != nil {
		log.Printf("ERROR: Failed to update entities for %s: %v", site.Name(), err)
		return tracker.UpdateResult{}, false
	}

	log.Printf("INFO: Site %s: %d entities, %d new, %d updated", site.Name(), result.Total, result.New, result.Updated)
	return result, true
}

// newDispatcher builds the Telegram dispatcher. A ledger that cannot be
// opened is logged and left out.
func newDispatcher(cfg *config.Config) *notify.Dispatcher {
	tg := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChannelID, cfg.Telegram.APIBase)
	if tg.Token == "" || tg.ChatID == "" {
		log.Printf("WARN: Telegram credentials not found; notifications will fail")
	}

	var ledger *notify.Ledger
	if path := cfg.Paths.LedgerPath; path != "" {
		if err := ensureDir(filepath.Dir(path)); err != nil {
			log.Printf("ERROR: Failed to create ledger directory: %v", err)
		} else if l, err := notify.NewLedger(path); err != nil {
			log.Printf("ERROR: Failed to open notification ledger: %v", err)
		} else {
			ledger = l
		}
	}

	return notify.NewDispatcher(tg, ledger)
}

// fetchTiming builds the page timing from the browser config. Waits that are
// not set fall back to the fetcher's defaults.
func fetchTiming(b config.BrowserConfig) fetch.Timing {
	timing := fetch.DefaultTiming()
	timing.AntiBot = b.AntiBot.Enabled
	timing.Randomize = b.AntiBot.RandomizeTiming

	if b.Timing.MinWaitTime > 0 {
		timing.MinWait = config.Seconds(b.Timing.MinWaitTime)
	}
	if b.Timing.MaxWaitTime > 0 {
		timing.MaxWait = config.Seconds(b.Timing.MaxWaitTime)
	}
	if b.Timing.TorCheckWaitTime > 0 {
		timing.TorCheckWait = config.Seconds(b.Timing.TorCheckWaitTime)
	}
	return timing
}
