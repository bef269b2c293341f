// Package sites loads and stores the descriptors of monitored leak sites.
// Each descriptor lives in its own JSON file named after its site key.
package sites

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pevans/leakwatch/jsonfile"
	"github.com/pevans/leakwatch/scraper"
)

// Custom errors for site operations
var (
	ErrSiteNotFound = errors.New("site not found")
	ErrNoSiteKey    = errors.New("descriptor has no site_key")
)

// Store holds the validated descriptors loaded from a directory.
type Store struct {
	dir   string
	sites map[string]*scraper.SiteDescriptor
}

// Load reads every *.json descriptor in dir. Descriptors without a site key,
// malformed files and descriptors that fail validation are logged and
// skipped. When targets is non-empty only the named site keys are kept.
func Load(dir string, targets []string) (*Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read site config directory: %w", err)
	}

	store := &Store{
		dir:   dir,
		sites: make(map[string]*scraper.SiteDescriptor),
	}

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}

		path := filepath.Join(dir, e.Name())
		d, err := loadDescriptor(path)
		if err != nil {
			if errors.Is(err, ErrNoSiteKey) {
				log.Printf("WARN: Config file %s has no site_key, skipping", e.Name())
			} else {
				log.Printf("ERROR: Error loading config file %s: %v", e.Name(), err)
			}
			continue
		}

		if len(targets) > 0 && !slices.Contains(targets, d.SiteKey) {
			continue
		}

		store.sites[d.SiteKey] = d
		log.Printf("INFO: Loaded configuration for %s", d.Name())
	}

	for _, key := range targets {
		if _, ok := store.sites[key]; !ok {
			log.Printf("WARN: Target site %q has no configuration", key)
		}
	}

	return store, nil
}

// loadDescriptor decodes and validates a single descriptor file.
func loadDescriptor(path string) (*scraper.SiteDescriptor, error) {
	var d scraper.SiteDescriptor
	if err := jsonfile.Load(path, &d); err != nil {
		return nil, err
	}

	if d.SiteKey == "" {
		return nil, ErrNoSiteKey
	}

	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid descriptor %s: %w", d.SiteKey, err)
	}

	return &d, nil
}

// ParseTargets splits a comma-separated site list such as the TARGET_SITES
// environment variable. Empty entries are dropped.
func ParseTargets(s string) []string {
	var targets []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			targets = append(targets, part)
		}
	}
	return targets
}

// Get returns the descriptor for key.
func (s *Store) Get(key string) (*scraper.SiteDescriptor, error) {
	d, ok := s.sites[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSiteNotFound, key)
	}
	return d, nil
}

// Keys returns the loaded site keys in sorted order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.sites))
	for k := range s.sites {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// All returns the loaded descriptors ordered by site key.
func (s *Store) All() []*scraper.SiteDescriptor {
	all := make([]*scraper.SiteDescriptor, 0, len(s.sites))
	for _, k := range s.Keys() {
		all = append(all, s.sites[k])
	}
	return all
}

// Len returns the number of loaded descriptors.
func (s *Store) Len() int {
	return len(s.sites)
}

// Save validates d, writes it to <dir>/<site_key>.json and makes it
// available through the store.
func (s *Store) Save(d *scraper.SiteDescriptor) error {
	if d.SiteKey == "" {
		return ErrNoSiteKey
	}
	if err := d.Validate(); err != nil {
		return fmt.Errorf("invalid descriptor %s: %w", d.SiteKey, err)
	}

	path := filepath.Join(s.dir, d.SiteKey+".json")
	if err := jsonfile.Save(path, d, jsonfile.Options{}); err != nil {
		return fmt.Errorf("failed to save site config: %w", err)
	}

	s.sites[d.SiteKey] = d
	return nil
}

// Defaults returns the built-in descriptors keyed by site key.
func Defaults() (map[string]*scraper.SiteDescriptor, error) {
	entries, err := defaultFS.ReadDir("defaults")
	if err != nil {
		return nil, fmt.Errorf("failed to read built-in descriptors: %w", err)
	}

	defaults := make(map[string]*scraper.SiteDescriptor, len(entries))
	for _, e := range entries {
		data, err := defaultFS.ReadFile("defaults/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}

		var d scraper.SiteDescriptor
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", e.Name(), err)
		}
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("invalid built-in descriptor %s: %w", e.Name(), err)
		}

		defaults[d.SiteKey] = &d
	}

	return defaults, nil
}

// Init writes the built-in descriptors named by keys into dir, or all of
// them when keys is empty. Existing files are left untouched. It returns
// the keys that were written.
func Init(dir string, keys []string) ([]string, error) {
	defaults, err := Defaults()
	if err != nil {
		return nil, err
	}

	if len(keys) == 0 {
		for k := range defaults {
			keys = append(keys, k)
		}
		slices.Sort(keys)
	}

	var created []string
	for _, key := range keys {
		d, ok := defaults[key]
		if !ok {
			return created, fmt.Errorf("no default configuration for %s: %w", key, ErrSiteNotFound)
		}

		path := filepath.Join(dir, key+".json")
		err := jsonfile.Save(path, d, jsonfile.Options{Exclusive: true})
		if errors.Is(err, os.ErrExist) {
			log.Printf("INFO: Configuration file for %s already exists at %s", key, path)
			continue
		}
		if err != nil {
			return created, err
		}

		log.Printf("INFO: Created configuration file for %s at %s", key, path)
		created = append(created, key)
	}

	return created, nil
}
