package fetch

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// DefaultMaxSnapshots is the number of HTML snapshots kept per site.
const DefaultMaxSnapshots = 5

// Snapshots stores raw page HTML for later analysis of extraction failures.
type Snapshots struct {
	Dir        string
	Enabled    bool
	MaxPerSite int
	Cleanup    bool
	Now        func() time.Time
}

// Save writes html as <dir>/<site>/<site>_snapshot_<timestamp>.html and
// prunes old snapshots. It returns "" when snapshots are disabled.
func (s *Snapshots) Save(siteKey, html string) (string, error) {
	if !s.Enabled {
		log.Printf("INFO: HTML snapshot saving is disabled in configuration. Skipping.")
		return "", nil
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	dir := filepath.Join(s.Dir, siteKey)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	name := fmt.Sprintf("%s_snapshot_%s.html", siteKey, now().UTC().Format("20060102_150405"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	log.Printf("INFO: Saved HTML snapshot to %s", path)

	if s.Cleanup {
		keep := s.MaxPerSite
		if keep <= 0 {
			keep = DefaultMaxSnapshots
		}
		if err := prune(dir, keep); err != nil {
			log.Printf("ERROR: Error cleaning up old snapshots: %v", err)
		}
	}

	return path, nil
}

// prune removes the oldest .html files in dir until keep remain.
func prune(dir string, keep int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	type snapshot struct {
		name string
		mod  time.Time
	}

	var files []snapshot
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".html") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return err
		}
		files = append(files, snapshot{name: e.Name(), mod: info.ModTime()})
	}

	if len(files) <= keep {
		return nil
	}

	slices.SortFunc(files, func(a, b snapshot) int {
		if c := a.mod.Compare(b.mod); c != 0 {
			return c
		}
		return strings.Compare(a.name, b.name)
	})

	for _, f := range files[:len(files)-keep] {
		if err := os.Remove(filepath.Join(dir, f.name)); err != nil {
			return err
		}
		log.Printf("INFO: Removed old snapshot: %s", f.name)
	}

	return nil
}
