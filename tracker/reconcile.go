// Package tracker reconciles freshly extracted entities against the
// previous per-site snapshot and records what is new.
package tracker

import (
	"log"
	"reflect"
	"time"

	"github.com/pevans/leakwatch/entity"
	"github.com/pevans/leakwatch/scraper"
)

// SiteMeta identifies the site a scrape came from.
type SiteMeta struct {
	Key          string
	Name         string
	SnapshotFile string
}

// MetaFor returns the metadata of a site descriptor.
func MetaFor(d *scraper.SiteDescriptor) SiteMeta {
	return SiteMeta{
		Key:          d.SiteKey,
		Name:         d.Name(),
		SnapshotFile: d.SnapshotFile(),
	}
}

// Reconciliation is the outcome of comparing a fresh scrape with the
// previous snapshot.
type Reconciliation struct {
	// Snapshot is the site's complete current state.
	Snapshot *entity.Database
	// Discovered holds entities never seen before, attributed to the site.
	Discovered []entity.Entity
	// Changed counts known entities whose fields differ from the previous
	// snapshot.
	Changed int
}

// Reconcile classifies every fresh entity as new or known. Known entities
// keep the first_seen of the previous snapshot; new ones are stamped with
// now. The returned snapshot is the fresh list only, so entities that left
// the site drop out of it. Entities without id or domain are discarded, and
// repeated ids keep their first occurrence.
func Reconcile(fresh []entity.Entity, previous *entity.Database, site SiteMeta, now time.Time) Reconciliation {
	known := make(map[string]entity.Entity)
	if previous != nil {
		for _, e := range previous.Entities {
			if e.ID != "" {
				known[e.ID] = e
			}
		}
	}

	stamp := entity.FormatTime(now)
	current := make([]entity.Entity, 0, len(fresh))
	seen := make(map[string]bool, len(fresh))
	var discovered []entity.Entity
	changed := 0

	for _, e := range fresh {
		if !e.HasIdentity() {
			log.Printf("WARN: Dropping entity without id or domain from %s: %q", site.Name, e.Label())
			continue
		}
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true

		prev, ok := known[e.ID]
		if !ok {
			e.FirstSeen = stamp
			current = append(current, e)

			found := e
			found.RansomwareGroup = site.Name
			found.GroupKey = site.Key
			discovered = append(discovered, found)

			log.Printf("INFO: New entity added: %s", e.Label())
			continue
		}

		e.FirstSeen = prev.FirstSeen
		if !reflect.DeepEqual(e, prev) {
			changed++
			log.Printf("INFO: Updated entity: %s", e.Label())
		}
		current = append(current, e)
	}

	return Reconciliation{
		Snapshot:   entity.NewDatabase(current, stamp),
		Discovered: discovered,
		Changed:    changed,
	}
}
