package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/pevans/leakwatch/entity"
	"github.com/pevans/leakwatch/jsonfile"
)

// StagingFile is the cross-site accumulator of newly discovered entities.
const StagingFile = "new_entities.json"

// batchStampLayout names timestamped batch files.
const batchStampLayout = "20060102_150405"

// Notifier announces a newly discovered entity. It reports whether delivery
// succeeded.
type Notifier interface {
	NotifyEntity(ctx context.Context, e entity.Entity, siteName string) bool
}

// Tracker persists reconciliation results.
type Tracker struct {
	// SnapshotDir holds one snapshot file per site.
	SnapshotDir string
	// OutputDir holds the staging file and the batch files.
	OutputDir string
	// Notifier, if set, is told about every new entity.
	Notifier Notifier
	// Now supplies the reconciliation timestamp.
	Now func() time.Time
}

// New returns a tracker writing under the given directories.
func New(snapshotDir, outputDir string, notifier Notifier) *Tracker {
	return &Tracker{
		SnapshotDir: snapshotDir,
		OutputDir:   outputDir,
		Notifier:    notifier,
		Now:         time.Now,
	}
}

// UpdateResult summarizes one site update.
type UpdateResult struct {
	Total   int
	New     int
	Updated int
	// BatchFile is the path of the batch written for this run, if any.
	BatchFile string
}

// Update reconciles fresh against the site's snapshot, stages new
// entities, rewrites the snapshot, writes this run's batch file and
// notifies each new entity. Staging happens first so that a staging
// failure leaves the snapshot as it was and the entities are discovered
// again on the next run. Notification failures are logged and never block
// persistence.
func (t *Tracker) Update(ctx context.Context, site SiteMeta, fresh []entity.Entity) (UpdateResult, error) {
	now := t.now()
	snapshotPath := filepath.Join(t.SnapshotDir, site.SnapshotFile)

	previous := loadDatabase(snapshotPath)
	rec := Reconcile(fresh, previous, site, now)

	result := UpdateResult{
		Total:   rec.Snapshot.TotalCount,
		New:     len(rec.Discovered),
		Updated: rec.Changed,
	}

	if len(rec.Discovered) > 0 {
		if err := t.stage(rec.Discovered, now); err != nil {
			return result, err
		}
	}

	// The snapshot is the site's current state, so it is rewritten every run
	if err := jsonfile.Save(snapshotPath, rec.Snapshot, jsonfile.Options{}); err != nil {
		return result, fmt.Errorf("failed to save snapshot for %s: %w", site.Name, err)
	}
	log.Printf("INFO: Database updated with %d new entities and %d field updates", result.New, result.Updated)

	if len(rec.Discovered) == 0 {
		log.Printf("INFO: No new entities found on %s", site.Name)
		return result, nil
	}

	batchPath, err := t.writeBatch(rec.Discovered, site, now)
	if err != nil {
		return result, err
	}
	result.BatchFile = batchPath

	if t.Notifier != nil {
		for _, e := range rec.Discovered {
			if !t.Notifier.NotifyEntity(ctx, e, site.Name) {
				log.Printf("WARN: Failed to send notification for %s", e.Label())
			}
		}
	}

	return result, nil
}

// stage appends entities to the staging file, skipping ids it already
// holds. The file is only written when something was added. A staging file
// that exists but cannot be read is an error; it still holds entities that
// were never archived.
func (t *Tracker) stage(entities []entity.Entity, now time.Time) error {
	path := filepath.Join(t.OutputDir, StagingFile)

	staged := entity.NewDatabase(nil, "")
	if err := jsonfile.Load(path, staged); err != nil && !errors.Is(err, jsonfile.ErrNotExist) {
		return fmt.Errorf("failed to load staging file: %w", err)
	}
	ids := make(map[string]bool, len(staged.Entities))
	for _, e := range staged.Entities {
		ids[e.ID] = true
	}

	added := 0
	for _, e := range entities {
		if ids[e.ID] {
			continue
		}
		staged.Entities = append(staged.Entities, e)
		ids[e.ID] = true
		added++
	}

	if added == 0 {
		log.Printf("INFO: No new entities to add to the central tracking file")
		return nil
	}

	db := entity.NewDatabase(staged.Entities, entity.FormatTime(now))
	if err := jsonfile.Save(path, db, jsonfile.Options{Backup: true}); err != nil {
		return fmt.Errorf("failed to save staging file: %w", err)
	}

	log.Printf("INFO: Added %d new entities to the central tracking file", added)
	return nil
}

// writeBatch records exactly this run's discoveries in a new file. An
// existing file of the same name is never replaced; a numeric suffix is
// added instead.
func (t *Tracker) writeBatch(entities []entity.Entity, site SiteMeta, now time.Time) (string, error) {
	batch := entity.Batch{
		Entities:        entities,
		LastUpdated:     entity.FormatTime(now),
		TotalCount:      len(entities),
		RansomwareGroup: site.Name,
		GroupKey:        site.Key,
	}

	stamp := now.UTC().Format(batchStampLayout)
	for n := 0; ; n++ {
		name := fmt.Sprintf("new_entities_%s.json", stamp)
		if n > 0 {
			name = fmt.Sprintf("new_entities_%s_%d.json", stamp, n)
		}
		path := filepath.Join(t.OutputDir, name)

		err := jsonfile.Save(path, batch, jsonfile.Options{Exclusive: true})
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to save batch file: %w", err)
		}

		log.Printf("INFO: Saved %d new entities to %s", len(entities), path)
		return path, nil
	}
}

// loadDatabase reads a snapshot or staging file. A missing or unreadable
// file yields an empty database.
func loadDatabase(path string) *entity.Database {
	var db entity.Database
	if err := jsonfile.Load(path, &db); err != nil {
		if !errors.Is(err, jsonfile.ErrNotExist) {
			log.Printf("ERROR: Error loading %s: %v. Starting fresh.", filepath.Base(path), err)
		}
		return entity.NewDatabase(nil, "")
	}
	return &db
}

func (t *Tracker) now() time.Time {
	if t.Now == nil {
		return time.Now()
	}
	return t.Now()
}
