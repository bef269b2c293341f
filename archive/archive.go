package archive

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/pevans/leakwatch/entity"
	"github.com/pevans/leakwatch/jsonfile"
)

// ArchiveFile is the archive's file name inside the processed directory.
const ArchiveFile = "final_entities.json"

// ErrNoValidEntities is returned when the staging file holds entities but
// none carries both id and domain.
var ErrNoValidEntities = errors.New("no valid entities to process")

// Clock supplies the archive's notion of the current time.
type Clock interface {
	Now(ctx context.Context) time.Time
}

// localClock is used when no clock is configured.
type localClock struct{}

func (localClock) Now(context.Context) time.Time { return time.Now().UTC() }

// Archiver moves staged entities into the permanent archive.
type Archiver struct {
	StagingPath string
	ArchivePath string
	Clock       Clock
}

// New returns an archiver. A nil clock uses the local system time.
func New(stagingPath, archivePath string, clock Clock) *Archiver {
	if clock == nil {
		clock = localClock{}
	}
	return &Archiver{
		StagingPath: stagingPath,
		ArchivePath: archivePath,
		Clock:       clock,
	}
}

// Result summarizes one archival run.
type Result struct {
	// Processed counts staged entities that were standardized.
	Processed int
	// Added counts entities appended to the archive.
	Added int
	// Skipped counts entities already present in the archive.
	Skipped int
}

// Run standardizes the staging file, appends entities whose "id:domain" key
// is not yet archived, saves the archive with a backup and finally empties
// the staging file. Staging is only reset after the archive was written,
// so a failed run can simply be repeated.
func (a *Archiver) Run(ctx context.Context) (Result, error) {
	var result Result

	var staged entity.Database
	if err := jsonfile.Load(a.StagingPath, &staged); err != nil {
		if errors.Is(err, jsonfile.ErrNotExist) {
			log.Printf("WARN: Input file not found: %s", a.StagingPath)
			return result, nil
		}
		return result, fmt.Errorf("failed to load staging file: %w", err)
	}

	if len(staged.Entities) == 0 {
		log.Printf("INFO: No entities found in %s", a.StagingPath)
		return result, nil
	}

	log.Printf("INFO: Processing %d entities from %s", len(staged.Entities), a.StagingPath)

	var standardized []entity.StandardizedEntity
	for _, e := range staged.Entities {
		if !e.HasIdentity() {
			continue
		}
		standardized = append(standardized, Standardize(e))
	}
	result.Processed = len(standardized)

	if len(standardized) == 0 {
		return result, ErrNoValidEntities
	}

	archive, err := a.load()
	if err != nil {
		return result, err
	}

	keys := make(map[string]bool, len(archive.Entities))
	for i := range archive.Entities {
		if k := archive.Entities[i].Key(); k != "" {
			keys[k] = true
		}
	}

	for _, s := range standardized {
		k := s.Key()
		if keys[k] {
			result.Skipped++
			continue
		}
		archive.Entities = append(archive.Entities, s)
		keys[k] = true
		result.Added++
	}

	now := entity.FormatTime(a.Clock.Now(ctx))
	archive.TotalCount = len(archive.Entities)
	archive.LastUpdated = now

	if err := jsonfile.Save(a.ArchivePath, archive, jsonfile.Options{Backup: true}); err != nil {
		return result, fmt.Errorf("failed to save archive: %w", err)
	}
	log.Printf("INFO: Added %d new entities to the archive (skipped %d duplicates)", result.Added, result.Skipped)

	if err := jsonfile.Save(a.StagingPath, entity.NewDatabase(nil, now), jsonfile.Options{Backup: true}); err != nil {
		log.Printf("ERROR: Failed to reset input file: %s", a.StagingPath)
		return result, fmt.Errorf("archive saved but failed to reset staging file: %w", err)
	}
	log.Printf("INFO: Successfully reset input file: %s", a.StagingPath)

	return result, nil
}

// load reads the archive, creating an empty one if it does not exist yet.
func (a *Archiver) load() (*entity.Archive, error) {
	var archive entity.Archive
	err := jsonfile.Load(a.ArchivePath, &archive)
	if errors.Is(err, jsonfile.ErrNotExist) {
		log.Printf("INFO: Creating new final entities archive at %s", a.ArchivePath)
		return &entity.Archive{
			Entities:    []entity.StandardizedEntity{},
			Description: entity.ArchiveDescription,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid archive file: %w", err)
	}

	if archive.Entities == nil {
		archive.Entities = []entity.StandardizedEntity{}
	}
	return &archive, nil
}

// Load reads an existing archive.
func Load(path string) (*entity.Archive, error) {
	var archive entity.Archive
	if err := jsonfile.Load(path, &archive); err != nil {
		return nil, err
	}
	return &archive, nil
}
