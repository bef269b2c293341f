package archive

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"github.com/pevans/leakwatch/entity"
	"github.com/pevans/leakwatch/jsonfile"
)

// MergedFile is the name of the merged batch output.
const MergedFile = "new_entities_merged.json"

var batchName = regexp.MustCompile(`^new_entities_\d{8}_\d{6}(_\d+)?\.json$`)

// Merged is every batch file's entities in standardized form.
type Merged struct {
	Entities    []entity.StandardizedEntity `json:"entities"`
	LastUpdated string                      `json:"last_updated"`
	TotalCount  int                         `json:"total_count"`
}

// BatchFiles lists the timestamped batch files in dir in name order, which
// is also discovery order.
func BatchFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && batchName.MatchString(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)
	return files, nil
}

// MergeBatches standardizes the entities of every batch file in inputDir
// and writes them to outPath. Entities lacking group attribution take it
// from their batch header. It returns the number of entities written.
func MergeBatches(inputDir, outPath string, now time.Time) (int, error) {
	files, err := BatchFiles(inputDir)
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		log.Printf("WARN: No new entities files found in %s", inputDir)
		return 0, nil
	}

	log.Printf("INFO: Found %d new entities files to process", len(files))

	merged := Merged{Entities: []entity.StandardizedEntity{}}
	for _, path := range files {
		var batch entity.Batch
		if err := jsonfile.Load(path, &batch); err != nil {
			log.Printf("WARN: No valid entities found in %s: %v", filepath.Base(path), err)
			continue
		}

		log.Printf("INFO: Processing %d entities from %s", len(batch.Entities), filepath.Base(path))
		for _, e := range batch.Entities {
			if !e.HasIdentity() {
				continue
			}
			if e.GroupKey == "" {
				e.GroupKey = batch.GroupKey
			}
			if e.RansomwareGroup == "" {
				e.RansomwareGroup = batch.RansomwareGroup
			}
			merged.Entities = append(merged.Entities, Standardize(e))
		}
	}

	merged.TotalCount = len(merged.Entities)
	merged.LastUpdated = entity.FormatTime(now)

	if err := jsonfile.Save(outPath, merged, jsonfile.Options{}); err != nil {
		return 0, fmt.Errorf("failed to save merged entities: %w", err)
	}

	log.Printf("INFO: Successfully processed %d entities from %d files", merged.TotalCount, len(files))
	return merged.TotalCount, nil
}
