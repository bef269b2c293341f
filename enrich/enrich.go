package enrich

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

// Defaults for batching.
const (
	DefaultBatchSize  = 100
	DefaultBatchDelay = 2 * time.Second
)

const stampLayout = "20060102_150405"

// Enricher submits unprocessed targets in batches and grows the
// enrichment store.
type Enricher struct {
	// Dir holds AI.json, processed_AI.json and the preview and raw
	// response directories.
	Dir       string
	Completer Completer
	// Model is recorded in batch previews.
	Model     string
	BatchSize int
	Delay     time.Duration
	Now       func() time.Time
}

// New returns an enricher over dir.
func New(dir string, completer Completer, model string) *Enricher {
	if model == "" {
		model = DefaultModel
	}
	return &Enricher{
		Dir:       dir,
		Completer: completer,
		Model:     model,
		BatchSize: DefaultBatchSize,
		Delay:     DefaultBatchDelay,
		Now:       time.Now,
	}
}

// Result summarizes an enrichment run.
type Result struct {
	Pending int
	Batches int
	Failed  int
	Added   int
}

// WriteTargets writes AI.json from the archive.
func (e *Enricher) WriteTargets(a *entity.Archive) (int, error) {
	targets := ExtractFields(a)
	if err := jsonfile.Save(filepath.Join(e.Dir, TargetsFile), targets, jsonfile.Options{}); err != nil {
		return 0, err
	}
	log.Printf("INFO: Extracted %d entities to %s", targets.TotalCount, TargetsFile)
	return targets.TotalCount, nil
}

// Run enriches every target not yet in the store. A failed batch is
// logged and skipped; the next run picks it up again.
func (e *Enricher) Run(ctx context.Context) (Result, error) {
	var result Result

	pending, store, err := e.pending()
	if err != nil || len(pending) == 0 {
		return result, err
	}
	result.Pending = len(pending)

	batches := Batches(pending, e.BatchSize)
	result.Batches = len(batches)
	log.Printf("INFO: Found %d unprocessed domains, split into %d batches", len(pending), len(batches))

	for i, batch := range batches {
		num := i + 1
		if err := ctx.Err(); err != nil {
			return result, err
		}

		added, err := e.runBatch(ctx, batch, num, store)
		if err != nil {
			log.Printf("ERROR: Batch %d failed: %v. Continuing to next batch.", num, err)
			result.Failed++
		}
		result.Added += added

		if num < len(batches) && e.Delay > 0 {
			log.Printf("INFO: Waiting %v before processing next batch", e.Delay)
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(e.Delay):
			}
		}
	}

	log.Printf("INFO: Total entities processed: %d", result.Added)
	return result, nil
}

func (e *Enricher) runBatch(ctx context.Context, batch []Target, num int, store *Store) (int, error) {
	domains := make([]string, 0, len(batch))
	for _, t := range batch {
		domains = append(domains, t.Domain)
	}
	prompt := BuildPrompt(domains)

	if err := e.savePreview(domains, prompt, num); err != nil {
		log.Printf("ERROR: Error saving batch preview: %v", err)
	}

	log.Printf("INFO: Sending batch %d (%d domains)", num, len(domains))
	content, err := e.Completer.Complete(ctx, SystemPrompt, prompt)
	if err != nil {
		return 0, err
	}

	if err := e.saveRaw(content, num); err != nil {
		log.Printf("ERROR: Error saving raw response: %v", err)
	}

	records, err := ParseResponse(content)
	if err != nil {
		return 0, err
	}

	merged := Merge(batch, records)
	if len(merged) == 0 {
		return 0, ErrNoRecords
	}

	if err := e.append(store, merged); err != nil {
		return 0, err
	}
	log.Printf("INFO: Added %d newly processed entities from batch %d", len(merged), num)

	return len(merged), nil
}

// Simulate stores placeholder records for every unprocessed target without
// calling the model.
func (e *Enricher) Simulate() (int, error) {
	log.Printf("INFO: Running in simulation mode (no real API calls will be made)")

	pending, store, err := e.pending()
	if err != nil || len(pending) == 0 {
		return 0, err
	}

	records := make([]Record, 0, len(pending))
	for _, t := range pending {
		records = append(records, Placeholder(t))
	}

	if err := e.append(store, records); err != nil {
		return 0, err
	}
	log.Printf("INFO: Added %d simulated enriched entities", len(records))

	return len(records), nil
}

// LoadStore reads processed_AI.json. A missing file yields an empty store.
func (e *Enricher) LoadStore() (*Store, error) {
	var store Store
	err := jsonfile.Load(filepath.Join(e.Dir, ProcessedFile), &store)
	if errors.Is(err, jsonfile.ErrNotExist) {
		return &Store{Entities: []Record{}}, nil
	}
	if err != nil {
		return nil, err
	}
	if store.Entities == nil {
		store.Entities = []Record{}
	}
	return &store, nil
}

func (e *Enricher) pending() ([]Target, *Store, error) {
	var targets TargetFile
	err := jsonfile.Load(filepath.Join(e.Dir, TargetsFile), &targets)
	if errors.Is(err, jsonfile.ErrNotExist) {
		log.Printf("WARN: %s not found in %s", TargetsFile, e.Dir)
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	store, err := e.LoadStore()
	if err != nil {
		return nil, nil, err
	}

	pending := Unprocessed(targets.Entities, store.Entities)
	log.Printf("INFO: Found %d unprocessed entities out of %d total", len(pending), len(targets.Entities))
	if len(pending) == 0 {
		log.Printf("INFO: No new entities to process")
	}

	return pending, store, nil
}

// append adds records to store and saves it.
func (e *Enricher) append(store *Store, records []Record) error {
	store.Entities = append(store.Entities, records...)
	store.TotalCount = len(store.Entities)
	store.LastUpdated = entity.FormatTime(e.now())

	if err := jsonfile.Save(filepath.Join(e.Dir, ProcessedFile), store, jsonfile.Options{}); err != nil {
		return fmt.Errorf("failed to save enrichment store: %w", err)
	}
	return nil
}

type preview struct {
	BatchNumber int        `json:"batch_number"`
	Timestamp   string     `json:"timestamp"`
	NumDomains  int        `json:"num_domains"`
	Domains     []string   `json:"domains"`
	APIRequest  apiRequest `json:"api_request"`
}

type apiRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (e *Enricher) savePreview(domains []string, prompt string, num int) error {
	now := e.now().UTC()
	p := preview{
		BatchNumber: num,
		Timestamp:   now.Format("2006-01-02 15:04:05"),
		NumDomains:  len(domains),
		Domains:     domains,
		APIRequest: apiRequest{
			Model: e.Model,
			Messages: []message{
				{Role: "system", Content: SystemPrompt},
				{Role: "user", Content: prompt},
			},
		},
	}

	name := fmt.Sprintf("batch_%d_%s_preview.json", num, now.Format(stampLayout))
	return jsonfile.Save(filepath.Join(e.Dir, PreviewDir, name), p, jsonfile.Options{})
}

func (e *Enricher) saveRaw(content string, num int) error {
	dir := filepath.Join(e.Dir, RawDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	name := fmt.Sprintf("batch_%d_%s_content.txt", num, e.now().UTC().Format(stampLayout))
	return os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)
}

func (e *Enricher) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}
