package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pevans/leakwatch/archive"
	"github.com/pevans/leakwatch/config"
	"github.com/pevans/leakwatch/enrich"
	"github.com/pevans/leakwatch/entity"
	"github.com/pevans/leakwatch/export"
	"github.com/pevans/leakwatch/jsonfile"
	"github.com/pevans/leakwatch/timesource"
	"github.com/pevans/leakwatch/tracker"
)

func handleArchive(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("archive", flag.ExitOnError)
	configPath, verbose := configFlags(fs)
	fs.Parse(args)

	cfg, err := loadConfig(*configPath, *verbose)
	if err != nil {
		return fail("Failed to load configuration: %v", err)
	}

	clock := timesource.New(cfg.TimeSources)
	clock.Verbose = cfg.Debug

	result, err := runArchive(ctx, cfg, clock)
	if err != nil {
		return fail("Entity processing failed: %v", err)
	}

	fmt.Printf("Processed %d staged entities: %d added, %d already archived\n",
		result.Processed, result.Added, result.Skipped)
	return 0
}

func runArchive(ctx context.Context, cfg *config.Config, clock archive.Clock) (archive.Result, error) {
	a := archive.New(
		filepath.Join(cfg.Paths.OutputDir, tracker.StagingFile),
		filepath.Join(cfg.Paths.ProcessedDir, archive.ArchiveFile),
		clock,
	)
	return a.Run(ctx)
}

func handleMerge(args []string) int {
	fs := flag.NewFlagSet("merge", flag.ExitOnError)
	configPath, verbose := configFlags(fs)
	fs.Parse(args)

	cfg, err := loadConfig(*configPath, *verbose)
	if err != nil {
		return fail("Failed to load configuration: %v", err)
	}

	out := filepath.Join(cfg.Paths.ProcessedDir, archive.MergedFile)
	n, err := archive.MergeBatches(cfg.Paths.OutputDir, out, time.Now())
	if err != nil {
		return fail("Failed to merge batch files: %v", err)
	}

	fmt.Printf("Merged %d entities into %s\n", n, out)
	return 0
}

func handleEnrich(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("enrich", flag.ExitOnError)
	configPath, verbose := configFlags(fs)
	simulate := fs.Bool("simulate", false, "Store placeholder records instead of calling the API")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath, *verbose)
	if err != nil {
		return fail("Failed to load configuration: %v", err)
	}

	a, err := archive.Load(filepath.Join(cfg.Paths.ProcessedDir, archive.ArchiveFile))
	if errors.Is(err, jsonfile.ErrNotExist) {
		log.Printf("WARN: Archive not found in %s, nothing to enrich", cfg.Paths.ProcessedDir)
		a = &entity.Archive{}
	} else if err != nil {
		return fail("Failed to load archive: %v", err)
	}

	var completer enrich.Completer
	if cfg.OpenAI.APIKey != "" {
		completer = enrich.NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
	}

	e := enrich.New(cfg.Paths.AIDir, completer, cfg.OpenAI.Model)
	if cfg.OpenAI.BatchSize > 0 {
		e.BatchSize = cfg.OpenAI.BatchSize
	}
	e.Delay = config.Seconds(cfg.OpenAI.BatchDelay)

	if _, err := e.WriteTargets(a); err != nil {
		return fail("Failed to extract enrichment targets: %v", err)
	}

	if *simulate || completer == nil {
		if !*simulate {
			log.Printf("WARN: OpenAI API key not found. Running in simulation mode.")
		}
		n, err := e.Simulate()
		if err != nil {
			return fail("Simulated enrichment failed: %v", err)
		}
		fmt.Printf("Added %d simulated records\n", n)
		return 0
	}

	result, err := e.Run(ctx)
	if err != nil {
		return fail("Enrichment failed: %v", err)
	}

	fmt.Printf("Enriched %d of %d pending domains (%d batches, %d failed)\n",
		result.Added, result.Pending, result.Batches, result.Failed)
	return 0
}

func handleExport(args []string) int {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath, verbose := configFlags(fs)
	out := fs.String("out", "archive.xlsx", "Output path; a .pdf extension writes a summary report")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath, *verbose)
	if err != nil {
		return fail("Failed to load configuration: %v", err)
	}

	a, err := archive.Load(filepath.Join(cfg.Paths.ProcessedDir, archive.ArchiveFile))
	if err != nil {
		return fail("Failed to load archive: %v", err)
	}

	if err := ensureDir(filepath.Dir(*out)); err != nil {
		return fail("Failed to create output directory: %v", err)
	}

	var n int
	if strings.EqualFold(filepath.Ext(*out), ".pdf") {
		n, err = export.WritePDF(a, *out, time.Now())
	} else {
		n, err = export.WriteXLSX(a, *out)
	}
	if err != nil {
		return fail("Export failed: %v", err)
	}

	fmt.Printf("Exported %d entities to %s\n", n, *out)
	return 0
}

func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
