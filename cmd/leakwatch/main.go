package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pevans/leakwatch/config"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	subcommand := os.Args[1]
	args := os.Args[2:]

	var code int
	switch subcommand {
	case "scan":
		code = handleScan(ctx, args)
	case "archive":
		code = handleArchive(ctx, args)
	case "merge":
		code = handleMerge(args)
	case "enrich":
		code = handleEnrich(ctx, args)
	case "export":
		code = handleExport(args)
	case "sites":
		code = handleSites(args)
	case "notifications":
		code = handleNotifications(args)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command: %s\n\n", subcommand)
		printUsage()
		code = 1
	}

	stop()
	os.Exit(code)
}

func printUsage() {
	fmt.Println("leakwatch - Ransomware leak site monitor")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  leakwatch <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  scan           Scrape the configured leak sites and archive new entities")
	fmt.Println("  archive        Move staged entities into the permanent archive")
	fmt.Println("  merge          Standardize timestamped batch files into one merged file")
	fmt.Println("  enrich         Look up organization metadata for archived domains")
	fmt.Println("  export         Write the archive to an xlsx spreadsheet or PDF report")
	fmt.Println("  sites          List or create site configurations")
	fmt.Println("  notifications  Show recent Telegram delivery attempts")
	fmt.Println("  help           Show this help message")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  TARGET_SITES           Comma-separated site keys to scan")
	fmt.Println("  TELEGRAM_BOT_TOKEN     Telegram bot token")
	fmt.Println("  TELEGRAM_CHANNEL_ID    Telegram channel for notifications")
	fmt.Println("  OPENAI_API_KEY         API key for enrichment")
	fmt.Println("  LEAKWATCH_DEBUG        Enable debug logging")
}

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// configFlags registers the flags every command shares.
func configFlags(fs *flag.FlagSet) (path *string, verbose *bool) {
	path = fs.String("config", config.DefaultPath, "Path to configuration file")
	verbose = fs.Bool("verbose", false, "Enable debug logging (LEAKWATCH_DEBUG)")
	return path, verbose
}

// loadConfig reads the configuration and applies the debug flag.
func loadConfig(path string, verbose bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Debug = true
	}
	return cfg, nil
}

func fail(format string, args ...any) int {
	log.Printf("ERROR: "+format, args...)
	return 1
}
