package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pevans/leakwatch/sites"
)

func handleSites(args []string) int {
	if len(args) < 1 {
		printSitesUsage()
		return 1
	}

	switch args[0] {
	case "list":
		return handleSitesList(args[1:])
	case "init":
		return handleSitesInit(args[1:])
	case "help", "--help", "-h":
		printSitesUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown sites command: %s\n\n", args[0])
		printSitesUsage()
		return 1
	}
}

func printSitesUsage() {
	fmt.Println("leakwatch sites - Manage site configurations")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  leakwatch sites <action> [arguments]")
	fmt.Println()
	fmt.Println("Actions:")
	fmt.Println("  list               List the loaded site configurations")
	fmt.Println("  init [site...]     Write the built-in configurations (all when none named)")
	fmt.Println("  help               Show this help message")
}

func handleSitesList(args []string) int {
	fs := flag.NewFlagSet("sites list", flag.ExitOnError)
	configPath, verbose := configFlags(fs)
	fs.Parse(args)

	cfg, err := loadConfig(*configPath, *verbose)
	if err != nil {
		return fail("Failed to load configuration: %v", err)
	}

	store, err := sites.Load(cfg.Paths.SitesDir, nil)
	if err != nil {
		return fail("Failed to load site configurations: %v", err)
	}

	if store.Len() == 0 {
		fmt.Println("No sites configured.")
		return 0
	}

	fmt.Printf("%-16s %-24s %-8s %s\n", "KEY", "NAME", "MIRRORS", "SNAPSHOT")
	fmt.Println("------------------------------------------------------------------------")
	for _, d := range store.All() {
		name := d.Name()
		if len(name) > 24 {
			name = name[:21] + "..."
		}
		fmt.Printf("%-16s %-24s %-8d %s\n", d.SiteKey, name, len(d.Mirrors), d.SnapshotFile())
	}
	return 0
}

func handleSitesInit(args []string) int {
	fs := flag.NewFlagSet("sites init", flag.ExitOnError)
	configPath, verbose := configFlags(fs)
	fs.Parse(args)

	cfg, err := loadConfig(*configPath, *verbose)
	if err != nil {
		return fail("Failed to load configuration: %v", err)
	}

	created, err := sites.Init(cfg.Paths.SitesDir, fs.Args())
	if err != nil {
		return fail("Failed to create site configurations: %v", err)
	}

	if len(created) == 0 {
		fmt.Println("All requested configurations already exist.")
		return 0
	}
	for _, key := range created {
		fmt.Printf("Created %s\n", key)
	}
	return 0
}
