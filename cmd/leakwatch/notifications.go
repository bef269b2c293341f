package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pevans/leakwatch/notify"
)

func handleNotifications(args []string) int {
	fs := flag.NewFlagSet("notifications", flag.ExitOnError)
	configPath, verbose := configFlags(fs)
	limit := fs.Int("limit", 20, "Number of attempts to show (0 for all)")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath, *verbose)
	if err != nil {
		return fail("Failed to load configuration: %v", err)
	}

	path := cfg.Paths.LedgerPath
	if _, err := os.Stat(path); err != nil {
		fmt.Println("No notifications recorded.")
		return 0
	}

	ledger, err := notify.NewLedger(path)
	if err != nil {
		return fail("Failed to open notification ledger: %v", err)
	}
	defer ledger.Close()

	sent, failed, err := ledger.Counts()
	if err != nil {
		return fail("Failed to count notifications: %v", err)
	}
	attempts, err := ledger.Recent(*limit)
	if err != nil {
		return fail("Failed to list notifications: %v", err)
	}

	printAttempts(os.Stdout, attempts, sent, failed)
	return 0
}

// printAttempts writes the ledger totals followed by one line per attempt.
func printAttempts(w io.Writer, attempts []notify.Attempt, sent, failed int) {
	fmt.Fprintf(w, "Sent: %d  Failed: %d\n\n", sent, failed)
	if len(attempts) == 0 {
		fmt.Fprintln(w, "No notifications recorded.")
		return
	}

	fmt.Fprintf(w, "%-20s %-6s %-16s %-32s %s\n", "TIME", "STATUS", "GROUP", "DOMAIN", "LENGTH")
	fmt.Fprintln(w, "--------------------------------------------------------------------------------")
	for _, a := range attempts {
		status := "ok"
		if !a.Success {
			status = "FAILED"
		}
		domain := a.Domain
		if a.EntityID == notify.SummaryID {
			domain = "(scan summary)"
		}
		if len(domain) > 32 {
			domain = domain[:29] + "..."
		}
		fmt.Fprintf(w, "%-20s %-6s %-16s %-32s %d\n",
			a.Timestamp.UTC().Format("2006-01-02 15:04:05"), status, a.Group, domain, a.MessageLength)
	}
}
