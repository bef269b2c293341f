package notify

import (
	"context"
	"log"
	"time"
	"unicode/utf8"

	"github.com/pevans/leakwatch/entity"
)

// Dispatcher formats messages, hands them to a Sender and records each
// attempt in the ledger.
type Dispatcher struct {
	Sender Sender
	// Ledger is optional.
	Ledger *Ledger
	Now    func() time.Time
}

// NewDispatcher returns a dispatcher for sender. ledger may be nil.
func NewDispatcher(sender Sender, ledger *Ledger) *Dispatcher {
	return &Dispatcher{
		Sender: sender,
		Ledger: ledger,
		Now:    time.Now,
	}
}

// NotifyEntity sends the discovery alert for e.
func (d *Dispatcher) NotifyEntity(ctx context.Context, e entity.Entity, siteName string) bool {
	msg := FormatEntity(e, siteName)
	ok := d.Sender.Send(ctx, msg)

	d.record(Attempt{
		EntityID:      e.ID,
		Domain:        e.Domain,
		Group:         siteName,
		MessageLength: utf8.RuneCountInString(msg),
		Success:       ok,
	})

	return ok
}

// NotifyScan sends the end-of-run summary.
func (d *Dispatcher) NotifyScan(ctx context.Context, sites []string, total, newCount int) bool {
	msg := FormatScanSummary(sites, total, newCount, d.now())
	ok := d.Sender.Send(ctx, msg)

	d.record(Attempt{
		EntityID:      SummaryID,
		Domain:        SummaryID,
		Group:         "all",
		MessageLength: utf8.RuneCountInString(msg),
		Success:       ok,
	})

	return ok
}

func (d *Dispatcher) record(a Attempt) {
	if d.Ledger == nil {
		return
	}
	a.Timestamp = d.now()
	if err := d.Ledger.Record(&a); err != nil {
		log.Printf("ERROR: Failed to record notification: %v", err)
	}
}

func (d *Dispatcher) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}
