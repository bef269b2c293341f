package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/pevans/leakwatch/config"
	"github.com/pevans/leakwatch/fetch"
	"github.com/pevans/leakwatch/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFetchTiming verifies configured waits override the defaults and unset
// waits keep them
func TestFetchTiming(t *testing.T) {
	timing := fetchTiming(config.BrowserConfig{
		Timing:  config.TimingConfig{MinWaitTime: 1.5, MaxWaitTime: 4},
		AntiBot: config.AntiBotConfig{Enabled: true},
	})

	assert.Equal(t, 1500*time.Millisecond, timing.MinWait)
	assert.Equal(t, 4*time.Second, timing.MaxWait)
	assert.Equal(t, fetch.DefaultTorCheckWait, timing.TorCheckWait)
	assert.True(t, timing.AntiBot)
	assert.False(t, timing.Randomize)

	assert.Equal(t, fetch.DefaultMinWait, fetchTiming(config.BrowserConfig{}).MinWait)
}

// TestPrintAttempts verifies the ledger listing
func TestPrintAttempts(t *testing.T) {
	ledger, err := notify.NewLedger(filepath.Join(t.TempDir(), "notifications.db"))
	require.NoError(t, err)
	defer ledger.Close()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, ledger.Record(&notify.Attempt{
		Timestamp: base, EntityID: "1", Domain: "acme.com", Group: "LockBit", MessageLength: 120, Success: true,
	}))
	require.NoError(t, ledger.Record(&notify.Attempt{
		Timestamp: base.Add(time.Minute), EntityID: notify.SummaryID, Domain: notify.SummaryID, MessageLength: 80,
	}))

	sent, failed, err := ledger.Counts()
	require.NoError(t, err)
	attempts, err := ledger.Recent(10)
	require.NoError(t, err)

	var buf bytes.Buffer
	printAttempts(&buf, attempts, sent, failed)
	out := buf.String()

	assert.Contains(t, out, "Sent: 1  Failed: 1")
	assert.Contains(t, out, "2024-03-01 12:00:00")
	assert.Contains(t, out, "acme.com")
	assert.Contains(t, out, "(scan summary)")
	assert.Contains(t, out, "FAILED")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("(scan summary)")), bytes.Index(buf.Bytes(), []byte("acme.com")))
}

// TestPrintAttempts_Empty verifies an empty ledger
func TestPrintAttempts_Empty(t *testing.T) {
	var buf bytes.Buffer
	printAttempts(&buf, nil, 0, 0)
	assert.Contains(t, buf.String(), "No notifications recorded.")
}
