package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pevans/leakwatch/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGroupCounts verifies groups are tallied largest first with an
// Unknown bucket for unattributed entities
func TestGroupCounts(t *testing.T) {
	a := &entity.Archive{Entities: []entity.StandardizedEntity{
		{Domain: entity.Str("a.com"), RansomwareGroup: entity.Str("Bashe")},
		{Domain: entity.Str("b.com"), RansomwareGroup: entity.Str("LockBit")},
		{Domain: entity.Str("c.com"), RansomwareGroup: entity.Str("LockBit")},
		{Domain: entity.Str("d.com")},
	}}

	assert.Equal(t, []GroupCount{
		{Group: "LockBit", Count: 2},
		{Group: "Bashe", Count: 1},
		{Group: "Unknown", Count: 1},
	}, GroupCounts(a))

	assert.Nil(t, GroupCounts(nil))
}

// TestWritePDF verifies a report is written with one row per entity
func TestWritePDF(t *testing.T) {
	a := &entity.Archive{Entities: []entity.StandardizedEntity{
		{
			Domain:               entity.Str("acme.com"),
			Status:               entity.Str("countdown"),
			RansomwareGroup:      entity.Str("LockBit"),
			EstimatedPublishDate: entity.Str("2025-03-01 10:00:00 UTC"),
		},
		{
			Domain: entity.Str("a-very-long-subdomain.of-a-very-long-domain-name.example.com"),
		},
	}}

	path := filepath.Join(t.TempDir(), "report.pdf")
	n, err := WritePDF(a, path, time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, len(data) > 4)
	assert.Equal(t, "%PDF", string(data[:4]))
}

// TestWritePDF_Empty verifies an empty archive still produces a report
func TestWritePDF_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pdf")
	n, err := WritePDF(nil, path, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.FileExists(t, path)
}

// TestClip verifies long cell values are shortened
func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short", 30))
	assert.Equal(t, "abcdefghijklmnopqr..", clip("abcdefghijklmnopqrstuvwxyz", 35))
}
