package export

import (
	"path/filepath"
	"testing"

	"github.com/pevans/leakwatch/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// TestWriteXLSX verifies the header and one row per entity
func TestWriteXLSX(t *testing.T) {
	a := &entity.Archive{Entities: []entity.StandardizedEntity{
		{
			ID:              entity.Str("1"),
			Domain:          entity.Str("acme.com"),
			Status:          entity.Str("countdown"),
			Views:           entity.IntFlex(42),
			RansomwareGroup: entity.Str("LockBit"),
			CountdownRemaining: &entity.StandardizedCountdown{
				Days: entity.Int(1), Hours: entity.Int(2), Minutes: entity.Int(3), Seconds: entity.Int(4),
			},
		},
		{
			ID:                 entity.Str("2"),
			Domain:             entity.Str("beta.org"),
			CountdownRemaining: &entity.StandardizedCountdown{Text: entity.Str("5D 21h")},
		},
	}}

	path := filepath.Join(t.TempDir(), "archive.xlsx")
	n, err := WriteXLSX(a, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])

	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "acme.com", rows[1][1])
	assert.Equal(t, "42", rows[1][5])
	assert.Equal(t, "1d 2h 3m 4s", rows[1][6])
	assert.Equal(t, "LockBit", rows[1][9])

	assert.Equal(t, "beta.org", rows[2][1])
	assert.Equal(t, "5D 21h", rows[2][6])
}

// TestWriteXLSX_Empty verifies an empty archive yields a header only
func TestWriteXLSX_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	n, err := WriteXLSX(&entity.Archive{}, path)
	require.NoError(t, err)
	assert.Zero(t, n)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
