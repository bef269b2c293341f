// Package export renders the archive as a spreadsheet or a PDF report.
package export

import (
	"fmt"
	"strings"

	"github.com/pevans/leakwatch/entity"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the archive rows.
const SheetName = "Entities"

// Columns are the archive fields in spreadsheet order.
var Columns = []string{
	"id",
	"domain",
	"status",
	"description_preview",
	"updated",
	"views",
	"countdown_remaining",
	"estimated_publish_date",
	"first_seen",
	"ransomware_group",
	"group_key",
	"country",
	"data_size",
	"last_view",
	"visits",
	"class",
}

// WriteXLSX writes one header row and one row per archived entity to path.
func WriteXLSX(a *entity.Archive, path string) (int, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return 0, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return 0, fmt.Errorf("failed to create header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(Columns), 1)
	if err != nil {
		return 0, err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return 0, fmt.Errorf("failed to style header: %w", err)
	}

	rows := 0
	if a != nil {
		for i, e := range a.Entities {
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return rows, err
			}
			row := rowValues(e)
			if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
				return rows, fmt.Errorf("failed to write row %d: %w", i+2, err)
			}
			rows++
		}
	}

	if err := f.SaveAs(path); err != nil {
		return rows, fmt.Errorf("failed to save %s: %w", path, err)
	}

	return rows, nil
}

func rowValues(e entity.StandardizedEntity) []any {
	return []any{
		str(e.ID),
		str(e.Domain),
		str(e.Status),
		str(e.DescriptionPreview),
		str(e.Updated),
		counter(e.Views),
		countdownText(e.CountdownRemaining),
		str(e.EstimatedPublishDate),
		str(e.FirstSeen),
		str(e.RansomwareGroup),
		str(e.GroupKey),
		str(e.Country),
		str(e.DataSize),
		str(e.LastView),
		counter(e.Visits),
		str(e.Class),
	}
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// counter keeps integers numeric so the sheet can sort them.
func counter(f *entity.Flex) any {
	if n, ok := f.Int(); ok {
		return n
	}
	return f.String()
}

func countdownText(c *entity.StandardizedCountdown) string {
	if c == nil {
		return ""
	}
	if c.Days != nil && c.Hours != nil && c.Minutes != nil && c.Seconds != nil {
		return fmt.Sprintf("%dd %dh %dm %ds", *c.Days, *c.Hours, *c.Minutes, *c.Seconds)
	}
	if c.Text != nil {
		return strings.TrimSpace(*c.Text)
	}
	return ""
}
