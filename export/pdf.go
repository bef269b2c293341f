package export

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/pevans/leakwatch/entity"
)

// GroupCount is the number of archived entities attributed to one group.
type GroupCount struct {
	Group string
	Count int
}

// GroupCounts tallies the archive by ransomware group, largest first.
// Entities without a group are counted under "Unknown".
func GroupCounts(a *entity.Archive) []GroupCount {
	if a == nil {
		return nil
	}

	tally := make(map[string]int)
	for _, e := range a.Entities {
		group := str(e.RansomwareGroup)
		if group == "" {
			group = "Unknown"
		}
		tally[group]++
	}

	counts := make([]GroupCount, 0, len(tally))
	for g, n := range tally {
		counts = append(counts, GroupCount{Group: g, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Group < counts[j].Group
	})
	return counts
}

// reportColumns are the entity table headers and widths in millimetres.
var reportColumns = []struct {
	title string
	width float64
}{
	{"Domain", 62},
	{"Group", 34},
	{"Status", 26},
	{"Est. Publication", 36},
	{"First Seen", 32},
}

// WritePDF writes a summary report of the archive to path: per-group
// totals followed by one table row per entity.
func WritePDF(a *entity.Archive, path string, now time.Time) (int, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 20)
	pdf.SetTextColor(15, 98, 254)
	pdf.Cell(0, 10, "Leak Site Activity Report")
	pdf.Ln(12)

	total := 0
	if a != nil {
		total = len(a.Entities)
	}

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", now.UTC().Format("2006-01-02 15:04 MST")))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Archived entities: %d", total))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 10, "Entities by Group")
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	for _, gc := range GroupCounts(a) {
		pdf.CellFormat(80, 7, tr(gc.Group), "B", 0, "", false, 0, "")
		pdf.CellFormat(20, 7, fmt.Sprintf("%d", gc.Count), "B", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 10, "Entities")
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(30, 30, 30)
	pdf.SetTextColor(255, 255, 255)
	for _, c := range reportColumns {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, "", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Courier", "", 8)
	pdf.SetTextColor(0, 0, 0)
	rows := 0
	if a != nil {
		for _, e := range a.Entities {
			cells := []string{
				str(e.Domain),
				str(e.RansomwareGroup),
				str(e.Status),
				str(e.EstimatedPublishDate),
				str(e.FirstSeen),
			}
			for i, c := range reportColumns {
				pdf.CellFormat(c.width, 6, tr(clip(cells[i], c.width)), "1", 0, "", false, 0, "")
			}
			pdf.Ln(-1)
			rows++
		}
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return rows, fmt.Errorf("failed to save %s: %w", path, err)
	}

	return rows, nil
}

// clip shortens s to what fits a Courier 8pt cell of the given width.
func clip(s string, width float64) string {
	limit := int(width / 1.7)
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-2]) + ".."
}
