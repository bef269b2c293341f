package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/pevans/leakwatch/entity"
)

// maxDescription is the longest description shown before truncation.
const maxDescription = 200

// FormatEntity renders the discovery alert for one entity. Values taken
// from the site are HTML-escaped.
func FormatEntity(e entity.Entity, siteName string) string {
	var b strings.Builder

	b.WriteString("🚨 <b>New Ransomware Victim Discovered!</b>\n\n")

	domain := e.Domain
	if domain == "" {
		domain = "Unknown"
	}
	fmt.Fprintf(&b, "<b>Domain:</b> %s\n", esc(domain))
	fmt.Fprintf(&b, "<b>Ransomware Group:</b> %s\n", esc(siteName))

	if e.Status != "" {
		status := capitalize(e.Status)
		switch e.Status {
		case entity.StatusCountdown:
			fmt.Fprintf(&b, "<b>Status:</b> ⏳ %s\n", status)
		case entity.StatusPublished:
			fmt.Fprintf(&b, "<b>Status:</b> 📢 %s\n", status)
		default:
			fmt.Fprintf(&b, "<b>Status:</b> %s\n", esc(status))
		}
	}

	if v := counterText(e.Views); v != "" {
		fmt.Fprintf(&b, "<b>Views:</b> %s\n", esc(v))
	} else if v := counterText(e.Visits); v != "" {
		fmt.Fprintf(&b, "<b>Visits:</b> %s\n", esc(v))
	}

	if e.DataSize != "" {
		fmt.Fprintf(&b, "<b>Data Size:</b> %s\n", esc(e.DataSize))
	}
	if e.Country != "" {
		fmt.Fprintf(&b, "<b>Country:</b> %s\n", esc(e.Country))
	}

	if desc := strings.TrimSpace(e.DescriptionPreview); desc != "" {
		if r := []rune(desc); len(r) > maxDescription {
			desc = string(r[:maxDescription-3]) + "..."
		}
		fmt.Fprintf(&b, "\n<b>Description:</b>\n%s\n", esc(desc))
	}

	if c := e.CountdownRemaining; e.Status == entity.StatusCountdown && c != nil {
		switch {
		case c.Complete():
			fmt.Fprintf(&b, "\n<b>Countdown:</b> %dd %dh %dm %ds\n", *c.Days, *c.Hours, *c.Minutes, *c.Seconds)
		case c.Text != nil:
			fmt.Fprintf(&b, "\n<b>Countdown:</b> %s\n", esc(*c.Text))
		}
	}

	if e.EstimatedPublishDate != "" {
		fmt.Fprintf(&b, "<b>Estimated Publication:</b> %s\n", esc(e.EstimatedPublishDate))
	}

	firstSeen := e.FirstSeen
	if firstSeen == "" {
		firstSeen = "Unknown"
	}
	fmt.Fprintf(&b, "\n<i>First seen: %s</i>", esc(firstSeen))

	return b.String()
}

// FormatScanSummary renders the end-of-run summary.
func FormatScanSummary(sites []string, total, newCount int, at time.Time) string {
	var b strings.Builder

	b.WriteString("🔍 <b>Ransomware Tracker Scan Completed</b>\n\n")
	fmt.Fprintf(&b, "<b>Time:</b> %s\n", entity.FormatTime(at))

	if len(sites) > 0 {
		b.WriteString("\n<b>Sites Scanned:</b>\n")
		for _, s := range sites {
			fmt.Fprintf(&b, "• %s\n", esc(s))
		}
	}

	fmt.Fprintf(&b, "\n<b>Total Entities:</b> %d\n", total)

	if newCount > 0 {
		fmt.Fprintf(&b, "<b>New Entities:</b> 🚨 %d 🚨\n", newCount)
		b.WriteString("\n✅ <i>New entities were discovered and notifications sent</i>")
	} else {
		b.WriteString("<b>New Entities:</b> 0 (No new entities found)\n")
		b.WriteString("\n✅ <i>Scan completed successfully with no new entities</i>")
	}

	return b.String()
}

// counterText returns the display form of a counter, or "" for an absent
// or zero value.
func counterText(f *entity.Flex) string {
	if f == nil {
		return ""
	}
	if n, ok := f.Int(); ok && n == 0 {
		return ""
	}
	return f.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

func esc(s string) string {
	return html.EscapeString(s)
}
