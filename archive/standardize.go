// Package archive standardizes staged entities into the fixed archive
// schema and merges them into the permanent archive.
package archive

import (
	"log"
	"regexp"
	"time"

	"github.com/pevans/leakwatch/entity"
)

var (
	canonicalDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} UTC$`)
	lockbitDate   = regexp.MustCompile(`^(\d{1,2}) ([A-Za-z]{3}), (\d{4}),\s+(\d{1,2}):(\d{2}) UTC`)
	slashDate     = regexp.MustCompile(`^(\d{4})/(\d{2})/(\d{2}) (\d{2}:\d{2}:\d{2})`)
	bareDate      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`)
)

var monthNumbers = map[string]string{
	"Jan": "01", "Feb": "02", "Mar": "03", "Apr": "04", "May": "05", "Jun": "06",
	"Jul": "07", "Aug": "08", "Sep": "09", "Oct": "10", "Nov": "11", "Dec": "12",
}

// fallbackLayouts are tried when no known site format matches.
var fallbackLayouts = []string{
	"2006-01-02 15:04",
	"2006/01/02 15:04",
	"2 Jan 2006 15:04",
	"2 January 2006 15:04",
}

// StandardizeDate rewrites a site timestamp into the canonical
// "YYYY-MM-DD HH:MM:SS UTC" form. Unrecognized input is logged and
// returned unchanged.
func StandardizeDate(s string) string {
	if s == "" || canonicalDate.MatchString(s) {
		return s
	}

	if m := lockbitDate.FindStringSubmatch(s); m != nil {
		month, ok := monthNumbers[m[2]]
		if !ok {
			log.Printf("WARN: Unknown month %q in date %q, using January", m[2], s)
			month = "01"
		}
		return m[3] + "-" + month + "-" + pad2(m[1]) + " " + pad2(m[4]) + ":" + m[5] + ":00 UTC"
	}

	if m := slashDate.FindStringSubmatch(s); m != nil {
		return m[1] + "-" + m[2] + "-" + m[3] + " " + m[4] + " UTC"
	}

	if bareDate.MatchString(s) {
		return s + " UTC"
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return entity.FormatTime(t)
		}
	}

	log.Printf("WARN: Could not standardize date format: %s", s)
	return s
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// Standardize maps e onto the fixed archive schema. Date fields are
// normalized and counters coerced to integers where possible.
func Standardize(e entity.Entity) entity.StandardizedEntity {
	s := entity.StandardizedEntity{
		ID:                   entity.Str(e.ID),
		Domain:               entity.Str(e.Domain),
		Status:               entity.Str(e.Status),
		DescriptionPreview:   entity.Str(e.DescriptionPreview),
		Updated:              entity.Str(StandardizeDate(e.Updated)),
		Views:                e.Views.Coerce(),
		EstimatedPublishDate: entity.Str(StandardizeDate(e.EstimatedPublishDate)),
		FirstSeen:            entity.Str(StandardizeDate(e.FirstSeen)),
		RansomwareGroup:      entity.Str(e.RansomwareGroup),
		GroupKey:             entity.Str(e.GroupKey),
		Country:              entity.Str(e.Country),
		DataSize:             entity.Str(e.DataSize),
		LastView:             entity.Str(StandardizeDate(e.LastView)),
		Visits:               e.Visits.Coerce(),
		Class:                entity.Str(e.Class),
	}

	if c := e.CountdownRemaining; c != nil {
		s.CountdownRemaining = &entity.StandardizedCountdown{
			Text:    c.Text,
			Days:    c.Days,
			Hours:   c.Hours,
			Minutes: c.Minutes,
			Seconds: c.Seconds,
		}
	}

	return s
}
