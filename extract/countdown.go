package extract

import (
	"log"
	"regexp"
	"strconv"
	"time"

	"github.com/pevans/leakwatch/entity"
)

// countdownDateLayout is the format of an explicit countdown_date field.
const countdownDateLayout = "2006-01-02 15:04:05"

var (
	daysPattern    = regexp.MustCompile(`(\d+)D`)
	hoursPattern   = regexp.MustCompile(`(\d+)h`)
	minutesPattern = regexp.MustCompile(`(\d+)m`)
	secondsPattern = regexp.MustCompile(`(\d+)s`)
)

// ParseCountdownText reads the legacy "5D 21h 16m 8s" form. Missing
// components are zero.
func ParseCountdownText(text string) (days, hours, minutes, seconds int) {
	return firstInt(daysPattern, text),
		firstInt(hoursPattern, text),
		firstInt(minutesPattern, text),
		firstInt(secondsPattern, text)
}

func firstInt(re *regexp.Regexp, text string) int {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// estimatePublishDate derives estimated_publish_date for countdown entities.
func (e *Engine) estimatePublishDate(ent *entity.Entity) {
	if ent.Status != entity.StatusCountdown {
		return
	}

	now := e.now()

	if c := ent.CountdownRemaining; c != nil {
		if c.Complete() {
			ent.EstimatedPublishDate = entity.FormatTime(now.Add(c.Duration()))
		}

		if c.Text != nil {
			days, hours, minutes, seconds := ParseCountdownText(*c.Text)
			c.Days = entity.Int(days)
			c.Hours = entity.Int(hours)
			c.Minutes = entity.Int(minutes)
			c.Seconds = entity.Int(seconds)
			ent.EstimatedPublishDate = entity.FormatTime(now.Add(c.Duration()))
			log.Printf("INFO: Parsed countdown text: %s -> %s", *c.Text, ent.EstimatedPublishDate)
		}
	}

	if ent.CountdownDate != "" {
		t, err := time.Parse(countdownDateLayout, ent.CountdownDate)
		if err != nil {
			log.Printf("WARN: Error parsing countdown date %q: %v", ent.CountdownDate, err)
			return
		}
		ent.EstimatedPublishDate = entity.FormatTime(t)
	}
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}
