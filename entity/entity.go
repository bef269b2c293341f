package entity

import (
	"bytes"
	"encoding/json"
	"time"
)

// TimeLayout is the canonical timestamp format used in every persisted file.
const TimeLayout = "2006-01-02 15:04:05 UTC"

// Status values emitted by site descriptors.
const (
	StatusPublished = "published"
	StatusCountdown = "countdown"
	StatusUnknown   = "unknown"
)

// FormatTime renders t in the canonical UTC layout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Countdown is the remaining time before a victim's data is published. Sites
// either expose the individual components or a single text such as
// "5D 21h 16m 8s".
type Countdown struct {
	Text    *string `json:"countdown_text,omitempty"`
	Days    *int    `json:"days,omitempty"`
	Hours   *int    `json:"hours,omitempty"`
	Minutes *int    `json:"minutes,omitempty"`
	Seconds *int    `json:"seconds,omitempty"`
}

// Complete reports whether all four numeric components are present.
func (c *Countdown) Complete() bool {
	return c != nil && c.Days != nil && c.Hours != nil && c.Minutes != nil && c.Seconds != nil
}

// Duration returns the countdown as a time.Duration. Missing components
// count as zero.
func (c *Countdown) Duration() time.Duration {
	if c == nil {
		return 0
	}
	d := time.Duration(deref(c.Days)) * 24 * time.Hour
	d += time.Duration(deref(c.Hours)) * time.Hour
	d += time.Duration(deref(c.Minutes)) * time.Minute
	d += time.Duration(deref(c.Seconds)) * time.Second
	return d
}

// UnmarshalJSON accepts the record form and, from older files, a bare
// scalar which becomes the countdown text.
func (c *Countdown) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		type plain Countdown
		var p plain
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*c = Countdown(p)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Numbers and other scalars keep their literal text
		s = string(data)
	}
	*c = Countdown{Text: &s}
	return nil
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// Entity is one victim listing extracted from a leak site.
type Entity struct {
	ID                   string     `json:"id,omitempty"`
	Domain               string     `json:"domain,omitempty"`
	Status               string     `json:"status,omitempty"`
	DescriptionPreview   string     `json:"description_preview,omitempty"`
	Updated              string     `json:"updated,omitempty"`
	Views                *Flex      `json:"views,omitempty"`
	Visits               *Flex      `json:"visits,omitempty"`
	Country              string     `json:"country,omitempty"`
	DataSize             string     `json:"data_size,omitempty"`
	LastView             string     `json:"last_view,omitempty"`
	Class                string     `json:"class,omitempty"`
	CountdownRemaining   *Countdown `json:"countdown_remaining,omitempty"`
	CountdownDate        string     `json:"countdown_date,omitempty"`
	EstimatedPublishDate string     `json:"estimated_publish_date,omitempty"`
	FirstSeen            string     `json:"first_seen,omitempty"`
	RansomwareGroup      string     `json:"ransomware_group,omitempty"`
	GroupKey             string     `json:"group_key,omitempty"`
}

// HasIdentity reports whether the entity carries both id and domain. Entities
// without identity never reach a persisted store.
func (e *Entity) HasIdentity() bool {
	return e.ID != "" && e.Domain != ""
}

// Label is the name used in log lines: the domain if known, else the id.
func (e *Entity) Label() string {
	if e.Domain != "" {
		return e.Domain
	}
	return e.ID
}
