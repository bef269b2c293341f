package scraper

import (
	"fmt"
	"strings"
)

// VerificationType selects how a fetched page is confirmed to belong to a
// site.
type VerificationType string

const (
	// VerifyText requires the value as a substring of the page source.
	VerifyText VerificationType = "text"
	// VerifyClass requires an element whose class attribute is exactly the
	// value.
	VerifyClass VerificationType = "class"
	// VerifySelector requires at least one element matching the CSS
	// selector.
	VerifySelector VerificationType = "selector"
)

// Verification is the rule used to confirm a mirror served the expected
// site rather than an error or seizure page.
type Verification struct {
	Type  VerificationType `json:"type"`
	Value string           `json:"value"`
}

// SiteDescriptor defines how to reach and parse one monitored leak site.
type SiteDescriptor struct {
	SiteKey      string        `json:"site_key"`
	SiteName     string        `json:"site_name"`
	JSONFile     string        `json:"json_file,omitempty"`
	Mirrors      []string      `json:"mirrors"`
	Verification Verification  `json:"site_verification"`
	Parsing      ParsingConfig `json:"parsing"`
}

// ParsingConfig locates repeated entity blocks and lists the rules that
// populate one entity from each block.
type ParsingConfig struct {
	EntitySelector string      `json:"entity_selector"`
	Fields         []FieldRule `json:"fields"`
}

// Name returns the display name, falling back to the site key.
func (d *SiteDescriptor) Name() string {
	if d.SiteName != "" {
		return d.SiteName
	}
	if d.SiteKey != "" {
		return d.SiteKey
	}
	return "Unknown"
}

// SnapshotFile returns the file name of the per-site snapshot.
func (d *SiteDescriptor) SnapshotFile() string {
	if d.JSONFile != "" {
		return d.JSONFile
	}
	return d.SiteKey + "_entities.json"
}

// Validate checks the descriptor and compiles every field rule. It must be
// called before the descriptor is handed to the extraction engine.
func (d *SiteDescriptor) Validate() error {
	if d.SiteKey == "" {
		return fmt.Errorf("site_key is required")
	}

	switch d.Verification.Type {
	case "", VerifyText, VerifyClass, VerifySelector:
	default:
		return fmt.Errorf("unknown site_verification type: %q", d.Verification.Type)
	}

	if strings.TrimSpace(d.Parsing.EntitySelector) == "" {
		return fmt.Errorf("parsing.entity_selector is required")
	}
	if err := CSS(d.Parsing.EntitySelector).Check(); err != nil {
		return fmt.Errorf("parsing.entity_selector: %w", err)
	}

	for i := range d.Parsing.Fields {
		if err := d.Parsing.Fields[i].Compile(); err != nil {
			return fmt.Errorf("field %d: %w", i, err)
		}
	}

	return nil
}
