package enrich

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoRecords is returned when a response holds no parseable records.
var ErrNoRecords = errors.New("no enrichment records in response")

// Geography locates an organization.
type Geography struct {
	CountryCode string `json:"country_code"`
	Region      string `json:"region"`
	City        string `json:"city"`
}

// Size is an organization's headcount and revenue band.
type Size struct {
	EmployeesRange string `json:"employees_range"`
	RevenueRange   string `json:"revenue_range"`
}

// Organization describes the company behind a domain.
type Organization struct {
	Name        string `json:"name"`
	Industry    string `json:"industry"`
	SubIndustry string `json:"sub_industry"`
	Size        Size   `json:"size"`
	Status      string `json:"status"`
}

// Record is one enriched domain as stored in processed_AI.json.
type Record struct {
	ID              string       `json:"id"`
	Domain          string       `json:"domain"`
	GroupKey        *string      `json:"group_key"`
	RansomwareGroup *string      `json:"ransomware_group"`
	Geography       Geography    `json:"geography"`
	Organization    Organization `json:"organization"`
}

// Store is the processed_AI.json envelope.
type Store struct {
	Entities    []Record `json:"entities"`
	TotalCount  int      `json:"total_count"`
	LastUpdated string   `json:"last_updated"`
}

var embeddedArray = regexp.MustCompile(`\[\s*\{\s*"domain"`)

// ParseResponse decodes a model response. It accepts a JSON array of
// records, an object with a "domains" array, or prose containing an array
// that starts with a "domain" key. Markdown code fences are ignored.
func ParseResponse(content string) ([]Record, error) {
	cleaned := stripFences(content)

	var raw json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &raw); err == nil {
		return decodeRecords(raw)
	}

	loc := embeddedArray.FindStringIndex(content)
	if loc == nil {
		return nil, ErrNoRecords
	}
	end := matchingBracket(content, loc[0])
	if end < 0 {
		return nil, ErrNoRecords
	}

	var records []Record
	if err := json.Unmarshal([]byte(content[loc[0]:end+1]), &records); err != nil {
		return nil, fmt.Errorf("extracted text is not valid JSON: %w", err)
	}
	return records, nil
}

func decodeRecords(raw json.RawMessage) ([]Record, error) {
	switch trimmed := strings.TrimSpace(string(raw)); {
	case strings.HasPrefix(trimmed, "["):
		var records []Record
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("failed to decode records: %w", err)
		}
		return records, nil

	case strings.HasPrefix(trimmed, "{"):
		var wrapped struct {
			Domains []Record `json:"domains"`
			Error   any      `json:"error"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, fmt.Errorf("failed to decode response object: %w", err)
		}
		if wrapped.Error != nil {
			return nil, fmt.Errorf("model returned error: %v", wrapped.Error)
		}
		if wrapped.Domains == nil {
			return nil, ErrNoRecords
		}
		return wrapped.Domains, nil
	}

	return nil, ErrNoRecords
}

// matchingBracket returns the index of the ']' closing the '[' at start,
// or -1.
func matchingBracket(s string, start int) int {
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func stripFences(s string) string {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

// Merge matches records to batch by domain and stamps each match with the
// target's identity fields. Targets with no returned record are omitted.
func Merge(batch []Target, records []Record) []Record {
	byDomain := make(map[string]Record, len(records))
	for _, r := range records {
		if r.Domain != "" {
			byDomain[r.Domain] = r
		}
	}

	var out []Record
	for _, t := range batch {
		r, ok := byDomain[t.Domain]
		if !ok {
			continue
		}
		r.ID = t.ID
		r.GroupKey = t.GroupKey
		r.RansomwareGroup = t.RansomwareGroup
		out = append(out, r)
	}
	return out
}

// Placeholder returns the simulated record for t.
func Placeholder(t Target) Record {
	name := t.Domain
	if i := strings.Index(name, "."); i >= 0 {
		name = name[:i]
	}
	if name != "" {
		name = strings.ToUpper(name[:1]) + strings.ToLower(name[1:])
	}

	return Record{
		ID:              t.ID,
		Domain:          t.Domain,
		GroupKey:        t.GroupKey,
		RansomwareGroup: t.RansomwareGroup,
		Geography: Geography{
			CountryCode: "USA",
			Region:      "Unknown Region",
			City:        "Unknown City",
		},
		Organization: Organization{
			Name:        name + " Organization",
			Industry:    "Technology",
			SubIndustry: "Software",
			Size: Size{
				EmployeesRange: "100-499",
				RevenueRange:   "$10M-$50M",
			},
			Status: "Private",
		},
	}
}
