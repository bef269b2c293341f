// Package enrich looks up organization metadata for archived victim domains
// through a chat-completion model and keeps the results in a separate
// enrichment store.
package enrich

import (
	"github.com/pevans/leakwatch/entity"
)

// File names inside the enrichment directory.
const (
	TargetsFile   = "AI.json"
	ProcessedFile = "processed_AI.json"
	RawDir        = "raw_responses"
	PreviewDir    = "batch_previews"
)

// TargetsDescription is the header written into AI.json.
const TargetsDescription = "Extracted fields from ransomware entities for AI processing"

// Target is the identity of one archived entity submitted for enrichment.
type Target struct {
	ID              string  `json:"id"`
	Domain          string  `json:"domain"`
	RansomwareGroup *string `json:"ransomware_group"`
	GroupKey        *string `json:"group_key"`
}

// TargetFile is the AI.json envelope.
type TargetFile struct {
	Entities    []Target `json:"entities"`
	TotalCount  int      `json:"total_count"`
	LastUpdated string   `json:"last_updated"`
	Description string   `json:"description"`
}

// ExtractFields reduces the archive to enrichment targets. Archived
// entities without both id and domain are skipped.
func ExtractFields(a *entity.Archive) *TargetFile {
	out := &TargetFile{
		Entities:    []Target{},
		Description: TargetsDescription,
	}
	if a == nil {
		return out
	}

	for _, e := range a.Entities {
		if e.ID == nil || e.Domain == nil {
			continue
		}
		out.Entities = append(out.Entities, Target{
			ID:              *e.ID,
			Domain:          *e.Domain,
			RansomwareGroup: e.RansomwareGroup,
			GroupKey:        e.GroupKey,
		})
	}
	out.TotalCount = len(out.Entities)
	out.LastUpdated = a.LastUpdated

	return out
}

// identity is the key a target or record is matched on: "id:group_key",
// falling back to "domain:<domain>" when either part is missing.
func identity(id string, groupKey *string, domain string) string {
	if id != "" && groupKey != nil && *groupKey != "" {
		return id + ":" + *groupKey
	}
	return "domain:" + domain
}

// Unprocessed returns the targets not yet present in the enrichment store.
// Targets without a domain are skipped.
func Unprocessed(targets []Target, processed []Record) []Target {
	seen := make(map[string]bool, 2*len(processed))
	for _, r := range processed {
		if r.ID != "" && r.GroupKey != nil && *r.GroupKey != "" {
			seen[r.ID+":"+*r.GroupKey] = true
		}
		if r.Domain != "" {
			seen["domain:"+r.Domain] = true
		}
	}

	var out []Target
	for _, t := range targets {
		if t.Domain == "" {
			continue
		}
		if !seen[identity(t.ID, t.GroupKey, t.Domain)] {
			out = append(out, t)
		}
	}
	return out
}

// Batches splits targets into consecutive groups of at most size.
func Batches(targets []Target, size int) [][]Target {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]Target
	for start := 0; start < len(targets); start += size {
		end := min(start+size, len(targets))
		out = append(out, targets[start:end])
	}
	return out
}
