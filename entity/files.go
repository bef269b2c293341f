package entity

// ArchiveDescription is the header written into a newly created archive.
const ArchiveDescription = "Complete archive of all discovered ransomware entities"

// Database is the envelope shared by the per-site snapshot and the
// cross-site staging file.
type Database struct {
	Entities    []Entity `json:"entities"`
	LastUpdated string   `json:"last_updated"`
	TotalCount  int      `json:"total_count"`
}

// NewDatabase returns a database holding entities, stamped with lastUpdated.
func NewDatabase(entities []Entity, lastUpdated string) *Database {
	if entities == nil {
		entities = []Entity{}
	}
	return &Database{
		Entities:    entities,
		LastUpdated: lastUpdated,
		TotalCount:  len(entities),
	}
}

// Batch records exactly one run's discoveries for one site. Batch files are
// written once and never modified.
type Batch struct {
	Entities        []Entity `json:"entities"`
	LastUpdated     string   `json:"last_updated"`
	TotalCount      int      `json:"total_count"`
	RansomwareGroup string   `json:"ransomware_group"`
	GroupKey        string   `json:"group_key"`
}

// StandardizedCountdown is the countdown shape stored in the archive: every
// key present, missing values null.
type StandardizedCountdown struct {
	Text    *string `json:"countdown_text"`
	Days    *int    `json:"days"`
	Hours   *int    `json:"hours"`
	Minutes *int    `json:"minutes"`
	Seconds *int    `json:"seconds"`
}

// StandardizedEntity is the fixed archive schema. Every field is always
// serialized; absent values are null.
type StandardizedEntity struct {
	ID                   *string                `json:"id"`
	Domain               *string                `json:"domain"`
	Status               *string                `json:"status"`
	DescriptionPreview   *string                `json:"description_preview"`
	Updated              *string                `json:"updated"`
	Views                *Flex                  `json:"views"`
	CountdownRemaining   *StandardizedCountdown `json:"countdown_remaining"`
	EstimatedPublishDate *string                `json:"estimated_publish_date"`
	FirstSeen            *string                `json:"first_seen"`
	RansomwareGroup      *string                `json:"ransomware_group"`
	GroupKey             *string                `json:"group_key"`
	Country              *string                `json:"country"`
	DataSize             *string                `json:"data_size"`
	LastView             *string                `json:"last_view"`
	Visits               *Flex                  `json:"visits"`
	Class                *string                `json:"class"`
}

// Key returns the composite archive key "id:domain", or "" if either part
// is missing.
func (s *StandardizedEntity) Key() string {
	if s.ID == nil || s.Domain == nil {
		return ""
	}
	return *s.ID + ":" + *s.Domain
}

// Archive is the permanent, append-only record of every entity ever
// discovered.
type Archive struct {
	Entities    []StandardizedEntity `json:"entities"`
	LastUpdated string               `json:"last_updated"`
	TotalCount  int                  `json:"total_count"`
	Description string               `json:"description"`
}

// Str returns a pointer to s, or nil if s is empty.
func Str(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Int returns a pointer to n.
func Int(n int) *int {
	return &n
}
