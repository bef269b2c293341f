package extract

import (
	"errors"
	"testing"
	"time"

	"github.com/pevans/leakwatch/entity"
	"github.com/pevans/leakwatch/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var frozen = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// newTestEngine returns an engine with a frozen clock
func newTestEngine() *Engine {
	return &Engine{Now: func() time.Time { return frozen }}
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

// fixedDomain gives every block the same domain
func fixedDomain() scraper.FieldRule {
	return scraper.FieldRule{Name: "domain", Type: scraper.KindConditional, Default: strPtr("x.com")}
}

// compile validates a parsing config the way the site store does
func compile(t *testing.T, cfg scraper.ParsingConfig) scraper.ParsingConfig {
	t.Helper()
	d := scraper.SiteDescriptor{SiteKey: "test", Parsing: cfg}
	require.NoError(t, d.Validate())
	return d.Parsing
}

const lockbitHTML = `
<html><body>
<div class="post-big-list">
  <a class="post-block good" href="/victim-one">
    <div class="post-title">victim-one.com</div>
    <div class="post-block-text">Leaked accounting records</div>
    <div class="updated-post-date">12 Aug, 2024, 11:05 UTC</div>
    <div class="views">Views: 1234</div>
  </a>
  <a class="post-block bad" href="/victim-two">
    <div class="post-title">victim-two.org</div>
    <div class="post-timer">
      <span class="days">1</span><span class="hours">0</span>
      <span class="minutes">0</span><span class="seconds">0</span>
    </div>
    <div class="views">Views: many</div>
  </a>
  <a class="post-block" href="">
    <div class="post-title">no-id.net</div>
  </a>
</div>
</body></html>`

func lockbitConfig(t *testing.T) scraper.ParsingConfig {
	return compile(t, scraper.ParsingConfig{
		EntitySelector: "a.post-block",
		Fields: []scraper.FieldRule{
			{Name: "id", Type: scraper.KindAttribute, Selector: scraper.Self(), Attribute: "href", Regex: `^/?(.+)$`, RegexGroup: 1},
			{Name: "domain", Type: scraper.KindText, Selector: scraper.CSS(".post-title")},
			{Name: "description_preview", Type: scraper.KindText, Selector: scraper.CSS(".post-block-text"), Optional: true},
			{Name: "updated", Type: scraper.KindText, Selector: scraper.CSS(".updated-post-date"), Optional: true},
			{Name: "views", Type: scraper.KindText, Selector: scraper.CSS(".views"), Regex: `Views:\s*(\d+)`, RegexGroup: 1, Convert: scraper.ConvertInt, Optional: true},
			{Name: "status", Type: scraper.KindConditional, Conditions: []scraper.Condition{
				{Selector: scraper.CSS(".post-timer"), Exists: boolPtr(true), Value: entity.StatusCountdown},
				{Selector: scraper.Self(), Exists: boolPtr(true), Value: entity.StatusPublished},
			}},
			{Name: "countdown_remaining", Type: scraper.KindComplex,
				Condition: &scraper.Condition{Selector: scraper.CSS(".post-timer")},
				Fields: []scraper.FieldRule{
					{Name: "days", Type: scraper.KindText, Selector: scraper.CSS(".days"), Convert: scraper.ConvertInt},
					{Name: "hours", Type: scraper.KindText, Selector: scraper.CSS(".hours"), Convert: scraper.ConvertInt},
					{Name: "minutes", Type: scraper.KindText, Selector: scraper.CSS(".minutes"), Convert: scraper.ConvertInt},
					{Name: "seconds", Type: scraper.KindText, Selector: scraper.CSS(".seconds"), Convert: scraper.ConvertInt},
				}},
		},
	})
}

// TestExtract_LockBitListing verifies a full listing extraction
func TestExtract_LockBitListing(t *testing.T) {
	entities, err := newTestEngine().Extract(lockbitHTML, lockbitConfig(t))
	require.NoError(t, err)
	require.Len(t, entities, 2, "block without id is dropped")

	first := entities[0]
	assert.Equal(t, "victim-one", first.ID)
	assert.Equal(t, "victim-one.com", first.Domain)
	assert.Equal(t, "Leaked accounting records", first.DescriptionPreview)
	assert.Equal(t, "12 Aug, 2024, 11:05 UTC", first.Updated)
	assert.Equal(t, entity.StatusPublished, first.Status)
	require.NotNil(t, first.Views)
	views, ok := first.Views.Int()
	assert.True(t, ok)
	assert.Equal(t, 1234, views)
	assert.Nil(t, first.CountdownRemaining, "gate fails without a timer")
	assert.Empty(t, first.EstimatedPublishDate)

	second := entities[1]
	assert.Equal(t, "victim-two", second.ID)
	assert.Equal(t, entity.StatusCountdown, second.Status)
	assert.Nil(t, second.Views, "regex non-match abandons the field")
	assert.Empty(t, second.DescriptionPreview, "optional miss leaves field absent")
	require.NotNil(t, second.CountdownRemaining)
	assert.True(t, second.CountdownRemaining.Complete())
	assert.Equal(t, 1, *second.CountdownRemaining.Days)
}

// TestExtract_CountdownArithmetic verifies T + countdown in canonical form
func TestExtract_CountdownArithmetic(t *testing.T) {
	entities, err := newTestEngine().Extract(lockbitHTML, lockbitConfig(t))
	require.NoError(t, err)
	require.Len(t, entities, 2)

	expected := entity.FormatTime(frozen.Add(24 * time.Hour))
	assert.Equal(t, "2024-03-02 12:00:00 UTC", expected)
	assert.Equal(t, expected, entities[1].EstimatedPublishDate)
}

// TestExtract_NoEntityBlocks verifies a structural break is distinguishable
// from an empty result
func TestExtract_NoEntityBlocks(t *testing.T) {
	cfg := compile(t, scraper.ParsingConfig{
		EntitySelector: "div.does-not-exist",
		Fields: []scraper.FieldRule{
			{Name: "id", Type: scraper.KindText, Selector: scraper.Self()},
		},
	})

	entities, err := newTestEngine().Extract(lockbitHTML, cfg)
	assert.Nil(t, entities)
	assert.True(t, errors.Is(err, ErrNoEntityBlocks))
}

// TestExtract_AllBlocksWithoutID verifies an empty but valid result
func TestExtract_AllBlocksWithoutID(t *testing.T) {
	cfg := compile(t, scraper.ParsingConfig{
		EntitySelector: "a.post-block",
		Fields: []scraper.FieldRule{
			{Name: "id", Type: scraper.KindText, Selector: scraper.CSS(".missing"), Optional: true},
		},
	})

	entities, err := newTestEngine().Extract(lockbitHTML, cfg)
	require.NoError(t, err)
	assert.NotNil(t, entities)
	assert.Empty(t, entities)
}

// TestExtract_DropsWithoutDomain verifies entities lacking a domain are
// never returned
func TestExtract_DropsWithoutDomain(t *testing.T) {
	html := `
	<div class="item" data-id="1"></div>
	<div class="item" data-id="2"><span class="d">x.com</span></div>`
	cfg := compile(t, scraper.ParsingConfig{
		EntitySelector: "div.item",
		Fields: []scraper.FieldRule{
			{Name: "id", Type: scraper.KindAttribute, Selector: scraper.Self(), Attribute: "data-id"},
			{Name: "domain", Type: scraper.KindText, Selector: scraper.CSS(".d")},
		},
	})

	entities, err := newTestEngine().Extract(html, cfg)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "2", entities[0].ID)
	assert.Equal(t, "x.com", entities[0].Domain)
}

// TestExtract_UncompiledConfig verifies regex rules work without a prior
// Validate and leave the caller's config untouched
func TestExtract_UncompiledConfig(t *testing.T) {
	html := `<div class="item"><a href="/post/abc123">x.com</a></div>`
	cfg := scraper.ParsingConfig{
		EntitySelector: "div.item",
		Fields: []scraper.FieldRule{
			{Name: "id", Type: scraper.KindAttribute, Selector: scraper.CSS("a"), Attribute: "href", Regex: `/post/(\w+)`, RegexGroup: 1},
			{Name: "domain", Type: scraper.KindText, Selector: scraper.CSS("a")},
		},
	}

	entities, err := newTestEngine().Extract(html, cfg)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "abc123", entities[0].ID)
	assert.Nil(t, cfg.Fields[0].Pattern())
}

// TestExtract_InvalidUncompiledRule verifies a bad regex is reported
func TestExtract_InvalidUncompiledRule(t *testing.T) {
	cfg := scraper.ParsingConfig{
		EntitySelector: "a.post-block",
		Fields: []scraper.FieldRule{
			{Name: "id", Type: scraper.KindText, Selector: scraper.Self(), Regex: `(`},
		},
	}

	_, err := newTestEngine().Extract(lockbitHTML, cfg)
	assert.Error(t, err)
}

// TestExtract_NoEntitySelector verifies a missing root selector is an error
func TestExtract_NoEntitySelector(t *testing.T) {
	_, err := newTestEngine().Extract(lockbitHTML, scraper.ParsingConfig{})
	assert.True(t, errors.Is(err, ErrNoEntitySelector))
}

// TestConditional_FirstMatchWins verifies ordered branch evaluation
func TestConditional_FirstMatchWins(t *testing.T) {
	html := `<div class="item" data-id="1"><span class="b">b</span></div>`
	cfg := compile(t, scraper.ParsingConfig{
		EntitySelector: "div.item",
		Fields: []scraper.FieldRule{
			{Name: "id", Type: scraper.KindAttribute, Selector: scraper.Self(), Attribute: "data-id"},
			fixedDomain(),
			{Name: "status", Type: scraper.KindConditional, Conditions: []scraper.Condition{
				{Selector: scraper.CSS(".a"), Exists: boolPtr(true), Value: "X"},
				{Selector: scraper.CSS(".b"), Exists: boolPtr(true), Value: "Y"},
			}},
		},
	})

	entities, err := newTestEngine().Extract(html, cfg)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "Y", entities[0].Status)
}

// TestConditional_ExistsFalseAndDefault verifies absence checks and defaults
func TestConditional_ExistsFalseAndDefault(t *testing.T) {
	html := `<div class="item" data-id="1"></div><div class="item" data-id="2"><i class="lock"></i></div>`
	cfg := compile(t, scraper.ParsingConfig{
		EntitySelector: "div.item",
		Fields: []scraper.FieldRule{
			{Name: "id", Type: scraper.KindAttribute, Selector: scraper.Self(), Attribute: "data-id"},
			fixedDomain(),
			{Name: "status", Type: scraper.KindConditional, Conditions: []scraper.Condition{
				{Selector: scraper.CSS(".lock"), Exists: boolPtr(false), Value: "published"},
			}, Default: strPtr("unknown")},
			{Name: "class", Type: scraper.KindConditional, Conditions: []scraper.Condition{
				{Selector: scraper.CSS(".never"), Value: "never"},
			}},
		},
	})

	entities, err := newTestEngine().Extract(html, cfg)
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, "published", entities[0].Status)
	assert.Equal(t, "unknown", entities[1].Status)
	assert.Empty(t, entities[0].Class, "no match and no default leaves field absent")
}

// TestSelfAttributePredicate verifies self[attr*="value"] matching
func TestSelfAttributePredicate(t *testing.T) {
	html := `
	<div class="segment published" id="a"></div>
	<div class="segment timer" id="b"></div>`

	timer, err := scraper.ParseSelector(`self[class*="timer"]`)
	require.NoError(t, err)

	cfg := compile(t, scraper.ParsingConfig{
		EntitySelector: "div.segment",
		Fields: []scraper.FieldRule{
			{Name: "id", Type: scraper.KindAttribute, Selector: scraper.Self(), Attribute: "id"},
			fixedDomain(),
			{Name: "status", Type: scraper.KindConditional, Conditions: []scraper.Condition{
				{Selector: timer, Value: "countdown"},
			}, Default: strPtr("published")},
		},
	})

	entities, err := newTestEngine().Extract(html, cfg)
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, "published", entities[0].Status)
	assert.Equal(t, "countdown", entities[1].Status)
}

// TestLegacyCountdownText verifies "5D 21h 16m 8s" parsing and arithmetic
func TestLegacyCountdownText(t *testing.T) {
	html := `<div class="card" data-id="rh1"><span class="domain">x.com</span><span class="count">5D 21h 16m 8s</span></div>`
	cfg := compile(t, scraper.ParsingConfig{
		EntitySelector: "div.card",
		Fields: []scraper.FieldRule{
			{Name: "id", Type: scraper.KindAttribute, Selector: scraper.Self(), Attribute: "data-id"},
			fixedDomain(),
			{Name: "domain", Type: scraper.KindText, Selector: scraper.CSS(".domain")},
			{Name: "status", Type: scraper.KindConditional, Conditions: []scraper.Condition{
				{Selector: scraper.CSS(".count"), Value: entity.StatusCountdown},
			}},
			{Name: "countdown_remaining", Type: scraper.KindComplex, Fields: []scraper.FieldRule{
				{Name: "countdown_text", Type: scraper.KindText, Selector: scraper.CSS(".count")},
			}},
		},
	})

	entities, err := newTestEngine().Extract(html, cfg)
	require.NoError(t, err)
	require.Len(t, entities, 1)

	c := entities[0].CountdownRemaining
	require.NotNil(t, c)
	require.True(t, c.Complete())
	assert.Equal(t, 5, *c.Days)
	assert.Equal(t, 21, *c.Hours)
	assert.Equal(t, 16, *c.Minutes)
	assert.Equal(t, 8, *c.Seconds)

	expected := frozen.Add(5*24*time.Hour + 21*time.Hour + 16*time.Minute + 8*time.Second)
	assert.Equal(t, entity.FormatTime(expected), entities[0].EstimatedPublishDate)
}

// TestParseCountdownText verifies missing components are zero
func TestParseCountdownText(t *testing.T) {
	d, h, m, s := ParseCountdownText("3D 4h")
	assert.Equal(t, []int{3, 4, 0, 0}, []int{d, h, m, s})
}

// TestCountdownDate verifies an explicit date becomes the publish estimate
func TestCountdownDate(t *testing.T) {
	html := `<div class="card" data-id="1" data-date="2025-02-10 12:00:00"></div>`
	cfg := compile(t, scraper.ParsingConfig{
		EntitySelector: "div.card",
		Fields: []scraper.FieldRule{
			{Name: "id", Type: scraper.KindAttribute, Selector: scraper.Self(), Attribute: "data-id"},
			fixedDomain(),
			{Name: "status", Type: scraper.KindConditional, Default: strPtr(entity.StatusCountdown)},
			{Name: "countdown_date", Type: scraper.KindAttribute, Selector: scraper.Self(), Attribute: "data-date"},
		},
	})

	entities, err := newTestEngine().Extract(html, cfg)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "2025-02-10 12:00:00 UTC", entities[0].EstimatedPublishDate)
}

// TestTextCondition verifies a gated text rule is skipped when the gate fails
func TestTextCondition(t *testing.T) {
	html := `<div class="card" data-id="1"><span class="size">10GB</span></div>`
	cfg := compile(t, scraper.ParsingConfig{
		EntitySelector: "div.card",
		Fields: []scraper.FieldRule{
			{Name: "id", Type: scraper.KindAttribute, Selector: scraper.Self(), Attribute: "data-id"},
			fixedDomain(),
			{Name: "data_size", Type: scraper.KindText, Selector: scraper.CSS(".size"),
				Condition: &scraper.Condition{Selector: scraper.CSS(".published")}},
		},
	})

	entities, err := newTestEngine().Extract(html, cfg)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Empty(t, entities[0].DataSize)
}

// TestRegexGroupOutOfRange verifies a missing capture group is a non-match
func TestRegexGroupOutOfRange(t *testing.T) {
	html := `<div class="card" data-id="abc"><span class="country">Country: DE</span></div>`
	cfg := compile(t, scraper.ParsingConfig{
		EntitySelector: "div.card",
		Fields: []scraper.FieldRule{
			{Name: "id", Type: scraper.KindAttribute, Selector: scraper.Self(), Attribute: "data-id"},
			fixedDomain(),
			{Name: "country", Type: scraper.KindText, Selector: scraper.CSS(".country"), Regex: `Country: \w+`, RegexGroup: 1},
		},
	})

	entities, err := newTestEngine().Extract(html, cfg)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Empty(t, entities[0].Country)
}

// TestConvertFailure verifies a coercion failure abandons only that field
func TestConvertFailure(t *testing.T) {
	html := `<div class="card" data-id="1"><span class="visits">n/a</span><span class="dom">d.com</span></div>`
	cfg := compile(t, scraper.ParsingConfig{
		EntitySelector: "div.card",
		Fields: []scraper.FieldRule{
			{Name: "id", Type: scraper.KindAttribute, Selector: scraper.Self(), Attribute: "data-id"},
			fixedDomain(),
			{Name: "visits", Type: scraper.KindText, Selector: scraper.CSS(".visits"), Convert: scraper.ConvertInt},
			{Name: "domain", Type: scraper.KindText, Selector: scraper.CSS(".dom")},
		},
	})

	entities, err := newTestEngine().Extract(html, cfg)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Nil(t, entities[0].Visits)
	assert.Equal(t, "d.com", entities[0].Domain)
}

// TestComplexWithoutValues verifies an empty nested record is omitted
func TestComplexWithoutValues(t *testing.T) {
	html := `<div class="card" data-id="1"><div class="timer"></div></div>`
	cfg := compile(t, scraper.ParsingConfig{
		EntitySelector: "div.card",
		Fields: []scraper.FieldRule{
			{Name: "id", Type: scraper.KindAttribute, Selector: scraper.Self(), Attribute: "data-id"},
			fixedDomain(),
			{Name: "countdown_remaining", Type: scraper.KindComplex,
				Condition: &scraper.Condition{Selector: scraper.CSS(".timer")},
				Fields: []scraper.FieldRule{
					{Name: "days", Type: scraper.KindText, Selector: scraper.CSS(".days"), Optional: true},
				}},
		},
	})

	entities, err := newTestEngine().Extract(html, cfg)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Nil(t, entities[0].CountdownRemaining)
}

// TestExtractSite verifies the descriptor wrapper passes results through
func TestExtractSite(t *testing.T) {
	site := &scraper.SiteDescriptor{SiteKey: "lockbit", SiteName: "LockBit", Parsing: lockbitConfig(t)}

	entities, err := newTestEngine().ExtractSite(lockbitHTML, site)
	require.NoError(t, err)
	assert.Len(t, entities, 2)
}
