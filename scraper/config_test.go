package scraper

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseSelector covers the three selector forms
func TestParseSelector(t *testing.T) {
	sel, err := ParseSelector("self")
	require.NoError(t, err)
	assert.Equal(t, SelectSelf, sel.Kind)
	assert.Empty(t, sel.Attr)

	sel, err = ParseSelector(`self[class*="timer"]`)
	require.NoError(t, err)
	assert.Equal(t, SelectSelf, sel.Kind)
	assert.Equal(t, "class", sel.Attr)
	assert.Equal(t, "timer", sel.Contains)

	sel, err = ParseSelector("div.post-title")
	require.NoError(t, err)
	assert.Equal(t, SelectCSS, sel.Kind)
	assert.Equal(t, "div.post-title", sel.CSS)

	_, err = ParseSelector("self[class]")
	assert.Error(t, err, "attribute predicate without a value is rejected")
}

// TestSelector_RoundTrip verifies selectors serialize to their string form
func TestSelector_RoundTrip(t *testing.T) {
	for _, raw := range []string{"self", `self[class*="timer"]`, "a.post-block > span"} {
		sel, err := ParseSelector(raw)
		require.NoError(t, err)

		data, err := json.Marshal(sel)
		require.NoError(t, err)

		var back Selector
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, sel, back, raw)
	}
}

// TestSiteDescriptor_Defaults verifies name and snapshot file fallbacks
func TestSiteDescriptor_Defaults(t *testing.T) {
	d := &SiteDescriptor{SiteKey: "bashe"}
	assert.Equal(t, "bashe", d.Name())
	assert.Equal(t, "bashe_entities.json", d.SnapshotFile())

	d.SiteName = "Bashe"
	d.JSONFile = "custom.json"
	assert.Equal(t, "Bashe", d.Name())
	assert.Equal(t, "custom.json", d.SnapshotFile())
}

// TestSiteDescriptor_Unmarshal verifies a full descriptor decodes and compiles
func TestSiteDescriptor_Unmarshal(t *testing.T) {
	raw := `{
		"site_key": "lockbit",
		"site_name": "LockBit",
		"mirrors": ["lockbitexample.onion"],
		"site_verification": {"type": "text", "value": "LockBit"},
		"parsing": {
			"entity_selector": "a.post-block",
			"fields": [
				{"name": "id", "type": "attribute", "selector": "self", "attribute": "href", "regex": "^\\/?(.+)$", "regex_group": 1},
				{"name": "status", "type": "conditional", "conditions": [
					{"selector": "self[class*=\"good\"]", "exists": true, "value": "published"}
				], "default": "unknown"},
				{"name": "countdown_remaining", "type": "complex",
				 "condition": {"selector": ".timer"},
				 "fields": [{"name": "days", "type": "text", "selector": ".days", "convert": "int"}]}
			]
		}
	}`

	var d SiteDescriptor
	require.NoError(t, json.Unmarshal([]byte(raw), &d))
	require.NoError(t, d.Validate())

	require.Len(t, d.Parsing.Fields, 3)
	id := d.Parsing.Fields[0]
	assert.Equal(t, KindAttribute, id.Type)
	assert.Equal(t, SelectSelf, id.Selector.Kind)
	require.NotNil(t, id.Pattern())
	assert.Equal(t, 1, id.RegexGroup)

	status := d.Parsing.Fields[1]
	require.Len(t, status.Conditions, 1)
	assert.True(t, status.Conditions[0].WantExists())
	assert.Equal(t, "good", status.Conditions[0].Selector.Contains)

	countdown := d.Parsing.Fields[2]
	require.NotNil(t, countdown.Condition)
	assert.True(t, countdown.Condition.WantExists(), "exists defaults to true")
}

// TestFieldRule_CompileErrors covers rejected rules
func TestFieldRule_CompileErrors(t *testing.T) {
	cases := map[string]FieldRule{
		"missing name":      {Type: KindText, Selector: CSS("a")},
		"unknown type":      {Name: "x", Type: "xpath"},
		"missing selector":  {Name: "x", Type: KindText},
		"missing attribute": {Name: "x", Type: KindAttribute, Selector: Self()},
		"bad regex":         {Name: "x", Type: KindText, Selector: CSS("a"), Regex: "("},
		"bad convert":       {Name: "x", Type: KindText, Selector: CSS("a"), Convert: "float"},
		"bad css":           {Name: "x", Type: KindText, Selector: CSS("div[")},
		"nested complex": {Name: "x", Type: KindComplex, Fields: []FieldRule{
			{Name: "y", Type: KindConditional, Default: new(string)},
		}},
	}

	for name, rule := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, rule.Compile())
		})
	}
}

// TestSiteDescriptor_ValidateRequiresEntitySelector verifies the root
// selector is mandatory
func TestSiteDescriptor_ValidateRequiresEntitySelector(t *testing.T) {
	d := &SiteDescriptor{SiteKey: "x"}
	err := d.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entity_selector")
}
