package scraper

import (
	"fmt"
	"regexp"

	"github.com/andybalholm/cascadia"
)

// FieldKind tags the variant of a FieldRule.
type FieldKind string

const (
	// KindText reads the trimmed text of the selected element.
	KindText FieldKind = "text"
	// KindAttribute reads a DOM attribute of the selected element.
	KindAttribute FieldKind = "attribute"
	// KindConditional picks a literal value from the first condition whose
	// existence check matches.
	KindConditional FieldKind = "conditional"
	// KindComplex extracts nested text/attribute sub-fields behind a gate.
	KindComplex FieldKind = "complex"
)

// ConvertInt is the only supported type coercion.
const ConvertInt = "int"

// Condition is an existence check on a selector. Exists defaults to true.
type Condition struct {
	Selector Selector `json:"selector"`
	Exists   *bool    `json:"exists,omitempty"`
	Value    string   `json:"value,omitempty"`
}

// WantExists reports whether the condition expects the selector to match.
func (c Condition) WantExists() bool {
	return c.Exists == nil || *c.Exists
}

// FieldRule is one declarative extraction rule. Type selects which of the
// remaining fields are meaningful:
//
//   - text, attribute: Selector, Attribute (attribute only), Regex,
//     RegexGroup, Convert, Optional, Condition
//   - conditional: Conditions, Default
//   - complex: Condition, Fields (text/attribute only)
type FieldRule struct {
	Name       string      `json:"name"`
	Type       FieldKind   `json:"type"`
	Selector   Selector    `json:"selector"`
	Attribute  string      `json:"attribute,omitempty"`
	Regex      string      `json:"regex,omitempty"`
	RegexGroup int         `json:"regex_group,omitempty"`
	Convert    string      `json:"convert,omitempty"`
	Optional   bool        `json:"optional,omitempty"`
	Condition  *Condition  `json:"condition,omitempty"`
	Conditions []Condition `json:"conditions,omitempty"`
	Default    *string     `json:"default,omitempty"`
	Fields     []FieldRule `json:"fields,omitempty"`

	re *regexp.Regexp
}

// Pattern returns the compiled regex, or nil if the rule has none.
func (f *FieldRule) Pattern() *regexp.Regexp {
	return f.re
}

// Compile validates the rule and compiles its regex.
func (f *FieldRule) Compile() error {
	if f.Name == "" {
		return fmt.Errorf("field name is required")
	}

	switch f.Type {
	case KindText, KindAttribute:
		if f.Selector.IsZero() {
			return fmt.Errorf("field %q: selector is required", f.Name)
		}
		if err := f.Selector.Check(); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
		if f.Type == KindAttribute && f.Attribute == "" {
			return fmt.Errorf("field %q: attribute is required", f.Name)
		}
		if f.Convert != "" && f.Convert != ConvertInt {
			return fmt.Errorf("field %q: unsupported convert %q", f.Name, f.Convert)
		}
		if f.RegexGroup < 0 {
			return fmt.Errorf("field %q: regex_group must not be negative", f.Name)
		}
		if f.Regex != "" {
			re, err := regexp.Compile(f.Regex)
			if err != nil {
				return fmt.Errorf("field %q: invalid regex: %w", f.Name, err)
			}
			f.re = re
		}
	case KindConditional:
		if len(f.Conditions) == 0 && f.Default == nil {
			return fmt.Errorf("field %q: conditional needs conditions or a default", f.Name)
		}
		for _, c := range f.Conditions {
			if c.Selector.IsZero() {
				return fmt.Errorf("field %q: condition selector is required", f.Name)
			}
			if err := c.Selector.Check(); err != nil {
				return fmt.Errorf("field %q: %w", f.Name, err)
			}
		}
	case KindComplex:
		if f.Condition != nil {
			if err := f.Condition.Selector.Check(); err != nil {
				return fmt.Errorf("field %q: %w", f.Name, err)
			}
		}
		for i := range f.Fields {
			sub := &f.Fields[i]
			if sub.Type != KindText && sub.Type != KindAttribute {
				return fmt.Errorf("field %q: sub-field %q must be text or attribute", f.Name, sub.Name)
			}
			if err := sub.Compile(); err != nil {
				return fmt.Errorf("field %q: %w", f.Name, err)
			}
		}
	default:
		return fmt.Errorf("field %q: unknown type %q", f.Name, f.Type)
	}

	return nil
}

// Check reports whether a CSS selector parses.
func (s Selector) Check() error {
	if s.Kind != SelectCSS || s.CSS == "" {
		return nil
	}
	if _, err := cascadia.Compile(s.CSS); err != nil {
		return fmt.Errorf("invalid selector %q: %w", s.CSS, err)
	}
	return nil
}
