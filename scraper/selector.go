package scraper

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// SelectorKind distinguishes the entity block itself from a descendant.
type SelectorKind int

const (
	// SelectCSS selects the first descendant matching a CSS selector.
	SelectCSS SelectorKind = iota
	// SelectSelf selects the entity block itself.
	SelectSelf
)

// selfToken is the literal selector meaning "the entity block".
const selfToken = "self"

var selfAttrPattern = regexp.MustCompile(`^self\[\s*([A-Za-z_:][-A-Za-z0-9_:.]*)\s*\*=\s*["']([^"']*)["']\s*\]$`)

// Selector is a parsed selector expression. It is written in descriptors as
// a plain string: "self", `self[class*="timer"]`, or any CSS selector.
type Selector struct {
	Kind SelectorKind
	// CSS is the selector text when Kind is SelectCSS.
	CSS string
	// Attr and Contains form an optional predicate on the entity block:
	// the block matches only if attribute Attr contains Contains.
	Attr     string
	Contains string
}

// Self returns the selector for the entity block itself.
func Self() Selector {
	return Selector{Kind: SelectSelf}
}

// CSS returns a descendant selector.
func CSS(css string) Selector {
	return Selector{Kind: SelectCSS, CSS: css}
}

// ParseSelector parses the descriptor form of a selector.
func ParseSelector(s string) (Selector, error) {
	s = strings.TrimSpace(s)

	switch {
	case s == "":
		return Selector{}, nil
	case s == selfToken:
		return Self(), nil
	case strings.HasPrefix(s, selfToken+"["):
		m := selfAttrPattern.FindStringSubmatch(s)
		if m == nil {
			return Selector{}, fmt.Errorf("invalid self selector %q: expected self[attr*=\"value\"]", s)
		}
		return Selector{Kind: SelectSelf, Attr: m[1], Contains: m[2]}, nil
	default:
		return CSS(s), nil
	}
}

// IsZero reports whether the selector is empty.
func (s Selector) IsZero() bool {
	return s.Kind == SelectCSS && s.CSS == ""
}

// String renders the selector back into descriptor form.
func (s Selector) String() string {
	if s.Kind == SelectCSS {
		return s.CSS
	}
	if s.Attr != "" {
		return fmt.Sprintf(`self[%s*="%s"]`, s.Attr, s.Contains)
	}
	return selfToken
}

// MarshalJSON implements json.Marshaler.
func (s Selector) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Selector) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("selector must be a string: %w", err)
	}

	parsed, err := ParseSelector(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
