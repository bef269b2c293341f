// Package extract turns leak-site HTML into entities using the declarative
// field rules of a site descriptor. One engine serves every site; all
// site-specific knowledge lives in the descriptor.
package extract

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/leakwatch/entity"
	"github.com/pevans/leakwatch/scraper"
)

var (
	// ErrNoEntitySelector is returned when the parsing config has no root
	// selector.
	ErrNoEntitySelector = errors.New("no entity selector configured")
	// ErrNoEntityBlocks is returned when the root selector matches nothing.
	// This signals a structural change on the site, not an empty listing.
	ErrNoEntityBlocks = errors.New("no entity blocks found")
)

// Engine evaluates parsing configs against HTML.
type Engine struct {
	// Now supplies the current time for countdown arithmetic.
	Now func() time.Time
	// Verbose enables DEBUG log lines for optional-field misses.
	Verbose bool
}

// New returns an engine using the system clock.
func New() *Engine {
	return &Engine{Now: time.Now}
}

// ExtractSite runs Extract with the descriptor's parsing config and logs the
// outcome under the site's name.
func (e *Engine) ExtractSite(html string, site *scraper.SiteDescriptor) ([]entity.Entity, error) {
	entities, err := e.Extract(html, site.Parsing)
	if err != nil {
		log.Printf("WARN: %s: %v", site.Name(), err)
		return nil, err
	}

	log.Printf("INFO: Extracted %d entities from %s", len(entities), site.Name())
	return entities, nil
}

// Extract parses html and returns one entity per block matched by
// cfg.EntitySelector. Blocks that yield no id or no domain are dropped. If
// the selector matches nothing, ErrNoEntityBlocks is returned; a page whose
// blocks all lack identity returns an empty, non-nil slice. Rules that have
// not been compiled yet are compiled here.
func (e *Engine) Extract(html string, cfg scraper.ParsingConfig) ([]entity.Entity, error) {
	if strings.TrimSpace(cfg.EntitySelector) == "" {
		return nil, ErrNoEntitySelector
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	rules, err := compileRules(cfg.Fields)
	if err != nil {
		return nil, err
	}

	blocks := doc.Find(cfg.EntitySelector)
	if blocks.Length() == 0 {
		return nil, fmt.Errorf("%w using selector: %s", ErrNoEntityBlocks, cfg.EntitySelector)
	}

	log.Printf("INFO: Found %d entity blocks", blocks.Length())

	entities := []entity.Entity{}
	blocks.Each(func(i int, block *goquery.Selection) {
		ent := e.extractEntity(block, rules)
		if ent.ID == "" {
			log.Printf("WARN: Skipping entity block %d without ID", i)
			return
		}
		if !ent.HasIdentity() {
			log.Printf("WARN: Skipping entity %s without domain", ent.ID)
			return
		}
		entities = append(entities, ent)
	})

	return entities, nil
}

// compileRules returns rules ready for evaluation. Rules carrying a regex
// that has not been compiled are compiled on a copy, so the caller's
// config is left untouched.
func compileRules(rules []scraper.FieldRule) ([]scraper.FieldRule, error) {
	if !needsCompile(rules) {
		return rules, nil
	}

	compiled := cloneRules(rules)
	for i := range compiled {
		if err := compiled[i].Compile(); err != nil {
			return nil, fmt.Errorf("invalid field rule: %w", err)
		}
	}
	return compiled, nil
}

func cloneRules(rules []scraper.FieldRule) []scraper.FieldRule {
	if rules == nil {
		return nil
	}
	out := make([]scraper.FieldRule, len(rules))
	copy(out, rules)
	for i := range out {
		out[i].Fields = cloneRules(rules[i].Fields)
	}
	return out
}

func needsCompile(rules []scraper.FieldRule) bool {
	for i := range rules {
		r := &rules[i]
		if r.Regex != "" && r.Pattern() == nil {
			return true
		}
		if needsCompile(r.Fields) {
			return true
		}
	}
	return false
}

// extractEntity evaluates every rule in declaration order against block.
func (e *Engine) extractEntity(block *goquery.Selection, rules []scraper.FieldRule) entity.Entity {
	var ent entity.Entity

	for i := range rules {
		e.applyRule(&ent, block, &rules[i])
	}

	e.estimatePublishDate(&ent)
	return ent
}

// applyRule evaluates a single rule. A failing rule never aborts the entity.
func (e *Engine) applyRule(ent *entity.Entity, block *goquery.Selection, rule *scraper.FieldRule) {
	defer func() {
		if r := recover(); r != nil {
			e.fieldMiss(rule, "error extracting field: %v", r)
		}
	}()

	switch rule.Type {
	case scraper.KindText, scraper.KindAttribute:
		v, ok := e.extractValue(block, rule)
		if ok {
			e.set(ent, rule, v)
		}
	case scraper.KindConditional:
		if v, ok := evalConditional(block, rule); ok {
			e.set(ent, rule, stringValue(v))
		}
	case scraper.KindComplex:
		if c := e.extractComplex(block, rule); c != nil {
			if rule.Name != "countdown_remaining" {
				e.fieldMiss(rule, "complex field %q is not supported", rule.Name)
				return
			}
			ent.CountdownRemaining = c
		}
	}
}

// value is the result of one text or attribute rule: a string, or an
// integer after convert.
type value struct {
	text  string
	num   int
	isNum bool
}

func stringValue(s string) value {
	return value{text: s}
}

func intValue(n int) value {
	return value{text: strconv.Itoa(n), num: n, isNum: true}
}

// extractValue runs the condition gate, selector, regex and coercion of a
// text or attribute rule.
func (e *Engine) extractValue(block *goquery.Selection, rule *scraper.FieldRule) (value, bool) {
	if rule.Condition != nil && !conditionHolds(block, *rule.Condition) {
		return value{}, false
	}

	el := resolve(block, rule.Selector)
	if el == nil {
		e.fieldMiss(rule, "could not find element with selector '%s'", rule.Selector)
		return value{}, false
	}

	var raw string
	if rule.Type == scraper.KindAttribute {
		raw, _ = el.Attr(rule.Attribute)
	} else {
		raw = strings.TrimSpace(el.Text())
	}

	if re := rule.Pattern(); re != nil && raw != "" {
		m := re.FindStringSubmatch(raw)
		if m == nil || rule.RegexGroup >= len(m) {
			e.fieldMiss(rule, "regex '%s' did not match", rule.Regex)
			return value{}, false
		}
		raw = m[rule.RegexGroup]
	}

	if rule.Convert == scraper.ConvertInt {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			e.fieldMiss(rule, "could not convert value '%s' to int", raw)
			return value{}, false
		}
		return intValue(n), true
	}

	return stringValue(raw), true
}

// evalConditional returns the value of the first condition whose existence
// check matches, else the rule's default.
func evalConditional(block *goquery.Selection, rule *scraper.FieldRule) (string, bool) {
	for _, c := range rule.Conditions {
		if conditionHolds(block, c) {
			return c.Value, true
		}
	}

	if rule.Default != nil {
		return *rule.Default, true
	}
	return "", false
}

// extractComplex evaluates the gate and the nested sub-fields. It returns nil
// when the gate fails or no sub-field produced a value.
func (e *Engine) extractComplex(block *goquery.Selection, rule *scraper.FieldRule) *entity.Countdown {
	if rule.Condition != nil && !conditionHolds(block, *rule.Condition) {
		return nil
	}

	var c entity.Countdown
	found := false
	for i := range rule.Fields {
		sub := &rule.Fields[i]
		v, ok := e.extractValue(block, sub)
		if !ok {
			continue
		}
		if e.setCountdownPart(&c, sub, v) {
			found = true
		}
	}

	if !found {
		return nil
	}
	return &c
}

// conditionHolds reports whether the selector's presence matches the
// condition's expectation.
func conditionHolds(block *goquery.Selection, c scraper.Condition) bool {
	present := resolve(block, c.Selector) != nil
	return present == c.WantExists()
}

// resolve returns the element a selector designates within block, or nil.
func resolve(block *goquery.Selection, sel scraper.Selector) *goquery.Selection {
	if sel.Kind == scraper.SelectSelf {
		if sel.Attr != "" {
			attr, _ := block.Attr(sel.Attr)
			if !strings.Contains(attr, sel.Contains) {
				return nil
			}
		}
		return block
	}

	found := block.Find(sel.CSS).First()
	if found.Length() == 0 {
		return nil
	}
	return found
}

// fieldMiss logs an abandoned field: silently for optional fields, as a
// warning otherwise.
func (e *Engine) fieldMiss(rule *scraper.FieldRule, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if rule.Optional {
		if e.Verbose {
			log.Printf("DEBUG: field '%s': %s", rule.Name, msg)
		}
		return
	}
	log.Printf("WARN: field '%s': %s", rule.Name, msg)
}
