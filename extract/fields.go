package extract

import (
	"strconv"
	"strings"

	"github.com/pevans/leakwatch/entity"
	"github.com/pevans/leakwatch/scraper"
)

// set writes v into the entity field named by the rule.
func (e *Engine) set(ent *entity.Entity, rule *scraper.FieldRule, v value) {
	switch rule.Name {
	case "id":
		ent.ID = v.text
	case "domain":
		ent.Domain = v.text
	case "status":
		ent.Status = v.text
	case "description_preview":
		ent.DescriptionPreview = v.text
	case "updated":
		ent.Updated = v.text
	case "views":
		ent.Views = counter(v)
	case "visits":
		ent.Visits = counter(v)
	case "country":
		ent.Country = v.text
	case "data_size":
		ent.DataSize = v.text
	case "last_view":
		ent.LastView = v.text
	case "class":
		ent.Class = v.text
	case "countdown_date":
		ent.CountdownDate = v.text
	case "estimated_publish_date":
		ent.EstimatedPublishDate = v.text
	case "countdown_remaining":
		// A flat countdown is kept as text and parsed later
		text := v.text
		ent.CountdownRemaining = &entity.Countdown{Text: &text}
	default:
		e.fieldMiss(rule, "no entity field named '%s'", rule.Name)
	}
}

// setCountdownPart writes one sub-field of a countdown. It reports whether
// the value was stored.
func (e *Engine) setCountdownPart(c *entity.Countdown, rule *scraper.FieldRule, v value) bool {
	if rule.Name == "countdown_text" {
		text := v.text
		c.Text = &text
		return true
	}

	n := v.num
	if !v.isNum {
		parsed, err := strconv.Atoi(strings.TrimSpace(v.text))
		if err != nil {
			e.fieldMiss(rule, "countdown part '%s' is not a number", v.text)
			return false
		}
		n = parsed
	}

	switch rule.Name {
	case "days":
		c.Days = entity.Int(n)
	case "hours":
		c.Hours = entity.Int(n)
	case "minutes":
		c.Minutes = entity.Int(n)
	case "seconds":
		c.Seconds = entity.Int(n)
	default:
		e.fieldMiss(rule, "no countdown field named '%s'", rule.Name)
		return false
	}
	return true
}

func counter(v value) *entity.Flex {
	if v.isNum {
		return entity.IntFlex(v.num)
	}
	return entity.StringFlex(v.text)
}
