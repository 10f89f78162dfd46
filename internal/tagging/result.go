package tagging

import (
	"encoding/json"
	"fmt"

	"github.com/ticket-tagger/backend/internal/models"
)

type Outcome string

const (
	Parsed    Outcome = "parsed"
	Malformed Outcome = "malformed"
)

// Result is the outcome of reading one model response. Tags is set only
// for Parsed; Raw and Reason only for Malformed.
type Result struct {
	Outcome Outcome
	Tags    []models.Category
	Raw     string
	Reason  string
}

// TagsOrEmpty returns the tags to record for the ticket. Malformed
// responses yield an empty, non-nil list.
func (r Result) TagsOrEmpty() []models.Category {
	if r.Outcome != Parsed || r.Tags == nil {
		return []models.Category{}
	}
	return r.Tags
}

type CategorySet map[models.Category]struct{}

func NewCategorySet(categories []models.Category) CategorySet {
	set := make(CategorySet, len(categories))
	for _, c := range categories {
		set[c] = struct{}{}
	}
	return set
}

func (s CategorySet) Contains(label string) bool {
	_, ok := s[models.Category(label)]
	return ok
}

// ParseTags accepts raw only when it is a JSON array whose every element is
// a known category. Order and duplicates are kept and length is not checked.
func ParseTags(raw string, allowed CategorySet) Result {
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return malformed(raw, fmt.Sprintf("invalid json: %v", err))
	}

	items, ok := decoded.([]any)
	if !ok {
		return malformed(raw, "response is not a JSON array")
	}

	tags := make([]models.Category, 0, len(items))
	for _, item := range items {
		label, ok := item.(string)
		if !ok || !allowed.Contains(label) {
			return malformed(raw, fmt.Sprintf("unknown category %v", item))
		}
		tags = append(tags, models.Category(label))
	}
	return Result{Outcome: Parsed, Tags: tags}
}

func malformed(raw, reason string) Result {
	return Result{Outcome: Malformed, Raw: raw, Reason: reason}
}
