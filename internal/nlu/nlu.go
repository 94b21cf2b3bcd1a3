// Package nlu defines the entity model produced by the natural-language
// understanding service. The service itself is an external collaborator; this
// package only describes its wire shape and the query interface the bot
// consumes.
package nlu

import (
	"context"
)

// Entity type tags. Time-valued entities carry one or more candidate
// resolution values because date-less expressions like "3 o'clock" are
// ambiguous (AM/PM) until the resolver picks a candidate.
const (
	TypeTime      = "time"
	TypeDateTime  = "datetime"
	TypeDuration  = "duration"
	TypeTimeRange = "timerange"
	TypeRoom      = "room"
	TypeBuilding  = "building"
	TypeFloor     = "floor"
)

// TimeRangeValue is a single candidate resolution of a time-range entity.
// Start and End use the same wall-clock formats as Entity.Values.
type TimeRangeValue struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Entity is a tagged span extracted from user text.
//
// For TypeTime and TypeDateTime, Values holds candidate instants as
// wall-clock strings ("15:04:05" for date-less times, "2006-01-02 15:04:05"
// for datetimes), to be localized by the caller. For TypeDuration, Values
// holds candidate durations as whole seconds. For TypeTimeRange, Ranges holds
// candidate start/end pairs. Building, floor and free-text entities carry
// their matched text only.
type Entity struct {
	Type   string           `json:"type"`
	Text   string           `json:"text"`
	Values []string         `json:"values,omitempty"`
	Ranges []TimeRangeValue `json:"ranges,omitempty"`
}

// Result is the outcome of running a user utterance through the NLU service
type Result struct {
	Query    string   `json:"query"`
	Intent   string   `json:"intent"`
	Entities []Entity `json:"entities"`
}

// FirstEntity returns the matched text of the first entity of the given
// type, or "" when none is present.
func (r *Result) FirstEntity(entityType string) string {
	if r == nil {
		return ""
	}
	for _, e := range r.Entities {
		if e.Type == entityType {
			return e.Text
		}
	}
	return ""
}

// Service queries the external NLU model
type Service interface {
	Query(ctx context.Context, text string) (*Result, error)
}
