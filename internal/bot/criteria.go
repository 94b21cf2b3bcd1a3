// Package bot implements the conversational front end: the temporal criteria
// resolver that turns NLU entities into concrete time windows, and the
// slot-filling dialogs that gather complete booking, search and status
// criteria one field at a time.
package bot

import (
	"strconv"
	"time"

	"github.com/roomninja/roomninja/internal/nlu"
)

// pastTolerance is how far in the past a resolved instant may fall before it
// is rolled forward by whole days ("3pm" after 3pm means tomorrow's 3pm).
const pastTolerance = 15 * time.Minute

// nowWindow is the tolerance around the evaluation instant within which a
// resolved start is treated as an explicit "now" request.
const nowWindow = 10 * time.Second

// RoomBaseCriteria holds the resolved time window shared by all criteria
// kinds. Either field may be nil; the dialogs decide what absence means.
type RoomBaseCriteria struct {
	StartTime *time.Time
	EndTime   *time.Time
}

// RoomBookingCriteria accumulates the fields needed to book a room
type RoomBookingCriteria struct {
	RoomBaseCriteria
	Room string
}

// RoomSearchCriteria accumulates the fields needed to search for a free room
type RoomSearchCriteria struct {
	RoomBaseCriteria
	Office string
}

// RoomStatusCriteria accumulates the fields needed to check a room's status
type RoomStatusCriteria struct {
	RoomBaseCriteria
	Room string
}

// ParseBookingCriteria pre-fills booking criteria from the initiating
// utterance's entities.
func ParseBookingCriteria(result *nlu.Result, loc *time.Location) *RoomBookingCriteria {
	c := &RoomBookingCriteria{Room: result.FirstEntity(nlu.TypeRoom)}
	c.LoadTimeCriteria(result, loc)
	return c
}

// ParseSearchCriteria pre-fills search criteria from the initiating
// utterance's entities.
func ParseSearchCriteria(result *nlu.Result, loc *time.Location) *RoomSearchCriteria {
	c := &RoomSearchCriteria{Office: result.FirstEntity(nlu.TypeBuilding)}
	c.LoadTimeCriteria(result, loc)
	return c
}

// ParseStatusCriteria pre-fills status criteria from the initiating
// utterance's entities.
func ParseStatusCriteria(result *nlu.Result, loc *time.Location) *RoomStatusCriteria {
	c := &RoomStatusCriteria{Room: result.FirstEntity(nlu.TypeRoom)}
	c.LoadTimeCriteria(result, loc)
	return c
}

// LoadTimeCriteria resolves the start and end of the time window from the
// NLU result, localized to loc. Unresolvable fields are left nil; this never
// fails.
func (c *RoomBaseCriteria) LoadTimeCriteria(result *nlu.Result, loc *time.Location) {
	c.loadTimeCriteriaAt(result, loc, time.Now())
}

func (c *RoomBaseCriteria) loadTimeCriteriaAt(result *nlu.Result, loc *time.Location, now time.Time) {
	rangeStart, rangeEnd, haveRange := parseTimeRange(result, loc, now)
	times := parseTimes(result, loc, now)
	duration := parseDuration(result)

	var start *time.Time
	switch {
	case haveRange:
		start = &rangeStart
	case len(times) >= 1:
		start = &times[0]
	}
	if start != nil && !start.Before(now.Add(-nowWindow)) && !start.After(now.Add(nowWindow)) {
		// user said "now".. let's adjust a bit
		s := assumedStartTime(*start)
		start = &s
	}
	start = rollForward(start, now)

	var end *time.Time
	switch {
	case haveRange:
		end = &rangeEnd
	case len(times) >= 2:
		end = &times[1]
	case duration != nil && start != nil:
		e := start.Add(*duration)
		end = &e
	}
	end = rollForward(end, now)

	c.StartTime = start
	c.EndTime = end
}

// LoadEndTimeCriteria resolves only the end of the window, for the dialog
// turn where the start is already known. The reply may name an instant or a
// duration relative to the existing start.
func (c *RoomBaseCriteria) LoadEndTimeCriteria(result *nlu.Result, loc *time.Location) {
	c.loadEndTimeCriteriaAt(result, loc, time.Now())
}

func (c *RoomBaseCriteria) loadEndTimeCriteriaAt(result *nlu.Result, loc *time.Location, now time.Time) {
	times := parseTimes(result, loc, now)
	duration := parseDuration(result)

	var end *time.Time
	switch {
	case len(times) >= 1:
		end = &times[0]
	case duration != nil && c.StartTime != nil:
		e := c.StartTime.Add(*duration)
		end = &e
	}
	c.EndTime = rollForward(end, now)
}

// rollForward advances t by whole days while it is more than pastTolerance in
// the past. Nil passes through.
func rollForward(t *time.Time, now time.Time) *time.Time {
	for t != nil && t.Before(now.Add(-pastTolerance)) {
		v := t.AddDate(0, 0, 1)
		t = &v
	}
	return t
}

// assumedStartTime rounds a "now" request forward to the next quarter hour,
// which is the nearest instant a booking can usefully begin at.
func assumedStartTime(t time.Time) time.Time {
	rounded := t.Truncate(15 * time.Minute)
	if rounded.Before(t) {
		rounded = rounded.Add(15 * time.Minute)
	}
	return rounded
}

// parseTimes collects one candidate instant per point-in-time entity. When an
// entity is ambiguous (several candidates) and some candidates are already in
// the past, only the future candidates are kept.
func parseTimes(result *nlu.Result, loc *time.Location, now time.Time) []time.Time {
	var out []time.Time
	for _, entity := range result.Entities {
		if entity.Type != nlu.TypeTime && entity.Type != nlu.TypeDateTime {
			continue
		}
		var candidates []time.Time
		for _, value := range entity.Values {
			if t, ok := parseTimeValue(value, loc, now); ok {
				candidates = append(candidates, t)
			}
		}
		if len(candidates) > 1 && !allAfter(candidates, now) {
			var future []time.Time
			for _, t := range candidates {
				if t.After(now) {
					future = append(future, t)
				}
			}
			candidates = future
		}
		if len(candidates) > 0 {
			out = append(out, candidates[0])
		}
	}
	return out
}

func allAfter(times []time.Time, now time.Time) bool {
	for _, t := range times {
		if !t.After(now) {
			return false
		}
	}
	return true
}

// parseTimeRange returns the first resolvable time-range candidate, localized
// to loc.
func parseTimeRange(result *nlu.Result, loc *time.Location, now time.Time) (start, end time.Time, ok bool) {
	for _, entity := range result.Entities {
		if entity.Type != nlu.TypeTimeRange {
			continue
		}
		for _, r := range entity.Ranges {
			s, sOK := parseTimeValue(r.Start, loc, now)
			e, eOK := parseTimeValue(r.End, loc, now)
			if sOK && eOK {
				return s, e, true
			}
		}
	}
	return time.Time{}, time.Time{}, false
}

// parseDuration returns the first resolvable duration candidate. The NLU
// service encodes durations as whole seconds; anything else is skipped.
func parseDuration(result *nlu.Result) *time.Duration {
	for _, entity := range result.Entities {
		if entity.Type != nlu.TypeDuration {
			continue
		}
		for _, value := range entity.Values {
			seconds, err := strconv.Atoi(value)
			if err != nil || seconds < 0 {
				continue
			}
			d := time.Duration(seconds) * time.Second
			return &d
		}
	}
	return nil
}

// timeValueLayouts are the wall-clock formats the NLU service emits. Date-less
// layouts are anchored to today's date in the target timezone.
var timeValueLayouts = []struct {
	layout   string
	dateless bool
}{
	{"2006-01-02 15:04:05", false},
	{"2006-01-02T15:04:05", false},
	{"15:04:05", true},
	{"15:04", true},
}

func parseTimeValue(value string, loc *time.Location, now time.Time) (time.Time, bool) {
	for _, l := range timeValueLayouts {
		t, err := time.ParseInLocation(l.layout, value, loc)
		if err != nil {
			continue
		}
		if l.dateless {
			local := now.In(loc)
			t = time.Date(local.Year(), local.Month(), local.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
		}
		return t, true
	}
	return time.Time{}, false
}
