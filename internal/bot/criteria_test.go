package bot

import (
	"testing"
	"time"

	"github.com/roomninja/roomninja/internal/nlu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixed evaluation instant: 2025-03-10 10:00:00 UTC
var testNow = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

func timeEntity(values ...string) nlu.Entity {
	return nlu.Entity{Type: nlu.TypeTime, Values: values}
}

func TestLoadTimeCriteria_TimeRangeWins(t *testing.T) {
	// A time-range entity beats any point-in-time or duration entities also
	// present in the same utterance.
	result := &nlu.Result{Entities: []nlu.Entity{
		{Type: nlu.TypeTimeRange, Ranges: []nlu.TimeRangeValue{{Start: "2025-03-10 14:00:00", End: "2025-03-10 15:30:00"}}},
		timeEntity("11:00:00"),
		{Type: nlu.TypeDuration, Values: []string{"3600"}},
	}}

	var c RoomBaseCriteria
	c.loadTimeCriteriaAt(result, time.UTC, testNow)

	require.NotNil(t, c.StartTime)
	require.NotNil(t, c.EndTime)
	assert.Equal(t, time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC), *c.StartTime)
	assert.Equal(t, time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC), *c.EndTime)
}

func TestLoadTimeCriteria_StartAndDuration(t *testing.T) {
	// start 14:00 plus a 30-minute duration and no end entity gives end 14:30
	result := &nlu.Result{Entities: []nlu.Entity{
		timeEntity("14:00:00"),
		{Type: nlu.TypeDuration, Values: []string{"1800"}},
	}}

	var c RoomBaseCriteria
	c.loadTimeCriteriaAt(result, time.UTC, testNow)

	require.NotNil(t, c.StartTime)
	require.NotNil(t, c.EndTime)
	assert.Equal(t, time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC), *c.StartTime)
	assert.Equal(t, time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC), *c.EndTime)
}

func TestLoadTimeCriteria_TwoTimesAreStartAndEnd(t *testing.T) {
	result := &nlu.Result{Entities: []nlu.Entity{
		timeEntity("14:00:00"),
		timeEntity("16:00:00"),
	}}

	var c RoomBaseCriteria
	c.loadTimeCriteriaAt(result, time.UTC, testNow)

	require.NotNil(t, c.StartTime)
	require.NotNil(t, c.EndTime)
	assert.Equal(t, 14, c.StartTime.Hour())
	assert.Equal(t, 16, c.EndTime.Hour())
}

func TestLoadTimeCriteria_NowIsAdjusted(t *testing.T) {
	// an instant within ten seconds of "now" is never returned literally:
	// it snaps forward to a usable quarter-hour boundary
	snapped := map[time.Duration]time.Time{
		-10 * time.Second: time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC),
		0:                 time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC),
		3 * time.Second:   time.Date(2025, 3, 10, 10, 15, 0, 0, time.UTC),
		10 * time.Second:  time.Date(2025, 3, 10, 10, 15, 0, 0, time.UTC),
	}
	for offset, want := range snapped {
		value := testNow.Add(offset).Format("2006-01-02 15:04:05")
		result := &nlu.Result{Entities: []nlu.Entity{timeEntity(value)}}

		var c RoomBaseCriteria
		c.loadTimeCriteriaAt(result, time.UTC, testNow)

		require.NotNil(t, c.StartTime, "offset %v", offset)
		if offset != 0 {
			assert.NotEqual(t, testNow.Add(offset), *c.StartTime, "offset %v", offset)
		}
		assert.Equal(t, want, *c.StartTime, "offset %v", offset)
	}
}

func TestAssumedStartTime(t *testing.T) {
	assert.Equal(t,
		time.Date(2025, 3, 10, 10, 15, 0, 0, time.UTC),
		assumedStartTime(time.Date(2025, 3, 10, 10, 7, 12, 0, time.UTC)))
	// already on a boundary stays put
	assert.Equal(t,
		time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC),
		assumedStartTime(time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)))
}

func TestLoadTimeCriteria_PastTimeRollsForward(t *testing.T) {
	// "9:00" said at 10:00 means tomorrow's 9:00
	result := &nlu.Result{Entities: []nlu.Entity{timeEntity("09:00:00")}}

	var c RoomBaseCriteria
	c.loadTimeCriteriaAt(result, time.UTC, testNow)

	require.NotNil(t, c.StartTime)
	assert.Equal(t, time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC), *c.StartTime)
}

func TestLoadTimeCriteria_RecentPastIsKept(t *testing.T) {
	// within the fifteen-minute tolerance the instant is kept as-is
	result := &nlu.Result{Entities: []nlu.Entity{timeEntity("09:50:00")}}

	var c RoomBaseCriteria
	c.loadTimeCriteriaAt(result, time.UTC, testNow)

	require.NotNil(t, c.StartTime)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 50, 0, 0, time.UTC), *c.StartTime)
}

func TestRollForwardIsIdempotentOnceSatisfied(t *testing.T) {
	past := testNow.Add(-40 * time.Hour)
	rolled := rollForward(&past, testNow)
	require.NotNil(t, rolled)
	assert.False(t, rolled.Before(testNow.Add(-pastTolerance)))

	again := rollForward(rolled, testNow)
	assert.Equal(t, *rolled, *again)
}

func TestLoadTimeCriteria_AmbiguousCandidatesPreferFuture(t *testing.T) {
	// "3 o'clock" resolves to 03:00 (past) and 15:00 (future); the past
	// candidate is discarded.
	result := &nlu.Result{Entities: []nlu.Entity{timeEntity("03:00:00", "15:00:00")}}

	var c RoomBaseCriteria
	c.loadTimeCriteriaAt(result, time.UTC, testNow)

	require.NotNil(t, c.StartTime)
	assert.Equal(t, 15, c.StartTime.Hour())
	assert.Equal(t, 10, c.StartTime.Day())
}

func TestLoadTimeCriteria_AllFutureCandidatesKeepFirst(t *testing.T) {
	result := &nlu.Result{Entities: []nlu.Entity{timeEntity("11:00:00", "23:00:00")}}

	var c RoomBaseCriteria
	c.loadTimeCriteriaAt(result, time.UTC, testNow)

	require.NotNil(t, c.StartTime)
	assert.Equal(t, 11, c.StartTime.Hour())
}

func TestLoadTimeCriteria_NothingResolvable(t *testing.T) {
	result := &nlu.Result{Entities: []nlu.Entity{
		{Type: nlu.TypeDuration, Values: []string{"bogus"}},
		{Type: nlu.TypeBuilding, Text: "east wing"},
	}}

	var c RoomBaseCriteria
	c.loadTimeCriteriaAt(result, time.UTC, testNow)

	assert.Nil(t, c.StartTime)
	assert.Nil(t, c.EndTime)
}

func TestLoadTimeCriteria_UnresolvableDurationSkipped(t *testing.T) {
	// the first duration entity is garbage, the second resolves
	result := &nlu.Result{Entities: []nlu.Entity{
		timeEntity("14:00:00"),
		{Type: nlu.TypeDuration, Values: []string{"half an hour"}},
		{Type: nlu.TypeDuration, Values: []string{"2700"}},
	}}

	var c RoomBaseCriteria
	c.loadTimeCriteriaAt(result, time.UTC, testNow)

	require.NotNil(t, c.EndTime)
	assert.Equal(t, time.Date(2025, 3, 10, 14, 45, 0, 0, time.UTC), *c.EndTime)
}

func TestLoadEndTimeCriteria(t *testing.T) {
	start := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	t.Run("duration relative to existing start", func(t *testing.T) {
		c := RoomBaseCriteria{StartTime: &start}
		result := &nlu.Result{Entities: []nlu.Entity{{Type: nlu.TypeDuration, Values: []string{"1800"}}}}
		c.loadEndTimeCriteriaAt(result, time.UTC, testNow)

		require.NotNil(t, c.EndTime)
		assert.Equal(t, start.Add(30*time.Minute), *c.EndTime)
	})

	t.Run("explicit time", func(t *testing.T) {
		c := RoomBaseCriteria{StartTime: &start}
		result := &nlu.Result{Entities: []nlu.Entity{timeEntity("15:30:00")}}
		c.loadEndTimeCriteriaAt(result, time.UTC, testNow)

		require.NotNil(t, c.EndTime)
		assert.Equal(t, time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC), *c.EndTime)
	})

	t.Run("unresolvable stays nil", func(t *testing.T) {
		c := RoomBaseCriteria{StartTime: &start}
		result := &nlu.Result{Entities: []nlu.Entity{{Type: nlu.TypeDuration, Values: []string{"a while"}}}}
		c.loadEndTimeCriteriaAt(result, time.UTC, testNow)

		assert.Nil(t, c.EndTime)
	})
}

func TestLoadTimeCriteria_LocalizedToTimezone(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	result := &nlu.Result{Entities: []nlu.Entity{timeEntity("2025-03-10 14:00:00")}}

	var c RoomBaseCriteria
	c.loadTimeCriteriaAt(result, chicago, testNow)

	require.NotNil(t, c.StartTime)
	assert.Equal(t, chicago, c.StartTime.Location())
	assert.Equal(t, 14, c.StartTime.Hour())
}

func TestParseCriteriaPrefill(t *testing.T) {
	result := &nlu.Result{Entities: []nlu.Entity{
		{Type: nlu.TypeRoom, Text: "fishbowl"},
		{Type: nlu.TypeBuilding, Text: "chicago"},
	}}

	booking := ParseBookingCriteria(result, time.UTC)
	assert.Equal(t, "fishbowl", booking.Room)
	assert.Nil(t, booking.StartTime)

	search := ParseSearchCriteria(result, time.UTC)
	assert.Equal(t, "chicago", search.Office)

	status := ParseStatusCriteria(result, time.UTC)
	assert.Equal(t, "fishbowl", status.Room)
}

func TestOfficeLocation(t *testing.T) {
	loc, err := OfficeLocation("Chicago")
	require.NoError(t, err)
	assert.Equal(t, "America/Chicago", loc.String())

	loc, err = OfficeLocation("Los_Angeles")
	require.NoError(t, err)
	assert.Equal(t, "America/Los_Angeles", loc.String())

	_, err = OfficeLocation("atlantis")
	assert.Error(t, err)
}
