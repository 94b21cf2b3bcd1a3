package bot

import (
	"fmt"
	"strings"
	"time"
)

// officeTimezones maps office names to IANA timezone identifiers. Keeping
// this as a data table means new offices are a one-line addition.
var officeTimezones = map[string]string{
	"atlanta":     "America/New_York",
	"boston":      "America/New_York",
	"detroit":     "America/New_York",
	"chicago":     "America/Chicago",
	"dallas":      "America/Chicago",
	"denver":      "America/Denver",
	"los angeles": "America/Los_Angeles",
}

// OfficeLocation returns the timezone for an office name, case-insensitively.
// Underscores are accepted in place of spaces ("Los_Angeles").
func OfficeLocation(office string) (*time.Location, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(office), "_", " "))
	name, ok := officeTimezones[key]
	if !ok {
		return nil, fmt.Errorf("unknown office %q", office)
	}
	return time.LoadLocation(name)
}

// Offices lists the office names with a known timezone
func Offices() []string {
	names := make([]string, 0, len(officeTimezones))
	for name := range officeTimezones {
		names = append(names, name)
	}
	return names
}
