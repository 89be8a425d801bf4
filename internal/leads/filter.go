package leads

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Filter narrows the CSV export. Zero values mean "not requested".
type Filter struct {
	Days        int
	Destination string
	Type        string
}

// ParseFilter reads days, city_to (or its alias state) and type from a query
// string. Values that don't parse are dropped rather than rejected.
func ParseFilter(q url.Values) Filter {
	var f Filter

	if raw := strings.TrimSpace(q.Get("days")); raw != "" {
		if d, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsInf(d, 0) && !math.IsNaN(d) && d >= 1 {
			if d > maxDays {
				d = maxDays
			}
			f.Days = int(d)
		}
	}

	f.Destination = strings.TrimSpace(q.Get("city_to"))
	if f.Destination == "" {
		f.Destination = strings.TrimSpace(q.Get("state"))
	}
	f.Type = strings.TrimSpace(q.Get("type"))

	return f
}

// About 270 years; keeps the cutoff arithmetic inside time.Duration.
const maxDays = 100000

func (f Filter) Empty() bool {
	return f.Days == 0 && f.Destination == "" && f.Type == ""
}
