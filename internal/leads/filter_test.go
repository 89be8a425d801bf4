package leads

import (
	"net/url"
	"testing"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Filter
	}{
		{"empty", "", Filter{}},
		{"days", "days=30", Filter{Days: 30}},
		{"fractional days truncate", "days=7.9", Filter{Days: 7}},
		{"zero days ignored", "days=0", Filter{}},
		{"negative days ignored", "days=-3", Filter{}},
		{"infinite days ignored", "days=Infinity", Filter{}},
		{"nan days ignored", "days=NaN", Filter{}},
		{"garbage days ignored", "days=lots", Filter{}},
		{"city_to", "city_to=+Austin+", Filter{Destination: "Austin"}},
		{"state alias", "state=TX", Filter{Destination: "TX"}},
		{"city_to wins over state", "city_to=Boise&state=TX", Filter{Destination: "Boise"}},
		{"blank type ignored", "type=+++", Filter{}},
		{"all", "days=7&state=TX&type=business", Filter{Days: 7, Destination: "TX", Type: "business"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("parse query: %v", err)
			}
			if got := ParseFilter(q); got != tt.want {
				t.Errorf("ParseFilter(%q) = %+v, want %+v", tt.query, got, tt.want)
			}
		})
	}
}

func TestParseFilterHugeDays(t *testing.T) {
	f := ParseFilter(url.Values{"days": {"1e300"}})
	if f.Days != maxDays {
		t.Errorf("Days = %d, want %d", f.Days, maxDays)
	}
}
