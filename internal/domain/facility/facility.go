// Package facility describes discovery results: medical facilities near the
// user that can provide responders. Results are read-only and live only as
// long as the query that produced them.
package facility

import "strings"

// Facility is one discovery result as ranked by the backend.
type Facility struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	Type    string `yaml:"type"`
	// Distance from the query position in meters.
	Distance            float64 `yaml:"distance"`
	FormattedDistance   string  `yaml:"formatted_distance"`
	AvailableResponders int     `yaml:"available_responders"`
	EmergencyServices   bool    `yaml:"emergency_services"`
}

// Filter keeps the facilities whose name, address or type contains query,
// ignoring case. The result is a subsequence of list: backend order is kept
// and nothing is re-sorted. An empty query returns a copy of list.
func Filter(list []Facility, query string) []Facility {
	needle := strings.ToLower(strings.TrimSpace(query))

	result := make([]Facility, 0, len(list))
	for _, f := range list {
		if needle == "" || f.matches(needle) {
			result = append(result, f)
		}
	}

	return result
}

// matches reports whether any searchable field contains the lower-cased needle.
func (f *Facility) matches(needle string) bool {
	return strings.Contains(strings.ToLower(f.Name), needle) ||
		strings.Contains(strings.ToLower(f.Address), needle) ||
		strings.Contains(strings.ToLower(f.Type), needle)
}
