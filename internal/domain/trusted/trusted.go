// Package trusted models places the user marks as safe, such as home or work,
// each with a geofence radius.
package trusted

import (
	"github.com/oshokin/guardian/internal/validation"
)

// DefaultRadius is the geofence radius in meters when none is given.
const DefaultRadius = 100

// Location is a trusted place as stored by the backend.
type Location struct {
	ID        string
	Name      string
	Address   string
	Latitude  float64
	Longitude float64
	// Radius is the geofence radius in meters.
	Radius float64
	IsHome bool
	Notes  string
}

// Preset pre-fills a draft.
type Preset string

// Presets offered when adding a location.
const (
	PresetHome   Preset = "home"
	PresetWork   Preset = "work"
	PresetCustom Preset = "custom"
)

// Draft is a trusted location being added.
type Draft struct {
	Name      string   `validate:"required,min=2,max=50"`
	Address   string   `validate:"required,min=5"`
	Latitude  *float64 `validate:"omitempty,latitude"`
	Longitude *float64 `validate:"omitempty,longitude"`
	Radius    float64  `validate:"gt=0"`
	IsHome    bool
	Notes     string `validate:"max=200"`
}

// NewDraft returns a draft pre-filled for the preset.
func NewDraft(preset Preset) *Draft {
	draft := &Draft{Radius: DefaultRadius}

	switch preset {
	case PresetHome:
		draft.Name = "Home"
		draft.IsHome = true
	case PresetWork:
		draft.Name = "Work"
	case PresetCustom:
	}

	return draft
}

// Validate checks the draft against the form rules.
func (d *Draft) Validate() error {
	return validation.Struct(d)
}
