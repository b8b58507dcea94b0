package responder

import (
	"github.com/oshokin/guardian/internal/validation"
)

// VehicleType is how the responder travels to an alert.
type VehicleType string

// Vehicle types accepted by the backend.
const (
	VehicleCar        VehicleType = "car"
	VehicleMotorcycle VehicleType = "motorcycle"
	VehicleBicycle    VehicleType = "bicycle"
	VehicleFoot       VehicleType = "foot"
)

// Defaults of a fresh registration draft.
const (
	DefaultMaxDistanceKm = 25
	DefaultVehicle       = VehicleCar
)

// Position is the responder's base location.
type Position struct {
	Latitude  float64 `yaml:"latitude"  validate:"latitude"`
	Longitude float64 `yaml:"longitude" validate:"longitude"`
}

// Registration is the responder sign-up draft. It is owned by the local draft
// file until submitted as a whole.
type Registration struct {
	Hospital        string       `yaml:"hospital,omitempty"`
	Certifications  []string     `yaml:"certifications,omitempty" validate:"dive,required"`
	ExperienceYears int          `yaml:"experience_years"         validate:"min=0,max=50"`
	VehicleType     VehicleType  `yaml:"vehicle_type"             validate:"required,oneof=car motorcycle bicycle foot"`
	LicenseNumber   string       `yaml:"license_number"           validate:"required,min=3"`
	MaxDistanceKm   float64      `yaml:"max_distance_km"          validate:"min=1,max=100"`
	Bio             string       `yaml:"bio,omitempty"`
	CurrentLocation *Position    `yaml:"current_location"         validate:"required"`
	Availability    Availability `yaml:"availability"`
}

// NewRegistration returns a draft with the defaults of the sign-up form.
func NewRegistration() *Registration {
	return &Registration{
		VehicleType:   DefaultVehicle,
		MaxDistanceKm: DefaultMaxDistanceKm,
		Availability:  NewAvailability(),
	}
}

// Validate checks the draft before submission.
func (r *Registration) Validate() error {
	return validation.Struct(r)
}

// AddCertification appends a trimmed, non-empty certification.
func (r *Registration) AddCertification(name string) {
	if name == "" {
		return
	}

	r.Certifications = append(r.Certifications, name)
}

// RemoveCertification drops the certification at index i if it exists.
func (r *Registration) RemoveCertification(i int) {
	if i < 0 || i >= len(r.Certifications) {
		return
	}

	r.Certifications = append(r.Certifications[:i], r.Certifications[i+1:]...)
}

// Profile is the responder profile as reported by the backend.
type Profile struct {
	ID              string
	FullName        string
	Email           string
	Phone           string
	Status          string
	VehicleType     VehicleType
	ExperienceYears int
	Hospital        string
}

// IsAvailable reports whether the backend lists the responder as on duty.
func (p *Profile) IsAvailable() bool {
	return p != nil && p.Status == "available"
}
