package backend

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/oshokin/guardian/internal/domain/alert"
	"github.com/oshokin/guardian/internal/domain/facility"
	"github.com/oshokin/guardian/internal/domain/responder"
	"github.com/oshokin/guardian/internal/domain/trusted"
)

// envelope is the success body of every endpoint.
type envelope[T any] struct {
	Data T `json:"data"`
}

// PanicRequestDTO is the body of POST /alert/panic. Coordinates are [lat, lng].
type PanicRequestDTO struct {
	Type        string    `json:"type,omitempty"`
	Coordinates []float64 `json:"coordinates"`
	Accuracy    float64   `json:"accuracy"`
}

// AlertDTO is an alert on the wire. The backend sends either _id or id.
type AlertDTO struct {
	MongoID           string          `json:"_id,omitempty"`
	ID                string          `json:"id,omitempty"`
	Type              string          `json:"type"`
	Status            string          `json:"status"`
	Location          LocationDTO     `json:"location"`
	CreatedAt         time.Time       `json:"createdAt"`
	User              json.RawMessage `json:"userId,omitempty"`
	AssignedResponder *AssignmentDTO  `json:"assignedResponder,omitempty"`
}

// LocationDTO is the alert origin. Coordinates are [lat, lng].
type LocationDTO struct {
	Coordinates  []float64    `json:"coordinates"`
	Accuracy     float64      `json:"accuracy,omitempty"`
	Address      string       `json:"address,omitempty"`
	GeocodedData *GeocodedDTO `json:"geocodedData,omitempty"`
	StaticMapURL string       `json:"staticMapUrl,omitempty"`
}

// GeocodedDTO is the reverse-geocoded address.
type GeocodedDTO struct {
	FormattedAddress string `json:"formattedAddress,omitempty"`
	Street           string `json:"street,omitempty"`
	City             string `json:"city,omitempty"`
	State            string `json:"state,omitempty"`
	Country          string `json:"country,omitempty"`
	PostalCode       string `json:"postalCode,omitempty"`
}

// PatientDTO is the populated userId of an alert in responder views.
type PatientDTO struct {
	ID          string          `json:"_id,omitempty"`
	FullName    string          `json:"fullName,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	MedicalInfo *MedicalInfoDTO `json:"medicalInfo,omitempty"`
}

// MedicalInfoDTO is the medical summary shown to responders.
type MedicalInfoDTO struct {
	BloodType  string   `json:"bloodType,omitempty"`
	Conditions []string `json:"conditions,omitempty"`
	Allergies  []string `json:"allergies,omitempty"`
}

// AssignmentDTO is the backend-picked responder. responderId is either an id
// or a populated person.
type AssignmentDTO struct {
	Responder json.RawMessage `json:"responderId,omitempty"`
	RouteInfo *RouteInfoDTO   `json:"routeInfo,omitempty"`
}

// PersonDTO is a populated responder reference.
type PersonDTO struct {
	ID       string `json:"_id,omitempty"`
	FullName string `json:"fullName,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// RouteInfoDTO is opaque travel data computed by the backend.
type RouteInfoDTO struct {
	Distance         *TextDTO   `json:"distance,omitempty"`
	Duration         *TextDTO   `json:"duration,omitempty"`
	EstimatedArrival *time.Time `json:"estimatedArrival,omitempty"`
}

// TextDTO is a display string as produced by a routing service.
type TextDTO struct {
	Text string `json:"text"`
}

// FacilityDTO is one discovery result.
type FacilityDTO struct {
	ID                  string  `json:"_id"`
	Name                string  `json:"name"`
	Address             string  `json:"address"`
	Type                string  `json:"type"`
	Distance            float64 `json:"distance"`
	FormattedDistance   string  `json:"formattedDistance"`
	AvailableResponders int     `json:"availableResponders"`
	EmergencyServices   bool    `json:"emergencyServices"`
}

// TrustedLocationDTO is a trusted place. Coordinates are [lat, lng].
type TrustedLocationDTO struct {
	ID          string    `json:"_id,omitempty"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	Coordinates []float64 `json:"coordinates,omitempty"`
	Radius      float64   `json:"radius,omitempty"`
	IsHome      bool      `json:"isHome"`
	Notes       string    `json:"notes,omitempty"`
}

// PointDTO is a GeoJSON point. Coordinates are [lng, lat].
type PointDTO struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// RegistrationDTO is the body of POST /responder/register.
type RegistrationDTO struct {
	Hospital        string                 `json:"hospital,omitempty"`
	Certifications  []string               `json:"certifications"`
	ExperienceYears int                    `json:"experienceYears"`
	VehicleType     string                 `json:"vehicleType"`
	LicenseNumber   string                 `json:"licenseNumber"`
	MaxDistance     float64                `json:"maxDistance"`
	Bio             string                 `json:"bio,omitempty"`
	CurrentLocation PointDTO               `json:"currentLocation"`
	Availability    responder.Availability `json:"availability"`
}

// ProfileDTO is the responder profile.
type ProfileDTO struct {
	ID              string `json:"_id,omitempty"`
	FullName        string `json:"fullName"`
	Email           string `json:"email,omitempty"`
	Phone           string `json:"phone,omitempty"`
	Status          string `json:"status"`
	VehicleType     string `json:"vehicleType,omitempty"`
	ExperienceYears int    `json:"experienceYears,omitempty"`
	Hospital        string `json:"hospital,omitempty"`
}

// FromAlertDTO converts a wire alert into the domain type.
func FromAlertDTO(dto *AlertDTO) *alert.Alert {
	if dto == nil {
		return nil
	}

	id := dto.MongoID
	if id == "" {
		id = dto.ID
	}

	result := &alert.Alert{
		ID:        id,
		Type:      alert.Type(dto.Type),
		Status:    alert.Status(dto.Status),
		Origin:    fromLocationDTO(&dto.Location),
		CreatedAt: dto.CreatedAt,
	}

	var patient PatientDTO
	if decodeObject(dto.User, &patient) {
		result.Patient = &alert.Patient{
			FullName: patient.FullName,
			Phone:    patient.Phone,
		}

		if patient.MedicalInfo != nil {
			result.Patient.BloodType = patient.MedicalInfo.BloodType
			result.Patient.Conditions = patient.MedicalInfo.Conditions
			result.Patient.Allergies = patient.MedicalInfo.Allergies
		}
	}

	if dto.AssignedResponder != nil {
		result.AssignedResponder = fromAssignmentDTO(dto.AssignedResponder)
	}

	return result
}

// FromAlertDTOs converts a list, keeping backend order.
func FromAlertDTOs(dtos []*AlertDTO) []*alert.Alert {
	result := make([]*alert.Alert, 0, len(dtos))
	for _, dto := range dtos {
		if dto == nil {
			continue
		}

		result = append(result, FromAlertDTO(dto))
	}

	return result
}

// ToAlertDTO is the inverse of FromAlertDTO. The sandbox serves alerts with it.
func ToAlertDTO(a *alert.Alert) *AlertDTO {
	if a == nil {
		return nil
	}

	dto := &AlertDTO{
		MongoID:   a.ID,
		Type:      string(a.Type),
		Status:    string(a.Status),
		CreatedAt: a.CreatedAt,
		Location: LocationDTO{
			Coordinates:  []float64{a.Origin.Latitude, a.Origin.Longitude},
			Accuracy:     a.Origin.Accuracy,
			StaticMapURL: a.Origin.StaticMapURL,
		},
	}

	if addr := a.Origin.Address; addr != nil {
		dto.Location.Address = addr.Formatted
		dto.Location.GeocodedData = &GeocodedDTO{
			FormattedAddress: addr.Formatted,
			Street:           addr.Street,
			City:             addr.City,
			State:            addr.State,
			Country:          addr.Country,
			PostalCode:       addr.PostalCode,
		}
	}

	if p := a.Patient; p != nil {
		dto.User = mustMarshal(PatientDTO{
			FullName: p.FullName,
			Phone:    p.Phone,
			MedicalInfo: &MedicalInfoDTO{
				BloodType:  p.BloodType,
				Conditions: p.Conditions,
				Allergies:  p.Allergies,
			},
		})
	}

	if r := a.AssignedResponder; r != nil {
		assignment := &AssignmentDTO{
			Responder: mustMarshal(PersonDTO{ID: r.ResponderID, FullName: r.Name, Phone: r.Phone}),
			RouteInfo: &RouteInfoDTO{},
		}

		if r.Route.DistanceText != "" {
			assignment.RouteInfo.Distance = &TextDTO{Text: r.Route.DistanceText}
		}

		if r.Route.DurationText != "" {
			assignment.RouteInfo.Duration = &TextDTO{Text: r.Route.DurationText}
		}

		if !r.Route.EstimatedArrival.IsZero() {
			eta := r.Route.EstimatedArrival
			assignment.RouteInfo.EstimatedArrival = &eta
		}

		dto.AssignedResponder = assignment
	}

	return dto
}

func fromLocationDTO(dto *LocationDTO) alert.Location {
	loc := alert.Location{
		Accuracy:     dto.Accuracy,
		StaticMapURL: dto.StaticMapURL,
	}

	if len(dto.Coordinates) == 2 {
		loc.Latitude = dto.Coordinates[0]
		loc.Longitude = dto.Coordinates[1]
	}

	switch {
	case dto.GeocodedData != nil:
		loc.Address = &alert.Address{
			Formatted:  dto.GeocodedData.FormattedAddress,
			Street:     dto.GeocodedData.Street,
			City:       dto.GeocodedData.City,
			State:      dto.GeocodedData.State,
			Country:    dto.GeocodedData.Country,
			PostalCode: dto.GeocodedData.PostalCode,
		}

		if loc.Address.Formatted == "" {
			loc.Address.Formatted = dto.Address
		}
	case dto.Address != "":
		loc.Address = &alert.Address{Formatted: dto.Address}
	}

	return loc
}

func fromAssignmentDTO(dto *AssignmentDTO) *alert.Assignment {
	result := new(alert.Assignment)

	var person PersonDTO

	switch {
	case decodeObject(dto.Responder, &person):
		result.ResponderID = person.ID
		result.Name = person.FullName
		result.Phone = person.Phone
	case len(dto.Responder) > 0:
		_ = json.Unmarshal(dto.Responder, &result.ResponderID)
	}

	if route := dto.RouteInfo; route != nil {
		if route.Distance != nil {
			result.Route.DistanceText = route.Distance.Text
		}

		if route.Duration != nil {
			result.Route.DurationText = route.Duration.Text
		}

		if route.EstimatedArrival != nil {
			result.Route.EstimatedArrival = *route.EstimatedArrival
		}
	}

	return result
}

// FromFacilityDTOs converts discovery results, keeping backend order.
func FromFacilityDTOs(dtos []FacilityDTO) []facility.Facility {
	result := make([]facility.Facility, len(dtos))
	for i, dto := range dtos {
		result[i] = facility.Facility{
			ID:                  dto.ID,
			Name:                dto.Name,
			Address:             dto.Address,
			Type:                dto.Type,
			Distance:            dto.Distance,
			FormattedDistance:   dto.FormattedDistance,
			AvailableResponders: dto.AvailableResponders,
			EmergencyServices:   dto.EmergencyServices,
		}
	}

	return result
}

// ToFacilityDTO converts a facility for serving.
func ToFacilityDTO(f facility.Facility) FacilityDTO {
	return FacilityDTO{
		ID:                  f.ID,
		Name:                f.Name,
		Address:             f.Address,
		Type:                f.Type,
		Distance:            f.Distance,
		FormattedDistance:   f.FormattedDistance,
		AvailableResponders: f.AvailableResponders,
		EmergencyServices:   f.EmergencyServices,
	}
}

// FromTrustedLocationDTO converts a trusted place.
func FromTrustedLocationDTO(dto TrustedLocationDTO) trusted.Location {
	loc := trusted.Location{
		ID:      dto.ID,
		Name:    dto.Name,
		Address: dto.Address,
		Radius:  dto.Radius,
		IsHome:  dto.IsHome,
		Notes:   dto.Notes,
	}

	if len(dto.Coordinates) == 2 {
		loc.Latitude = dto.Coordinates[0]
		loc.Longitude = dto.Coordinates[1]
	}

	return loc
}

// ToTrustedLocationDTO converts a stored trusted place for serving.
func ToTrustedLocationDTO(loc trusted.Location) TrustedLocationDTO {
	return TrustedLocationDTO{
		ID:          loc.ID,
		Name:        loc.Name,
		Address:     loc.Address,
		Coordinates: []float64{loc.Latitude, loc.Longitude},
		Radius:      loc.Radius,
		IsHome:      loc.IsHome,
		Notes:       loc.Notes,
	}
}

// FromDraft builds the request body of a new trusted place.
func FromDraft(d *trusted.Draft) TrustedLocationDTO {
	dto := TrustedLocationDTO{
		Name:    d.Name,
		Address: d.Address,
		Radius:  d.Radius,
		IsHome:  d.IsHome,
		Notes:   d.Notes,
	}

	if d.Latitude != nil && d.Longitude != nil {
		dto.Coordinates = []float64{*d.Latitude, *d.Longitude}
	}

	return dto
}

// ToDraft converts a trusted place request body.
func ToDraft(dto *TrustedLocationDTO) *trusted.Draft {
	draft := &trusted.Draft{
		Name:    dto.Name,
		Address: dto.Address,
		Radius:  dto.Radius,
		IsHome:  dto.IsHome,
		Notes:   dto.Notes,
	}

	if draft.Radius == 0 {
		draft.Radius = trusted.DefaultRadius
	}

	if len(dto.Coordinates) == 2 {
		lat, lng := dto.Coordinates[0], dto.Coordinates[1]
		draft.Latitude = &lat
		draft.Longitude = &lng
	}

	return draft
}

// ToRegistrationDTO builds the request body of a responder sign-up.
func ToRegistrationDTO(r *responder.Registration) RegistrationDTO {
	dto := RegistrationDTO{
		Hospital:        r.Hospital,
		Certifications:  append([]string{}, r.Certifications...),
		ExperienceYears: r.ExperienceYears,
		VehicleType:     string(r.VehicleType),
		LicenseNumber:   r.LicenseNumber,
		MaxDistance:     r.MaxDistanceKm,
		Bio:             r.Bio,
		CurrentLocation: PointDTO{Type: "Point"},
		Availability:    r.Availability,
	}

	if r.CurrentLocation != nil {
		dto.CurrentLocation.Coordinates = [2]float64{r.CurrentLocation.Longitude, r.CurrentLocation.Latitude}
	}

	return dto
}

// FromRegistrationDTO converts a sign-up request body. GeoJSON order is
// [lng, lat].
func FromRegistrationDTO(dto *RegistrationDTO) *responder.Registration {
	return &responder.Registration{
		Hospital:        dto.Hospital,
		Certifications:  append([]string(nil), dto.Certifications...),
		ExperienceYears: dto.ExperienceYears,
		VehicleType:     responder.VehicleType(dto.VehicleType),
		LicenseNumber:   dto.LicenseNumber,
		MaxDistanceKm:   dto.MaxDistance,
		Bio:             dto.Bio,
		CurrentLocation: &responder.Position{
			Latitude:  dto.CurrentLocation.Coordinates[1],
			Longitude: dto.CurrentLocation.Coordinates[0],
		},
		Availability: dto.Availability,
	}
}

// ToProfileDTO converts a responder profile for serving.
func ToProfileDTO(p *responder.Profile) *ProfileDTO {
	if p == nil {
		return nil
	}

	return &ProfileDTO{
		ID:              p.ID,
		FullName:        p.FullName,
		Email:           p.Email,
		Phone:           p.Phone,
		Status:          p.Status,
		VehicleType:     string(p.VehicleType),
		ExperienceYears: p.ExperienceYears,
		Hospital:        p.Hospital,
	}
}

// FromProfileDTO converts a responder profile.
func FromProfileDTO(dto *ProfileDTO) *responder.Profile {
	if dto == nil {
		return nil
	}

	return &responder.Profile{
		ID:              dto.ID,
		FullName:        dto.FullName,
		Email:           dto.Email,
		Phone:           dto.Phone,
		Status:          dto.Status,
		VehicleType:     responder.VehicleType(dto.VehicleType),
		ExperienceYears: dto.ExperienceYears,
		Hospital:        dto.Hospital,
	}
}

// decodeObject decodes raw into out when raw is a JSON object.
func decodeObject(raw json.RawMessage, out any) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}

	return json.Unmarshal(trimmed, out) == nil
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	return data
}
