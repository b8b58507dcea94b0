package sandbox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/guardian/internal/domain/alert"
	"github.com/oshokin/guardian/internal/domain/facility"
)

// User is a seeded account. The token is what clients send as bearer.
type User struct {
	Token      string     `yaml:"token"`
	ID         string     `yaml:"id"`
	FullName   string     `yaml:"full_name"`
	Email      string     `yaml:"email,omitempty"`
	Phone      string     `yaml:"phone,omitempty"`
	Role       alert.Role `yaml:"role"`
	BloodType  string     `yaml:"blood_type,omitempty"`
	Conditions []string   `yaml:"conditions,omitempty"`
	Allergies  []string   `yaml:"allergies,omitempty"`
}

// Seed is the initial content of the sandbox.
type Seed struct {
	Users      []User              `yaml:"users"`
	Facilities []facility.Facility `yaml:"facilities"`
}

var (
	// errDuplicateToken is returned when two users share a token.
	errDuplicateToken = errors.New("duplicate user token")
	// errInvalidUser is returned for users without token, id or valid role.
	errInvalidUser = errors.New("user needs token, id and a patient or responder role")
)

// DefaultSeed has one patient, one responder and a few London facilities.
func DefaultSeed() *Seed {
	return &Seed{
		Users: []User{
			{
				Token:     "patient-token",
				ID:        "U1",
				FullName:  "Ada Lovelace",
				Email:     "ada@example.com",
				Phone:     "+44 20 7946 0001",
				Role:      alert.RolePatient,
				BloodType: "O-",
				Allergies: []string{"penicillin"},
			},
			{
				Token:    "responder-token",
				ID:       "R1",
				FullName: "Grace Hopper",
				Email:    "grace@example.com",
				Phone:    "+44 20 7946 0002",
				Role:     alert.RoleResponder,
			},
		},
		Facilities: []facility.Facility{
			{
				ID:                  "F1",
				Name:                "St Thomas' Hospital",
				Address:             "Westminster Bridge Rd, London SE1 7EH",
				Type:                "hospital",
				Distance:            640,
				FormattedDistance:   "0.64 km",
				AvailableResponders: 4,
				EmergencyServices:   true,
			},
			{
				ID:                  "F2",
				Name:                "Guy's Hospital",
				Address:             "Great Maze Pond, London SE1 9RT",
				Type:                "hospital",
				Distance:            1850,
				FormattedDistance:   "1.85 km",
				AvailableResponders: 2,
				EmergencyServices:   true,
			},
			{
				ID:                  "F3",
				Name:                "Soho Square Clinic",
				Address:             "1 Frith St, London W1D 3HZ",
				Type:                "clinic",
				Distance:            2300,
				FormattedDistance:   "2.3 km",
				AvailableResponders: 1,
			},
		},
	}
}

// LoadSeed reads a seed from YAML.
func LoadSeed(path string) (*Seed, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}

	var seed Seed
	if err := yaml.Unmarshal(contents, &seed); err != nil {
		return nil, fmt.Errorf("unmarshal seed: %w", err)
	}

	if err := seed.Validate(); err != nil {
		return nil, err
	}

	return &seed, nil
}

// Validate checks users for required fields and unique tokens.
func (s *Seed) Validate() error {
	tokens := make(map[string]struct{}, len(s.Users))

	for _, u := range s.Users {
		if u.Token == "" || u.ID == "" || !u.Role.IsValid() {
			return fmt.Errorf("user %q: %w", u.ID, errInvalidUser)
		}

		if _, ok := tokens[u.Token]; ok {
			return fmt.Errorf("user %q: %w", u.ID, errDuplicateToken)
		}

		tokens[u.Token] = struct{}{}
	}

	return nil
}
