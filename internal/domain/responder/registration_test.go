package responder

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/guardian/internal/domain/alert"
)

// TestRegistration_Validate follows the sign-up form rules.
func TestRegistration_Validate(t *testing.T) {
	t.Parallel()

	r := NewRegistration()
	require.ErrorIs(t, r.Validate(), alert.ErrValidation)

	r.LicenseNumber = "EMT-1"
	r.CurrentLocation = &Position{Latitude: 6.45, Longitude: 3.39}
	require.NoError(t, r.Validate())

	r.ExperienceYears = 51
	err := r.Validate()
	require.ErrorIs(t, err, alert.ErrValidation)
	require.Contains(t, err.Error(), "ExperienceYears")

	r.ExperienceYears = 3
	r.VehicleType = "boat"
	require.ErrorIs(t, r.Validate(), alert.ErrValidation)
}

// TestRegistration_Certifications adds and removes entries by index.
func TestRegistration_Certifications(t *testing.T) {
	t.Parallel()

	r := NewRegistration()
	r.AddCertification("CPR")
	r.AddCertification("")
	r.AddCertification("EMT")
	r.RemoveCertification(0)
	r.RemoveCertification(5)

	require.Equal(t, []string{"EMT"}, r.Certifications)
}
