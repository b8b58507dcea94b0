package trusted

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/guardian/internal/domain/alert"
)

// TestNewDraft_Presets checks the names and home flag of each preset.
func TestNewDraft_Presets(t *testing.T) {
	t.Parallel()

	home := NewDraft(PresetHome)
	require.Equal(t, "Home", home.Name)
	require.True(t, home.IsHome)

	work := NewDraft(PresetWork)
	require.Equal(t, "Work", work.Name)
	require.False(t, work.IsHome)

	custom := NewDraft(PresetCustom)
	require.Empty(t, custom.Name)
	require.InDelta(t, DefaultRadius, custom.Radius, 0)
}

// TestDraft_Validate follows the add-location form rules.
func TestDraft_Validate(t *testing.T) {
	t.Parallel()

	d := NewDraft(PresetHome)
	d.Address = "12 Allen Avenue, Ikeja"
	require.NoError(t, d.Validate())

	d.Notes = strings.Repeat("x", 201)
	require.ErrorIs(t, d.Validate(), alert.ErrValidation)

	d.Notes = ""
	d.Address = "x"
	require.ErrorIs(t, d.Validate(), alert.ErrValidation)

	lat := 91.0
	d.Address = "12 Allen Avenue, Ikeja"
	d.Latitude = &lat
	require.ErrorIs(t, d.Validate(), alert.ErrValidation)
}
