//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"

	"github.com/oshokin/guardian/internal/config"
	"github.com/oshokin/guardian/internal/domain/alert"
	"github.com/oshokin/guardian/internal/location"
)

// NewLocationProvider picks the position source from settings: the fix file
// first, then static coordinates. Without either every acquisition fails
// with location.ErrLocationUnavailable.
func NewLocationProvider(cfg config.Location) location.Provider {
	var provider location.Provider

	switch {
	case cfg.FixFile != "":
		provider = location.NewFileProvider(cfg.FixFile, cfg.MaxAge)
	case cfg.Latitude != nil && cfg.Longitude != nil:
		provider = location.StaticProvider{
			Latitude:  *cfg.Latitude,
			Longitude: *cfg.Longitude,
			Accuracy:  cfg.Accuracy,
		}
	default:
		provider = location.ProviderFunc(func(context.Context) (alert.Location, error) {
			return alert.Location{}, location.ErrLocationUnavailable
		})
	}

	return location.WithTimeout(provider, cfg.AcquireTimeout)
}
