// Package discovery finds medical facilities near the user's current position.
package discovery

import (
	"context"
	"fmt"

	"github.com/oshokin/guardian/internal/domain/alert"
	"github.com/oshokin/guardian/internal/domain/facility"
	"github.com/oshokin/guardian/internal/location"
	"github.com/oshokin/guardian/internal/logger"
	"github.com/oshokin/guardian/internal/session"
)

// API lists facilities around a position.
type API interface {
	AvailableResponders(ctx context.Context, sess *session.Session, loc alert.Location) ([]facility.Facility, error)
}

// Service runs discovery queries. Results are not cached.
type Service struct {
	api      API
	provider location.Provider
}

// New returns a discovery service.
func New(api API, provider location.Provider) *Service {
	return &Service{
		api:      api,
		provider: provider,
	}
}

// Discover acquires a fresh position and lists nearby facilities in backend
// order, nearest first.
func (s *Service) Discover(ctx context.Context, sess *session.Session) ([]facility.Facility, error) {
	loc, err := s.provider.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", location.ErrLocationRequired, err)
	}

	list, err := s.api.AvailableResponders(ctx, sess, loc)
	if err != nil {
		return nil, err
	}

	logger.DebugKV(ctx, "Discovered facilities", "count", len(list))

	return list, nil
}

// Search runs Discover and keeps the facilities matching query.
func (s *Service) Search(ctx context.Context, sess *session.Session, query string) ([]facility.Facility, error) {
	list, err := s.Discover(ctx, sess)
	if err != nil {
		return nil, err
	}

	return facility.Filter(list, query), nil
}
