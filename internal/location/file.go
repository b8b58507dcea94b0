package location

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/guardian/internal/domain/alert"
)

// Fix is the record a positioning daemon writes. JSON files parse as well,
// since YAML is a superset of JSON.
type Fix struct {
	Latitude  float64   `yaml:"latitude"  json:"latitude"`
	Longitude float64   `yaml:"longitude" json:"longitude"`
	Accuracy  float64   `yaml:"accuracy"  json:"accuracy"`
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
}

// FileProvider reads the latest fix from a file.
type FileProvider struct {
	path   string
	maxAge time.Duration
	now    func() time.Time
}

// FileOption configures a FileProvider.
type FileOption func(*FileProvider)

// WithClock replaces the time source used for the age check.
func WithClock(now func() time.Time) FileOption {
	return func(p *FileProvider) {
		p.now = now
	}
}

// NewFileProvider returns a provider reading path. Fixes older than maxAge
// are rejected with ErrLocationUnavailable.
func NewFileProvider(path string, maxAge time.Duration, opts ...FileOption) *FileProvider {
	p := &FileProvider{
		path:   filepath.Clean(path),
		maxAge: maxAge,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Acquire reads and checks the fix.
func (p *FileProvider) Acquire(ctx context.Context) (alert.Location, error) {
	if err := ctx.Err(); err != nil {
		return alert.Location{}, contextError(err)
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		switch {
		case errors.Is(err, os.ErrPermission):
			return alert.Location{}, fmt.Errorf("%w: %w", ErrPermissionDenied, err)
		default:
			return alert.Location{}, fmt.Errorf("%w: %w", ErrLocationUnavailable, err)
		}
	}

	var fix Fix
	if err := yaml.Unmarshal(data, &fix); err != nil {
		return alert.Location{}, fmt.Errorf("%w: parse %s: %w", ErrLocationUnavailable, p.path, err)
	}

	if fix.Timestamp.IsZero() {
		return alert.Location{}, fmt.Errorf("%w: fix in %s has no timestamp", ErrLocationUnavailable, p.path)
	}

	if age := p.now().Sub(fix.Timestamp); p.maxAge > 0 && age > p.maxAge {
		return alert.Location{}, fmt.Errorf("%w: fix is %s old", ErrLocationUnavailable, age.Round(time.Second))
	}

	if fix.Latitude < -90 || fix.Latitude > 90 || fix.Longitude < -180 || fix.Longitude > 180 {
		return alert.Location{}, fmt.Errorf("%w: coordinates out of range", ErrLocationUnavailable)
	}

	return alert.Location{
		Latitude:  fix.Latitude,
		Longitude: fix.Longitude,
		Accuracy:  fix.Accuracy,
	}, nil
}

// WriteFix stores a fix at path. Positioning daemons and tests use it.
func WriteFix(path string, fix Fix) error {
	data, err := yaml.Marshal(fix)
	if err != nil {
		return fmt.Errorf("marshal fix: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, 0o600); err != nil {
		return fmt.Errorf("write fix: %w", err)
	}

	return nil
}
