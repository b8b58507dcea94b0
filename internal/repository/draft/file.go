package draft

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/guardian/internal/config"
	"github.com/oshokin/guardian/internal/domain/responder"
)

// Repository defines persistence operations for the registration draft.
type Repository interface {
	Load(ctx context.Context) (*responder.Registration, error)
	Save(ctx context.Context, reg *responder.Registration) error
	Delete(ctx context.Context) error
}

// FileRepository persists the draft to a YAML file on disk.
type FileRepository struct {
	// path is the filesystem location of the draft file.
	path string
	// mu protects concurrent access to the draft file.
	mu sync.Mutex
}

var (
	// ErrNotFound is returned when no draft was saved yet.
	ErrNotFound = errors.New("draft not found")
	// errDraftRequired is returned when saving a nil draft.
	errDraftRequired = errors.New("draft must be provided")
)

// NewFileRepository creates a repository that reads/writes YAML at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the draft from disk. A draft with a malformed availability
// grid is rejected rather than padded.
func (r *FileRepository) Load(_ context.Context) (*responder.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read draft file: %w", err)
	}

	reg := responder.NewRegistration()
	if err = yaml.Unmarshal(contents, reg); err != nil {
		return nil, fmt.Errorf("decode draft file: %w", err)
	}

	return reg, nil
}

// LoadOrNew returns the saved draft or a fresh one with form defaults.
func (r *FileRepository) LoadOrNew(ctx context.Context) (*responder.Registration, error) {
	reg, err := r.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		return responder.NewRegistration(), nil
	}

	return reg, err
}

// Save writes the draft to disk.
func (r *FileRepository) Save(_ context.Context, reg *responder.Registration) error {
	if reg == nil {
		return errDraftRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(reg)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write draft file: %w", err)
	}

	return nil
}

// Delete removes the draft. A missing draft is not an error.
func (r *FileRepository) Delete(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove draft file: %w", err)
	}

	return nil
}
