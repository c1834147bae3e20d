// Package store persists portfolio projects in a single JSON document.
//
// Every operation reads the whole document, applies one change and writes the
// whole document back. Operations are serialized behind one mutex so that
// concurrent requests in the same process never lose each other's writes.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/hyzmat-tm/portfolio/internal/metrics"
	"github.com/hyzmat-tm/portfolio/internal/models"
)

var (
	// ErrNotFound is returned when no project has the requested id.
	ErrNotFound = errors.New("project not found")
	// ErrInvalid is returned when a project fails validation.
	ErrInvalid = errors.New("invalid project")
	// ErrMalformed is returned when an update body cannot be decoded.
	ErrMalformed = errors.New("malformed project JSON")
)

// Store is a file-backed project collection.
type Store struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// New returns a Store backed by the JSON document at path. The file does not
// need to exist yet.
func New(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{path: path, logger: logger.Named("store")}
}

// Path returns the backing document path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the backing document. Read and parse failures are logged and
// yield an empty collection.
func (s *Store) Load() *models.ProjectList {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save overwrites the backing document with list.
func (s *Store) Save(list *models.ProjectList) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(list)
}

// List returns all projects in document order.
func (s *Store) List() []models.Project {
	return s.Load().Projects
}

// ListByCategory returns the projects whose category equals c. An empty
// category returns everything.
func (s *Store) ListByCategory(c models.Category) []models.Project {
	all := s.List()
	if c == "" {
		return all
	}
	out := make([]models.Project, 0, len(all))
	for _, p := range all {
		if p.Category == c {
			out = append(out, p)
		}
	}
	return out
}

// Get returns the project with the given id.
func (s *Store) Get(id int) (models.Project, error) {
	list := s.Load()
	i := indexOf(list.Projects, id)
	if i < 0 {
		return models.Project{}, ErrNotFound
	}
	return list.Projects[i], nil
}

// Create assigns the next id to p, appends it and persists the collection.
// Any id already set on p is ignored.
func (s *Store) Create(p models.Project) (models.Project, error) {
	if p.Title == "" || p.Description == "" {
		return models.Project{}, fmt.Errorf("%w: title and description are required", ErrInvalid)
	}
	if !p.Category.Valid() {
		return models.Project{}, fmt.Errorf("%w: unknown category %q", ErrInvalid, p.Category)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.load()
	p.ID = nextID(list.Projects)
	p.Normalize()
	list.Projects = append(list.Projects, p)

	if err := s.save(list); err != nil {
		return models.Project{}, err
	}
	metrics.ProjectMutations.WithLabelValues("create").Inc()
	s.logger.Info("project created", zap.Int("id", p.ID), zap.String("title", p.Title))
	return p, nil
}

// Update shallow-merges the top-level JSON fields in patch over the stored
// project. Fields absent from patch keep their old values, fields present
// are replaced and null clears them. The id always stays the one passed in.
func (s *Store) Update(id int, patch []byte) (models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.load()
	i := indexOf(list.Projects, id)
	if i < 0 {
		return models.Project{}, ErrNotFound
	}

	merged, err := models.MergeJSON(list.Projects[i], patch)
	if err != nil {
		return models.Project{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !merged.Category.Valid() {
		return models.Project{}, fmt.Errorf("%w: unknown category %q", ErrInvalid, merged.Category)
	}
	merged.Normalize()
	list.Projects[i] = merged

	if err := s.save(list); err != nil {
		return models.Project{}, err
	}
	metrics.ProjectMutations.WithLabelValues("update").Inc()
	s.logger.Info("project updated", zap.Int("id", id))
	return merged, nil
}

// Delete removes the project with the given id.
func (s *Store) Delete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.load()
	i := indexOf(list.Projects, id)
	if i < 0 {
		return ErrNotFound
	}
	list.Projects = slices.Delete(list.Projects, i, i+1)

	if err := s.save(list); err != nil {
		return err
	}
	metrics.ProjectMutations.WithLabelValues("delete").Inc()
	s.logger.Info("project deleted", zap.Int("id", id))
	return nil
}

func (s *Store) load() *models.ProjectList {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Debug("project document missing, starting empty", zap.String("path", s.path))
		} else {
			s.logger.Error("failed to read project document", zap.String("path", s.path), zap.Error(err))
		}
		return &models.ProjectList{Projects: []models.Project{}}
	}

	var list models.ProjectList
	if err := json.Unmarshal(data, &list); err != nil {
		s.logger.Error("failed to parse project document", zap.String("path", s.path), zap.Error(err))
		return &models.ProjectList{Projects: []models.Project{}}
	}
	if list.Projects == nil {
		list.Projects = []models.Project{}
	}
	return &list
}

func (s *Store) save(list *models.ProjectList) error {
	data, err := encode(list)
	if err != nil {
		return fmt.Errorf("failed to encode projects: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	// Write atomically
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		s.logger.Error("failed to write project document", zap.String("path", tmpPath), zap.Error(err))
		return fmt.Errorf("failed to write projects: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		s.logger.Error("failed to replace project document", zap.String("path", s.path), zap.Error(err))
		return fmt.Errorf("failed to rename projects: %w", err)
	}
	return nil
}

// encode renders the document with two-space indentation and without HTML
// escaping, so URLs and markup in descriptions stay readable on disk.
func encode(list *models.ProjectList) ([]byte, error) {
	if list.Projects == nil {
		list = &models.ProjectList{Projects: []models.Project{}}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(list); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func indexOf(projects []models.Project, id int) int {
	return slices.IndexFunc(projects, func(p models.Project) bool { return p.ID == id })
}

func nextID(projects []models.Project) int {
	maxID := 0
	for _, p := range projects {
		maxID = max(maxID, p.ID)
	}
	return maxID + 1
}
