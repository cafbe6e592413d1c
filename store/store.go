// Package store persists the single trained pipeline artifact.
//
// There is exactly one slot per Store. Save overwrites it atomically
// (temp file + rename in the same directory), so a reader never observes a
// partially written artifact.
package store

import (
	"io/fs"
	"os"
	"time"

	"github.com/YuminosukeSato/bacpanel/core/model"
	"github.com/YuminosukeSato/bacpanel/pipeline"
	"github.com/YuminosukeSato/bacpanel/pkg/errors"
	"github.com/YuminosukeSato/bacpanel/pkg/log"
)

// Store reads and writes the artifact at Path.
type Store struct {
	Path   string
	logger log.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(logger log.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New returns a Store for the artifact at path.
func New(path string, opts ...Option) *Store {
	s := &Store{Path: path}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.GetLoggerWithName("Store")
	}
	return s
}

// Exists reports whether an artifact is present at Path.
func (s *Store) Exists() bool {
	info, err := os.Stat(s.Path)
	return err == nil && info.Mode().IsRegular()
}

// Save writes a fitted pipeline, replacing any previous artifact.
func (s *Store) Save(p *pipeline.Pipeline) error {
	if p == nil || !p.IsFitted() {
		return errors.NewNotFittedError("Pipeline", "Store.Save")
	}
	start := time.Now()
	if err := model.SaveModel(p, s.Path); err != nil {
		return errors.NewModelError("Store.Save", "write artifact", err)
	}
	s.logger.Info("Artifact saved",
		log.OperationKey, log.OperationSave,
		log.ArtifactPathKey, s.Path,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// Load reads the artifact. A missing file yields ArtifactNotFoundError;
// an unreadable or corrupt file yields ModelError. The returned pipeline
// is not checked against the schema; see pipeline.Pipeline.Validate.
func (s *Store) Load() (*pipeline.Pipeline, error) {
	start := time.Now()
	var p pipeline.Pipeline
	if err := model.LoadModel(&p, s.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewArtifactNotFoundError(s.Path)
		}
		return nil, errors.NewModelError("Store.Load", "read artifact", err)
	}
	if !p.IsFitted() {
		return nil, errors.NewModelError("Store.Load", "artifact holds an unfitted pipeline", nil)
	}
	s.logger.Info("Artifact loaded",
		log.OperationKey, log.OperationLoad,
		log.ArtifactPathKey, s.Path,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return &p, nil
}
