// Package inference serves predictions from the persisted pipeline.
//
// A Service never fails to construct. When the artifact is missing,
// unreadable or does not match the current schema, the service starts in
// degraded mode and every prediction returns ModelUnavailableError wrapping
// the cause. The loaded pipeline is read-only, so a Service is safe for
// concurrent use.
package inference

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/YuminosukeSato/bacpanel/pipeline"
	"github.com/YuminosukeSato/bacpanel/pkg/errors"
	"github.com/YuminosukeSato/bacpanel/pkg/log"
	"github.com/YuminosukeSato/bacpanel/schema"
	"github.com/YuminosukeSato/bacpanel/store"
	"github.com/YuminosukeSato/bacpanel/summary"
)

// ErrClosed is the degraded-mode cause after Close.
var ErrClosed = errors.New("inference service closed")

// Prediction is a predicted panel with its summary.
type Prediction struct {
	Vector  schema.InhibitionVector `json:"vector"`
	Summary summary.Result          `json:"summary"`
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger log.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithStrictCategories rejects ACA classes outside schema.ACAClasses
// instead of encoding them as all zeros.
func WithStrictCategories(strict bool) Option {
	return func(s *Service) {
		s.strict = strict
	}
}

// WithRegisterer registers the service metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Service) {
		s.registerer = reg
	}
}

// Service holds a trained pipeline and serves predictions and summaries.
type Service struct {
	store      *store.Store
	strict     bool
	logger     log.Logger
	registerer prometheus.Registerer
	metrics    *serviceMetrics

	mu       sync.RWMutex
	pipeline *pipeline.Pipeline
	cause    error
}

// New creates a service and attempts to load the artifact from st.
func New(st *store.Store, opts ...Option) *Service {
	s := &Service{store: st}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.GetLoggerWithName("Inference")
	}
	s.metrics = newServiceMetrics(s.registerer)
	_ = s.Reload()
	return s
}

// Reload loads the artifact again, e.g. after a new training run.
// On failure the service is left in degraded mode and the cause is returned.
func (s *Service) Reload() error {
	p, err := s.load()

	s.mu.Lock()
	s.pipeline, s.cause = p, err
	s.mu.Unlock()
	s.metrics.setAvailable(err == nil)

	if err != nil {
		s.logger.Warn("Model unavailable, serving in degraded mode", err,
			log.ArtifactPathKey, s.store.Path,
			log.ErrorCodeKey, log.ErrorModelUnavailable,
			log.SuggestionKey, "run `bacpanel train` to create the artifact",
		)
		return err
	}
	s.logger.Info("Model loaded",
		log.OperationKey, log.OperationLoad,
		log.ArtifactPathKey, s.store.Path,
		log.TargetsKey, p.NOutputs(),
	)
	return nil
}

func (s *Service) load() (*pipeline.Pipeline, error) {
	p, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Available reports whether predictions can be served.
func (s *Service) Available() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pipeline != nil
}

// Cause returns why the service is degraded, or nil.
func (s *Service) Cause() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cause
}

// Predict validates d and returns its 40-strain inhibition vector.
func (s *Service) Predict(d schema.DrugDescriptor) (schema.InhibitionVector, error) {
	start := time.Now()
	defer func() { s.metrics.latency.Observe(time.Since(start).Seconds()) }()

	s.mu.RLock()
	p, cause := s.pipeline, s.cause
	s.mu.RUnlock()
	if p == nil {
		s.metrics.failures.WithLabelValues(FailureUnavailable).Inc()
		return nil, errors.NewModelUnavailableError(cause)
	}

	if err := d.Validate(s.strict); err != nil {
		s.metrics.failures.WithLabelValues(FailureValidation).Inc()
		return nil, err
	}

	var v schema.InhibitionVector
	err := errors.SafeExecute("inference.Predict", func() error {
		var err error
		v, err = p.PredictOne(d)
		return err
	})
	if err != nil {
		kind := FailureModel
		var pe *errors.PanicError
		if errors.As(err, &pe) {
			kind = FailurePanic
		}
		s.metrics.failures.WithLabelValues(kind).Inc()
		s.logger.Error("Prediction failed", err, log.OperationKey, log.OperationPredict)
		return nil, err
	}
	s.metrics.predictions.Inc()
	return v, nil
}

// PredictAndSummarize predicts d and summarises the top n strains.
func (s *Service) PredictAndSummarize(d schema.DrugDescriptor, n int) (Prediction, error) {
	if n < 1 || n > schema.PanelSize {
		return Prediction{}, errors.NewInvalidArgumentError("inference.PredictAndSummarize", "n", n, "must be between 1 and 40")
	}
	v, err := s.Predict(d)
	if err != nil {
		return Prediction{}, err
	}
	res, err := summary.Summarize(v, n)
	if err != nil {
		return Prediction{}, err
	}
	s.logger.Debug("Prediction summarised",
		log.OperationKey, log.OperationPredict,
		log.TopStrainKey, res.Top[0].Strain,
	)
	return Prediction{Vector: v, Summary: res}, nil
}

// Close releases the artifact. Later predictions return ModelUnavailableError.
func (s *Service) Close() error {
	s.mu.Lock()
	s.pipeline, s.cause = nil, ErrClosed
	s.mu.Unlock()
	s.metrics.setAvailable(false)
	return nil
}
