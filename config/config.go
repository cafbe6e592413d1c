// Package config loads the training and inference settings.
//
// Precedence: environment > YAML file > defaults. Unknown YAML keys are
// rejected so that a misspelt option never silently falls back to a default.
package config

import (
	"bytes"
	"io"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/bacpanel/pkg/errors"
)

// Training configures one offline training run.
type Training struct {
	Dataset  string `yaml:"dataset" validate:"required"`
	Artifact string `yaml:"artifact" validate:"required"`

	TestSize  float64 `yaml:"test_size" validate:"gt=0,lt=1"`
	SplitSeed uint64  `yaml:"split_seed"`

	NEstimators    int    `yaml:"n_estimators" validate:"min=1"`
	MaxDepth       int    `yaml:"max_depth" validate:"min=0"`
	MinSamplesLeaf int    `yaml:"min_samples_leaf" validate:"min=1"`
	RandomState    uint64 `yaml:"random_state"`

	RunCV   bool `yaml:"run_cv"`
	CVFolds int  `yaml:"cv_folds" validate:"min=2"`

	ReportPath string `yaml:"report_path"`
	PlotPath   string `yaml:"plot_path"`
	LogLevel   string `yaml:"log_level" validate:"oneof=debug info warn warning error"`
}

// Inference configures the prediction service.
type Inference struct {
	Artifact         string `yaml:"artifact" validate:"required"`
	TopN             int    `yaml:"top_n" validate:"min=1,max=40"`
	StrictCategories bool   `yaml:"strict_categories"`
	LogLevel         string `yaml:"log_level" validate:"oneof=debug info warn warning error"`
}

// DefaultTraining returns the settings of the reference training run.
func DefaultTraining() Training {
	return Training{
		Dataset:        "data/training.csv",
		Artifact:       "models/bacpanel.gob",
		TestSize:       0.2,
		SplitSeed:      1,
		NEstimators:    400,
		MaxDepth:       0,
		MinSamplesLeaf: 1,
		RandomState:    42,
		RunCV:          true,
		CVFolds:        5,
		LogLevel:       "info",
	}
}

// DefaultInference returns the default service settings.
func DefaultInference() Inference {
	return Inference{
		Artifact: "models/bacpanel.gob",
		TopN:     3,
		LogLevel: "info",
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the value ranges.
func (c Training) Validate() error {
	return toValidationError(validate.Struct(c))
}

// Validate checks the value ranges.
func (c Inference) Validate() error {
	return toValidationError(validate.Struct(c))
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return errors.NewValidationError(fe.Field(), "failed '"+fe.Tag()+"' constraint", fe.Value())
	}
	return errors.Wrap(err, "validate config")
}

// LoadTraining reads a training config. An empty path uses defaults only.
func LoadTraining(path string) (Training, error) {
	cfg := DefaultTraining()
	if err := loadFile(path, &cfg); err != nil {
		return cfg, err
	}
	envString("BACPANEL_DATASET", &cfg.Dataset)
	envString("BACPANEL_ARTIFACT", &cfg.Artifact)
	envString("BACPANEL_LOG_LEVEL", &cfg.LogLevel)
	envInt("BACPANEL_N_ESTIMATORS", &cfg.NEstimators)
	return cfg, cfg.Validate()
}

// LoadInference reads an inference config. An empty path uses defaults only.
func LoadInference(path string) (Inference, error) {
	cfg := DefaultInference()
	if err := loadFile(path, &cfg); err != nil {
		return cfg, err
	}
	envString("BACPANEL_ARTIFACT", &cfg.Artifact)
	envString("BACPANEL_LOG_LEVEL", &cfg.LogLevel)
	return cfg, cfg.Validate()
}

func loadFile(path string, out interface{}) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	return Decode(bytes.NewReader(data), out)
}

// Decode strictly decodes YAML into out, which should hold defaults already.
func Decode(r io.Reader, out interface{}) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && err != io.EOF {
		return errors.Wrap(err, "parse config")
	}
	return nil
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}
