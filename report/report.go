// Package report writes the evaluation results of a training run as JSON
// and as a per-target R² bar chart.
package report

import (
	"encoding/json"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/bacpanel/dataset"
	"github.com/YuminosukeSato/bacpanel/pkg/errors"
)

// TargetScore is the held-out score of one target.
type TargetScore struct {
	Target string  `json:"target"`
	R2     float64 `json:"r2"`
	MAE    float64 `json:"mae"`
}

// CVSummary holds the cross-validated uniform-average R².
type CVSummary struct {
	Folds  int       `json:"folds"`
	Scores []float64 `json:"scores"`
	Mean   float64   `json:"mean"`
	Std    float64   `json:"std"`
}

// Report is the outcome of one training run. It is only complete once the
// artifact has been saved.
type Report struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Dataset    string    `json:"dataset"`
	Artifact   string    `json:"artifact"`

	Rows        int `json:"rows"`
	RowsDropped int `json:"rows_dropped"`
	TrainRows   int `json:"train_rows"`
	TestRows    int `json:"test_rows"`

	MissingTargets dataset.Diagnostics `json:"missing_targets"`

	R2        float64       `json:"r2"`
	MAE       float64       `json:"mae"`
	PerTarget []TargetScore `json:"per_target"`

	CV *CVSummary `json:"cv,omitempty"`

	Hyperparams        map[string]interface{} `json:"hyperparams,omitempty"`
	FeatureImportances map[string]float64     `json:"feature_importances,omitempty"`
}

// WriteJSON writes the report as indented JSON, creating parent directories.
func (r *Report) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode report")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create report directory")
	}
	return errors.Wrap(os.WriteFile(path, append(data, '\n'), 0o644), "write report")
}

// ReadJSON loads a report written by WriteJSON.
func ReadJSON(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read report")
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(err, "decode report")
	}
	return &r, nil
}

// PlotPerTargetR2 draws one bar per target. The image format follows the
// file extension (.png, .svg, .pdf, ...).
func PlotPerTargetR2(r *Report, path string) error {
	if len(r.PerTarget) == 0 {
		return errors.NewValueError("report.PlotPerTargetR2", "no per-target scores")
	}

	values := make(plotter.Values, len(r.PerTarget))
	names := make([]string, len(r.PerTarget))
	for i, s := range r.PerTarget {
		values[i] = s.R2
		names[i] = strings.TrimPrefix(s.Target, "inh_")
	}

	p := plot.New()
	p.Title.Text = "Held-out R² per strain"
	p.Y.Label.Text = "R²"
	p.Y.Max = 1

	bars, err := plotter.NewBarChart(values, vg.Points(8))
	if err != nil {
		return errors.Wrap(err, "bar chart")
	}
	bars.Color = color.RGBA{R: 20, G: 80, B: 200, A: 220}
	bars.LineStyle.Width = 0
	p.Add(bars, plotter.NewGrid())

	mean, err := plotter.NewLine(plotter.XYs{{X: -0.5, Y: r.R2}, {X: float64(len(values)) - 0.5, Y: r.R2}})
	if err != nil {
		return errors.Wrap(err, "mean line")
	}
	mean.Color = color.RGBA{R: 200, G: 30, B: 30, A: 255}
	mean.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(mean)
	p.Legend.Add("uniform average", mean)

	p.NominalX(names...)
	p.X.Tick.Label.Rotation = 1.5708
	p.X.Tick.Label.XAlign = -1.2

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create plot directory")
	}
	return errors.Wrap(p.Save(12*vg.Inch, 5*vg.Inch, path), "save plot")
}
