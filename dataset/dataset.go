// Package dataset reads and writes the labelled training table: six
// descriptor columns followed by one inh_BacN column per panel strain.
package dataset

import (
	"cmp"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/bacpanel/pkg/errors"
	"github.com/YuminosukeSato/bacpanel/schema"
)

// missingTokens are cell values treated as absent (compared case-insensitively).
var missingTokens = []string{"", "na", "nan", "null"}

// IsMissing reports whether a raw cell denotes a missing value.
func IsMissing(cell string) bool {
	return slices.Contains(missingTokens, strings.ToLower(strings.TrimSpace(cell)))
}

// Dataset is the loaded training data. Missing targets are NaN.
type Dataset struct {
	Records     []schema.TrainingRecord
	TargetNames []string
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.Records)
}

// LoadCSV opens path and parses it with ReadCSV.
func LoadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open dataset %s", path)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses a header row and data rows. Every feature column and every
// target column must be present; extra columns are ignored. Missing cells
// become "" (class) or NaN (numbers). An unparsable number is a SchemaError
// naming the row and column.
func ReadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.NewModelError("dataset.ReadCSV", "empty data", errors.ErrEmptyData)
	}
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	targets := schema.TargetColumns()
	required := append(schema.FeatureColumns(), targets...)
	var missing []string
	for _, col := range required {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, errors.NewSchemaError("dataset.ReadCSV", "required columns are missing", required, missing)
	}

	classCol := index[schema.ColACAClass]
	numCols := make([]int, len(schema.NumericFeatures))
	for i, name := range schema.NumericFeatures {
		numCols[i] = index[name]
	}
	targetCols := make([]int, len(targets))
	for i, name := range targets {
		targetCols[i] = index[name]
	}

	ds := &Dataset{TargetNames: targets}
	for row := 1; ; row++ {
		cells, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read row %d", row)
		}

		class := strings.TrimSpace(cells[classCol])
		if IsMissing(class) {
			class = ""
		}
		nums := make([]float64, len(numCols))
		for i, c := range numCols {
			if nums[i], err = parseCell(cells[c], row, schema.NumericFeatures[i]); err != nil {
				return nil, err
			}
		}
		values := make([]float64, len(targetCols))
		for i, c := range targetCols {
			if values[i], err = parseCell(cells[c], row, targets[i]); err != nil {
				return nil, err
			}
		}

		ds.Records = append(ds.Records, schema.TrainingRecord{
			Descriptor: schema.DrugDescriptor{
				ACAClass:       class,
				Complexity:     nums[0],
				MolWeight:      nums[1],
				TPSA:           nums[2],
				Volume:         nums[3],
				Hydrophobicity: nums[4],
			},
			Targets: values,
		})
	}
	if len(ds.Records) == 0 {
		return nil, errors.NewModelError("dataset.ReadCSV", "no data rows", errors.ErrEmptyData)
	}
	return ds, nil
}

func parseCell(cell string, row int, column string) (float64, error) {
	if IsMissing(cell) {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return 0, errors.NewSchemaError("dataset.ReadCSV",
			fmt.Sprintf("row %d column %s: cannot parse %q as a number", row, column, cell), nil, nil)
	}
	return v, nil
}

// WriteCSV writes records with the canonical header. Missing values are
// written as empty cells.
func WriteCSV(w io.Writer, records []schema.TrainingRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append(schema.FeatureColumns(), schema.TargetColumns()...)); err != nil {
		return err
	}
	row := make([]string, 0, 1+len(schema.NumericFeatures)+schema.PanelSize)
	for i, rec := range records {
		if len(rec.Targets) != schema.PanelSize {
			return errors.NewSchemaError("dataset.WriteCSV",
				fmt.Sprintf("record %d has %d targets, expected %d", i, len(rec.Targets), schema.PanelSize), nil, nil)
		}
		row = append(row[:0], rec.Descriptor.ACAClass)
		for _, v := range rec.Descriptor.Numeric() {
			row = append(row, formatCell(v))
		}
		for _, v := range rec.Targets {
			row = append(row, formatCell(v))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// TargetMissing is the number of missing observations of one target.
type TargetMissing struct {
	Target string `json:"target"`
	Count  int    `json:"count"`
}

// Diagnostics summarises missing targets before training.
type Diagnostics struct {
	// MissingPerTarget is sorted by count descending, then by panel order.
	MissingPerTarget []TargetMissing `json:"missing_per_target"`
	// RowsWithMissingTargets counts rows with at least one missing target.
	RowsWithMissingTargets int `json:"rows_with_missing_targets"`
}

// Top returns at most n entries of MissingPerTarget with a non-zero count.
func (d Diagnostics) Top(n int) []TargetMissing {
	out := make([]TargetMissing, 0, n)
	for _, m := range d.MissingPerTarget {
		if len(out) == n || m.Count == 0 {
			break
		}
		out = append(out, m)
	}
	return out
}

// Diagnose counts missing target observations.
func (d *Dataset) Diagnose() Diagnostics {
	counts := make([]TargetMissing, len(d.TargetNames))
	for j, name := range d.TargetNames {
		counts[j].Target = name
	}
	var rows int
	for _, rec := range d.Records {
		incomplete := false
		for j, v := range rec.Targets {
			if math.IsNaN(v) {
				counts[j].Count++
				incomplete = true
			}
		}
		if incomplete {
			rows++
		}
	}
	slices.SortStableFunc(counts, func(a, b TargetMissing) int {
		return cmp.Compare(b.Count, a.Count)
	})
	return Diagnostics{MissingPerTarget: counts, RowsWithMissingTargets: rows}
}

// CompleteRecords returns the records whose targets are all observed, in
// their original order, and the number of rows excluded.
func (d *Dataset) CompleteRecords() ([]schema.TrainingRecord, int) {
	kept := make([]schema.TrainingRecord, 0, len(d.Records))
	for _, rec := range d.Records {
		if !slices.ContainsFunc(rec.Targets, math.IsNaN) {
			kept = append(kept, rec)
		}
	}
	return kept, len(d.Records) - len(kept)
}
