// Package summary derives the human-facing view of a predicted inhibition
// vector: the most inhibited strains and a coarse region indication.
//
// RegionSummary is a fixed placeholder mapping from the panel mean. It is
// not a geospatial model.
package summary

import (
	"cmp"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/bacpanel/pkg/errors"
	"github.com/YuminosukeSato/bacpanel/schema"
)

// DefaultTopN is the number of strains shown by default.
const DefaultTopN = 3

// Region thresholds on the panel mean.
const (
	GlobalThreshold = 70.0
	EuropeThreshold = 40.0
	// AfricaFactor scales the mean for the least-affected region in the middle band.
	AfricaFactor = 0.3
)

// Region labels.
const (
	RegionGlobal = "Global"
	RegionNone   = "None"
	RegionEurope = "Europe"
	RegionAfrica = "Africa"
	RegionNA     = "N/A"
)

// StrainValue is one strain of the panel with its predicted inhibition.
type StrainValue struct {
	Strain string  `json:"strain"`
	Index  int     `json:"index"`
	Value  float64 `json:"value"`
}

// RegionScore is a region label with its score.
type RegionScore struct {
	Region string  `json:"region"`
	Score  float64 `json:"score"`
}

// Result combines the top-N strains and the region summary.
type Result struct {
	Top   []StrainValue `json:"top"`
	Mean  float64       `json:"mean"`
	Most  RegionScore   `json:"most_affected"`
	Least RegionScore   `json:"least_affected"`
}

// TopN returns the n strains with the highest values, highest first.
// Equal values keep panel order. NaN ranks below every number.
func TopN(v schema.InhibitionVector, n int) ([]StrainValue, error) {
	if err := v.CheckLength("summary.TopN"); err != nil {
		return nil, err
	}
	if n < 1 || n > len(v) {
		return nil, errors.NewInvalidArgumentError("summary.TopN", "n", n, "must be between 1 and 40")
	}

	all := make([]StrainValue, len(v))
	for i, x := range v {
		all[i] = StrainValue{Strain: schema.BacteriaNames[i], Index: i, Value: x}
	}
	slices.SortStableFunc(all, func(a, b StrainValue) int {
		return cmp.Compare(b.Value, a.Value)
	})
	return all[:n:n], nil
}

// RegionSummary maps the panel mean to the most and least affected regions:
//
//	mean > 70        Global/mean, None/0
//	40 < mean <= 70  Europe/mean, Africa/0.3*mean
//	mean <= 40       N/A/mean,    N/A/mean
func RegionSummary(v schema.InhibitionVector) (most, least RegionScore, err error) {
	if err := v.CheckLength("summary.RegionSummary"); err != nil {
		return RegionScore{}, RegionScore{}, err
	}
	most, least = regionsFor(stat.Mean(v, nil))
	return most, least, nil
}

func regionsFor(mean float64) (most, least RegionScore) {
	switch {
	case mean > GlobalThreshold:
		return RegionScore{RegionGlobal, mean}, RegionScore{RegionNone, 0}
	case mean > EuropeThreshold:
		return RegionScore{RegionEurope, mean}, RegionScore{RegionAfrica, AfricaFactor * mean}
	default:
		return RegionScore{RegionNA, mean}, RegionScore{RegionNA, mean}
	}
}

// Summarize combines TopN and RegionSummary.
func Summarize(v schema.InhibitionVector, n int) (Result, error) {
	top, err := TopN(v, n)
	if err != nil {
		return Result{}, err
	}
	mean := stat.Mean(v, nil)
	most, least := regionsFor(mean)
	return Result{Top: top, Mean: mean, Most: most, Least: least}, nil
}
