// Package synth generates seeded synthetic inhibition datasets for demos
// and tests. By default every target is a noiseless linear function of
// mol_weight so a well-behaved regressor can recover it.
package synth

import (
	"math"
	"math/rand/v2"

	"github.com/YuminosukeSato/bacpanel/schema"
)

// Options controls the generated dataset.
type Options struct {
	// MissingFeatureRate is the probability that a feature cell is blank.
	MissingFeatureRate float64
	// MissingTargetRate is the probability that a target cell is blank.
	MissingTargetRate float64
	// NoiseTargets, when > 0, keeps the signal on the first target only and
	// fills the other targets with independent uniform draws in [0, NoiseTargets).
	NoiseTargets float64
}

// Target returns the noiseless value of target k for molecular weight mw.
// Values stay within [0, 100] for mw in [100, 500].
func Target(k int, mw float64) float64 {
	return (mw-100)/400*60 + float64(k)
}

// Records returns n records drawn from a PCG source seeded with seed.
func Records(n int, seed uint64, opts Options) []schema.TrainingRecord {
	rng := rand.New(rand.NewPCG(seed, seed^0x5eed))
	records := make([]schema.TrainingRecord, n)
	for i := range records {
		mw := 100 + rng.Float64()*400
		d := schema.DrugDescriptor{
			ACAClass:       schema.ACAClasses[i%len(schema.ACAClasses)],
			Complexity:     rng.Float64() * 1000,
			MolWeight:      mw,
			TPSA:           rng.Float64() * 150,
			Volume:         200 + rng.Float64()*300,
			Hydrophobicity: rng.NormFloat64(),
		}
		if opts.MissingFeatureRate > 0 {
			if rng.Float64() < opts.MissingFeatureRate {
				d.ACAClass = ""
			}
			if rng.Float64() < opts.MissingFeatureRate {
				d.TPSA = math.NaN()
			}
		}

		targets := make([]float64, schema.PanelSize)
		for k := range targets {
			if k > 0 && opts.NoiseTargets > 0 {
				targets[k] = rng.Float64() * opts.NoiseTargets
			} else {
				targets[k] = Target(k, mw)
			}
			if opts.MissingTargetRate > 0 && rng.Float64() < opts.MissingTargetRate {
				targets[k] = math.NaN()
			}
		}
		records[i] = schema.TrainingRecord{Descriptor: d, Targets: targets}
	}
	return records
}
