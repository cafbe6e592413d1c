package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordsDeterministic(t *testing.T) {
	a := Records(20, 3, Options{})
	b := Records(20, 3, Options{})
	assert.Equal(t, a, b)

	for _, r := range a {
		require.Len(t, r.Targets, 40)
		for k, v := range r.Targets {
			assert.Equal(t, Target(k, r.Descriptor.MolWeight), v)
		}
	}
}

func TestRecordsNoiseTargets(t *testing.T) {
	for _, r := range Records(50, 7, Options{NoiseTargets: 2}) {
		assert.Equal(t, Target(0, r.Descriptor.MolWeight), r.Targets[0])
		for _, v := range r.Targets[1:] {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.Less(t, v, 2.0)
		}
	}
}
