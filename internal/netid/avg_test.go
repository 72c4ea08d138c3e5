package netid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrappingDecayingRunningAverage_FirstReportReplacesSeed(t *testing.T) {
	avg := NewBootstrappingDecayingRunningAverage(0.0, 0.0, 1.0, 200)
	require.Equal(t, 0, avg.CountReports())

	got := avg.Report(1.0)
	assert.Equal(t, 1.0, got)
	assert.Equal(t, 1, avg.CountReports())
}

func TestBootstrappingDecayingRunningAverage_ConvergesTowardSteadyInput(t *testing.T) {
	avg := NewBootstrappingDecayingRunningAverage(0.0, 0.0, 1.0, 200)
	for i := 0; i < 500; i++ {
		avg.Report(1.0)
	}
	assert.InDelta(t, 1.0, avg.CurrentValue(), 1e-9)
}

func TestBootstrappingDecayingRunningAverage_ClampsToRange(t *testing.T) {
	avg := NewBootstrappingDecayingRunningAverage(5.0, 0.0, 3.0, 200)
	assert.Equal(t, 3.0, avg.CurrentValue())

	avg.Report(-10.0)
	assert.Equal(t, 0.0, avg.CurrentValue())
}

func TestBootstrappingDecayingRunningAverage_Deterministic(t *testing.T) {
	a := NewBootstrappingDecayingRunningAverage(0.0, 0.0, 1.0, 200)
	b := NewBootstrappingDecayingRunningAverage(0.0, 0.0, 1.0, 200)

	inputs := []float64{1, 1, 0, 1, 0, 0, 1, 1, 1, 0}
	for _, v := range inputs {
		a.Report(v)
		b.Report(v)
	}
	assert.Equal(t, a.CurrentValue(), b.CurrentValue())
}
