package netid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const testMaxHTL int16 = 20

// TestPingRecord_P2HTLBounds covers property P2: for every pair,
// MIN_HTL <= getNextHtl() <= MAX_HTL and htl - getNextDawnHtl(htl) <= htl/2 - 1.
func TestPingRecord_P2HTLBounds(t *testing.T) {
	rec := NewPingRecord("target", "via", 3, 200, 20)

	// Before any samples: still-bootstrapping branch returns maxHTL.
	htl := rec.GetNextHtl(testMaxHTL)
	assert.GreaterOrEqual(t, htl, int16(3))
	assert.LessOrEqual(t, htl, testMaxHTL)

	for i := 0; i < 30; i++ {
		rec.Success(int32(i), 10, 4)
	}
	htl = rec.GetNextHtl(testMaxHTL)
	assert.GreaterOrEqual(t, htl, int16(3))
	assert.LessOrEqual(t, htl, testMaxHTL)

	dawn := rec.GetNextDawnHtl(htl)
	cap := htl/2 - 1
	if cap < 0 {
		cap = 0
	}
	assert.LessOrEqual(t, htl-dawn, cap)
}

// TestPingRecord_P3HTLAdaptation covers property P3: after >= COMFORT_LEVEL
// (20) successes with average > 0.8, getNextHtl() is strictly <= the mean
// sampled htl.
func TestPingRecord_P3HTLAdaptation(t *testing.T) {
	rec := NewPingRecord("target", "via", 3, 200, 20)

	const comfortLevel = 20
	const sampledHTL = 10
	for i := 0; i < comfortLevel+5; i++ {
		rec.Success(int32(i), sampledHTL, 2)
	}

	assert.Greater(t, rec.AverageValue(), 0.8)

	next := rec.GetNextHtl(testMaxHTL)
	assert.LessOrEqual(t, next, int16(sampledHTL))
}

func TestPingRecord_FailuresPullAverageDown(t *testing.T) {
	rec := NewPingRecord("target", "via", 3, 200, 20)
	for i := 0; i < 25; i++ {
		rec.Failure(0, 8, 2)
	}
	assert.Less(t, rec.AverageValue(), 0.2)
}

func TestPingRecord_ShortestSuccessMonotonic(t *testing.T) {
	rec := NewPingRecord("target", "via", 3, 200, 20)
	rec.Success(5, 10, 2)
	rec.Success(3, 10, 2)
	rec.Success(8, 10, 2)
	assert.Equal(t, int32(3), rec.shortestSuccess)
}
