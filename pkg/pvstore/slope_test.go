package pvstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearSlopeExactLine(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	// 50 W/min ramp sampled every minute
	var points []TrendPoint
	for i := 0; i < 30; i++ {
		points = append(points, TrendPoint{
			Time:  start.Add(time.Duration(i) * time.Minute),
			Watts: 1000 + 50*float64(i),
		})
	}

	slope, ok := LinearSlopeWattsPerMinute(points)
	require.True(t, ok)
	assert.InDelta(t, 50, slope, 1e-9)
}

func TestLinearSlopeFlatProduction(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	var points []TrendPoint
	for i := 0; i < 10; i++ {
		points = append(points, TrendPoint{
			Time:  start.Add(time.Duration(i) * time.Minute),
			Watts: 2500,
		})
	}

	slope, ok := LinearSlopeWattsPerMinute(points)
	require.True(t, ok)
	assert.InDelta(t, 0, slope, 1e-9)
}

func TestLinearSlopeNoisySamplesAreDamped(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	// falling production with alternating +-200 W noise
	noise := []float64{200, -200}
	var points []TrendPoint
	for i := 0; i < 30; i++ {
		points = append(points, TrendPoint{
			Time:  start.Add(time.Duration(i) * time.Minute),
			Watts: 4000 - 30*float64(i) + noise[i%2],
		})
	}

	slope, ok := LinearSlopeWattsPerMinute(points)
	require.True(t, ok)
	// regression over the whole window should stay close to the true trend
	assert.InDelta(t, -30, slope, 5)
}

func TestLinearSlopeNotEnoughPoints(t *testing.T) {
	_, ok := LinearSlopeWattsPerMinute(nil)
	assert.False(t, ok)

	_, ok = LinearSlopeWattsPerMinute([]TrendPoint{{Time: time.Now(), Watts: 100}})
	assert.False(t, ok)
}

func TestLinearSlopeCoincidentTimestamps(t *testing.T) {
	now := time.Now()
	_, ok := LinearSlopeWattsPerMinute([]TrendPoint{
		{Time: now, Watts: 100},
		{Time: now, Watts: 200},
	})
	assert.False(t, ok)
}
