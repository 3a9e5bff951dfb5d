package pvstore

// LinearSlopeWattsPerMinute fits an ordinary least squares line through the
// given points and returns its slope in watts per minute. The boolean is false
// when a slope cannot be estimated (fewer than two points, or all points at
// the same instant).
func LinearSlopeWattsPerMinute(points []TrendPoint) (float64, bool) {
	if len(points) < 2 {
		return 0, false
	}

	t0 := points[0].Time
	var sumX, sumY, sumXY, sumXX float64
	for _, p := range points {
		x := p.Time.Sub(t0).Minutes()
		sumX += x
		sumY += p.Watts
		sumXY += x * p.Watts
		sumXX += x * x
	}

	n := float64(len(points))
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, false
	}
	return (n*sumXY - sumX*sumY) / denom, true
}
