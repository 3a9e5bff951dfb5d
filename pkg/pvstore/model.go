package pvstore

import (
	"context"
	"errors"
	"time"
)

// ErrTelemetryUnavailable is returned when the store is unreachable or a
// requested window has no samples. Callers are expected to skip the current
// control tick and keep their previous state.
var ErrTelemetryUnavailable = errors.New("telemetry unavailable")

// WindowedSummary holds the short-window averages used for the charging
// decision. Power values are watts; net consumption is negative while
// exporting to the grid and positive while importing.
type WindowedSummary struct {
	AvgProductionWatts     float64
	AvgNetConsumptionWatts float64
	WindowStart            time.Time
	WindowEnd              time.Time
}

// Window returns the covered time span.
func (s WindowedSummary) Window() time.Duration {
	return s.WindowEnd.Sub(s.WindowStart)
}

// TrendSummary holds the production slope estimated by linear regression over
// the trend window.
type TrendSummary struct {
	SlopeWattsPerMinute float64
	WindowMinutes       float64
}

// TelemetryWindows is the atomic result of a windowed read: either both
// summaries are valid or the read failed as a whole.
type TelemetryWindows struct {
	Summary WindowedSummary
	Trend   TrendSummary
}

type TrendPoint struct {
	Time  time.Time
	Watts float64
}

// TelemetryReader reads windowed production/net-consumption summaries from a
// time series store populated by an independent collector.
type TelemetryReader interface {
	Open() error
	Close() error
	ReadWindows(ctx context.Context, controlInterval time.Duration, trendWindow time.Duration) (*TelemetryWindows, error)
}
