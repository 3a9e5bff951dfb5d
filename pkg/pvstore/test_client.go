package pvstore

import (
	"context"
	"time"
)

func CreateTestTelemetryReader() *TestTelemetryReader {
	return &TestTelemetryReader{}
}

// TestTelemetryReader serves canned windows. When Windows and Err are both
// nil, it returns a sunny-afternoon snapshot with a 3 kW export.
type TestTelemetryReader struct {
	Windows *TelemetryWindows
	Err     error
	Reads   int
}

func (reader *TestTelemetryReader) Open() error {
	return nil
}

func (reader *TestTelemetryReader) Close() error {
	return nil
}

func (reader *TestTelemetryReader) ReadWindows(ctx context.Context, controlInterval time.Duration, trendWindow time.Duration) (*TelemetryWindows, error) {
	reader.Reads++
	if reader.Err != nil {
		return nil, reader.Err
	}
	if reader.Windows != nil {
		return reader.Windows, nil
	}
	now := time.Now()
	return &TelemetryWindows{
		Summary: WindowedSummary{
			AvgProductionWatts:     4850,
			AvgNetConsumptionWatts: -3000,
			WindowStart:            now.Add(-controlInterval),
			WindowEnd:              now,
		},
		Trend: TrendSummary{
			SlopeWattsPerMinute: 12.5,
			WindowMinutes:       trendWindow.Minutes(),
		},
	}, nil
}
