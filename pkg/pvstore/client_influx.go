package pvstore

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"go.uber.org/zap"
)

// The collector stores power fields in kilowatts (meter convention); the
// decision engine works in watts.
const kilowattsToWatts = 1000

type InfluxReaderParams struct {
	URL             string
	Token           string
	Org             string
	Bucket          string
	Measurement     string
	ProductionField string
	NetField        string
}

type InfluxTelemetryReader struct {
	params   InfluxReaderParams
	client   influxdb2.Client
	queryAPI api.QueryAPI
	logger   *zap.Logger
}

func CreateInfluxTelemetryReader(params InfluxReaderParams, timeout time.Duration, logger *zap.Logger) (TelemetryReader, error) {
	if params.URL == "" || params.Bucket == "" {
		return nil, fmt.Errorf("influx reader requires url and bucket")
	}
	opts := influxdb2.DefaultOptions().SetHTTPRequestTimeout(uint(timeout.Seconds()))
	client := influxdb2.NewClientWithOptions(params.URL, params.Token, opts)
	return &InfluxTelemetryReader{
		params:   params,
		client:   client,
		queryAPI: client.QueryAPI(params.Org),
		logger:   logger.With(zap.String("target", "influx")),
	}, nil
}

func (reader *InfluxTelemetryReader) Open() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ok, err := reader.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrTelemetryUnavailable, err)
	}
	if !ok {
		return fmt.Errorf("%w: ping failed", ErrTelemetryUnavailable)
	}
	return nil
}

func (reader *InfluxTelemetryReader) Close() error {
	reader.client.Close()
	return nil
}

// ReadWindows queries the short-window averages and the trend-window slope
// anchored at now. The read is atomic: every failure, including a trend window
// shorter than the control interval, wraps ErrTelemetryUnavailable so callers
// match a single sentinel.
func (reader *InfluxTelemetryReader) ReadWindows(ctx context.Context, controlInterval time.Duration, trendWindow time.Duration) (*TelemetryWindows, error) {
	if trendWindow < controlInterval {
		return nil, fmt.Errorf("%w: trend window %s shorter than control interval %s", ErrTelemetryUnavailable, trendWindow, controlInterval)
	}

	now := time.Now()

	avgProduction, err := reader.windowMean(ctx, reader.params.ProductionField, controlInterval)
	if err != nil {
		return nil, err
	}
	avgNet, err := reader.windowMean(ctx, reader.params.NetField, controlInterval)
	if err != nil {
		return nil, err
	}
	points, err := reader.windowMeans(ctx, reader.params.ProductionField, trendWindow, time.Minute)
	if err != nil {
		return nil, err
	}
	slope, ok := LinearSlopeWattsPerMinute(points)
	if !ok {
		return nil, fmt.Errorf("%w: not enough samples for %s slope over %s", ErrTelemetryUnavailable, reader.params.ProductionField, trendWindow)
	}

	return &TelemetryWindows{
		Summary: WindowedSummary{
			AvgProductionWatts:     avgProduction,
			AvgNetConsumptionWatts: avgNet,
			WindowStart:            now.Add(-controlInterval),
			WindowEnd:              now,
		},
		Trend: TrendSummary{
			SlopeWattsPerMinute: slope,
			WindowMinutes:       trendWindow.Minutes(),
		},
	}, nil
}

// windowMean returns the mean of a field over the trailing window, in watts.
func (reader *InfluxTelemetryReader) windowMean(ctx context.Context, field string, window time.Duration) (float64, error) {
	flux := fmt.Sprintf(`from(bucket: %q)
  |> range(start: -%ds)
  |> filter(fn: (r) => r._measurement == %q and r._field == %q)
  |> mean()`, reader.params.Bucket, int(window.Seconds()), reader.params.Measurement, field)

	result, err := reader.queryAPI.Query(ctx, flux)
	if err != nil {
		return 0, fmt.Errorf("%w: query %s mean: %s", ErrTelemetryUnavailable, field, err)
	}
	defer result.Close()

	if !result.Next() {
		if result.Err() != nil {
			return 0, fmt.Errorf("%w: read %s mean: %s", ErrTelemetryUnavailable, field, result.Err())
		}
		return 0, fmt.Errorf("%w: no %s samples in the last %s", ErrTelemetryUnavailable, field, window)
	}
	value, ok := result.Record().Value().(float64)
	if !ok {
		return 0, fmt.Errorf("%w: non numeric %s sample", ErrTelemetryUnavailable, field)
	}
	return value * kilowattsToWatts, nil
}

// windowMeans returns per-interval means of a field over the trailing window,
// in watts, ordered by time. Used as regression input for the trend slope.
func (reader *InfluxTelemetryReader) windowMeans(ctx context.Context, field string, window time.Duration, every time.Duration) ([]TrendPoint, error) {
	flux := fmt.Sprintf(`from(bucket: %q)
  |> range(start: -%ds)
  |> filter(fn: (r) => r._measurement == %q and r._field == %q)
  |> aggregateWindow(every: %ds, fn: mean, createEmpty: false)`,
		reader.params.Bucket, int(window.Seconds()), reader.params.Measurement, field, int(every.Seconds()))

	result, err := reader.queryAPI.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s trend: %s", ErrTelemetryUnavailable, field, err)
	}
	defer result.Close()

	var points []TrendPoint
	for result.Next() {
		value, ok := result.Record().Value().(float64)
		if !ok {
			continue
		}
		points = append(points, TrendPoint{
			Time:  result.Record().Time(),
			Watts: value * kilowattsToWatts,
		})
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("%w: read %s trend: %s", ErrTelemetryUnavailable, field, result.Err())
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no %s samples in the last %s", ErrTelemetryUnavailable, field, window)
	}
	return points, nil
}
