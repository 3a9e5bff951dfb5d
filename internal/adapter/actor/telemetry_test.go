package actor

import (
	"testing"
	"time"

	"solaramp/internal/core/domain"
	"solaramp/internal/util/actorutil"
	"solaramp/pkg/pvstore"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestGetTelemetryWindowsTelemetryActor(t *testing.T) {

	assert := assert.New(t)

	reader := pvstore.CreateTestTelemetryReader()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewTelemetryActor(reader, 5*time.Second, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	msg := domain.GetTelemetryWindowsRequest{
		ControlInterval: 5 * time.Minute,
		TrendWindow:     30 * time.Minute,
	}
	result, err := context.RequestFuture(pid, msg, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.GetTelemetryWindowsResponse)

	assert.False(resp.HasResponseError())
	assert.EqualValues(4850, resp.Windows.Summary.AvgProductionWatts, "average production")
	assert.EqualValues(-3000, resp.Windows.Summary.AvgNetConsumptionWatts, "average net flow")
	assert.EqualValues(12.5, resp.Windows.Trend.SlopeWattsPerMinute, "trend slope")
	assert.Equal(1, reader.Reads)

	context.Stop(pid)

	as.Shutdown()
}

func TestTelemetryActorReportsReadFailure(t *testing.T) {

	assert := assert.New(t)

	reader := pvstore.CreateTestTelemetryReader()
	reader.Err = pvstore.ErrTelemetryUnavailable

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewTelemetryActor(reader, 5*time.Second, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	msg := domain.GetTelemetryWindowsRequest{
		ControlInterval: 5 * time.Minute,
		TrendWindow:     30 * time.Minute,
	}
	result, err := context.RequestFuture(pid, msg, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.GetTelemetryWindowsResponse)

	assert.True(resp.HasResponseError())
	assert.ErrorIs(resp.GetResponseError(), pvstore.ErrTelemetryUnavailable)

	context.Stop(pid)

	as.Shutdown()
}
