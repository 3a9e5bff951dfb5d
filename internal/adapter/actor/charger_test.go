package actor

import (
	"testing"
	"time"

	"solaramp/internal/core/domain"
	"solaramp/internal/util/actorutil"
	"solaramp/pkg/chargepoint"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestGetChargerInfoChargerActor(t *testing.T) {

	assert := assert.New(t)

	controller := chargepoint.CreateTestChargerController()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewChargerActor(controller, 5*time.Second, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	msg := domain.GetChargerInfoRequest{}
	result, err := context.RequestFuture(pid, msg, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.GetChargerInfoResponse)

	assert.False(resp.HasResponseError())
	assert.Equal("ChargePoint", resp.Info.Manufacturer, "charger manufacturer")
	assert.Equal("Home Flex", resp.Info.Model, "charger model")
	assert.Equal(6, resp.Info.Capabilities.MinAmps, "min amps")
	assert.Equal(40, resp.Info.Capabilities.MaxAmps, "max amps")

	context.Stop(pid)

	as.Shutdown()
}

func TestSetAmperageChargerActor(t *testing.T) {

	assert := assert.New(t)

	controller := chargepoint.CreateTestChargerController()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewChargerActor(controller, 5*time.Second, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	result, err := context.RequestFuture(pid, domain.SetAmperageRequest{Amps: 14}, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.SetAmperageResponse)

	assert.False(resp.HasResponseError())
	assert.Equal(14, resp.Amps)
	assert.Equal([]int{14}, controller.SetCalls)
	assert.Equal(14, controller.Status.AmperageLimit)

	context.Stop(pid)

	as.Shutdown()
}

func TestChargerActorKeepsErrorInResponse(t *testing.T) {

	assert := assert.New(t)

	controller := chargepoint.CreateTestChargerController()
	controller.SetErr = chargepoint.ErrCommandFailed

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewChargerActor(controller, 5*time.Second, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	result, err := context.RequestFuture(pid, domain.SetAmperageRequest{Amps: 16}, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.SetAmperageResponse)

	assert.True(resp.HasResponseError())
	assert.ErrorIs(resp.GetResponseError(), chargepoint.ErrCommandFailed)
	assert.Empty(controller.SetCalls)

	context.Stop(pid)

	as.Shutdown()
}
