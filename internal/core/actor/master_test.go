package actor

import (
	"fmt"
	"testing"
	"time"

	adactor "solaramp/internal/adapter/actor"
	"solaramp/internal/core/domain"
	"solaramp/internal/core/service"
	"solaramp/internal/util"
	"solaramp/pkg/chargepoint"
	"solaramp/pkg/pvstore"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMasterActor(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	logic := &service.DefaultChargeDecisionLogic{
		NominalLineVoltage: cfg.ControlConfig.NominalLineVoltage,
		NightThreshold:     cfg.ControlConfig.NightThresholdWatts,
		Logger:             logger,
	}

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, func() *adactor.TelemetryActor {
			return adactor.NewTelemetryActor(pvstore.CreateTestTelemetryReader(), 5*time.Second, logger)
		}, func() *adactor.ChargerActor {
			return adactor.NewChargerActor(chargepoint.CreateTestChargerController(), 5*time.Second, logger)
		}, func(es *eventstream.EventStream) *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(&cfg, es, logger)
		}, logic, logger)
	})
	pid, err := context.SpawnNamed(props, "master")
	if err != nil {
		t.Error(err)
		return
	}

	time.Sleep(2 * time.Second)

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	healthResp, ok := res.(domain.ActorHealthResponse)
	assert.True(t, ok)
	fmt.Printf("Health response: %+v\n", healthResp)
	assert.NotNil(t, healthResp)

	assert.True(t, healthResp.Healthy, "healthy is true")

	res, err = context.RequestFuture(pid, domain.ChargeControlGetDecisionRequest{}, 10*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	decResp, ok := res.(domain.ChargeControlGetDecisionResponse)
	assert.True(t, ok)
	assert.NotNil(t, decResp.Decision)
	assert.Equal(t, 14, decResp.Decision.TargetAmps)

	context.Stop(pid)

	as.Shutdown()
}
