package actor

import (
	"errors"
	"testing"
	"time"

	adactor "solaramp/internal/adapter/actor"
	"solaramp/internal/config"
	"solaramp/internal/core/domain"
	"solaramp/internal/core/service"
	"solaramp/internal/util"
	"solaramp/internal/util/actorutil"
	"solaramp/pkg/chargepoint"
	"solaramp/pkg/pvstore"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestChargeControlFlow(t *testing.T) {

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	cfg := util.LoadTestConfig()

	reader := pvstore.CreateTestTelemetryReader()
	controller := chargepoint.CreateTestChargerController()

	ccActorPID := spawnChargeControl(context, &cfg, reader, controller, logger)

	time.Sleep(2 * time.Second)

	// first tick runs on start: 3000 W excess + 12.5 W/min over 5 min
	// at 240 V lands on the 14 A step
	assert.Equal(t, []int{14}, controller.SetCalls, "first tick should command 14 A")

	hcr, err := healthCheck(context, ccActorPID)
	if err != nil {
		t.Error(err)
		return
	}
	assert.True(t, hcr.Healthy, "actor should be healthy")
	assert.Equal(t, "controlling", hcr.State, "actor state should be controlling")

	// same telemetry on the next tick, same target, no new command
	context.Send(ccActorPID, chargeControlTick{})
	time.Sleep(1 * time.Second)

	assert.Equal(t, []int{14}, controller.SetCalls, "unchanged target should be debounced")

	res, err := context.RequestFuture(ccActorPID, domain.ChargeControlGetDecisionRequest{}, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	decResp := res.(domain.ChargeControlGetDecisionResponse)
	assert.NotNil(t, decResp.Decision)
	assert.Equal(t, 14, decResp.Decision.TargetAmps)
	assert.Equal(t, domain.REASON_NO_CHANGE, decResp.Decision.Reason)
	assert.True(t, decResp.State.Commanded)
	assert.Equal(t, 14, decResp.State.LastCommandedAmps)

	context.Stop(ccActorPID)

	as.Shutdown()
}

func TestChargeControlSkipsTickOnTelemetryFailure(t *testing.T) {

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	cfg := util.LoadTestConfig()

	reader := pvstore.CreateTestTelemetryReader()
	reader.Err = pvstore.ErrTelemetryUnavailable
	controller := chargepoint.CreateTestChargerController()

	ccActorPID := spawnChargeControl(context, &cfg, reader, controller, logger)

	time.Sleep(2 * time.Second)

	// the tick is skipped entirely, no stale data reaches the charger
	assert.Empty(t, controller.SetCalls, "telemetry failure should not command the charger")

	hcr, err := healthCheck(context, ccActorPID)
	if err != nil {
		t.Error(err)
		return
	}
	assert.True(t, hcr.Healthy, "actor should stay healthy across skipped ticks")
	assert.Equal(t, "controlling", hcr.State)

	// telemetry recovers, the next tick commands normally
	reader.Err = nil
	context.Send(ccActorPID, chargeControlTick{})
	time.Sleep(1 * time.Second)

	assert.Equal(t, []int{14}, controller.SetCalls)

	context.Stop(ccActorPID)

	as.Shutdown()
}

func TestChargeControlNightFallback(t *testing.T) {

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	cfg := util.LoadTestConfig()

	reader := pvstore.CreateTestTelemetryReader()
	now := time.Now()
	reader.Windows = &pvstore.TelemetryWindows{
		Summary: pvstore.WindowedSummary{
			AvgProductionWatts:     120,
			AvgNetConsumptionWatts: 350,
			WindowStart:            now.Add(-5 * time.Minute),
			WindowEnd:              now,
		},
		Trend: pvstore.TrendSummary{
			SlopeWattsPerMinute: 0,
			WindowMinutes:       30,
		},
	}
	controller := chargepoint.CreateTestChargerController()

	ccActorPID := spawnChargeControl(context, &cfg, reader, controller, logger)

	time.Sleep(2 * time.Second)

	// production under the night threshold ignores excess entirely and
	// charges at the charger maximum
	assert.Equal(t, []int{40}, controller.SetCalls, "night fallback should command max amps")

	res, err := context.RequestFuture(ccActorPID, domain.ChargeControlGetDecisionRequest{}, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	decResp := res.(domain.ChargeControlGetDecisionResponse)
	assert.Equal(t, domain.REASON_NIGHT_FALLBACK, decResp.Decision.Reason)

	context.Stop(ccActorPID)

	as.Shutdown()
}

func TestChargeControlRetriesAfterCommandFailure(t *testing.T) {

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	cfg := util.LoadTestConfig()

	reader := pvstore.CreateTestTelemetryReader()
	controller := chargepoint.CreateTestChargerController()
	controller.SetErr = chargepoint.ErrCommandFailed

	ccActorPID := spawnChargeControl(context, &cfg, reader, controller, logger)

	time.Sleep(2 * time.Second)

	assert.Empty(t, controller.SetCalls, "failed command should not be recorded")

	res, err := context.RequestFuture(ccActorPID, domain.ChargeControlGetDecisionRequest{}, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	decResp := res.(domain.ChargeControlGetDecisionResponse)
	assert.False(t, decResp.State.Commanded, "commanded state should be kept on failure")

	// the charger recovers, the same target goes out on the next tick
	controller.SetErr = nil
	context.Send(ccActorPID, chargeControlTick{})
	time.Sleep(1 * time.Second)

	assert.Equal(t, []int{14}, controller.SetCalls, "target should be retried after a failure")

	context.Stop(ccActorPID)

	as.Shutdown()
}

func TestChargeControlEnableDisable(t *testing.T) {

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	cfg := util.LoadTestConfig()

	reader := pvstore.CreateTestTelemetryReader()
	controller := chargepoint.CreateTestChargerController()

	ccActorPID := spawnChargeControl(context, &cfg, reader, controller, logger)

	time.Sleep(2 * time.Second)

	assert.Equal(t, []int{14}, controller.SetCalls)

	// disable
	context.Send(ccActorPID, domain.ChargeControlEnableRequest{Enable: false})
	time.Sleep(200 * time.Millisecond)

	hcr, err := healthCheck(context, ccActorPID)
	if err != nil {
		t.Error(err)
		return
	}
	assert.True(t, hcr.Healthy, "actor should be healthy")
	assert.Equal(t, "paused", hcr.State, "actor state should be paused")

	// ticks are dropped while paused
	context.Send(ccActorPID, chargeControlTick{})
	time.Sleep(500 * time.Millisecond)

	assert.Equal(t, []int{14}, controller.SetCalls, "paused loop should not command the charger")

	res, err := context.RequestFuture(ccActorPID, domain.ChargeControlGetEnabledStateRequest{}, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	assert.False(t, res.(domain.ChargeControlGetEnabledStateResponse).State)

	// enable again, the immediate tick decides the same target and is debounced
	context.Send(ccActorPID, domain.ChargeControlEnableRequest{Enable: true})
	time.Sleep(1 * time.Second)

	hcr, err = healthCheck(context, ccActorPID)
	if err != nil {
		t.Error(err)
		return
	}
	assert.Equal(t, "controlling", hcr.State, "actor state should be controlling")
	assert.Equal(t, []int{14}, controller.SetCalls)

	context.Stop(ccActorPID)

	as.Shutdown()
}

func TestChargeControlCommandsIdleChargerAtMaxLimit(t *testing.T) {

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	cfg := util.LoadTestConfig()

	reader := pvstore.CreateTestTelemetryReader()
	controller := chargepoint.CreateTestChargerController()
	// idle charger whose limit defaults to the maximum
	controller.Status.Charging = false
	controller.Status.AmperageLimit = 40

	ccActorPID := spawnChargeControl(context, &cfg, reader, controller, logger)

	time.Sleep(2 * time.Second)

	// an idle charger at its default max limit is not a user override,
	// the loop must still command the solar target
	assert.Equal(t, []int{14}, controller.SetCalls, "idle charger at max limit should still be commanded")

	context.Stop(ccActorPID)

	as.Shutdown()
}

func TestChargeControlManualOverrideSkipsTick(t *testing.T) {

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	cfg := util.LoadTestConfig()

	reader := pvstore.CreateTestTelemetryReader()
	controller := chargepoint.CreateTestChargerController()
	// user forced a full speed charge at the plug
	controller.Status.Charging = true
	controller.Status.AmperageLimit = 40

	ccActorPID := spawnChargeControl(context, &cfg, reader, controller, logger)

	time.Sleep(2 * time.Second)

	assert.Empty(t, controller.SetCalls, "a full speed charge forced by the user must not be adjusted")

	// and it stays hands off on later ticks too
	context.Send(ccActorPID, chargeControlTick{})
	time.Sleep(1 * time.Second)

	assert.Empty(t, controller.SetCalls)

	hcr, err := healthCheck(context, ccActorPID)
	if err != nil {
		t.Error(err)
		return
	}
	assert.True(t, hcr.Healthy)
	assert.Equal(t, "controlling", hcr.State)

	context.Stop(ccActorPID)

	as.Shutdown()
}

func TestChargeControlOwnMaxCommandIsNotOverride(t *testing.T) {

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	cfg := util.LoadTestConfig()

	reader := pvstore.CreateTestTelemetryReader()
	// night: production under the threshold, loop commands max amps itself
	now := time.Now()
	reader.Windows = &pvstore.TelemetryWindows{
		Summary: pvstore.WindowedSummary{
			AvgProductionWatts:     120,
			AvgNetConsumptionWatts: 350,
			WindowStart:            now.Add(-5 * time.Minute),
			WindowEnd:              now,
		},
		Trend: pvstore.TrendSummary{
			SlopeWattsPerMinute: 0,
			WindowMinutes:       30,
		},
	}
	controller := chargepoint.CreateTestChargerController()

	ccActorPID := spawnChargeControl(context, &cfg, reader, controller, logger)

	time.Sleep(2 * time.Second)

	assert.Equal(t, []int{40}, controller.SetCalls)

	// morning: the charger is charging at max amps, but this loop commanded
	// it, so the solar target applies again
	reader.Windows = nil
	context.Send(ccActorPID, chargeControlTick{})
	time.Sleep(1 * time.Second)

	assert.Equal(t, []int{40, 14}, controller.SetCalls, "a max limit this loop commanded is not an override")

	context.Stop(ccActorPID)

	as.Shutdown()
}

func TestChargeControlSetNightThreshold(t *testing.T) {

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	cfg := util.LoadTestConfig()

	reader := pvstore.CreateTestTelemetryReader()
	controller := chargepoint.CreateTestChargerController()

	logic := &service.DefaultChargeDecisionLogic{
		NominalLineVoltage: cfg.ControlConfig.NominalLineVoltage,
		NightThreshold:     cfg.ControlConfig.NightThresholdWatts,
		Logger:             logger,
	}

	ccActorPID := spawnChargeControlWithLogic(context, &cfg, reader, controller, logic, logger)

	time.Sleep(2 * time.Second)

	context.Send(ccActorPID, domain.ChargeControlSetNightThresholdRequest{ThresholdWatts: 800})
	time.Sleep(200 * time.Millisecond)

	assert.EqualValues(t, 800, logic.NightThresholdWatts())

	// production now sits under the raised threshold, so the next tick
	// falls back to max amps
	reader.Windows = &pvstore.TelemetryWindows{
		Summary: pvstore.WindowedSummary{
			AvgProductionWatts:     700,
			AvgNetConsumptionWatts: -600,
			WindowStart:            time.Now().Add(-5 * time.Minute),
			WindowEnd:              time.Now(),
		},
		Trend: pvstore.TrendSummary{
			SlopeWattsPerMinute: 0,
			WindowMinutes:       30,
		},
	}
	context.Send(ccActorPID, chargeControlTick{})
	time.Sleep(1 * time.Second)

	assert.Equal(t, []int{14, 40}, controller.SetCalls)

	context.Stop(ccActorPID)

	as.Shutdown()
}

func spawnChargeControl(context *actor.RootContext, cfg *config.Config, reader *pvstore.TestTelemetryReader,
	controller *chargepoint.TestChargerController, logger *zap.Logger) *actor.PID {
	logic := &service.DefaultChargeDecisionLogic{
		NominalLineVoltage: cfg.ControlConfig.NominalLineVoltage,
		NightThreshold:     cfg.ControlConfig.NightThresholdWatts,
		Logger:             logger,
	}
	return spawnChargeControlWithLogic(context, cfg, reader, controller, logic, logger)
}

func spawnChargeControlWithLogic(context *actor.RootContext, cfg *config.Config, reader *pvstore.TestTelemetryReader,
	controller *chargepoint.TestChargerController, logic *service.DefaultChargeDecisionLogic, logger *zap.Logger) *actor.PID {

	telemetryProps := actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewTelemetryActor(reader, 5*time.Second, logger)
	})
	telemetryActorPID := context.Spawn(telemetryProps)

	chargerProps := actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewChargerActor(controller, 5*time.Second, logger)
	})
	chargerActorPID := context.Spawn(chargerProps)

	ccProps := actor.PropsFromProducer(func() actor.Actor {
		return NewChargeControlActor(cfg, telemetryActorPID, chargerActorPID, &eventstream.EventStream{}, logic, logger)
	})
	return context.Spawn(ccProps)
}

func healthCheck(ctx *actor.RootContext, pid *actor.PID) (*domain.ActorHealthResponse, error) {
	resp, err := ctx.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	if err != nil {
		return nil, err
	}
	hcr, ok := resp.(domain.ActorHealthResponse)
	if !ok {
		return nil, errors.New("unexpected response type")
	}
	return &hcr, nil
}
