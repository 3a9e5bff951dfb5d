package actor

import (
	"errors"
	"fmt"
	"time"

	"solaramp/internal/config"
	"solaramp/internal/core/domain"
	"solaramp/internal/core/events"
	"solaramp/internal/core/port"
	. "solaramp/internal/util/actorutil"
	"solaramp/pkg/chargepoint"
	"solaramp/pkg/pvstore"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

type ChargeControlActor struct {
	ActorWithStates
	scheduler      *scheduler.TimerScheduler
	stash          *Stash
	telemetryActor *actor.PID
	chargerActor   *actor.PID
	config         *config.Config
	eventStream    *eventstream.EventStream
	logic          port.ChargeDecisionLogic

	caps            chargepoint.Capabilities
	controllerState domain.ControllerState
	lastDecision    *domain.AmperageDecision
	lastWindows     *pvstore.TelemetryWindows

	logger *zap.Logger
}

type chargeControlTick struct {
}

func NewChargeControlActor(config *config.Config, telemetryActor, chargerActor *actor.PID,
	eventStream *eventstream.EventStream, logic port.ChargeDecisionLogic, logger *zap.Logger) *ChargeControlActor {
	act := &ChargeControlActor{
		config:         config,
		telemetryActor: telemetryActor,
		chargerActor:   chargerActor,
		stash:          &Stash{},
		logger:         ActorLogger(domain.ACTOR_ID_CHARGE_CONTROL, logger),
		eventStream:    eventStream,
		logic:          logic,
		ActorWithStates: ActorWithStates{
			Behavior: actor.NewBehavior(),
		},
	}
	act.Become(CCStartingState{
		actor: act,
	})
	return act
}

func (state *ChargeControlActor) Receive(context actor.Context) {
	state.Behavior.Receive(context)
}

// Starting state

type CCStartingState struct {
	ActorState
	actor *ChargeControlActor
}

func (state CCStartingState) Name() string {
	return "starting"
}

func (state CCStartingState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.actor.logger.Debug("charge_control@starting started")

		state.actor.scheduler = scheduler.NewTimerScheduler(ctx)

		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.actor.chargerActor, domain.GetChargerInfoRequest{}, 10*time.Second), func(err error) any {
			return domain.GetChargerInfoResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
		state.actor.Become(CCWaitingInfoState{
			actor: state.actor,
		})
	case *actor.Restarting:
	default:
		state.actor.logger.Debug("charge_control@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

// Waiting info state

type CCWaitingInfoState struct {
	ActorState
	actor *ChargeControlActor
}

func (state CCWaitingInfoState) Name() string {
	return "waitingInfo"
}

func (state CCWaitingInfoState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetChargerInfoResponse:
		if msg.HasResponseError() {
			state.actor.logger.Error("charge_control@waitingInfo GetChargerInfoResponse error", zap.Error(msg.GetResponseError()))
			panic(msg.GetResponseError())
		}
		state.actor.logger.Debug("charge_control@waitingInfo GetChargerInfoResponse",
			zap.String("model", msg.Info.Model), zap.Ints("allowedAmps", msg.Info.Capabilities.AllowedAmps))
		state.actor.caps = msg.Info.Capabilities
		state.actor.Become(CCControllingState{
			actor: state.actor,
		}.OnEnterAction(ctx))
		state.actor.stash.UnstashAll(ctx)
	default:
		state.actor.logger.Debug("charge_control@waitingInfo: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

// Paused state. Ticks are disabled, commands still work.

type CCPausedState struct {
	ActorState
	actor *ChargeControlActor
}

func (state CCPausedState) Name() string {
	return "paused"
}

func (state CCPausedState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.actor.logger.Debug("charge_control@paused: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_CHARGE_CONTROL,
			Healthy: true,
			State:   state.Name(),
		})
	case chargeControlTick:
		// a late tick from before the pause, drop it
	case domain.ChargeControlRequest:
		switch cmd := msg.(type) {
		case domain.ChargeControlEnableRequest:
			state.actor.logger.Sugar().Debugf("charge_control@paused: cmd enable %t", cmd.Enable)
			if cmd.Enable {
				state.actor.Become(CCControllingState{
					actor: state.actor,
				}.OnEnterAction(ctx))
			}
		case domain.ChargeControlSetNightThresholdRequest:
			state.actor.logger.Sugar().Debugf("charge_control@paused: cmd setNightThreshold %f", cmd.ThresholdWatts)
			state.actor.setNightThreshold(cmd.ThresholdWatts)
		case domain.ChargeControlGetEnabledStateRequest:
			ctx.Respond(domain.ChargeControlGetEnabledStateResponse{
				State: false,
			})
		case domain.ChargeControlGetDecisionRequest:
			ctx.Respond(domain.ChargeControlGetDecisionResponse{
				Decision: state.actor.lastDecision,
				State:    state.actor.controllerState,
			})
		}
	default:
		state.actor.logger.Debug("charge_control@paused: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state CCPausedState) OnEnter(ctx actor.Context) CCPausedState {
	state.actor.updateControlSwitchState(false)
	return state
}

// Controlling state. Runs the decision loop on a fixed interval.

type CCControllingState struct {
	ActorState
	actor      *ChargeControlActor
	cancelTick scheduler.CancelFunc
}

func (state CCControllingState) Name() string {
	return "controlling"
}

func (state CCControllingState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.actor.logger.Debug("charge_control@controlling: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_CHARGE_CONTROL,
			Healthy: true,
			State:   state.Name(),
		})
	case chargeControlTick:
		// on tick, read the telemetry windows to decide the next amperage
		state.actor.logger.Debug("charge_control@controlling chargeControlTick")
		state.actor.BecomeStacked(CCAwaitTelemetryResponseState{
			actor: state.actor,
		}.OnEnterAction(ctx))
	case domain.GetTelemetryWindowsResponse:
		if msg.HasResponseError() {
			// telemetry failures skip the whole tick. no stale data, no command.
			state.actor.logger.Warn("charge_control@controlling: telemetry unavailable, skipping tick",
				zap.Error(msg.GetResponseError()))
			state.scheduleNextTick(ctx)
			return
		}
		state.actor.lastWindows = msg.Windows
		state.actor.BecomeStacked(CCAwaitStatusResponseState{
			actor: state.actor,
		}.OnEnterAction(ctx))
	case domain.GetChargerStatusResponse:
		if msg.HasResponseError() {
			state.actor.logger.Warn("charge_control@controlling: charger status unavailable, skipping tick",
				zap.Error(msg.GetResponseError()))
			state.scheduleNextTick(ctx)
			return
		}
		state.actor.publishChargerStatus(msg.Status)

		if state.actor.manualOverrideActive(msg.Status) {
			state.actor.logger.Info("charge_control@controlling: manual max amperage override detected, skipping tick",
				zap.Int("amperageLimit", msg.Status.AmperageLimit))
			state.scheduleNextTick(ctx)
			return
		}

		decision := state.actor.logic.Decide(state.actor.lastWindows, state.actor.caps)

		if state.actor.controllerState.Commanded && decision.TargetAmps == state.actor.controllerState.LastCommandedAmps {
			// debounce: same target as last commanded, nothing to send
			decision.Reason = domain.REASON_NO_CHANGE
			state.actor.lastDecision = &decision
			state.actor.publishDecision(&decision)
			state.actor.logger.Debug("charge_control@controlling: target unchanged",
				zap.Int("targetAmps", decision.TargetAmps))
			state.scheduleNextTick(ctx)
			return
		}

		state.actor.lastDecision = &decision
		state.actor.publishDecision(&decision)

		state.actor.logger.Info("charge_control@controlling: new amperage target",
			zap.Int("targetAmps", decision.TargetAmps),
			zap.String("reason", string(decision.Reason)))
		state.actor.BecomeStacked(CCAwaitCommandResponseState{
			actor: state.actor,
		}.OnEnterAction(ctx, decision.TargetAmps))
	case domain.SetAmperageResponse:
		if msg.HasResponseError() {
			// charger rejected the command. keep the previous commanded state
			// so the same target is retried on the next tick.
			state.actor.logger.Error("charge_control@controlling: charger command failed",
				zap.Int("amps", msg.Amps), zap.Error(msg.GetResponseError()))
		} else {
			state.actor.controllerState = domain.ControllerState{
				LastCommandedAmps: msg.Amps,
				LastCommandTime:   time.Now(),
				Commanded:         true,
			}
		}
		state.scheduleNextTick(ctx)
	case domain.ChargeControlRequest:
		switch cmd := msg.(type) {
		case domain.ChargeControlEnableRequest:
			state.actor.logger.Sugar().Debugf("charge_control@controlling: cmd enable %t", cmd.Enable)
			if !cmd.Enable {
				state.Exit(ctx)
			}
		case domain.ChargeControlSetNightThresholdRequest:
			state.actor.logger.Sugar().Debugf("charge_control@controlling: cmd setNightThreshold %f", cmd.ThresholdWatts)
			state.actor.setNightThreshold(cmd.ThresholdWatts)
		case domain.ChargeControlGetEnabledStateRequest:
			ctx.Respond(domain.ChargeControlGetEnabledStateResponse{
				State: true,
			})
		case domain.ChargeControlGetDecisionRequest:
			ctx.Respond(domain.ChargeControlGetDecisionResponse{
				Decision: state.actor.lastDecision,
				State:    state.actor.controllerState,
			})
		}
	default:
		state.actor.logger.Debug("charge_control@controlling: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state CCControllingState) OnEnter(ctx actor.Context) CCControllingState {
	state.actor.updateControlSwitchState(true)
	state.actor.updateNightThreshold(state.actor.logic.NightThresholdWatts())
	return state
}

func (state CCControllingState) OnEnterAction(ctx actor.Context) CCControllingState {
	state.OnEnter(ctx)
	// first tick runs right away, the interval applies afterwards
	ctx.Send(ctx.Self(), chargeControlTick{})
	return state
}

// scheduleNextTick arms the next tick only after the current one finished,
// so ticks never overlap no matter how slow telemetry or the charger are.
func (state CCControllingState) scheduleNextTick(ctx actor.Context) {
	state.cancelTick = state.actor.scheduler.RequestOnce(state.actor.config.ControlConfig.ControlInterval(), ctx.Self(), chargeControlTick{})
	state.actor.Become(state)
}

func (state CCControllingState) Exit(ctx actor.Context) {
	if state.cancelTick != nil {
		state.cancelTick()
	}
	state.actor.Become(CCPausedState{
		actor: state.actor,
	}.OnEnter(ctx))
}

// Await telemetry response state

type CCAwaitTelemetryResponseState struct {
	ActorState
	actor *ChargeControlActor
}

func (state CCAwaitTelemetryResponseState) Name() string {
	return "awaitTelemetryReceive"
}

func (state CCAwaitTelemetryResponseState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetTelemetryWindowsResponse:
		ctx.SetReceiveTimeout(0)
		if msg.HasResponseError() {
			state.actor.logger.Warn("charge_control@awaitTelemetryReceive: GetTelemetryWindowsResponse error", zap.Error(msg.GetResponseError()))
		} else {
			state.actor.logger.Debug("charge_control@awaitTelemetryReceive: GetTelemetryWindowsResponse")
		}
		ctx.RequestWithCustomSender(ctx.Self(), msg, ctx.Sender())
		state.actor.UnbecomeStacked()
		state.actor.stash.UnstashAll(ctx)
	case *actor.ReceiveTimeout:
		ctx.SetReceiveTimeout(0)
		state.actor.logger.Debug("charge_control@awaitTelemetryReceive: ReceiveTimeout")
		ctx.RequestWithCustomSender(ctx.Self(), domain.GetTelemetryWindowsResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: errors.New("receive timeout"),
			},
		}, ctx.Sender())
		state.actor.UnbecomeStacked()
		state.actor.stash.UnstashAll(ctx)
	default:
		state.actor.logger.Debug("charge_control@awaitTelemetryReceive: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

func (state CCAwaitTelemetryResponseState) OnEnterAction(ctx actor.Context) CCAwaitTelemetryResponseState {
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.actor.telemetryActor,
		domain.GetTelemetryWindowsRequest{
			ControlInterval: state.actor.config.ControlConfig.ControlInterval(),
			TrendWindow:     state.actor.config.ControlConfig.TrendWindow(),
		}, 10*time.Second),
		func(err error) any {
			return domain.GetTelemetryWindowsResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
	ctx.SetReceiveTimeout(10 * time.Second)
	return state
}

// Await charger status response state

type CCAwaitStatusResponseState struct {
	ActorState
	actor *ChargeControlActor
}

func (state CCAwaitStatusResponseState) Name() string {
	return "awaitStatusReceive"
}

func (state CCAwaitStatusResponseState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetChargerStatusResponse:
		ctx.SetReceiveTimeout(0)
		if msg.HasResponseError() {
			state.actor.logger.Warn("charge_control@awaitStatusReceive: GetChargerStatusResponse error", zap.Error(msg.GetResponseError()))
		} else {
			state.actor.logger.Debug("charge_control@awaitStatusReceive: GetChargerStatusResponse")
		}
		ctx.RequestWithCustomSender(ctx.Self(), msg, ctx.Sender())
		state.actor.UnbecomeStacked()
		state.actor.stash.UnstashAll(ctx)
	case *actor.ReceiveTimeout:
		ctx.SetReceiveTimeout(0)
		state.actor.logger.Debug("charge_control@awaitStatusReceive: ReceiveTimeout")
		ctx.RequestWithCustomSender(ctx.Self(), domain.GetChargerStatusResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: errors.New("receive timeout"),
			},
		}, ctx.Sender())
		state.actor.UnbecomeStacked()
		state.actor.stash.UnstashAll(ctx)
	default:
		state.actor.logger.Debug("charge_control@awaitStatusReceive: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

func (state CCAwaitStatusResponseState) OnEnterAction(ctx actor.Context) CCAwaitStatusResponseState {
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.actor.chargerActor,
		domain.GetChargerStatusRequest{}, 10*time.Second),
		func(err error) any {
			return domain.GetChargerStatusResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
	ctx.SetReceiveTimeout(10 * time.Second)
	return state
}

// Await amperage command response state

type CCAwaitCommandResponseState struct {
	ActorState
	actor *ChargeControlActor
}

func (state CCAwaitCommandResponseState) Name() string {
	return "awaitCommandReceive"
}

func (state CCAwaitCommandResponseState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.SetAmperageResponse:
		ctx.SetReceiveTimeout(0)
		if msg.HasResponseError() {
			state.actor.logger.Error("charge_control@awaitCommandReceive: SetAmperageResponse error", zap.Error(msg.GetResponseError()))
		} else {
			state.actor.logger.Debug("charge_control@awaitCommandReceive: SetAmperageResponse", zap.Int("amps", msg.Amps))
		}
		ctx.RequestWithCustomSender(ctx.Self(), msg, ctx.Sender())
		state.actor.UnbecomeStacked()
		state.actor.stash.UnstashAll(ctx)
	case *actor.ReceiveTimeout:
		ctx.SetReceiveTimeout(0)
		state.actor.logger.Debug("charge_control@awaitCommandReceive: ReceiveTimeout")
		ctx.RequestWithCustomSender(ctx.Self(), domain.SetAmperageResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: errors.New("receive timeout"),
			},
		}, ctx.Sender())
		state.actor.UnbecomeStacked()
		state.actor.stash.UnstashAll(ctx)
	default:
		state.actor.logger.Debug("charge_control@awaitCommandReceive: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

func (state CCAwaitCommandResponseState) OnEnterAction(ctx actor.Context, amps int) CCAwaitCommandResponseState {
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.actor.chargerActor,
		domain.SetAmperageRequest{Amps: amps}, 30*time.Second),
		func(err error) any {
			return domain.SetAmperageResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
				Amps: amps,
			}
		})
	ctx.SetReceiveTimeout(30 * time.Second)
	return state
}

// Other actor function helpers

// manualOverrideActive detects a limit set at the charger itself. When a
// session is charging at max amps that this controller never commanded,
// someone wants a full speed charge and the loop must not fight them. An idle
// charger sitting at its default max limit is not an override.
func (state *ChargeControlActor) manualOverrideActive(status *chargepoint.ChargerStatus) bool {
	if !status.Charging || status.AmperageLimit != state.caps.MaxAmps {
		return false
	}
	return !state.controllerState.Commanded || state.controllerState.LastCommandedAmps != state.caps.MaxAmps
}

func (state *ChargeControlActor) setNightThreshold(watts float64) {
	state.logic.SetNightThresholdWatts(watts)
	state.updateNightThreshold(watts)
}

func (state *ChargeControlActor) updateControlSwitchState(enabled bool) {
	event := events.ChargeControlSwitchUpdateEvent(enabled)
	state.eventStream.Publish(event)
}

func (state *ChargeControlActor) updateNightThreshold(watts float64) {
	evs := events.NightThresholdUpdateEvents(watts)
	for _, ev := range evs {
		state.eventStream.Publish(ev)
	}
}

func (state *ChargeControlActor) publishDecision(decision *domain.AmperageDecision) {
	for _, ev := range events.DecisionToUpdateEvents(decision) {
		state.eventStream.Publish(ev)
	}
}

func (state *ChargeControlActor) publishChargerStatus(status *chargepoint.ChargerStatus) {
	for _, ev := range events.ChargerStatusToUpdateEvents(status) {
		state.eventStream.Publish(ev)
	}
}
