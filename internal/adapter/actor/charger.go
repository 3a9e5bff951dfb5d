package actor

import (
	"context"
	"fmt"
	"time"

	"solaramp/internal/core/domain"
	"solaramp/internal/util/actorutil"
	"solaramp/pkg/chargepoint"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/reugn/go-quartz/logger"
	"go.uber.org/zap"
)

type ChargerActor struct {
	behavior   actor.Behavior
	stash      *actorutil.Stash
	controller chargepoint.ChargerController
	timeout    time.Duration
	logger     *zap.Logger
}

func NewChargerActor(controller chargepoint.ChargerController, timeout time.Duration, logger *zap.Logger) *ChargerActor {
	act := &ChargerActor{
		controller: controller,
		timeout:    timeout,
		behavior:   actor.NewBehavior(),
		stash:      &actorutil.Stash{},
		logger:     actorutil.ActorLogger(domain.ACTOR_ID_CHARGER, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *ChargerActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *ChargerActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("charger@starting started")
		err := state.controller.Open()
		if err != nil {
			panic(err)
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.controller.Close()
	default:
		state.logger.Debug("charger@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *ChargerActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("charger@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_CHARGER,
			Healthy: true,
			State:   "idle",
		})
	case domain.GetChargerInfoRequest:
		state.logger.Debug("charger@default: GetChargerInfoRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.getInfo),
			mapTaskResult[domain.GetChargerInfoResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetChargerInfoResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(state.timeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingCharger)
	case domain.GetChargerStatusRequest:
		state.logger.Debug("charger@default: GetChargerStatusRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.getStatus),
			mapTaskResult[domain.GetChargerStatusResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetChargerStatusResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(state.timeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingCharger)
	case domain.SetAmperageRequest:
		state.logger.Debug("charger@default: SetAmperageRequest", zap.Int("amps", msg.Amps))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, func() (*domain.SetAmperageResponse, error) {
			return state.setAmperage(msg.Amps)
		}),
			mapTaskResult[domain.SetAmperageResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.SetAmperageResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
					Amps: msg.Amps,
				},
				replyTo: sender,
			}
		}).WithTimeout(state.timeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingCharger)
	case *actor.Stopping:
		state.controller.Close()
	default:
		state.logger.Debug("charger@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *ChargerActor) WaitingCharger(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("charger@waiting backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		ctx.Send(msg.replyTo, msg.message)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case *actor.Stopping:
		state.controller.Close()
	default:
		state.logger.Debug("charger@waiting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (a *ChargerActor) getInfo() (*domain.GetChargerInfoResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	info, err := a.controller.GetInfo(ctx)
	if err != nil {
		logger.Error(err)
		return nil, err
	}
	return &domain.GetChargerInfoResponse{
		Info: info,
	}, nil
}

func (a *ChargerActor) getStatus() (*domain.GetChargerStatusResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	status, err := a.controller.GetStatus(ctx)
	if err != nil {
		logger.Error(err)
		return nil, err
	}
	return &domain.GetChargerStatusResponse{
		Status: status,
	}, nil
}

func (a *ChargerActor) setAmperage(amps int) (*domain.SetAmperageResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	err := a.controller.SetAmperage(ctx, amps)
	if err != nil {
		logger.Error(err)
		return nil, err
	}
	return &domain.SetAmperageResponse{
		Amps: amps,
	}, nil
}
