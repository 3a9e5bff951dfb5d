package domain

import "fmt"

// ChargeControlRequest

type ChargeControlRequest interface {
	ActorRequest
	ChargeControlCommand() string
}

type ChargeControlRequestMixIn struct {
	ActorRequestMixIn
}

func (r ChargeControlRequestMixIn) ChargeControlCommand() string {
	return fmt.Sprintf("%T", r)
}

// ChargeControlResponse

type ChargeControlResponse interface {
	ActorResponse
	ChargeControlResponse() string
}

type ChargeControlResponseMixIn struct {
	ActorResponse
}

func (r ChargeControlResponseMixIn) ChargeControlResponse() string {
	return fmt.Sprintf("%T", r)
}

// ChargeControl commands

type ChargeControlEnableRequest struct {
	ChargeControlRequestMixIn
	Enable bool
}

type ChargeControlEnableResponse struct {
	ChargeControlResponseMixIn
	Changed bool
}

type ChargeControlSetNightThresholdRequest struct {
	ChargeControlRequestMixIn
	ThresholdWatts float64
}

type ChargeControlSetNightThresholdResponse struct {
	ChargeControlResponseMixIn
	ThresholdWatts float64
}

type ChargeControlGetEnabledStateRequest struct {
	ChargeControlRequestMixIn
}

type ChargeControlGetEnabledStateResponse struct {
	ChargeControlResponseMixIn
	State bool
}

type ChargeControlGetDecisionRequest struct {
	ChargeControlRequestMixIn
}

type ChargeControlGetDecisionResponse struct {
	ChargeControlResponseMixIn
	Decision *AmperageDecision
	State    ControllerState
}

// ensure interface compliance
var _ ChargeControlRequest = (*ChargeControlEnableRequest)(nil)
