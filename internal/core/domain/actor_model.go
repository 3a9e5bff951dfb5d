package domain

import (
	"solaramp/pkg/chargepoint"
	"solaramp/pkg/pvstore"

	"time"
)

const (
	ACTOR_ID_MASTER         = "master"
	ACTOR_ID_TELEMETRY      = "telemetry"
	ACTOR_ID_CHARGER        = "charger"
	ACTOR_ID_MQTT           = "mqtt"
	ACTOR_ID_CHARGE_CONTROL = "charge_control"
	ACTOR_ID_HA_DISCOVERY   = "hadiscovery"
)

type GetTelemetryWindowsRequest struct {
	ActorRequestMixIn
	ControlInterval time.Duration
	TrendWindow     time.Duration
}

type GetTelemetryWindowsResponse struct {
	ActorResponseMixIn
	Windows *pvstore.TelemetryWindows
}

type GetChargerInfoRequest struct {
	ActorRequestMixIn
}

type GetChargerInfoResponse struct {
	ActorResponseMixIn
	Info *chargepoint.ChargerInfo
}

type GetChargerStatusRequest struct {
	ActorRequestMixIn
}

type GetChargerStatusResponse struct {
	ActorResponseMixIn
	Status *chargepoint.ChargerStatus
}

type SetAmperageRequest struct {
	ActorRequestMixIn
	Amps int
}

type SetAmperageResponse struct {
	ActorResponseMixIn
	Amps int
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors      []GenericSensor
	Switches     []GenericSwitch
	InputNumbers []GenericInputNumber
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
