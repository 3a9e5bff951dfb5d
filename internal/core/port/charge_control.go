package port

import (
	"solaramp/internal/core/domain"
	"solaramp/pkg/chargepoint"
	"solaramp/pkg/pvstore"
)

type ChargeDecisionLogic interface {
	Decide(windows *pvstore.TelemetryWindows, caps chargepoint.Capabilities) domain.AmperageDecision
	SetNightThresholdWatts(watts float64)
	NightThresholdWatts() float64
}
