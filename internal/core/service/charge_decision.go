package service

import (
	"math"
	"time"

	"solaramp/internal/core/domain"
	"solaramp/internal/core/port"
	"solaramp/pkg/chargepoint"
	"solaramp/pkg/pvstore"

	"go.uber.org/zap"
)

// startAmperageTolerance lets a session run at the lowest step while excess
// power is up to half an amp short of covering it. Without it, charging near
// the threshold would flap between the lowest step and suspend.
const startAmperageTolerance = 0.5

type DefaultChargeDecisionLogic struct {
	NominalLineVoltage float64
	NightThreshold     float64
	Logger             *zap.Logger
}

// ExcessPower is the production surplus derived from the net grid flow.
// Positive net flow means importing, so only a negative net flow yields
// excess.
func ExcessPower(avgNetConsumptionWatts float64) float64 {
	return math.Max(0, -avgNetConsumptionWatts)
}

// ProjectedExcess extrapolates the excess over the next control interval
// using the production trend slope. A falling trend lowers the figure so the
// next amperage is picked for the power that will be there, not the power
// that was.
func ProjectedExcess(excessWatts, slopeWattsPerMinute float64, horizon time.Duration) float64 {
	return math.Max(0, excessWatts+slopeWattsPerMinute*horizon.Minutes())
}

// SelectAmperage maps watts to the smallest allowed charging step that is
// at least watts/voltage, clamped to the charger maximum. Returns 0 when the
// power cannot sustain even the lowest step.
func SelectAmperage(projectedExcessWatts, lineVoltage float64, caps chargepoint.Capabilities) int {
	idealAmps := projectedExcessWatts / lineVoltage
	if idealAmps < float64(caps.MinAmps)-startAmperageTolerance {
		return 0
	}
	for _, amps := range caps.AllowedAmps {
		if float64(amps) >= idealAmps {
			return amps
		}
	}
	return caps.MaxAmps
}

func (cfg *DefaultChargeDecisionLogic) Decide(windows *pvstore.TelemetryWindows, caps chargepoint.Capabilities) domain.AmperageDecision {

	summary := windows.Summary
	excess := ExcessPower(summary.AvgNetConsumptionWatts)
	projected := ProjectedExcess(excess, windows.Trend.SlopeWattsPerMinute, summary.Window())

	decision := domain.AmperageDecision{
		AvgProductionWatts:     summary.AvgProductionWatts,
		AvgNetConsumptionWatts: summary.AvgNetConsumptionWatts,
		ExcessWatts:            excess,
		SlopeWattsPerMinute:    windows.Trend.SlopeWattsPerMinute,
		ProjectedExcessWatts:   projected,
		DecidedAt:              time.Now(),
	}

	if summary.AvgProductionWatts < cfg.NightThreshold {
		// no meaningful solar production, charge at full speed
		decision.TargetAmps = caps.MaxAmps
		decision.Reason = domain.REASON_NIGHT_FALLBACK
		cfg.Logger.Debug("charge_control: night fallback",
			zap.Float64("avgProductionWatts", summary.AvgProductionWatts),
			zap.Float64("thresholdWatts", cfg.NightThreshold))
		return decision
	}

	decision.TargetAmps = SelectAmperage(projected, cfg.NominalLineVoltage, caps)
	if decision.TargetAmps == 0 {
		decision.Reason = domain.REASON_SUSPEND
	} else {
		decision.Reason = domain.REASON_SOLAR_MATCH
	}
	return decision
}

func (cfg *DefaultChargeDecisionLogic) NightThresholdWatts() float64 {
	return cfg.NightThreshold
}

func (cfg *DefaultChargeDecisionLogic) SetNightThresholdWatts(watts float64) {
	cfg.NightThreshold = watts
}

// ensure interface compliance
var _ port.ChargeDecisionLogic = (*DefaultChargeDecisionLogic)(nil)
