package domain

import "time"

type DecisionReason string

const (
	// enough projected excess to match at least the lowest charging step
	REASON_SOLAR_MATCH DecisionReason = "solar_match"
	// production below the night threshold, charge at full speed
	REASON_NIGHT_FALLBACK DecisionReason = "night_fallback"
	// daytime but not enough excess to sustain the lowest charging step
	REASON_SUSPEND DecisionReason = "suspend"
	// same target as the last commanded value, no command sent
	REASON_NO_CHANGE DecisionReason = "no_change"
)

// AmperageDecision is the outcome of one control tick, including the
// intermediate figures it was derived from.
type AmperageDecision struct {
	TargetAmps             int
	Reason                 DecisionReason
	AvgProductionWatts     float64
	AvgNetConsumptionWatts float64
	ExcessWatts            float64
	SlopeWattsPerMinute    float64
	ProjectedExcessWatts   float64
	DecidedAt              time.Time
}

// Charging returns false when the decision is to suspend the session.
func (d AmperageDecision) Charging() bool {
	return d.TargetAmps > 0
}

// ControllerState tracks the last limit actually commanded on the charger.
// It only advances when a command succeeds.
type ControllerState struct {
	LastCommandedAmps int
	LastCommandTime   time.Time
	Commanded         bool
}
