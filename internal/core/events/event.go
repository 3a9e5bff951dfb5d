package events

import (
	. "solaramp/internal/core/domain"
	"solaramp/pkg/chargepoint"
)

func DecisionToUpdateEvents(decision *AmperageDecision) []any {
	var events []any

	// Average production power
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_AVG_PRODUCTION_POWER,
		},
		Value:    decision.AvgProductionWatts,
		Decimals: 2,
	})
	// Average net power
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_AVG_NET_POWER,
		},
		Value:    decision.AvgNetConsumptionWatts,
		Decimals: 2,
	})
	// Excess power
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_EXCESS_POWER,
		},
		Value:    decision.ExcessWatts,
		Decimals: 2,
	})
	// Production trend
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_PRODUCTION_TREND,
		},
		Value:    decision.SlopeWattsPerMinute,
		Decimals: 2,
	})
	// Projected excess power
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_PROJECTED_EXCESS_POWER,
		},
		Value:    decision.ProjectedExcessWatts,
		Decimals: 2,
	})
	// Target charging current
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_TARGET_AMPS,
		},
		Value:    float64(decision.TargetAmps),
		Decimals: 0,
	})
	// Decision reason
	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_DECISION_REASON,
		},
		Value: string(decision.Reason),
	})

	return events
}

func ChargerStatusToUpdateEvents(status *chargepoint.ChargerStatus) []any {
	var events []any

	// Plugged in
	events = append(events, BinarySensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_CHARGER_PLUGGED_IN,
		},
		Value: status.PluggedIn,
	})
	// Charging
	events = append(events, BinarySensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_CHARGER_CHARGING,
		},
		Value: status.Charging,
	})

	return events
}

func ChargeControlSwitchUpdateEvent(enabled bool) any {
	return SwitchSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SWITCH_ID_CHARGE_CONTROL,
		},
		Value: enabled,
	}
}

func NightThresholdUpdateEvents(watts float64) []any {
	var events []any
	events = append(events, InputNumberSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: INPUT_NUMBER_ID_NIGHT_THRESHOLD,
		},
		Value: watts,
	})
	return events
}
