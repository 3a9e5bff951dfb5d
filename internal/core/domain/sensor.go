package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"solaramp/pkg/chargepoint"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE            = "bridge"
	SENSOR_ID_AVG_PRODUCTION_POWER    = "avg_production_power"
	SENSOR_ID_AVG_NET_POWER           = "avg_net_power"
	SENSOR_ID_EXCESS_POWER            = "excess_power"
	SENSOR_ID_PRODUCTION_TREND        = "production_trend"
	SENSOR_ID_PROJECTED_EXCESS_POWER  = "projected_excess_power"
	SENSOR_ID_TARGET_AMPS             = "target_amps"
	SENSOR_ID_DECISION_REASON         = "decision_reason"
	SENSOR_ID_CHARGER_PLUGGED_IN      = "charger_plugged_in"
	SENSOR_ID_CHARGER_CHARGING        = "charger_charging"
	SWITCH_ID_CHARGE_CONTROL          = "charge_control"
	INPUT_NUMBER_ID_NIGHT_THRESHOLD   = "night_threshold"
	STATE_CLASS_MEASUREMENT           = "measurement"
	STATE_CLASS_TOTAL_INCREASING      = "total_increasing"
	DEVICE_CLASS_CURRENT              = "current"
	DEVICE_CLASS_POWER                = "power"
	DEVICE_CLASS_CONNECTIVITY         = "connectivity"
	DEVICE_CLASS_PLUG                 = "plug"
	DEVICE_CLASS_BATTERY_CHARGING     = "battery_charging"
	ENTITY_CLASS_DIAGNOSTIC           = "diagnostic"
	ENTITY_CLASS_CONFIG               = "config"
	SENSOR_TYPE_SENSOR                = "sensor"
	SENSOR_TYPE_BINARY                = "binary_sensor"
	INPUT_NUMBER_MODE_BOX             = "box"
	INPUT_NUMBER_MODE_SLIDER          = "slider"
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:      fmt.Sprintf("solaramp_bridge_%s", md5HashShort(baseTopic)),
		Model:   "Solaramp",
		Version: versioninfo.Short(),
		Name:    fmt.Sprintf("Solaramp %s", md5HashShort(baseTopic)),
	}
}

func ChargerDevice(info *chargepoint.ChargerInfo) Device {
	return Device{
		Id:           fmt.Sprintf("samp_charger_%s", md5HashShort(info.ChargerID)),
		Version:      info.Version,
		Manufacturer: info.Manufacturer,
		Model:        info.Model,
		Name:         fmt.Sprintf("%s %s %s", info.Manufacturer, info.Model, md5HashShort(info.ChargerID)),
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func DecisionSensors(chargerDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Average PV production over the control window
	sensors = append(sensors, GenericSensor{
		Device:            chargerDevice,
		Id:                SENSOR_ID_AVG_PRODUCTION_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Average production power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		Icon:              "mdi:solar-power",
		UniqueId:          uniqueId(chargerDevice.Id, SENSOR_ID_AVG_PRODUCTION_POWER),
	})

	// Average grid power flow over the control window
	sensors = append(sensors, GenericSensor{
		Device:            chargerDevice,
		Id:                SENSOR_ID_AVG_NET_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Average net power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		Icon:              "mdi:transmission-tower",
		UniqueId:          uniqueId(chargerDevice.Id, SENSOR_ID_AVG_NET_POWER),
	})

	// Excess power
	sensors = append(sensors, GenericSensor{
		Device:            chargerDevice,
		Id:                SENSOR_ID_EXCESS_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Excess power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		UniqueId:          uniqueId(chargerDevice.Id, SENSOR_ID_EXCESS_POWER),
	})

	// Production trend slope
	sensors = append(sensors, GenericSensor{
		Device:            chargerDevice,
		Id:                SENSOR_ID_PRODUCTION_TREND,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Production trend",
		StateClass:        STATE_CLASS_MEASUREMENT,
		UnitOfMeasurement: "W/min",
		Icon:              "mdi:trending-up",
		EnabledByDefault:  optionalBool(false),
		UniqueId:          uniqueId(chargerDevice.Id, SENSOR_ID_PRODUCTION_TREND),
	})

	// Projected excess power
	sensors = append(sensors, GenericSensor{
		Device:            chargerDevice,
		Id:                SENSOR_ID_PROJECTED_EXCESS_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Projected excess power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		UniqueId:          uniqueId(chargerDevice.Id, SENSOR_ID_PROJECTED_EXCESS_POWER),
	})

	// Target charging current
	sensors = append(sensors, GenericSensor{
		Device:            chargerDevice,
		Id:                SENSOR_ID_TARGET_AMPS,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Target charging current",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_CURRENT,
		UnitOfMeasurement: "A",
		Icon:              "mdi:ev-station",
		UniqueId:          uniqueId(chargerDevice.Id, SENSOR_ID_TARGET_AMPS),
	})

	// Decision reason
	sensors = append(sensors, GenericSensor{
		Device:         chargerDevice,
		Id:             SENSOR_ID_DECISION_REASON,
		SensorType:     SENSOR_TYPE_SENSOR,
		Name:           "Decision reason",
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(chargerDevice.Id, SENSOR_ID_DECISION_REASON),
	})

	return sensors
}

func ChargerSensors(chargerDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Plugged in
	sensors = append(sensors, GenericSensor{
		Device:      chargerDevice,
		Id:          SENSOR_ID_CHARGER_PLUGGED_IN,
		SensorType:  SENSOR_TYPE_BINARY,
		Name:        "Plugged in",
		DeviceClass: DEVICE_CLASS_PLUG,
		UniqueId:    uniqueId(chargerDevice.Id, SENSOR_ID_CHARGER_PLUGGED_IN),
	})

	// Charging
	sensors = append(sensors, GenericSensor{
		Device:      chargerDevice,
		Id:          SENSOR_ID_CHARGER_CHARGING,
		SensorType:  SENSOR_TYPE_BINARY,
		Name:        "Charging",
		DeviceClass: DEVICE_CLASS_BATTERY_CHARGING,
		UniqueId:    uniqueId(chargerDevice.Id, SENSOR_ID_CHARGER_CHARGING),
	})

	return sensors
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Bridge connection state
	sensors = append(sensors, GenericSensor{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	})

	return sensors
}

func ChargeControlSwitches(chargerDevice Device) []GenericSwitch {

	var switches []GenericSwitch

	// Solar charge control
	switches = append(switches, GenericSwitch{
		Device:   chargerDevice,
		Id:       SWITCH_ID_CHARGE_CONTROL,
		Name:     "Solar charge control",
		UniqueId: uniqueId(chargerDevice.Id, SWITCH_ID_CHARGE_CONTROL),
		Icon:     "mdi:car-electric",
	})

	return switches
}

func ChargeControlInputNumbers(chargerDevice Device, nightThresholdWatts float64) []GenericInputNumber {

	var inputNumbers []GenericInputNumber

	// Night production threshold
	inputNumbers = append(inputNumbers, GenericInputNumber{
		Device:       chargerDevice,
		Id:           INPUT_NUMBER_ID_NIGHT_THRESHOLD,
		Name:         "Night production threshold",
		UniqueId:     uniqueId(chargerDevice.Id, INPUT_NUMBER_ID_NIGHT_THRESHOLD),
		Icon:         "mdi:weather-night",
		Max:          2000,
		Min:          0,
		Step:         50,
		Mode:         INPUT_NUMBER_MODE_BOX,
		InitialValue: nightThresholdWatts,
	})

	return inputNumbers
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}

func optionalBool(value bool) *bool {
	return &value
}
