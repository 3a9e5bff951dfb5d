package util

import (
	"solaramp/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Influx: config.InfluxConfig{
			URL:             "http://localhost:8086",
			Token:           "test-token",
			Org:             "home",
			Bucket:          "energy",
			Measurement:     "power",
			ProductionField: "pv_p",
			NetField:        "net_p",
			TimeoutMillis:   2000,
		},
		Charger: config.ChargerConfig{
			BaseURL:       "http://localhost:9090",
			Username:      "user@example.com",
			Password:      "secret",
			TimeoutMillis: 2000,
		},
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "solaramp",
		},
		ControlConfig: config.ControlConfig{
			ControlIntervalMinutes: 5,
			TrendWindowMinutes:     30,
			NightThresholdWatts:    500,
			NominalLineVoltage:     240,
		},
		Port: 8080,
	}
}
