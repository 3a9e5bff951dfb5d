package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel zapcore.Level
	Influx   InfluxConfig  `mapstructure:"influx"`
	Charger  ChargerConfig `mapstructure:"charger"`
	MQTT     MQTTConfig    `mapstructure:"mqtt"`

	ControlConfig ControlConfig `mapstructure:"control"`
	Port          uint          `mapstructure:"port"`
	HttpLog       bool          `mapstructure:"http_log"`
}

type InfluxConfig struct {
	URL             string
	Token           string
	Org             string
	Bucket          string
	Measurement     string
	ProductionField string `mapstructure:"production_field"`
	NetField        string `mapstructure:"net_field"`
	TimeoutMillis   uint32 `mapstructure:"timeout_millis"`
}

type ChargerConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	Username      string
	Password      string
	TimeoutMillis uint32 `mapstructure:"timeout_millis"`
}

type ControlConfig struct {
	ControlIntervalMinutes uint32  `mapstructure:"control_interval_minutes"`
	TrendWindowMinutes     uint32  `mapstructure:"trend_window_minutes"`
	NightThresholdWatts    float64 `mapstructure:"night_threshold_watts"`
	NominalLineVoltage     float64 `mapstructure:"nominal_line_voltage"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

func (c ControlConfig) ControlInterval() time.Duration {
	return time.Duration(c.ControlIntervalMinutes) * time.Minute
}

func (c ControlConfig) TrendWindow() time.Duration {
	return time.Duration(c.TrendWindowMinutes) * time.Minute
}

// Validate rejects configurations the control loop cannot run on. A bad
// config is a startup failure, never a silent fallback.
func (c Config) Validate() error {
	if c.Influx.URL == "" {
		return errors.New("influx.url is required")
	}
	if c.Influx.Bucket == "" {
		return errors.New("influx.bucket is required")
	}
	if c.Charger.BaseURL == "" {
		return errors.New("charger.base_url is required")
	}
	if c.ControlConfig.ControlIntervalMinutes < 1 {
		return fmt.Errorf("control.control_interval_minutes must be at least 1, got %d", c.ControlConfig.ControlIntervalMinutes)
	}
	if c.ControlConfig.TrendWindowMinutes < c.ControlConfig.ControlIntervalMinutes {
		return fmt.Errorf("control.trend_window_minutes (%d) cannot be shorter than control.control_interval_minutes (%d)",
			c.ControlConfig.TrendWindowMinutes, c.ControlConfig.ControlIntervalMinutes)
	}
	if c.ControlConfig.NominalLineVoltage <= 0 {
		return fmt.Errorf("control.nominal_line_voltage must be positive, got %f", c.ControlConfig.NominalLineVoltage)
	}
	if c.ControlConfig.NightThresholdWatts < 0 {
		return fmt.Errorf("control.night_threshold_watts cannot be negative, got %f", c.ControlConfig.NightThresholdWatts)
	}
	if _, err := CheckMQTTTopic(c.MQTT.BaseTopic); err != nil {
		return err
	}
	return nil
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
