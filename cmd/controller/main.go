package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "solaramp/internal/adapter/actor"
	"solaramp/internal/config"
	"solaramp/internal/core/actor"
	"solaramp/internal/core/service"
	"solaramp/internal/server"
	"solaramp/internal/util/actorutil"
	"solaramp/pkg/chargepoint"
	"solaramp/pkg/pvstore"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	defer logger.Sync()

	// init Telemetry actor provider
	telemetryProv, err := telemetryActorProvider(cfg, logger)
	if err != nil {
		panic(err)
	}

	// init Charger actor provider
	chargerProv, err := chargerActorProvider(cfg, logger)
	if err != nil {
		panic(err)
	}

	logic := &service.DefaultChargeDecisionLogic{
		NominalLineVoltage: cfg.ControlConfig.NominalLineVoltage,
		NightThreshold:     cfg.ControlConfig.NightThresholdWatts,
		Logger:             logger,
	}

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, telemetryProv, chargerProv, mqttActorProvider(cfg, logger), logic, logger)
	})
	pid, err := ctx.SpawnNamed(props, "master")
	if err != nil {
		return
	}

	server := server.NewServer(*cfg, ctx, pid)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => SOLARAMP_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("SOLARAMP_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("solaramp")
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	// check bounds
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func telemetryActorProvider(cfg *config.Config, logger *zap.Logger) (actor.TelemetryActorProvider, error) {

	timeout := time.Duration(cfg.Influx.TimeoutMillis) * time.Millisecond

	reader, err := pvstore.CreateInfluxTelemetryReader(pvstore.InfluxReaderParams{
		URL:             cfg.Influx.URL,
		Token:           cfg.Influx.Token,
		Org:             cfg.Influx.Org,
		Bucket:          cfg.Influx.Bucket,
		Measurement:     cfg.Influx.Measurement,
		ProductionField: cfg.Influx.ProductionField,
		NetField:        cfg.Influx.NetField,
	}, timeout, logger)

	if err != nil {
		return nil, err
	}

	return func() *adactor.TelemetryActor {
		return adactor.NewTelemetryActor(reader, timeout, logger)
	}, nil
}

func chargerActorProvider(cfg *config.Config, logger *zap.Logger) (actor.ChargerActorProvider, error) {

	timeout := time.Duration(cfg.Charger.TimeoutMillis) * time.Millisecond

	controller, err := chargepoint.CreateHomeFlexClient(cfg.Charger.BaseURL, cfg.Charger.Username,
		cfg.Charger.Password, timeout, logger)

	if err != nil {
		return nil, err
	}

	return func() *adactor.ChargerActor {
		return adactor.NewChargerActor(controller, timeout, logger)
	}, nil
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, es, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "solaramp")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("influx.measurement", "power")
	viper.SetDefault("influx.production_field", "production_w")
	viper.SetDefault("influx.net_field", "net_w")
	viper.SetDefault("influx.timeout_millis", 10000)
	viper.SetDefault("charger.timeout_millis", 10000)
	viper.SetDefault("control.control_interval_minutes", 5)
	viper.SetDefault("control.trend_window_minutes", 30)
	viper.SetDefault("control.night_threshold_watts", 500)
	viper.SetDefault("control.nominal_line_voltage", 240)
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	cfg.Charger.Username = "*redacted*"
	cfg.Charger.Password = "*redacted*"
	cfg.Influx.Token = "*redacted*"
	slog.Info("Using", "config", cfg)
}
