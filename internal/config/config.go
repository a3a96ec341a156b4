package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// CORSAllowedOrigin is the single browser origin allowed to call the API
	// with credentials.
	CORSAllowedOrigin string

	// SiteName labels every published telemetry envelope.
	SiteName string

	MQTTEnabled     bool
	MQTTBroker      string
	MQTTPort        int
	MQTTClientID    string
	MQTTTopic       string
	PublishInterval time.Duration
}

func LoadFromEnv() (Config, error) {
	appEnv := getenv("APP_ENV", "dev")
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(getenv("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	mqttEnabledStr := getenv("MQTT_ENABLED", "false")
	mqttEnabled, err := strconv.ParseBool(mqttEnabledStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MQTT_ENABLED %q: %w", mqttEnabledStr, err)
	}

	mqttPortStr := getenv("MQTT_PORT", "1883")
	mqttPort, err := strconv.Atoi(mqttPortStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %q: %w", mqttPortStr, err)
	}
	if mqttPort < 1 || mqttPort > 65535 {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %d (allowed: 1-65535)", mqttPort)
	}

	intervalStr := getenv("PUBLISH_INTERVAL", "1s")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid PUBLISH_INTERVAL %q: %w", intervalStr, err)
	}
	if interval <= 0 {
		return Config{}, fmt.Errorf("invalid PUBLISH_INTERVAL %q (must be > 0)", intervalStr)
	}

	return Config{
		AppEnv:            appEnv,
		LogLevel:          level,
		HTTPAddr:          getenv("HTTP_ADDR", ":8000"),
		CORSAllowedOrigin: getenv("CORS_ALLOWED_ORIGIN", "http://localhost:5173"),
		SiteName:          getenv("SITE_NAME", "dc-1"),
		MQTTEnabled:       mqttEnabled,
		MQTTBroker:        getenv("MQTT_BROKER", "localhost"),
		MQTTPort:          mqttPort,
		MQTTClientID:      getenv("MQTT_CLIENT_ID", "dcim-server"),
		MQTTTopic:         getenv("MQTT_TOPIC", "dcim/sensors"),
		PublishInterval:   interval,
	}, nil
}

// getenv returns the trimmed value of key, or def when it is unset or blank.
func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
