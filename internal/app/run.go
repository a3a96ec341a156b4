package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"dcim-server/internal/config"
	httpapi "dcim-server/internal/httpapi"
	"dcim-server/internal/modules/sensors"
	"dcim-server/internal/modules/sensors/service"
	"dcim-server/internal/modules/sensors/source"
	"dcim-server/internal/mqtt"
)

const (
	mqttConnectTimeout = 5 * time.Second
	shutdownTimeout    = 10 * time.Second
)

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"corsAllowedOrigin", cfg.CORSAllowedOrigin,
		"siteName", cfg.SiteName,
		"mqttEnabled", cfg.MQTTEnabled,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
		"publishInterval", cfg.PublishInterval.String(),
	)

	src := source.NewSimulator()

	var (
		publisher *mqtt.Publisher
		checker   httpapi.ConnectionChecker
	)
	if cfg.MQTTEnabled {
		publisher = mqtt.NewPublisher(cfg, slog.Default())
		checker = publisher

		connectCtx, connectCancel := context.WithTimeout(ctx, mqttConnectTimeout)
		err := publisher.Connect(connectCtx)
		connectCancel()
		if err != nil {
			// Keep serving HTTP; paho retries in the background.
			slog.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
	}

	mux := httpapi.NewMux(checker)
	sensors.RegisterFeature(mux, src)

	srv := httpapi.NewServer(cfg, mux)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	pubCtx, stopPublisher := context.WithCancel(ctx)
	defer stopPublisher()
	var wg sync.WaitGroup
	if publisher != nil {
		telemetry := service.NewTelemetryService(src, publisher, service.Options{
			Topic:    cfg.MQTTTopic,
			Site:     cfg.SiteName,
			Interval: cfg.PublishInterval,
		}, slog.Default())

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := telemetry.Run(pubCtx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("telemetry publisher exited", "error", err)
			}
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	stopPublisher()
	wg.Wait()
	if publisher != nil {
		slog.Info("mqtt disconnecting")
		publisher.Disconnect()
	}

	if serveErr != nil {
		if errors.Is(serveErr, http.ErrServerClosed) {
			return nil
		}
		return serveErr
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err := <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
