// Package service runs the periodic telemetry publisher.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"dcim-server/internal/modules/sensors/source"
	"dcim-server/internal/modules/sensors/types"
)

var errSkipped = errors.New("publisher not connected")

// Publisher is the subset of the MQTT client the telemetry loop needs.
type Publisher interface {
	IsConnected() bool
	PublishJSON(topic string, v any) error
}

type Options struct {
	Topic    string
	Site     string
	Interval time.Duration
}

type TelemetryService interface {
	Run(ctx context.Context) error
}

type telemetryServiceImpl struct {
	source    source.Source
	publisher Publisher
	opts      Options
	logger    *slog.Logger

	now   func() time.Time
	newID func() string
}

func NewTelemetryService(src source.Source, pub Publisher, opts Options, logger *slog.Logger) TelemetryService {
	return &telemetryServiceImpl{
		source:    src,
		publisher: pub,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Run publishes one envelope per interval until ctx is done. Failed ticks
// are logged and never stop the loop.
func (s *telemetryServiceImpl) Run(ctx context.Context) error {
	if s.opts.Interval <= 0 {
		return fmt.Errorf("invalid publish interval %s", s.opts.Interval)
	}

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	s.logger.Info("telemetry publisher started",
		"topic", s.opts.Topic,
		"site", s.opts.Site,
		"interval", s.opts.Interval.String(),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("telemetry publisher stopped")
			return ctx.Err()
		case <-ticker.C:
			err := s.publishOnce(ctx)
			switch {
			case err == nil:
			case errors.Is(err, errSkipped):
				s.logger.Debug("telemetry tick skipped", "reason", err)
			case ctx.Err() != nil:
				// shutting down
			default:
				s.logger.Error("telemetry publish failed", "topic", s.opts.Topic, "error", err)
			}
		}
	}
}

func (s *telemetryServiceImpl) publishOnce(ctx context.Context) error {
	if !s.publisher.IsConnected() {
		return errSkipped
	}

	reading, err := s.source.Read(ctx)
	if err != nil {
		return fmt.Errorf("read sensors: %w", err)
	}

	env := NewEnvelope(s.newID(), s.opts.Site, s.now(), reading)
	return s.publisher.PublishJSON(s.opts.Topic, env)
}

func NewEnvelope(id, site string, at time.Time, reading types.SensorReading) types.TelemetryEnvelope {
	return types.TelemetryEnvelope{
		ID:        id,
		Site:      site,
		Timestamp: at.UTC(),
		Reading:   reading,
	}
}
