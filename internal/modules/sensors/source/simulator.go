// Package source produces environmental sensor readings.
//
// Simulator stands in for the Modbus/serial readers: it randomizes
// temperature and humidity around fixed baselines and reports every alarm
// and door contact as idle.
package source

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"

	"dcim-server/internal/modules/sensors/types"
)

// Source yields one reading per call.
type Source interface {
	Read(ctx context.Context) (types.SensorReading, error)
}

const (
	coldAisleTempBase = 22.0
	coldAisleTempLow  = -1.0
	coldAisleTempHigh = 1.5

	coldAisleHumBase = 48.0
	coldAisleHumLow  = -2.0
	coldAisleHumHigh = 2.0

	hotAisleTempOffset = 10.0
	hotAisleHumOffset  = -15.0
)

// Simulator is a Source producing randomized readings. It is safe for
// concurrent use.
type Simulator struct {
	mu  sync.Mutex
	rng *rand.Rand // nil means the package-level generator
}

// NewSimulator returns a simulator backed by the goroutine-safe top-level
// math/rand/v2 generator.
func NewSimulator() *Simulator {
	return &Simulator{}
}

// NewSimulatorFromSource returns a simulator drawing from src. Draws are
// serialized, so src need not be safe for concurrent use.
func NewSimulatorFromSource(src rand.Source) *Simulator {
	return &Simulator{rng: rand.New(src)}
}

// Read returns a fresh reading, or ctx.Err() if ctx is already done.
func (s *Simulator) Read(ctx context.Context) (types.SensorReading, error) {
	if err := ctx.Err(); err != nil {
		return types.SensorReading{}, err
	}

	coldTemp := Round1(coldAisleTempBase + s.uniform(coldAisleTempLow, coldAisleTempHigh))
	coldHum := Round1(coldAisleHumBase + s.uniform(coldAisleHumLow, coldAisleHumHigh))

	return types.SensorReading{
		ColdAisleTemp: coldTemp,
		ColdAisleHum:  coldHum,
		// Hot aisle values derive from the already-rounded cold aisle values.
		HotAisleTemp:  Round1(coldTemp + hotAisleTempOffset),
		HotAisleHum:   Round1(coldHum + hotAisleHumOffset),
		FireStatus:    types.StatusNormal,
		LeakageStatus: types.StatusNormal,
		FrontDoorOpen: false,
		BackDoorOpen:  false,
	}, nil
}

// uniform returns a value in [lo, hi).
func (s *Simulator) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*s.draw()
}

func (s *Simulator) draw() float64 {
	if s.rng == nil {
		return rand.Float64()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// Round1 rounds v to one fractional digit, halves away from zero.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
