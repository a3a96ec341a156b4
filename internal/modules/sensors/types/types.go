package types

import "time"

// AlarmStatus is the state reported by a binary alarm sensor (fire, leakage).
type AlarmStatus string

const (
	StatusNormal AlarmStatus = "Normal"
	StatusAlarm  AlarmStatus = "Alarm"
)

// SensorReading is one snapshot of the room's environmental sensors.
// Temperatures are in °C and humidities in %RH, rounded to one decimal.
type SensorReading struct {
	ColdAisleTemp float64     `json:"coldAisleTemp"`
	ColdAisleHum  float64     `json:"coldAisleHum"`
	HotAisleTemp  float64     `json:"hotAisleTemp"`
	HotAisleHum   float64     `json:"hotAisleHum"`
	FireStatus    AlarmStatus `json:"fireStatus"`
	LeakageStatus AlarmStatus `json:"leakageStatus"`
	FrontDoorOpen bool        `json:"frontDoorOpen"`
	BackDoorOpen  bool        `json:"backDoorOpen"`
}

// TelemetryEnvelope wraps a reading for publication on the message bus.
type TelemetryEnvelope struct {
	ID        string        `json:"id"`
	Site      string        `json:"site"`
	Timestamp time.Time     `json:"timestamp"`
	Reading   SensorReading `json:"reading"`
}
