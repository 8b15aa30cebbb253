package model

import "time"

// TemperatureReading is one successful target temperature sample.
type TemperatureReading struct {
	Celsius   float64   `json:"celsius"`
	Timestamp time.Time `json:"timestamp"`
}

// IsZero reports whether no sample has been taken yet.
func (r TemperatureReading) IsZero() bool {
	return r.Timestamp.IsZero()
}
