// Package units converts ride speeds between display units. Tracks store
// speed in km/h; the kinematics work in m/s.
package units

import "fmt"

// Unit is a speed display unit.
type Unit string

const (
	MPS  Unit = "mps"
	MPH  Unit = "mph"
	KMPH Unit = "kmph"
)

const (
	mpsPerKMPH = 1000.0 / 3600.0
	mphPerMPS  = 2.2369362920544
)

// ParseUnit accepts mps, mph, kmph or its alias kph. Empty means km/h.
func ParseUnit(s string) (Unit, error) {
	switch s {
	case "", "kmph", "kph":
		return KMPH, nil
	case "mps":
		return MPS, nil
	case "mph":
		return MPH, nil
	}
	return "", fmt.Errorf("unknown speed unit %q (want mps, mph or kmph)", s)
}

// MPSToKMPH converts meters per second to kilometers per hour.
func MPSToKMPH(speedMPS float64) float64 {
	return speedMPS / mpsPerKMPH
}

// KMPHToMPS converts kilometers per hour to meters per second.
func KMPHToMPS(speedKMPH float64) float64 {
	return speedKMPH * mpsPerKMPH
}

// FromKMPH converts a track speed to u. Unknown units return km/h unchanged.
func FromKMPH(speedKMPH float64, u Unit) float64 {
	switch u {
	case MPS:
		return KMPHToMPS(speedKMPH)
	case MPH:
		return KMPHToMPS(speedKMPH) * mphPerMPS
	default:
		return speedKMPH
	}
}
