package reader

import (
	"fmt"
	"math"
)

// Speed limits and presets.
var (
	SpeedSteps   = []float64{0.5, 0.75, 1.0, 1.25, 1.5, 1.75, 2.0}
	DefaultSpeed = 1.0
	MinSpeed     = 0.5
	MaxSpeed     = 2.0
)

// ValidateSpeed checks speed against the supported range.
func ValidateSpeed(speed float64) error {
	if math.IsNaN(speed) || speed < MinSpeed || speed > MaxSpeed {
		return fmt.Errorf("%w: %.2f out of range [%.2f, %.2f]", ErrInvalidSpeed, speed, MinSpeed, MaxSpeed)
	}
	return nil
}

// NextSpeed returns the next preset above speed, or speed at the top.
func NextSpeed(speed float64) float64 {
	for _, s := range SpeedSteps {
		if s > speed+0.001 {
			return s
		}
	}
	return speed
}

// PrevSpeed returns the preset below speed, or speed at the bottom.
func PrevSpeed(speed float64) float64 {
	for i := len(SpeedSteps) - 1; i >= 0; i-- {
		if SpeedSteps[i] < speed-0.001 {
			return SpeedSteps[i]
		}
	}
	return speed
}

// FormatSpeed renders a speed for display, e.g. "1.25x".
func FormatSpeed(speed float64) string {
	if speed == math.Trunc(speed) {
		return fmt.Sprintf("%.1fx", speed)
	}
	return fmt.Sprintf("%gx", speed)
}
