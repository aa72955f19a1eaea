package bin

import "math/rand/v2"

// Tick tuning. Fill is monotonically non-decreasing and clamped at 100;
// battery drains by a fixed step and clamps at 0; temperature is redrawn
// around the baseline each tick rather than drifting.
const (
	tempJitter       = 2.5
	batteryDrain     = 0.05
	tiltNoiseMax     = 5.0
	smokeProbability = 0.01
	moistureBaseline = 40.0
	moistureJitter   = 10.0
)

// SimulateTick computes the mutation one simulation tick applies to b.
// fillRate scales the random fill increment; rnd is injected so tests can
// seed deterministic sequences.
func SimulateTick(b Bin, fillRate float64, rnd *rand.Rand) Update {
	fill := b.CurrentFillLevel + rnd.Float64()*fillRate
	if fill > 100 {
		fill = 100
	}
	temp := defaultTemperature + (rnd.Float64()*2-1)*tempJitter
	batt := b.BatteryLevel - batteryDrain
	if batt < 0 {
		batt = 0
	}
	sd := SensorData{
		UltrasonicDistance: b.Capacity * (100 - fill) / 100,
		Weight:             b.Capacity * fill / 100,
		TiltAngle:          rnd.Float64() * tiltNoiseMax,
		Smoke:              rnd.Float64() < smokeProbability,
		Moisture:           moistureBaseline + (rnd.Float64()*2-1)*moistureJitter,
	}
	return Update{
		FillLevel:    &fill,
		Temperature:  &temp,
		BatteryLevel: &batt,
		SensorData:   &sd,
	}
}
