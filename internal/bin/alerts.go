package bin

import "fmt"

// Threshold policy constants. Values are part of the wire-visible contract
// with the dashboards; do not tune without coordinating alert consumers.
const (
	fillCritical = 90.0
	fillWarning  = 80.0
	battCritical = 10.0
	battWarning  = 20.0
	tempWarning  = 35.0
)

const (
	AlertHighFill        = "high_fill"
	AlertLowBattery      = "low_battery"
	AlertHighTemperature = "high_temperature"
	AlertSmokeDetected   = "smoke_detected"

	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// EvaluateAlerts derives the full alert list for the bin's current snapshot.
// The result replaces any previous list; there is no alert history and no
// hysteresis, so an alert clears as soon as its condition does.
func EvaluateAlerts(b Bin) []Alert {
	alerts := []Alert{}
	switch {
	case b.CurrentFillLevel > fillCritical:
		alerts = append(alerts, Alert{
			Type:     AlertHighFill,
			Severity: SeverityCritical,
			Message:  fmt.Sprintf("Bin is %.0f%% full", b.CurrentFillLevel),
		})
	case b.CurrentFillLevel > fillWarning:
		alerts = append(alerts, Alert{
			Type:     AlertHighFill,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("Bin is %.0f%% full", b.CurrentFillLevel),
		})
	}
	switch {
	case b.BatteryLevel < battCritical:
		alerts = append(alerts, Alert{
			Type:     AlertLowBattery,
			Severity: SeverityCritical,
			Message:  fmt.Sprintf("Battery critically low (%.0f%%)", b.BatteryLevel),
		})
	case b.BatteryLevel < battWarning:
		alerts = append(alerts, Alert{
			Type:     AlertLowBattery,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("Battery low (%.0f%%)", b.BatteryLevel),
		})
	}
	if b.Temperature > tempWarning {
		alerts = append(alerts, Alert{
			Type:     AlertHighTemperature,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("High temperature (%.1f°C)", b.Temperature),
		})
	}
	if b.SensorData.Smoke {
		alerts = append(alerts, Alert{
			Type:     AlertSmokeDetected,
			Severity: SeverityCritical,
			Message:  "Smoke detected inside bin",
		})
	}
	return alerts
}
