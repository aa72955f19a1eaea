package bin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateAlertsThresholds(t *testing.T) {
	tests := []struct {
		name       string
		fill       float64
		battery    float64
		temp       float64
		smoke      bool
		wantTypes  []string
		wantSevers []string
	}{
		{"all nominal", 50, 80, 22, false, nil, nil},
		{"fill warning band", 85, 50, 20, false,
			[]string{AlertHighFill}, []string{SeverityWarning}},
		{"fill warning lower edge exclusive", 80, 50, 20, false, nil, nil},
		{"fill critical boundary exclusive", 90, 50, 20, false,
			[]string{AlertHighFill}, []string{SeverityWarning}},
		{"fill critical", 91, 50, 20, false,
			[]string{AlertHighFill}, []string{SeverityCritical}},
		{"battery warning band", 50, 15, 20, false,
			[]string{AlertLowBattery}, []string{SeverityWarning}},
		{"battery warning upper edge exclusive", 50, 20, 20, false, nil, nil},
		{"battery critical boundary is warning", 50, 10, 20, false,
			[]string{AlertLowBattery}, []string{SeverityWarning}},
		{"battery critical", 50, 9, 20, false,
			[]string{AlertLowBattery}, []string{SeverityCritical}},
		{"temperature boundary exclusive", 50, 50, 35, false, nil, nil},
		{"temperature warning", 50, 50, 36, false,
			[]string{AlertHighTemperature}, []string{SeverityWarning}},
		{"smoke alone", 50, 50, 20, true,
			[]string{AlertSmokeDetected}, []string{SeverityCritical}},
		{"everything at once in fixed order", 95, 5, 40, true,
			[]string{AlertHighFill, AlertLowBattery, AlertHighTemperature, AlertSmokeDetected},
			[]string{SeverityCritical, SeverityCritical, SeverityWarning, SeverityCritical}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Bin{
				CurrentFillLevel: tt.fill,
				BatteryLevel:     tt.battery,
				Temperature:      tt.temp,
				SensorData:       SensorData{Smoke: tt.smoke},
			}
			alerts := EvaluateAlerts(b)
			require.Len(t, alerts, len(tt.wantTypes))
			for i, a := range alerts {
				assert.Equal(t, tt.wantTypes[i], a.Type)
				assert.Equal(t, tt.wantSevers[i], a.Severity)
				assert.NotEmpty(t, a.Message)
			}
		})
	}
}

func TestEvaluateAlertsNoHistory(t *testing.T) {
	// The alert list is a pure function of the snapshot; a bin that already
	// carries alerts contributes nothing to the recomputation.
	b := Bin{
		CurrentFillLevel: 10,
		BatteryLevel:     90,
		Temperature:      20,
		Alerts:           []Alert{{Type: AlertHighFill, Severity: SeverityCritical}},
	}
	assert.Empty(t, EvaluateAlerts(b))
}
