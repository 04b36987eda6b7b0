package model

import "time"

// AppSetting represents a key-value pair for global application
// configuration, such as the semester weight vector.
type AppSetting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SettingKeySemesterWeights is the app_settings key holding the serialized
// WeightConfig.
const SettingKeySemesterWeights = "semester_weights"

// WeightConfig is the versioned semester weight vector. It is loaded once
// per recalculation invocation — never re-read mid-run — so a config change
// only takes effect through an explicit recalculation trigger.
type WeightConfig struct {
	Version int `json:"version"`
	// Weights maps semester number to its weight. Weights need not sum to
	// one; the aggregator normalizes by the weights of semesters that
	// actually have grades.
	Weights map[int]float64 `json:"weights"`
}

// SemesterWeight returns the configured weight for a semester, defaulting to
// 1 so an unconfigured semester is never silently dropped from the average.
func (w *WeightConfig) SemesterWeight(semester int) float64 {
	if weight, ok := w.Weights[semester]; ok {
		return weight
	}
	return 1
}

// UpdateWeightsRequest is the payload for replacing the weight vector.
// Saving bumps the version; it does not recalculate by itself.
type UpdateWeightsRequest struct {
	Weights map[int]float64 `json:"weights" binding:"required,min=1"`
}
