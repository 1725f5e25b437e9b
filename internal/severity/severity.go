// Package severity maps a wet-litter percentage to a [models.Severity] band and decides
// whether a corrective intervention should be suggested.
//
// The intervention threshold (15%) is independent of the bands: a Safe reading of 20% still
// recommends an intervention.
package severity

import (
	"fmt"

	"github.com/desertthunder/birdseye/internal/models"
)

const (
	SafeMax               = 25.0 // p <= SafeMax is Safe
	ModerateMax           = 35.0 // SafeMax < p <= ModerateMax is Moderate
	InterventionThreshold = 15.0 // p > InterventionThreshold recommends an intervention
)

// Recommendation texts.
const (
	InterventionTitle  = "Increase ventilation in Zone 1"
	InterventionDetail = "High moisture is detected in Zone 1."
	NoInterventionText = "No interventions needed. Litter conditions are good."
	NoResultText       = "Upload an image to get intervention suggestions."
)

// Evaluate returns the band for percentage p.
func Evaluate(p float64) models.Severity {
	switch {
	case p <= SafeMax:
		return models.SeveritySafe
	case p <= ModerateMax:
		return models.SeverityModerate
	default:
		return models.SeverityCritical
	}
}

// InterventionRecommended reports whether result exists and its percentage exceeds [InterventionThreshold].
func InterventionRecommended(result *models.AnalysisResult) bool {
	return result != nil && result.WetPercentage > InterventionThreshold
}

// Recommendation is the intervention card for a result.
type Recommendation struct {
	Recommended bool
	Title       string
	Detail      string
}

// Recommend builds the intervention card shown under a result.
func Recommend(result *models.AnalysisResult) Recommendation {
	switch {
	case result == nil:
		return Recommendation{Title: NoResultText}
	case InterventionRecommended(result):
		return Recommendation{Recommended: true, Title: InterventionTitle, Detail: InterventionDetail}
	default:
		return Recommendation{Title: NoInterventionText}
	}
}

// FormatPercentage renders p with one decimal place, e.g. "40.2%".
func FormatPercentage(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}
