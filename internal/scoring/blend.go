package scoring

import (
	"math"

	"github.com/fairyhunter13/job-match-scorer/internal/domain"
)

// Weights are the fixed shares of each component in the local score.
type Weights struct {
	Skills       float64
	Keywords     float64
	Experience   float64
	Completeness float64
}

// DefaultWeights: skills 40%, keywords 30%, experience 20%, completeness 10%.
var DefaultWeights = Weights{Skills: 0.40, Keywords: 0.30, Experience: 0.20, Completeness: 0.10}

// confidenceWeights is the ML share of the final score per confidence tier.
var confidenceWeights = map[domain.Confidence]float64{
	domain.ConfidenceHigh:   0.50,
	domain.ConfidenceMedium: 0.40,
	domain.ConfidenceLow:    0.30,
}

// MLWeight returns the blend weight for a confidence tier; unknown tiers weigh as low.
func MLWeight(c domain.Confidence) float64 {
	if w, ok := confidenceWeights[c]; ok {
		return w
	}
	return confidenceWeights[domain.ConfidenceLow]
}

// Local combines the component scores with DefaultWeights.
func (b Breakdown) Local() float64 {
	return LocalScore(b, DefaultWeights)
}

// LocalScore combines the component scores, each clamped to [0,1] first.
func LocalScore(b Breakdown, w Weights) float64 {
	return Clamp01(Clamp01(b.Skills.Score)*w.Skills +
		Clamp01(b.Keywords.Score)*w.Keywords +
		Clamp01(b.Experience)*w.Experience +
		Clamp01(b.Completeness)*w.Completeness)
}

// Blend mixes the local score with the remote ML score when the prediction
// is available, and returns the final score in [0,1] together with the ML
// weight that was applied (0 when ML was not used).
func Blend(local float64, pred domain.MLPrediction) (final, mlWeight float64) {
	local = Clamp01(local)
	if !pred.Available {
		return local, 0
	}
	mlWeight = MLWeight(pred.Confidence)
	ml := Clamp01(pred.MLScore / 100)
	return Clamp01(local*(1-mlWeight) + ml*mlWeight), mlWeight
}

// Percent converts a [0,1] score into the reported [0,100] value rounded to 2 decimals.
func Percent(final float64) float64 {
	v := math.Round(Clamp01(final)*100*100) / 100
	if v > 100 {
		return 100
	}
	return v
}
