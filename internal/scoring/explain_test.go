package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fairyhunter13/job-match-scorer/internal/domain"
)

func TestExplain(t *testing.T) {
	strong := Breakdown{
		Skills:       domain.ComponentScore{Score: 0.8, Matched: 4, Total: 5},
		Keywords:     domain.ComponentScore{Score: 0.7, Matched: 7, Total: 10},
		Experience:   0.9,
		Completeness: 1,
	}

	t.Run("local only", func(t *testing.T) {
		got := Explain(ExplainInput{Breakdown: strong, Final: strong.Local()})
		assert.Equal(t, "Excellent match! Possesses 4/5 required skills (80%). "+
			"Profile aligns well with job requirements (7/10 keywords). "+
			"Experience level is well-suited. Complete professional profile. "+
			"Highly recommended for interview.", got)
		assert.NotContains(t, got, "ML model")
	})

	t.Run("with ml", func(t *testing.T) {
		pred := domain.MLPrediction{Prediction: domain.PredictionAccepted, MLScore: 82.4, Confidence: domain.ConfidenceHigh, Available: true}
		got := Explain(ExplainInput{Breakdown: strong, Final: 0.8, ML: &pred})
		assert.Contains(t, got, "ML model predicts: ACCEPTED (confidence: high, 82%).")
	})

	t.Run("weak profile", func(t *testing.T) {
		weak := Breakdown{
			Skills:       domain.ComponentScore{Score: 0.3, Matched: 0, Total: 3},
			Keywords:     domain.ComponentScore{Score: 0.1, Matched: 1, Total: 10},
			Experience:   0.3,
			Completeness: 0.4,
		}
		got := Explain(ExplainInput{Breakdown: weak, Final: weak.Local()})
		assert.Contains(t, got, "Limited match.")
		assert.Contains(t, got, "Limited alignment with job description (1/10 keywords).")
		assert.Contains(t, got, "May need training or mentoring.")
		assert.Contains(t, got, "Profile could be more complete.")
		assert.Contains(t, got, "Further review needed.")
	})

	t.Run("defaults without requirements omit counts", func(t *testing.T) {
		b := NewScorer(nil).Evaluate(domain.CvData{}, domain.JobSignal{}, domain.Application{})
		got := Explain(ExplainInput{Breakdown: b, Final: b.Local()})
		assert.Contains(t, got, "Strong candidate.")
		assert.NotContains(t, got, "required skills")
		assert.NotContains(t, got, "keywords)")
		assert.Contains(t, got, "Consider for interview.")
	})

	t.Run("non finite inputs", func(t *testing.T) {
		nan := math.NaN()
		b := Breakdown{
			Skills:       domain.ComponentScore{Score: nan, Total: 2},
			Keywords:     domain.ComponentScore{Score: nan},
			Experience:   nan,
			Completeness: nan,
		}
		got := Explain(ExplainInput{Breakdown: b, Final: nan, ML: &domain.MLPrediction{MLScore: nan}})
		assert.Contains(t, got, "Skills could not be assessed.")
		assert.Contains(t, got, "ML model predicts: UNKNOWN (confidence: low, 50%).")
		assert.Contains(t, got, "Manual review recommended.")
		assert.NotContains(t, got, "NaN")
	})

	t.Run("deterministic", func(t *testing.T) {
		in := ExplainInput{Breakdown: strong, Final: 0.75}
		assert.Equal(t, Explain(in), Explain(in))
	})
}

func TestRecommendation(t *testing.T) {
	assert.Equal(t, "Highly recommended for interview.", recommendation(0.70, 0.60))
	assert.Equal(t, "Consider for interview.", recommendation(0.75, 0.55))
	assert.Equal(t, "Consider for interview.", recommendation(0.40, 0.50))
	assert.Equal(t, "Further review needed.", recommendation(0.59, 0.49))
}
