package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/fairyhunter13/job-match-scorer/internal/domain"
)

// FallbackExplanation accompanies the neutral score produced when scoring itself fails.
const FallbackExplanation = "Automated scoring encountered an issue. Manual review recommended."

// ExplainInput is everything the explanation is rendered from.
type ExplainInput struct {
	Breakdown Breakdown
	Final     float64 // [0,1]
	// ML is nil when the ML score did not take part in the blend.
	ML *domain.MLPrediction
}

// Explain renders a deterministic summary of a scoring run. Missing or
// non-finite inputs fall back to conservative phrases instead of failing.
func Explain(in ExplainInput) string {
	b := in.Breakdown
	parts := make([]string, 0, 8)

	parts = append(parts, skillsHeadline(b.Skills.Score))
	if b.Skills.Total > 0 && finite(b.Skills.Score) {
		parts = append(parts, fmt.Sprintf("Possesses %d/%d required skills (%.0f%%).",
			b.Skills.Matched, b.Skills.Total, b.Skills.Score*100))
	}
	parts = append(parts, keywordRemark(b.Keywords))
	parts = append(parts, experienceRemark(b.Experience))
	if r := completenessRemark(b.Completeness); r != "" {
		parts = append(parts, r)
	}
	if in.ML != nil {
		parts = append(parts, mlRemark(*in.ML))
	}
	parts = append(parts, recommendation(in.Final, b.Skills.Score))
	return strings.Join(parts, " ")
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func skillsHeadline(s float64) string {
	switch {
	case !finite(s):
		return "Skills could not be assessed."
	case s >= 0.75:
		return "Excellent match!"
	case s >= 0.60:
		return "Strong candidate."
	case s >= 0.40:
		return "Moderate match."
	default:
		return "Limited match."
	}
}

func keywordRemark(k domain.ComponentScore) string {
	var r string
	switch {
	case !finite(k.Score):
		return "Keyword relevance could not be assessed."
	case k.Score >= 0.60:
		r = "Profile aligns well with job requirements"
	case k.Score >= 0.40:
		r = "Shows some relevant experience"
	default:
		r = "Limited alignment with job description"
	}
	if k.Total > 0 {
		r += fmt.Sprintf(" (%d/%d keywords)", k.Matched, k.Total)
	}
	return r + "."
}

func experienceRemark(e float64) string {
	switch {
	case !finite(e):
		return "Experience level could not be assessed."
	case e >= 0.75:
		return "Experience level is well-suited."
	case e >= 0.50:
		return "Experience level is acceptable."
	default:
		return "May need training or mentoring."
	}
}

func completenessRemark(c float64) string {
	switch {
	case !finite(c):
		return ""
	case c >= 0.80:
		return "Complete professional profile."
	case c < 0.60:
		return "Profile could be more complete."
	default:
		return "Profile is reasonably complete."
	}
}

func mlRemark(p domain.MLPrediction) string {
	label := p.Prediction
	if label == "" {
		label = domain.PredictionUnknown
	}
	conf := p.Confidence
	if conf == "" {
		conf = domain.ConfidenceLow
	}
	score := p.MLScore
	if !finite(score) {
		score = 50
	}
	return fmt.Sprintf("ML model predicts: %s (confidence: %s, %.0f%%).", label, conf, score)
}

// recommendation is picked from the final score and the skills score together.
func recommendation(final, skills float64) string {
	if !finite(final) || !finite(skills) {
		return "Manual review recommended."
	}
	switch {
	case final >= 0.70 && skills >= 0.60:
		return "Highly recommended for interview."
	case final >= 0.60 || skills >= 0.50:
		return "Consider for interview."
	default:
		return "Further review needed."
	}
}
