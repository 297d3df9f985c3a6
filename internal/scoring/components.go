package scoring

import (
	"math"
	"strings"

	"github.com/fairyhunter13/job-match-scorer/internal/domain"
)

// Neutral defaults applied when the job offer states no requirement.
const (
	DefaultSkillsScore        = 0.70
	DefaultKeywordScore       = 0.60
	ExperienceUnspecifiedHas  = 0.75
	ExperienceUnspecifiedNone = 0.50
	// SkillsFloor is the lowest skills score for a candidate whose resume yielded anything.
	SkillsFloor = 0.30
)

// Breakdown holds the four component scores of one application.
type Breakdown struct {
	Skills       domain.ComponentScore
	Keywords     domain.ComponentScore
	Experience   float64
	Completeness float64
}

// Scorer computes component scores. The zero value uses DefaultAliases.
type Scorer struct {
	aliases AliasTable
}

// NewScorer builds a Scorer around an alias table; nil selects DefaultAliases.
func NewScorer(aliases AliasTable) *Scorer {
	if aliases == nil {
		aliases = DefaultAliases()
	}
	return &Scorer{aliases: aliases}
}

// Aliases returns the table the scorer matches skills with.
func (s *Scorer) Aliases() AliasTable {
	if s == nil || s.aliases == nil {
		return DefaultAliases()
	}
	return s.aliases
}

// Evaluate runs all four component scorers.
func (s *Scorer) Evaluate(cv domain.CvData, job domain.JobSignal, app domain.Application) Breakdown {
	return Breakdown{
		Skills:       s.Skills(cv, job),
		Keywords:     Keywords(cv, job),
		Experience:   Experience(cv, job),
		Completeness: Completeness(app),
	}
}

// Skills scores how many required skills the resume covers, verbatim or through an alias.
func (s *Scorer) Skills(cv domain.CvData, job domain.JobSignal) domain.ComponentScore {
	required := ParseSkills(job.SkillsText)
	if len(required) == 0 {
		return domain.ComponentScore{Score: DefaultSkillsScore}
	}
	aliases := s.Aliases()
	matched := 0
	for _, req := range required {
		if cv.HasSkill(req) {
			matched++
			continue
		}
		for _, have := range cv.Skills {
			if aliases.AreRelated(req, have) {
				matched++
				break
			}
		}
	}
	return SkillsScore(matched, len(required), hasResumeSignal(cv))
}

// hasResumeSignal reports whether the resume yielded anything, including a
// size-based estimate made without extraction.
func hasResumeSignal(cv domain.CvData) bool {
	return cv.Fallback || len(cv.Skills) > 0 || strings.TrimSpace(cv.RawText) != ""
}

// SkillsScore turns match counts into a bounded score. When the resume
// produced any signal the score never drops below SkillsFloor.
func SkillsScore(matched, total int, hasResumeSignal bool) domain.ComponentScore {
	if total <= 0 {
		return domain.ComponentScore{Score: DefaultSkillsScore}
	}
	if matched > total {
		matched = total
	}
	if matched < 0 {
		matched = 0
	}
	score := float64(matched) / float64(total)
	if hasResumeSignal {
		score = math.Max(score, SkillsFloor)
	}
	return domain.ComponentScore{Score: Clamp01(score), Matched: matched, Total: total}
}

// Keywords scores how many job keywords appear in the resume text.
func Keywords(cv domain.CvData, job domain.JobSignal) domain.ComponentScore {
	if strings.TrimSpace(job.DescriptionText) == "" && strings.TrimSpace(job.TitleText) == "" {
		return domain.ComponentScore{Score: DefaultKeywordScore}
	}
	keywords := ExtractKeywords(job.DescriptionText + " " + job.TitleText)
	if len(keywords) == 0 {
		return domain.ComponentScore{Score: DefaultKeywordScore}
	}
	text := strings.ToLower(cv.RawText)
	matched := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			matched++
		}
	}
	return domain.ComponentScore{
		Score:   Clamp01(float64(matched) / float64(len(keywords))),
		Matched: matched,
		Total:   len(keywords),
	}
}

// Experience compares the resume's years with the years the job asks for.
// job.RequiredExperienceYears is read as extracted by Signal.
func Experience(cv domain.CvData, job domain.JobSignal) float64 {
	required := job.RequiredExperienceYears
	if required == 0 {
		if cv.ExperienceYears > 0 {
			return ExperienceUnspecifiedHas
		}
		return ExperienceUnspecifiedNone
	}
	years := cv.ExperienceYears
	if years < 0 {
		years = 0
	}
	return ExperienceCurve(float64(years) / float64(required))
}

// ExperienceCurve maps a candidate/required years ratio onto [0.30, 0.90].
// The curve is piecewise linear, monotonic and continuous:
//
//	ratio >= 1.0       -> 0.90
//	0.7 <= ratio < 1.0 -> 0.70 .. 0.90
//	0.4 <= ratio < 0.7 -> 0.50 .. 0.70
//	ratio < 0.4        -> 0.30 .. 0.50
func ExperienceCurve(ratio float64) float64 {
	switch {
	case math.IsNaN(ratio) || ratio <= 0:
		return 0.30
	case ratio >= 1.0:
		return 0.90
	case ratio >= 0.7:
		return 0.70 + (ratio-0.7)*(0.20/0.30)
	case ratio >= 0.4:
		return 0.50 + (ratio-0.4)*(0.20/0.30)
	default:
		return math.Max(0.30, 0.30+ratio*0.5)
	}
}

// Completeness awards one point per filled profile element, out of five.
func Completeness(app domain.Application) float64 {
	points := 0
	if present(app.Resume) {
		points++
	}
	if present(app.CoverLetter) {
		points++
	}
	c := app.Candidate
	if present(c.Phone) {
		points++
	}
	if present(c.FirstName) && present(c.LastName) {
		points++
	}
	if present(c.Email) {
		points++
	}
	return Clamp01(float64(points) / 5)
}

func present(s string) bool { return strings.TrimSpace(s) != "" }

// Clamp01 bounds v to [0,1]; NaN collapses to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
