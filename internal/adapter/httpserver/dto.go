package httpserver

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/job-match-scorer/internal/domain"
)

// ScoreRequestBody is the JSON body shared by the scoring endpoints.
type ScoreRequestBody struct {
	Application ApplicationBody `json:"application"`
	Candidate   CandidateBody   `json:"candidate"`
	Job         JobBody         `json:"job"`
}

// ApplicationBody carries the resume (base64 or data URL) and cover letter.
type ApplicationBody struct {
	Resume      string `json:"resume" validate:"omitempty,max=41943040"`
	CoverLetter string `json:"cover_letter" validate:"max=20000"`
	ResumeKind  string `json:"resume_kind" validate:"omitempty,oneof=pdf docx"`
}

// CandidateBody carries the candidate profile fields.
type CandidateBody struct {
	FirstName string `json:"first_name" validate:"max=200"`
	LastName  string `json:"last_name" validate:"max=200"`
	Email     string `json:"email" validate:"omitempty,email,max=320"`
	Phone     string `json:"phone" validate:"max=50"`
}

// JobBody carries the job offer fields read by the scorer.
type JobBody struct {
	Title       string `json:"title" validate:"max=300"`
	Skills      string `json:"skills" validate:"max=5000"`
	Description string `json:"description" validate:"max=50000"`
}

// ToDomain converts the body into a ScoreRequest for applicationID.
func (b ScoreRequestBody) ToDomain(applicationID string) domain.ScoreRequest {
	return domain.ScoreRequest{
		Application: domain.Application{
			ID:          applicationID,
			Resume:      b.Application.Resume,
			CoverLetter: b.Application.CoverLetter,
			ResumeKind:  domain.FileKind(b.Application.ResumeKind),
			Candidate: domain.Candidate{
				FirstName: b.Candidate.FirstName,
				LastName:  b.Candidate.LastName,
				Email:     b.Candidate.Email,
				Phone:     b.Candidate.Phone,
			},
		},
		JobOffer: domain.JobOffer{Title: b.Job.Title, Skills: b.Job.Skills, Description: b.Job.Description},
	}
}

// ApplicationScoreResponse is the stored score of an application.
type ApplicationScoreResponse struct {
	ApplicationID string            `json:"application_id"`
	Score         float64           `json:"score"`
	Explanation   string            `json:"explanation"`
	MLPrediction  domain.Prediction `json:"ml_prediction"`
	MLConfidence  domain.Confidence `json:"ml_confidence"`
	Fallback      bool              `json:"fallback"`
	ScoredAt      time.Time         `json:"scored_at"`
}

func toScoreResponse(s domain.ApplicationScore) ApplicationScoreResponse {
	return ApplicationScoreResponse{
		ApplicationID: s.ApplicationID,
		Score:         s.Result.Score,
		Explanation:   s.Result.Explanation,
		MLPrediction:  s.Result.MLPrediction,
		MLConfidence:  s.Result.MLConfidence,
		Fallback:      s.Fallback,
		ScoredAt:      s.ScoredAt,
	}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// validateBody returns field -> failed tag for every invalid field.
func validateBody(b ScoreRequestBody) (map[string]string, error) {
	err := getValidator().Struct(b)
	if err == nil {
		return nil, nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	out := make(map[string]string, len(ve))
	for _, fe := range ve {
		out[jsonFieldPath(fe.Namespace())] = fe.Tag()
	}
	return out, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument)
}

// jsonFieldPath turns "ScoreRequestBody.Candidate.Email" into "candidate.email".
func jsonFieldPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = toSnake(p)
	}
	return strings.Join(parts, ".")
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

var applicationIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateApplicationID checks a path id: required, at most 100 characters of [A-Za-z0-9_-].
func ValidateApplicationID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: application id is required", domain.ErrInvalidArgument)
	case len(id) > 100:
		return fmt.Errorf("%w: application id is too long (max 100 characters)", domain.ErrInvalidArgument)
	case !applicationIDPattern.MatchString(id):
		return fmt.Errorf("%w: application id contains invalid characters", domain.ErrInvalidArgument)
	}
	return nil
}
