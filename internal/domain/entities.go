package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNotFound            = errors.New("not found")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrUpstreamTimeout     = errors.New("upstream timeout")
	ErrSchemaInvalid       = errors.New("schema invalid")
	ErrRateLimited         = errors.New("rate limited")
	ErrInternal            = errors.New("internal error")
)

// Prediction is the label returned by the remote ML service.
type Prediction string

const (
	PredictionAccepted Prediction = "ACCEPTED"
	PredictionRejected Prediction = "REJECTED"
	PredictionUnknown  Prediction = "UNKNOWN"
)

// ParsePrediction maps a wire value to a Prediction; anything unrecognised is UNKNOWN.
func ParsePrediction(s string) Prediction {
	switch Prediction(s) {
	case PredictionAccepted, PredictionRejected:
		return Prediction(s)
	default:
		return PredictionUnknown
	}
}

// Confidence is the categorical strength attached to an ML prediction.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// ParseConfidence maps a wire value to a Confidence; anything unrecognised is low.
func ParseConfidence(s string) Confidence {
	switch Confidence(s) {
	case ConfidenceMedium, ConfidenceHigh:
		return Confidence(s)
	default:
		return ConfidenceLow
	}
}

// FileKind is the document format forwarded to the extraction service.
type FileKind string

const (
	FileKindPDF  FileKind = "pdf"
	FileKindDOCX FileKind = "docx"
)

// CvData holds the signals extracted from one resume.
// It is produced once per scoring call and never mutated afterwards.
type CvData struct {
	Skills          []string `json:"skills"`
	ExperienceYears int      `json:"experience_years"`
	Education       []string `json:"education,omitempty"`
	RawText         string   `json:"raw_text"`
	WordCount       int      `json:"word_count"`
	Fallback        bool     `json:"fallback,omitempty"`
}

// HasSkill reports whether skill is present verbatim in the extracted set.
func (c CvData) HasSkill(skill string) bool {
	for _, s := range c.Skills {
		if s == skill {
			return true
		}
	}
	return false
}

// JobSignal is the read-only view of a job offer used for scoring.
type JobSignal struct {
	SkillsText              string
	DescriptionText         string
	TitleText               string
	RequiredExperienceYears int // 0 = unspecified
}

// MLJobData is the job view sent to the ML service.
type MLJobData struct {
	Title              string `json:"title"`
	RequiredSkills     string `json:"required_skills"`
	Description        string `json:"description"`
	RequiredExperience int    `json:"required_experience"`
}

// MLPrediction is the outcome of one predict call, remote or fallback.
type MLPrediction struct {
	Prediction Prediction
	MLScore    float64 // [0,100]
	Confidence Confidence
	Available  bool
}

// FallbackPrediction is returned whenever the ML service was not consulted or failed.
func FallbackPrediction() MLPrediction {
	return MLPrediction{Prediction: PredictionUnknown, MLScore: 50, Confidence: ConfidenceLow, Available: false}
}

// ComponentScore is one dimension's normalized contribution.
// Invariants: Score in [0,1]; Matched <= Total when Total > 0.
type ComponentScore struct {
	Score   float64
	Matched int
	Total   int
}

// MatchResult is the only value leaving the scoring core.
// Invariant: 0 <= Score <= 100, rounded to 2 decimals.
type MatchResult struct {
	Score        float64    `json:"score"`
	Explanation  string     `json:"explanation"`
	MLPrediction Prediction `json:"ml_prediction"`
	MLConfidence Confidence `json:"ml_confidence"`
}

// Candidate carries the profile fields that feed completeness.
type Candidate struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// Application is the submitted application as seen by the scorer.
type Application struct {
	ID          string    `json:"id"`
	Resume      string    `json:"resume"` // base64, optionally a data URL
	CoverLetter string    `json:"cover_letter"`
	Candidate   Candidate `json:"candidate"`
	// ResumeKind is optional; when empty the extractor sniffs the resume bytes.
	ResumeKind FileKind `json:"resume_kind,omitempty"`
}

// JobOffer is the subset of a job offer the scorer reads.
type JobOffer struct {
	Title       string `json:"title"`
	Skills      string `json:"skills"`
	Description string `json:"description"`
}

// ScoreRequest bundles everything one scoring call needs.
type ScoreRequest struct {
	Application Application `json:"application"`
	JobOffer    JobOffer    `json:"job"`
}

// ApplicationScore is a MatchResult persisted on an application record.
type ApplicationScore struct {
	ApplicationID string
	Result        MatchResult
	Fallback      bool
	ScoredAt      time.Time
}

// RescoreEvent requests an asynchronous re-score of an edited application.
type RescoreEvent struct {
	EventID       string       `json:"event_id"`
	ApplicationID string       `json:"application_id"`
	Request       ScoreRequest `json:"request"`
}

// ModelInfo is whatever the ML service reports about its model.
type ModelInfo map[string]any

// Ports

// CVExtractor turns a resume blob into CvData. It never fails; unavailability yields a fallback.
type CVExtractor interface {
	Extract(ctx Context, resume string, kind FileKind) CvData
}

// Predictor asks the ML service for a prediction. It never fails; unavailability yields FallbackPrediction.
type Predictor interface {
	Predict(ctx Context, cv CvData, job MLJobData) MLPrediction
	Available() bool
}

// ScoreRepository persists MatchResults on application records.
type ScoreRepository interface {
	Upsert(ctx Context, s ApplicationScore) error
	Get(ctx Context, applicationID string) (ApplicationScore, error)
}

// RescoreQueue publishes re-scoring requests.
type RescoreQueue interface {
	EnqueueRescore(ctx Context, ev RescoreEvent) (string, error)
}

// ExtractionCache stores successful extractions keyed by resume digest.
type ExtractionCache interface {
	Get(ctx Context, key string) (CvData, bool, error)
	Set(ctx Context, key string, cv CvData) error
}

// Context is an alias to keep the ports readable.
type Context = context.Context
