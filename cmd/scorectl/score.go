package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/job-match-scorer/internal/app"
	"github.com/fairyhunter13/job-match-scorer/internal/domain"
)

// jobFile is the YAML shape of a job offer:
//
//	title: Backend Engineer
//	skills: Go, PostgreSQL, Kafka
//	description: |
//	  5+ years building services...
type jobFile struct {
	Title       string `yaml:"title"`
	Skills      string `yaml:"skills"`
	Description string `yaml:"description"`
}

type scoreFlags struct {
	resume      string
	job         string
	coverLetter string
	candidate   domain.Candidate
	breakdown   bool
	timeout     time.Duration
}

var scoreOpts scoreFlags

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a resume file against a job offer YAML file",
	Example: "  scorectl score --resume cv.pdf --job job.yaml --email ada@example.com\n" +
		"  scorectl score --job job.yaml --breakdown",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		req, err := buildRequest(scoreOpts)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), scoreOpts.timeout)
		defer cancel()
		svc, _, err := app.NewScoringService(ctx, cfg, nil)
		if err != nil {
			return err
		}
		out := svc.Evaluate(ctx, req)
		if scoreOpts.breakdown {
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"result":              out.Result,
				"mode":                out.Mode,
				"ml_weight":           out.MLWeight,
				"extraction_fallback": out.ExtractionFallback,
				"skills":              out.Breakdown.Skills,
				"keywords":            out.Breakdown.Keywords,
				"experience":          out.Breakdown.Experience,
				"completeness":        out.Breakdown.Completeness,
			})
		}
		return printJSON(cmd.OutOrStdout(), out.Result)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	f := scoreCmd.Flags()
	f.StringVarP(&scoreOpts.resume, "resume", "r", "", "resume file (.pdf or .docx); omitted means no resume")
	f.StringVarP(&scoreOpts.job, "job", "j", "", "job offer YAML file")
	f.StringVar(&scoreOpts.coverLetter, "cover-letter", "", "text file holding the cover letter")
	f.StringVar(&scoreOpts.candidate.FirstName, "first-name", "", "candidate first name")
	f.StringVar(&scoreOpts.candidate.LastName, "last-name", "", "candidate last name")
	f.StringVar(&scoreOpts.candidate.Email, "email", "", "candidate email")
	f.StringVar(&scoreOpts.candidate.Phone, "phone", "", "candidate phone")
	f.BoolVarP(&scoreOpts.breakdown, "breakdown", "b", false, "print the component scores and blend mode")
	f.DurationVar(&scoreOpts.timeout, "timeout", 2*time.Minute, "overall deadline for the remote calls")
	_ = scoreCmd.MarkFlagRequired("job")
}

func buildRequest(o scoreFlags) (domain.ScoreRequest, error) {
	job, err := loadJob(o.job)
	if err != nil {
		return domain.ScoreRequest{}, err
	}
	appl := domain.Application{Candidate: o.candidate}
	if o.resume != "" {
		b, err := os.ReadFile(filepath.Clean(o.resume))
		if err != nil {
			return domain.ScoreRequest{}, fmt.Errorf("op=scorectl.buildRequest: read resume: %w", err)
		}
		appl.Resume = base64.StdEncoding.EncodeToString(b)
		appl.ResumeKind = kindFromName(o.resume)
	}
	if o.coverLetter != "" {
		b, err := os.ReadFile(filepath.Clean(o.coverLetter))
		if err != nil {
			return domain.ScoreRequest{}, fmt.Errorf("op=scorectl.buildRequest: read cover letter: %w", err)
		}
		appl.CoverLetter = string(b)
	}
	return domain.ScoreRequest{Application: appl, JobOffer: job}, nil
}

func loadJob(path string) (domain.JobOffer, error) {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return domain.JobOffer{}, fmt.Errorf("op=scorectl.loadJob: %w", err)
	}
	var jf jobFile
	if err := yaml.Unmarshal(b, &jf); err != nil {
		return domain.JobOffer{}, fmt.Errorf("op=scorectl.loadJob: parse %s: %w", path, err)
	}
	return domain.JobOffer{Title: jf.Title, Skills: jf.Skills, Description: jf.Description}, nil
}

// kindFromName trusts the extension; anything else is left for the extractor to sniff.
func kindFromName(name string) domain.FileKind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return domain.FileKindPDF
	case ".docx":
		return domain.FileKindDOCX
	default:
		return ""
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
