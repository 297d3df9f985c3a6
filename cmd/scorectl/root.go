// Command scorectl scores a resume against a job offer from the command line
// using the same scoring pipeline as the API.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fairyhunter13/job-match-scorer/internal/adapter/observability"
	"github.com/fairyhunter13/job-match-scorer/internal/config"
)

const appName = "scorectl"

var (
	nlpURL  string
	mlURL   string
	aliases string
	debug   bool

	rootCmd = &cobra.Command{
		Use:           appName,
		Short:         "scorectl scores candidate resumes against job offers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			level := "warn"
			if debug {
				level = "debug"
			}
			slog.SetDefault(observability.NewLogger(os.Stderr, config.Config{AppEnv: "prod", LogLevel: level}))
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&nlpURL, "nlp-url", "", "NLP service base URL (default NLP_SERVICE_URL)")
	rootCmd.PersistentFlags().StringVar(&mlURL, "ml-url", "", "ML service base URL (default ML_SERVICE_URL)")
	rootCmd.PersistentFlags().StringVar(&aliases, "aliases", "", "YAML file extending the skill alias table (default SKILL_ALIASES_FILE)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "verbose/debug output on stderr")
}

// loadConfig reads the environment and applies the flag overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if nlpURL != "" {
		cfg.NLPServiceURL = nlpURL
	}
	if mlURL != "" {
		cfg.MLServiceURL = mlURL
	}
	if aliases != "" {
		cfg.SkillAliasesFile = aliases
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("scorectl failed", slog.Any("error", err))
		os.Exit(1)
	}
}
