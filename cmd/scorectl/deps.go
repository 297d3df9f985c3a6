package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/fairyhunter13/job-match-scorer/internal/adapter/ml"
	"github.com/fairyhunter13/job-match-scorer/internal/adapter/nlp"
)

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Probe the NLP and ML services and print the ML model info",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		nlpc := nlp.New(ctx, cfg.NLPServiceURL, nlp.WithTimeouts(cfg.RemoteConnectTimeout, cfg.RemoteReadTimeout))
		mlc := ml.New(ctx, cfg.MLServiceURL, ml.WithTimeouts(cfg.RemoteConnectTimeout, cfg.RemoteReadTimeout))
		out := map[string]any{
			"nlp": map[string]any{"url": cfg.NLPServiceURL, "available": nlpc.Available()},
			"ml":  map[string]any{"url": cfg.MLServiceURL, "available": mlc.Available()},
		}
		if mlc.Available() {
			if info, err := mlc.ModelInfo(ctx); err != nil {
				out["model_info_error"] = err.Error()
			} else {
				out["model_info"] = info
			}
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}

func init() {
	rootCmd.AddCommand(depsCmd)
}
