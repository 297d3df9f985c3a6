package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/job-match-scorer/internal/adapter/cache/rediscache"
	"github.com/fairyhunter13/job-match-scorer/internal/adapter/ml"
	"github.com/fairyhunter13/job-match-scorer/internal/adapter/nlp"
	"github.com/fairyhunter13/job-match-scorer/internal/config"
	"github.com/fairyhunter13/job-match-scorer/internal/domain"
	"github.com/fairyhunter13/job-match-scorer/internal/scoring"
	"github.com/fairyhunter13/job-match-scorer/internal/usecase"
)

// Remotes are the two remote analysis services behind the scorer.
type Remotes struct {
	NLP *nlp.Client
	ML  *ml.Client
}

// NewScorer builds the local scorer from the built-in alias table extended by
// the optional SKILL_ALIASES_FILE.
func NewScorer(cfg config.Config) (*scoring.Scorer, error) {
	extra, err := config.LoadSkillAliases(cfg.SkillAliasesFile)
	if err != nil {
		return nil, fmt.Errorf("op=app.NewScorer: %w", err)
	}
	aliases := scoring.DefaultAliases()
	if len(extra) > 0 {
		aliases = aliases.Merge(scoring.AliasTable(extra))
		slog.Info("skill aliases loaded", slog.String("file", cfg.SkillAliasesFile), slog.Int("groups", len(extra)))
	}
	return scoring.NewScorer(aliases), nil
}

// NewScoringService wires the NLP and ML clients, the optional extraction
// cache and the local scorer. Both clients probe their service on creation.
// rdb may be nil, in which case extractions are not cached.
func NewScoringService(ctx context.Context, cfg config.Config, rdb *redis.Client) (usecase.ScoringService, Remotes, error) {
	scorer, err := NewScorer(cfg)
	if err != nil {
		return usecase.ScoringService{}, Remotes{}, err
	}
	remotes := Remotes{
		NLP: nlp.New(ctx, cfg.NLPServiceURL, nlp.WithTimeouts(cfg.RemoteConnectTimeout, cfg.RemoteReadTimeout)),
		ML:  ml.New(ctx, cfg.MLServiceURL, ml.WithTimeouts(cfg.RemoteConnectTimeout, cfg.RemoteReadTimeout)),
	}
	var extractor domain.CVExtractor = remotes.NLP
	if rdb != nil {
		extractor = nlp.NewCachedExtractor(remotes.NLP, rediscache.NewExtractionCache(rdb, cfg.ExtractionCacheTTL))
	}
	slog.Info("remote services probed",
		slog.Bool("nlp_available", remotes.NLP.Available()),
		slog.Bool("ml_available", remotes.ML.Available()))
	return usecase.NewScoringService(extractor, remotes.ML, scorer), remotes, nil
}

// ConnectRedis returns nil when REDIS_URL is empty. A configured but
// unreachable Redis is logged and treated as absent.
func ConnectRedis(ctx context.Context, cfg config.Config) *redis.Client {
	if cfg.RedisURL == "" {
		return nil
	}
	rdb, err := rediscache.NewClient(cfg.RedisURL)
	if err != nil {
		slog.Warn("invalid REDIS_URL, continuing without cache", slog.Any("error", err))
		return nil
	}
	if err := rediscache.Ping(ctx, rdb); err != nil {
		slog.Warn("redis unreachable, continuing without cache", slog.Any("error", err))
		_ = rdb.Close()
		return nil
	}
	return rdb
}
