package app_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/job-match-scorer/internal/app"
	"github.com/fairyhunter13/job-match-scorer/internal/config"
	"github.com/fairyhunter13/job-match-scorer/internal/domain"
)

func TestNewScorer_AliasFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "aliases.yaml")
	require.NoError(t, os.WriteFile(p, []byte("aliases:\n  golang: [go]\n"), 0o600))

	s, err := app.NewScorer(config.Config{SkillAliasesFile: p})
	require.NoError(t, err)
	got := s.Skills(domain.CvData{Skills: []string{"go"}}, domain.JobSignal{SkillsText: "Golang"})
	assert.Equal(t, 1.0, got.Score)

	_, err = app.NewScorer(config.Config{SkillAliasesFile: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestNewScoringService_DegradesWithoutRemotes(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(down.Close)

	cfg := config.Config{NLPServiceURL: down.URL, MLServiceURL: down.URL}
	svc, remotes, err := app.NewScoringService(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.False(t, remotes.NLP.Available())
	assert.False(t, remotes.ML.Available())

	res := svc.Score(context.Background(), domain.ScoreRequest{})
	assert.Equal(t, domain.PredictionUnknown, res.MLPrediction)
	assert.Equal(t, domain.ConfidenceLow, res.MLConfidence)
	assert.GreaterOrEqual(t, res.Score, 0.0)
	assert.LessOrEqual(t, res.Score, 100.0)
	_, err = json.Marshal(res)
	assert.NoError(t, err)
}

func TestConnectRedis(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, app.ConnectRedis(ctx, config.Config{}))
	assert.Nil(t, app.ConnectRedis(ctx, config.Config{RedisURL: "://bad"}))

	mr := miniredis.RunT(t)
	rdb := app.ConnectRedis(ctx, config.Config{RedisURL: "redis://" + mr.Addr()})
	require.NotNil(t, rdb)
	t.Cleanup(func() { _ = rdb.Close() })
}
