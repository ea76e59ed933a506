package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hpungsan/sift/internal/agent"
	"github.com/hpungsan/sift/internal/config"
	"github.com/hpungsan/sift/internal/errors"
	"github.com/hpungsan/sift/internal/llm"
	"github.com/hpungsan/sift/internal/logging"
	"github.com/hpungsan/sift/internal/metrics"
	"github.com/hpungsan/sift/internal/prompts"
	"github.com/hpungsan/sift/internal/review"
)

// runtime carries everything commands need. A nil db means only help and
// version can run.
type runtime struct {
	db      *sql.DB
	cfg     *config.Config
	logger  *slog.Logger
	prompts *prompts.Set
	metrics *metrics.Metrics
	getenv  func(string) string

	// newProposer builds the proposer for a run; tests replace it.
	newProposer func(cfg *config.Config) (review.Proposer, error)
}

func newRuntime(db *sql.DB, cfg *config.Config, logger *slog.Logger, set *prompts.Set) *runtime {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	if set == nil {
		set = prompts.Default()
	}
	rt := &runtime{
		db:      db,
		cfg:     cfg,
		logger:  logger,
		prompts: set,
		metrics: metrics.New(),
		getenv:  os.Getenv,
	}
	rt.newProposer = func(cfg *config.Config) (review.Proposer, error) {
		client, err := rt.llmClient(cfg)
		if err != nil {
			return nil, err
		}
		return agent.NewLLMProposer(client, rt.prompts.Proposer), nil
	}
	return rt
}

// llmClient builds the chat client. An empty api_key_env means the endpoint
// needs no key; a named variable that is unset is an error.
func (rt *runtime) llmClient(cfg *config.Config) (*llm.Client, error) {
	var key string
	if env := cfg.LLM.APIKeyEnv; env != "" {
		key = rt.getenv(env)
		if key == "" {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("environment variable %s is not set", env))
		}
	}
	return llm.New(cfg.LLM.BaseURL, cfg.LLM.Model,
		llm.WithAPIKey(key),
		llm.WithTimeout(time.Duration(cfg.LLM.TimeoutSeconds)*time.Second),
		llm.WithTemperature(cfg.LLM.Temperature),
	), nil
}

// approver builds the reply classifier named by cfg.Approver.
func (rt *runtime) approver(cfg *config.Config) (review.Approver, error) {
	switch cfg.Approver {
	case "", config.ApproverRules:
		return agent.NewRuleApprover(), nil
	case config.ApproverLLM:
		client, err := rt.llmClient(cfg)
		if err != nil {
			return nil, err
		}
		var a review.Approver = agent.NewLLMApprover(client, rt.prompts.Approver)
		if cfg.PrecedenceEnabled() {
			a = agent.WithRevisionPrecedence(a)
		}
		return a, nil
	default:
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown approver %q (want rules or llm)", cfg.Approver))
	}
}

// loop assembles the review loop for cfg.
func (rt *runtime) loop(cfg *config.Config) (*review.Loop, error) {
	proposer, err := rt.newProposer(cfg)
	if err != nil {
		return nil, err
	}
	approver, err := rt.approver(cfg)
	if err != nil {
		return nil, err
	}
	return review.NewLoop(proposer, approver,
		review.WithMaxIterations(cfg.MaxIterations),
		review.WithLogger(rt.logger),
	), nil
}
