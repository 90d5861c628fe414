// Package engine ties the pipeline together: scan the workspace,
// partition it into token-bounded groups, analyze the groups against
// the model, and aggregate the answers. The CLI and the MCP server are
// both thin layers over this package.
package engine

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"codescope/pkg/analyzer"
	"codescope/pkg/config"
	"codescope/pkg/grouper"
	"codescope/pkg/llm"
	"codescope/pkg/logging"
	"codescope/pkg/manifest"
	"codescope/pkg/workspace"
)

// Engine is the orchestration facade. One engine serves one process;
// the workspace slot inside the manager is the only mutable state and
// is mutex-guarded.
type Engine struct {
	cfg     *config.Config
	manager *workspace.Manager
	factory llm.Factory
	logger  *zap.Logger
}

// New builds an engine backed by the Gemini client.
func New(cfg *config.Config) *Engine {
	return NewWithFactory(cfg, llm.GeminiFactory(cfg.Model))
}

// NewWithFactory builds an engine with a custom client factory. Tests
// inject canned clients here.
func NewWithFactory(cfg *config.Config, factory llm.Factory) *Engine {
	return &Engine{
		cfg:     cfg,
		manager: workspace.NewManager(),
		factory: factory,
		logger:  logging.Get(),
	}
}

// SetWorkspace installs root as the current workspace.
func (e *Engine) SetWorkspace(root string) (*workspace.Workspace, error) {
	return e.manager.Setup(root)
}

// Workspace returns the current workspace.
func (e *Engine) Workspace() (*workspace.Workspace, error) {
	return e.manager.Current()
}

// CreateGroups scans the current workspace, partitions the manifest
// (assisted when credentials allow, deterministic otherwise) and
// persists the resulting plan. Content is not retained; the analyze
// phase re-reads it from disk.
func (e *Engine) CreateGroups(ctx context.Context) (*grouper.GroupPlan, error) {
	ws, err := e.manager.Current()
	if err != nil {
		return nil, err
	}

	records, err := manifest.Scan(ws.Root, e.cfg.MaxFileSize)
	if err != nil {
		return nil, err
	}
	e.logger.Info("workspace scanned",
		zap.String("root", ws.Root),
		zap.Int("files", len(records)),
		zap.Int("total_tokens", manifest.TotalTokens(records)))

	planner := grouper.NewPlanner(e.cfg, e.factory)
	groups := planner.Plan(ctx, records, e.cfg.TokenCeiling)

	plan := grouper.NewPlan(ws.Root, e.cfg.TokenCeiling, groups)
	if err := ws.SavePlan(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// AnalyzeGroups loads the persisted plan, rehydrates its files from
// disk and runs the batch analysis for the question. Partial results
// are always delivered; failed groups appear as failed sections.
func (e *Engine) AnalyzeGroups(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("question must not be empty")
	}
	if err := e.cfg.RequireKeys(); err != nil {
		return "", err
	}

	ws, err := e.manager.Current()
	if err != nil {
		return "", err
	}
	plan, err := ws.LoadPlan()
	if err != nil {
		return "", err
	}
	groups, err := plan.Rehydrate(ws.Root)
	if err != nil {
		return "", err
	}

	coordinator := analyzer.NewCoordinator(e.cfg, e.factory)
	outcomes := coordinator.AnalyzeAll(ctx, groups, question)
	return analyzer.Aggregate(outcomes, question, "batch"), nil
}

// Ask answers a question in one shot: scan, group, analyze, merge.
// When the whole tree fits under the ceiling the answer comes back
// from a single call without batch report framing.
func (e *Engine) Ask(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("question must not be empty")
	}
	if err := e.cfg.RequireKeys(); err != nil {
		return "", err
	}

	ws, err := e.manager.Current()
	if err != nil {
		return "", err
	}
	records, err := manifest.Scan(ws.Root, e.cfg.MaxFileSize)
	if err != nil {
		return "", err
	}

	coordinator := analyzer.NewCoordinator(e.cfg, e.factory)

	if manifest.TotalTokens(records) <= e.cfg.TokenCeiling {
		group := grouper.Group{
			Name:   "Whole workspace",
			Files:  records,
			Tokens: manifest.TotalTokens(records),
		}
		outcomes := coordinator.AnalyzeAll(ctx, []grouper.Group{group}, question)
		if outcomes[0].Failed() {
			return "", outcomes[0].Err
		}
		return outcomes[0].Text, nil
	}

	e.logger.Info("workspace exceeds single-call budget, batching",
		zap.Int("total_tokens", manifest.TotalTokens(records)),
		zap.Int("ceiling", e.cfg.TokenCeiling))

	planner := grouper.NewPlanner(e.cfg, e.factory)
	groups := planner.Plan(ctx, records, e.cfg.TokenCeiling)
	outcomes := coordinator.AnalyzeAll(ctx, groups, question)
	return analyzer.Aggregate(outcomes, question, "ask"), nil
}
