// Package analyzer runs per-group LLM analysis concurrently and merges
// the outcomes into one report. One group's failure never blocks or
// cancels its siblings; the final report preserves group order no
// matter which calls finish first.
package analyzer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"codescope/pkg/config"
	"codescope/pkg/grouper"
	"codescope/pkg/llm"
	"codescope/pkg/logging"
	"codescope/pkg/rotation"
	"codescope/pkg/tokens"
)

// Outcome is the result of analyzing one group: either Text or Err is
// set. Failures degrade to a visible note in the report instead of
// aborting the batch.
type Outcome struct {
	Group string
	Text  string
	Err   error
}

// Failed reports whether the group's analysis ended in an error.
func (o Outcome) Failed() bool { return o.Err != nil }

// Coordinator dispatches group analyses through the rotation executor.
type Coordinator struct {
	cfg     *config.Config
	factory llm.Factory
	logger  *zap.Logger
}

// NewCoordinator builds a coordinator using the given client factory.
func NewCoordinator(cfg *config.Config, factory llm.Factory) *Coordinator {
	return &Coordinator{cfg: cfg, factory: factory, logger: logging.Get()}
}

// AnalyzeAll analyzes every group concurrently and returns one outcome
// per group, in input order. Starts are staggered by the configured
// interval times the group index to avoid a burst of simultaneous
// requests; each call still retries independently through its own
// credential pool. AnalyzeAll returns only after every outcome is
// resolved.
func (c *Coordinator) AnalyzeAll(ctx context.Context, groups []grouper.Group, question string) []Outcome {
	outcomes := make([]Outcome, len(groups))
	if len(groups) == 0 {
		return outcomes
	}

	maxConcurrent := int64(c.cfg.MaxConcurrent)
	if maxConcurrent <= 0 {
		maxConcurrent = int64(len(groups))
	}
	sem := semaphore.NewWeighted(maxConcurrent)

	var wg sync.WaitGroup
	for i, group := range groups {
		wg.Add(1)
		go func(idx int, g grouper.Group) {
			defer wg.Done()
			outcomes[idx] = Outcome{Group: g.Name}

			if err := staggerWait(ctx, c.cfg.Stagger, idx); err != nil {
				outcomes[idx].Err = err
				return
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				outcomes[idx].Err = err
				return
			}
			defer sem.Release(1)

			text, err := c.analyzeOne(ctx, g, idx, len(groups), question)
			if err != nil {
				c.logger.Warn("group analysis failed",
					zap.String("group", g.Name),
					zap.Int("index", idx),
					zap.Error(err))
				outcomes[idx].Err = err
				return
			}
			outcomes[idx].Text = text
		}(i, group)
	}
	wg.Wait()
	return outcomes
}

func (c *Coordinator) analyzeOne(ctx context.Context, g grouper.Group, idx, total int, question string) (string, error) {
	instruction := g.Instruction
	if instruction == "" {
		instruction = genericInstruction
	}
	contents := renderContents(g)
	if err := tokens.CheckPromptLimit(contents, instruction, question); err != nil {
		return "", err
	}
	prompt := composePrompt(instruction, g, idx, total, contents, question)

	pool, err := rotation.NewPool(c.cfg.APIKeys)
	if err != nil {
		return "", err
	}
	opts := rotation.Options{
		Deadline:  c.cfg.RetryDeadline,
		Backoff:   c.cfg.RetryBackoff,
		Fragments: c.cfg.Fragments(),
		Logger:    c.logger,
	}
	return rotation.Execute(ctx, pool, opts, c.factory,
		func(ctx context.Context, client llm.Client) (string, error) {
			return client.Generate(ctx, prompt)
		})
}

// staggerWait delays the start of group idx by interval*idx.
func staggerWait(ctx context.Context, interval time.Duration, idx int) error {
	if interval <= 0 || idx == 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(interval * time.Duration(idx))
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
