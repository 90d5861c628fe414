package grouper

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"codescope/pkg/config"
	"codescope/pkg/llm"
	"codescope/pkg/logging"
	"codescope/pkg/manifest"
	"codescope/pkg/rotation"
)

// Planner produces groups for a manifest, preferring an AI-proposed
// partitioning and falling back to deterministic packing whenever the
// proposal cannot be obtained or trusted.
type Planner struct {
	cfg     *config.Config
	factory llm.Factory
	logger  *zap.Logger
}

// NewPlanner builds a planner. factory may be nil, which forces the
// deterministic strategy.
func NewPlanner(cfg *config.Config, factory llm.Factory) *Planner {
	return &Planner{cfg: cfg, factory: factory, logger: logging.Get()}
}

// Plan partitions records into groups of at most ceiling tokens. The
// result always covers every input file exactly once regardless of
// which strategy produced it.
func (p *Planner) Plan(ctx context.Context, records []manifest.FileRecord, ceiling int) []Group {
	if p.factory == nil || len(p.cfg.APIKeys) == 0 {
		return PackAscending(records, ceiling)
	}

	prop, err := p.propose(ctx, records)
	if err != nil {
		p.logger.Warn("assisted grouping unavailable, using deterministic packing", zap.Error(err))
		return PackAscending(records, ceiling)
	}
	return applyProposal(records, prop, ceiling)
}

// proposal is the structured grouping the model is asked to return.
type proposal struct {
	Groups []proposedGroup `json:"groups"`
}

type proposedGroup struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Instruction string   `json:"instruction"`
	Files       []string `json:"files"`
}

const proposalInstruction = `You are organizing a codebase for analysis in token-bounded batches.
Group the files below into coherent groups (by feature, layer or directory) whose total token costs each stay under the ceiling.
For each group also write one specialized analysis instruction tailored to what that group contains.
Respond with ONLY a JSON object of the form:
{"groups":[{"name":"...","description":"...","instruction":"...","files":["path1","path2"]}]}`

// propose sends the structural manifest (never file content) to the
// model and parses its grouping proposal.
func (p *Planner) propose(ctx context.Context, records []manifest.FileRecord) (*proposal, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Token ceiling per group: %d\n\nFiles (path | directory | extension | bytes | estimated tokens):\n", p.cfg.TokenCeiling)
	for _, r := range records {
		fmt.Fprintf(&sb, "%s | %s | %s | %d | %d\n", r.Path, path.Dir(r.Path), r.Ext, r.Size, r.Tokens)
	}

	prompt := proposalInstruction + "\n\n" + sb.String()

	pool, err := rotation.NewPool(p.cfg.APIKeys)
	if err != nil {
		return nil, err
	}
	opts := rotation.Options{
		Deadline:  p.cfg.RetryDeadline,
		Backoff:   p.cfg.RetryBackoff,
		Fragments: p.cfg.Fragments(),
		Logger:    p.logger,
	}
	raw, err := rotation.Execute(ctx, pool, opts, p.factory,
		func(ctx context.Context, client llm.Client) (string, error) {
			return client.Generate(ctx, prompt)
		})
	if err != nil {
		return nil, fmt.Errorf("requesting grouping proposal: %w", err)
	}
	return parseProposal(raw)
}

// parseProposal extracts the JSON object from the model's reply,
// tolerating markdown fences and surrounding chatter.
func parseProposal(raw string) (*proposal, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in proposal response")
	}
	var prop proposal
	if err := json.Unmarshal([]byte(raw[start:end+1]), &prop); err != nil {
		return nil, fmt.Errorf("parsing proposal: %w", err)
	}
	if len(prop.Groups) == 0 {
		return nil, fmt.Errorf("proposal contains no groups")
	}
	return &prop, nil
}

// applyProposal turns an untrusted proposal into valid groups:
// unknown paths are dropped, duplicate claims go to the first group,
// over-ceiling groups are re-packed deterministically, and files the
// proposal never claimed are packed and appended. The output covers
// every manifest file exactly once.
func applyProposal(records []manifest.FileRecord, prop *proposal, ceiling int) []Group {
	byPath := make(map[string]manifest.FileRecord, len(records))
	for _, r := range records {
		byPath[r.Path] = r
	}
	claimed := make(map[string]bool, len(records))

	var groups []Group
	for _, pg := range prop.Groups {
		g := Group{
			Name:        pg.Name,
			Description: pg.Description,
			Instruction: pg.Instruction,
		}
		for _, p := range pg.Files {
			rec, ok := byPath[p]
			if !ok || claimed[p] {
				continue
			}
			claimed[p] = true
			g.Files = append(g.Files, rec)
			g.Tokens += rec.Tokens
		}
		if len(g.Files) == 0 {
			continue
		}
		if g.Tokens > ceiling {
			// The proposal blew the budget for this group; its file
			// set is kept but re-partitioned by the ground truth.
			for i, part := range PackAscending(g.Files, ceiling) {
				part.Name = fmt.Sprintf("%s (part %d)", g.Name, i+1)
				part.Description = g.Description
				part.Instruction = g.Instruction
				groups = append(groups, part)
			}
			continue
		}
		groups = append(groups, g)
	}

	var unclaimed []manifest.FileRecord
	for _, r := range records {
		if !claimed[r.Path] {
			unclaimed = append(unclaimed, r)
		}
	}
	if len(unclaimed) > 0 {
		base := len(groups)
		for i, g := range PackAscending(unclaimed, ceiling) {
			g.Name = fmt.Sprintf("Group %d", base+i+1)
			groups = append(groups, g)
		}
	}

	for i := range groups {
		if groups[i].Name == "" {
			groups[i].Name = fmt.Sprintf("Group %d", i+1)
		}
	}
	return groups
}
