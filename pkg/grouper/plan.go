package grouper

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"codescope/pkg/logging"
	"codescope/pkg/manifest"
)

// ErrMalformedPlan marks plan input that cannot be parsed or fails
// validation. It is a rejected request, not a crash.
var ErrMalformedPlan = errors.New("malformed group plan")

const planVersion = 1

// PlanFile is one file reference inside a persisted plan. Content is
// deliberately absent; it is re-read from disk at analysis time.
type PlanFile struct {
	Path   string `json:"path"`
	Tokens int    `json:"tokens"`
}

// PlanGroup is the serialized form of one Group.
type PlanGroup struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Instruction string     `json:"instruction,omitempty"`
	Tokens      int        `json:"tokens"`
	Files       []PlanFile `json:"files"`
}

// GroupPlan is the artifact handed to the caller between the
// create-groups and analyze-groups phases. It is the only contract
// across that boundary; no in-memory state survives it.
type GroupPlan struct {
	Version     int         `json:"version"`
	ID          string      `json:"id"`
	CreatedAt   time.Time   `json:"created_at"`
	Root        string      `json:"root"`
	Ceiling     int         `json:"ceiling"`
	TotalFiles  int         `json:"total_files"`
	TotalTokens int         `json:"total_tokens"`
	Groups      []PlanGroup `json:"groups"`
}

// NewPlan snapshots groups into a serializable plan.
func NewPlan(root string, ceiling int, groups []Group) *GroupPlan {
	plan := &GroupPlan{
		Version:   planVersion,
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Root:      root,
		Ceiling:   ceiling,
	}
	for _, g := range groups {
		pg := PlanGroup{
			Name:        g.Name,
			Description: g.Description,
			Instruction: g.Instruction,
			Tokens:      g.Tokens,
		}
		for _, f := range g.Files {
			pg.Files = append(pg.Files, PlanFile{Path: f.Path, Tokens: f.Tokens})
			plan.TotalFiles++
			plan.TotalTokens += f.Tokens
		}
		plan.Groups = append(plan.Groups, pg)
	}
	return plan
}

// Encode renders the plan as indented JSON.
func (p *GroupPlan) Encode() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// DecodePlan parses and validates a serialized plan.
func DecodePlan(data []byte) (*GroupPlan, error) {
	var plan GroupPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPlan, err)
	}
	if len(plan.Groups) == 0 {
		return nil, fmt.Errorf("%w: plan contains no groups", ErrMalformedPlan)
	}
	for gi, g := range plan.Groups {
		if len(g.Files) == 0 {
			return nil, fmt.Errorf("%w: group %d (%q) has no files", ErrMalformedPlan, gi+1, g.Name)
		}
		for _, f := range g.Files {
			if f.Path == "" {
				return nil, fmt.Errorf("%w: group %d (%q) has a file without a path", ErrMalformedPlan, gi+1, g.Name)
			}
			if strings.HasPrefix(f.Path, "/") || strings.Contains(f.Path, "..") {
				return nil, fmt.Errorf("%w: path %q escapes the workspace root", ErrMalformedPlan, f.Path)
			}
		}
	}
	return &plan, nil
}

// Rehydrate re-reads the planned files from disk under root. Files
// that disappeared (or turned binary) since the plan was created are
// skipped with a warning; a plan whose files are all gone is an
// error. Content is never assumed to match what was scanned at plan
// time; token costs are re-estimated from current content.
func (p *GroupPlan) Rehydrate(root string) ([]Group, error) {
	logger := logging.Get()

	var groups []Group
	alive := 0
	for _, pg := range p.Groups {
		g := Group{
			Name:        pg.Name,
			Description: pg.Description,
			Instruction: pg.Instruction,
		}
		for _, f := range pg.Files {
			rec, err := manifest.Read(root, f.Path)
			if err != nil {
				logger.Warn("planned file no longer readable, skipping",
					zap.String("path", f.Path), zap.Error(err))
				continue
			}
			if rec == nil {
				logger.Warn("planned file is no longer text, skipping", zap.String("path", f.Path))
				continue
			}
			g.Files = append(g.Files, *rec)
			g.Tokens += rec.Tokens
		}
		if len(g.Files) == 0 {
			logger.Warn("group lost all of its files since planning, dropping",
				zap.String("group", pg.Name))
			continue
		}
		alive += len(g.Files)
		groups = append(groups, g)
	}
	if alive == 0 {
		return nil, manifest.ErrNoReadableFiles
	}
	return groups, nil
}
