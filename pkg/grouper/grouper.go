// Package grouper partitions a file manifest into token-bounded
// groups. The deterministic greedy packer is the ground truth; an
// AI-proposed grouping is accepted only where it respects the token
// ceiling, and anything it gets wrong is re-packed deterministically.
package grouper

import (
	"fmt"
	"sort"

	"codescope/pkg/manifest"
)

// Group is an ordered set of files analyzed as one LLM call. Total
// stays at or under the ceiling except for the single-oversized-file
// escape case.
type Group struct {
	Name        string
	Description string
	// Instruction, when set, replaces the generic analysis instruction
	// for this group. Proposed by the assisted strategy.
	Instruction string
	Files       []manifest.FileRecord
	Tokens      int
}

// PackAscending greedily packs files into groups of at most ceiling
// tokens. Files are sorted ascending by cost (ties broken by path) so
// small files coalesce; a single file above the ceiling becomes its
// own group, since files are atomic. Pure and deterministic.
func PackAscending(records []manifest.FileRecord, ceiling int) []Group {
	if len(records) == 0 {
		return nil
	}

	sorted := make([]manifest.FileRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Tokens != sorted[j].Tokens {
			return sorted[i].Tokens < sorted[j].Tokens
		}
		return sorted[i].Path < sorted[j].Path
	})

	var groups []Group
	current := Group{}
	for _, rec := range sorted {
		if len(current.Files) > 0 && current.Tokens+rec.Tokens > ceiling {
			groups = append(groups, current)
			current = Group{}
		}
		current.Files = append(current.Files, rec)
		current.Tokens += rec.Tokens
	}
	if len(current.Files) > 0 {
		groups = append(groups, current)
	}

	for i := range groups {
		if groups[i].Name == "" {
			groups[i].Name = fmt.Sprintf("Group %d", i+1)
		}
	}
	return groups
}

// TotalTokens sums the cost of every group.
func TotalTokens(groups []Group) int {
	total := 0
	for _, g := range groups {
		total += g.Tokens
	}
	return total
}
