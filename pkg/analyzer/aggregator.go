package analyzer

import (
	"fmt"
	"strings"
	"time"
)

// Aggregate merges per-group outcomes into the final report. Pure and
// synchronous: sections appear in original group order, failed groups
// included as first-class content, followed by a fixed summary block.
func Aggregate(outcomes []Outcome, question, mode string) string {
	var sb strings.Builder

	sb.WriteString("# Codebase Analysis Report\n\n")
	fmt.Fprintf(&sb, "**Question:** %s\n\n", question)

	succeeded := 0
	for i, o := range outcomes {
		name := o.Group
		if name == "" {
			name = fmt.Sprintf("Group %d", i+1)
		}
		fmt.Fprintf(&sb, "## Batch %d: %s\n\n", i+1, name)
		if o.Failed() {
			fmt.Fprintf(&sb, "**Analysis failed for this batch:** %v\n\n", o.Err)
			continue
		}
		succeeded++
		sb.WriteString(o.Text)
		if !strings.HasSuffix(o.Text, "\n") {
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')
	}

	sb.WriteString("---\n\n## Summary\n\n")
	fmt.Fprintf(&sb, "- Batches analyzed: %d\n", len(outcomes))
	fmt.Fprintf(&sb, "- Succeeded: %d\n", succeeded)
	fmt.Fprintf(&sb, "- Failed: %d\n", len(outcomes)-succeeded)
	fmt.Fprintf(&sb, "- Mode: %s\n", mode)
	fmt.Fprintf(&sb, "- Generated: %s\n", time.Now().UTC().Format(time.RFC3339))

	return sb.String()
}
