package analyzer

import (
	"fmt"
	"strings"

	"codescope/pkg/grouper"
)

const genericInstruction = `You are analyzing one portion of a larger codebase. Answer the question using only the files provided in this batch. Be specific: cite file paths and symbols. If this batch does not contain the relevant code, say so briefly instead of speculating.`

const (
	fileOpen  = "===== FILE: %s =====\n"
	fileClose = "===== END FILE: %s =====\n\n"
)

// renderContents concatenates a group's files with per-file delimiters
// so the model can attribute findings to paths.
func renderContents(g grouper.Group) string {
	var sb strings.Builder
	for _, f := range g.Files {
		fmt.Fprintf(&sb, fileOpen, f.Path)
		sb.WriteString(f.Content)
		if !strings.HasSuffix(f.Content, "\n") {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, fileClose, f.Path)
	}
	return sb.String()
}

// composePrompt assembles the full analysis prompt for one group.
func composePrompt(instruction string, g grouper.Group, idx, total int, contents, question string) string {
	var sb strings.Builder
	sb.WriteString(instruction)
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "This is batch %d of %d", idx+1, total)
	if g.Name != "" {
		fmt.Fprintf(&sb, ": %s", g.Name)
	}
	if g.Description != "" {
		fmt.Fprintf(&sb, " (%s)", g.Description)
	}
	sb.WriteString(".\n\n")

	sb.WriteString(contents)

	sb.WriteString("Question: ")
	sb.WriteString(question)
	sb.WriteString("\n")
	return sb.String()
}
