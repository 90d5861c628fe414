// Package tokens approximates LLM token costs for text and source
// files. The estimates deliberately over-count relative to a real
// tokenizer so that callers can treat them as an upper bound when
// packing content against a provider context window.
package tokens

import (
	"fmt"
	"math"
	"strings"
)

// PromptTokenLimit is the hard ceiling for a single request. Requests
// estimated above it are rejected before any network call.
const PromptTokenLimit = 1_000_000

// syntaxChars are punctuation and structural characters that
// tokenizers tend to split on.
const syntaxChars = "{}[]();,.<>/\\=+-*&|!@#$%^`~"

// structuralKeywords inflate the file-level estimate; source files
// dense with declarations tokenize worse than prose.
var structuralKeywords = []string{
	"function", "class", "interface", "import", "export", "const", "let", "var",
}

// EstimateText approximates the token cost of arbitrary text.
// Deterministic and pure; every weighted term is rounded up on its
// own so adding structure never lowers the estimate.
func EstimateText(text string) int {
	if text == "" {
		return 0
	}
	base := ceilDiv(len(text), 4)
	newlines := strings.Count(text, "\n")
	spaces := strings.Count(text, " ")
	syntax := countAny(text, syntaxChars)

	return base +
		ceilWeighted(newlines, 0.5) +
		ceilWeighted(spaces, 0.1) +
		ceilWeighted(syntax, 0.2)
}

// EstimateFile approximates the token cost of source file content. It
// differs from EstimateText by weighting runs of indentation instead
// of individual spaces and by charging for structural keywords.
func EstimateFile(content string) int {
	if content == "" {
		return 0
	}
	base := ceilDiv(len(content), 4)
	newlines := strings.Count(content, "\n")
	spaceRuns := countSpaceRuns(content)
	syntax := countAny(content, syntaxChars)

	keywords := 0
	for _, kw := range structuralKeywords {
		keywords += strings.Count(content, kw)
	}

	return base +
		ceilWeighted(newlines, 0.5) +
		ceilWeighted(spaceRuns, 0.3) +
		ceilWeighted(syntax, 0.2) +
		keywords*2
}

// CheckPromptLimit verifies that content, instruction and question
// together fit under PromptTokenLimit. It returns a descriptive error
// when they do not, so the caller can fail before wasting a network
// round trip on a request the provider would reject.
func CheckPromptLimit(content, instruction, question string) error {
	total := EstimateFile(content) + EstimateText(instruction) + EstimateText(question)
	if total > PromptTokenLimit {
		return fmt.Errorf("estimated prompt size %d tokens exceeds the %d token limit; split the content into smaller groups", total, PromptTokenLimit)
	}
	return nil
}

// countSpaceRuns counts maximal runs of consecutive spaces.
func countSpaceRuns(s string) int {
	runs := 0
	inRun := false
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' {
			if !inRun {
				runs++
				inRun = true
			}
		} else {
			inRun = false
		}
	}
	return runs
}

func countAny(s, chars string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(chars, s[i]) >= 0 {
			n++
		}
	}
	return n
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func ceilWeighted(count int, weight float64) int {
	if count == 0 {
		return 0
	}
	return int(math.Ceil(float64(count) * weight))
}
