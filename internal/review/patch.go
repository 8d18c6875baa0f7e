package review

import (
	"strings"
	"unicode"
)

// SimilarityThreshold is the minimum normalized similarity for a fuzzy
// snippet match. Below it, a suggestion is recorded as unapplied rather
// than risk rewriting the wrong code.
const SimilarityThreshold = 0.85

// Workspace is the file access the patcher needs. *gitrepo.Repo satisfies it.
type Workspace interface {
	ReadFile(path string) (string, error)
	WriteFile(path, content string) error
}

// AppliedFix is a suggestion that was located and written to the workspace
type AppliedFix struct {
	Suggestion
	// Line is the 1-based line where the replacement starts
	Line int
	// Fuzzy is set when the snippet matched by similarity, not verbatim
	Fuzzy bool
}

// UnappliedFix is a suggestion whose snippet could not be located
type UnappliedFix struct {
	Suggestion
	Reason string
}

// PatchResult records what the patcher did with each suggestion
type PatchResult struct {
	Applied   []AppliedFix
	Unapplied []UnappliedFix
}

// Apply writes each suggestion into the workspace. A snippet is matched
// verbatim first, then by whitespace-insensitive similarity against sliding
// line windows. Suggestions that match nowhere are recorded, never guessed.
func Apply(ws Workspace, suggestions []Suggestion) *PatchResult {
	result := &PatchResult{}

	for _, s := range suggestions {
		content, err := ws.ReadFile(s.FilePath)
		if err != nil {
			result.Unapplied = append(result.Unapplied, UnappliedFix{
				Suggestion: s,
				Reason:     "file not readable: " + err.Error(),
			})
			continue
		}

		patched, line, fuzzy, ok := replaceSnippet(content, s.BadCodeSnippet, s.SuggestedFix)
		if !ok {
			result.Unapplied = append(result.Unapplied, UnappliedFix{
				Suggestion: s,
				Reason:     "snippet not found in file",
			})
			continue
		}

		if err := ws.WriteFile(s.FilePath, patched); err != nil {
			result.Unapplied = append(result.Unapplied, UnappliedFix{
				Suggestion: s,
				Reason:     "write failed: " + err.Error(),
			})
			continue
		}

		result.Applied = append(result.Applied, AppliedFix{Suggestion: s, Line: line, Fuzzy: fuzzy})
	}

	return result
}

// replaceSnippet returns content with the first match of snippet replaced by
// fix, the 1-based line of the match, and whether the match was fuzzy. The
// final result reports whether any match was found.
func replaceSnippet(content, snippet, fix string) (patched string, line int, fuzzy, ok bool) {
	if idx := strings.Index(content, snippet); idx != -1 {
		line := 1 + strings.Count(content[:idx], "\n")
		return content[:idx] + fix + content[idx+len(snippet):], line, false, true
	}

	lines := strings.Split(content, "\n")
	snippetLines := strings.Split(strings.TrimSpace(snippet), "\n")
	normSnippet := normalizeCode(snippet)

	bestRatio := 0.0
	bestStart, bestSize := -1, 0

	// Windows two lines either side of the snippet's own length absorb
	// minor reformatting by the model.
	for size := len(snippetLines) - 2; size <= len(snippetLines)+2; size++ {
		if size < 1 {
			continue
		}
		for start := 0; start+size <= len(lines); start++ {
			window := strings.Join(lines[start:start+size], "\n")
			ratio := similarity(normSnippet, normalizeCode(window))
			if ratio > bestRatio {
				bestRatio = ratio
				bestStart, bestSize = start, size
			}
		}
	}

	if bestRatio < SimilarityThreshold || bestStart == -1 {
		return "", 0, false, false
	}

	var b strings.Builder
	b.WriteString(strings.Join(lines[:bestStart], "\n"))
	if bestStart > 0 {
		b.WriteString("\n")
	}
	b.WriteString(fix)
	if bestStart+bestSize < len(lines) {
		b.WriteString("\n")
		b.WriteString(strings.Join(lines[bestStart+bestSize:], "\n"))
	}
	return b.String(), bestStart + 1, true, true
}

// normalizeCode strips all whitespace so formatting differences do not
// affect matching.
func normalizeCode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// similarity is the classic ratio 2*M/T where M is the length of the
// longest common subsequence and T the combined length.
func similarity(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	// Single-row LCS keeps memory linear in the shorter string
	if len(b) < len(a) {
		a, b = b, a
	}
	prev := make([]int, len(a)+1)
	cur := make([]int, len(a)+1)

	for i := 1; i <= len(b); i++ {
		for j := 1; j <= len(a); j++ {
			if b[i-1] == a[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}

	lcs := prev[len(a)]
	return 2.0 * float64(lcs) / float64(len(a)+len(b))
}
