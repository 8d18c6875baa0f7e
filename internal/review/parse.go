package review

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// SchemaError represents a validation failure in model output
type SchemaError struct {
	Field   string
	Message string
}

func (e SchemaError) Error() string {
	return fmt.Sprintf("schema validation failed: %s - %s", e.Field, e.Message)
}

// ParseVerdict parses the lead reviewer's output. The raw output is always
// attached to the returned verdict, valid or not.
func ParseVerdict(output string) (*Verdict, error) {
	jsonStr := extractJSON(stripFences(output))
	if jsonStr == "" {
		return nil, SchemaError{Field: "json", Message: "no JSON object found in output"}
	}

	var v Verdict
	if err := decodeJSON(jsonStr, &v); err != nil {
		return nil, SchemaError{Field: "json", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	v.Raw = output

	if !v.FinalDecision.Valid() {
		return nil, SchemaError{Field: "final_decision",
			Message: fmt.Sprintf("must be APPROVE, CHANGES_REQUESTED or BLOCK, got: %s", v.FinalDecision)}
	}
	if !v.RiskAssessment.Valid() {
		return nil, SchemaError{Field: "risk_assessment",
			Message: fmt.Sprintf("must be CRITICAL, HIGH, MEDIUM or LOW, got: %s", v.RiskAssessment)}
	}
	if v.ReviewSummary == "" {
		return nil, SchemaError{Field: "review_summary", Message: "review_summary cannot be empty"}
	}

	return &v, nil
}

// FallbackVerdict is the safe default when the lead's output cannot be
// parsed: request changes at high risk, never approve on garbage.
func FallbackVerdict(output string) *Verdict {
	return &Verdict{
		TLDR:           "Automated review could not parse the lead verdict.",
		RiskAssessment: RiskHigh,
		ReviewSummary:  "The lead reviewer returned output that did not match the expected format. Treating the change as requiring manual attention.",
		FinalDecision:  DecisionChangesRequested,
		Raw:            output,
	}
}

// ParseSuggestions parses the architect's output, a JSON array of fix
// suggestions. Suggestions missing a file path or snippet are dropped.
func ParseSuggestions(output string) ([]Suggestion, error) {
	jsonStr := extractJSONArray(stripFences(output))
	if jsonStr == "" {
		return nil, SchemaError{Field: "json", Message: "no JSON array found in output"}
	}

	var all []Suggestion
	if err := decodeJSON(jsonStr, &all); err != nil {
		return nil, SchemaError{Field: "json", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}

	var valid []Suggestion
	for _, s := range all {
		if s.FilePath == "" || s.BadCodeSnippet == "" || s.SuggestedFix == "" {
			continue
		}
		valid = append(valid, s)
	}
	return valid, nil
}

var trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)

// decodeJSON unmarshals model output, making a second, stricter pass when
// the first fails. Models routinely leave a trailing comma before a closing
// brace or bracket; the repair removes those and retries.
func decodeJSON(jsonStr string, v any) error {
	err := json.Unmarshal([]byte(jsonStr), v)
	if err == nil {
		return nil
	}

	repaired := trailingCommaRe.ReplaceAllString(jsonStr, "$1")
	if repaired == jsonStr {
		return err
	}
	return json.Unmarshal([]byte(repaired), v)
}

// extractJSON finds and extracts a JSON object from surrounding text
func extractJSON(output string) string {
	firstBrace := strings.Index(output, "{")
	lastBrace := strings.LastIndex(output, "}")

	if firstBrace == -1 || lastBrace == -1 || firstBrace >= lastBrace {
		return ""
	}

	return output[firstBrace : lastBrace+1]
}

// extractJSONArray finds and extracts a JSON array from surrounding text
func extractJSONArray(output string) string {
	firstBracket := strings.Index(output, "[")
	lastBracket := strings.LastIndex(output, "]")

	if firstBracket == -1 || lastBracket == -1 || firstBracket >= lastBracket {
		return ""
	}

	return output[firstBracket : lastBracket+1]
}

// stripFences removes a wrapping markdown code fence, with or without a
// language tag.
func stripFences(output string) string {
	trimmed := strings.TrimSpace(output)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	if nl := strings.Index(trimmed, "\n"); nl != -1 {
		// Drop the language tag line
		first := strings.TrimSpace(trimmed[:nl])
		if first == "json" || first == "" {
			trimmed = trimmed[nl+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
