package review

import (
	"fmt"
	"strings"
)

const leadSystemPrompt = `You are the Lead Reviewer for a software team. You review merge requests
for correctness, concurrency safety, resource handling and error handling.
You are terse, specific and you never approve code you have not fully read.

Respond with a single JSON object and nothing else:

{
  "tldr": "one-line summary of the change",
  "risk_assessment": "CRITICAL | HIGH | MEDIUM | LOW",
  "review_summary": "what you found, in a few sentences",
  "architect_instructions": "what the architect should focus on when writing fixes; empty string if approving",
  "labels_to_add": ["ready-for-merge" or "changes-requested"],
  "final_decision": "APPROVE | CHANGES_REQUESTED | BLOCK"
}`

const architectSystemPrompt = `You are the Software Architect on a review team. The Lead Reviewer has
rejected a merge request and handed you instructions. Produce concrete,
minimal fixes for the problems the lead identified.

Respond with a single JSON array and nothing else. Each element:

{
  "file_path": "path of the file to fix",
  "bad_code_snippet": "the exact offending code, copied verbatim from the diff",
  "issue_type": "short category, e.g. race-condition, resource-leak",
  "description": "why this code is wrong",
  "suggested_fix": "replacement code for the snippet"
}

The bad_code_snippet must be copied character for character from the file so
it can be located and replaced mechanically.`

// LeadRequest carries everything the lead reviewer sees
type LeadRequest struct {
	Title           string
	Description     string
	Diff            string
	CTOInstructions string

	// PriorReview is the previous cycle's summary when re-reviewing after
	// a new commit; empty on first review.
	PriorReview string
}

// LeadPrompt renders the lead reviewer's user prompt
func LeadPrompt(req LeadRequest) (system, user string) {
	var b strings.Builder

	fmt.Fprintf(&b, "## Merge Request: %s\n\n", req.Title)
	if req.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", req.Description)
	}
	if req.CTOInstructions != "" {
		fmt.Fprintf(&b, "## Instructions from the CTO\n\n%s\n\n", req.CTOInstructions)
	}
	if req.PriorReview != "" {
		fmt.Fprintf(&b, "## Previous review of this MR\n\nA new commit was pushed since this review. Re-review the updated diff; check whether the earlier findings were addressed.\n\n%s\n\n", req.PriorReview)
	}
	fmt.Fprintf(&b, "## Diff\n\n```diff\n%s\n```\n", req.Diff)

	return leadSystemPrompt, b.String()
}

// ArchitectPrompt renders the architect's user prompt from the lead's verdict
func ArchitectPrompt(req LeadRequest, verdict *Verdict) (system, user string) {
	var b strings.Builder

	fmt.Fprintf(&b, "## Merge Request: %s\n\n", req.Title)
	fmt.Fprintf(&b, "## Lead reviewer's findings\n\n%s\n\n", verdict.ReviewSummary)
	if verdict.ArchitectInstructions != "" {
		fmt.Fprintf(&b, "## Lead reviewer's instructions to you\n\n%s\n\n", verdict.ArchitectInstructions)
	}
	fmt.Fprintf(&b, "## Diff\n\n```diff\n%s\n```\n", req.Diff)

	return architectSystemPrompt, b.String()
}

// SummaryComment renders the MR comment posted after a review cycle
func SummaryComment(verdict *Verdict, applied, unapplied int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Automated Review\n\n")
	fmt.Fprintf(&b, "**TL;DR:** %s\n\n", verdict.TLDR)
	fmt.Fprintf(&b, "**Risk:** %s\n", verdict.RiskAssessment)
	fmt.Fprintf(&b, "**Decision:** %s\n\n", verdict.FinalDecision)
	fmt.Fprintf(&b, "%s\n", verdict.ReviewSummary)

	if applied > 0 || unapplied > 0 {
		fmt.Fprintf(&b, "\n---\n\nSuggested fixes applied: %d", applied)
		if unapplied > 0 {
			fmt.Fprintf(&b, " (%d could not be located in the current sources)", unapplied)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// SuggestionComment renders one architect suggestion as an inline comment
func SuggestionComment(s Suggestion) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**%s**\n\n%s\n\n", s.IssueType, s.Description)
	fmt.Fprintf(&b, "```\n%s\n```\n\nSuggested fix:\n\n```\n%s\n```\n", s.BadCodeSnippet, s.SuggestedFix)

	return b.String()
}
