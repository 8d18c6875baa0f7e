// Package review implements the two-stage merge request review: a lead
// reviewer producing a verdict, and an architect producing concrete fix
// suggestions when the lead requests changes.
package review

import "github.com/revbench/revbench/internal/hosting"

// Decision is the lead reviewer's final call on an MR
type Decision string

const (
	DecisionApprove          Decision = "APPROVE"
	DecisionChangesRequested Decision = "CHANGES_REQUESTED"
	DecisionBlock            Decision = "BLOCK"
)

// Valid reports whether the decision is one of the known values
func (d Decision) Valid() bool {
	switch d {
	case DecisionApprove, DecisionChangesRequested, DecisionBlock:
		return true
	}
	return false
}

// Label maps the decision to the review label it implies
func (d Decision) Label() hosting.Label {
	if d == DecisionApprove {
		return hosting.LabelReadyForMerge
	}
	return hosting.LabelChangesRequested
}

// RiskLevel grades the severity of what the lead found
type RiskLevel string

const (
	RiskCritical RiskLevel = "CRITICAL"
	RiskHigh     RiskLevel = "HIGH"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskLow      RiskLevel = "LOW"
)

// Valid reports whether the risk level is one of the known values
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskCritical, RiskHigh, RiskMedium, RiskLow:
		return true
	}
	return false
}

// Verdict is the lead reviewer's structured assessment. Raw always holds the
// model's unparsed output, so a malformed reply is never lost.
type Verdict struct {
	TLDR                  string    `json:"tldr"`
	RiskAssessment        RiskLevel `json:"risk_assessment"`
	ReviewSummary         string    `json:"review_summary"`
	ArchitectInstructions string    `json:"architect_instructions"`
	LabelsToAdd           []string  `json:"labels_to_add"`
	FinalDecision         Decision  `json:"final_decision"`

	Raw string `json:"-"`
}

// Approved reports whether the verdict short-circuits the architect stage
func (v *Verdict) Approved() bool {
	return v.FinalDecision == DecisionApprove
}

// ReviewLabels filters LabelsToAdd down to recognized review labels
func (v *Verdict) ReviewLabels() []hosting.Label {
	var labels []hosting.Label
	for _, raw := range v.LabelsToAdd {
		if l, ok := hosting.ParseLabel(raw); ok {
			labels = append(labels, l)
		}
	}
	return labels
}

// Suggestion is one concrete fix from the architect: the offending snippet
// and its replacement.
type Suggestion struct {
	FilePath       string `json:"file_path"`
	BadCodeSnippet string `json:"bad_code_snippet"`
	IssueType      string `json:"issue_type"`
	Description    string `json:"description"`
	SuggestedFix   string `json:"suggested_fix"`
}
