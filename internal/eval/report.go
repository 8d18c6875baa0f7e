package eval

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	passStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Report renders suite results for a terminal or a plain writer
type Report struct {
	// Color enables lipgloss styling; off for non-TTY output
	Color bool
}

func (r *Report) style(s lipgloss.Style, text string) string {
	if !r.Color {
		return text
	}
	return s.Render(text)
}

func (r *Report) outcome(o Outcome) string {
	switch o {
	case OutcomePass:
		return r.style(passStyle, string(o))
	case OutcomeFail:
		return r.style(failStyle, string(o))
	default:
		return r.style(errStyle, string(o))
	}
}

func testCounts(result *ScenarioResult) (pre, post string) {
	pre, post = "-", "-"
	if t := result.PreTest; t != nil {
		pre = fmt.Sprintf("%dP/%dF", t.Passed, t.Failed+t.Errors)
	}
	if t := result.PostTest; t != nil {
		post = fmt.Sprintf("%dP/%dF", t.Passed, t.Failed+t.Errors)
	}
	return pre, post
}

// Render writes the human-readable suite report
func (r *Report) Render(w io.Writer, suite *SuiteResult) {
	fmt.Fprintf(w, "%s\n", r.style(titleStyle, "revbench evaluation report"))
	fmt.Fprintf(w, "run %s", suite.RunID)
	if suite.Model != "" {
		fmt.Fprintf(w, "  model %s", suite.Model)
	}
	fmt.Fprintf(w, "  %s\n\n", r.style(dimStyle, suite.Elapsed.Round(time.Second).String()))

	table := tablewriter.NewTable(w,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header([]string{"SCENARIO", "DIFF", "OUTCOME", "PRE", "POST", "DECISION", "TIME"})

	for _, result := range suite.Results {
		decision := "-"
		if result.Review != nil && result.Review.Verdict != nil {
			decision = string(result.Review.Verdict.FinalDecision)
		}
		pre, post := testCounts(result)

		table.Append([]string{
			result.Scenario.ID,
			strconv.Itoa(result.Scenario.ExpectedDifficulty),
			r.outcome(result.Outcome),
			pre,
			post,
			decision,
			result.Elapsed.Round(time.Second).String(),
		})
	}
	table.Render()

	fmt.Fprintf(w, "\n%s  %s  %s\n",
		r.style(passStyle, fmt.Sprintf("%d passed", suite.Count(OutcomePass))),
		r.style(failStyle, fmt.Sprintf("%d failed", suite.Count(OutcomeFail))),
		r.style(errStyle, fmt.Sprintf("%d errored", suite.Count(OutcomeError))))

	for _, result := range suite.Results {
		if result.Outcome == OutcomeError && result.Err != nil {
			fmt.Fprintf(w, "%s: %v\n", result.Scenario.ID, result.Err)
		}
	}
}
