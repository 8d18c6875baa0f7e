package review

import (
	"context"
	"fmt"

	"github.com/revbench/revbench/internal/events"
	"github.com/revbench/revbench/internal/hosting"
	"github.com/revbench/revbench/internal/provider"
)

// Request is one review cycle over a merge request. Workspace is optional:
// when set, architect suggestions are applied to it; when nil (live bot
// mode) suggestions are only posted as comments.
type Request struct {
	MR              *hosting.MergeRequest
	CTOInstructions string
	Workspace       Workspace

	// PriorReview carries the previous cycle's summary on re-review
	PriorReview string

	// Scenario names the scenario for event reporting; empty in bot mode
	Scenario string
}

// Outcome is the result of one review cycle
type Outcome struct {
	Verdict     *Verdict
	Suggestions []Suggestion
	Patch       *PatchResult
	FinalLabel  hosting.Label

	// LeadMalformed is set when the verdict came from the fallback path
	LeadMalformed bool
}

// Engine runs the two-stage review state machine against a hosting client
type Engine struct {
	provider provider.Provider
	host     hosting.Client
	bus      *events.Bus
	retry    provider.RetryPolicy
	opts     provider.Options
}

// NewEngine wires a review engine. The bus may not be nil; pass a fresh one
// if no observer cares.
func NewEngine(p provider.Provider, host hosting.Client, bus *events.Bus, retry provider.RetryPolicy, opts provider.Options) *Engine {
	return &Engine{provider: p, host: host, bus: bus, retry: retry, opts: opts}
}

func (e *Engine) emit(ev events.Event, mr *hosting.MergeRequest) {
	e.bus.Emit(ev.WithMR(mr.IID))
}

// Review runs one full cycle: lead verdict, optional architect stage,
// comments and the final label. Label moves are forward-only within a
// cycle; a regressive move is skipped, not an error.
func (e *Engine) Review(ctx context.Context, req Request) (*Outcome, error) {
	mr := req.MR
	e.emit(events.NewEvent(events.ReviewStarted, req.Scenario), mr)

	if mr.Diff == "" {
		diff, err := e.host.GetDiff(ctx, mr.Project, mr.IID)
		if err != nil {
			e.emit(events.NewEvent(events.ReviewFailed, req.Scenario).WithError(err), mr)
			return nil, fmt.Errorf("fetch diff: %w", err)
		}
		mr.Diff = diff
	}

	verdict, malformed, err := e.leadStage(ctx, req)
	if err != nil {
		e.emit(events.NewEvent(events.ReviewFailed, req.Scenario).WithError(err), mr)
		return nil, err
	}

	outcome := &Outcome{Verdict: verdict, LeadMalformed: malformed}

	if verdict.Approved() {
		e.emit(events.NewEvent(events.ReviewShortCircuit, req.Scenario).
			WithPayload(map[string]any{"decision": string(verdict.FinalDecision)}), mr)
		if err := e.finish(ctx, req, outcome, 0, 0); err != nil {
			return nil, err
		}
		return outcome, nil
	}

	suggestions, err := e.architectStage(ctx, req, verdict)
	if err != nil {
		e.emit(events.NewEvent(events.ReviewFailed, req.Scenario).WithError(err), mr)
		return nil, err
	}
	outcome.Suggestions = suggestions
	e.emit(events.NewEvent(events.ReviewSuggestions, req.Scenario).
		WithPayload(map[string]any{"count": len(suggestions)}), mr)

	applied, unapplied := 0, 0
	if req.Workspace != nil && len(suggestions) > 0 {
		outcome.Patch = Apply(req.Workspace, suggestions)
		applied, unapplied = len(outcome.Patch.Applied), len(outcome.Patch.Unapplied)
		e.emit(events.NewEvent(events.ReviewPatchApplied, req.Scenario).
			WithPayload(map[string]any{"applied": applied}), mr)
		if unapplied > 0 {
			e.emit(events.NewEvent(events.ReviewPatchUnapplied, req.Scenario).
				WithPayload(map[string]any{"unapplied": unapplied}), mr)
		}
	}

	for _, s := range suggestions {
		line := 0
		if outcome.Patch != nil {
			for _, a := range outcome.Patch.Applied {
				if a.FilePath == s.FilePath && a.BadCodeSnippet == s.BadCodeSnippet {
					line = a.Line
					break
				}
			}
		}
		if err := e.host.PostComment(ctx, mr.Project, mr.IID, hosting.Comment{
			Body:     SuggestionComment(s),
			FilePath: s.FilePath,
			Line:     line,
		}); err != nil {
			return nil, fmt.Errorf("post suggestion comment: %w", err)
		}
	}

	if err := e.finish(ctx, req, outcome, applied, unapplied); err != nil {
		return nil, err
	}
	return outcome, nil
}

// leadStage obtains the lead verdict, falling back to a safe default when
// the model's output does not parse.
func (e *Engine) leadStage(ctx context.Context, req Request) (*Verdict, bool, error) {
	system, user := LeadPrompt(LeadRequest{
		Title:           req.MR.Title,
		Description:     req.MR.Description,
		Diff:            req.MR.Diff,
		CTOInstructions: req.CTOInstructions,
		PriorReview:     req.PriorReview,
	})

	output, err := provider.CompleteWithRetry(ctx, e.provider, e.retry, system, user, e.opts)
	if err != nil {
		return nil, false, fmt.Errorf("lead completion: %w", err)
	}

	verdict, parseErr := ParseVerdict(output)
	if parseErr != nil {
		e.emit(events.NewEvent(events.ReviewLeadMalformed, req.Scenario).WithError(parseErr), req.MR)
		return FallbackVerdict(output), true, nil
	}

	e.emit(events.NewEvent(events.ReviewLeadVerdict, req.Scenario).
		WithPayload(map[string]any{
			"decision": string(verdict.FinalDecision),
			"risk":     string(verdict.RiskAssessment),
		}), req.MR)
	return verdict, false, nil
}

// architectStage obtains fix suggestions. A malformed architect reply
// degrades to zero suggestions rather than failing the cycle.
func (e *Engine) architectStage(ctx context.Context, req Request, verdict *Verdict) ([]Suggestion, error) {
	system, user := ArchitectPrompt(LeadRequest{
		Title: req.MR.Title,
		Diff:  req.MR.Diff,
	}, verdict)

	output, err := provider.CompleteWithRetry(ctx, e.provider, e.retry, system, user, e.opts)
	if err != nil {
		return nil, fmt.Errorf("architect completion: %w", err)
	}

	suggestions, parseErr := ParseSuggestions(output)
	if parseErr != nil {
		e.emit(events.NewEvent(events.ReviewLeadMalformed, req.Scenario).WithError(parseErr), req.MR)
		return nil, nil
	}
	return suggestions, nil
}

// finish posts the summary comment and advances the label
func (e *Engine) finish(ctx context.Context, req Request, outcome *Outcome, applied, unapplied int) error {
	mr := req.MR

	if err := e.host.PostComment(ctx, mr.Project, mr.IID, hosting.Comment{
		Body: SummaryComment(outcome.Verdict, applied, unapplied),
	}); err != nil {
		return fmt.Errorf("post summary comment: %w", err)
	}
	e.emit(events.NewEvent(events.ReviewCommentPosted, req.Scenario), mr)

	target := outcome.Verdict.FinalDecision.Label()
	current := mr.CurrentLabel
	if current == "" {
		var err error
		current, err = e.host.GetCurrentLabel(ctx, mr.Project, mr.IID)
		if err != nil {
			return fmt.Errorf("get current label: %w", err)
		}
	}

	if current.CanAdvanceTo(target) {
		if err := e.host.SetLabel(ctx, mr.Project, mr.IID, target); err != nil {
			return fmt.Errorf("set label: %w", err)
		}
		mr.CurrentLabel = target
		e.emit(events.NewEvent(events.ReviewLabelSet, req.Scenario).
			WithPayload(map[string]any{"label": string(target)}), mr)
	}
	outcome.FinalLabel = mr.CurrentLabel

	e.emit(events.NewEvent(events.ReviewCompleted, req.Scenario).
		WithPayload(map[string]any{"decision": string(outcome.Verdict.FinalDecision)}), mr)
	return nil
}
