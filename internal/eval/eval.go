// Package eval orchestrates the benchmark: provision each scenario, run the
// seeded tests, drive the review, apply fixes, and re-run the tests.
package eval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/revbench/revbench/internal/events"
	"github.com/revbench/revbench/internal/hosting"
	"github.com/revbench/revbench/internal/provision"
	"github.com/revbench/revbench/internal/review"
	"github.com/revbench/revbench/internal/scenario"
	"github.com/revbench/revbench/internal/testrunner"
)

// Outcome grades one scenario
type Outcome string

const (
	// OutcomePass means the review's applied fixes turned the tests green
	OutcomePass Outcome = "PASS"

	// OutcomeFail means the review ran but the tests stayed red
	OutcomeFail Outcome = "FAIL"

	// OutcomeError means the scenario could not be evaluated at all
	OutcomeError Outcome = "ERROR"
)

// ScenarioResult is the full record of one scenario's evaluation
type ScenarioResult struct {
	Scenario *scenario.Scenario
	Outcome  Outcome
	PreTest  *testrunner.Result
	PostTest *testrunner.Result
	Review   *review.Outcome
	Err      error
	Elapsed  time.Duration
}

// SuiteResult aggregates one full run
type SuiteResult struct {
	RunID   string
	Model   string
	Started time.Time
	Elapsed time.Duration
	Results []*ScenarioResult
}

// Count returns how many scenarios ended with the given outcome
func (s *SuiteResult) Count(o Outcome) int {
	n := 0
	for _, r := range s.Results {
		if r.Outcome == o {
			n++
		}
	}
	return n
}

// Provisioner is the slice of provisioning the suite needs
type Provisioner interface {
	Provision(ctx context.Context, sc *scenario.Scenario, runID string) (*provision.Provisioned, error)
}

// Suite runs scenarios sequentially in ascending difficulty order
type Suite struct {
	scenarios []*scenario.Scenario
	prov      Provisioner
	engine    *review.Engine
	tests     testrunner.Runner
	bus       *events.Bus

	// Model names the provider/model pair for the report
	Model string

	// Host, when set, receives a benchmark result comment on each MR
	Host hosting.Client

	// ScenarioTimeout bounds one scenario end to end; an expired scenario
	// is recorded as ERROR and the suite moves on.
	ScenarioTimeout time.Duration
}

// NewSuite wires an evaluation suite. Scenarios must already be sorted by
// difficulty, as the registry loader returns them.
func NewSuite(scenarios []*scenario.Scenario, prov Provisioner, engine *review.Engine, tests testrunner.Runner, bus *events.Bus) *Suite {
	return &Suite{
		scenarios: scenarios,
		prov:      prov,
		engine:    engine,
		tests:     tests,
		bus:       bus,
	}
}

// Run evaluates every scenario and returns the aggregated result. A failed
// or errored scenario never stops the suite.
func (s *Suite) Run(ctx context.Context) *SuiteResult {
	suite := &SuiteResult{
		RunID:   ulid.Make().String(),
		Model:   s.Model,
		Started: time.Now(),
	}

	s.bus.Emit(events.NewEvent(events.SuiteStarted, "").
		WithPayload(map[string]any{"run_id": suite.RunID, "scenarios": len(s.scenarios)}))

	for _, sc := range s.scenarios {
		if ctx.Err() != nil {
			suite.Results = append(suite.Results, &ScenarioResult{
				Scenario: sc,
				Outcome:  OutcomeError,
				Err:      ctx.Err(),
			})
			continue
		}
		suite.Results = append(suite.Results, s.runScenario(ctx, sc, suite.RunID))
	}

	suite.Elapsed = time.Since(suite.Started)
	s.bus.Emit(events.NewEvent(events.SuiteCompleted, "").
		WithPayload(map[string]any{
			"passed":  suite.Count(OutcomePass),
			"failed":  suite.Count(OutcomeFail),
			"errored": suite.Count(OutcomeError),
		}))
	return suite
}

// runScenario drives one scenario through provision, pre-test, review and
// post-test. Partial state on timeout is left as-is; the next run's cleanup
// removes it.
func (s *Suite) runScenario(ctx context.Context, sc *scenario.Scenario, runID string) *ScenarioResult {
	start := time.Now()
	result := &ScenarioResult{Scenario: sc}
	defer func() {
		result.Elapsed = time.Since(start)
		s.reportOutcome(result)
	}()

	if s.ScenarioTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.ScenarioTimeout)
		defer cancel()
	}

	s.bus.Emit(events.NewEvent(events.ScenarioStarted, sc.ID))

	provisioned, err := s.prov.Provision(ctx, sc, runID)
	if err != nil {
		result.Outcome = OutcomeError
		result.Err = err
		return result
	}
	defer provisioned.Remove()

	s.bus.Emit(events.NewEvent(events.ScenarioProvisioned, sc.ID).WithMR(provisioned.MR.IID))

	// The seeded flaw must show up as red tests, otherwise the scenario
	// proves nothing.
	pre, err := s.tests.Run(ctx, provisioned.Workdir, sc.TestCommand)
	result.PreTest = pre
	if err != nil {
		result.Outcome = OutcomeError
		result.Err = s.classify(err, "pre-review test run")
		return result
	}
	s.bus.Emit(events.NewEvent(events.ScenarioTested, sc.ID).
		WithPayload(map[string]any{"phase": "pre", "passed": pre.Passed, "failed": pre.Failed}))

	if pre.Green() {
		result.Outcome = OutcomeError
		result.Err = fmt.Errorf("scenario %s: seeded flaw not exposed, tests already green", sc.ID)
		return result
	}

	reviewOutcome, err := s.engine.Review(ctx, review.Request{
		MR:              provisioned.MR,
		CTOInstructions: sc.CTOInstructions,
		Workspace:       provisioned.Repo,
		Scenario:        sc.ID,
	})
	result.Review = reviewOutcome
	if err != nil {
		result.Outcome = OutcomeError
		result.Err = s.classify(err, "review")
		return result
	}

	if reviewOutcome.Patch != nil && len(reviewOutcome.Patch.Applied) > 0 {
		if err := provisioned.Repo.CommitAll(ctx, "Apply review suggestions"); err != nil {
			result.Outcome = OutcomeError
			result.Err = s.classify(err, "commit fixes")
			return result
		}
	}

	post, err := s.tests.Run(ctx, provisioned.Workdir, sc.TestCommand)
	result.PostTest = post
	if err != nil {
		result.Outcome = OutcomeError
		result.Err = s.classify(err, "post-review test run")
		return result
	}
	s.bus.Emit(events.NewEvent(events.ScenarioTested, sc.ID).
		WithPayload(map[string]any{"phase": "post", "passed": post.Passed, "failed": post.Failed}))

	if post.Green() {
		result.Outcome = OutcomePass
		s.advanceToMergeReady(ctx, sc.ID, provisioned.MR)
	} else {
		result.Outcome = OutcomeFail
	}

	// Best effort; a lost comment does not change the grade.
	s.postResultComment(ctx, provisioned.MR, result)
	return result
}

// advanceToMergeReady moves the MR to its terminal label once the applied
// fixes turned the tests green. The review cycle leaves the lead's label;
// the green re-test is what earns ready-for-merge.
func (s *Suite) advanceToMergeReady(ctx context.Context, scenarioID string, mr *hosting.MergeRequest) {
	if s.Host == nil {
		return
	}
	if !mr.CurrentLabel.CanAdvanceTo(hosting.LabelReadyForMerge) {
		return
	}
	if err := s.Host.SetLabel(ctx, mr.Project, mr.IID, hosting.LabelReadyForMerge); err != nil {
		return
	}
	mr.CurrentLabel = hosting.LabelReadyForMerge
	s.bus.Emit(events.NewEvent(events.ReviewLabelSet, scenarioID).WithMR(mr.IID).
		WithPayload(map[string]any{"label": string(hosting.LabelReadyForMerge)}))
}

func (s *Suite) postResultComment(ctx context.Context, mr *hosting.MergeRequest, r *ScenarioResult) {
	if s.Host == nil {
		return
	}
	body := fmt.Sprintf(
		"## Benchmark Result: %s\n\n"+
			"| Phase | Passed | Failed | Errors |\n"+
			"|-------|--------|--------|--------|\n"+
			"| pre-review | %d | %d | %d |\n"+
			"| post-review | %d | %d | %d |\n",
		r.Outcome,
		r.PreTest.Passed, r.PreTest.Failed, r.PreTest.Errors,
		r.PostTest.Passed, r.PostTest.Failed, r.PostTest.Errors,
	)
	_ = s.Host.PostComment(ctx, mr.Project, mr.IID, hosting.Comment{Body: body})
}

func (s *Suite) classify(err error, stage string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: scenario timed out", stage)
	}
	return fmt.Errorf("%s: %w", stage, err)
}

func (s *Suite) reportOutcome(r *ScenarioResult) {
	switch r.Outcome {
	case OutcomePass:
		s.bus.Emit(events.NewEvent(events.ScenarioPassed, r.Scenario.ID))
	case OutcomeFail:
		s.bus.Emit(events.NewEvent(events.ScenarioFailed, r.Scenario.ID))
	case OutcomeError:
		s.bus.Emit(events.NewEvent(events.ScenarioErrored, r.Scenario.ID).WithError(r.Err))
	}
}
