// Package testrunner executes a scenario's test command in its working
// tree and parses the outcome from the tool's summary line.
package testrunner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"regexp"
	"strconv"
	"time"
)

// Result is one test run, parsed from pytest-style summary output
type Result struct {
	Passed  int
	Failed  int
	Errors  int
	Output  string
	Elapsed time.Duration

	// StartFailed is set when the command could not run at all
	StartFailed bool
}

// Green reports whether the run is fully passing: at least one test ran and
// nothing failed or errored.
func (r *Result) Green() bool {
	return !r.StartFailed && r.Passed > 0 && r.Failed == 0 && r.Errors == 0
}

// Total returns the number of tests accounted for
func (r *Result) Total() int {
	return r.Passed + r.Failed + r.Errors
}

var (
	passedRe = regexp.MustCompile(`(\d+) passed`)
	failedRe = regexp.MustCompile(`(\d+) failed`)
	errorRe  = regexp.MustCompile(`(\d+) error`)
)

// ParseOutput extracts pass/fail/error counts from test tool output
func ParseOutput(output string) (passed, failed, errored int) {
	if m := passedRe.FindStringSubmatch(output); m != nil {
		passed, _ = strconv.Atoi(m[1])
	}
	if m := failedRe.FindStringSubmatch(output); m != nil {
		failed, _ = strconv.Atoi(m[1])
	}
	if m := errorRe.FindStringSubmatch(output); m != nil {
		errored, _ = strconv.Atoi(m[1])
	}
	return passed, failed, errored
}

// Runner executes test commands. The exec-backed implementation is the
// default; tests substitute their own.
type Runner interface {
	Run(ctx context.Context, dir, command string) (*Result, error)
}

// ExecRunner runs test commands through the shell
type ExecRunner struct {
	// Timeout bounds one test run; zero means the context alone governs
	Timeout time.Duration
}

// NewExecRunner creates a runner with the given per-run timeout
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Timeout: timeout}
}

// Run executes the command in dir and parses its output. A non-zero exit
// with parseable counts is a normal failing run, not an error; only a
// command that produced no recognizable summary counts as a start failure.
func (e *ExecRunner) Run(ctx context.Context, dir, command string) (*Result, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	runErr := cmd.Run()
	elapsed := time.Since(start)

	result := &Result{Output: out.String(), Elapsed: elapsed}
	result.Passed, result.Failed, result.Errors = ParseOutput(result.Output)

	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
		return result, context.DeadlineExceeded
	}

	if runErr != nil && result.Total() == 0 {
		// The tool never ran: missing interpreter, bad command, crash
		// before collection. Count it as a fully failing run.
		result.StartFailed = true
		result.Failed = 1
	}

	return result, nil
}

var _ Runner = (*ExecRunner)(nil)
