package gitrepo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type fakeRunner struct {
	mu    sync.Mutex
	out   map[string]string
	fail  map[string]error
	calls []fakeCall
}

type fakeCall struct {
	dir   string
	stdin string
	args  []string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		out:  make(map[string]string),
		fail: make(map[string]error),
	}
}

func (f *fakeRunner) stub(args, out string) {
	f.out[args] = out
}

func (f *fakeRunner) stubErr(args string, err error) {
	f.fail[args] = err
}

func (f *fakeRunner) record(dir, stdin string, args []string) (string, error) {
	key := strings.Join(args, " ")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fakeCall{dir: dir, stdin: stdin, args: append([]string(nil), args...)})
	if err, ok := f.fail[key]; ok {
		return "", err
	}
	return f.out[key], nil
}

func (f *fakeRunner) Exec(_ context.Context, dir string, args ...string) (string, error) {
	return f.record(dir, "", args)
}

func (f *fakeRunner) ExecWithStdin(_ context.Context, dir string, stdin string, args ...string) (string, error) {
	return f.record(dir, stdin, args)
}

func (f *fakeRunner) lastCall() fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func TestCommitAllStagesEverything(t *testing.T) {
	runner := newFakeRunner()
	repo := OpenWithRunner("/tmp/work", runner)

	if err := repo.CommitAll(context.Background(), "Init: base architecture and tests"); err != nil {
		t.Fatalf("CommitAll failed: %v", err)
	}

	if len(runner.calls) != 2 {
		t.Fatalf("expected 2 git calls, got %d", len(runner.calls))
	}
	if got := strings.Join(runner.calls[0].args, " "); got != "add -A" {
		t.Errorf("first call = %q, want add -A", got)
	}
	if got := strings.Join(runner.calls[1].args, " "); got != "commit -m Init: base architecture and tests" {
		t.Errorf("second call = %q", got)
	}
}

func TestApplyDiffFeedsStdinAndTerminatesNewline(t *testing.T) {
	runner := newFakeRunner()
	repo := OpenWithRunner("/tmp/work", runner)

	diff := "--- a/x.py\n+++ b/x.py\n@@ -1 +1 @@\n-a\n+b"
	if err := repo.ApplyDiff(context.Background(), diff); err != nil {
		t.Fatalf("ApplyDiff failed: %v", err)
	}

	call := runner.lastCall()
	if got := strings.Join(call.args, " "); got != "apply --whitespace=nowarn -" {
		t.Errorf("args = %q", got)
	}
	if !strings.HasSuffix(call.stdin, "+b\n") {
		t.Errorf("stdin not newline-terminated: %q", call.stdin)
	}
}

func TestApplyDiffPropagatesFailure(t *testing.T) {
	runner := newFakeRunner()
	runner.stubErr("apply --whitespace=nowarn -", fmt.Errorf("git apply failed: patch does not apply"))
	repo := OpenWithRunner("/tmp/work", runner)

	err := repo.ApplyDiff(context.Background(), "not a diff\n")
	if err == nil {
		t.Fatal("expected error from failed apply")
	}
	if !strings.Contains(err.Error(), "does not apply") {
		t.Errorf("error = %v", err)
	}
}

func TestCurrentBranchTrimsOutput(t *testing.T) {
	runner := newFakeRunner()
	runner.stub("rev-parse --abbrev-ref HEAD", "feature/fix\n")
	repo := OpenWithRunner("/tmp/work", runner)

	branch, err := repo.CurrentBranch(context.Background())
	if err != nil {
		t.Fatalf("CurrentBranch failed: %v", err)
	}
	if branch != "feature/fix" {
		t.Errorf("branch = %q", branch)
	}
}

func TestDiffUsesMergeBaseRange(t *testing.T) {
	runner := newFakeRunner()
	runner.stub("diff main...feature/fix", "diff text")
	repo := OpenWithRunner("/tmp/work", runner)

	diff, err := repo.Diff(context.Background(), "main", "feature/fix")
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if diff != "diff text" {
		t.Errorf("diff = %q", diff)
	}
}

func TestWriteFilesCreatesNestedPaths(t *testing.T) {
	dir := t.TempDir()
	repo := Open(dir)

	err := repo.WriteFiles(map[string]string{
		"src/app/main.py":   "print('hi')\n",
		"tests/test_app.py": "def test_ok(): pass\n",
	})
	if err != nil {
		t.Fatalf("WriteFiles failed: %v", err)
	}

	for _, rel := range []string{"src/app/main.py", "tests/test_app.py"} {
		if _, statErr := os.Stat(filepath.Join(dir, rel)); statErr != nil {
			t.Errorf("missing %s: %v", rel, statErr)
		}
	}
}
