package provision

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/revbench/revbench/internal/gitrepo"
	"github.com/revbench/revbench/internal/hosting"
	"github.com/revbench/revbench/internal/scenario"
)

// stubRunner answers git invocations from a canned table so provisioning
// tests run without a git binary.
type stubRunner struct {
	out map[string]string
}

func (s *stubRunner) Exec(_ context.Context, _ string, args ...string) (string, error) {
	return s.out[strings.Join(args, " ")], nil
}

func (s *stubRunner) ExecWithStdin(_ context.Context, _ string, _ string, args ...string) (string, error) {
	return s.out[strings.Join(args, " ")], nil
}

func testScenario() *scenario.Scenario {
	return &scenario.Scenario{
		ID:                 "race-condition-deposit",
		Name:               "Add deposit endpoint",
		Description:        "Adds a deposit endpoint to the wallet service.",
		Branch:             "feature/deposit",
		CTOInstructions:    "Watch for concurrency bugs.",
		TestCommand:        "pytest -x",
		ExpectedDifficulty: 2,
		BaseFiles:          map[string]string{"wallet.py": "balance = 0\n"},
		TestFiles:          map[string]string{"test_wallet.py": "def test_balance(): pass\n"},
		SeedDiff:           "--- a/wallet.py\n+++ b/wallet.py\n@@ -1 +1 @@\n-balance = 0\n+balance = 0  # racy\n",
	}
}

func newTestProvisioner(t *testing.T, host hosting.Client, runner gitrepo.Runner) *Provisioner {
	t.Helper()
	p := New(host, t.TempDir())
	p.initRepo = func(_ context.Context, dir, _ string) (*gitrepo.Repo, error) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		return gitrepo.OpenWithRunner(dir, runner), nil
	}
	return p
}

func TestProvisionOpensMergeRequestWithDiff(t *testing.T) {
	sc := testScenario()
	runner := &stubRunner{out: map[string]string{
		"diff main...feature/deposit":             sc.SeedDiff,
		"diff --name-only main...feature/deposit": "wallet.py\n",
	}}
	fake := hosting.NewFake()
	p := newTestProvisioner(t, fake, runner)

	got, err := p.Provision(context.Background(), sc, "01J5RUN")
	if err != nil {
		t.Fatalf("Provision failed: %v", err)
	}

	if got.MR == nil {
		t.Fatal("no merge request returned")
	}
	if got.MR.Diff != sc.SeedDiff {
		t.Errorf("MR diff not carried: %q", got.MR.Diff)
	}
	if got.MR.SourceBranch != "feature/deposit" {
		t.Errorf("source branch = %q", got.MR.SourceBranch)
	}
	if got.MR.CurrentLabel != hosting.LabelNeedsReview {
		t.Errorf("initial label = %s", got.MR.CurrentLabel)
	}
	if !strings.Contains(got.Project, "race-condition-deposit") {
		t.Errorf("project name %q does not embed scenario id", got.Project)
	}
	if !strings.HasPrefix(got.Project, ProjectPrefix) {
		t.Errorf("project name %q missing evaluator prefix", got.Project)
	}

	comments := fake.Comments[got.Project+"!1"]
	if len(comments) != 1 || !strings.Contains(comments[0].Body, "Benchmark scenario") {
		t.Errorf("benchmark comment missing: %+v", comments)
	}
}

func TestProvisionWritesWorkingTree(t *testing.T) {
	sc := testScenario()
	runner := &stubRunner{out: map[string]string{
		"diff --name-only main...feature/deposit": "wallet.py\n",
	}}
	p := newTestProvisioner(t, hosting.NewFake(), runner)

	got, err := p.Provision(context.Background(), sc, "01J5RUN")
	if err != nil {
		t.Fatalf("Provision failed: %v", err)
	}

	for path := range sc.AllFiles() {
		if _, statErr := os.Stat(got.Workdir + "/" + path); statErr != nil {
			t.Errorf("missing %s in workdir: %v", path, statErr)
		}
	}
}

func TestProvisionedRemoveRespectsKeep(t *testing.T) {
	sc := testScenario()
	runner := &stubRunner{out: map[string]string{
		"diff --name-only main...feature/deposit": "wallet.py\n",
	}}
	p := newTestProvisioner(t, hosting.NewFake(), runner)
	p.KeepWorkdirs = true

	got, err := p.Provision(context.Background(), sc, "01J5RUN")
	if err != nil {
		t.Fatalf("Provision failed: %v", err)
	}

	if err := got.Remove(); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, statErr := os.Stat(got.Workdir); statErr != nil {
		t.Error("workdir should survive Remove when KeepWorkdirs is set")
	}
}

func TestProvisionedRemoveClearsRunDirectory(t *testing.T) {
	sc := testScenario()
	runner := &stubRunner{out: map[string]string{
		"diff --name-only main...feature/deposit": "wallet.py\n",
	}}
	p := newTestProvisioner(t, hosting.NewFake(), runner)

	got, err := p.Provision(context.Background(), sc, "01J5RUN")
	if err != nil {
		t.Fatalf("Provision failed: %v", err)
	}

	if err := got.Remove(); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	runDir := filepath.Dir(got.Workdir)
	if _, statErr := os.Stat(runDir); !os.IsNotExist(statErr) {
		t.Errorf("per-run directory %s left behind", runDir)
	}
}

func TestCleanupDeletesOnlyEvalProjects(t *testing.T) {
	ctx := context.Background()
	fake := hosting.NewFake()
	fake.CreateProject(ctx, ProjectPrefix+"-stale-1")
	fake.CreateProject(ctx, ProjectPrefix+"-stale-2")
	fake.CreateProject(ctx, "user-project")

	p := New(fake, t.TempDir())
	deleted, err := p.Cleanup(ctx)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	remaining, _ := fake.ListProjects(ctx, "")
	if len(remaining) != 1 || remaining[0] != "user-project" {
		t.Errorf("remaining projects = %v", remaining)
	}
}

func TestProvisioningErrorNamesStage(t *testing.T) {
	err := &ProvisioningError{Scenario: "s1", Stage: "apply seed diff", Err: os.ErrNotExist}
	if !strings.Contains(err.Error(), "apply seed diff") {
		t.Errorf("error = %v", err)
	}
}
