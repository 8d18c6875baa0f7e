// Package provision materializes a scenario as a local working tree plus a
// merge request on the hosting service, ready for review.
package provision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/revbench/revbench/internal/gitrepo"
	"github.com/revbench/revbench/internal/hosting"
	"github.com/revbench/revbench/internal/scenario"
)

const (
	// TargetBranch is the branch scenarios merge into
	TargetBranch = "main"

	// ProjectPrefix marks projects owned by the evaluator, so cleanup can
	// find stale ones without touching anything else.
	ProjectPrefix = "revbench-eval"

	baseCommitMessage = "Init: base architecture and tests"
)

// ProvisioningError reports which stage of provisioning failed
type ProvisioningError struct {
	Scenario string
	Stage    string
	Err      error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("provision %s: %s: %v", e.Scenario, e.Stage, e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}

// Provisioned is one fully materialized scenario. The MR handle carries the
// seeded diff, so reviewing it needs no further hosting calls.
type Provisioned struct {
	Scenario *scenario.Scenario
	MR       *hosting.MergeRequest
	Repo     *gitrepo.Repo
	Project  string
	Workdir  string

	keepWorkdir bool
}

// Remove deletes the local working tree unless the provisioner was asked to
// keep it for inspection.
func (p *Provisioned) Remove() error {
	if p.keepWorkdir {
		return nil
	}
	if err := os.RemoveAll(p.Workdir); err != nil {
		return err
	}
	// The per-run parent is shared between scenarios; removing it only
	// succeeds once the last working tree is gone.
	os.Remove(filepath.Dir(p.Workdir))
	return nil
}

// Provisioner creates scenario repositories and merge requests
type Provisioner struct {
	host hosting.Client

	// WorkBase is where local working trees are created
	WorkBase string

	// KeepWorkdirs leaves working trees on disk after the run
	KeepWorkdirs bool

	// initRepo is replaced in tests to avoid a real git binary
	initRepo func(ctx context.Context, dir, branch string) (*gitrepo.Repo, error)
}

// New creates a Provisioner backed by the given hosting client
func New(host hosting.Client, workBase string) *Provisioner {
	return &Provisioner{host: host, WorkBase: workBase, initRepo: gitrepo.Init}
}

func (p *Provisioner) fail(sc *scenario.Scenario, stage string, err error) error {
	return &ProvisioningError{Scenario: sc.ID, Stage: stage, Err: err}
}

// Provision builds the scenario's repository locally, mirrors it to the
// hosting service, and opens the merge request with the seeded flaw. runID
// scopes project names and working directories to one evaluation run.
func (p *Provisioner) Provision(ctx context.Context, sc *scenario.Scenario, runID string) (*Provisioned, error) {
	workdir := filepath.Join(p.WorkBase, strings.ToLower(runID), sc.ID)

	repo, err := p.initRepo(ctx, workdir, TargetBranch)
	if err != nil {
		return nil, p.fail(sc, "init repo", err)
	}
	if err := repo.WriteFiles(sc.AllFiles()); err != nil {
		return nil, p.fail(sc, "write base files", err)
	}
	if err := repo.CommitAll(ctx, baseCommitMessage); err != nil {
		return nil, p.fail(sc, "commit base", err)
	}

	if err := repo.CreateBranch(ctx, sc.Branch); err != nil {
		return nil, p.fail(sc, "create branch", err)
	}
	if err := repo.ApplyDiff(ctx, sc.SeedDiff); err != nil {
		return nil, p.fail(sc, "apply seed diff", err)
	}
	if err := repo.CommitAll(ctx, sc.Name); err != nil {
		return nil, p.fail(sc, "commit seed", err)
	}

	diff, err := repo.Diff(ctx, TargetBranch, sc.Branch)
	if err != nil {
		return nil, p.fail(sc, "compute diff", err)
	}

	projectName := fmt.Sprintf("%s-%s-%s", ProjectPrefix, sc.ID, strings.ToLower(runID))
	project, err := p.host.CreateProject(ctx, projectName)
	if err != nil {
		return nil, p.fail(sc, "create project", err)
	}

	remoteBranch, err := p.mirror(ctx, sc, repo, project)
	if err != nil {
		return nil, err
	}

	mr, err := p.host.CreateMergeRequest(ctx, project, remoteBranch, TargetBranch,
		sc.Name, sc.Description)
	if err != nil {
		return nil, p.fail(sc, "create merge request", err)
	}
	mr.Diff = diff
	mr.CurrentLabel = hosting.LabelNeedsReview

	if err := p.host.PostComment(ctx, project, mr.IID, hosting.Comment{
		Body: fmt.Sprintf("Benchmark scenario `%s` (difficulty %d). Automated review follows.",
			sc.ID, sc.ExpectedDifficulty),
	}); err != nil {
		return nil, p.fail(sc, "post benchmark comment", err)
	}

	return &Provisioned{
		Scenario:    sc,
		MR:          mr,
		Repo:        repo,
		Project:     project,
		Workdir:     workdir,
		keepWorkdir: p.KeepWorkdirs,
	}, nil
}

// mirror pushes the local repository state to the hosting service: base
// files on the target branch, then the seeded change on the feature branch.
// A branch name collision gets a timestamped replacement; the scenario
// itself is never mutated.
func (p *Provisioner) mirror(ctx context.Context, sc *scenario.Scenario, repo *gitrepo.Repo, project string) (string, error) {
	var base []hosting.FileAction
	for path, content := range sc.AllFiles() {
		base = append(base, hosting.FileAction{Action: "create", Path: path, Content: content})
	}
	if err := p.host.CommitFiles(ctx, project, TargetBranch, baseCommitMessage, base); err != nil {
		return "", p.fail(sc, "commit base files", err)
	}

	branch := sc.Branch
	if err := p.host.CreateBranch(ctx, project, branch, TargetBranch); err != nil {
		branch = fmt.Sprintf("%s-%s-%d", sc.Branch, sc.ID, time.Now().Unix())
		if retryErr := p.host.CreateBranch(ctx, project, branch, TargetBranch); retryErr != nil {
			return "", p.fail(sc, "create remote branch", err)
		}
	}

	changed, err := repo.ChangedFiles(ctx, TargetBranch, sc.Branch)
	if err != nil {
		return "", p.fail(sc, "list changed files", err)
	}

	var seeded []hosting.FileAction
	for _, path := range changed {
		content, readErr := repo.ReadFile(path)
		if readErr != nil {
			return "", p.fail(sc, "read changed file", readErr)
		}
		action := "update"
		if _, existed := sc.AllFiles()[path]; !existed {
			action = "create"
		}
		seeded = append(seeded, hosting.FileAction{Action: action, Path: path, Content: content})
	}
	if err := p.host.CommitFiles(ctx, project, branch, sc.Name, seeded); err != nil {
		return "", p.fail(sc, "commit seeded change", err)
	}
	return branch, nil
}

// Cleanup deletes evaluator-owned projects left over from earlier runs
func (p *Provisioner) Cleanup(ctx context.Context) (int, error) {
	projects, err := p.host.ListProjects(ctx, ProjectPrefix)
	if err != nil {
		return 0, fmt.Errorf("list stale projects: %w", err)
	}

	deleted := 0
	for _, project := range projects {
		if err := p.host.DeleteProject(ctx, project); err != nil {
			return deleted, fmt.Errorf("delete stale project %s: %w", project, err)
		}
		deleted++
	}
	return deleted, nil
}
