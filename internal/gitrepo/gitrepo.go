// Package gitrepo drives local git working trees for scenario provisioning
// and patch application. All commands run through a Runner so tests can
// substitute a fake.
package gitrepo

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Runner executes git commands.
type Runner interface {
	Exec(ctx context.Context, dir string, args ...string) (string, error)
	ExecWithStdin(ctx context.Context, dir string, stdin string, args ...string) (string, error)
}

// osRunner executes real git commands via exec.CommandContext.
type osRunner struct{}

func (osRunner) Exec(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s failed: %w\nstderr: %s",
			strings.Join(args, " "), err, stderr.String())
	}

	return stdout.String(), nil
}

func (osRunner) ExecWithStdin(ctx context.Context, dir string, stdin string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Stdin = strings.NewReader(stdin)

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s failed: %w\nstderr: %s",
			strings.Join(args, " "), err, stderr.String())
	}

	return stdout.String(), nil
}

// Repo is a local git working tree rooted at Dir
type Repo struct {
	Dir    string
	runner Runner
}

// Open wraps an existing working tree without touching it
func Open(dir string) *Repo {
	return &Repo{Dir: dir, runner: osRunner{}}
}

// OpenWithRunner wraps a working tree with a custom runner, for tests
func OpenWithRunner(dir string, r Runner) *Repo {
	return &Repo{Dir: dir, runner: r}
}

// Init creates a fresh repository at dir with the given default branch.
// Commits need an identity, so a local one is configured.
func Init(ctx context.Context, dir, defaultBranch string) (*Repo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}

	r := Open(dir)
	if _, err := r.runner.Exec(ctx, dir, "init", "--initial-branch", defaultBranch); err != nil {
		return nil, err
	}
	if _, err := r.runner.Exec(ctx, dir, "config", "user.name", "revbench"); err != nil {
		return nil, err
	}
	if _, err := r.runner.Exec(ctx, dir, "config", "user.email", "revbench@localhost"); err != nil {
		return nil, err
	}
	return r, nil
}

// WriteFiles writes the given files under the working tree, creating parent
// directories as needed. Paths must be repository-relative.
func (r *Repo) WriteFiles(files map[string]string) error {
	for path, content := range files {
		full := filepath.Join(r.Dir, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return fmt.Errorf("create dir for %s: %w", path, err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}

// CommitAll stages everything and commits with the given message
func (r *Repo) CommitAll(ctx context.Context, message string) error {
	if _, err := r.runner.Exec(ctx, r.Dir, "add", "-A"); err != nil {
		return err
	}
	_, err := r.runner.Exec(ctx, r.Dir, "commit", "-m", message)
	return err
}

// CreateBranch creates and checks out a new branch
func (r *Repo) CreateBranch(ctx context.Context, name string) error {
	_, err := r.runner.Exec(ctx, r.Dir, "checkout", "-b", name)
	return err
}

// Checkout switches to an existing branch
func (r *Repo) Checkout(ctx context.Context, name string) error {
	_, err := r.runner.Exec(ctx, r.Dir, "checkout", name)
	return err
}

// CurrentBranch returns the checked-out branch name
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	out, err := r.runner.Exec(ctx, r.Dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Head returns the current commit SHA
func (r *Repo) Head(ctx context.Context) (string, error) {
	out, err := r.runner.Exec(ctx, r.Dir, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// ApplyDiff applies a unified diff to the working tree via git apply on
// stdin. The diff is not committed.
func (r *Repo) ApplyDiff(ctx context.Context, diff string) error {
	if !strings.HasSuffix(diff, "\n") {
		diff += "\n"
	}
	_, err := r.runner.ExecWithStdin(ctx, r.Dir, diff, "apply", "--whitespace=nowarn", "-")
	return err
}

// Diff returns the unified diff of head relative to the merge base with
// base, matching what a merge request would show.
func (r *Repo) Diff(ctx context.Context, base, head string) (string, error) {
	return r.runner.Exec(ctx, r.Dir, "diff", base+"..."+head)
}

// ChangedFiles lists the paths touched between base and head
func (r *Repo) ChangedFiles(ctx context.Context, base, head string) ([]string, error) {
	out, err := r.runner.Exec(ctx, r.Dir, "diff", "--name-only", base+"..."+head)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

// ReadFile returns the content of a file in the working tree
func (r *Repo) ReadFile(path string) (string, error) {
	data, err := os.ReadFile(filepath.Join(r.Dir, filepath.FromSlash(path)))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteFile replaces one file in the working tree
func (r *Repo) WriteFile(path, content string) error {
	full := filepath.Join(r.Dir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, []byte(content), 0o644)
}
