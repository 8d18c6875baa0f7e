package hosting

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Fake is an in-memory Client for tests and offline runs. Diffs are not
// computed from commits; callers seed them with SeedDiff.
type Fake struct {
	mu       sync.Mutex
	nextIID  int
	projects map[string]bool
	branches map[string]map[string]bool      // project -> branch set
	files    map[string]map[string]string    // project -> path -> content
	mrs      map[string]*MergeRequest        // key "project!iid"
	diffs    map[string]string               // key "project!iid"
	Comments map[string][]Comment            // key "project!iid"
	Labels   map[string][]Label              // key "project!iid", label history
}

// NewFake returns an empty fake hosting service
func NewFake() *Fake {
	return &Fake{
		nextIID:  1,
		projects: make(map[string]bool),
		branches: make(map[string]map[string]bool),
		files:    make(map[string]map[string]string),
		mrs:      make(map[string]*MergeRequest),
		diffs:    make(map[string]string),
		Comments: make(map[string][]Comment),
		Labels:   make(map[string][]Label),
	}
}

func mrKey(project string, iid int) string {
	return fmt.Sprintf("%s!%d", project, iid)
}

func (f *Fake) CreateProject(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.projects[name] {
		return "", &APIError{Op: "create project", Status: 400, Err: fmt.Errorf("project %q already exists", name)}
	}
	f.projects[name] = true
	f.branches[name] = make(map[string]bool)
	f.files[name] = make(map[string]string)
	return name, nil
}

func (f *Fake) DeleteProject(_ context.Context, project string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.projects[project] {
		return &APIError{Op: "delete project", Status: 404, Err: fmt.Errorf("project %q not found", project)}
	}
	delete(f.projects, project)
	delete(f.branches, project)
	delete(f.files, project)
	return nil
}

func (f *Fake) ListProjects(_ context.Context, search string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []string
	for name := range f.projects {
		if strings.Contains(name, search) {
			out = append(out, name)
		}
	}
	return out, nil
}

func (f *Fake) CreateBranch(_ context.Context, project, branch, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.projects[project] {
		return &APIError{Op: "create branch", Status: 404, Err: fmt.Errorf("project %q not found", project)}
	}
	if f.branches[project][branch] {
		return &APIError{Op: "create branch", Status: 400, Err: fmt.Errorf("branch %q already exists", branch)}
	}
	f.branches[project][branch] = true
	return nil
}

func (f *Fake) CommitFiles(_ context.Context, project, branch, _ string, actions []FileAction) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.projects[project] {
		return &APIError{Op: "commit files", Status: 404, Err: fmt.Errorf("project %q not found", project)}
	}
	f.branches[project][branch] = true
	for _, a := range actions {
		f.files[project][a.Path] = a.Content
	}
	return nil
}

func (f *Fake) CreateMergeRequest(_ context.Context, project, sourceBranch, targetBranch, title, description string) (*MergeRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.projects[project] {
		return nil, &APIError{Op: "create merge request", Status: 404, Err: fmt.Errorf("project %q not found", project)}
	}

	mr := &MergeRequest{
		Project:      project,
		IID:          f.nextIID,
		SourceBranch: sourceBranch,
		TargetBranch: targetBranch,
		Title:        title,
		Description:  description,
	}
	f.nextIID++
	f.mrs[mrKey(project, mr.IID)] = mr
	return mr, nil
}

// SeedDiff records the diff GetDiff will return for the MR
func (f *Fake) SeedDiff(project string, iid int, diff string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.diffs[mrKey(project, iid)] = diff
}

func (f *Fake) GetDiff(_ context.Context, project string, iid int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	diff, ok := f.diffs[mrKey(project, iid)]
	if !ok {
		return "", &APIError{Op: "get diff", Status: 404, Err: fmt.Errorf("no diff for %s!%d", project, iid)}
	}
	return diff, nil
}

func (f *Fake) PostComment(_ context.Context, project string, iid int, c Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := mrKey(project, iid)
	f.Comments[key] = append(f.Comments[key], c)
	return nil
}

func (f *Fake) SetLabel(_ context.Context, project string, iid int, label Label) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := mrKey(project, iid)
	f.Labels[key] = append(f.Labels[key], label)
	return nil
}

func (f *Fake) GetCurrentLabel(_ context.Context, project string, iid int) (Label, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	history := f.Labels[mrKey(project, iid)]
	if len(history) == 0 {
		return LabelNeedsReview, nil
	}
	return history[len(history)-1], nil
}

// CurrentLabel returns the latest label without the Client error plumbing,
// for test assertions.
func (f *Fake) CurrentLabel(project string, iid int) Label {
	l, _ := f.GetCurrentLabel(context.Background(), project, iid)
	return l
}

var _ Client = (*Fake)(nil)
