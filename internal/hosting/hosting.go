package hosting

import (
	"context"
	"fmt"
)

// Label is the review status marker on a merge request. Within one review
// cycle a label only moves forward along
// needs_review -> changes_requested -> ready_for_merge; only a new commit
// resets it.
type Label string

const (
	LabelNeedsReview      Label = "needs-review"
	LabelChangesRequested Label = "changes-requested"
	LabelReadyForMerge    Label = "ready-for-merge"
)

// labelRank orders labels for monotonicity checks
var labelRank = map[Label]int{
	LabelNeedsReview:      0,
	LabelChangesRequested: 1,
	LabelReadyForMerge:    2,
}

// Valid reports whether the label is one of the known review labels
func (l Label) Valid() bool {
	_, ok := labelRank[l]
	return ok
}

// CanAdvanceTo reports whether moving from l to next respects forward-only
// label ordering within a review cycle.
func (l Label) CanAdvanceTo(next Label) bool {
	cur, ok := labelRank[l]
	if !ok {
		return next.Valid()
	}
	nxt, ok := labelRank[next]
	if !ok {
		return false
	}
	return nxt >= cur
}

// ParseLabel maps a raw label string to a Label, reporting whether it is a
// review label at all.
func ParseLabel(s string) (Label, bool) {
	l := Label(s)
	return l, l.Valid()
}

// MergeRequest is a handle on one live or simulated MR. The diff is fetched
// lazily: an empty Diff means "ask the client". The handle is owned by
// whichever component currently drives the review.
type MergeRequest struct {
	// Project identifies the repository on the hosting service
	Project string

	// IID is the merge request number within the project
	IID int

	// SourceBranch and TargetBranch name the two sides of the MR
	SourceBranch string
	TargetBranch string

	// Title and Description mirror the MR metadata
	Title       string
	Description string

	// Diff is the unified diff text; empty until fetched
	Diff string

	// CurrentLabel is the last label this process set or observed
	CurrentLabel Label
}

// FileAction describes one file operation inside a commit
type FileAction struct {
	// Action is "create" or "update"
	Action string

	// Path is the repository-relative file path
	Path string

	// Content is the full file content
	Content string
}

// Comment is an MR note; FilePath and Line are set for inline comments.
type Comment struct {
	Body     string
	FilePath string
	Line     int
}

// Client is the hosting-service capability consumed by the provisioner,
// the review engine, and the webhook server. Implementations must bound
// every call with their own timeout.
type Client interface {
	// CreateProject creates a repository under the configured namespace
	// and returns its identifier.
	CreateProject(ctx context.Context, name string) (string, error)

	// DeleteProject removes a repository. Used by pre-run cleanup.
	DeleteProject(ctx context.Context, project string) error

	// ListProjects returns project identifiers whose name contains the
	// given fragment.
	ListProjects(ctx context.Context, search string) ([]string, error)

	// CreateBranch creates a branch at the given ref
	CreateBranch(ctx context.Context, project, branch, ref string) error

	// CommitFiles creates one commit with the given file actions
	CommitFiles(ctx context.Context, project, branch, message string, actions []FileAction) error

	// CreateMergeRequest opens an MR and returns its handle
	CreateMergeRequest(ctx context.Context, project, sourceBranch, targetBranch, title, description string) (*MergeRequest, error)

	// GetDiff returns the full unified diff of the MR
	GetDiff(ctx context.Context, project string, iid int) (string, error)

	// PostComment posts a note on the MR; a non-empty FilePath makes it an
	// inline comment anchored at Line.
	PostComment(ctx context.Context, project string, iid int, c Comment) error

	// SetLabel replaces the MR's review label
	SetLabel(ctx context.Context, project string, iid int, label Label) error

	// GetCurrentLabel returns the MR's current review label, or
	// LabelNeedsReview if none is set.
	GetCurrentLabel(ctx context.Context, project string, iid int) (Label, error)
}

// APIError wraps a failed hosting-service call
type APIError struct {
	Op     string
	Status int
	Err    error
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("hosting %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("hosting %s: %v", e.Op, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}
