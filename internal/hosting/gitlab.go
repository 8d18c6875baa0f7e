package hosting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GitLabClient talks to a GitLab instance over its v4 REST API. All project
// identifiers are the numeric project ID returned by CreateProject, or a
// URL-encoded "namespace/path" string.
type GitLabClient struct {
	baseURL   string
	token     string
	namespace string
	client    *http.Client
}

// GitLabOption customizes a GitLabClient
type GitLabOption func(*GitLabClient)

// WithHTTPClient replaces the underlying HTTP client, mainly for tests
func WithHTTPClient(c *http.Client) GitLabOption {
	return func(g *GitLabClient) {
		g.client = c
	}
}

// NewGitLab creates a client for the instance at baseURL. The token is sent
// as a PRIVATE-TOKEN header on every request. New projects are created under
// namespace when it is non-empty.
func NewGitLab(baseURL, token, namespace string, timeout time.Duration, opts ...GitLabOption) *GitLabClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	g := &GitLabClient{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		token:     token,
		namespace: namespace,
		client:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *GitLabClient) do(ctx context.Context, op, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &APIError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+"/api/v4"+path, reader)
	if err != nil {
		return &APIError{Op: op, Err: err}
	}
	req.Header.Set("PRIVATE-TOKEN", g.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return &APIError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			Op:     op,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s", strings.TrimSpace(string(data))),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &APIError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

func (g *GitLabClient) CreateProject(ctx context.Context, name string) (string, error) {
	body := map[string]any{
		"name":                   name,
		"visibility":             "private",
		"initialize_with_readme": false,
	}
	if g.namespace != "" {
		body["namespace_id"] = g.namespace
	}

	var resp struct {
		ID int `json:"id"`
	}
	if err := g.do(ctx, "create project", http.MethodPost, "/projects", body, &resp); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", resp.ID), nil
}

func (g *GitLabClient) DeleteProject(ctx context.Context, project string) error {
	return g.do(ctx, "delete project", http.MethodDelete, "/projects/"+url.PathEscape(project), nil, nil)
}

func (g *GitLabClient) ListProjects(ctx context.Context, search string) ([]string, error) {
	path := "/projects?owned=true&search=" + url.QueryEscape(search)

	var resp []struct {
		ID int `json:"id"`
	}
	if err := g.do(ctx, "list projects", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(resp))
	for _, p := range resp {
		ids = append(ids, fmt.Sprintf("%d", p.ID))
	}
	return ids, nil
}

func (g *GitLabClient) CreateBranch(ctx context.Context, project, branch, ref string) error {
	body := map[string]string{"branch": branch, "ref": ref}
	path := "/projects/" + url.PathEscape(project) + "/repository/branches"
	return g.do(ctx, "create branch", http.MethodPost, path, body, nil)
}

func (g *GitLabClient) CommitFiles(ctx context.Context, project, branch, message string, actions []FileAction) error {
	type commitAction struct {
		Action   string `json:"action"`
		FilePath string `json:"file_path"`
		Content  string `json:"content"`
	}

	acts := make([]commitAction, 0, len(actions))
	for _, a := range actions {
		acts = append(acts, commitAction{Action: a.Action, FilePath: a.Path, Content: a.Content})
	}

	body := map[string]any{
		"branch":         branch,
		"commit_message": message,
		"actions":        acts,
	}
	path := "/projects/" + url.PathEscape(project) + "/repository/commits"
	return g.do(ctx, "commit files", http.MethodPost, path, body, nil)
}

func (g *GitLabClient) CreateMergeRequest(ctx context.Context, project, sourceBranch, targetBranch, title, description string) (*MergeRequest, error) {
	body := map[string]string{
		"source_branch": sourceBranch,
		"target_branch": targetBranch,
		"title":         title,
		"description":   description,
	}

	var resp struct {
		IID int `json:"iid"`
	}
	path := "/projects/" + url.PathEscape(project) + "/merge_requests"
	if err := g.do(ctx, "create merge request", http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}

	return &MergeRequest{
		Project:      project,
		IID:          resp.IID,
		SourceBranch: sourceBranch,
		TargetBranch: targetBranch,
		Title:        title,
		Description:  description,
	}, nil
}

func (g *GitLabClient) GetDiff(ctx context.Context, project string, iid int) (string, error) {
	var resp struct {
		Changes []struct {
			OldPath string `json:"old_path"`
			NewPath string `json:"new_path"`
			Diff    string `json:"diff"`
		} `json:"changes"`
	}
	path := fmt.Sprintf("/projects/%s/merge_requests/%d/changes", url.PathEscape(project), iid)
	if err := g.do(ctx, "get diff", http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, c := range resp.Changes {
		fmt.Fprintf(&b, "--- a/%s\n+++ b/%s\n%s", c.OldPath, c.NewPath, c.Diff)
		if !strings.HasSuffix(c.Diff, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

func (g *GitLabClient) PostComment(ctx context.Context, project string, iid int, c Comment) error {
	// Inline comments need a position; GitLab rejects positions it cannot
	// anchor, so fall back to a plain note mentioning the location.
	body := c.Body
	if c.FilePath != "" {
		body = fmt.Sprintf("**%s:%d**\n\n%s", c.FilePath, c.Line, c.Body)
	}

	path := fmt.Sprintf("/projects/%s/merge_requests/%d/notes", url.PathEscape(project), iid)
	return g.do(ctx, "post comment", http.MethodPost, path, map[string]string{"body": body}, nil)
}

func (g *GitLabClient) SetLabel(ctx context.Context, project string, iid int, label Label) error {
	body := map[string]string{"labels": string(label)}
	path := fmt.Sprintf("/projects/%s/merge_requests/%d", url.PathEscape(project), iid)
	return g.do(ctx, "set label", http.MethodPut, path, body, nil)
}

func (g *GitLabClient) GetCurrentLabel(ctx context.Context, project string, iid int) (Label, error) {
	var resp struct {
		Labels []string `json:"labels"`
	}
	path := fmt.Sprintf("/projects/%s/merge_requests/%d", url.PathEscape(project), iid)
	if err := g.do(ctx, "get label", http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}

	for _, raw := range resp.Labels {
		if l, ok := ParseLabel(raw); ok {
			return l, nil
		}
	}
	return LabelNeedsReview, nil
}

var _ Client = (*GitLabClient)(nil)
