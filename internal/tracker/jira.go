package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/storyagent/storyagent-go/internal/config"
	"github.com/storyagent/storyagent-go/internal/domain"
)

// JiraClient implements Client against the Jira Cloud REST API
type JiraClient struct {
	baseURL         string
	email           string
	apiToken        string
	storyPointField string
	client          *http.Client
}

// NewJiraClient creates a Jira tracker client from configuration
func NewJiraClient(cfg *config.Config) *JiraClient {
	return &JiraClient{
		baseURL:         strings.TrimRight(cfg.JiraURL, "/"),
		email:           cfg.JiraEmail,
		apiToken:        cfg.JiraAPIToken,
		storyPointField: cfg.StoryPointField,
		client: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeout) * time.Second,
		},
	}
}

// Ping checks Jira connectivity and credentials
func (j *JiraClient) Ping(ctx context.Context) HealthStatus {
	_, err := j.do(ctx, http.MethodGet, "/rest/api/2/myself", nil)
	if err != nil {
		return HealthStatus{Status: "unhealthy", Message: err.Error()}
	}
	return HealthStatus{Status: "healthy", Message: "tracker connection ok"}
}

// ListProjects returns all projects visible to the configured credentials
func (j *JiraClient) ListProjects(ctx context.Context) ([]ProjectRef, error) {
	body, err := j.do(ctx, http.MethodGet, "/rest/api/2/project", nil)
	if err != nil {
		// An instance with no visible projects is not a failure.
		if IsKind(err, KindNotFound) {
			return []ProjectRef{}, nil
		}
		return nil, err
	}

	var raw []struct {
		ID   string `json:"id"`
		Key  string `json:"key"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, WrapError(KindRemoteRejected, "failed to parse project list", err)
	}

	projects := make([]ProjectRef, 0, len(raw))
	for _, p := range raw {
		projects = append(projects, ProjectRef{Key: p.Key, Name: p.Name, ID: p.ID})
	}
	return projects, nil
}

// CreateGroup creates a parent issue that clusters exported stories. Epic
// issue types are not available on every Jira instance, so the group is
// created as a plain Task.
func (j *JiraClient) CreateGroup(ctx context.Context, projectKey, name, description string) (*domain.IssueRef, error) {
	if projectKey == "" {
		return nil, NewError(KindValidation, "project key is required")
	}
	if name == "" {
		return nil, NewError(KindValidation, "group name is required")
	}

	payload := map[string]any{
		"fields": map[string]any{
			"project":     map[string]string{"key": projectKey},
			"summary":     name,
			"description": description,
			"issuetype":   map[string]string{"name": "Task"},
		},
	}

	return j.createIssue(ctx, payload)
}

// CreateIssue creates one story issue with derived metadata. The group link
// is carried as a label: Task issue types do not support parent-child
// relations, and a label cannot fail the creation.
func (j *JiraClient) CreateIssue(ctx context.Context, projectKey string, req IssueRequest) (*domain.IssueRef, error) {
	if projectKey == "" {
		return nil, NewError(KindValidation, "project key is required")
	}
	if req.Summary == "" {
		return nil, NewError(KindValidation, "issue summary is required")
	}

	labels := []string{}
	if req.Component != "" {
		labels = append(labels, strings.ReplaceAll(req.Component, " ", "-"))
	}
	if req.ParentKey != "" {
		labels = append(labels, req.ParentKey)
	}

	fields := map[string]any{
		"project":     map[string]string{"key": projectKey},
		"summary":     req.Summary,
		"description": req.Description,
		"issuetype":   map[string]string{"name": "Task"},
		"labels":      labels,
	}
	if req.Priority != "" {
		fields["priority"] = map[string]string{"name": string(req.Priority)}
	}
	if req.Effort > 0 && j.storyPointField != "" {
		fields[j.storyPointField] = req.Effort
	}

	return j.createIssue(ctx, map[string]any{"fields": fields})
}

// FetchIssue retrieves a single issue by key
func (j *JiraClient) FetchIssue(ctx context.Context, key string) (*IssueDetails, error) {
	if key == "" {
		return nil, NewError(KindValidation, "issue key is required")
	}

	body, err := j.do(ctx, http.MethodGet, "/rest/api/2/issue/"+key, nil)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Key    string `json:"key"`
		Fields struct {
			Summary     string `json:"summary"`
			Description string `json:"description"`
			Status      struct {
				Name string `json:"name"`
			} `json:"status"`
			Priority struct {
				Name string `json:"name"`
			} `json:"priority"`
			Assignee struct {
				DisplayName string `json:"displayName"`
			} `json:"assignee"`
		} `json:"fields"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, WrapError(KindRemoteRejected, "failed to parse issue", err)
	}

	return &IssueDetails{
		Key:         raw.Key,
		Summary:     raw.Fields.Summary,
		Description: raw.Fields.Description,
		Status:      raw.Fields.Status.Name,
		Priority:    raw.Fields.Priority.Name,
		Assignee:    raw.Fields.Assignee.DisplayName,
	}, nil
}

// BrowseURL returns the user-facing URL for an issue key
func (j *JiraClient) BrowseURL(key string) string {
	return j.baseURL + "/browse/" + key
}

// createIssue posts an issue payload and extracts the created reference
func (j *JiraClient) createIssue(ctx context.Context, payload map[string]any) (*domain.IssueRef, error) {
	body, err := j.do(ctx, http.MethodPost, "/rest/api/2/issue", payload)
	if err != nil {
		return nil, err
	}

	var created struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(body, &created); err != nil || created.Key == "" {
		return nil, WrapError(KindRemoteRejected, "issue key missing from response", err)
	}

	return &domain.IssueRef{Key: created.Key, URL: j.BrowseURL(created.Key)}, nil
}

// do performs a single HTTP call and translates transport and status
// failures into the error taxonomy.
func (j *JiraClient) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, WrapError(KindValidation, "failed to encode request", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, j.baseURL+path, reqBody)
	if err != nil {
		return nil, WrapError(KindValidation, "failed to build request", err)
	}

	req.SetBasicAuth(j.email, j.apiToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := j.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, WrapError(KindNetwork, "request cancelled", err)
		}
		return nil, WrapError(KindNetwork, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(KindNetwork, "failed to read response", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, NewError(KindAuthentication, "tracker rejected credentials")
	case resp.StatusCode == http.StatusNotFound:
		return nil, NewError(KindNotFound, "resource not found: "+path)
	default:
		return nil, NewError(KindRemoteRejected, remoteErrorMessage(resp.StatusCode, body))
	}
}

// remoteErrorMessage extracts a human-readable message from a Jira error
// body of the form {"errorMessages":[...],"errors":{"field":"problem"}}
func remoteErrorMessage(status int, body []byte) string {
	var parsed struct {
		ErrorMessages []string          `json:"errorMessages"`
		Errors        map[string]string `json:"errors"`
	}

	var parts []string
	if err := json.Unmarshal(body, &parsed); err == nil {
		parts = append(parts, parsed.ErrorMessages...)
		for field, msg := range parsed.Errors {
			parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
		}
	}

	if len(parts) == 0 {
		return fmt.Sprintf("tracker returned status %d", status)
	}
	return fmt.Sprintf("tracker returned status %d: %s", status, strings.Join(parts, "; "))
}
