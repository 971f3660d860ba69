// Package tracker adapts external issue-tracking APIs behind a single
// client contract. New trackers are added as new implementations of Client;
// callers never see transport details, only the closed error taxonomy.
package tracker

import (
	"context"

	"github.com/storyagent/storyagent-go/internal/domain"
)

// HealthStatus reports whether the tracker connection is usable
type HealthStatus struct {
	Status  string `json:"status"` // "healthy" or "unhealthy"
	Message string `json:"message"`
}

// Healthy reports whether the status indicates a working connection
func (h HealthStatus) Healthy() bool {
	return h.Status == "healthy"
}

// ProjectRef identifies a project in the external tracker
type ProjectRef struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	ID   string `json:"id"`
}

// IssueDetails holds the fields of a fetched issue
type IssueDetails struct {
	Key         string `json:"key"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	Assignee    string `json:"assignee,omitempty"`
}

// IssueRequest describes a single issue to create. ParentKey, when set,
// links the issue to a previously created group at creation time.
type IssueRequest struct {
	Summary     string
	Description string
	Priority    domain.Priority
	Component   string
	Effort      int
	ParentKey   string
}

// Client is the capability contract for an external ticket tracker. Each
// operation performs exactly one network call. CreateGroup and CreateIssue
// are NOT idempotent: calling twice creates two tickets; retry policy lives
// with the caller.
type Client interface {
	// Ping checks the tracker connection. It never returns an error;
	// failures are folded into the status.
	Ping(ctx context.Context) HealthStatus

	// ListProjects returns the projects visible to the configured
	// credentials. An empty tracker yields an empty list, not an error.
	ListProjects(ctx context.Context) ([]ProjectRef, error)

	// CreateGroup creates a parent issue used to cluster story issues
	CreateGroup(ctx context.Context, projectKey, name, description string) (*domain.IssueRef, error)

	// CreateIssue creates one story issue
	CreateIssue(ctx context.Context, projectKey string, req IssueRequest) (*domain.IssueRef, error)

	// FetchIssue retrieves a single issue by key
	FetchIssue(ctx context.Context, key string) (*IssueDetails, error)
}
