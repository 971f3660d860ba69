// Package testutil provides test utilities and helpers for the storyagent tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/storyagent/storyagent-go/internal/config"
	"github.com/storyagent/storyagent-go/internal/domain"
	"github.com/storyagent/storyagent-go/internal/storage"
	"github.com/storyagent/storyagent-go/internal/tracker"
)

// NewTestConfig creates a Config with temp directories for testing.
// All temp directories are automatically cleaned up when the test completes.
func NewTestConfig(t *testing.T) *config.Config {
	t.Helper()

	tempDir := CreateTempDir(t)

	cfg := config.New()
	cfg.DataDir = filepath.Join(tempDir, "data")
	cfg.DatabasePath = filepath.Join(tempDir, "data", "test.db")
	cfg.JiraURL = "https://example.atlassian.net"
	cfg.JiraEmail = "dev@example.com"
	cfg.JiraAPIToken = "token"
	cfg.RequestTimeout = 5
	cfg.ExportWorkers = 1
	cfg.WatchRules = false

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		t.Fatalf("failed to create data dir: %v", err)
	}

	return cfg
}

// NewTestStorage creates an in-memory SQLite storage for testing.
// The storage is automatically closed when the test completes.
func NewTestStorage(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	s, err := storage.NewInMemoryStorage()
	if err != nil {
		t.Fatalf("failed to create in-memory storage: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// CreateTempDir creates a temporary directory for testing.
// The directory is automatically removed when the test completes.
func CreateTempDir(t *testing.T) string {
	t.Helper()

	dir, err := os.MkdirTemp("", "storyagent-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	t.Cleanup(func() {
		os.RemoveAll(dir)
	})

	return dir
}

// CreateTempFile creates a temporary file with the given content.
// The file is automatically removed when the test completes.
func CreateTempFile(t *testing.T, content string) string {
	t.Helper()

	f, err := os.CreateTemp("", "storyagent-test-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}

	if _, err := f.WriteString(content); err != nil {
		f.Close()
		t.Fatalf("failed to write temp file: %v", err)
	}

	if err := f.Close(); err != nil {
		t.Fatalf("failed to close temp file: %v", err)
	}

	t.Cleanup(func() {
		os.Remove(f.Name())
	})

	return f.Name()
}

// CreateTempFileInDir creates a file with given content in the specified directory.
func CreateTempFileInDir(t *testing.T, dir, filename, content string) string {
	t.Helper()

	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}

	return path
}

// CreateTestStory creates a StoryRecord for testing.
func CreateTestStory(narrative string, criteria ...string) domain.StoryRecord {
	return domain.StoryRecord{
		Story:              narrative,
		AcceptanceCriteria: criteria,
	}
}

// CreateTestStories creates n distinct stories with two criteria each.
func CreateTestStories(n int) []domain.StoryRecord {
	stories := make([]domain.StoryRecord, 0, n)
	for i := 0; i < n; i++ {
		stories = append(stories, domain.StoryRecord{
			Story: "As a user, I want feature " + string(rune('A'+i)) + " so that I benefit.",
			AcceptanceCriteria: []string{
				"Given a precondition, when acting, then it works",
				"The change is covered by tests",
			},
		})
	}
	return stories
}

// CallRecord captures one CreateIssue or CreateGroup invocation on FakeClient.
type CallRecord struct {
	ProjectKey string
	GroupName  string
	Request    tracker.IssueRequest
}

// FakeClient is a scriptable in-memory tracker.Client. Results are consumed
// per call in invocation order; when the script runs out, calls succeed with
// generated keys.
type FakeClient struct {
	mu sync.Mutex

	// GroupErr, when set, fails CreateGroup.
	GroupErr error

	// IssueErrs maps story call order (0-based) to a scripted failure.
	IssueErrs map[int]error

	// PingStatus overrides the healthy default when Status is non-empty.
	PingStatus tracker.HealthStatus

	// Projects is returned by ListProjects.
	Projects []tracker.ProjectRef

	// Block, when non-nil, is closed by the test to release in-progress
	// CreateIssue calls. Used to hold workers while the test cancels.
	Block chan struct{}

	GroupCalls []CallRecord
	IssueCalls []CallRecord
}

// NewFakeClient creates a FakeClient that succeeds on every call.
func NewFakeClient() *FakeClient {
	return &FakeClient{IssueErrs: map[int]error{}}
}

func (f *FakeClient) Ping(ctx context.Context) tracker.HealthStatus {
	if f.PingStatus.Status != "" {
		return f.PingStatus
	}
	return tracker.HealthStatus{Status: "healthy", Message: "ok"}
}

func (f *FakeClient) ListProjects(ctx context.Context) ([]tracker.ProjectRef, error) {
	return f.Projects, nil
}

func (f *FakeClient) CreateGroup(ctx context.Context, projectKey, name, description string) (*domain.IssueRef, error) {
	f.mu.Lock()
	f.GroupCalls = append(f.GroupCalls, CallRecord{ProjectKey: projectKey, GroupName: name})
	f.mu.Unlock()

	if f.GroupErr != nil {
		return nil, f.GroupErr
	}
	return &domain.IssueRef{Key: "FAKE-1", URL: "https://fake/browse/FAKE-1"}, nil
}

func (f *FakeClient) CreateIssue(ctx context.Context, projectKey string, req tracker.IssueRequest) (*domain.IssueRef, error) {
	f.mu.Lock()
	order := len(f.IssueCalls)
	f.IssueCalls = append(f.IssueCalls, CallRecord{ProjectKey: projectKey, Request: req})
	block := f.Block
	f.mu.Unlock()

	if block != nil {
		<-block
	}

	if err, ok := f.IssueErrs[order]; ok && err != nil {
		return nil, err
	}

	key := "FAKE-" + strconv.Itoa(100+order)
	return &domain.IssueRef{Key: key, URL: "https://fake/browse/" + key}, nil
}

func (f *FakeClient) FetchIssue(ctx context.Context, key string) (*tracker.IssueDetails, error) {
	return &tracker.IssueDetails{Key: key, Summary: "fake issue", Status: "To Do"}, nil
}

// IssueCallCount returns the number of CreateIssue calls made so far.
func (f *FakeClient) IssueCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.IssueCalls)
}
