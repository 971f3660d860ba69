// Package export sequences the creation of tracker issues from generated
// user stories: optional group creation, per-story fan-out with derived
// metadata, and index-aligned result aggregation.
package export

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/storyagent/storyagent-go/internal/classify"
	"github.com/storyagent/storyagent-go/internal/config"
	"github.com/storyagent/storyagent-go/internal/domain"
	"github.com/storyagent/storyagent-go/internal/estimate"
	"github.com/storyagent/storyagent-go/internal/tracker"
)

// Validation errors returned before any network call is made
var (
	ErrNoProjectKey = tracker.NewError(tracker.KindValidation, "project key is required")
	ErrNoStories    = tracker.NewError(tracker.KindValidation, "no stories to export")
)

// Request describes one export run
type Request struct {
	Stories    []domain.StoryRecord
	ProjectKey string
	Group      domain.GroupSpec
}

// Options tune orchestrator behavior
type Options struct {
	// Workers is the per-story fan-out width. 1 means sequential.
	Workers int

	// GroupFailurePolicy decides what happens when group creation fails:
	// abort the run (stories would be orphaned without a parent) or
	// continue exporting without a group.
	GroupFailurePolicy string
}

// Event is a progress notification emitted during an export run
type Event struct {
	Type    string           `json:"type"` // export_started, story_exported, export_completed
	Total   int              `json:"total,omitempty"`
	Outcome *domain.Outcome  `json:"outcome,omitempty"`
	Group   *domain.IssueRef `json:"group,omitempty"`
	Status  string           `json:"status,omitempty"`
}

// Orchestrator drives export runs. It keeps no state across calls: every
// run is independent and re-exporting the same stories creates duplicate
// tickets, because the tracker is the source of truth and no export ledger
// is kept here.
type Orchestrator struct {
	client     tracker.Client
	classifier *classify.Classifier
	opts       Options

	mu     sync.Mutex
	notify func(Event)
}

// New creates an Orchestrator. Worker count is clamped to [1, 10].
func New(client tracker.Client, classifier *classify.Classifier, opts Options) *Orchestrator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Workers > 10 {
		opts.Workers = 10
	}
	if opts.GroupFailurePolicy == "" {
		opts.GroupFailurePolicy = config.GroupFailureAbort
	}

	return &Orchestrator{
		client:     client,
		classifier: classifier,
		opts:       opts,
	}
}

// SetNotifier installs a progress callback. The callback must not block.
func (o *Orchestrator) SetNotifier(fn func(Event)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.notify = fn
}

// Export runs one export: validate, optionally create the group, create one
// issue per story, aggregate. Outcomes are written to input-aligned slots so
// the caller can correlate and retry exactly the failed subset.
//
// Cancelling ctx stops issuing new creation calls; calls already in flight
// are left to finish (the tracker does not guarantee delete support, so
// there are no compensating deletes). Unstarted stories are reported as
// not attempted.
func (o *Orchestrator) Export(ctx context.Context, req Request) (*domain.ExportResult, error) {
	if req.ProjectKey == "" {
		return nil, ErrNoProjectKey
	}
	if len(req.Stories) == 0 {
		return nil, ErrNoStories
	}

	result := &domain.ExportResult{}

	if req.Group.Create {
		group, err := o.createGroup(ctx, req)
		if err != nil {
			abort := o.opts.GroupFailurePolicy != config.GroupFailureContinue ||
				tracker.IsKind(err, tracker.KindAuthentication)
			if abort {
				log.Printf("export aborted, group creation failed: %v", err)
				result.Status = domain.ExportGroupFailed
				result.Outcomes = []domain.Outcome{}
				result.Tally()
				return result, nil
			}
			log.Printf("group creation failed, exporting without group: %v", err)
		} else {
			result.Group = group
		}
	}

	o.emit(Event{Type: "export_started", Total: len(req.Stories), Group: result.Group})

	result.Outcomes = o.exportStories(ctx, req, result.Group)
	result.Tally()

	o.emit(Event{Type: "export_completed", Total: len(req.Stories), Status: string(result.Status)})
	return result, nil
}

// createGroup creates the parent issue. Group creation strictly precedes
// every per-story call.
func (o *Orchestrator) createGroup(ctx context.Context, req Request) (*domain.IssueRef, error) {
	name := req.Group.Name
	if name == "" {
		name = "User Stories"
	}
	description := req.Group.Description
	if description == "" {
		description = fmt.Sprintf("Parent task containing %d user stories", len(req.Stories))
	}

	return o.client.CreateGroup(ctx, req.ProjectKey, name, description)
}

// exportStories fans the per-story work out over a bounded worker pool.
// Every outcome is written to its input-aligned slot, never appended, so
// ordering holds regardless of worker interleaving.
func (o *Orchestrator) exportStories(ctx context.Context, req Request, group *domain.IssueRef) []domain.Outcome {
	outcomes := make([]domain.Outcome, len(req.Stories))
	for i := range outcomes {
		outcomes[i] = domain.Outcome{
			Index:  i,
			Status: domain.OutcomeNotAttempted,
			Error:  "not attempted",
		}
	}

	// runCtx gates dispatch only. An authentication failure cancels it to
	// abort early: further attempts would fail identically.
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	// Creation calls run on a detached context so a cancelled export does
	// not abort calls already in flight; each call stays bounded by the
	// client's own timeout.
	callCtx := context.WithoutCancel(ctx)

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < o.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				select {
				case <-runCtx.Done():
					continue // slot stays not attempted
				default:
				}

				outcomes[idx] = o.exportStory(callCtx, req.ProjectKey, idx, req.Stories[idx], group)
				o.emit(Event{Type: "story_exported", Total: len(req.Stories), Outcome: &outcomes[idx]})

				if outcomes[idx].ErrorKind == string(tracker.KindAuthentication) {
					cancelRun()
				}
			}
		}()
	}

	for i := range req.Stories {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

// exportStory computes derived metadata and creates one issue. A failure
// here never blocks or rolls back any other story.
func (o *Orchestrator) exportStory(ctx context.Context, projectKey string, index int, story domain.StoryRecord, group *domain.IssueRef) domain.Outcome {
	effort := estimate.Estimate(story)
	class := o.classifier.Classify(story)

	issueReq := tracker.IssueRequest{
		Summary:     story.Summary(),
		Description: FormatDescription(story),
		Priority:    class.Priority,
		Component:   class.Component,
		Effort:      effort,
	}
	if group != nil {
		issueReq.ParentKey = group.Key
	}

	ref, err := o.client.CreateIssue(ctx, projectKey, issueReq)
	if err != nil {
		log.Printf("story %d export failed: %v", index, err)
		return domain.Outcome{
			Index:     index,
			Status:    domain.OutcomeFailed,
			ErrorKind: string(tracker.KindOf(err)),
			Error:     err.Error(),
		}
	}

	return domain.Outcome{
		Index:  index,
		Status: domain.OutcomeCreated,
		Issue:  ref,
	}
}

func (o *Orchestrator) emit(event Event) {
	o.mu.Lock()
	notify := o.notify
	o.mu.Unlock()

	if notify != nil {
		notify(event)
	}
}
