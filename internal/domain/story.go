package domain

import "strings"

// StoryRecord is a generated user story plus its acceptance criteria.
// Records are produced by the generator and carry no identity until
// they are exported to the ticket tracker.
type StoryRecord struct {
	Story              string   `json:"story"`
	AcceptanceCriteria []string `json:"acceptance_criteria"`
}

// Summary returns the story narrative truncated for use as an issue summary.
// Jira caps summaries at 255 characters.
func (s StoryRecord) Summary() string {
	const maxSummary = 255
	text := strings.TrimSpace(s.Story)
	if len(text) <= maxSummary {
		return text
	}
	return text[:maxSummary-3] + "..."
}

// Priority represents an issue priority in the ticket tracker
type Priority string

const (
	PriorityHighest Priority = "Highest"
	PriorityHigh    Priority = "High"
	PriorityMedium  Priority = "Medium"
	PriorityLow     Priority = "Low"
	PriorityLowest  Priority = "Lowest"
)

// Classification holds the derived priority and component labels for a story.
// Recomputed on every export, never cached, since story content may be
// edited between generations.
type Classification struct {
	Priority  Priority `json:"priority"`
	Component string   `json:"component"`
}
