// Package classify derives priority and component labels for user stories.
//
// Classification is a replaceable policy layered over immutable story input.
// It is total: a story always classifies, so an export can never be blocked
// by a misconfigured rule set.
package classify

import (
	"strings"
	"sync"

	"github.com/storyagent/storyagent-go/internal/domain"
)

// DefaultComponent is the fallback label when no component rule matches
const DefaultComponent = "General"

// Classifier maps stories to priority and component labels according to a
// rule set. Safe for concurrent use; rules may be swapped at runtime.
type Classifier struct {
	mu    sync.RWMutex
	rules Rules
}

// New creates a Classifier with the given rules
func New(rules Rules) *Classifier {
	return &Classifier{rules: rules.normalized()}
}

// NewDefault creates a Classifier with the built-in rule set
func NewDefault() *Classifier {
	return New(DefaultRules())
}

// SetRules replaces the active rule set
func (c *Classifier) SetRules(rules Rules) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = rules.normalized()
}

// GetRules returns the active rule set
func (c *Classifier) GetRules() Rules {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rules
}

// Classify derives the priority and component for a story. Matching is
// case-insensitive on the narrative. Component rules are evaluated in table
// order and the first match wins.
func (c *Classifier) Classify(story domain.StoryRecord) domain.Classification {
	c.mu.RLock()
	rules := c.rules
	c.mu.RUnlock()

	narrative := strings.ToLower(story.Story)

	result := domain.Classification{
		Priority:  domain.PriorityMedium,
		Component: rules.DefaultComponent,
	}

	for _, term := range rules.UrgentTerms {
		if strings.Contains(narrative, term) {
			result.Priority = rules.UrgentPriority
			break
		}
	}

	for _, rule := range rules.Components {
		if strings.Contains(narrative, rule.Keyword) {
			result.Component = rule.Component
			break
		}
	}

	return result
}
