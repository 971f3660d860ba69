package classify

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyagent/storyagent-go/internal/domain"
	"github.com/storyagent/storyagent-go/internal/testutil"
)

func TestClassify_Priority(t *testing.T) {
	c := NewDefault()

	t.Run("defaults to medium", func(t *testing.T) {
		result := c.Classify(domain.StoryRecord{Story: "As a user, I want to browse products."})
		assert.Equal(t, domain.PriorityMedium, result.Priority)
	})

	t.Run("upgrades on urgent term", func(t *testing.T) {
		result := c.Classify(domain.StoryRecord{Story: "As an admin, I want to rotate credentials regularly."})
		assert.Equal(t, domain.PriorityHigh, result.Priority)
	})

	t.Run("matching is case-insensitive", func(t *testing.T) {
		result := c.Classify(domain.StoryRecord{Story: "As an admin, I want SECURITY alerts."})
		assert.Equal(t, domain.PriorityHigh, result.Priority)
	})

	t.Run("empty urgent vocabulary yields medium for everything", func(t *testing.T) {
		c := New(Rules{DefaultComponent: "General"})
		result := c.Classify(domain.StoryRecord{Story: "As an admin, I want a security audit."})
		assert.Equal(t, domain.PriorityMedium, result.Priority)
	})
}

func TestClassify_Component(t *testing.T) {
	c := NewDefault()

	t.Run("defaults to general", func(t *testing.T) {
		result := c.Classify(domain.StoryRecord{Story: "As a user, I want to browse products."})
		assert.Equal(t, DefaultComponent, result.Component)
	})

	t.Run("matches keyword rule", func(t *testing.T) {
		result := c.Classify(domain.StoryRecord{Story: "As a manager, I want a weekly report emailed to me."})
		assert.Equal(t, "Reporting", result.Component)
	})

	t.Run("first matching rule wins", func(t *testing.T) {
		c := New(Rules{
			Components: []ComponentRule{
				{Keyword: "report", Component: "Reporting"},
				{Keyword: "email", Component: "Notifications"},
			},
			DefaultComponent: "General",
		})

		// Narrative contains both keywords; table order decides.
		result := c.Classify(domain.StoryRecord{Story: "I want a report sent by email."})
		assert.Equal(t, "Reporting", result.Component)

		reversed := New(Rules{
			Components: []ComponentRule{
				{Keyword: "email", Component: "Notifications"},
				{Keyword: "report", Component: "Reporting"},
			},
			DefaultComponent: "General",
		})
		result = reversed.Classify(domain.StoryRecord{Story: "I want a report sent by email."})
		assert.Equal(t, "Notifications", result.Component)
	})
}

func TestClassify_Pure(t *testing.T) {
	c := NewDefault()
	story := domain.StoryRecord{Story: "As an admin, I want password resets audited."}

	first := c.Classify(story)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.Classify(story))
	}
}

func TestLoadRules(t *testing.T) {
	t.Run("parses rules file", func(t *testing.T) {
		dir := testutil.CreateTempDir(t)
		path := testutil.CreateTempFileInDir(t, dir, "rules.yaml", `
urgent_terms:
  - outage
urgent_priority: Highest
components:
  - keyword: billing
    component: Billing
default_component: Platform
`)

		rules, err := LoadRules(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"outage"}, rules.UrgentTerms)
		assert.Equal(t, domain.PriorityHighest, rules.UrgentPriority)
		assert.Equal(t, "Platform", rules.DefaultComponent)
		require.Len(t, rules.Components, 1)
		assert.Equal(t, "Billing", rules.Components[0].Component)
	})

	t.Run("fails on missing file", func(t *testing.T) {
		_, err := LoadRules(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("fails on malformed yaml", func(t *testing.T) {
		dir := testutil.CreateTempDir(t)
		path := testutil.CreateTempFileInDir(t, dir, "rules.yaml", "urgent_terms\n  - broken")

		_, err := LoadRules(path)
		assert.Error(t, err)
	})
}

func TestRules_Normalized(t *testing.T) {
	c := New(Rules{
		UrgentTerms: []string{" OUTAGE ", ""},
		Components: []ComponentRule{
			{Keyword: " Billing ", Component: "Billing"},
			{Keyword: "", Component: "Dropped"},
		},
	})

	rules := c.GetRules()
	assert.Equal(t, []string{"outage"}, rules.UrgentTerms)
	require.Len(t, rules.Components, 1)
	assert.Equal(t, "billing", rules.Components[0].Keyword)
	assert.Equal(t, domain.PriorityHigh, rules.UrgentPriority)
	assert.Equal(t, DefaultComponent, rules.DefaultComponent)
}
