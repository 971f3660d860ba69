package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyagent/storyagent-go/internal/domain"
)

var sampleStories = []domain.StoryRecord{
	{
		Story:              "As a user, I want to register so that I can have an account.",
		AcceptanceCriteria: []string{"Given the form, When I submit, Then my account exists"},
	},
	{
		Story: "As an admin, I want to view reports so that I can track usage.",
	},
}

func TestRender(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	t.Run("text format", func(t *testing.T) {
		doc, err := renderAt(sampleStories, "txt", at)
		require.NoError(t, err)

		assert.Equal(t, "user_stories_20260314_092653.txt", doc.Filename)
		assert.Equal(t, "text/plain", doc.MimeType)
		assert.Contains(t, doc.Content, "USER STORIES\n")
		assert.Contains(t, doc.Content, "1. As a user, I want to register")
		assert.Contains(t, doc.Content, "   Acceptance Criteria:\n   1. Given the form")
		assert.Contains(t, doc.Content, "2. As an admin, I want to view reports")
	})

	t.Run("markdown format", func(t *testing.T) {
		doc, err := renderAt(sampleStories, "md", at)
		require.NoError(t, err)

		assert.Equal(t, "user_stories_20260314_092653.md", doc.Filename)
		assert.Equal(t, "text/markdown", doc.MimeType)
		assert.Contains(t, doc.Content, "# User Stories with Acceptance Criteria")
		assert.Contains(t, doc.Content, "*Generated on: 2026-03-14 09:26:53 UTC*")
		assert.Contains(t, doc.Content, "## 1. As a user, I want to register")
		assert.Contains(t, doc.Content, "### Acceptance Criteria:")
	})

	t.Run("format is case-insensitive", func(t *testing.T) {
		doc, err := Render(sampleStories, " MD ")
		require.NoError(t, err)
		assert.Equal(t, "md", doc.Format)
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, err := Render(sampleStories, "pdf")
		require.Error(t, err)

		var unsupported *ErrUnsupportedFormat
		require.ErrorAs(t, err, &unsupported)
		assert.Equal(t, "pdf", unsupported.Format)
	})

	t.Run("story without criteria omits the criteria block", func(t *testing.T) {
		doc, err := renderAt(sampleStories[1:], "txt", at)
		require.NoError(t, err)
		assert.NotContains(t, doc.Content, "Acceptance Criteria")
	})
}
