package export

import (
	"fmt"
	"strings"

	"github.com/storyagent/storyagent-go/internal/domain"
)

// FormatDescription renders a story as a ticket description: the narrative
// followed by a numbered acceptance criteria list.
func FormatDescription(story domain.StoryRecord) string {
	var b strings.Builder

	b.WriteString("*User Story:*\n")
	b.WriteString(strings.TrimSpace(story.Story))

	if len(story.AcceptanceCriteria) > 0 {
		b.WriteString("\n\n*Acceptance Criteria:*\n")
		for i, criterion := range story.AcceptanceCriteria {
			fmt.Fprintf(&b, "%d. %s\n", i+1, strings.TrimSpace(criterion))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
