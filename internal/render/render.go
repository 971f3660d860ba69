// Package render produces downloadable documents from story lists.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/storyagent/storyagent-go/internal/domain"
)

// Supported output formats
const (
	FormatText     = "txt"
	FormatMarkdown = "md"
)

// ErrUnsupportedFormat carries the rejected format name
type ErrUnsupportedFormat struct {
	Format string
}

func (e *ErrUnsupportedFormat) Error() string {
	return fmt.Sprintf("unsupported format %q: format must be 'txt' or 'md'", e.Format)
}

// Document is a rendered file ready to hand to the client
type Document struct {
	Content  string `json:"content"`
	Filename string `json:"filename"`
	Format   string `json:"format"`
	MimeType string `json:"mime_type"`
}

// Render formats stories into the requested document type. The filename
// embeds a UTC timestamp so repeated downloads never collide.
func Render(stories []domain.StoryRecord, format string) (*Document, error) {
	return renderAt(stories, format, time.Now().UTC())
}

func renderAt(stories []domain.StoryRecord, format string, now time.Time) (*Document, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	filename := fmt.Sprintf("user_stories_%s.%s", now.Format("20060102_150405"), format)

	switch format {
	case FormatText:
		return &Document{
			Content:  renderText(stories),
			Filename: filename,
			Format:   FormatText,
			MimeType: "text/plain",
		}, nil
	case FormatMarkdown:
		return &Document{
			Content:  renderMarkdown(stories, now),
			Filename: filename,
			Format:   FormatMarkdown,
			MimeType: "text/markdown",
		}, nil
	default:
		return nil, &ErrUnsupportedFormat{Format: format}
	}
}

func renderText(stories []domain.StoryRecord) string {
	var b strings.Builder

	b.WriteString("USER STORIES\n")
	b.WriteString(strings.Repeat("=", 50) + "\n\n")

	for i, story := range stories {
		fmt.Fprintf(&b, "%d. %s\n\n", i+1, story.Story)

		if len(story.AcceptanceCriteria) > 0 {
			b.WriteString("   Acceptance Criteria:\n")
			for j, criterion := range story.AcceptanceCriteria {
				fmt.Fprintf(&b, "   %d. %s\n", j+1, criterion)
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}

func renderMarkdown(stories []domain.StoryRecord, now time.Time) string {
	var b strings.Builder

	b.WriteString("# User Stories with Acceptance Criteria\n\n")
	fmt.Fprintf(&b, "*Generated on: %s*\n\n", now.Format("2006-01-02 15:04:05 UTC"))
	b.WriteString("---\n\n")

	for i, story := range stories {
		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, story.Story)

		if len(story.AcceptanceCriteria) > 0 {
			b.WriteString("### Acceptance Criteria:\n\n")
			for j, criterion := range story.AcceptanceCriteria {
				fmt.Fprintf(&b, "%d. %s\n", j+1, criterion)
			}
			b.WriteString("\n")
		}
		b.WriteString("---\n\n")
	}

	return b.String()
}
