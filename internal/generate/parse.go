package generate

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/storyagent/storyagent-go/internal/domain"
)

// defaultStory is returned when no stories can be recovered from model
// output at all.
var defaultStory = domain.StoryRecord{
	Story: "As a user, I want to implement the requirements so that the system meets the business needs.",
	AcceptanceCriteria: []string{
		"Given the requirements are clear, When implemented correctly, Then the system should meet business needs",
		"Given the system is implemented, When tested thoroughly, Then it should work as expected",
	},
}

// ParseStories turns raw model output into story records. Clean JSON is
// preferred; anything else goes through line-based text extraction, so the
// result is always non-empty.
func ParseStories(content string) []domain.StoryRecord {
	content = stripCodeFences(content)

	var stories []domain.StoryRecord
	if err := json.Unmarshal([]byte(content), &stories); err == nil && len(stories) > 0 {
		return stories
	}

	return extractFromText(content)
}

// stripCodeFences removes a surrounding markdown code fence, with or
// without a language tag
func stripCodeFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	content = strings.TrimPrefix(content, "```")
	if idx := strings.Index(content, "\n"); idx >= 0 {
		content = content[idx+1:] // drop the language tag line
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}

// extractFromText recovers stories from prose output. A story line starts
// with "As a " and contains "I want" or "I need"; criteria lines are
// Given/When/Then sentences, optionally numbered. Stories without criteria
// get a generic placeholder criterion.
func extractFromText(text string) []domain.StoryRecord {
	var (
		stories         []domain.StoryRecord
		currentStory    string
		currentCriteria []string
	)

	flush := func() {
		if currentStory == "" {
			return
		}
		criteria := currentCriteria
		if len(criteria) == 0 {
			criteria = []string{
				"Given the user story '" + currentStory + "', When implemented correctly, Then the feature should work as expected",
			}
		}
		stories = append(stories, domain.StoryRecord{Story: currentStory, AcceptanceCriteria: criteria})
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, "As a ") && (strings.Contains(line, "I want") || strings.Contains(line, "I need")):
			flush()
			currentStory = line
			currentCriteria = nil

		case strings.HasPrefix(line, "Given ") && strings.Contains(line, "When ") && strings.Contains(line, "Then "):
			currentCriteria = append(currentCriteria, line)

		case isNumberedCriterion(line):
			criterion := stripNumbering(line)
			if strings.HasPrefix(criterion, "Given ") || strings.HasPrefix(criterion, "When ") || strings.HasPrefix(criterion, "Then ") {
				currentCriteria = append(currentCriteria, criterion)
			}
		}
	}
	flush()

	if len(stories) == 0 {
		return []domain.StoryRecord{defaultStory}
	}
	return stories
}

// isNumberedCriterion reports whether the line looks like "1. Given ..." or
// "2) When ..."
func isNumberedCriterion(line string) bool {
	if line == "" {
		return false
	}

	hasDigit := false
	for _, r := range line[:min(3, len(line))] {
		if r >= '0' && r <= '9' {
			hasDigit = true
			break
		}
	}
	if !hasDigit {
		return false
	}

	return strings.Contains(line, "Given ") || strings.Contains(line, "When ") || strings.Contains(line, "Then ")
}

// stripNumbering removes leading "N. " or "N) " markers
func stripNumbering(line string) string {
	for i := 1; i < 10; i++ {
		n := strconv.Itoa(i)
		line = strings.ReplaceAll(line, n+". ", "")
		line = strings.ReplaceAll(line, n+") ", "")
	}
	return line
}
