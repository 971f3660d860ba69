// Package estimate derives effort scores for user stories.
package estimate

import "github.com/storyagent/storyagent-go/internal/domain"

// Effort score bounds. The maximum follows the Fibonacci-style point scale
// (1, 2, 3, 5, 8, 13) used by the ticket tracker.
const (
	BaseScore = 3
	MaxScore  = 13
)

// Estimate returns an effort score in [BaseScore, MaxScore] for a story.
// The score grows with the number of acceptance criteria and with the
// length of the narrative. It is deterministic and recomputed per export.
func Estimate(story domain.StoryRecord) int {
	score := BaseScore

	switch criteria := len(story.AcceptanceCriteria); {
	case criteria <= 2:
		// base only
	case criteria <= 4:
		score += 2
	case criteria <= 6:
		score += 4
	default:
		score += 6
	}

	// Narrative length is a rough complexity indicator. Both bonuses are
	// strict greater-than and stack.
	if len(story.Story) > 200 {
		score++
	}
	if len(story.Story) > 400 {
		score++
	}

	if score > MaxScore {
		score = MaxScore
	}
	return score
}
