package estimate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/storyagent/storyagent-go/internal/domain"
)

func storyWith(narrativeLen, criteria int) domain.StoryRecord {
	ac := make([]string, criteria)
	for i := range ac {
		ac[i] = "Given a precondition, When an action occurs, Then a result follows"
	}
	return domain.StoryRecord{
		Story:              strings.Repeat("a", narrativeLen),
		AcceptanceCriteria: ac,
	}
}

func TestEstimate_CriteriaBuckets(t *testing.T) {
	tests := []struct {
		name     string
		criteria int
		expected int
	}{
		{"no criteria", 0, 3},
		{"one criterion", 1, 3},
		{"two criteria", 2, 3},
		{"three criteria", 3, 5},
		{"four criteria", 4, 5},
		{"five criteria", 5, 7},
		{"six criteria", 6, 7},
		{"seven criteria", 7, 9},
		{"many criteria", 12, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Estimate(storyWith(50, tt.criteria)))
		})
	}
}

func TestEstimate_LengthBonus(t *testing.T) {
	tests := []struct {
		name     string
		length   int
		expected int
	}{
		{"exactly 200 gets no bonus", 200, 3},
		{"201 gets one bonus point", 201, 4},
		{"exactly 400 still only one bonus", 400, 4},
		{"401 gets both bonuses", 401, 5},
		{"450 gets both bonuses", 450, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Estimate(storyWith(tt.length, 0)))
		})
	}
}

func TestEstimate_Clamp(t *testing.T) {
	// 3 base + 6 criteria bucket + 2 length bonuses = 11, under the cap
	assert.Equal(t, 11, Estimate(storyWith(450, 8)))

	// The cap itself can never be exceeded
	assert.LessOrEqual(t, Estimate(storyWith(10000, 50)), MaxScore)
}

func TestEstimate_Bounds(t *testing.T) {
	for _, criteria := range []int{0, 1, 3, 5, 7, 20} {
		for _, length := range []int{0, 100, 200, 201, 400, 401, 1000} {
			score := Estimate(storyWith(length, criteria))
			assert.GreaterOrEqual(t, score, BaseScore)
			assert.LessOrEqual(t, score, MaxScore)
		}
	}
}

func TestEstimate_Monotonic(t *testing.T) {
	t.Run("non-decreasing in criteria count", func(t *testing.T) {
		prev := 0
		for criteria := 0; criteria <= 10; criteria++ {
			score := Estimate(storyWith(100, criteria))
			assert.GreaterOrEqual(t, score, prev)
			prev = score
		}
	})

	t.Run("non-decreasing in narrative length", func(t *testing.T) {
		prev := 0
		for _, length := range []int{0, 150, 250, 350, 450, 600} {
			score := Estimate(storyWith(length, 3))
			assert.GreaterOrEqual(t, score, prev)
			prev = score
		}
	})
}
