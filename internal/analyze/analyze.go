// Package analyze estimates the scope of a requirements text before any
// model call is made: word and sentence counts, technical feature
// indicators, and a projected story count range.
package analyze

import (
	"fmt"
	"strings"
	"time"

	"github.com/storyagent/storyagent-go/internal/generate"
)

// technicalTerms are feature indicators that push the complexity estimate
// upwards when several appear in the requirements.
var technicalTerms = []string{
	"api", "database", "authentication", "authorization", "integration",
	"workflow", "reporting", "dashboard", "notification", "payment",
	"search", "filter", "export", "import",
}

// RequirementsAnalysis summarizes the measured properties of the text
type RequirementsAnalysis struct {
	WordCount           int     `json:"word_count"`
	SentenceCount       int     `json:"sentence_count"`
	EstimatedComplexity string  `json:"estimated_complexity"`
	ComplexityScore     float64 `json:"complexity_score"`
	FeatureIndicators   int     `json:"feature_indicators"`
}

// StoryEstimation projects how many stories generation should produce
type StoryEstimation struct {
	EstimatedMinStories int    `json:"estimated_min_stories"`
	EstimatedMaxStories int    `json:"estimated_max_stories"`
	RecommendedApproach string `json:"recommended_approach"`
}

// Result is the full analysis response
type Result struct {
	RequirementsAnalysis RequirementsAnalysis `json:"requirements_analysis"`
	StoryEstimation      StoryEstimation      `json:"story_estimation"`
	AnalysisTimestamp    string               `json:"analysis_timestamp"`
	Status               string               `json:"status"`
}

type estimateRange struct {
	min        int
	max        int
	complexity string
}

// Half-point scores produced by the feature adjustment fall outside this
// table and take the medium default.
var storyEstimates = map[float64]estimateRange{
	1: {min: 2, max: 4, complexity: "Simple"},
	2: {min: 4, max: 6, complexity: "Medium"},
	3: {min: 6, max: 10, complexity: "Complex"},
	4: {min: 8, max: 15, complexity: "Very Complex"},
}

var defaultEstimate = estimateRange{min: 4, max: 8, complexity: "Medium"}

// Analyze measures a requirements text and projects a story count range.
// Requirements shorter than the generation minimum are rejected.
func Analyze(requirements string) (*Result, error) {
	if len(strings.TrimSpace(requirements)) < generate.MinRequirementsLength {
		return nil, generate.ErrRequirementsTooShort
	}

	wordCount := len(strings.Fields(requirements))

	sentenceCount := 0
	for _, s := range strings.Split(requirements, ".") {
		if strings.TrimSpace(s) != "" {
			sentenceCount++
		}
	}

	var score float64
	switch {
	case wordCount < 50:
		score = 1
	case wordCount < 150:
		score = 2
	case wordCount < 300:
		score = 3
	default:
		score = 4
	}

	lowered := strings.ToLower(requirements)
	featureCount := 0
	for _, term := range technicalTerms {
		if strings.Contains(lowered, term) {
			featureCount++
		}
	}

	switch {
	case featureCount > 5:
		score = min(4, score+1)
	case featureCount > 2:
		score = min(4, score+0.5)
	}

	estimate, ok := storyEstimates[score]
	if !ok {
		estimate = defaultEstimate
	}

	return &Result{
		RequirementsAnalysis: RequirementsAnalysis{
			WordCount:           wordCount,
			SentenceCount:       sentenceCount,
			EstimatedComplexity: estimate.complexity,
			ComplexityScore:     score,
			FeatureIndicators:   featureCount,
		},
		StoryEstimation: StoryEstimation{
			EstimatedMinStories: estimate.min,
			EstimatedMaxStories: estimate.max,
			RecommendedApproach: fmt.Sprintf("Based on the complexity, expect %d-%d user stories", estimate.min, estimate.max),
		},
		AnalysisTimestamp: time.Now().UTC().Format(time.RFC3339),
		Status:            "success",
	}, nil
}
