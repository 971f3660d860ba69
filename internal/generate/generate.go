// Package generate turns free-form requirements into structured user
// stories by calling an OpenAI-compatible chat completion API.
package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/storyagent/storyagent-go/internal/config"
	"github.com/storyagent/storyagent-go/internal/domain"
)

// MinRequirementsLength is the shortest requirements text worth sending to
// the model.
const MinRequirementsLength = 10

var (
	ErrNotConfigured        = errors.New("story generation is not configured: set OPENROUTER_API_KEY")
	ErrRequirementsTooShort = fmt.Errorf("requirements must be at least %d characters long", MinRequirementsLength)
)

const systemPrompt = "You are a professional software analyst who creates clear, actionable user stories " +
	"with acceptance criteria for agile development. You analyze project requirements and determine the " +
	"appropriate number of user stories based on complexity and scope. For simple projects, generate fewer " +
	"stories. For complex projects, generate more comprehensive stories. Always respond with valid JSON " +
	"arrays containing story and acceptance_criteria fields."

const promptTemplate = `Given the following project requirements, generate user stories with acceptance criteria for agile development.

Requirements:
%s

Please analyze the requirements and generate an appropriate number of user stories based on the complexity and scope of the project.
- For simple requirements: Generate 2-4 user stories
- For medium complexity: Generate 4-6 user stories
- For complex requirements: Generate 6-10 user stories
- For very complex projects: Generate 8-15 user stories

Please output ONLY a JSON array of objects. Each object should contain:
- "story": The user story in format "As a <role>, I want <feature> so that <reason>."
- "acceptance_criteria": An array of acceptance criteria in "Given... When... Then..." format

Generate the appropriate number of user stories based on the complexity of the requirements provided, with 3-4 acceptance criteria each.`

// Client calls an OpenRouter-style chat completion endpoint
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewClient creates a generation client from configuration. Returns
// ErrNotConfigured when no API key is set.
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg.OpenRouterAPIKey == "" {
		return nil, ErrNotConfigured
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.OpenRouterBaseURL, "/"),
		apiKey:  cfg.OpenRouterAPIKey,
		model:   cfg.OpenRouterModel,
		client: &http.Client{
			// Generation is the slowest call in the system; give it more
			// room than the tracker timeout.
			Timeout: 120 * time.Second,
		},
	}, nil
}

// Model returns the configured model identifier
func (c *Client) Model() string {
	return c.model
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate produces user stories for the given requirements. Model output
// that is not clean JSON is recovered by the text extractor, so a non-empty
// story list always comes back from a successful call.
func (c *Client) Generate(ctx context.Context, requirements string) ([]domain.StoryRecord, error) {
	if len(strings.TrimSpace(requirements)) < MinRequirementsLength {
		return nil, ErrRequirementsTooShort
	}

	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(promptTemplate, requirements)},
		},
		Temperature: 0.7,
		MaxTokens:   2000,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Title", "Story Export Orchestrator")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read completion response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse completion response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if parsed.Error != nil && parsed.Error.Message != "" {
			return nil, fmt.Errorf("completion API returned status %d: %s", resp.StatusCode, parsed.Error.Message)
		}
		return nil, fmt.Errorf("completion API returned status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.New("completion response contained no choices")
	}

	return ParseStories(parsed.Choices[0].Message.Content), nil
}
