package generate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyagent/storyagent-go/internal/config"
)

func newTestGenerator(t *testing.T, serverURL string) *Client {
	t.Helper()

	cfg := config.New()
	cfg.OpenRouterAPIKey = "sk-test"
	cfg.OpenRouterBaseURL = serverURL
	cfg.OpenRouterModel = "test-model"

	client, err := NewClient(cfg)
	require.NoError(t, err)
	return client
}

func completionResponse(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestNewClient(t *testing.T) {
	t.Run("requires api key", func(t *testing.T) {
		_, err := NewClient(config.New())
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("configured client reports model", func(t *testing.T) {
		cfg := config.New()
		cfg.OpenRouterAPIKey = "sk-test"
		client, err := NewClient(cfg)
		require.NoError(t, err)
		assert.Equal(t, config.DefaultOpenRouterModel, client.Model())
	})
}

func TestGenerate(t *testing.T) {
	t.Run("sends prompt and parses stories", func(t *testing.T) {
		var captured map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

			w.Write([]byte(completionResponse(`[{"story":"As a user, I want to log in so that I can access my account.","acceptance_criteria":["Given a registered user, When they log in, Then they see their dashboard"]}]`)))
		}))
		defer srv.Close()

		stories, err := newTestGenerator(t, srv.URL).Generate(context.Background(), "Build a login system with session management.")
		require.NoError(t, err)
		require.Len(t, stories, 1)
		assert.Contains(t, stories[0].Story, "log in")
		assert.Len(t, stories[0].AcceptanceCriteria, 1)

		assert.Equal(t, "test-model", captured["model"])
		messages := captured["messages"].([]any)
		require.Len(t, messages, 2)
		assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	})

	t.Run("rejects too-short requirements without calling", func(t *testing.T) {
		called := false
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		defer srv.Close()

		_, err := newTestGenerator(t, srv.URL).Generate(context.Background(), "   short   ")
		assert.ErrorIs(t, err, ErrRequirementsTooShort)
		assert.False(t, called)
	})

	t.Run("surfaces API error message", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"rate limit exceeded"}}`))
		}))
		defer srv.Close()

		_, err := newTestGenerator(t, srv.URL).Generate(context.Background(), "Build a login system with session management.")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limit exceeded")
	})
}

func TestParseStories(t *testing.T) {
	t.Run("clean json array", func(t *testing.T) {
		stories := ParseStories(`[{"story":"As a user, I want search.","acceptance_criteria":["Given data, When searching, Then results appear"]}]`)
		require.Len(t, stories, 1)
		assert.Equal(t, "As a user, I want search.", stories[0].Story)
	})

	t.Run("json wrapped in code fence", func(t *testing.T) {
		stories := ParseStories("```json\n[{\"story\":\"As a user, I want search.\",\"acceptance_criteria\":[]}]\n```")
		require.Len(t, stories, 1)
		assert.Equal(t, "As a user, I want search.", stories[0].Story)
	})

	t.Run("prose output falls back to extraction", func(t *testing.T) {
		text := `Here are your stories:

As a user, I want to register so that I can have an account.
Given I am on the registration page, When I submit valid details, Then my account is created
1. Given a weak password, When I submit, Then I see strength requirements

As an admin, I need to review reports so that I can track usage.`

		stories := ParseStories(text)
		require.Len(t, stories, 2)

		assert.Contains(t, stories[0].Story, "register")
		require.Len(t, stories[0].AcceptanceCriteria, 2)
		assert.Equal(t, "Given a weak password, When I submit, Then I see strength requirements", stories[0].AcceptanceCriteria[1])

		// Stories without criteria get a placeholder.
		assert.Contains(t, stories[1].Story, "review reports")
		require.Len(t, stories[1].AcceptanceCriteria, 1)
		assert.Contains(t, stories[1].AcceptanceCriteria[0], "implemented correctly")
	})

	t.Run("unusable output yields the default story", func(t *testing.T) {
		stories := ParseStories("I could not generate anything useful.")
		require.Len(t, stories, 1)
		assert.Contains(t, stories[0].Story, "implement the requirements")
		assert.Len(t, stories[0].AcceptanceCriteria, 2)
	})

	t.Run("empty json array falls through to extraction default", func(t *testing.T) {
		stories := ParseStories("[]")
		require.Len(t, stories, 1)
		assert.Contains(t, stories[0].Story, "implement the requirements")
	})
}
