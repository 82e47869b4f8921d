package output

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainboard/brainboard/internal/core"
	"github.com/brainboard/brainboard/internal/security"
	"github.com/brainboard/brainboard/internal/session"
)

func samplePosts() []core.Post {
	return []core.Post{
		{
			ID:           "01J9ZK",
			AuthorName:   "Carol Smith",
			Type:         core.PostTypeDiscussion,
			Content:      "Study tip: Use the Pomodoro Technique!",
			Likes:        42,
			LikedByMe:    true,
			CommentCount: 7,
			CreatedAt:    time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
		},
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{
		"":         FormatTable,
		"table":    FormatTable,
		"JSON":     FormatJSON,
		"yml":      FormatYAML,
		"yaml":     FormatYAML,
		"markdown": FormatMarkdown,
	}
	for input, want := range cases {
		got, err := ParseFormat(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseFormat("csv")
	require.Error(t, err)
}

func TestRenderPostsTable(t *testing.T) {
	rendered, err := Render(FormatTable, samplePosts())
	require.NoError(t, err)
	assert.Contains(t, rendered, "Carol Smith")
	assert.Contains(t, rendered, "42 ♥")
	assert.Contains(t, strings.ToLower(rendered), "1 posts")
}

func TestRenderPostsJSON(t *testing.T) {
	rendered, err := Render(FormatJSON, samplePosts())
	require.NoError(t, err)

	var decoded []core.Post
	require.NoError(t, json.Unmarshal([]byte(rendered), &decoded))
	assert.Equal(t, "Carol Smith", decoded[0].AuthorName)
	assert.Contains(t, rendered, "\"author_name\": \"Carol Smith\"")
}

func TestRenderYAMLUsesJSONNames(t *testing.T) {
	rendered, err := Render(FormatYAML, core.SearchResults{
		Query:   "calc",
		Results: []core.SearchItem{{Title: "Calculus 101", Type: "Course", Desc: "Advanced calculus and derivatives"}},
	})
	require.NoError(t, err)
	assert.Contains(t, rendered, "query: calc")
	assert.Contains(t, rendered, "title: Calculus 101")
}

func TestRenderMarkdown(t *testing.T) {
	rendered, err := Render(FormatMarkdown, core.SearchResults{
		Query:   "a|b",
		Results: []core.SearchItem{{Title: "Linear Algebra Help", Type: "Question", Desc: "Matrix multiplication confusion"}},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rendered, `## Results for "a\|b"`))
	assert.Contains(t, rendered, "| Linear Algebra Help |")
}

func TestRenderKeyValueTypes(t *testing.T) {
	rendered, err := Render(FormatTable, session.Info{Authenticated: true, CSRFToken: "abc123"})
	require.NoError(t, err)
	assert.Contains(t, rendered, "Authenticated")
	assert.Contains(t, rendered, "abc123")

	rendered, err = Render(FormatTable, security.ValidatePasswordStrength("short"))
	require.NoError(t, err)
	assert.Contains(t, rendered, "weak")
	assert.Contains(t, rendered, security.RequirementUpper)

	rendered, err = Render(FormatTable, core.Upload{ID: "u1", Name: "board.png", Type: core.UploadPhoto, Width: 640, Height: 480, ThumbWidth: 320, ThumbHeight: 240})
	require.NoError(t, err)
	assert.Contains(t, rendered, "640x480")
	assert.Contains(t, rendered, "320x240")

	rendered, err = Render(FormatTable, core.LikeResult{PostID: "p1", CommentID: "c7", Liked: true, Likes: 3})
	require.NoError(t, err)
	assert.Contains(t, rendered, "Comment")
	assert.Contains(t, rendered, "c7")

	rendered, err = Render(FormatTable, core.LikeResult{PostID: "p1", Likes: 3})
	require.NoError(t, err)
	assert.NotContains(t, rendered, "Comment")

	input := "<b>hi</b> OR 1=1"
	rendered, err = Render(FormatJSON, TextReport{Sanitized: security.SanitizeText(input), Injection: security.DetectInjectionPattern(input)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"sanitized":"&lt;b&gt;hi&lt;/b&gt; OR 1=1","injection":{"sql":true,"script":false}}`, rendered)
}

func TestRenderRateLimits(t *testing.T) {
	backoff := time.Date(2026, 10, 1, 9, 5, 0, 0, time.UTC)
	rendered, err := Render(FormatTable, []RateLimitRow{
		{Key: "api.brainboard.example.com", State: core.RateLimitState{RequestCount: 3, WindowStart: backoff.Add(-time.Minute), BackoffUntil: &backoff}},
	})
	require.NoError(t, err)
	assert.Contains(t, rendered, "api.brainboard.example.com")
	assert.Contains(t, strings.ToLower(rendered), "1 windows")
}

func TestRenderMessage(t *testing.T) {
	rendered, err := Render(FormatTable, Message{Text: "Logged out"})
	require.NoError(t, err)
	assert.Equal(t, "Logged out", rendered)

	rendered, err = Render(FormatJSON, Message{Text: "Logged out"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"Logged out"}`, rendered)
}

func TestRenderUnknownType(t *testing.T) {
	_, err := Render(FormatTable, struct{}{})
	require.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b", truncate("a\n  b", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
