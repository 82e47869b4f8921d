package mockapi

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainboard/brainboard/internal/core"
)

func seededFeed(t *testing.T) *feed {
	t.Helper()
	f := newFeed()
	seedFeed(f, time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC))
	require.Equal(t, 3, f.size())
	return f
}

func authors(posts []core.Post) []string {
	names := make([]string, 0, len(posts))
	for _, p := range posts {
		names = append(names, p.AuthorName)
	}
	return names
}

func TestFeedListOrders(t *testing.T) {
	f := seededFeed(t)

	assert.Equal(t, []string{"Alice Cooper", "Bob Wilson", "Carol Smith"}, authors(f.list("u", "", core.SortRecent, 0)))
	assert.Equal(t, []string{"Carol Smith", "Alice Cooper", "Bob Wilson"}, authors(f.list("u", "", core.SortPopular, 0)))
	assert.Equal(t, "Bob Wilson", f.list("u", "", core.SortCommented, 0)[0].AuthorName)
	assert.Len(t, f.list("u", "", "", 2), 2)

	questions := f.list("u", core.PostTypeQuestion, "", 0)
	require.Len(t, questions, 1)
	assert.Equal(t, 2, questions[0].CommentCount)
}

func TestFeedToggleLike(t *testing.T) {
	f := seededFeed(t)
	post := f.list("u", core.PostTypeQuestion, "", 0)[0]

	liked, err := f.toggleLike("u", post.ID)
	require.NoError(t, err)
	assert.True(t, liked.Liked)
	assert.Equal(t, post.Likes+1, liked.Likes)
	assert.True(t, f.list("u", core.PostTypeQuestion, "", 0)[0].LikedByMe)
	assert.False(t, f.list("someone-else", core.PostTypeQuestion, "", 0)[0].LikedByMe)

	unliked, err := f.toggleLike("u", post.ID)
	require.NoError(t, err)
	assert.False(t, unliked.Liked)
	assert.Equal(t, post.Likes, unliked.Likes)

	_, err = f.toggleLike("u", "missing")
	assert.ErrorIs(t, err, errPostNotFound)
}

func TestFeedComments(t *testing.T) {
	f := seededFeed(t)
	post := f.list("u", core.PostTypeDiscussion, core.SortPopular, 0)[0]

	_, err := f.comment(core.Comment{ID: "c1", PostID: post.ID, AuthorName: "John Doe", Content: "Pomodoro works"})
	require.NoError(t, err)

	comments, err := f.comments("u", post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "Pomodoro works", comments[0].Content)

	_, err = f.comments("u", "missing")
	assert.ErrorIs(t, err, errPostNotFound)
	_, err = f.comment(core.Comment{PostID: "missing"})
	assert.ErrorIs(t, err, errPostNotFound)
}

func TestFeedToggleCommentLike(t *testing.T) {
	f := seededFeed(t)
	post := f.list("u", core.PostTypeQuestion, "", 0)[0]
	comments, err := f.comments("u", post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	target := comments[0]

	liked, err := f.toggleCommentLike("u", post.ID, target.ID)
	require.NoError(t, err)
	assert.Equal(t, post.ID, liked.PostID)
	assert.Equal(t, target.ID, liked.CommentID)
	assert.True(t, liked.Liked)
	assert.Equal(t, target.Likes+1, liked.Likes)

	mine, err := f.comments("u", post.ID)
	require.NoError(t, err)
	assert.True(t, mine[0].LikedByMe)
	assert.Equal(t, target.Likes+1, mine[0].Likes)
	assert.False(t, mine[1].LikedByMe)
	theirs, err := f.comments("someone-else", post.ID)
	require.NoError(t, err)
	assert.False(t, theirs[0].LikedByMe)

	unliked, err := f.toggleCommentLike("u", post.ID, target.ID)
	require.NoError(t, err)
	assert.False(t, unliked.Liked)
	assert.Equal(t, target.Likes, unliked.Likes)

	_, err = f.toggleCommentLike("u", "missing", target.ID)
	assert.ErrorIs(t, err, errPostNotFound)
	_, err = f.toggleCommentLike("u", post.ID, "missing")
	assert.ErrorIs(t, err, errCommentNotFound)
}

func TestFeedSearch(t *testing.T) {
	f := seededFeed(t)

	assert.Empty(t, f.search("c"))
	assert.Empty(t, f.search("  "))

	results := f.search("CALCULUS")
	require.Len(t, results, 1)
	assert.Equal(t, "Calculus 101", results[0].Title)

	groups := f.search("group")
	assert.Len(t, groups, 2)

	assert.Len(t, f.search("major"), 3)
}

func TestFeedSearchCapsResults(t *testing.T) {
	f := newFeed()
	items := make([]core.SearchItem, 12)
	for i := range items {
		items[i] = core.SearchItem{Title: "Study Group", Type: "Group", Desc: "weekly"}
	}
	f.setCatalog(items)

	assert.Len(t, f.search("study"), MaxSearchResults)
}

func TestCleanBodyCountsCharacters(t *testing.T) {
	content, msg := cleanBody("  " + strings.Repeat("é", maxStoredContent) + " ")
	assert.Empty(t, msg)
	assert.Equal(t, strings.Repeat("é", maxStoredContent), content)

	_, msg = cleanBody(strings.Repeat("é", maxStoredContent+1))
	assert.Contains(t, msg, "exceeds")

	_, msg = cleanBody("   ")
	assert.Equal(t, "Content is required", msg)
}
