package mockapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainboard/brainboard/internal/core"
	"github.com/brainboard/brainboard/internal/session"
)

func newAPIServer(t *testing.T, cfg Config) (*API, *httptest.Server) {
	t.Helper()
	api, err := New(cfg)
	require.NoError(t, err)
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return api, srv
}

func newSessionClient(t *testing.T, srv *httptest.Server) *session.Client {
	t.Helper()
	client, err := session.New(context.Background(), session.Options{
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	})
	require.NoError(t, err)
	return client
}

func TestSessionClientAgainstSimulatedAPI(t *testing.T) {
	ctx := context.Background()
	_, srv := newAPIServer(t, Config{})
	client := newSessionClient(t, srv)

	profile, err := client.Login(ctx, DemoEmail, DemoPassword)
	require.NoError(t, err)
	assert.Equal(t, "John", profile.FirstName)

	posts, err := client.GetPosts(ctx, core.PostFilter{Sort: core.SortPopular})
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, "Carol Smith", posts[0].AuthorName)

	created, err := client.CreatePost(ctx, core.NewPost{Content: "Anyone up for <b>flashcards</b>?", Type: "question"})
	require.NoError(t, err)
	assert.Equal(t, "John Doe", created.AuthorName)
	assert.Equal(t, "Anyone up for &lt;b&gt;flashcards&lt;/b&gt;?", created.Content)

	liked, err := client.LikePost(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, liked.Liked)
	assert.Equal(t, 1, liked.Likes)

	_, err = client.CommentOnPost(ctx, created.ID, "Count me in")
	require.NoError(t, err)
	comments, err := client.GetComments(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "Count me in", comments[0].Content)

	commentLike, err := client.LikeComment(ctx, created.ID, comments[0].ID)
	require.NoError(t, err)
	assert.Equal(t, comments[0].ID, commentLike.CommentID)
	assert.True(t, commentLike.Liked)
	assert.Equal(t, 1, commentLike.Likes)
	comments, err = client.GetComments(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, comments[0].LikedByMe)
	_, err = client.LikeComment(ctx, created.ID, "missing")
	assert.ErrorIs(t, err, session.ErrRequestFailed)

	results, err := client.Search(ctx, "physics")
	require.NoError(t, err)
	require.Len(t, results.Results, 1)
	assert.Equal(t, "Physics Study Group", results.Results[0].Title)

	updated, err := client.UpdateProfile(ctx, core.ProfileUpdate{FirstName: "Johnny", LastName: "Doe", Phone: "+1 555 0100"})
	require.NoError(t, err)
	assert.Equal(t, "Johnny", updated.FirstName)

	photo := pngBytes(t, 1000, 500)
	upload, err := client.UploadFile(ctx, session.File{
		Name:    "whiteboard.png",
		MIME:    "image/png",
		Size:    int64(len(photo)),
		Content: bytes.NewReader(photo),
	}, core.UploadPhoto)
	require.NoError(t, err)
	assert.Equal(t, 320, upload.ThumbWidth)
	assert.Equal(t, 160, upload.ThumbHeight)

	refreshed, err := client.RefreshAccessToken(ctx)
	require.NoError(t, err)
	assert.True(t, refreshed)
	_, err = client.GetProfile(ctx)
	require.NoError(t, err)

	client.Logout(ctx)
	_, err = client.GetProfile(ctx)
	assert.ErrorIs(t, err, session.ErrUnauthorized)
}

func TestSignupThroughSessionClient(t *testing.T) {
	ctx := context.Background()
	_, srv := newAPIServer(t, Config{})
	client := newSessionClient(t, srv)

	profile, err := client.Signup(ctx, core.SignupData{
		FirstName: "Grace",
		LastName:  "Hopper",
		Email:     "grace@example.com",
		Password:  "Compiler#1952",
	})
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", profile.Email)

	other := newSessionClient(t, srv)
	_, err = other.Signup(ctx, core.SignupData{
		FirstName: "Grace",
		LastName:  "Again",
		Email:     "grace@example.com",
		Password:  "Compiler#1952",
	})
	require.ErrorIs(t, err, session.ErrRequestFailed)
	assert.Contains(t, err.Error(), "already exists")
}

func TestLoginWrongPasswordIsUnauthorized(t *testing.T) {
	_, srv := newAPIServer(t, Config{})
	client := newSessionClient(t, srv)

	_, err := client.Login(context.Background(), DemoEmail, "Wrong#Pass1")
	assert.ErrorIs(t, err, session.ErrUnauthorized)
}

func TestRoutesRequireTokenAndCSRF(t *testing.T) {
	_, srv := newAPIServer(t, Config{})

	resp, err := srv.Client().Get(srv.URL + "/posts")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body core.APIMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Authentication required", body.Message)

	login := strings.NewReader(`{"email":"` + DemoEmail + `","password":"` + DemoPassword + `"}`)
	resp2, err := srv.Client().Post(srv.URL+"/auth/login", "application/json", login)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp2.StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/user/profile", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer garbage")
	resp3, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp3.StatusCode)
}

func TestListPostsRejectsUnknownSort(t *testing.T) {
	api, err := New(Config{})
	require.NoError(t, err)
	access, _, err := api.tokens.issue(mustDemoID(t, api))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/posts?sort=oldest", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"message":"Unknown sort order \"oldest\""`)
}

func TestUploadTooLarge(t *testing.T) {
	_, srv := newAPIServer(t, Config{MaxUploadBytes: 1024})
	client := newSessionClient(t, srv)
	ctx := context.Background()
	_, err := client.Login(ctx, DemoEmail, DemoPassword)
	require.NoError(t, err)

	data := bytes.Repeat([]byte("a"), 4096)
	_, err = client.UploadFile(ctx, session.File{Name: "big.txt", MIME: "text/plain", Size: int64(len(data)), Content: bytes.NewReader(data)}, core.UploadDocument)
	require.ErrorIs(t, err, session.ErrRequestFailed)
	assert.Contains(t, err.Error(), "413")
}

func TestCheckHealth(t *testing.T) {
	api, err := New(Config{})
	require.NoError(t, err)
	assert.NoError(t, api.CheckHealth(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, api.CheckHealth(ctx))
}

func mustDemoID(t *testing.T, api *API) string {
	t.Helper()
	profile, err := api.users.authenticate(DemoEmail, DemoPassword)
	require.NoError(t, err)
	return profile.ID
}
