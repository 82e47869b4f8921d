package session

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/brainboard/brainboard/internal/core"
	"github.com/brainboard/brainboard/internal/security"
)

// MaxContentLength bounds post and comment bodies.
const MaxContentLength = 5000

// GetProfile returns the signed-in user's profile.
func (c *Client) GetProfile(ctx context.Context) (core.Profile, error) {
	var profile core.Profile
	err := c.Request(ctx, "/user/profile", RequestOptions{}, &profile)
	return profile, err
}

// UpdateProfile changes the editable profile fields.
func (c *Client) UpdateProfile(ctx context.Context, update core.ProfileUpdate) (core.Profile, error) {
	update.FirstName = strings.TrimSpace(update.FirstName)
	update.LastName = strings.TrimSpace(update.LastName)
	update.Phone = strings.TrimSpace(update.Phone)

	if !security.ValidatePhone(update.Phone) {
		return core.Profile{}, invalidInput("invalid phone number")
	}

	update.FirstName = security.SanitizeText(update.FirstName)
	update.LastName = security.SanitizeText(update.LastName)
	update.Phone = security.SanitizeText(update.Phone)

	var profile core.Profile
	err := c.Request(ctx, "/user/profile", RequestOptions{Method: http.MethodPut, Body: update}, &profile)
	return profile, err
}

// GetPosts lists the feed, optionally filtered by type and ordered by sort.
func (c *Client) GetPosts(ctx context.Context, filter core.PostFilter) ([]core.Post, error) {
	query := url.Values{}
	if filter.Type != "" && filter.Type != "all" {
		postType, ok := core.ParsePostType(filter.Type)
		if !ok {
			return nil, invalidInput("unknown post type " + strconv.Quote(filter.Type))
		}
		query.Set("type", string(postType))
	}
	switch filter.Sort {
	case "":
	case core.SortRecent, core.SortPopular, core.SortCommented:
		query.Set("sort", filter.Sort)
	default:
		return nil, invalidInput("unknown sort order " + strconv.Quote(filter.Sort))
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}

	var list core.PostList
	if err := c.Request(ctx, "/posts", RequestOptions{Query: query}, &list); err != nil {
		return nil, err
	}
	return list.Posts, nil
}

// CreatePost publishes a post. Content is sanitized before it is sent.
func (c *Client) CreatePost(ctx context.Context, post core.NewPost) (core.Post, error) {
	content, err := c.cleanContent(post.Content)
	if err != nil {
		return core.Post{}, err
	}
	postType, ok := core.ParsePostType(post.Type)
	if !ok {
		return core.Post{}, invalidInput("unknown post type " + strconv.Quote(post.Type))
	}

	body := core.NewPost{Content: content, Type: string(postType), Media: post.Media}

	var created core.Post
	err = c.Request(ctx, "/posts", RequestOptions{Method: http.MethodPost, Body: body}, &created)
	return created, err
}

// LikePost toggles the caller's like on a post.
func (c *Client) LikePost(ctx context.Context, postID string) (core.LikeResult, error) {
	endpoint, err := postEndpoint(postID, "like")
	if err != nil {
		return core.LikeResult{}, err
	}

	var result core.LikeResult
	err = c.Request(ctx, endpoint, RequestOptions{Method: http.MethodPost}, &result)
	return result, err
}

// LikeComment toggles the caller's like on one comment of a post.
func (c *Client) LikeComment(ctx context.Context, postID, commentID string) (core.LikeResult, error) {
	commentID = strings.TrimSpace(commentID)
	if commentID == "" {
		return core.LikeResult{}, invalidInput("comment id is required")
	}
	endpoint, err := postEndpoint(postID, "comments/"+url.PathEscape(commentID)+"/like")
	if err != nil {
		return core.LikeResult{}, err
	}

	var result core.LikeResult
	err = c.Request(ctx, endpoint, RequestOptions{Method: http.MethodPost}, &result)
	return result, err
}

// GetComments lists the comments on a post.
func (c *Client) GetComments(ctx context.Context, postID string) ([]core.Comment, error) {
	endpoint, err := postEndpoint(postID, "comments")
	if err != nil {
		return nil, err
	}

	var list core.CommentList
	if err := c.Request(ctx, endpoint, RequestOptions{}, &list); err != nil {
		return nil, err
	}
	return list.Comments, nil
}

// CommentOnPost adds a comment to a post.
func (c *Client) CommentOnPost(ctx context.Context, postID, content string) (core.Comment, error) {
	endpoint, err := postEndpoint(postID, "comments")
	if err != nil {
		return core.Comment{}, err
	}
	content, err = c.cleanContent(content)
	if err != nil {
		return core.Comment{}, err
	}

	var comment core.Comment
	err = c.Request(ctx, endpoint, RequestOptions{
		Method: http.MethodPost,
		Body:   map[string]string{"content": content},
	}, &comment)
	return comment, err
}

// Search queries the catalogue.
func (c *Client) Search(ctx context.Context, query string) (core.SearchResults, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return core.SearchResults{}, invalidInput("search query is required")
	}

	body := core.SearchRequest{Query: security.SanitizeText(query), CSRFToken: c.csrfToken}

	var results core.SearchResults
	err := c.Request(ctx, "/search", RequestOptions{Method: http.MethodPost, Body: body}, &results)
	return results, err
}

// cleanContent trims, bounds and escapes user-authored text. Injection
// heuristics are advisory and only logged.
func (c *Client) cleanContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", invalidInput("content is required")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return "", invalidInput("content exceeds " + strconv.Itoa(MaxContentLength) + " characters")
	}
	if report := security.DetectInjectionPattern(content); report.Suspicious() {
		c.logger.Warn("Suspicious content submitted",
			zap.Bool("sql", report.SQL),
			zap.Bool("script", report.Script),
		)
	}
	return security.SanitizeText(content), nil
}

func postEndpoint(postID, action string) (string, error) {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return "", invalidInput("post id is required")
	}
	return "/posts/" + url.PathEscape(postID) + "/" + action, nil
}
