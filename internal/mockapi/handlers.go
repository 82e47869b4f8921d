package mockapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/brainboard/brainboard/internal/core"
	apperrors "github.com/brainboard/brainboard/internal/errors"
	"github.com/brainboard/brainboard/internal/observability"
	"github.com/brainboard/brainboard/internal/security"
	"github.com/brainboard/brainboard/internal/session"
)

// Escaping can grow each character to several (&#39;), so stored content
// may be longer than the client-side limit.
const maxStoredContent = 6 * session.MaxContentLength

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		apperrors.RespondWithEnvelope(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Request body must be valid JSON"))
		return false
	}
	return true
}

func invalid(w http.ResponseWriter, r *http.Request, message string) {
	apperrors.RespondWithEnvelope(w, r, apperrors.NewInvalidInputError(message))
}

func (a *API) issueTokens(w http.ResponseWriter, r *http.Request, status int, profile core.Profile) {
	access, refresh, err := a.tokens.issue(profile.ID)
	if err != nil {
		apperrors.RespondWithEnvelope(w, r, apperrors.WrapInternal(r.Context(), err, "Unable to issue tokens"))
		return
	}
	writeJSON(w, status, core.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(a.cfg.TokenTTL.Seconds()),
		User:         &profile,
	})
}

func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	var data core.SignupData
	if !decodeJSON(w, r, &data) {
		return
	}

	switch {
	case strings.TrimSpace(data.FirstName) == "" || strings.TrimSpace(data.LastName) == "":
		invalid(w, r, "First and last name are required")
		return
	case !security.ValidateEmail(data.Email):
		invalid(w, r, "Please enter a valid email address")
		return
	case !security.ValidatePhone(data.Phone):
		invalid(w, r, "Please enter a valid phone number")
		return
	}
	if report := security.ValidatePasswordStrength(data.Password); !report.Valid {
		invalid(w, r, report.Message())
		return
	}

	now := a.cfg.Clock()
	profile, err := a.users.create(newID(now), data, now)
	if errors.Is(err, errEmailTaken) {
		apperrors.RespondWithEnvelope(w, r, apperrors.NewConflictError("An account with this email already exists"))
		return
	}
	if err != nil {
		apperrors.RespondWithEnvelope(w, r, apperrors.WrapInternal(r.Context(), err, "Unable to create account"))
		return
	}

	observability.Server().Info("Account created", zap.String("user_id", profile.ID))
	a.issueTokens(w, r, http.StatusCreated, profile)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req core.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	profile, err := a.users.authenticate(req.Email, req.Password)
	if err != nil {
		apperrors.RespondWithEnvelope(w, r, apperrors.WrapUnauthorized(r.Context(), err, "Invalid email or password"))
		return
	}
	a.issueTokens(w, r, http.StatusOK, profile)
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req core.RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	userID, access, refresh, err := a.tokens.exchange(req.RefreshToken)
	if err != nil {
		apperrors.RespondWithEnvelope(w, r, apperrors.WrapUnauthorized(r.Context(), err, "Invalid or expired refresh token"))
		return
	}
	profile, err := a.users.get(userID)
	if err != nil {
		apperrors.RespondWithEnvelope(w, r, apperrors.WrapUnauthorized(r.Context(), err, "Invalid or expired refresh token"))
		return
	}
	writeJSON(w, http.StatusOK, core.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(a.cfg.TokenTTL.Seconds()),
		User:         &profile,
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	a.tokens.revoke(p.userID, p.tokenID)
	writeJSON(w, http.StatusOK, core.APIMessage{Message: "Logged out"})
}

func (a *API) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := a.users.get(principalFrom(r.Context()).userID)
	if err != nil {
		apperrors.RespondWithEnvelope(w, r, apperrors.NewNotFoundError("Profile not found"))
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (a *API) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var update core.ProfileUpdate
	if !decodeJSON(w, r, &update) {
		return
	}
	if !security.ValidatePhone(update.Phone) {
		invalid(w, r, "Please enter a valid phone number")
		return
	}

	profile, err := a.users.update(principalFrom(r.Context()).userID, update)
	if err != nil {
		apperrors.RespondWithEnvelope(w, r, apperrors.NewNotFoundError("Profile not found"))
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (a *API) handleListPosts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var postType core.PostType
	if raw := query.Get("type"); raw != "" {
		parsed, ok := core.ParsePostType(raw)
		if !ok {
			invalid(w, r, "Unknown post type "+strconv.Quote(raw))
			return
		}
		postType = parsed
	}

	order := query.Get("sort")
	switch order {
	case "", core.SortRecent, core.SortPopular, core.SortCommented:
	default:
		invalid(w, r, "Unknown sort order "+strconv.Quote(order))
		return
	}

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			invalid(w, r, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	posts := a.feed.list(principalFrom(r.Context()).userID, postType, order, limit)
	writeJSON(w, http.StatusOK, core.PostList{Posts: posts})
}

func cleanBody(content string) (string, string) {
	content = strings.TrimSpace(content)
	switch {
	case content == "":
		return "", "Content is required"
	case utf8.RuneCountInString(content) > maxStoredContent:
		return "", fmt.Sprintf("Content exceeds %d characters", session.MaxContentLength)
	}
	return content, ""
}

func (a *API) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req core.NewPost
	if !decodeJSON(w, r, &req) {
		return
	}
	content, problem := cleanBody(req.Content)
	if problem != "" {
		invalid(w, r, problem)
		return
	}
	postType, ok := core.ParsePostType(req.Type)
	if !ok {
		invalid(w, r, "Unknown post type "+strconv.Quote(req.Type))
		return
	}

	userID := principalFrom(r.Context()).userID
	author, err := a.users.get(userID)
	if err != nil {
		apperrors.RespondWithEnvelope(w, r, apperrors.NewNotFoundError("Profile not found"))
		return
	}

	now := a.cfg.Clock().UTC()
	post := a.feed.create(core.Post{
		ID:         newID(now),
		AuthorID:   userID,
		AuthorName: author.DisplayName(),
		Type:       postType,
		Content:    content,
		Media:      req.Media,
		CreatedAt:  now,
	})
	writeJSON(w, http.StatusCreated, post)
}

func (a *API) handleLikePost(w http.ResponseWriter, r *http.Request) {
	result, err := a.feed.toggleLike(principalFrom(r.Context()).userID, chi.URLParam(r, "id"))
	if err != nil {
		apperrors.RespondWithEnvelope(w, r, apperrors.NewNotFoundError("Post not found"))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleLikeComment(w http.ResponseWriter, r *http.Request) {
	result, err := a.feed.toggleCommentLike(principalFrom(r.Context()).userID, chi.URLParam(r, "id"), chi.URLParam(r, "commentID"))
	switch {
	case errors.Is(err, errPostNotFound):
		apperrors.RespondWithEnvelope(w, r, apperrors.NewNotFoundError("Post not found"))
		return
	case err != nil:
		apperrors.RespondWithEnvelope(w, r, apperrors.NewNotFoundError("Comment not found"))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := a.feed.comments(principalFrom(r.Context()).userID, chi.URLParam(r, "id"))
	if err != nil {
		apperrors.RespondWithEnvelope(w, r, apperrors.NewNotFoundError("Post not found"))
		return
	}
	writeJSON(w, http.StatusOK, core.CommentList{Comments: comments})
}

func (a *API) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	content, problem := cleanBody(req.Content)
	if problem != "" {
		invalid(w, r, problem)
		return
	}

	author, err := a.users.get(principalFrom(r.Context()).userID)
	if err != nil {
		apperrors.RespondWithEnvelope(w, r, apperrors.NewNotFoundError("Profile not found"))
		return
	}

	now := a.cfg.Clock().UTC()
	comment, err := a.feed.comment(core.Comment{
		ID:         newID(now),
		PostID:     chi.URLParam(r, "id"),
		AuthorName: author.DisplayName(),
		Content:    content,
		CreatedAt:  now,
	})
	if err != nil {
		apperrors.RespondWithEnvelope(w, r, apperrors.NewNotFoundError("Post not found"))
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (a *API) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := a.cfg.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+maxJSONBody)
	if err := r.ParseMultipartForm(maxJSONBody); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apperrors.RespondWithEnvelope(w, r, apperrors.NewPayloadTooLargeError("File exceeds the upload limit"))
			return
		}
		apperrors.RespondWithEnvelope(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Upload must be multipart form data"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		invalid(w, r, "A file is required")
		return
	}
	defer func() { _ = file.Close() }()

	if header.Size > limit {
		apperrors.RespondWithEnvelope(w, r, apperrors.NewPayloadTooLargeError("File exceeds the upload limit"))
		return
	}
	category := core.UploadCategory(r.FormValue("type"))
	if _, ok := session.AllowedTypes[category]; !ok {
		invalid(w, r, "Unknown upload type "+strconv.Quote(string(category)))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		apperrors.RespondWithEnvelope(w, r, apperrors.WrapInternal(r.Context(), err, "Unable to read upload"))
		return
	}

	upload, err := a.media.save(newID(a.cfg.Clock()), header.Filename, header.Header.Get("Content-Type"), category, data)
	switch {
	case errors.Is(err, errUploadType):
		apperrors.RespondWithEnvelope(w, r, apperrors.NewUnsupportedMediaError("File type not allowed"))
		return
	case errors.Is(err, errUploadImage):
		invalid(w, r, "Photo could not be decoded")
		return
	case err != nil:
		apperrors.RespondWithEnvelope(w, r, apperrors.WrapInternal(r.Context(), err, "Unable to store upload"))
		return
	}
	writeJSON(w, http.StatusCreated, upload)
}

func (a *API) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	thumb, err := a.media.thumbnail(chi.URLParam(r, "id"))
	if err != nil {
		apperrors.RespondWithEnvelope(w, r, apperrors.NewNotFoundError("Thumbnail not found"))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(thumb)))
	_, _ = w.Write(thumb)
}

func (a *API) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req core.SearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, core.SearchResults{Query: req.Query, Results: a.feed.search(req.Query)})
}
