package core

import "time"

// PostType identifies the kind of feed post.
type PostType string

const (
	PostTypeDiscussion PostType = "discussion"
	PostTypeQuestion   PostType = "question"
	PostTypeMedia      PostType = "media"
)

// ParsePostType normalizes a post type, defaulting to discussion.
func ParsePostType(value string) (PostType, bool) {
	switch PostType(value) {
	case "", PostTypeDiscussion:
		return PostTypeDiscussion, true
	case PostTypeQuestion:
		return PostTypeQuestion, true
	case PostTypeMedia:
		return PostTypeMedia, true
	default:
		return "", false
	}
}

// UploadCategory is the declared kind of an uploaded file.
type UploadCategory string

const (
	UploadPhoto    UploadCategory = "photo"
	UploadVideo    UploadCategory = "video"
	UploadDocument UploadCategory = "document"
)

// TokenResponse is returned by login, signup and refresh.
type TokenResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int64    `json:"expires_in"`
	User         *Profile `json:"user,omitempty"`
}

// Credentials are the stored tokens of an authenticated session.
type Credentials struct {
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
}

// SignupData is the payload collected by the signup form.
type SignupData struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Phone      string `json:"phone"`
	Newsletter bool   `json:"newsletter"`
	CSRFToken  string `json:"csrf_token,omitempty"`
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	CSRFToken string `json:"csrf_token,omitempty"`
}

// RefreshRequest is the refresh payload.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Profile describes the signed-in user.
type Profile struct {
	ID         string    `json:"id"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	Newsletter bool      `json:"newsletter"`
	CreatedAt  time.Time `json:"created_at"`
}

// DisplayName joins first and last name.
func (p Profile) DisplayName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	default:
		return p.FirstName + " " + p.LastName
	}
}

// ProfileUpdate carries the editable profile fields.
type ProfileUpdate struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// Post is a single feed entry.
type Post struct {
	ID           string    `json:"id"`
	AuthorID     string    `json:"author_id"`
	AuthorName   string    `json:"author_name"`
	Type         PostType  `json:"type"`
	Content      string    `json:"content"`
	Media        []string  `json:"media,omitempty"`
	Likes        int       `json:"likes"`
	LikedByMe    bool      `json:"liked_by_me"`
	CommentCount int       `json:"comment_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewPost is the create-post payload.
type NewPost struct {
	Content string   `json:"content"`
	Type    string   `json:"type"`
	Media   []string `json:"media"`
}

// PostFilter narrows a feed listing.
type PostFilter struct {
	Type  string
	Sort  string
	Limit int
}

// Sort orders understood by the feed listing.
const (
	SortRecent    = "recent"
	SortPopular   = "popular"
	SortCommented = "commented"
)

// PostList wraps a feed page.
type PostList struct {
	Posts []Post `json:"posts"`
}

// LikeResult reports the state of a post, or of one of its comments when
// CommentID is set, after a like toggle.
type LikeResult struct {
	PostID    string `json:"post_id"`
	CommentID string `json:"comment_id,omitempty"`
	Liked     bool   `json:"liked"`
	Likes     int    `json:"likes"`
}

// Comment is a reply on a post.
type Comment struct {
	ID         string    `json:"id"`
	PostID     string    `json:"post_id"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	Likes      int       `json:"likes"`
	LikedByMe  bool      `json:"liked_by_me"`
	CreatedAt  time.Time `json:"created_at"`
}

// CommentList wraps the comments of a post.
type CommentList struct {
	Comments []Comment `json:"comments"`
}

// SearchRequest is the search payload.
type SearchRequest struct {
	Query     string `json:"query"`
	CSRFToken string `json:"csrf_token,omitempty"`
}

// SearchItem is a single search hit.
type SearchItem struct {
	Title string `json:"title"`
	Type  string `json:"type"`
	Desc  string `json:"desc"`
}

// SearchResults wraps search hits.
type SearchResults struct {
	Query   string       `json:"query"`
	Results []SearchItem `json:"results"`
}

// Upload describes a stored upload.
type Upload struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Type        UploadCategory `json:"type"`
	MIME        string         `json:"mime"`
	Size        int64          `json:"size"`
	Width       int            `json:"width,omitempty"`
	Height      int            `json:"height,omitempty"`
	ThumbWidth  int            `json:"thumb_width,omitempty"`
	ThumbHeight int            `json:"thumb_height,omitempty"`
}

// APIMessage is the minimal error body returned by the feed API.
type APIMessage struct {
	Message string `json:"message"`
}
