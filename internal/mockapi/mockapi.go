// Package mockapi is an in-memory simulation of the BrainBoard feed API. It
// serves the auth, profile, post, comment, upload and search routes the
// session client calls, backed by a seeded sample board.
package mockapi

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/brainboard/brainboard/internal/core"
	"github.com/brainboard/brainboard/internal/observability"
)

// Demo account seeded into every API instance.
const (
	DemoEmail    = "john.doe@example.com"
	DemoPassword = "BrainBoard#2024"
)

// Defaults applied by New.
const (
	DefaultTokenTTL       = 15 * time.Minute
	DefaultRefreshTTL     = 7 * 24 * time.Hour
	DefaultMaxUploadBytes = 10 << 20
	maxJSONBody           = 1 << 20
)

// Config tunes the simulated API.
type Config struct {
	TokenTTL       time.Duration
	RefreshTTL     time.Duration
	SigningKey     []byte
	MaxUploadBytes int64
	// UploadDir, when set, receives a copy of every upload and thumbnail.
	UploadDir string
	Clock     func() time.Time
}

// API holds the simulated backend state.
type API struct {
	cfg    Config
	users  *userStore
	tokens *tokenIssuer
	feed   *feed
	media  *mediaStore
	router chi.Router
}

// New seeds a fresh board and the demo account.
func New(cfg Config) (*API, error) {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if len(cfg.SigningKey) == 0 {
		cfg.SigningKey = make([]byte, 64)
		if _, err := rand.Read(cfg.SigningKey); err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
	}

	api := &API{
		cfg:    cfg,
		users:  newUserStore(defaultArgon2),
		tokens: newTokenIssuer(cfg.SigningKey, cfg.TokenTTL, cfg.RefreshTTL, cfg.Clock),
		feed:   newFeed(),
		media:  newMediaStore(cfg.UploadDir),
	}

	now := cfg.Clock()
	seedFeed(api.feed, now)
	if _, err := api.users.create(newID(now), core.SignupData{
		FirstName: "John",
		LastName:  "Doe",
		Email:     DemoEmail,
		Password:  DemoPassword,
	}, now); err != nil {
		return nil, fmt.Errorf("seed demo account: %w", err)
	}

	api.router = api.routes()
	observability.Server().Debug("Simulated feed API ready",
		zap.Int("posts", api.feed.size()),
		zap.Duration("token_ttl", cfg.TokenTTL))
	return api, nil
}

// Handler returns the API router, rooted at the API base path.
func (a *API) Handler() http.Handler {
	return a.router
}

// CheckHealth reports whether the board and accounts are seeded.
func (a *API) CheckHealth(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.feed.size() == 0 || a.users.count() == 0 {
		return errors.New("feed is not seeded")
	}
	return nil
}

func (a *API) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requireCSRF)

	r.Post("/auth/signup", a.handleSignup)
	r.Post("/auth/login", a.handleLogin)
	r.Post("/auth/refresh", a.handleRefresh)

	r.Group(func(r chi.Router) {
		r.Use(a.requireAuth)

		r.Post("/auth/logout", a.handleLogout)

		r.Get("/user/profile", a.handleGetProfile)
		r.Put("/user/profile", a.handleUpdateProfile)

		r.Get("/posts", a.handleListPosts)
		r.Post("/posts", a.handleCreatePost)
		r.Post("/posts/{id}/like", a.handleLikePost)
		r.Get("/posts/{id}/comments", a.handleListComments)
		r.Post("/posts/{id}/comments", a.handleCreateComment)
		r.Post("/posts/{id}/comments/{commentID}/like", a.handleLikeComment)

		r.Post("/upload", a.handleUpload)
		r.Get("/uploads/{id}/thumbnail", a.handleThumbnail)

		r.Post("/search", a.handleSearch)
	})
	return r
}
