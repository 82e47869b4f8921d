// Package session implements the BrainBoard API client: credential storage,
// CSRF token, fixed-window rate limiting, token refresh and the feed calls
// (profile, posts, comments, likes, uploads, search) built on top of them.
//
// A Client is explicitly constructed and owned by its caller. It holds no
// package-level state, so tests and the CLI can run independent instances.
package session
