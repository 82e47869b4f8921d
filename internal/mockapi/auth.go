package mockapi

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/brainboard/brainboard/internal/errors"
	"github.com/brainboard/brainboard/internal/session"
)

type principalKey struct{}

type principal struct {
	userID  string
	tokenID string
}

func principalFrom(ctx context.Context) principal {
	p, _ := ctx.Value(principalKey{}).(principal)
	return p
}

// requireCSRF rejects state-changing requests without an anti-forgery token.
func requireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			if strings.TrimSpace(r.Header.Get(session.CSRFHeader)) == "" {
				apperrors.RespondWithEnvelope(w, r, apperrors.NewForbiddenError("Missing CSRF token"))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth resolves the bearer token to a user.
func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			apperrors.RespondWithEnvelope(w, r, apperrors.WrapUnauthorized(r.Context(), nil, "Authentication required"))
			return
		}

		userID, tokenID, err := a.tokens.verify(strings.TrimSpace(token))
		if err != nil {
			apperrors.RespondWithEnvelope(w, r, apperrors.WrapUnauthorized(r.Context(), err, "Invalid or expired token"))
			return
		}
		if _, err := a.users.get(userID); err != nil {
			apperrors.RespondWithEnvelope(w, r, apperrors.WrapUnauthorized(r.Context(), err, "Invalid or expired token"))
			return
		}

		ctx := context.WithValue(r.Context(), principalKey{}, principal{userID: userID, tokenID: tokenID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
