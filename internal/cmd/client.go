package cmd

import (
	"context"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brainboard/brainboard/internal/observability"
	"github.com/brainboard/brainboard/internal/session"
)

// openClient builds a session client over the configured store. The returned
// close function stops the client and releases the store.
func openClient(ctx context.Context) (*session.Client, func(), error) {
	cfg, err := currentConfig()
	if err != nil {
		return nil, nil, err
	}

	be, err := openBackend(ctx, cfg.Store)
	if err != nil {
		return nil, nil, err
	}

	logger := observability.Logger()
	client, err := session.New(ctx, session.Options{
		BaseURL:         cfg.API.BaseURL,
		HTTPClient:      &http.Client{Timeout: cfg.API.TimeoutOrDefault()},
		Durable:         be.durable,
		Volatile:        be.volatile,
		Codec:           cfg.Session.Codec,
		RateStore:       be.rates,
		MaxPerWindow:    cfg.RateLimit.MaxPerWindow,
		Window:          cfg.RateLimit.Window,
		RefreshInterval: cfg.Session.RefreshInterval,
		MaxSessionAge:   cfg.Session.MaxSessionAge,
		MaxUploadBytes:  cfg.Upload.MaxBytes,
		Logger:          logger,
		OnUnauthorized: func() {
			logger.Warn("Session is no longer valid; run 'brainboard login' to sign in again")
		},
	})
	if err != nil {
		_ = be.Close()
		return nil, nil, err
	}

	if _, err := client.ValidateSession(ctx); err != nil {
		logger.Warn("Could not validate session age", zap.Error(err))
	}
	client.Start(ctx)

	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Debug("Session client close failed", zap.Error(err))
		}
		if err := be.Close(); err != nil {
			logger.Debug("Store close failed", zap.Error(err))
		}
	}
	return client, closeFn, nil
}

// withClient runs fn with an open client and closes it afterwards.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, client *session.Client) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	client, closeFn, err := openClient(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, client)
}
