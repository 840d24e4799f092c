package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/nhle/mailclient/internal/api"
	"github.com/nhle/mailclient/internal/credential"
	"github.com/nhle/mailclient/internal/inbox"
	"github.com/nhle/mailclient/internal/model"
	"github.com/nhle/mailclient/internal/session"
	"github.com/nhle/mailclient/internal/store"
)

// app holds the wired components for a single CLI invocation.
type app struct {
	cfg     *model.AppConfig
	logger  *slog.Logger
	db      *store.SQLiteStore
	creds   credential.Store
	client  *api.Client
	session *session.Manager
	inbox   *inbox.Inbox
	out     io.Writer
}

// newApp opens local storage and the credential store and wires the
// session client, session manager and inbox.
func newApp(cfg *model.AppConfig, out, errOut io.Writer) (*app, error) {
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))

	db, err := store.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}

	creds, err := openCredentialStore(cfg.Credential, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	client := api.NewClient(cfg.Server.BaseURL, creds,
		api.WithHTTPClient(&http.Client{Timeout: cfg.Server.Timeout()}),
		api.WithRegisterKey(cfg.Server.RegisterKey),
		api.WithLogger(logger),
	)

	mgr := session.NewManager(client, creds, logger)
	box := inbox.New(client, db, logger)

	// The cached inbox belongs to the signed-in user only.
	mgr.Subscribe(func(s session.State) {
		if s.Status != session.StatusUnauthenticated {
			return
		}
		if err := box.Reset(context.Background()); err != nil {
			logger.Warn("resetting inbox", "error", err)
		}
	})

	return &app{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		creds:   creds,
		client:  client,
		session: mgr,
		inbox:   box,
		out:     out,
	}, nil
}

// Close releases local storage.
func (a *app) Close() error {
	return a.db.Close()
}

// openCredentialStore returns the credential store selected by cfg.
func openCredentialStore(cfg model.CredentialConfig, db *store.SQLiteStore) (credential.Store, error) {
	switch cfg.Backend {
	case model.CredentialBackendSQLite:
		return credential.NewSlotStore(db, cfg.Key), nil
	default:
		ring, err := credential.OpenKeyring(cfg.FileDir)
		if err != nil {
			return nil, err
		}
		return credential.NewKeyringStore(ring, cfg.Key), nil
	}
}

// requireSession runs the startup check and fails unless it authenticates.
func (a *app) requireSession(ctx context.Context) (session.State, error) {
	st := a.session.Start(ctx)
	if !st.Authenticated() {
		return st, errNotLoggedIn
	}
	return st, nil
}
