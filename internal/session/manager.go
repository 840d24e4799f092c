package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/nhle/mailclient/internal/api"
	"github.com/nhle/mailclient/internal/credential"
	"github.com/nhle/mailclient/internal/model"
)

// Client is the subset of the Session Client the manager drives.
type Client interface {
	Register(ctx context.Context, email, password string) (string, error)
	Login(ctx context.Context, email, password string) (*api.LoginResult, error)
	Logout(ctx context.Context) (string, error)
	GetProfile(ctx context.Context) (*model.UserProfile, error)
}

// Manager derives the authentication status from the credential store and
// a profile round trip, and is the single owner of session transitions.
// It is long-lived and may cycle between authenticated and
// unauthenticated any number of times.
//
// Transitions (Start, Login, Logout) are serialized, so a status of
// StatusAuthenticated always corresponds to a stored credential that
// passed a profile check since the last downgrade.
type Manager struct {
	client Client
	creds  credential.Store
	logger *slog.Logger

	// opMu serializes transitions; mu guards state and listeners.
	opMu      sync.Mutex
	mu        sync.RWMutex
	state     State
	listeners []func(State)
}

// NewManager creates a Manager in StatusUnknown. Call Start to run the
// startup check.
func NewManager(client Client, creds credential.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		client: client,
		creds:  creds,
		logger: logger,
		state:  State{Status: StatusUnknown},
	}
}

// State returns the current session snapshot.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyState(m.state)
}

// Subscribe registers fn to be called after every transition with the
// new state. Callbacks run on the goroutine that caused the transition.
func (m *Manager) Subscribe(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Start runs the startup check. Without a stored credential the session
// becomes unauthenticated with no network call. With one, the profile is
// fetched: success authenticates, any failure clears the credential and
// downgrades silently.
func (m *Manager) Start(ctx context.Context) State {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if _, err := m.creds.Get(); err != nil {
		if !errors.Is(err, credential.ErrNotFound) {
			m.logger.Warn("reading stored credential", "error", err)
		}
		return m.setState(State{Status: StatusUnauthenticated})
	}

	profile, err := m.client.GetProfile(ctx)
	if err != nil {
		m.logger.Warn("auth check failed", "error", err)
		m.clearCredential()
		return m.setState(State{Status: StatusUnauthenticated})
	}

	return m.setState(State{
		Status: StatusAuthenticated,
		User:   &model.User{Email: profile.Email},
	})
}

// Login authenticates with email and password and then loads the
// profile. A profile failure after a successful login is treated as a
// failed login: the new credential is rolled back and the session is
// unauthenticated. A rejected login leaves the session unchanged.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if _, err := m.client.Login(ctx, email, password); err != nil {
		return err
	}

	profile, err := m.client.GetProfile(ctx)
	if err != nil {
		m.clearCredential()
		m.setState(State{Status: StatusUnauthenticated})
		return fmt.Errorf("loading profile after login: %w", err)
	}

	m.setState(State{
		Status: StatusAuthenticated,
		User:   &model.User{Email: profile.Email},
	})
	return nil
}

// Register creates an account. It never changes the session.
func (m *Manager) Register(ctx context.Context, email, password string) (string, error) {
	return m.client.Register(ctx, email, password)
}

// Logout ends the session. The session is unauthenticated with an empty
// credential store afterwards whether or not the remote call succeeded;
// the remote error, if any, is returned.
func (m *Manager) Logout(ctx context.Context) (string, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	msg, err := m.client.Logout(ctx)
	m.clearCredential()
	m.setState(State{Status: StatusUnauthenticated})
	return msg, err
}

func (m *Manager) clearCredential() {
	if err := m.creds.Clear(); err != nil {
		m.logger.Warn("clearing credential", "error", err)
	}
}

// setState stores next, notifies listeners, and returns a copy of it.
func (m *Manager) setState(next State) State {
	m.mu.Lock()
	m.state = next
	listeners := make([]func(State), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(copyState(next))
	}
	return copyState(next)
}

func copyState(s State) State {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}
