package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/mailclient/internal/api"
	"github.com/nhle/mailclient/internal/inbox"
	"github.com/nhle/mailclient/internal/session"
	"github.com/nhle/mailclient/internal/theme"
)

type watchKeys struct {
	Refresh key.Binding
	Quit    key.Binding
}

func defaultWatchKeys() watchKeys {
	return watchKeys{
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// watchModel runs the startup check, then keeps the inbox on screen
// while the watcher refreshes it.
type watchModel struct {
	ctx     context.Context
	session *session.Manager
	inbox   *inbox.Inbox
	watcher *inbox.Watcher
	keys    watchKeys
	spinner spinner.Model

	user       string
	started    bool
	expired    bool
	refreshing bool
	notice     string

	// err is returned by cmdWatch once the program exits.
	err error
}

func newWatchModel(ctx context.Context, a *app, w *inbox.Watcher) watchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.MutedStyle

	return watchModel{
		ctx:     ctx,
		session: a.session,
		inbox:   a.inbox,
		watcher: w,
		keys:    defaultWatchKeys(),
		spinner: sp,
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(
		m.session.StartCmd(m.ctx),
		m.spinner.Tick,
	)
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case session.StateChangedMsg:
		if !msg.State.Authenticated() {
			m.err = errNotLoggedIn
			if m.expired {
				m.err = errSessionExpired
			}
			return m, tea.Quit
		}
		m.user = msg.State.User.Email
		m.expired = false
		if m.started {
			// The credential survived a 401 recheck; keep listening.
			return m, m.watcher.WaitForResult()
		}
		m.started = true
		m.refreshing = true
		return m, m.watcher.Start(m.ctx)

	case inbox.RefreshedMsg:
		m.refreshing = false
		var apiErr *api.Error
		switch {
		case msg.Err == nil:
			m.notice = ""
		case api.IsUnauthorized(msg.Err):
			// Rerun the startup check so a rejected credential is
			// cleared before we exit.
			m.expired = true
			return m, m.session.StartCmd(m.ctx)
		case errors.As(msg.Err, &apiErr) && apiErr.IsTransport():
			m.notice = fmt.Sprintf("%s, retrying in %s", api.MsgUnreachable, m.watcher.Interval())
		default:
			m.notice = msg.Err.Error()
		}
		return m, m.watcher.WaitForResult()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refresh):
			if m.started {
				m.refreshing = true
				m.watcher.Trigger()
			}
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m watchModel) View() string {
	if m.err != nil {
		return ""
	}
	if !m.started {
		return m.spinner.View() + " Checking session...\n"
	}

	var b strings.Builder
	renderInbox(&b, m.inbox.Emails(), m.inbox.FetchedAt())
	b.WriteString("\n")

	status := theme.MutedStyle.Render(fmt.Sprintf(
		"Watching as %s every %s  %s refresh  %s quit",
		m.user, m.watcher.Interval(),
		m.keys.Refresh.Help().Key, m.keys.Quit.Help().Key,
	))
	if m.refreshing {
		status = m.spinner.View() + " " + status
	}
	b.WriteString(status + "\n")

	if m.notice != "" {
		b.WriteString(theme.ErrorStyle.Render(m.notice) + "\n")
	}
	return b.String()
}
