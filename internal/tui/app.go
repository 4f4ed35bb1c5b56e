// Package tui is the interactive landlord dashboard. Views only read the
// dashboard and submission models; every network call runs in a tea.Cmd.
package tui

import (
	"context"
	"errors"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Mickeymouse32/torii-frontend/internal/dashboard"
	"github.com/Mickeymouse32/torii-frontend/internal/remote"
	"github.com/Mickeymouse32/torii-frontend/internal/staging"
	"github.com/Mickeymouse32/torii-frontend/internal/submission"
)

const noticeDuration = 3 * time.Second

// Deps are the models the views drive.
type Deps struct {
	Cache      *dashboard.Cache
	Query      *dashboard.QueryModel
	Status     *dashboard.StatusModel
	Deletion   *dashboard.DeletionModel
	Submission *submission.Model
	Images     *staging.Model
	// Greeting is the signed-in landlord's first name.
	Greeting string
	Logger   *slog.Logger
}

type screen int

const (
	screenDashboard screen = iota
	screenForm
)

type (
	noticeMsg struct {
		text  string
		isErr bool
	}
	clearNoticeMsg    struct{}
	sessionExpiredMsg struct{}
	switchScreenMsg   struct{ to screen }
)

// App is the root Bubble Tea model.
type App struct {
	deps   *Deps
	screen screen

	dashboard dashboardView
	form      formView

	notice      string
	noticeErr   bool
	noticeUntil time.Time
	expired     bool
}

func New(ctx context.Context, deps *Deps) App {
	return App{
		deps:      deps,
		dashboard: newDashboardView(ctx, deps),
		form:      newFormView(ctx, deps),
	}
}

// SessionExpired reports whether the program quit because the service
// rejected the credential.
func (a App) SessionExpired() bool {
	return a.expired
}

func (a App) Init() tea.Cmd {
	return a.dashboard.Init()
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a.quit()
		case "q":
			if a.screen == screenDashboard && a.dashboard.idle() {
				return a.quit()
			}
		}

	case noticeMsg:
		a.notice = msg.text
		a.noticeErr = msg.isErr
		a.noticeUntil = time.Now().Add(noticeDuration)
		return a, tea.Tick(noticeDuration, func(time.Time) tea.Msg { return clearNoticeMsg{} })

	case clearNoticeMsg:
		if !time.Now().Before(a.noticeUntil) {
			a.notice = ""
		}
		return a, nil

	case sessionExpiredMsg:
		a.expired = true
		return a.quit()

	case switchScreenMsg:
		a.screen = msg.to
		var cmd tea.Cmd
		if msg.to == screenForm {
			cmd = a.form.open()
		} else {
			a.form.close()
			cmd = a.dashboard.reload()
		}
		return a, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd

	// Keys go to the visible screen only; results of commands go to both.
	if _, ok := msg.(tea.KeyMsg); ok {
		switch a.screen {
		case screenDashboard:
			a.dashboard, cmd = a.dashboard.Update(msg)
		case screenForm:
			a.form, cmd = a.form.Update(msg)
		}
		return a, cmd
	}

	a.dashboard, cmd = a.dashboard.Update(msg)
	cmds = append(cmds, cmd)
	a.form, cmd = a.form.Update(msg)
	cmds = append(cmds, cmd)
	return a, tea.Batch(cmds...)
}

// quit detaches the views so nothing still in flight lands after the program
// is gone. An unsent form is kept as a draft.
func (a App) quit() (tea.Model, tea.Cmd) {
	a.deps.Query.Detach()
	if a.screen == screenForm {
		a.form.keepDraft()
	}
	a.deps.Images.Detach()
	return a, tea.Quit
}

func (a App) View() string {
	var body string
	switch a.screen {
	case screenForm:
		body = a.form.View()
	default:
		body = a.dashboard.View()
	}

	parts := []string{body}
	if a.notice != "" {
		style := noticeStyle
		if a.noticeErr {
			style = noticeErrorStyle
		}
		parts = append(parts, style.Render(a.notice))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func notify(text string, isErr bool) tea.Cmd {
	return func() tea.Msg { return noticeMsg{text: text, isErr: isErr} }
}

// failed turns a command error into the right message: an expired session
// ends the program, anything else becomes an error notice.
func failed(err error, text string) tea.Cmd {
	if errors.Is(err, remote.ErrSessionExpired) {
		return func() tea.Msg { return sessionExpiredMsg{} }
	}
	return notify(text, true)
}

func switchTo(s screen) tea.Cmd {
	return func() tea.Msg { return switchScreenMsg{to: s} }
}
