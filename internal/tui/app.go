// Package tui is the interactive terminal front end: a protected dashboard
// gated by the session manager.
package tui

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/portcullis/internal/auth"
	"github.com/naveenspark/portcullis/internal/browser"
	"github.com/naveenspark/portcullis/internal/guard"
	"github.com/naveenspark/portcullis/internal/session"
)

// stateMsg carries a session state published by the manager.
type stateMsg session.State

// stateClosedMsg is sent once the manager closes our subscription.
type stateClosedMsg struct{}

// opDoneMsg reports the outcome of a manager operation run as a command.
type opDoneMsg struct {
	op  string
	err error
}

// flashMsg is the outcome of a dashboard side action (copy, open).
type flashMsg struct {
	text string
	err  error
}

// Options configures the App. Zero values fall back to the real clipboard
// and browser.
type Options struct {
	WebURL   string
	Logger   *slog.Logger
	OpenURL  func(string) error
	CopyText func(string) error
}

// App is the root Bubbletea model.
type App struct {
	manager     *session.Manager
	states      <-chan session.State
	unsubscribe func()
	opts        Options

	state   session.State
	login   loginModel
	spinner spinner.Model
	flash   string
	flashOK bool
	width   int
	height  int
	frame   int // logo shimmer animation frame
}

// NewApp creates a new TUI application bound to m. The subscription is taken
// immediately so no state published before Init is missed.
func NewApp(m *session.Manager, opts Options) App {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.OpenURL == nil {
		opts.OpenURL = browser.Open
	}
	if opts.CopyText == nil {
		opts.CopyText = clipboard.WriteAll
	}

	states, unsubscribe := m.Subscribe()
	return App{
		manager:     m,
		states:      states,
		unsubscribe: unsubscribe,
		opts:        opts,
		state:       m.State(),
		login:       newLoginModel(),
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(accentStyle)),
	}
}

// Close releases the state subscription.
func (a App) Close() {
	a.unsubscribe()
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		waitForState(a.states),
		a.run("init", func(ctx context.Context) error {
			_, err := a.manager.Init(ctx)
			return err
		}),
		a.spinner.Tick,
		shimmerTickCmd(),
		textinput.Blink,
	)
}

// waitForState blocks on the next published state. It is re-armed after every
// stateMsg.
func waitForState(ch <-chan session.State) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return stateClosedMsg{}
		}
		return stateMsg(s)
	}
}

// run executes a manager operation off the UI goroutine.
func (a App) run(op string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{op: op, err: fn(context.Background())}
	}
}

// Decision is the guard's verdict for the current state.
func (a App) Decision() guard.Decision {
	return guard.Decide(a.state)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.login, _ = a.login.Update(msg)
		return a, nil

	case shimmerTickMsg:
		a.frame++
		return a, shimmerTickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case stateMsg:
		prev := a.Decision()
		a.state = session.State(msg)
		next := a.Decision()
		if prev != next {
			a.flash = ""
			// Entering or leaving the dashboard starts the form over.
			if next == guard.DecisionRender || prev == guard.DecisionRender {
				a.login = a.login.reset()
			}
		}
		return a, waitForState(a.states)

	case stateClosedMsg:
		return a, nil

	case submitMsg:
		if msg.register {
			req := msg.signup
			return a, a.run("register", func(ctx context.Context) error {
				_, err := a.manager.Register(ctx, req)
				return err
			})
		}
		req := msg.login
		return a, a.run("login", func(ctx context.Context) error {
			_, err := a.manager.Login(ctx, req)
			return err
		})

	case opDoneMsg:
		return a.handleOpDone(msg), nil

	case flashMsg:
		if msg.err != nil {
			a.opts.Logger.Warn("dashboard action failed", "error", msg.err)
			a.flash, a.flashOK = msg.err.Error(), false
		} else {
			a.flash, a.flashOK = msg.text, true
		}
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		switch a.Decision() {
		case guard.DecisionPlaceholder:
			if msg.String() == "q" {
				return a, tea.Quit
			}
			return a, nil
		case guard.DecisionRedirect:
			var cmd tea.Cmd
			a.login, cmd = a.login.Update(msg)
			return a, cmd
		case guard.DecisionRender:
			return a.updateDashboard(msg)
		}
	}

	if a.Decision() == guard.DecisionRedirect {
		var cmd tea.Cmd
		a.login, cmd = a.login.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a App) handleOpDone(msg opDoneMsg) App {
	if msg.err == nil {
		return a
	}
	if errors.Is(msg.err, session.ErrSuperseded) {
		a.opts.Logger.Debug("operation superseded", "op", msg.op)
		return a
	}
	a.opts.Logger.Warn("session operation failed", "op", msg.op, "error", msg.err)

	switch msg.op {
	case "login", "register":
		a.login.submitting = false
		a.login.err = auth.UserMessage(msg.err)
	case "init", "refresh":
		// Invalid credentials land on the login screen by themselves.
		if errors.Is(msg.err, auth.ErrTransport) {
			a.login.err = "session check failed: " + auth.UserMessage(msg.err)
		}
	case "logout":
		a.flash, a.flashOK = "logout incomplete: "+msg.err.Error(), false
	}
	return a
}

func (a App) View() string {
	var b strings.Builder
	b.WriteString("\n  " + renderShimmerLogo(a.frame) + "\n\n")

	switch a.Decision() {
	case guard.DecisionPlaceholder:
		b.WriteString("  " + a.spinner.View() + " " + dimStyle.Render("resolving session") + "\n")
	case guard.DecisionRedirect:
		b.WriteString(a.login.View())
	case guard.DecisionRender:
		b.WriteString(a.dashboardView())
	}

	return truncateToHeight(b.String(), a.height)
}
