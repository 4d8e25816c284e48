package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

func (a App) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return a, tea.Quit
	case "r":
		a.flash = ""
		return a, a.run("refresh", func(ctx context.Context) error {
			_, err := a.manager.Refresh(ctx)
			return err
		})
	case "l":
		a.flash = ""
		return a, a.run("logout", a.manager.Logout)
	case "c":
		if a.state.Identity == nil {
			return a, nil
		}
		email := a.state.Identity.Email
		copyText := a.opts.CopyText
		return a, func() tea.Msg {
			if err := copyText(email); err != nil {
				return flashMsg{err: fmt.Errorf("copy failed: %w", err)}
			}
			return flashMsg{text: "copied " + email}
		}
	case "o":
		if a.opts.WebURL == "" {
			return a, nil
		}
		url := a.opts.WebURL
		open := a.opts.OpenURL
		return a, func() tea.Msg {
			if err := open(url); err != nil {
				return flashMsg{err: err}
			}
			return flashMsg{text: "opened " + url}
		}
	}
	return a, nil
}

func (a App) dashboardView() string {
	u := a.state.Identity
	if u == nil {
		return ""
	}

	width := max(a.width-6, 30)
	avatar := accentStyle.Bold(true).Render(initials(u.Name))
	header := avatar + "  " + selectedStyle.Render(truncStr(u.Name, width-8)) + " " + roleBadge(u.Role)

	lines := []string{
		header,
		"",
		metaStyle.Render("email    ") + normalStyle.Render(truncStr(u.Email, width-12)),
		metaStyle.Render("status   ") + verifiedBadge(u.IsEmailVerified),
		metaStyle.Render("id       ") + dimStyle.Render(u.ID.String()),
	}
	if u.IsAdmin() {
		lines = append(lines, "", goldStyle.Render("administrator access granted"))
	}
	card := cardStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))

	var b strings.Builder
	for _, line := range strings.Split(card, "\n") {
		b.WriteString("  " + line + "\n")
	}
	b.WriteString("\n")

	if a.flash != "" {
		style := errorStyle
		if a.flashOK {
			style = okStyle
		}
		b.WriteString("  " + style.Render(truncStr(a.flash, width)) + "\n")
	} else {
		b.WriteString("\n")
	}

	pairs := [][2]string{{"r", "refresh"}, {"l", "logout"}, {"c", "copy email"}}
	if a.opts.WebURL != "" {
		pairs = append(pairs, [2]string{"o", "open web"})
	}
	pairs = append(pairs, [2]string{"q", "quit"})
	b.WriteString(helpBar(pairs...))
	return b.String()
}
