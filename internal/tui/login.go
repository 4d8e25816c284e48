package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/portcullis/pkg/domain"
)

type loginField int

const (
	fieldName loginField = iota
	fieldEmail
	fieldPassword
	fieldCount
)

// submitMsg is emitted by the login form when the user presses enter on a
// complete form.
type submitMsg struct {
	register bool
	login    domain.LoginRequest
	signup   domain.SignupRequest
}

// loginModel is the login entry point. In register mode it also asks for a
// display name.
type loginModel struct {
	inputs     [fieldCount]textinput.Model
	focus      loginField
	register   bool
	submitting bool
	err        string
	width      int
}

func newLoginModel() loginModel {
	var m loginModel

	name := textinput.New()
	name.Prompt = "name      "
	name.Placeholder = "Ada Lovelace"
	name.CharLimit = 128

	email := textinput.New()
	email.Prompt = "email     "
	email.Placeholder = "you@example.com"
	email.CharLimit = 254

	password := textinput.New()
	password.Prompt = "password  "
	password.Placeholder = "••••••••"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 256

	m.inputs = [fieldCount]textinput.Model{name, email, password}
	for i := range m.inputs {
		m.inputs[i].PromptStyle = inputPromptStyle
		m.inputs[i].PlaceholderStyle = inputPlaceholderStyle
		m.inputs[i].TextStyle = normalStyle
	}
	m.focus = fieldEmail
	m.inputs[fieldEmail].Focus()
	return m
}

// fields lists the visible fields in tab order.
func (m loginModel) fields() []loginField {
	if m.register {
		return []loginField{fieldName, fieldEmail, fieldPassword}
	}
	return []loginField{fieldEmail, fieldPassword}
}

func (m loginModel) setFocus(f loginField) (loginModel, tea.Cmd) {
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	m.focus = f
	return m, m.inputs[f].Focus()
}

func (m loginModel) cycle(delta int) (loginModel, tea.Cmd) {
	fields := m.fields()
	idx := 0
	for i, f := range fields {
		if f == m.focus {
			idx = i
		}
	}
	idx = (idx + delta + len(fields)) % len(fields)
	return m.setFocus(fields[idx])
}

func (m loginModel) toggleMode() (loginModel, tea.Cmd) {
	m.register = !m.register
	m.err = ""
	if m.register {
		return m.setFocus(fieldName)
	}
	return m.setFocus(fieldEmail)
}

// reset clears the form after a session is established or torn down.
func (m loginModel) reset() loginModel {
	for i := range m.inputs {
		m.inputs[i].Reset()
	}
	m.submitting = false
	m.err = ""
	m, _ = m.setFocus(m.fields()[0])
	return m
}

func (m loginModel) value(f loginField) string {
	return strings.TrimSpace(m.inputs[f].Value())
}

func (m loginModel) submit() (loginModel, tea.Cmd) {
	email := m.value(fieldEmail)
	password := m.inputs[fieldPassword].Value()

	switch {
	case m.register && m.value(fieldName) == "":
		m.err = "name is required"
		return m.setFocus(fieldName)
	case email == "":
		m.err = "email is required"
		return m.setFocus(fieldEmail)
	case password == "":
		m.err = "password is required"
		return m.setFocus(fieldPassword)
	}

	m.err = ""
	m.submitting = true
	msg := submitMsg{register: m.register}
	if m.register {
		msg.signup = domain.SignupRequest{Name: m.value(fieldName), Email: email, Password: password}
	} else {
		msg.login = domain.LoginRequest{Email: email, Password: password}
	}
	return m, func() tea.Msg { return msg }
}

func (m loginModel) Update(msg tea.Msg) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		for i := range m.inputs {
			m.inputs[i].Width = max(msg.Width-16, 10)
		}
		return m, nil

	case tea.KeyMsg:
		if m.submitting {
			return m, nil
		}
		switch msg.String() {
		case "tab", "down":
			return m.cycle(1)
		case "shift+tab", "up":
			return m.cycle(-1)
		case "ctrl+r":
			return m.toggleMode()
		case "enter":
			return m.submit()
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m loginModel) View() string {
	var b strings.Builder

	title := "Sign in"
	if m.register {
		title = "Create an account"
	}
	fmt.Fprintf(&b, "  %s\n\n", selectedStyle.Render(title))

	for _, f := range m.fields() {
		fmt.Fprintf(&b, "  %s\n", m.inputs[f].View())
	}
	b.WriteString("\n")

	switch {
	case m.submitting:
		fmt.Fprintf(&b, "  %s\n", dimStyle.Render("checking credentials…"))
	case m.err != "":
		fmt.Fprintf(&b, "  %s\n", errorStyle.Render(truncStr(m.err, max(m.width-4, 20))))
	default:
		b.WriteString("\n")
	}

	toggle := "register"
	if m.register {
		toggle = "sign in"
	}
	b.WriteString("\n")
	b.WriteString(helpBar(
		[2]string{"tab", "next"},
		[2]string{"enter", "submit"},
		[2]string{"ctrl+r", toggle},
		[2]string{"ctrl+c", "quit"},
	))
	return b.String()
}
