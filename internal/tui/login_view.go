package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sableworks/redline/internal/pipeline"
)

// loginView exchanges credentials for the bearer token every later call
// rides on.
type loginView struct {
	app   *App
	epoch string

	username textinput.Model
	password textinput.Model
	focus    int

	submitting bool
	errMsg     string
}

type loginFinishedMsg struct {
	epoch  string
	result pipeline.LoginResult
	err    error
}

func newLoginView(app *App) *loginView {
	username := textinput.New()
	username.Placeholder = "username"
	username.CharLimit = 128
	username.Focus()
	password := textinput.New()
	password.Placeholder = "password"
	password.CharLimit = 128
	password.EchoMode = textinput.EchoPassword
	return &loginView{
		app:      app,
		epoch:    newEpoch(),
		username: username,
		password: password,
	}
}

func (v *loginView) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case loginFinishedMsg:
		if m.epoch != v.epoch {
			return nil
		}
		return v.handleLoginFinished(m)
	case tea.KeyMsg:
		switch m.String() {
		case "tab", "shift+tab", "up", "down":
			v.cycleFocus()
			return nil
		case "enter":
			return v.submit()
		}
	}
	return v.updateInputs(msg)
}

func (v *loginView) cycleFocus() {
	v.focus = (v.focus + 1) % 2
	if v.focus == 0 {
		v.username.Focus()
		v.password.Blur()
	} else {
		v.username.Blur()
		v.password.Focus()
	}
}

func (v *loginView) updateInputs(msg tea.Msg) tea.Cmd {
	if v.submitting {
		return nil
	}
	var cmds []tea.Cmd
	var cmd tea.Cmd
	v.username, cmd = v.username.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	v.password, cmd = v.password.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

func (v *loginView) submit() tea.Cmd {
	if v.submitting {
		return nil
	}
	username := strings.TrimSpace(v.username.Value())
	password := v.password.Value()
	if username == "" || password == "" {
		v.errMsg = "Username and password are required"
		return nil
	}
	v.submitting = true
	v.errMsg = ""
	v.app.setStatus("Logging in...")
	gw := v.app.gateway
	epoch := v.epoch
	return func() tea.Msg {
		result, err := gw.Login(context.Background(), username, password)
		return loginFinishedMsg{epoch: epoch, result: result, err: err}
	}
}

func (v *loginView) handleLoginFinished(msg loginFinishedMsg) tea.Cmd {
	v.submitting = false
	if msg.err != nil {
		v.errMsg = pipeline.UserMessage(msg.err, "Login failed")
		v.app.logbook.Warn("Login failed: %v", msg.err)
		return nil
	}
	if err := v.app.auth.SetCredential(msg.result.Token); err != nil {
		v.errMsg = "Could not store the credential: " + err.Error()
		return nil
	}
	user := msg.result.User
	v.app.auth.SetIdentity(user.DisplayName(), user.Email)
	v.app.logbook.Info("Logged in as %s", user.DisplayName())
	v.app.showUpload("")
	return nil
}

func (v *loginView) View() string {
	title := lipgloss.NewStyle().Bold(true).Render("Sign in to the review pipeline")
	lines := []string{
		title,
		"",
		"Username: " + v.username.View(),
		"Password: " + v.password.View(),
		"",
	}
	if v.submitting {
		lines = append(lines, "Logging in...")
	} else {
		lines = append(lines, "enter=sign in  tab=next field  ctrl+c=quit")
	}
	if v.errMsg != "" {
		lines = append(lines, "", errorStyle.Render("⚠ "+v.errMsg))
	}
	return strings.Join(lines, "\n")
}
