// internal/tui/app.go
//
// This is the main TUI for redline. It uses bubbletea, which follows The Elm
// Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// The flow is: User Input -> Message -> Update -> New Model -> View -> Screen
//
// Each screen of the review journey (login, upload, analysis, meeting) is a
// sub-view owned by App. Screens never talk to each other directly; they hand
// the session back to App, which constructs the next view.

package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/sableworks/redline/internal/auth"
	"github.com/sableworks/redline/internal/config"
	"github.com/sableworks/redline/internal/logbook"
	"github.com/sableworks/redline/internal/pipeline"
	"github.com/sableworks/redline/internal/session"
)

// appState represents which "screen" we're on
type appState int

const (
	stateLogin    appState = iota // Credential entry
	stateUpload                   // Contract file selection and upload
	stateAnalysis                 // Analysis actions and the approval checkpoint
	stateMeeting                  // Follow-up meeting scheduling
)

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithGateway overrides the pipeline gateway used by every screen.
func WithGateway(gw pipeline.Gateway) AppOption {
	return func(a *App) {
		if gw != nil {
			a.gateway = gw
		}
	}
}

// profileCheckedMsg reports the startup verification of a persisted
// credential.
type profileCheckedMsg struct {
	user pipeline.User
	err  error
}

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	state   appState
	config  *config.Config
	gateway pipeline.Gateway
	auth    *auth.State
	logbook *logbook.Logbook

	loginView    *loginView
	uploadView   *uploadView
	analysisView *analysisView
	meetingView  *meetingView

	statusMsg string

	// Window size (we get this from bubbletea)
	width  int
	height int
}

// NewApp creates a new App instance rooted at the given project directory.
func NewApp(projectDir string, opts ...AppOption) (*App, error) {
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		return nil, err
	}
	authState := auth.NewState(cfg.CredentialsPath())
	if err := authState.Load(); err != nil {
		return nil, fmt.Errorf("tui: load credentials: %w", err)
	}
	logPath := filepath.Join(cfg.LogsDir(), "journey.log")
	book, err := logbook.New(logPath)
	if err != nil {
		return nil, err
	}

	app := &App{
		state:   stateLogin,
		config:  cfg,
		auth:    authState,
		logbook: book,
	}
	app.gateway = pipeline.NewClient(cfg.ServerURL(), authState)
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	app.loginView = newLoginView(app)
	book.Info("Session opened · server %s", cfg.ServerURL())
	return app, nil
}

// Init is called once when the program starts. A persisted credential is
// verified against the server before any screen trusts it.
func (a *App) Init() tea.Cmd {
	if !a.auth.Authenticated() {
		return nil
	}
	gw := a.gateway
	return func() tea.Msg {
		user, err := gw.Profile(context.Background())
		return profileCheckedMsg{user: user, err: err}
	}
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case profileCheckedMsg:
		if msg.err != nil {
			// Expired or unverifiable credential; start over at login.
			a.logbook.Warn("Stored credential rejected: %v", msg.err)
			_ = a.auth.Logout()
			a.showLogin("Session expired. Please log in.")
			return a, nil
		}
		a.auth.SetIdentity(msg.user.DisplayName(), msg.user.Email)
		a.logbook.Info("Credential verified for %s", msg.user.DisplayName())
		a.showUpload("")
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
	}

	return a, a.updateActiveView(msg)
}

func (a *App) updateActiveView(msg tea.Msg) tea.Cmd {
	switch a.state {
	case stateLogin:
		if a.loginView != nil {
			return a.loginView.Update(msg)
		}
	case stateUpload:
		if a.uploadView != nil {
			return a.uploadView.Update(msg)
		}
	case stateAnalysis:
		if a.analysisView != nil {
			return a.analysisView.Update(msg)
		}
	case stateMeeting:
		if a.meetingView != nil {
			return a.meetingView.Update(msg)
		}
	}
	return nil
}

// showLogin routes to the credential screen, dropping any in-flight session.
func (a *App) showLogin(note string) {
	a.state = stateLogin
	a.loginView = newLoginView(a)
	a.uploadView = nil
	a.analysisView = nil
	a.meetingView = nil
	a.setStatus(note)
}

// showUpload routes to the upload entry point. Any previous session is
// discarded; the next upload starts a fresh one.
func (a *App) showUpload(note string) {
	a.state = stateUpload
	a.uploadView = newUploadView(a)
	a.analysisView = nil
	a.meetingView = nil
	a.setStatus(note)
}

// showAnalysis routes to the analysis screen for a live session. The risk
// assessment snapshot travels as navigation state, not on the session.
func (a *App) showAnalysis(sess session.Session, risk *pipeline.RiskAssessment) {
	if err := session.Require(sess); err != nil {
		a.logbook.Warn("Analysis entered without a session, redirecting to upload")
		a.showUpload("Upload a contract to begin.")
		return
	}
	a.state = stateAnalysis
	a.analysisView = newAnalysisView(a, sess, risk)
	a.meetingView = nil
	a.setStatus(fmt.Sprintf("Analyzing %s", sess.Filename()))
}

// showMeeting routes to the meeting scheduler, reachable only once approval
// resolved to an awaiting-input outcome.
func (a *App) showMeeting(sess session.Session) {
	if err := session.Require(sess); err != nil {
		a.logbook.Warn("Meeting entered without a session, redirecting to upload")
		a.showUpload("Upload a contract to begin.")
		return
	}
	a.state = stateMeeting
	a.meetingView = newMeetingView(a, sess)
	a.analysisView = nil
	a.setStatus(fmt.Sprintf("Schedule the follow-up meeting for %s", sess.Filename()))
}

// forceLogin is the single reaction to an authentication failure from any
// gateway call: clear the credential and start over.
func (a *App) forceLogin() {
	a.logbook.Warn("Authentication failure · credential cleared")
	_ = a.auth.Logout()
	a.showLogin("Session expired. Please log in again.")
}

// logout handles the user-initiated variant.
func (a *App) logout() {
	a.logbook.Info("Logged out")
	_ = a.auth.Logout()
	a.showLogin("Logged out.")
}

func (a *App) setStatus(message string) {
	a.statusMsg = strings.TrimSpace(message)
	a.logbook.Progress(a.statusMsg)
}

// newEpoch mints the stale-response guard token for a freshly constructed
// view. Async results carry the epoch they were started under; a view
// ignores results minted for a predecessor.
func newEpoch() string {
	return uuid.NewString()
}

// View renders the current state to a string.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	var content string
	switch a.state {
	case stateLogin:
		content = a.loginView.View()
	case stateUpload:
		content = a.uploadView.View()
	case stateAnalysis:
		content = a.analysisView.View()
	case stateMeeting:
		content = a.meetingView.View()
	}

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF6B6B")).
		MarginBottom(1).
		Render("⬡ REDLINE")
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Width(maxInt(40, width-2)).
		Render(content)
	sections := []string{header, box}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	footer := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		MarginTop(1).
		Render(a.statusMsg)
	sections = append(sections, footer)
	return strings.Join(sections, "\n")
}

func (a *App) renderLogPanel() string {
	lines := a.logbook.Tail(6)
	if len(lines) == 0 {
		return ""
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render("LOG · journey")
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(lines, "\n"))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Render(fmt.Sprintf("%s\n%s", head, body))
}

// isUnauthorized spots the one error class that ends the whole session
// rather than a single action.
func isUnauthorized(err error) bool {
	return errors.Is(err, pipeline.ErrUnauthorized)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
