package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sableworks/redline/internal/config"
	"github.com/sableworks/redline/internal/pipeline"
)

func TestLoginStoresCredentialAndShowsUpload(t *testing.T) {
	gw := newFakeGateway()
	gw.loginResult = pipeline.LoginResult{
		Token: "tok-123",
		User:  pipeline.User{Username: "lawyer", Name: "Dana Reyes", Email: "dana@example.com"},
	}
	app, projectDir := newTestApp(t, gw)
	if app.state != stateLogin {
		t.Fatalf("expected login state on cold start, got %d", app.state)
	}

	app.loginView.username.SetValue("lawyer")
	app.loginView.password.SetValue("hunter2")
	app = press(t, app, tea.KeyMsg{Type: tea.KeyEnter})

	if app.state != stateUpload {
		t.Fatalf("expected upload state after login, got %d", app.state)
	}
	if gw.count("Login") != 1 {
		t.Fatalf("expected exactly one login call, got %d", gw.count("Login"))
	}
	stored, err := os.ReadFile(filepath.Join(projectDir, ".redline", "credentials"))
	if err != nil {
		t.Fatalf("read stored credential: %v", err)
	}
	if got := strings.TrimSpace(string(stored)); got != "tok-123" {
		t.Fatalf("stored credential = %q, want tok-123", got)
	}
}

func TestLoginFailureStaysOnLogin(t *testing.T) {
	gw := newFakeGateway()
	gw.loginErr = &pipeline.ServerError{StatusCode: 400, Message: "bad credentials"}
	app, _ := newTestApp(t, gw)

	app.loginView.username.SetValue("lawyer")
	app.loginView.password.SetValue("wrong")
	app = press(t, app, tea.KeyMsg{Type: tea.KeyEnter})

	if app.state != stateLogin {
		t.Fatalf("expected to stay on login, got state %d", app.state)
	}
	if got := app.loginView.errMsg; got != "bad credentials" {
		t.Fatalf("errMsg = %q, want server message", got)
	}
	if app.auth.Authenticated() {
		t.Fatalf("no credential should be stored after a failed login")
	}
}

func TestRejectedStoredCredentialForcesLogin(t *testing.T) {
	gw := newFakeGateway()
	gw.profileErr = pipeline.ErrUnauthorized
	app, _ := newTestApp(t, gw)
	if err := app.auth.SetCredential("stale-token"); err != nil {
		t.Fatalf("seed credential: %v", err)
	}

	app = runCommands(t, app, app.Init())

	if app.state != stateLogin {
		t.Fatalf("expected login after rejected credential, got state %d", app.state)
	}
	if app.auth.Authenticated() {
		t.Fatalf("rejected credential must be cleared")
	}
}

func TestVerifiedStoredCredentialSkipsLogin(t *testing.T) {
	gw := newFakeGateway()
	gw.profileUser = pipeline.User{Name: "Dana Reyes", Email: "dana@example.com"}
	app, _ := newTestApp(t, gw)
	if err := app.auth.SetCredential("good-token"); err != nil {
		t.Fatalf("seed credential: %v", err)
	}

	app = runCommands(t, app, app.Init())

	if app.state != stateUpload {
		t.Fatalf("expected upload after verified credential, got state %d", app.state)
	}
}

func TestUploadHandsSessionToAnalysis(t *testing.T) {
	gw := newFakeGateway()
	gw.uploadResult = pipeline.UploadResult{
		SessionID: "abc123",
		RiskAssessment: &pipeline.RiskAssessment{
			RiskLevel:            pipeline.RiskHigh,
			TotalClausesAnalyzed: 5,
			HighRiskClauses:      2,
		},
	}
	app, _ := newTestAppAtUpload(t, gw)

	contract := writeContract(t, "agreement.pdf")
	app.uploadView.path.SetValue(contract)
	app = press(t, app, tea.KeyMsg{Type: tea.KeyEnter})

	if app.state != stateAnalysis {
		t.Fatalf("expected analysis state after upload, got %d", app.state)
	}
	view := app.analysisView
	if view.sess.ID() != "abc123" {
		t.Fatalf("session id = %q, want abc123", view.sess.ID())
	}
	if view.sess.Filename() != "agreement.pdf" {
		t.Fatalf("session filename = %q, want agreement.pdf", view.sess.Filename())
	}
	if view.risk == nil || view.risk.RiskLevel != pipeline.RiskHigh {
		t.Fatalf("risk assessment did not travel to the analysis view")
	}
	if gw.uploadedFilename != "agreement.pdf" {
		t.Fatalf("uploaded filename = %q", gw.uploadedFilename)
	}
}

func TestUploadRejectsUnsupportedFormatWithoutNetwork(t *testing.T) {
	gw := newFakeGateway()
	app, _ := newTestAppAtUpload(t, gw)

	contract := writeContract(t, "notes.txt")
	app.uploadView.path.SetValue(contract)
	app = press(t, app, tea.KeyMsg{Type: tea.KeyEnter})

	if app.state != stateUpload {
		t.Fatalf("unsupported format must not leave upload, got state %d", app.state)
	}
	if app.uploadView.errMsg == "" {
		t.Fatalf("expected a format error message")
	}
	if gw.total() != 0 {
		t.Fatalf("expected zero network calls, got %d", gw.total())
	}
}

func TestUploadFailureIsRetriable(t *testing.T) {
	gw := newFakeGateway()
	gw.uploadErr = pipeline.ErrTransport
	app, _ := newTestAppAtUpload(t, gw)

	contract := writeContract(t, "agreement.pdf")
	app.uploadView.path.SetValue(contract)
	app = press(t, app, tea.KeyMsg{Type: tea.KeyEnter})

	if app.state != stateUpload {
		t.Fatalf("transport failure must keep the upload screen, got %d", app.state)
	}
	if app.uploadView.uploading {
		t.Fatalf("busy flag must clear so the user can retry")
	}
	if !strings.Contains(app.uploadView.errMsg, "Could not reach") {
		t.Fatalf("errMsg = %q, want the transport message", app.uploadView.errMsg)
	}

	// Same screen, second attempt succeeds.
	gw.uploadErr = nil
	gw.uploadResult = pipeline.UploadResult{SessionID: "abc123"}
	app = press(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	if app.state != stateAnalysis {
		t.Fatalf("retry should reach analysis, got state %d", app.state)
	}
}

func TestVerifyRendersFindings(t *testing.T) {
	gw := newFakeGateway()
	gw.findings = []pipeline.ClauseFinding{{
		ClauseName:      "Liability",
		IsPresent:       true,
		RiskLevel:       pipeline.RiskHigh,
		ConfidenceScore: 0.92,
		Justification:   "Uncapped indemnification.",
	}}
	app := newTestAppAtAnalysis(t, gw)

	app = press(t, app, keyRune('v'))

	view := app.analysisView
	if !view.hasFindings || len(view.findings) != 1 {
		t.Fatalf("expected one finding, got %d", len(view.findings))
	}
	rendered := view.View()
	if !strings.Contains(rendered, "Liability") || !strings.Contains(rendered, pipeline.RiskHigh) {
		t.Fatalf("rendered view missing the finding:\n%s", rendered)
	}
}

func TestAnalysisActionsRunIndependently(t *testing.T) {
	gw := newFakeGateway()
	gw.summary = "Short-form services agreement."
	app := newTestAppAtAnalysis(t, gw)
	view := app.analysisView

	// Verification stays in flight while a summary is requested.
	verifyCmd := view.runVerify()
	if verifyCmd == nil || !view.verifying {
		t.Fatalf("verify should start")
	}
	app = runCommands(t, app, view.runSummarize())
	if !view.hasSummary || view.summary == "" {
		t.Fatalf("summary should land while verification is pending")
	}
	if !view.verifying {
		t.Fatalf("pending verification must not be cleared by another action")
	}
	// A second verify while one is in flight is a no-op.
	if cmd := view.runVerify(); cmd != nil {
		t.Fatalf("verify must not double-fire")
	}
	app = runCommands(t, app, verifyCmd)
	if view.verifying {
		t.Fatalf("verify busy flag should clear when the result lands")
	}
	if app.state != stateAnalysis {
		t.Fatalf("analysis screen should survive both actions, got state %d", app.state)
	}
}

func TestSuggestRequiresClauseName(t *testing.T) {
	gw := newFakeGateway()
	app := newTestAppAtAnalysis(t, gw)

	app = press(t, app, keyRune('g'))

	if app.analysisView.errMsg == "" {
		t.Fatalf("expected a clause-name validation message")
	}
	if gw.count("SuggestClause") != 0 {
		t.Fatalf("no network call should happen without a clause name")
	}
}

func TestApprovalAwaitingInputRoutesToMeeting(t *testing.T) {
	gw := newFakeGateway()
	gw.provideResp = pipeline.StatusResponse{WaitingForInput: true, InputType: "meeting_date"}
	app := newTestAppAtAnalysis(t, gw)
	sessionID := app.analysisView.sess.ID()

	app = press(t, app, keyRune('y'))

	if app.state != stateMeeting {
		t.Fatalf("expected meeting state, got %d", app.state)
	}
	if got := app.meetingView.sess.ID(); got != sessionID {
		t.Fatalf("meeting session = %q, want %q", got, sessionID)
	}
	if len(gw.provided) != 1 {
		t.Fatalf("expected one provide-input call, got %d", len(gw.provided))
	}
	decision, ok := gw.provided[0].input.(pipeline.Decision)
	if !ok || !decision.Approved {
		t.Fatalf("expected an approval decision, got %#v", gw.provided[0].input)
	}
}

func TestApprovalCompletedSuccessSkipsMeeting(t *testing.T) {
	gw := newFakeGateway()
	gw.provideResp = pipeline.StatusResponse{WorkflowComplete: true, FinalStatus: "SUCCESS"}
	app := newTestAppAtAnalysis(t, gw)

	app = press(t, app, keyRune('y'))

	if app.state != stateUpload {
		t.Fatalf("completed workflow must return to upload, got state %d", app.state)
	}
	if app.meetingView != nil {
		t.Fatalf("meeting view must never be constructed on completion")
	}
}

func TestRejectionAlwaysTerminates(t *testing.T) {
	gw := newFakeGateway()
	// Even a server that asks for more input does not keep a rejected
	// session alive.
	gw.provideResp = pipeline.StatusResponse{WaitingForInput: true, InputType: "meeting_date"}
	app := newTestAppAtAnalysis(t, gw)

	app = press(t, app, keyRune('n'))

	if app.state != stateUpload {
		t.Fatalf("rejection must terminate to upload, got state %d", app.state)
	}
	decision, ok := gw.provided[0].input.(pipeline.Decision)
	if !ok || decision.Approved {
		t.Fatalf("expected a rejection decision, got %#v", gw.provided[0].input)
	}
}

func TestDecisionFailureStaysRetriable(t *testing.T) {
	gw := newFakeGateway()
	gw.provideErr = pipeline.ErrTransport
	app := newTestAppAtAnalysis(t, gw)

	app = press(t, app, keyRune('y'))

	view := app.analysisView
	if app.state != stateAnalysis || view.decisionSubmitted {
		t.Fatalf("a failed submission must leave the decision open")
	}
	if view.deciding {
		t.Fatalf("busy flag must clear after the failure")
	}

	gw.provideErr = nil
	gw.provideResp = pipeline.StatusResponse{WorkflowComplete: true, FinalStatus: "SUCCESS"}
	app = press(t, app, keyRune('y'))
	if app.state != stateUpload {
		t.Fatalf("retried decision should complete, got state %d", app.state)
	}
}

func TestUnrecognizedDecisionResponseThenStatusRefresh(t *testing.T) {
	gw := newFakeGateway()
	gw.provideResp = pipeline.StatusResponse{}
	app := newTestAppAtAnalysis(t, gw)

	app = press(t, app, keyRune('y'))

	view := app.analysisView
	if app.state != stateAnalysis || !view.decisionSubmitted {
		t.Fatalf("unrecognized response keeps the analysis screen with the decision spent")
	}
	// The decision is one-shot.
	if cmd := view.submitDecision(true); cmd != nil {
		t.Fatalf("decision must not be resubmittable")
	}

	gw.statusResp = pipeline.StatusResponse{WaitingForInput: true, InputType: "meeting_date"}
	app = press(t, app, keyRune('r'))
	if app.state != stateMeeting {
		t.Fatalf("status refresh should route to meeting, got state %d", app.state)
	}
}

func TestUnauthorizedActionForcesLogin(t *testing.T) {
	gw := newFakeGateway()
	gw.verifyErr = pipeline.ErrUnauthorized
	app := newTestAppAtAnalysis(t, gw)

	app = press(t, app, keyRune('v'))

	if app.state != stateLogin {
		t.Fatalf("expected forced login, got state %d", app.state)
	}
	if app.auth.Authenticated() {
		t.Fatalf("credential must be cleared on an authentication failure")
	}
}

func TestStaleUploadResultIsDropped(t *testing.T) {
	gw := newFakeGateway()
	gw.uploadResult = pipeline.UploadResult{SessionID: "abc123"}
	app, _ := newTestAppAtUpload(t, gw)

	contract := writeContract(t, "agreement.pdf")
	app.uploadView.path.SetValue(contract)
	model, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	app = model.(*App)
	staleMsg := cmd()

	// The screen is rebuilt before the result lands; the new view minted a
	// fresh epoch.
	app.showUpload("")
	model, next := app.Update(staleMsg)
	app = model.(*App)

	if next != nil {
		t.Fatalf("stale result must produce no follow-up command")
	}
	if app.state != stateUpload || app.analysisView != nil {
		t.Fatalf("stale result must not navigate, got state %d", app.state)
	}
}

func TestPastMeetingDateBlockedWithoutNetwork(t *testing.T) {
	gw := newFakeGateway()
	app := newTestAppAtMeeting(t, gw)
	view := app.meetingView
	view.now = func() time.Time {
		return time.Date(2026, time.September, 1, 12, 0, 0, 0, time.Local)
	}

	view.date.SetValue("2026-08-31T09:00")
	view.email.SetValue("legal@example.com")
	app = press(t, app, tea.KeyMsg{Type: tea.KeyEnter})

	if app.state != stateMeeting {
		t.Fatalf("invalid request must keep the form, got state %d", app.state)
	}
	if !strings.Contains(view.errMsg, "future") {
		t.Fatalf("errMsg = %q, want a future-date message", view.errMsg)
	}
	if gw.count("ProvideInput") != 0 {
		t.Fatalf("invalid request must never reach the network")
	}
}

func TestMeetingInvalidEmailBlockedWithoutNetwork(t *testing.T) {
	gw := newFakeGateway()
	app := newTestAppAtMeeting(t, gw)
	view := app.meetingView
	view.now = func() time.Time {
		return time.Date(2026, time.September, 1, 12, 0, 0, 0, time.Local)
	}

	view.date.SetValue("2026-09-14T10:30")
	view.email.SetValue("not-an-email")
	app = press(t, app, tea.KeyMsg{Type: tea.KeyEnter})

	if gw.count("ProvideInput") != 0 {
		t.Fatalf("invalid email must never reach the network")
	}
	if view.errMsg == "" {
		t.Fatalf("expected an email validation message")
	}
}

func TestMeetingSuccessConfirmsThenReturnsToUpload(t *testing.T) {
	gw := newFakeGateway()
	gw.provideResp = pipeline.StatusResponse{WorkflowComplete: true, FinalStatus: "SUCCESS"}
	app := newTestAppAtMeeting(t, gw)
	view := app.meetingView
	view.now = func() time.Time {
		return time.Date(2026, time.September, 1, 12, 0, 0, 0, time.Local)
	}

	view.date.SetValue("2026-09-14T10:30")
	view.email.SetValue("legal@example.com")
	model, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	app = model.(*App)
	model, tick := app.Update(cmd())
	app = model.(*App)

	if !view.scheduled {
		t.Fatalf("expected the confirmation screen")
	}
	if !strings.Contains(view.confirmMsg, "legal@example.com") {
		t.Fatalf("confirmation must name the notification email, got %q", view.confirmMsg)
	}
	if tick == nil {
		t.Fatalf("expected the delayed return command")
	}
	req, ok := gw.provided[0].input.(pipeline.MeetingRequest)
	if !ok {
		t.Fatalf("expected a meeting request, got %#v", gw.provided[0].input)
	}
	if got := req.MeetingDate.Format(pipeline.MeetingDateLayout); got != "2026-09-14T10:30" {
		t.Fatalf("meeting date = %q", got)
	}

	// The timer message is delivered directly so the test does not wait it
	// out.
	model, _ = app.Update(meetingDoneMsg{epoch: view.epoch})
	app = model.(*App)
	if app.state != stateUpload {
		t.Fatalf("expected return to upload after the confirmation delay, got %d", app.state)
	}
}

func TestMeetingFailureKeepsFormState(t *testing.T) {
	gw := newFakeGateway()
	gw.provideErr = pipeline.ErrTransport
	app := newTestAppAtMeeting(t, gw)
	view := app.meetingView
	view.now = func() time.Time {
		return time.Date(2026, time.September, 1, 12, 0, 0, 0, time.Local)
	}

	view.date.SetValue("2026-09-14T10:30")
	view.email.SetValue("legal@example.com")
	app = press(t, app, tea.KeyMsg{Type: tea.KeyEnter})

	if app.state != stateMeeting || view.scheduled {
		t.Fatalf("failed scheduling must keep the form")
	}
	if got := view.date.Value(); got != "2026-09-14T10:30" {
		t.Fatalf("form state lost: date = %q", got)
	}
	if !strings.Contains(view.errMsg, "Could not reach") {
		t.Fatalf("errMsg = %q, want the transport message", view.errMsg)
	}
}

// --- helpers ---

func newTestApp(t *testing.T, gw pipeline.Gateway) (*App, string) {
	t.Helper()
	projectDir := t.TempDir()
	if err := config.InitRedlineDir(projectDir); err != nil {
		t.Fatalf("init redline dir: %v", err)
	}
	app, err := NewApp(projectDir, WithGateway(gw))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return app, projectDir
}

func newTestAppAtUpload(t *testing.T, gw pipeline.Gateway) (*App, string) {
	t.Helper()
	app, projectDir := newTestApp(t, gw)
	app.auth.SetIdentity("Dana Reyes", "dana@example.com")
	app.showUpload("")
	return app, projectDir
}

func newTestAppAtAnalysis(t *testing.T, gw *fakeGateway) *App {
	t.Helper()
	if gw.uploadResult.SessionID == "" {
		gw.uploadResult = pipeline.UploadResult{SessionID: "abc123"}
	}
	app, _ := newTestAppAtUpload(t, gw)
	contract := writeContract(t, "agreement.pdf")
	app.uploadView.path.SetValue(contract)
	app = press(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	if app.state != stateAnalysis {
		t.Fatalf("setup: expected analysis state, got %d", app.state)
	}
	return app
}

func newTestAppAtMeeting(t *testing.T, gw *fakeGateway) *App {
	t.Helper()
	// Preserve the canned provide-input response the test installed; setup
	// needs its own response to reach the meeting screen.
	savedResp, savedErr := gw.provideResp, gw.provideErr
	gw.provideResp = pipeline.StatusResponse{WaitingForInput: true, InputType: "meeting_date"}
	gw.provideErr = nil
	app := newTestAppAtAnalysis(t, gw)
	app = press(t, app, keyRune('y'))
	if app.state != stateMeeting {
		t.Fatalf("setup: expected meeting state, got %d", app.state)
	}
	gw.reset()
	gw.provideResp, gw.provideErr = savedResp, savedErr
	return app
}

func writeContract(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("contract body"), 0644); err != nil {
		t.Fatalf("write contract: %v", err)
	}
	return path
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

// press feeds one key through Update and drains the resulting command chain.
func press(t *testing.T, app *App, key tea.KeyMsg) *App {
	t.Helper()
	model, cmd := app.Update(key)
	return runCommands(t, model, cmd)
}

func runCommands(t *testing.T, model tea.Model, cmd tea.Cmd) *App {
	t.Helper()
	app, ok := model.(*App)
	if !ok {
		t.Fatalf("unexpected model type: %T", model)
	}
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			break
		}
		nextModel, nextCmd := app.Update(msg)
		app, ok = nextModel.(*App)
		if !ok {
			t.Fatalf("unexpected model type: %T", nextModel)
		}
		cmd = nextCmd
	}
	return app
}

type providedCall struct {
	sessionID string
	input     pipeline.Input
}

// fakeGateway records every call and serves canned responses.
type fakeGateway struct {
	mu    sync.Mutex
	calls []string

	loginResult pipeline.LoginResult
	loginErr    error

	profileUser pipeline.User
	profileErr  error

	uploadResult     pipeline.UploadResult
	uploadErr        error
	uploadedFilename string

	findings  []pipeline.ClauseFinding
	verifyErr error

	summary      string
	summarizeErr error

	suggestion string
	suggestErr error

	provideResp pipeline.StatusResponse
	provideErr  error
	provided    []providedCall

	statusResp pipeline.StatusResponse
	statusErr  error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{}
}

func (f *fakeGateway) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeGateway) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeGateway) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeGateway) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
	f.provided = nil
	f.provideResp = pipeline.StatusResponse{}
	f.provideErr = nil
}

func (f *fakeGateway) Login(context.Context, string, string) (pipeline.LoginResult, error) {
	f.record("Login")
	return f.loginResult, f.loginErr
}

func (f *fakeGateway) Profile(context.Context) (pipeline.User, error) {
	f.record("Profile")
	return f.profileUser, f.profileErr
}

func (f *fakeGateway) SubmitDocument(_ context.Context, filename string, _ []byte) (pipeline.UploadResult, error) {
	f.record("SubmitDocument")
	f.mu.Lock()
	f.uploadedFilename = filename
	f.mu.Unlock()
	return f.uploadResult, f.uploadErr
}

func (f *fakeGateway) VerifyContract(context.Context, string) ([]pipeline.ClauseFinding, error) {
	f.record("VerifyContract")
	return f.findings, f.verifyErr
}

func (f *fakeGateway) SummarizeContract(context.Context, string) (string, error) {
	f.record("SummarizeContract")
	return f.summary, f.summarizeErr
}

func (f *fakeGateway) SuggestClause(context.Context, string, string, string) (string, error) {
	f.record("SuggestClause")
	return f.suggestion, f.suggestErr
}

func (f *fakeGateway) ProvideInput(_ context.Context, sessionID string, input pipeline.Input) (pipeline.StatusResponse, error) {
	f.record("ProvideInput")
	f.mu.Lock()
	f.provided = append(f.provided, providedCall{sessionID: sessionID, input: input})
	f.mu.Unlock()
	return f.provideResp, f.provideErr
}

func (f *fakeGateway) WorkflowStatus(context.Context, string) (pipeline.StatusResponse, error) {
	f.record("WorkflowStatus")
	return f.statusResp, f.statusErr
}
