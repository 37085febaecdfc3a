package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sableworks/redline/internal/pipeline"
	"github.com/sableworks/redline/internal/session"
)

// analysisView drives the inspection phase of one session: the three
// independent analysis actions, then the approval checkpoint. Each action
// has its own busy flag so a pending verification never blocks a summary
// request. The approval decision is one-shot; once it resolves, the session
// only moves forward (meeting) or ends (upload).
type analysisView struct {
	app   *App
	epoch string
	sess  session.Session
	risk  *pipeline.RiskAssessment

	findings     []pipeline.ClauseFinding
	hasFindings  bool
	summary      string
	hasSummary   bool
	suggestion   string
	suggestedFor string

	clauseName textinput.Model
	riskyText  textinput.Model
	editing    bool
	editFocus  int

	verifying   bool
	summarizing bool
	suggesting  bool
	deciding    bool

	decisionSubmitted bool
	errMsg            string
}

type verifyFinishedMsg struct {
	epoch    string
	findings []pipeline.ClauseFinding
	err      error
}

type summarizeFinishedMsg struct {
	epoch   string
	summary string
	err     error
}

type suggestFinishedMsg struct {
	epoch      string
	clause     string
	suggestion string
	err        error
}

type decisionFinishedMsg struct {
	epoch    string
	approved bool
	raw      pipeline.StatusResponse
	err      error
}

type statusFinishedMsg struct {
	epoch string
	raw   pipeline.StatusResponse
	err   error
}

func newAnalysisView(app *App, sess session.Session, risk *pipeline.RiskAssessment) *analysisView {
	clauseName := textinput.New()
	clauseName.Placeholder = "clause name (e.g. Liability, Termination)"
	clauseName.CharLimit = 128
	riskyText := textinput.New()
	riskyText.Placeholder = "risky clause text (optional)"
	riskyText.CharLimit = 1024
	return &analysisView{
		app:        app,
		epoch:      newEpoch(),
		sess:       sess,
		risk:       risk,
		clauseName: clauseName,
		riskyText:  riskyText,
	}
}

func (v *analysisView) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case verifyFinishedMsg:
		if m.epoch != v.epoch {
			return nil
		}
		v.verifying = false
		if m.err != nil {
			return v.fail(m.err, "Verification failed")
		}
		v.findings = m.findings
		v.hasFindings = true
		v.errMsg = ""
		v.app.setStatus(fmt.Sprintf("Verification returned %d clause(s)", len(m.findings)))
		return nil

	case summarizeFinishedMsg:
		if m.epoch != v.epoch {
			return nil
		}
		v.summarizing = false
		if m.err != nil {
			return v.fail(m.err, "Summarization failed")
		}
		v.summary = m.summary
		v.hasSummary = true
		v.errMsg = ""
		v.app.setStatus("Summary ready")
		return nil

	case suggestFinishedMsg:
		if m.epoch != v.epoch {
			return nil
		}
		v.suggesting = false
		if m.err != nil {
			return v.fail(m.err, "Suggestion failed")
		}
		v.suggestion = m.suggestion
		v.suggestedFor = m.clause
		v.errMsg = ""
		v.app.setStatus(fmt.Sprintf("Suggestion ready for %s", m.clause))
		return nil

	case decisionFinishedMsg:
		if m.epoch != v.epoch {
			return nil
		}
		return v.handleDecisionFinished(m)

	case statusFinishedMsg:
		if m.epoch != v.epoch {
			return nil
		}
		return v.handleStatusFinished(m)

	case tea.KeyMsg:
		return v.handleKeyMsg(m)
	}
	return nil
}

func (v *analysisView) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	if v.editing {
		switch msg.String() {
		case "esc":
			v.stopEditing()
			return nil
		case "tab", "shift+tab":
			v.cycleEditFocus()
			return nil
		case "enter":
			v.stopEditing()
			return v.runSuggest()
		}
		return v.updateEditInputs(msg)
	}

	switch msg.String() {
	case "v":
		return v.runVerify()
	case "s":
		return v.runSummarize()
	case "c":
		v.startEditing()
		return nil
	case "g":
		return v.runSuggest()
	case "y":
		return v.submitDecision(true)
	case "n":
		return v.submitDecision(false)
	case "r":
		return v.refreshStatus()
	case "esc":
		v.app.logbook.Info("Session %s abandoned from analysis", v.sess.ID())
		v.app.showUpload("Returned to upload.")
		return nil
	}
	return nil
}

func (v *analysisView) startEditing() {
	v.editing = true
	v.editFocus = 0
	v.clauseName.Focus()
	v.riskyText.Blur()
}

func (v *analysisView) stopEditing() {
	v.editing = false
	v.clauseName.Blur()
	v.riskyText.Blur()
}

func (v *analysisView) cycleEditFocus() {
	v.editFocus = (v.editFocus + 1) % 2
	if v.editFocus == 0 {
		v.clauseName.Focus()
		v.riskyText.Blur()
	} else {
		v.clauseName.Blur()
		v.riskyText.Focus()
	}
}

func (v *analysisView) updateEditInputs(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	v.clauseName, cmd = v.clauseName.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	v.riskyText, cmd = v.riskyText.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// actionsLocked reports whether new work may start. Individual actions are
// independent of each other, but nothing new starts once the decision is in
// flight or resolved.
func (v *analysisView) actionsLocked() bool {
	return v.deciding || v.decisionSubmitted
}

func (v *analysisView) runVerify() tea.Cmd {
	if v.verifying || v.actionsLocked() {
		return nil
	}
	v.verifying = true
	v.errMsg = ""
	v.app.setStatus("Verifying contract clauses...")
	gw := v.app.gateway
	epoch, id := v.epoch, v.sess.ID()
	return func() tea.Msg {
		findings, err := gw.VerifyContract(context.Background(), id)
		return verifyFinishedMsg{epoch: epoch, findings: findings, err: err}
	}
}

func (v *analysisView) runSummarize() tea.Cmd {
	if v.summarizing || v.actionsLocked() {
		return nil
	}
	v.summarizing = true
	v.errMsg = ""
	v.app.setStatus("Summarizing contract...")
	gw := v.app.gateway
	epoch, id := v.epoch, v.sess.ID()
	return func() tea.Msg {
		summary, err := gw.SummarizeContract(context.Background(), id)
		return summarizeFinishedMsg{epoch: epoch, summary: summary, err: err}
	}
}

func (v *analysisView) runSuggest() tea.Cmd {
	if v.suggesting || v.actionsLocked() {
		return nil
	}
	clause := strings.TrimSpace(v.clauseName.Value())
	if clause == "" {
		v.errMsg = "Please enter a clause name"
		return nil
	}
	v.suggesting = true
	v.errMsg = ""
	v.app.setStatus(fmt.Sprintf("Requesting a suggestion for %s...", clause))
	gw := v.app.gateway
	epoch, id := v.epoch, v.sess.ID()
	risky := v.riskyText.Value()
	return func() tea.Msg {
		suggestion, err := gw.SuggestClause(context.Background(), id, clause, risky)
		return suggestFinishedMsg{epoch: epoch, clause: clause, suggestion: suggestion, err: err}
	}
}

func (v *analysisView) submitDecision(approved bool) tea.Cmd {
	if v.deciding || v.decisionSubmitted {
		return nil
	}
	v.deciding = true
	v.errMsg = ""
	decision := pipeline.Decision{Approved: approved}
	v.app.setStatus(fmt.Sprintf("Submitting %s...", decision.Describe()))
	gw := v.app.gateway
	epoch, id := v.epoch, v.sess.ID()
	return func() tea.Msg {
		raw, err := gw.ProvideInput(context.Background(), id, decision)
		return decisionFinishedMsg{epoch: epoch, approved: approved, raw: raw, err: err}
	}
}

// handleDecisionFinished routes on the resolved outcome, never on the raw
// approved flag: the server may short-circuit completion even on approval.
func (v *analysisView) handleDecisionFinished(msg decisionFinishedMsg) tea.Cmd {
	v.deciding = false
	if msg.err != nil {
		// The decision was not accepted anywhere; it stays retriable.
		return v.fail(msg.err, "Decision submission failed")
	}
	v.decisionSubmitted = true

	decision := pipeline.Decision{Approved: msg.approved}
	outcome := pipeline.Resolve(msg.raw, decision)
	v.app.logbook.Info("Session %s · %s resolved to %s", v.sess.ID(), decision.Describe(), outcome.Kind)

	if !msg.approved {
		// Rejection is terminal by client policy, whatever the server
		// echoed back.
		v.app.showUpload("Process terminated.")
		return nil
	}

	switch outcome.Kind {
	case pipeline.OutcomeCompletedSuccess:
		v.app.showUpload("Process completed successfully!")
	case pipeline.OutcomeCompletedFailure:
		v.app.showUpload(outcome.Reason)
	case pipeline.OutcomeAwaitingInput:
		v.app.showMeeting(v.sess)
	case pipeline.OutcomeTerminatedByUser:
		v.app.showUpload("Process terminated.")
	default:
		// Unknown shape: stay put and let the user re-query with r.
		v.app.setStatus(outcome.ContinuingMessage())
	}
	return nil
}

func (v *analysisView) refreshStatus() tea.Cmd {
	v.app.setStatus("Checking workflow status...")
	gw := v.app.gateway
	epoch, id := v.epoch, v.sess.ID()
	return func() tea.Msg {
		raw, err := gw.WorkflowStatus(context.Background(), id)
		return statusFinishedMsg{epoch: epoch, raw: raw, err: err}
	}
}

func (v *analysisView) handleStatusFinished(msg statusFinishedMsg) tea.Cmd {
	if msg.err != nil {
		return v.fail(msg.err, "Status check failed")
	}
	outcome := pipeline.Resolve(msg.raw, nil)
	switch outcome.Kind {
	case pipeline.OutcomeCompletedSuccess:
		v.app.showUpload("Process completed successfully!")
	case pipeline.OutcomeCompletedFailure:
		v.app.showUpload(outcome.Reason)
	case pipeline.OutcomeAwaitingInput:
		if outcome.InputKind == pipeline.InputTypeMeetingDate && v.decisionSubmitted {
			v.app.showMeeting(v.sess)
			return nil
		}
		v.app.setStatus(fmt.Sprintf("Workflow is waiting for %s", outcome.InputKind))
	default:
		v.app.setStatus(outcome.ContinuingMessage())
	}
	return nil
}

// fail converts an action error into a retriable on-screen message; the
// only exception is an authentication failure, which ends the session.
func (v *analysisView) fail(err error, fallback string) tea.Cmd {
	if isUnauthorized(err) {
		v.app.forceLogin()
		return nil
	}
	v.errMsg = pipeline.UserMessage(err, fallback)
	v.app.logbook.Warn("%s: %v", fallback, err)
	return nil
}

func (v *analysisView) View() string {
	lines := []string{
		titleStyle.Render("Document analysis"),
		hintStyle.Render(fmt.Sprintf("File: %s · session %s", v.sess.Filename(), v.sess.ID())),
	}

	if v.risk != nil {
		lines = append(lines, "", v.renderRiskAssessment())
	}
	if v.hasFindings {
		lines = append(lines, "", v.renderFindings())
	}
	if v.hasSummary {
		lines = append(lines, "", titleStyle.Render("Summary"), v.summary)
	}
	if v.suggestion != "" {
		lines = append(lines,
			"",
			titleStyle.Render(fmt.Sprintf("Suggested clause · %s", v.suggestedFor)),
			v.suggestion,
		)
	}

	lines = append(lines, "", v.renderClauseForm(), "", v.renderControls())
	if v.errMsg != "" {
		lines = append(lines, "", errorStyle.Render("⚠ "+v.errMsg))
	}
	return strings.Join(lines, "\n")
}

func (v *analysisView) renderRiskAssessment() string {
	r := v.risk
	head := titleStyle.Render("AI risk assessment") + " · " + riskStyle(r.RiskLevel).Render(r.RiskLevel)
	stats := fmt.Sprintf("%d clause(s) analyzed · %s high · %s medium · %s low",
		r.TotalClausesAnalyzed,
		riskHigh.Render(fmt.Sprintf("%d", r.HighRiskClauses)),
		riskMedium.Render(fmt.Sprintf("%d", r.MediumRiskClauses)),
		riskLow.Render(fmt.Sprintf("%d", r.LowRiskClauses)),
	)
	out := []string{head, stats}
	if r.AnalyzedAt != "" {
		out = append(out, detailStyle.Render("Analyzed: "+r.AnalyzedAt))
	}
	return strings.Join(out, "\n")
}

func (v *analysisView) renderFindings() string {
	if len(v.findings) == 0 {
		return detailStyle.Render("No clause findings returned.")
	}
	out := []string{titleStyle.Render("Clause analysis")}
	for _, f := range v.findings {
		present := "missing"
		if f.IsPresent {
			present = "present"
		}
		out = append(out, fmt.Sprintf("%s · %s · %s · %.1f%% confidence",
			f.ClauseName, riskStyle(f.RiskLevel).Render(f.RiskLevel), present, f.ConfidenceScore*100))
		if f.Justification != "" {
			out = append(out, detailStyle.Render("  "+f.Justification))
		}
		if f.CitedText != "" {
			out = append(out, detailStyle.Render("  » "+f.CitedText))
		}
	}
	return strings.Join(out, "\n")
}

func (v *analysisView) renderClauseForm() string {
	out := []string{
		titleStyle.Render("Clause improvement"),
		"Clause: " + v.clauseName.View(),
		"Risky text: " + v.riskyText.View(),
	}
	if v.editing {
		out = append(out, hintStyle.Render("enter=get suggestion  tab=next field  esc=done editing"))
	}
	return strings.Join(out, "\n")
}

func (v *analysisView) renderControls() string {
	if v.deciding {
		return busyStyle.Render("Submitting decision...")
	}
	if v.decisionSubmitted {
		return hintStyle.Render("Decision submitted · r=check status  esc=back to upload")
	}
	verify := "v=verify"
	if v.verifying {
		verify = busyStyle.Render("verifying...")
	}
	summarize := "s=summarize"
	if v.summarizing {
		summarize = busyStyle.Render("summarizing...")
	}
	suggest := "g=get suggestion"
	if v.suggesting {
		suggest = busyStyle.Render("suggesting...")
	}
	return strings.Join([]string{
		hintStyle.Render(fmt.Sprintf("%s  %s  c=edit clause fields  %s", verify, summarize, suggest)),
		hintStyle.Render("y=approve & proceed  n=reject document  r=check status  esc=back to upload"),
	}, "\n")
}
