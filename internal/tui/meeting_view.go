package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sableworks/redline/internal/pipeline"
	"github.com/sableworks/redline/internal/session"
)

// meetingReturnDelay is how long the confirmation stays on screen before the
// app returns to upload on its own.
const meetingReturnDelay = 3 * time.Second

// meetingView collects the follow-up meeting details the workflow asked for.
// Both fields are validated locally; a request that would fail validation
// never reaches the network.
type meetingView struct {
	app   *App
	epoch string
	sess  session.Session

	date  textinput.Model
	email textinput.Model
	focus int

	submitting bool
	scheduled  bool
	confirmMsg string
	errMsg     string

	// now is swapped out in tests to pin the validation clock.
	now func() time.Time
}

type meetingFinishedMsg struct {
	epoch   string
	request pipeline.MeetingRequest
	raw     pipeline.StatusResponse
	err     error
}

// meetingDoneMsg fires after the confirmation delay and hands the app back
// to the upload screen.
type meetingDoneMsg struct {
	epoch string
}

func newMeetingView(app *App, sess session.Session) *meetingView {
	date := textinput.New()
	date.Placeholder = pipeline.MeetingDateLayout
	date.CharLimit = len(pipeline.MeetingDateLayout)
	date.Focus()
	email := textinput.New()
	email.Placeholder = "notification email"
	email.CharLimit = 254
	email.SetValue(app.config.DefaultNotificationEmail())
	return &meetingView{
		app:   app,
		epoch: newEpoch(),
		sess:  sess,
		date:  date,
		email: email,
		now:   time.Now,
	}
}

func (v *meetingView) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case meetingFinishedMsg:
		if m.epoch != v.epoch {
			return nil
		}
		return v.handleFinished(m)

	case meetingDoneMsg:
		if m.epoch != v.epoch {
			return nil
		}
		v.app.showUpload("Ready for the next contract.")
		return nil

	case tea.KeyMsg:
		if v.scheduled {
			// Confirmation screen; the timer will move us along.
			return nil
		}
		switch m.String() {
		case "tab", "shift+tab", "up", "down":
			v.cycleFocus()
			return nil
		case "enter":
			return v.submit()
		case "esc":
			v.app.logbook.Info("Meeting scheduling abandoned for session %s", v.sess.ID())
			v.app.showUpload("Returned to upload.")
			return nil
		}
		return v.updateInputs(msg)
	}
	return nil
}

func (v *meetingView) cycleFocus() {
	v.focus = (v.focus + 1) % 2
	if v.focus == 0 {
		v.date.Focus()
		v.email.Blur()
	} else {
		v.date.Blur()
		v.email.Focus()
	}
}

func (v *meetingView) updateInputs(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	v.date, cmd = v.date.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	v.email, cmd = v.email.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// buildRequest parses and validates the form. A nil error means the request
// is safe to send.
func (v *meetingView) buildRequest() (pipeline.MeetingRequest, error) {
	raw := strings.TrimSpace(v.date.Value())
	if raw == "" {
		return pipeline.MeetingRequest{}, fmt.Errorf("%w: meeting date is required", pipeline.ErrValidation)
	}
	when, err := time.ParseInLocation(pipeline.MeetingDateLayout, raw, time.Local)
	if err != nil {
		return pipeline.MeetingRequest{}, fmt.Errorf("%w: meeting date must look like %s", pipeline.ErrValidation, pipeline.MeetingDateLayout)
	}
	req := pipeline.MeetingRequest{
		MeetingDate:       when,
		NotificationEmail: strings.TrimSpace(v.email.Value()),
	}
	if err := req.Validate(v.now()); err != nil {
		return pipeline.MeetingRequest{}, err
	}
	return req, nil
}

func (v *meetingView) submit() tea.Cmd {
	if v.submitting {
		return nil
	}
	req, err := v.buildRequest()
	if err != nil {
		v.errMsg = pipeline.UserMessage(err, "Enter a future date as "+pipeline.MeetingDateLayout+" and a valid email")
		return nil
	}
	v.submitting = true
	v.errMsg = ""
	v.app.setStatus("Scheduling meeting...")
	gw := v.app.gateway
	epoch, id := v.epoch, v.sess.ID()
	return func() tea.Msg {
		raw, err := gw.ProvideInput(context.Background(), id, req)
		return meetingFinishedMsg{epoch: epoch, request: req, raw: raw, err: err}
	}
}

func (v *meetingView) handleFinished(msg meetingFinishedMsg) tea.Cmd {
	v.submitting = false
	if msg.err != nil {
		if isUnauthorized(msg.err) {
			v.app.forceLogin()
			return nil
		}
		// Form state survives so the user can retry as-is.
		v.errMsg = pipeline.UserMessage(msg.err, "Scheduling failed")
		v.app.logbook.Warn("Meeting scheduling failed: %v", msg.err)
		return nil
	}

	outcome := pipeline.Resolve(msg.raw, msg.request)
	v.app.logbook.Info("Session %s · meeting request resolved to %s", v.sess.ID(), outcome.Kind)
	switch outcome.Kind {
	case pipeline.OutcomeCompletedSuccess:
		v.scheduled = true
		v.confirmMsg = "Meeting scheduled for " + msg.request.MeetingDate.Format("Mon, 02 Jan 2006 15:04") +
			". A notification will be sent to " + msg.request.NotificationEmail + "."
		v.app.setStatus("Meeting scheduled")
		epoch := v.epoch
		return tea.Tick(meetingReturnDelay, func(time.Time) tea.Msg {
			return meetingDoneMsg{epoch: epoch}
		})
	case pipeline.OutcomeCompletedFailure:
		v.errMsg = outcome.Reason
	case pipeline.OutcomeAwaitingInput:
		// The server wants input again; treat it as a rejected request.
		v.errMsg = "The server did not accept the meeting request. Please try again."
	default:
		v.errMsg = outcome.ContinuingMessage()
	}
	return nil
}

func (v *meetingView) View() string {
	if v.scheduled {
		return strings.Join([]string{
			titleStyle.Render("Meeting scheduled"),
			"",
			successStyle.Render("✓ " + v.confirmMsg),
			"",
			hintStyle.Render("Returning to upload..."),
		}, "\n")
	}

	lines := []string{
		titleStyle.Render("Schedule the follow-up meeting"),
		hintStyle.Render("File: " + v.sess.Filename() + " · session " + v.sess.ID()),
		"",
		"Date (" + pipeline.MeetingDateLayout + "): " + v.date.View(),
		"Notification email: " + v.email.View(),
		"",
	}
	if v.submitting {
		lines = append(lines, busyStyle.Render("Scheduling meeting..."))
	} else {
		lines = append(lines, hintStyle.Render("enter=schedule  tab=next field  esc=back to upload"))
	}
	if v.errMsg != "" {
		lines = append(lines, "", errorStyle.Render("⚠ "+v.errMsg))
	}
	return strings.Join(lines, "\n")
}
