package pipeline

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// MeetingDateLayout is the wire format for meeting_date.
const MeetingDateLayout = "2006-01-02T15:04"

// Input is one human submission to the workflow: an approval decision or a
// meeting request, never both in the same call.
type Input interface {
	// inputData is the value marshalled into the input_data field.
	inputData() any
	// Describe names the submission for logs and status lines.
	Describe() string
}

// Decision is the approval checkpoint. Submitting it moves the session
// irreversibly forward or terminates it; it cannot be resubmitted.
type Decision struct {
	Approved bool
}

type decisionData struct {
	Approved bool `json:"approved"`
}

func (d Decision) inputData() any { return decisionData{Approved: d.Approved} }

func (d Decision) Describe() string {
	if d.Approved {
		return "approval"
	}
	return "rejection"
}

// MeetingRequest schedules the follow-up meeting that finalizes the
// workflow.
type MeetingRequest struct {
	MeetingDate       time.Time
	NotificationEmail string
}

type meetingData struct {
	MeetingDate       string `json:"meeting_date"`
	NotificationEmail string `json:"notification_email"`
}

func (m MeetingRequest) inputData() any {
	return meetingData{
		MeetingDate:       m.MeetingDate.Format(MeetingDateLayout),
		NotificationEmail: strings.TrimSpace(m.NotificationEmail),
	}
}

func (m MeetingRequest) Describe() string { return "meeting request" }

// Validate checks the request locally so invalid submissions never reach
// the network. The meeting must be strictly in the future at submission
// time and the notification email syntactically plausible.
func (m MeetingRequest) Validate(now time.Time) error {
	if m.MeetingDate.IsZero() {
		return fmt.Errorf("%w: meeting date is required", ErrValidation)
	}
	if !m.MeetingDate.After(now) {
		return fmt.Errorf("%w: meeting date must be in the future", ErrValidation)
	}
	email := strings.TrimSpace(m.NotificationEmail)
	if email == "" {
		return fmt.Errorf("%w: notification email is required", ErrValidation)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: notification email %q is not a valid address", ErrValidation, email)
	}
	return nil
}

// provideInputBody is the request body for POST /provide-input.
type provideInputBody struct {
	SessionID string `json:"session_id"`
	InputData any    `json:"input_data"`
}
