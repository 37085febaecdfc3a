package pipeline

import "strings"

// FinalStatusSuccess is the terminal status the server reports for a
// workflow that finished cleanly. Anything else alongside
// workflow_complete=true is a failure.
const FinalStatusSuccess = "SUCCESS"

// InputTypeMeetingDate is the next-input kind that routes to the meeting
// screen.
const InputTypeMeetingDate = "meeting_date"

// OutcomeKind is the canonical interpretation of a status response.
type OutcomeKind int

const (
	// OutcomeUnrecognized is the fallback for shapes we cannot place. It is
	// surfaced as "process continuing", never as an error.
	OutcomeUnrecognized OutcomeKind = iota
	// OutcomeAwaitingInput means the workflow wants a named next input.
	OutcomeAwaitingInput
	// OutcomeCompletedSuccess means the workflow finished cleanly.
	OutcomeCompletedSuccess
	// OutcomeCompletedFailure means the workflow finished with a problem.
	OutcomeCompletedFailure
	// OutcomeTerminatedByUser means the user rejected the document.
	OutcomeTerminatedByUser
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAwaitingInput:
		return "awaiting input"
	case OutcomeCompletedSuccess:
		return "completed"
	case OutcomeCompletedFailure:
		return "failed"
	case OutcomeTerminatedByUser:
		return "terminated by user"
	default:
		return "unrecognized"
	}
}

// Outcome is the decoded workflow status.
type Outcome struct {
	Kind OutcomeKind

	// InputKind names the expected next input when Kind is
	// OutcomeAwaitingInput.
	InputKind string

	// Reason carries the failure message when Kind is
	// OutcomeCompletedFailure.
	Reason string

	// Raw keeps the undecoded response for logging and for the
	// unrecognized path.
	Raw StatusResponse
}

// Resolve decodes a raw status response into exactly one outcome. It is the
// single place that is allowed to branch on the response fields; every
// screen funnels provide-input and workflow-status responses through it.
//
// The rules are ordered and the first match wins:
//
//  1. finished with a success status            -> CompletedSuccess
//  2. finished with anything else               -> CompletedFailure
//  3. not finished, next input named            -> AwaitingInput
//  4. the submission was a rejection            -> TerminatedByUser
//  5. everything else                           -> Unrecognized
//
// Rule 4 exists because rejection is terminal by client policy: the server
// frequently echoes nothing useful back for a rejected document, and the
// client must still stop. submitted is nil for plain status queries.
func Resolve(raw StatusResponse, submitted Input) Outcome {
	inputType := strings.TrimSpace(raw.InputType)
	switch {
	case raw.WorkflowComplete && raw.FinalStatus == FinalStatusSuccess:
		return Outcome{Kind: OutcomeCompletedSuccess, Raw: raw}
	case raw.WorkflowComplete:
		return Outcome{Kind: OutcomeCompletedFailure, Reason: failureReason(raw), Raw: raw}
	case inputType != "":
		return Outcome{Kind: OutcomeAwaitingInput, InputKind: inputType, Raw: raw}
	case isRejection(submitted):
		return Outcome{Kind: OutcomeTerminatedByUser, Raw: raw}
	default:
		return Outcome{Kind: OutcomeUnrecognized, Raw: raw}
	}
}

func isRejection(submitted Input) bool {
	decision, ok := submitted.(Decision)
	return ok && !decision.Approved
}

func failureReason(raw StatusResponse) string {
	if msg := strings.TrimSpace(raw.Message); msg != "" {
		return msg
	}
	if msg := strings.TrimSpace(raw.Error); msg != "" {
		return msg
	}
	return "Process completed with issues."
}

// ContinuingMessage is what the user sees for an unrecognized response.
func (o Outcome) ContinuingMessage() string {
	if msg := strings.TrimSpace(o.Raw.Message); msg != "" {
		return msg
	}
	return "Process continuing..."
}
