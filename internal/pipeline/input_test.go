package pipeline

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDecisionInputData(t *testing.T) {
	body, err := json.Marshal(provideInputBody{SessionID: "abc123", InputData: Decision{Approved: true}.inputData()})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"session_id":"abc123","input_data":{"approved":true}}`
	if string(body) != want {
		t.Fatalf("wire body = %s, want %s", body, want)
	}
}

func TestMeetingRequestInputData(t *testing.T) {
	when := time.Date(2026, 9, 14, 10, 30, 0, 0, time.Local)
	input := MeetingRequest{MeetingDate: when, NotificationEmail: " legal@example.com "}
	body, err := json.Marshal(provideInputBody{SessionID: "abc123", InputData: input.inputData()})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"session_id":"abc123","input_data":{"meeting_date":"2026-09-14T10:30","notification_email":"legal@example.com"}}`
	if string(body) != want {
		t.Fatalf("wire body = %s, want %s", body, want)
	}
}

func TestMeetingRequestValidate(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.Local)
	future := now.Add(48 * time.Hour)

	tests := []struct {
		name    string
		request MeetingRequest
		wantErr bool
	}{
		{"valid", MeetingRequest{MeetingDate: future, NotificationEmail: "legal@example.com"}, false},
		{"zero date", MeetingRequest{NotificationEmail: "legal@example.com"}, true},
		{"past date", MeetingRequest{MeetingDate: now.Add(-time.Hour), NotificationEmail: "legal@example.com"}, true},
		{"exactly now", MeetingRequest{MeetingDate: now, NotificationEmail: "legal@example.com"}, true},
		{"missing email", MeetingRequest{MeetingDate: future}, true},
		{"bad email", MeetingRequest{MeetingDate: future, NotificationEmail: "not-an-address"}, true},
		{"email with display name", MeetingRequest{MeetingDate: future, NotificationEmail: "Legal <legal@example.com>"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate(now)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("expected ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected valid request, got %v", err)
			}
		})
	}
}

func TestInputDescribe(t *testing.T) {
	if got := (Decision{Approved: true}).Describe(); got != "approval" {
		t.Fatalf("approval describe = %q", got)
	}
	if got := (Decision{Approved: false}).Describe(); got != "rejection" {
		t.Fatalf("rejection describe = %q", got)
	}
	if got := (MeetingRequest{}).Describe(); got != "meeting request" {
		t.Fatalf("meeting describe = %q", got)
	}
}
