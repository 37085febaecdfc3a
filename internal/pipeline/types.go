// Package pipeline talks to the document-review server: it carries the wire
// types, the narrow gateway the workflow depends on, and the resolver that
// turns the server's uneven status responses into one canonical outcome.
package pipeline

// Risk tiers as the server spells them.
const (
	RiskLow    = "LOW"
	RiskMedium = "MEDIUM"
	RiskHigh   = "HIGH"
)

// ClauseFinding is one per-clause verification result.
type ClauseFinding struct {
	ClauseName      string  `json:"clause_name"`
	IsPresent       bool    `json:"is_present"`
	RiskLevel       string  `json:"risk_level"`
	ConfidenceScore float64 `json:"confidence_score"`
	Justification   string  `json:"justification"`
	CitedText       string  `json:"cited_text,omitempty"`
}

// RiskAssessment is the aggregate attached to an upload when the server ran
// a first-pass analysis. Informational only; it never drives a transition.
type RiskAssessment struct {
	RiskLevel            string `json:"risk_level"`
	TotalClausesAnalyzed int    `json:"total_clauses_analyzed"`
	HighRiskClauses      int    `json:"high_risk_clauses"`
	MediumRiskClauses    int    `json:"medium_risk_clauses"`
	LowRiskClauses       int    `json:"low_risk_clauses"`
	AnalyzedAt           string `json:"analyzed_at"`
}

// UploadResult is the server's answer to a document submission.
type UploadResult struct {
	SessionID      string          `json:"session_id"`
	RiskAssessment *RiskAssessment `json:"risk_assessment,omitempty"`
}

// User is the identity attached to the bearer credential.
type User struct {
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
}

// DisplayName picks the best label we have for the user.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

// LoginResult is the server's answer to a credential exchange.
type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// StatusResponse is the raw shape returned by provide-input and
// workflow-status. The server does not guarantee which fields are present;
// nothing outside Resolve should branch on these fields directly.
type StatusResponse struct {
	WorkflowComplete bool   `json:"workflow_complete"`
	FinalStatus      string `json:"final_status,omitempty"`
	WaitingForInput  bool   `json:"waiting_for_input,omitempty"`
	InputType        string `json:"input_type,omitempty"`
	Message          string `json:"message,omitempty"`
	Error            string `json:"error,omitempty"`
}
