package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Gateway is the narrow server surface the workflow depends on. Every
// operation is a single network call with no built-in retry; retrying is a
// user-initiated re-invocation.
type Gateway interface {
	Login(ctx context.Context, username, password string) (LoginResult, error)
	Profile(ctx context.Context) (User, error)
	SubmitDocument(ctx context.Context, filename string, content []byte) (UploadResult, error)
	VerifyContract(ctx context.Context, sessionID string) ([]ClauseFinding, error)
	SummarizeContract(ctx context.Context, sessionID string) (string, error)
	SuggestClause(ctx context.Context, sessionID, clauseName, riskyText string) (string, error)
	ProvideInput(ctx context.Context, sessionID string, input Input) (StatusResponse, error)
	WorkflowStatus(ctx context.Context, sessionID string) (StatusResponse, error)
}

// TokenSource supplies the bearer credential attached to every request
// except login.
type TokenSource interface {
	Token() string
}

// Client implements Gateway over plain HTTP.
type Client struct {
	baseURL string
	tokens  TokenSource
	client  *http.Client
}

// NewClient creates a gateway client for the given base URL. The timeout is
// a transport-level backstop, not a workflow retry mechanism; a stalled
// request keeps its trigger busy until it settles.
func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return LoginResult{}, err
	}
	var result LoginResult
	if err := c.postJSON(ctx, "/auth/login", body, &result); err != nil {
		return LoginResult{}, err
	}
	if strings.TrimSpace(result.Token) == "" {
		return LoginResult{}, fmt.Errorf("pipeline: login response carried no token")
	}
	return result, nil
}

func (c *Client) Profile(ctx context.Context) (User, error) {
	var result struct {
		User User `json:"user"`
	}
	if err := c.getJSON(ctx, "/auth/profile", nil, &result); err != nil {
		return User{}, err
	}
	return result.User, nil
}

func (c *Client) SubmitDocument(ctx context.Context, filename string, content []byte) (UploadResult, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return UploadResult{}, err
	}
	if _, err := part.Write(content); err != nil {
		return UploadResult{}, err
	}
	if err := form.Close(); err != nil {
		return UploadResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &buf)
	if err != nil {
		return UploadResult{}, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var result UploadResult
	if err := c.do(req, &result); err != nil {
		return UploadResult{}, err
	}
	if strings.TrimSpace(result.SessionID) == "" {
		return UploadResult{}, fmt.Errorf("pipeline: upload response carried no session_id")
	}
	return result, nil
}

func (c *Client) VerifyContract(ctx context.Context, sessionID string) ([]ClauseFinding, error) {
	var result struct {
		Analysis []ClauseFinding `json:"analysis"`
	}
	query := url.Values{"session_id": {sessionID}}
	if err := c.getJSON(ctx, "/contract-verify", query, &result); err != nil {
		return nil, err
	}
	return result.Analysis, nil
}

func (c *Client) SummarizeContract(ctx context.Context, sessionID string) (string, error) {
	var result struct {
		Summary string `json:"summary"`
	}
	query := url.Values{"session_id": {sessionID}}
	if err := c.getJSON(ctx, "/contract-summarize", query, &result); err != nil {
		return "", err
	}
	return result.Summary, nil
}

func (c *Client) SuggestClause(ctx context.Context, sessionID, clauseName, riskyText string) (string, error) {
	clauseName = strings.TrimSpace(clauseName)
	if clauseName == "" {
		return "", fmt.Errorf("%w: clause name is required", ErrValidation)
	}
	var result struct {
		Suggestion string `json:"suggestion"`
	}
	query := url.Values{
		"session_id":  {sessionID},
		"clause_name": {clauseName},
		"risky_text":  {riskyText},
	}
	if err := c.getJSON(ctx, "/contract-suggest-clause", query, &result); err != nil {
		return "", err
	}
	return result.Suggestion, nil
}

func (c *Client) ProvideInput(ctx context.Context, sessionID string, input Input) (StatusResponse, error) {
	if input == nil {
		return StatusResponse{}, fmt.Errorf("%w: nothing to submit", ErrValidation)
	}
	body, err := json.Marshal(provideInputBody{SessionID: sessionID, InputData: input.inputData()})
	if err != nil {
		return StatusResponse{}, err
	}
	var result StatusResponse
	if err := c.postJSON(ctx, "/provide-input", body, &result); err != nil {
		return StatusResponse{}, err
	}
	return result, nil
}

func (c *Client) WorkflowStatus(ctx context.Context, sessionID string) (StatusResponse, error) {
	var result StatusResponse
	path := "/workflow-status/" + url.PathEscape(sessionID)
	if err := c.getJSON(ctx, path, nil, &result); err != nil {
		return StatusResponse{}, err
	}
	return result, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// do executes one request, attaching the bearer credential unless the call
// is the login itself, and maps the response onto the error taxonomy.
func (c *Client) do(req *http.Request, out any) error {
	if req.URL.Path != "/auth/login" && c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ServerError{StatusCode: resp.StatusCode, Message: serverMessage(body)}
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	// A 2xx body that fails to decode is a malformed response; callers that
	// went through Resolve never see this because StatusResponse decodes
	// any JSON object.
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("pipeline: decode response: %w", err)
	}
	return nil
}

func serverMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Error != "" {
		return payload.Error
	}
	return payload.Message
}
