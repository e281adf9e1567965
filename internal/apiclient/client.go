// Package apiclient talks to the election service HTTP API on behalf of the admin
// review board, the voter portal and the votectl CLI. It never retries.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"election-service/internal/models"
)

const (
	registerPath    = "/api/accounts/register/"
	loginPath       = "/api/accounts/login/"
	refreshPath     = "/api/accounts/refresh/"
	logoutPath      = "/api/accounts/logout/"
	voterStatusPath = "/api/accounts/voter/status/"
	votersPath      = "/api/admin/voters/"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// APIClient is safe for concurrent use.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a client for baseURL. A nil httpClient gets a client without a timeout;
// callers bound requests through ctx.
func New(baseURL string, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// RegistrationForm holds the raw form values. Age is the text the user typed.
type RegistrationForm struct {
	Username string
	Email    string
	Password string
	Age      string
	Gender   string
	Region   string
}

type registrationBody struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Age      *int   `json:"age"`
	Gender   string `json:"gender"`
	Region   string `json:"region"`
}

// RegistrationResult is the 201 body.
type RegistrationResult struct {
	Message string        `json:"message"`
	Voter   *models.Voter `json:"voter"`
}

func (f RegistrationForm) body() registrationBody {
	b := registrationBody{
		Username: f.Username,
		Email:    f.Email,
		Password: f.Password,
		Gender:   f.Gender,
		Region:   f.Region,
	}
	// empty or non-numeric age goes out as null and the server reports it
	if age, err := strconv.Atoi(strings.TrimSpace(f.Age)); err == nil {
		b.Age = &age
	}
	return b
}

// Register submits a self-registration. Field problems come back as *ValidationError.
func (c *APIClient) Register(ctx context.Context, form RegistrationForm) (*RegistrationResult, error) {
	var result RegistrationResult
	if err := c.do(ctx, http.MethodPost, registerPath, "", form.body(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Login exchanges credentials for a token pair. A 401 becomes ErrInvalidCredentials.
func (c *APIClient) Login(ctx context.Context, username, password string) (*models.TokenPair, error) {
	var pair models.TokenPair
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, loginPath, "", body, &pair); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return &pair, nil
}

// Refresh mints a new access token from a refresh token.
func (c *APIClient) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrNotLoggedIn
	}
	var pair models.TokenPair
	if err := c.do(ctx, http.MethodPost, refreshPath, "", map[string]string{"refresh": refreshToken}, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

// Logout revokes the access token and, when given, the refresh token.
func (c *APIClient) Logout(ctx context.Context, token, refreshToken string) error {
	if token == "" {
		return ErrNotLoggedIn
	}
	var body interface{}
	if refreshToken != "" {
		body = map[string]string{"refresh": refreshToken}
	}
	return c.do(ctx, http.MethodPost, logoutPath, token, body, nil)
}

// VoterStatus returns the logged-in voter's own status.
func (c *APIClient) VoterStatus(ctx context.Context, token string) (models.VerificationStatus, error) {
	if token == "" {
		return models.StatusPending, ErrNotLoggedIn
	}
	var resp models.StatusResponse
	if err := c.do(ctx, http.MethodGet, voterStatusPath, token, nil, &resp); err != nil {
		return models.StatusPending, err
	}
	return resp.IsVerified, nil
}

// ListVoters fetches every voter visible to the admin.
func (c *APIClient) ListVoters(ctx context.Context, token string) ([]*models.Voter, error) {
	if token == "" {
		return nil, ErrNotLoggedIn
	}
	var voters []*models.Voter
	if err := c.do(ctx, http.MethodGet, votersPath, token, nil, &voters); err != nil {
		return nil, err
	}
	for i, v := range voters {
		if v == nil || v.ID == "" {
			return nil, fmt.Errorf("%w: voter list entry %d has no id", ErrMalformedResponse, i)
		}
	}
	return voters, nil
}

// SetVerification records the admin decision and returns the server's copy of the voter.
func (c *APIClient) SetVerification(ctx context.Context, voterID string, decision bool, token string) (*models.Voter, error) {
	if token == "" {
		return nil, ErrNotLoggedIn
	}
	path := votersPath + url.PathEscape(voterID) + "/verify/"
	var voter *models.Voter
	if err := c.do(ctx, http.MethodPatch, path, token, map[string]bool{"is_verified": decision}, &voter); err != nil {
		return nil, err
	}
	if voter == nil || voter.ID == "" {
		return nil, fmt.Errorf("%w: verification reply carries no voter", ErrMalformedResponse)
	}
	return voter, nil
}

func (c *APIClient) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: "decode " + path, Err: err}
	}
	return nil
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, errorMessage(raw, resp.StatusCode))
	case http.StatusBadRequest:
		if fields, ok := fieldErrors(raw); ok {
			return &ValidationError{Fields: fields}
		}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw, resp.StatusCode)}
}

func errorMessage(raw []byte, code int) string {
	var body errorBody
	if json.Unmarshal(raw, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return http.StatusText(code)
}

// fieldErrors reads a {field: [messages]} map. Single-string values are accepted as
// one message; the {error, message} envelope is not a field map.
func fieldErrors(raw []byte) (map[string][]string, bool) {
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil || len(generic) == 0 {
		return nil, false
	}
	if _, ok := generic["error"]; ok {
		return nil, false
	}

	fields := make(map[string][]string, len(generic))
	for name, value := range generic {
		var list []string
		if err := json.Unmarshal(value, &list); err == nil {
			fields[name] = list
			continue
		}
		var single string
		if err := json.Unmarshal(value, &single); err == nil {
			fields[name] = []string{single}
			continue
		}
		return nil, false
	}
	return fields, true
}
