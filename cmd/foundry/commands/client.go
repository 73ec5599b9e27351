package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Danish137/cerina-protocol-foundry/pkg/blackboard"
)

// apiClient is a thin wrapper over the foundryd session control API.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient() *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(serverAddr, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// apiError carries the server's status code and error message so commands can
// distinguish not-found from conflict from outage.
type apiError struct {
	StatusCode int
	Message    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

type createSessionResponse struct {
	SessionID string            `json:"session_id"`
	Status    blackboard.Status `json:"status"`
}

type sessionResponse struct {
	Session *blackboard.Session `json:"session"`
}

type listSessionsResponse struct {
	Sessions []*blackboard.Session `json:"sessions"`
}

func (c *apiClient) createSession(ctx context.Context, intent string) (*createSessionResponse, error) {
	body, _ := json.Marshal(map[string]string{"intent": intent})

	var resp createSessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/sessions", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *apiClient) getSession(ctx context.Context, id string) (*blackboard.Session, error) {
	var resp sessionResponse
	if err := c.do(ctx, http.MethodGet, "/api/sessions/"+id, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Session, nil
}

func (c *apiClient) listSessions(ctx context.Context, limit int) ([]*blackboard.Session, error) {
	var resp listSessionsResponse
	path := fmt.Sprintf("/api/sessions?limit=%d", limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

func (c *apiClient) approve(ctx context.Context, id, editedContent string) (*blackboard.Session, error) {
	var body []byte
	if editedContent != "" {
		body, _ = json.Marshal(map[string]string{"approved_content": editedContent})
	}

	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/sessions/"+id+"/approve", body, &resp); err != nil {
		return nil, err
	}
	return resp.Session, nil
}

func (c *apiClient) halt(ctx context.Context, id string) (*blackboard.Session, error) {
	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/sessions/"+id+"/halt", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Session, nil
}

// stream opens the session's SSE endpoint. The caller owns the response body
// and must close it; cancelling ctx tears the stream down.
func (c *apiClient) stream(ctx context.Context, id string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/sessions/"+id+"/stream", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	// No client timeout: the stream stays open until the workflow completes.
	streamClient := &http.Client{}
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.baseURL, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, readAPIError(resp)
	}

	return resp.Body, nil
}

func (c *apiClient) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readAPIError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode server response: %w", err)
		}
	}
	return nil
}

func readAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}

	return &apiError{StatusCode: resp.StatusCode, Message: msg}
}
