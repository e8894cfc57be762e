package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/peerfeedback/internal/domain/model"
)

// httpClient wraps http.Client with the session headers the service expects.
type httpClient struct {
	base   string
	client *http.Client
}

func newHTTPClient(base string, timeout time.Duration) *httpClient {
	return &httpClient{base: base, client: &http.Client{Timeout: timeout}}
}

// do sends body as JSON (when non-nil) and decodes a 2xx answer into out.
// The status code is always returned.
func (c *httpClient) do(ctx context.Context, method, path string, as *model.User, body, out any) (int, error) {
	var rd io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request body: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != nil {
		req.Header.Set("X-User-ID", as.ID)
		req.Header.Set("X-User-Role", string(as.Role))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}

func (c *httpClient) login(ctx context.Context, cred Credential) (model.User, error) {
	var resp struct {
		Success bool       `json:"success"`
		User    model.User `json:"user"`
	}
	_, err := c.do(ctx, http.MethodPost, "/login", nil,
		map[string]string{"username": cred.Username, "password": cred.Password}, &resp)
	if err != nil {
		return model.User{}, err
	}
	if !resp.Success {
		return model.User{}, fmt.Errorf("login %q refused", cred.Username)
	}
	return resp.User, nil
}
