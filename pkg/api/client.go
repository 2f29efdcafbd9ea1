package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oursky/agent-manager/pkg/agent"
	"github.com/oursky/agent-manager/pkg/shell"
	"github.com/oursky/agent-manager/pkg/utils/httputil"
)

// Client talks to a remote agent manager over the management API.
type Client struct {
	client  *http.Client
	baseURL *url.URL
	authKey string
}

var _ shell.Operations = (*Client)(nil)

func NewClient(baseURL string, authKey string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	return &Client{
		client:  &http.Client{},
		baseURL: u,
		authKey: authKey,
	}, nil
}

func (c *Client) newRequest(ctx context.Context, method string, path string, query url.Values) (*http.Request, error) {
	u := c.baseURL.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	r, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, err
	}
	r.Header.Set("Authorization", "Bearer "+c.authKey)
	return r, nil
}

func (c *Client) doJSON(r *http.Request, result any) error {
	resp, err := c.client.Do(r)
	if err != nil {
		return err
	}
	defer httputil.Drain(resp)

	if err := checkResponse(resp); err != nil {
		return err
	}

	if result == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(result)
}

// checkResponse turns an error response back into an error matching the
// agent error kinds.
func checkResponse(resp *http.Response) error {
	statusErr := httputil.CheckStatus(resp)
	if statusErr == nil {
		return nil
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return statusErr
	}

	var body httputil.ErrorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Kind == "" {
		return statusErr
	}
	return agent.KindError(body.Kind, body.Error)
}

func (c *Client) operate(ctx context.Context, method string, path string, query url.Values) error {
	r, err := c.newRequest(ctx, method, path, query)
	if err != nil {
		return err
	}
	return c.doJSON(r, nil)
}

func agentPath(name string, op string) string {
	p := "api/v1/agents/" + url.PathEscape(name)
	if op != "" {
		p += "/" + op
	}
	return p
}

func (c *Client) StartAgent(ctx context.Context, name string) error {
	return c.operate(ctx, http.MethodPost, agentPath(name, "start"), nil)
}

func (c *Client) StopAgent(ctx context.Context, name string, timeout time.Duration) error {
	var query url.Values
	if timeout > 0 {
		query = url.Values{"timeout": []string{timeout.String()}}
	}
	return c.operate(ctx, http.MethodPost, agentPath(name, "stop"), query)
}

func (c *Client) RunNow(ctx context.Context, name string) error {
	return c.operate(ctx, http.MethodPost, agentPath(name, "run"), nil)
}

func (c *Client) ResetAgent(ctx context.Context, name string) error {
	return c.operate(ctx, http.MethodPost, agentPath(name, "reset"), nil)
}

func (c *Client) RemoveAgent(ctx context.Context, name string) error {
	return c.operate(ctx, http.MethodDelete, agentPath(name, ""), nil)
}

func (c *Client) ListAgentNames(ctx context.Context, includeHidden bool) ([]string, error) {
	var query url.Values
	if includeHidden {
		query = url.Values{"hidden": []string{"true"}}
	}
	r, err := c.newRequest(ctx, http.MethodGet, "api/v1/agents", query)
	if err != nil {
		return nil, err
	}

	var resp agentsResponse
	if err := c.doJSON(r, &resp); err != nil {
		return nil, err
	}
	return resp.Names, nil
}

func (c *Client) DescribeAgents(ctx context.Context) ([]agent.Snapshot, error) {
	r, err := c.newRequest(ctx, http.MethodGet, "api/v1/snapshots", nil)
	if err != nil {
		return nil, err
	}

	var snapshots []agent.Snapshot
	if err := c.doJSON(r, &snapshots); err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (c *Client) DescribeState(ctx context.Context, name string) (string, error) {
	r, err := c.newRequest(ctx, http.MethodGet, agentPath(name, ""), nil)
	if err != nil {
		return "", err
	}

	var resp stateResponse
	if err := c.doJSON(r, &resp); err != nil {
		return "", err
	}
	return resp.State, nil
}

// WatchSnapshots waits up to wait for the next change of agent snapshots.
func (c *Client) WatchSnapshots(ctx context.Context, wait time.Duration) ([]agent.Snapshot, error) {
	r, err := c.newRequest(ctx, http.MethodGet, "api/v1/snapshots/watch", url.Values{"wait": []string{wait.String()}})
	if err != nil {
		return nil, err
	}

	var snapshots []agent.Snapshot
	if err := c.doJSON(r, &snapshots); err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (c *Client) System(ctx context.Context) (*SystemInfo, error) {
	r, err := c.newRequest(ctx, http.MethodGet, "api/v1/system", nil)
	if err != nil {
		return nil, err
	}

	info := &SystemInfo{}
	if err := c.doJSON(r, info); err != nil {
		return nil, err
	}
	return info, nil
}

// IsUnauthorized reports whether err is a rejected API key.
func IsUnauthorized(err error) bool {
	var status httputil.ErrHTTPStatus
	return errors.As(err, &status) && status == http.StatusUnauthorized
}
