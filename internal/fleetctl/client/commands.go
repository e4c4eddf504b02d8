package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/piragazh/feasto-signage/api/types/v1alpha1"
)

// CommandFilter narrows a command log listing
type CommandFilter struct {
	ScreenID uuid.UUID
	Status   string
	Limit    int
}

// IssueCommand sends a command to a screen
func (c *Client) IssueCommand(ctx context.Context, req *v1alpha1.CommandIssueRequest) (*v1alpha1.Command, error) {
	var cmd v1alpha1.Command
	if err := c.doRequest(ctx, http.MethodPost, "/commands", nil, req, &cmd); err != nil {
		return nil, err
	}
	return &cmd, nil
}

// ListCommands lists command log entries, newest first
func (c *Client) ListCommands(ctx context.Context, filter CommandFilter) ([]v1alpha1.Command, error) {
	q := url.Values{}
	if filter.ScreenID != uuid.Nil {
		q.Set("screen", filter.ScreenID.String())
	}
	if filter.Status != "" {
		q.Set("status", filter.Status)
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}

	var list v1alpha1.CommandList
	if err := c.doRequest(ctx, http.MethodGet, "/commands", q, nil, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// GetCommand fetches one command log entry
func (c *Client) GetCommand(ctx context.Context, id uuid.UUID) (*v1alpha1.Command, error) {
	var cmd v1alpha1.Command
	if err := c.doRequest(ctx, http.MethodGet, "/commands/"+id.String(), nil, nil, &cmd); err != nil {
		return nil, err
	}
	return &cmd, nil
}

// SweepCommands times out pending commands older than timeout. A zero
// timeout uses the server default.
func (c *Client) SweepCommands(ctx context.Context, timeout time.Duration) (*v1alpha1.SweepResponse, error) {
	req := v1alpha1.SweepRequest{TimeoutSeconds: int(timeout / time.Second)}
	var res v1alpha1.SweepResponse
	if err := c.doRequest(ctx, http.MethodPost, "/commands/sweep", nil, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
