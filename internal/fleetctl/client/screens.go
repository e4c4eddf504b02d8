package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/piragazh/feasto-signage/api/types/v1alpha1"
)

// ScreenFilter narrows a screen listing
type ScreenFilter struct {
	RestaurantID string
	Wall         string
	Group        string
}

func (f ScreenFilter) query() url.Values {
	q := url.Values{}
	if f.RestaurantID != "" {
		q.Set("restaurant", f.RestaurantID)
	}
	if f.Wall != "" {
		q.Set("wall", f.Wall)
	}
	if f.Group != "" {
		q.Set("group", f.Group)
	}
	return q
}

// ListScreens lists screens matching the filter
func (c *Client) ListScreens(ctx context.Context, filter ScreenFilter) ([]v1alpha1.Screen, error) {
	var list v1alpha1.ScreenList
	if err := c.doRequest(ctx, http.MethodGet, "/screens", filter.query(), nil, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// GetScreen fetches a screen by ID or name
func (c *Client) GetScreen(ctx context.Context, ref string) (*v1alpha1.Screen, error) {
	var s v1alpha1.Screen
	if err := c.doRequest(ctx, http.MethodGet, "/screens/"+ref, nil, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ResolveScreenID turns a screen name or ID into an ID
func (c *Client) ResolveScreenID(ctx context.Context, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	s, err := c.GetScreen(ctx, ref)
	if err != nil {
		return uuid.Nil, err
	}
	return s.ID, nil
}

// CreateScreen registers a screen
func (c *Client) CreateScreen(ctx context.Context, req *v1alpha1.ScreenCreateRequest) (*v1alpha1.Screen, error) {
	var s v1alpha1.Screen
	if err := c.doRequest(ctx, http.MethodPost, "/screens", nil, req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteScreen removes a screen
func (c *Client) DeleteScreen(ctx context.Context, id uuid.UUID) error {
	return c.doRequest(ctx, http.MethodDelete, "/screens/"+id.String(), nil, nil, nil)
}

// SetWall binds, moves or unbinds a screen's wall position. A nil wall unbinds.
func (c *Client) SetWall(ctx context.Context, id uuid.UUID, wall *v1alpha1.WallConfig) (*v1alpha1.Screen, error) {
	var s v1alpha1.Screen
	err := c.doRequest(ctx, http.MethodPut, "/screens/"+id.String()+"/wall", nil, v1alpha1.WallBindingRequest{Wall: wall}, &s)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SetGroups replaces a screen's group labels
func (c *Client) SetGroups(ctx context.Context, id uuid.UUID, groups []string) (*v1alpha1.Screen, error) {
	var s v1alpha1.Screen
	err := c.doRequest(ctx, http.MethodPut, "/screens/"+id.String()+"/groups", nil, v1alpha1.GroupsRequest{Groups: groups}, &s)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ResolveIssue marks one issue resolved
func (c *Client) ResolveIssue(ctx context.Context, id, issueID uuid.UUID) (*v1alpha1.Screen, error) {
	var s v1alpha1.Screen
	err := c.doRequest(ctx, http.MethodPost, "/screens/"+id.String()+"/issues/"+issueID.String()+"/resolve", nil, nil, &s)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ResolveIssues resolves every open issue of a kind ("error" or "warning")
func (c *Client) ResolveIssues(ctx context.Context, id uuid.UUID, kind string) (*v1alpha1.Screen, error) {
	var s v1alpha1.Screen
	q := url.Values{"kind": []string{kind}}
	if err := c.doRequest(ctx, http.MethodPost, "/screens/"+id.String()+"/issues/resolve", q, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ClearResolvedIssues drops resolved issues from a screen
func (c *Client) ClearResolvedIssues(ctx context.Context, id uuid.UUID) (*v1alpha1.Screen, error) {
	var s v1alpha1.Screen
	if err := c.doRequest(ctx, http.MethodDelete, "/screens/"+id.String()+"/issues/resolved", nil, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ScreenTimeline fetches the timeline a screen plays
func (c *Client) ScreenTimeline(ctx context.Context, id uuid.UUID) (*v1alpha1.Timeline, error) {
	var tl v1alpha1.Timeline
	if err := c.doRequest(ctx, http.MethodGet, "/screens/"+id.String()+"/timeline", nil, nil, &tl); err != nil {
		return nil, err
	}
	return &tl, nil
}

// Health fetches the aggregated fleet health
func (c *Client) Health(ctx context.Context, filter ScreenFilter) (*v1alpha1.HealthSummary, error) {
	var sum v1alpha1.HealthSummary
	if err := c.doRequest(ctx, http.MethodGet, "/health", filter.query(), nil, &sum); err != nil {
		return nil, err
	}
	return &sum, nil
}
