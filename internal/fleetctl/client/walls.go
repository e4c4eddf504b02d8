package client

import (
	"context"
	"net/http"

	"github.com/piragazh/feasto-signage/api/types/v1alpha1"
)

// ListWalls lists every wall with at least one bound screen
func (c *Client) ListWalls(ctx context.Context) ([]v1alpha1.Wall, error) {
	var list v1alpha1.WallList
	if err := c.doRequest(ctx, http.MethodGet, "/walls", nil, nil, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// GetWall fetches a wall's composition
func (c *Client) GetWall(ctx context.Context, name string) (*v1alpha1.Wall, error) {
	var wl v1alpha1.Wall
	if err := c.doRequest(ctx, http.MethodGet, "/walls/"+name, nil, nil, &wl); err != nil {
		return nil, err
	}
	return &wl, nil
}

// ProvisionWall creates a fully bound wall of new screens
func (c *Client) ProvisionWall(ctx context.Context, req *v1alpha1.WallProvisionRequest) (*v1alpha1.Wall, error) {
	var wl v1alpha1.Wall
	if err := c.doRequest(ctx, http.MethodPost, "/walls", nil, req, &wl); err != nil {
		return nil, err
	}
	return &wl, nil
}

// WallTimeline fetches the resolved playback timeline of a wall
func (c *Client) WallTimeline(ctx context.Context, name string) (*v1alpha1.Timeline, error) {
	var tl v1alpha1.Timeline
	if err := c.doRequest(ctx, http.MethodGet, "/walls/"+name+"/timeline", nil, nil, &tl); err != nil {
		return nil, err
	}
	return &tl, nil
}

// NowPlaying reports what a wall is showing right now
func (c *Client) NowPlaying(ctx context.Context, name string) (*v1alpha1.NowPlaying, error) {
	var np v1alpha1.NowPlaying
	if err := c.doRequest(ctx, http.MethodGet, "/walls/"+name+"/now-playing", nil, nil, &np); err != nil {
		return nil, err
	}
	return &np, nil
}
