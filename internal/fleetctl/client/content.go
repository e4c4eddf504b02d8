package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/piragazh/feasto-signage/api/types/v1alpha1"
)

// ContentFilter selects items targeting one wall or one screen
type ContentFilter struct {
	Wall     string
	ScreenID uuid.UUID
}

// ListContent lists content items
func (c *Client) ListContent(ctx context.Context, filter ContentFilter) ([]v1alpha1.ContentItem, error) {
	q := url.Values{}
	if filter.Wall != "" {
		q.Set("wall", filter.Wall)
	}
	if filter.ScreenID != uuid.Nil {
		q.Set("screen", filter.ScreenID.String())
	}

	var list v1alpha1.ContentItemList
	if err := c.doRequest(ctx, http.MethodGet, "/content", q, nil, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// GetContent fetches a content item
func (c *Client) GetContent(ctx context.Context, id uuid.UUID) (*v1alpha1.ContentItem, error) {
	var item v1alpha1.ContentItem
	if err := c.doRequest(ctx, http.MethodGet, "/content/"+id.String(), nil, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateContent adds a content item
func (c *Client) CreateContent(ctx context.Context, item *v1alpha1.ContentItem) (*v1alpha1.ContentItem, error) {
	var out v1alpha1.ContentItem
	if err := c.doRequest(ctx, http.MethodPost, "/content", nil, item, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateContent replaces a content item. item.Version guards the write when set.
func (c *Client) UpdateContent(ctx context.Context, item *v1alpha1.ContentItem) (*v1alpha1.ContentItem, error) {
	var out v1alpha1.ContentItem
	if err := c.doRequest(ctx, http.MethodPut, "/content/"+item.ID.String(), nil, item, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteContent removes a content item
func (c *Client) DeleteContent(ctx context.Context, id uuid.UUID) error {
	return c.doRequest(ctx, http.MethodDelete, "/content/"+id.String(), nil, nil, nil)
}

// ListPlaylists lists playlists, optionally for one wall
func (c *Client) ListPlaylists(ctx context.Context, wall string) ([]v1alpha1.Playlist, error) {
	q := url.Values{}
	if wall != "" {
		q.Set("wall", wall)
	}
	var list v1alpha1.PlaylistList
	if err := c.doRequest(ctx, http.MethodGet, "/playlists", q, nil, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// GetPlaylist fetches a playlist
func (c *Client) GetPlaylist(ctx context.Context, id uuid.UUID) (*v1alpha1.Playlist, error) {
	var p v1alpha1.Playlist
	if err := c.doRequest(ctx, http.MethodGet, "/playlists/"+id.String(), nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePlaylist adds a playlist
func (c *Client) CreatePlaylist(ctx context.Context, p *v1alpha1.Playlist) (*v1alpha1.Playlist, error) {
	var out v1alpha1.Playlist
	if err := c.doRequest(ctx, http.MethodPost, "/playlists", nil, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePlaylist removes a playlist
func (c *Client) DeletePlaylist(ctx context.Context, id uuid.UUID) error {
	return c.doRequest(ctx, http.MethodDelete, "/playlists/"+id.String(), nil, nil, nil)
}

// CheckSchedule asks the server whether a schedule admits an instant
func (c *Client) CheckSchedule(ctx context.Context, req *v1alpha1.ScheduleCheckRequest) (*v1alpha1.ScheduleCheck, error) {
	var out v1alpha1.ScheduleCheck
	if err := c.doRequest(ctx, http.MethodPost, "/schedule/check", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
