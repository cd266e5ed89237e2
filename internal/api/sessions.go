package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// ErrSessionNotFound is returned when an invite code does not resolve.
var ErrSessionNotFound = errors.New("session not found")

// SessionInfo is the directory's record of a game session.
type SessionInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Code   string `json:"code"`
	WSURL  string `json:"ws_url"`
	DMName string `json:"dm_name,omitempty"`
	Status string `json:"status,omitempty"` // "open", "in_progress", "ended"
}

// ResolveSession looks up a session by its invite code.
func (c *Client) ResolveSession(ctx context.Context, code string) (*SessionInfo, error) {
	if code == "" {
		return nil, errors.New("invite code is empty")
	}

	query := url.Values{}
	query.Set("code", code)

	var resp struct {
		Session *SessionInfo `json:"session"`
	}
	if err := c.get(ctx, "/sessions/resolve", query, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
			return nil, fmt.Errorf("resolve %q: %w", code, ErrSessionNotFound)
		}
		return nil, err
	}
	if resp.Session == nil {
		return nil, fmt.Errorf("resolve %q: empty response", code)
	}

	return resp.Session, nil
}

// GetSession fetches a session directly by id.
func (c *Client) GetSession(ctx context.Context, id string) (*SessionInfo, error) {
	var resp struct {
		Session *SessionInfo `json:"session"`
	}
	if err := c.get(ctx, "/sessions/"+url.PathEscape(id), nil, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
			return nil, fmt.Errorf("get session %q: %w", id, ErrSessionNotFound)
		}
		return nil, err
	}
	if resp.Session == nil {
		return nil, fmt.Errorf("get session %q: empty response", id)
	}

	return resp.Session, nil
}
