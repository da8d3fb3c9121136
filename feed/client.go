package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"fieldops/fieldtrack/config"
	"fieldops/fieldtrack/models"
)

// ErrNoToken is returned when no bearer token is resolvable; callers skip the
// operation rather than attempt an unauthenticated call.
var ErrNoToken = fmt.Errorf("no auth token available")

// TokenSource supplies the bearer token for outbound calls.
type TokenSource interface {
	Token() (string, bool)
}

// Client wraps the authenticated read operations of the field-operations API.
// Every operation returns a typed snapshot meant to replace a collection
// wholesale; the caller decides whether an error keeps prior state or clears it.
type Client struct {
	logger     *zap.SugaredLogger
	baseURL    string
	httpClient *http.Client
	uploader   *http.Client
	tokens     TokenSource
}

func NewClient(logger *zap.SugaredLogger, cfg *config.APIConfig, tokens TokenSource) (*Client, error) {
	if logger == nil || cfg == nil || tokens == nil {
		return nil, fmt.Errorf("logger, config and token source must be provided")
	}
	return &Client{
		logger:     logger,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		uploader:   &http.Client{Timeout: cfg.UploadTimeout},
		tokens:     tokens,
	}, nil
}

// ActiveUsers fetches the snapshot of currently tracked people.
func (c *Client) ActiveUsers(ctx context.Context) ([]models.UserLocation, error) {
	var resp models.ActiveUsersResponse
	if err := c.getJSON(ctx, "/admin/active-users-locations", nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return []models.UserLocation{}, nil
	}
	return resp.Users, nil
}

// ActiveSessions fetches the snapshot of active tracking sessions.
func (c *Client) ActiveSessions(ctx context.Context) ([]models.SessionRoute, error) {
	var resp models.ActiveSessionsResponse
	if err := c.getJSON(ctx, "/admin/tracking/active-sessions", nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return []models.SessionRoute{}, nil
	}
	return resp.Sessions, nil
}

// UserRouteByDate fetches one user's recorded points for a YYYY-MM-DD date.
func (c *Client) UserRouteByDate(ctx context.Context, userID int64, date string) ([]models.LocationPoint, error) {
	q := url.Values{}
	q.Set("user_id", strconv.FormatInt(userID, 10))
	q.Set("date", date)
	var resp models.UserRouteResponse
	if err := c.getJSON(ctx, "/locations", q, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return []models.LocationPoint{}, nil
	}
	return resp.Data, nil
}

// FormMarkers fetches one user's form submission locations for a date.
func (c *Client) FormMarkers(ctx context.Context, userID int64, date string) ([]models.FormMarker, error) {
	q := url.Values{}
	q.Set("user_id", strconv.FormatInt(userID, 10))
	q.Set("date", date)
	var resp models.FormMarkersResponse
	if err := c.getJSON(ctx, "/admin/forms-locations", q, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return []models.FormMarker{}, nil
	}
	return resp.Forms, nil
}

// SearchUsers queries the user directory for the admin map search box.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	q := url.Values{}
	q.Set("q", query)
	var resp models.UserSearchResponse
	if err := c.getJSON(ctx, "/admin/users/search", q, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return []models.User{}, nil
	}
	return resp.Data, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	token, ok := c.tokens.Token()
	if !ok {
		return ErrNoToken
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, path)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", path, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
