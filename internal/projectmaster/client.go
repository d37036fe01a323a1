// Package projectmaster talks to the project-master subsystem. The engine
// uses it two ways: fetching a master after a change-feed update so embedded
// snapshots can be refreshed, and resolving-or-creating a master when an
// assignment references a not-yet-registered project.
package projectmaster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"dandori/sync/internal/assignment"
)

// NewMaster is the input for transparent master creation.
type NewMaster struct {
	Title            string `json:"title"`
	CustomerName     string `json:"customerName"`
	ConstructionType string `json:"constructionType"`
	Location         string `json:"location"`
	Remarks          string `json:"remarks"`
}

// Client is the HTTP client for the project-master API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the given base URL.
func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: 15 * time.Second}}
}

// NewWithHTTPClient creates a client using a caller-supplied http.Client.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: baseURL, http: hc}
}

type masterDTO struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	CustomerName     string `json:"customerName"`
	ConstructionType string `json:"constructionType"`
	Location         string `json:"location"`
	Remarks          string `json:"remarks"`
}

func (d masterDTO) toSnapshot() assignment.ProjectMasterSnapshot {
	return assignment.ProjectMasterSnapshot{
		ID:               d.ID,
		Title:            d.Title,
		CustomerName:     d.CustomerName,
		ConstructionType: d.ConstructionType,
		Location:         d.Location,
		Remarks:          d.Remarks,
	}
}

// Get fetches one project master by id.
func (c *Client) Get(ctx context.Context, id string) (assignment.ProjectMasterSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/project-masters/"+url.PathEscape(id), nil)
	if err != nil {
		return assignment.ProjectMasterSnapshot{}, fmt.Errorf("get project master %s: %w", id, err)
	}
	var dto masterDTO
	if err := c.do(req, &dto); err != nil {
		return assignment.ProjectMasterSnapshot{}, fmt.Errorf("get project master %s: %w", id, err)
	}
	return dto.toSnapshot(), nil
}

// ResolveOrCreate returns the master matching input.Title, creating it when
// no match exists. Used by assignment create for not-yet-registered projects;
// the create here is deliberately outside the assignment's rollback scope.
func (c *Client) ResolveOrCreate(ctx context.Context, input NewMaster) (assignment.ProjectMasterSnapshot, error) {
	q := url.Values{}
	q.Set("title", input.Title)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/project-masters?"+q.Encode(), nil)
	if err != nil {
		return assignment.ProjectMasterSnapshot{}, fmt.Errorf("resolve project master: %w", err)
	}
	var matches []masterDTO
	if err := c.do(req, &matches); err != nil {
		return assignment.ProjectMasterSnapshot{}, fmt.Errorf("resolve project master: %w", err)
	}
	if len(matches) > 0 {
		return matches[0].toSnapshot(), nil
	}

	body, err := json.Marshal(input)
	if err != nil {
		return assignment.ProjectMasterSnapshot{}, fmt.Errorf("create project master: encode: %w", err)
	}
	req, err = http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/project-masters", bytes.NewReader(body))
	if err != nil {
		return assignment.ProjectMasterSnapshot{}, fmt.Errorf("create project master: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	var created masterDTO
	if err := c.do(req, &created); err != nil {
		return assignment.ProjectMasterSnapshot{}, fmt.Errorf("create project master: %w", err)
	}
	return created.toSnapshot(), nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
