// Package api is the HTTP client for the assignment backend. The backend is
// authoritative; this client only shuttles records, it holds no state.
package api

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

// Client talks to the assignment REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the given base URL, e.g. "https://api.example.com".
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// NewWithHTTPClient creates a client using a caller-supplied http.Client,
// used by tests and by callers that need custom transports.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: baseURL, http: hc}
}

// BatchItem is one entry of a batch update request.
type BatchItem struct {
	ID    string
	Patch assignment.Patch
}

// ListAssignments fetches every assignment whose date falls in [start, end].
// An empty employeeID fetches all employees.
func (c *Client) ListAssignments(ctx context.Context, start, end time.Time, employeeID string) ([]assignment.Assignment, error) {
	q := url.Values{}
	q.Set("startDate", start.UTC().Format(dateLayout))
	q.Set("endDate", end.UTC().Format(dateLayout))
	if employeeID != "" {
		q.Set("assignedEmployeeId", employeeID)
	}
	var dtos []assignmentDTO
	if err := c.do(ctx, http.MethodGet, "/assignments?"+q.Encode(), nil, &dtos); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	out := make([]assignment.Assignment, 0, len(dtos))
	for _, d := range dtos {
		a, err := d.toDomain()
		if err != nil {
			return nil, fmt.Errorf("list assignments: decode %s: %w", d.ID, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// GetAssignment fetches a single record with its embedded project-master
// snapshot.
func (c *Client) GetAssignment(ctx context.Context, id string) (assignment.Assignment, error) {
	var dto assignmentDTO
	if err := c.do(ctx, http.MethodGet, "/assignments/"+url.PathEscape(id), nil, &dto); err != nil {
		return assignment.Assignment{}, fmt.Errorf("get assignment %s: %w", id, err)
	}
	a, err := dto.toDomain()
	if err != nil {
		return assignment.Assignment{}, fmt.Errorf("get assignment %s: decode: %w", id, err)
	}
	return a, nil
}

// CreateAssignment creates a record and returns the server-confirmed copy
// with its assigned id and timestamps.
func (c *Client) CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	var dto assignmentDTO
	if err := c.do(ctx, http.MethodPost, "/assignments", toDTO(a), &dto); err != nil {
		return assignment.Assignment{}, fmt.Errorf("create assignment: %w", err)
	}
	created, err := dto.toDomain()
	if err != nil {
		return assignment.Assignment{}, fmt.Errorf("create assignment: decode: %w", err)
	}
	return created, nil
}

// UpdateAssignment applies a partial update and returns the updated record.
func (c *Client) UpdateAssignment(ctx context.Context, id string, p assignment.Patch) (assignment.Assignment, error) {
	var dto assignmentDTO
	if err := c.do(ctx, http.MethodPatch, "/assignments/"+url.PathEscape(id), patchToDTO(p), &dto); err != nil {
		return assignment.Assignment{}, fmt.Errorf("update assignment %s: %w", id, err)
	}
	updated, err := dto.toDomain()
	if err != nil {
		return assignment.Assignment{}, fmt.Errorf("update assignment %s: decode: %w", id, err)
	}
	return updated, nil
}

// BatchUpdateAssignments applies several partial updates in one call and
// returns the updated records.
func (c *Client) BatchUpdateAssignments(ctx context.Context, items []BatchItem) ([]assignment.Assignment, error) {
	type entry struct {
		ID   string   `json:"id"`
		Data patchDTO `json:"data"`
	}
	body := struct {
		Updates []entry `json:"updates"`
	}{Updates: make([]entry, 0, len(items))}
	for _, it := range items {
		body.Updates = append(body.Updates, entry{ID: it.ID, Data: patchToDTO(it.Patch)})
	}
	var dtos []assignmentDTO
	if err := c.do(ctx, http.MethodPost, "/assignments/batch", body, &dtos); err != nil {
		return nil, fmt.Errorf("batch update assignments: %w", err)
	}
	out := make([]assignment.Assignment, 0, len(dtos))
	for _, d := range dtos {
		a, err := d.toDomain()
		if err != nil {
			return nil, fmt.Errorf("batch update assignments: decode %s: %w", d.ID, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// DeleteAssignment deletes a record by id.
func (c *Client) DeleteAssignment(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/assignments/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete assignment %s: %w", id, err)
	}
	return nil
}

// do issues a request and decodes a JSON response into out (skipped when out
// is nil). Non-2xx responses become *Error.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseError(resp *http.Response) error {
	apiErr := &Error{Status: resp.StatusCode, Message: resp.Status}
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err == nil && json.Unmarshal(data, &body) == nil && body.Message != "" {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
	}
	return apiErr
}
