// Package client talks to the scan2cal HTTP API on behalf of the editor and
// the command-line uploader.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"scan2cal/calendar-app/internal/domain"
	"scan2cal/calendar-app/internal/editor"
	"scan2cal/calendar-app/internal/logging"
	"scan2cal/calendar-app/internal/service"
)

const defaultTimeout = 2 * time.Minute

var _ editor.CalendarAPI = (*Client)(nil)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// Client is an authenticated API client. It is safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     logging.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(log logging.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
		log:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Presign asks for one upload URL per file.
func (c *Client) Presign(ctx context.Context, files []service.FileSpec) ([]service.PresignedUpload, error) {
	var out struct {
		Uploads []service.PresignedUpload `json:"uploads"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/uploads/presign", map[string]any{"files": files}, &out); err != nil {
		return nil, err
	}
	return out.Uploads, nil
}

func (c *Client) Confirm(ctx context.Context, req service.ConfirmRequest) (*domain.Upload, error) {
	var out domain.Upload
	if err := c.do(ctx, http.MethodPost, "/api/v1/uploads/confirm", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListCleanedSources(ctx context.Context) ([]service.CleanedSource, error) {
	var out struct {
		Sources []service.CleanedSource `json:"sources"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/uploads/cleaned", nil, &out); err != nil {
		return nil, err
	}
	return out.Sources, nil
}

func (c *Client) GetCalendar(ctx context.Context, id string) (*domain.Calendar, error) {
	var out domain.Calendar
	if err := c.do(ctx, http.MethodGet, "/api/v1/calendars/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveCalendar replaces name and events of the calendar.
func (c *Client) SaveCalendar(ctx context.Context, id, name string, events []domain.Event) (*domain.Calendar, error) {
	if events == nil {
		events = []domain.Event{}
	}
	body := map[string]any{"name": name, "events": events}
	var out domain.Calendar
	if err := c.do(ctx, http.MethodPut, "/api/v1/calendars/"+url.PathEscape(id), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCalendar(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/calendars/"+url.PathEscape(id), nil, nil)
}

// PreviewExtraction runs the model over one cleaned text. Nothing is saved.
func (c *Client) PreviewExtraction(ctx context.Context, calendarID, cleanKey string) ([]domain.Event, error) {
	var out service.ExtractionResult
	path := "/api/v1/calendars/" + url.PathEscape(calendarID) + "/extract"
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"cleanKey": cleanKey}, &out); err != nil {
		return nil, err
	}
	if out.Events == nil {
		out.Events = []domain.Event{}
	}
	return out.Events, nil
}

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
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
