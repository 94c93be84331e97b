// Package main provides the HTTP client for communicating with windvaultd.
//
// The apiClient communicates with the windvaultd daemon over a Unix socket
// using HTTP. All responses are JSON-encoded; API errors are returned as both
// HTTP status codes (>= 400) and JSON responses with an "error" field.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const defaultSocketPath = "/run/windvault/windvaultd.sock"

const (
	defaultRequestTimeout = 30 * time.Second
	maxJSONOutputBytes    = 4 << 20 // 4MB maximum JSON response size
)

// apiClient is an HTTP client for communicating with windvaultd over a Unix socket.
type apiClient struct {
	socketPath string
	token      string
	httpClient *http.Client
	timeout    time.Duration
}

// apiError represents an error response from the windvaultd API.
type apiError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func newAPIClient(socketPath, token string, timeout time.Duration) *apiClient {
	path := socketPath
	if path == "" {
		path = defaultSocketPath
	}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", path)
		},
	}
	return &apiClient{
		socketPath: path,
		token:      token,
		httpClient: &http.Client{Transport: transport},
		timeout:    timeout,
	}
}

// doJSON sends an HTTP request with a JSON payload and returns the JSON response.
func (c *apiClient) doJSON(ctx context.Context, method, path string, payload any) ([]byte, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	var body io.Reader
	if payload != nil {
		buf := &bytes.Buffer{}
		enc := json.NewEncoder(buf)
		if err := enc.Encode(payload); err != nil {
			return nil, err
		}
		body = buf
	}
	req, err := http.NewRequestWithContext(ctx, method, "http://unix"+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s via %s: %w", method, path, c.socketPath, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxJSONOutputBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, parseAPIError(resp.StatusCode, data)
	}
	return data, nil
}

// parseAPIError converts an HTTP error response into an error.
func parseAPIError(status int, data []byte) error {
	if len(data) > 0 {
		var apiErr apiError
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error != "" {
			if apiErr.Details != "" {
				return fmt.Errorf("%s: %s", apiErr.Error, apiErr.Details)
			}
			return errors.New(apiErr.Error)
		}
	}
	return fmt.Errorf("request failed with status %d", status)
}

// withTimeout adds the client's timeout to the context if configured.
func (c *apiClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Wire types for the v1 API, mirroring the daemon's responses.

type statusResponse struct {
	Tenant   string         `json:"tenant"`
	Orders   map[string]int `json:"orders"`
	Windows  windowCounts   `json:"windows"`
	Requests int            `json:"pending_requests"`
	LastSync string         `json:"last_sync,omitempty"`
	Partial  bool           `json:"sync_partial"`
	Version  string         `json:"version"`
}

type windowCounts struct {
	Total    int `json:"total"`
	Assigned int `json:"assigned"`
	Free     int `json:"free"`
}

type windowSnapshot struct {
	WindowID string `json:"window_id"`
	Balance  int64  `json:"balance"`
}

type windowResult struct {
	WindowID   string `json:"window_id"`
	Consumed   int64  `json:"consumed"`
	EndBalance int64  `json:"end_balance"`
}

type executionEntry struct {
	StaffID   string  `json:"staff_id"`
	StaffName string  `json:"staff_name"`
	Amount    float64 `json:"amount"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
}

type orderCreateRequest struct {
	StaffID   string           `json:"staff_id"`
	Amount    float64          `json:"amount"`
	Date      string           `json:"date,omitempty"`
	Snapshots []windowSnapshot `json:"window_snapshots"`
}

type orderCompleteRequest struct {
	Results []windowResult `json:"window_results"`
}

type orderPauseRequest struct {
	CompletedAmount float64 `json:"completed_amount"`
}

type orderResumeRequest struct {
	StaffID string `json:"staff_id,omitempty"`
}

type orderResponse struct {
	ID              string           `json:"id"`
	StaffID         string           `json:"staff_id"`
	Amount          float64          `json:"amount"`
	Date            string           `json:"date"`
	Status          string           `json:"status"`
	CompletedAmount float64          `json:"completed_amount"`
	RemainingAmount float64          `json:"remaining_amount"`
	Snapshots       []windowSnapshot `json:"window_snapshots,omitempty"`
	Results         []windowResult   `json:"window_results,omitempty"`
	History         []executionEntry `json:"execution_history,omitempty"`
	TotalConsumed   int64            `json:"total_consumed"`
	Loss            int64            `json:"loss"`
	CreatedAt       string           `json:"created_at"`
	UpdatedAt       string           `json:"updated_at"`
}

type windowResponse struct {
	ID           string `json:"id"`
	MachineID    string `json:"machine_id"`
	WindowNumber int    `json:"window_number"`
	GoldBalance  int64  `json:"gold_balance"`
	UserID       string `json:"user_id,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

type windowAssignRequest struct {
	StaffID string `json:"staff_id"`
}

type windowRechargeRequest struct {
	Delta int64 `json:"delta"`
}

type machineResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Provider  string `json:"provider,omitempty"`
	Windows   int    `json:"windows"`
	CreatedAt string `json:"created_at"`
}

type machinePurchaseRequest struct {
	Name           string  `json:"name"`
	Provider       string  `json:"provider,omitempty"`
	WindowCount    int     `json:"window_count"`
	InitialBalance int64   `json:"initial_balance,omitempty"`
	Cost           float64 `json:"cost,omitempty"`
	Note           string  `json:"note,omitempty"`
}

type machinePurchaseResponse struct {
	Machine   machineResponse `json:"machine"`
	WindowIDs []string        `json:"window_ids"`
}

type requestResponse struct {
	ID          string `json:"id"`
	StaffID     string `json:"staff_id"`
	StaffName   string `json:"staff_name"`
	Type        string `json:"type"`
	WindowID    string `json:"window_id,omitempty"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	ProcessedAt string `json:"processed_at,omitempty"`
	ProcessedBy string `json:"processed_by,omitempty"`
}

type requestSubmitRequest struct {
	Type     string `json:"type"`
	WindowID string `json:"window_id,omitempty"`
}

type requestProcessRequest struct {
	Approved bool `json:"approved"`
}

type staffResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

type eventResponse struct {
	ID       int64  `json:"id"`
	TS       string `json:"ts"`
	Kind     string `json:"kind"`
	WindowID string `json:"window_id,omitempty"`
	OrderID  string `json:"order_id,omitempty"`
	Msg      string `json:"msg,omitempty"`
}

type syncResponse struct {
	Tenant   string `json:"tenant"`
	LastSync string `json:"last_sync"`
	Partial  bool   `json:"partial"`
}
