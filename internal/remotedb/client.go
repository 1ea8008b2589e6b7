// Package remotedb is the HTTP client layer for the SQL-over-HTTP backing
// store. It sends parameter-bound statements and returns rows or a typed
// failure; retry policy is left entirely to callers.
package remotedb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/config"
	"github.com/spec-kit/helpdesk-core/internal/observability"
)

// Client executes statements against the remote SQL engine.
type Client struct {
	apiURL   string
	apiKey   string
	database string
	http     *http.Client
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// Result carries the outcome of one statement.
type Result struct {
	Rows         []Row
	Changes      int64
	LastInsertID int64
}

// NewClient builds a client from config. The HTTP timeout bounds every
// round trip; there is deliberately no retry or backoff at this layer.
func NewClient(cfg config.RemoteDBConfig, logger *zap.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		apiURL:   cfg.APIURL,
		apiKey:   cfg.APIKey,
		database: cfg.Database,
		http:     &http.Client{Timeout: cfg.Timeout()},
		logger:   logger,
		metrics:  metrics,
	}
}

type requestPayload struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params,omitempty"`
}

type responsePayload struct {
	Data         []map[string]any `json:"data"`
	Result       []map[string]any `json:"result"`
	Changes      int64            `json:"changes"`
	LastInsertID int64            `json:"last_insert_rowid"`
	Error        string           `json:"error"`
}

// Execute sends one statement with its bound parameters. User data travels
// only through params, never through the statement text. Transport failures
// come back as *ConnectionError, engine refusals as *RemoteError.
func (c *Client) Execute(ctx context.Context, statement string, params []any) (*Result, error) {
	payload := requestPayload{SQL: c.qualify(statement), Params: params}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode statement payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build remote request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordRemoteQueryError("connection")
		c.logger.Warn("remote store unreachable", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return nil, &ConnectionError{Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordRemoteQueryError("connection")
		return nil, &ConnectionError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.RecordRemoteQueryError("rejected")
		c.logger.Warn("remote store rejected statement",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw))
		return nil, &RemoteError{StatusCode: resp.StatusCode, Message: remoteMessage(raw)}
	}

	var parsed responsePayload
	if err := json.Unmarshal(raw, &parsed); err != nil {
		c.metrics.RecordRemoteQueryError("rejected")
		return nil, &RemoteError{StatusCode: resp.StatusCode, Message: "unparseable response body"}
	}

	// Older gateway versions put rows under "result" instead of "data".
	rows := parsed.Data
	if rows == nil {
		rows = parsed.Result
	}

	result := &Result{
		Changes:      parsed.Changes,
		LastInsertID: parsed.LastInsertID,
	}
	for _, r := range rows {
		result.Rows = append(result.Rows, Row(r))
	}
	return result, nil
}

// Ping verifies connectivity with a trivial statement.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Execute(ctx, "SELECT 1", nil)
	return err
}

func (c *Client) qualify(statement string) string {
	if c.database == "" {
		return statement
	}
	return fmt.Sprintf("USE DATABASE '%s'; %s", c.database, statement)
}

func remoteMessage(raw []byte) string {
	var parsed responsePayload
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error != "" {
		return parsed.Error
	}
	return string(raw)
}
