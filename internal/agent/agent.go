// internal/agent/agent.go
package agent

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/signalnine/deskmate/internal/config"
	"github.com/signalnine/deskmate/internal/connectivity"
	"github.com/signalnine/deskmate/internal/protocol"
)

// Service paths
const (
	HealthPath = "/health"
	QueryPath  = "/api/v1/agent/query"
	IntentPath = "/api/v1/agent/intent/"
	JobsPath   = "/api/v1/jobs/"
	FilesPath  = "/api/v1/files/list"
	UploadPath = "/api/v1/files/upload"
)

// maxBodyBytes caps how much of a reply we read
const maxBodyBytes = 16 << 20

// Client talks to the DeskMate agent service
type Client struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	state   *connectivity.State
	logger  *slog.Logger
}

// New creates a new agent client. state may be shared with a
// connectivity.Monitor; nil gets a private one.
func New(cfg *config.Config, state *connectivity.State, logger *slog.Logger) *Client {
	transport := &http.Transport{}
	if cfg.TLSSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if state == nil {
		state = connectivity.NewState()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: cfg.BaseURL,
		timeout: cfg.QueryTimeout,
		client: &http.Client{
			Timeout:   cfg.QueryTimeout,
			Transport: transport,
		},
		state:  state,
		logger: logger,
	}
}

// BaseURL returns the service root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Query submits one command. Every error is an *Error; connectivity
// failures mark the shared state unreachable, success marks it reachable.
func (c *Client) Query(ctx context.Context, command string) (*protocol.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	var resp protocol.Response
	err := c.do(ctx, http.MethodPost, QueryPath, protocol.QueryRequest{Command: command}, &resp)
	c.logger.Info("agent query",
		"command_len", len(command),
		"latency_ms", time.Since(start).Milliseconds(),
		"ok", err == nil,
	)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health performs GET /health; any 2xx is healthy
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, HealthPath, nil, nil)
}

// ParseIntent asks the service how it would read command, without running it
func (c *Client) ParseIntent(ctx context.Context, command string) (*protocol.Intent, error) {
	var intent protocol.Intent
	if err := c.do(ctx, http.MethodGet, IntentPath+url.PathEscape(command), nil, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// Jobs lists the most recent jobs recorded by the service
func (c *Client) Jobs(ctx context.Context) ([]protocol.JobSummary, error) {
	var jobs []protocol.JobSummary
	if err := c.do(ctx, http.MethodGet, JobsPath, nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// Job fetches one job by ID
func (c *Client) Job(ctx context.Context, id string) (*protocol.Job, error) {
	var job protocol.Job
	if err := c.do(ctx, http.MethodGet, JobsPath+url.PathEscape(id), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Files lists files uploaded to the service
func (c *Client) Files(ctx context.Context) ([]protocol.FileInfo, error) {
	var files []protocol.FileInfo
	if err := c.do(ctx, http.MethodGet, FilesPath, nil, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// UploadFile sends the file at path as multipart field "file"
func (c *Client) UploadFile(ctx context.Context, path string) (*protocol.FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Message: err.Error(), Err: err}
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Message: err.Error(), Err: err}
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, &Error{Kind: KindUnknown, Message: err.Error(), Err: err}
	}
	if err := mw.Close(); err != nil {
		return nil, &Error{Kind: KindUnknown, Message: err.Error(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+UploadPath, &body)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Message: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var info protocol.FileInfo
	if err := c.send(req, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// do issues a JSON request. in may be nil for bodyless requests; out may be
// nil when the reply body is irrelevant.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &Error{Kind: KindUnknown, Message: err.Error(), Err: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &Error{Kind: KindUnknown, Message: err.Error(), Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		classified := classifyTransport(c.baseURL, err)
		if classified.Kind == KindConnectivity {
			c.state.Set(connectivity.Unreachable)
		}
		c.logger.Warn("agent request failed",
			"method", req.Method, "path", req.URL.Path, "kind", classified.Kind.String(), "error", err)
		return classified
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Error{Kind: KindUnknown, Status: resp.StatusCode, Message: err.Error(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("agent service error",
			"method", req.Method, "path", req.URL.Path, "status", resp.StatusCode)
		return serviceError(resp.StatusCode, data)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			err = fmt.Errorf("decode %s reply: %w", req.URL.Path, err)
			return &Error{Kind: KindUnknown, Status: resp.StatusCode, Message: err.Error(), Err: err}
		}
	}

	c.state.Set(connectivity.Reachable)
	return nil
}
