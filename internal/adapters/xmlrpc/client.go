// Package xmlrpc drives satellite hosts over the XML-RPC command server that
// runs on every satellite rig.
package xmlrpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kolo/xmlrpc"

	"github.com/ghalamif/RigFlow/internal/domain"
	"github.com/ghalamif/RigFlow/internal/ports"
)

const (
	DefaultPort         = 8000
	DefaultPollInterval = time.Second
	tokenHeader         = "Authorization"
)

// Settings configure one satellite connection.
type Settings struct {
	ServerURL    string
	Token        string
	PollInterval time.Duration
	// Transport overrides the HTTP transport; nil uses http.DefaultTransport.
	Transport http.RoundTripper
}

type uploadReply struct {
	Success bool   `xmlrpc:"success"`
	Path    string `xmlrpc:"path"`
	Error   string `xmlrpc:"error"`
}

type submitReply struct {
	JobID string `xmlrpc:"job_id"`
}

type resultReply struct {
	Finished bool   `xmlrpc:"finished"`
	ExitCode int    `xmlrpc:"exit_code"`
	Stdout   string `xmlrpc:"stdout"`
	Stderr   string `xmlrpc:"stderr"`
}

// Client is a RemoteClient over XML-RPC. Every request carries the shared
// token as a bearer credential.
type Client struct {
	settings Settings
	rpc      *xmlrpc.Client
}

func NewClient(settings Settings) (*Client, error) {
	if settings.ServerURL == "" {
		return nil, errors.New("xmlrpc: server url is required")
	}
	if settings.Token == "" {
		return nil, errors.New("xmlrpc: token is required")
	}
	if settings.PollInterval <= 0 {
		settings.PollInterval = DefaultPollInterval
	}
	base := settings.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	rpc, err := xmlrpc.NewClient(settings.ServerURL, &tokenTransport{token: settings.Token, base: base})
	if err != nil {
		return nil, fmt.Errorf("xmlrpc: dial %s: %w", settings.ServerURL, err)
	}
	return &Client{settings: settings, rpc: rpc}, nil
}

func (c *Client) URL() string { return c.settings.ServerURL }

// UploadModel stores document on the satellite. A rejected upload is reported
// through Success, not as an error.
func (c *Client) UploadModel(ctx context.Context, document []byte, remotePath string) (ports.UploadResult, error) {
	var reply uploadReply
	if err := c.call(ctx, "upload_model", []any{string(document), remotePath}, &reply); err != nil {
		return ports.UploadResult{}, err
	}
	return ports.UploadResult{Success: reply.Success, Path: reply.Path}, nil
}

// Run submits command and polls its job until the satellite reports it
// finished.
func (c *Client) Run(ctx context.Context, command string) (domain.TaskResult, error) {
	started := time.Now()

	var job submitReply
	if err := c.call(ctx, "run", []any{command}, &job); err != nil {
		return domain.TaskResult{}, err
	}
	if job.JobID == "" {
		return domain.TaskResult{}, fmt.Errorf("xmlrpc %s: run returned no job id", c.settings.ServerURL)
	}

	ticker := time.NewTicker(c.settings.PollInterval)
	defer ticker.Stop()
	for {
		var res resultReply
		if err := c.call(ctx, "result", []any{job.JobID}, &res); err != nil {
			return domain.TaskResult{}, err
		}
		if res.Finished {
			return domain.TaskResult{
				ExitCode:   res.ExitCode,
				Stdout:     res.Stdout,
				Stderr:     res.Stderr,
				StartedAt:  started,
				FinishedAt: time.Now(),
			}, nil
		}
		select {
		case <-ctx.Done():
			return domain.TaskResult{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) Close() error {
	return c.rpc.Close()
}

func (c *Client) call(ctx context.Context, method string, args []any, reply any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.rpc.Call(method, args, reply); err != nil {
		return fmt.Errorf("xmlrpc %s %s: %w", c.settings.ServerURL, method, err)
	}
	return nil
}

type tokenTransport struct {
	token string
	base  http.RoundTripper
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set(tokenHeader, "Bearer "+t.token)
	return t.base.RoundTrip(clone)
}

var _ ports.RemoteClient = (*Client)(nil)
