// Package ytdlp wraps the yt-dlp command line tool for fetching source
// videos.
package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"glossmerge/internal/services"
)

// Downloader defines the behaviour required by the fetch runner.
type Downloader interface {
	Download(ctx context.Context, url, destPath string) error
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onOutput func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps yt-dlp CLI interactions.
type Client struct {
	binary  string
	timeout time.Duration
	exec    Executor
}

// New constructs a yt-dlp client.
func New(binary string, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	client := &Client{
		binary:  binary,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    services.CommandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Download fetches one video into destPath as an mp4 container.
func (c *Client) Download(ctx context.Context, url, destPath string) error {
	if strings.TrimSpace(url) == "" {
		return services.Wrap(services.ErrValidation, "fetch", "download", "url required", nil)
	}
	if destPath == "" {
		return services.Wrap(services.ErrValidation, "fetch", "download", "destination path required", nil)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create download directory: %w", err)
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := []string{
		"--no-playlist",
		"--no-progress",
		"-f", "mp4/bestvideo[ext=mp4]+bestaudio/best",
		"--merge-output-format", "mp4",
		"-o", destPath,
		url,
	}
	if err := c.exec.Run(runCtx, c.binary, args, nil); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "fetch", "download", url, err)
		}
		return services.Wrap(services.ErrExternalTool, "fetch", "download", url, err)
	}

	if _, err := os.Stat(destPath); err != nil {
		return services.Wrap(services.ErrExternalTool, "fetch", "download",
			fmt.Sprintf("yt-dlp reported success but produced no file for %s", url), err)
	}
	return nil
}
