// Package ffmpeg wraps the ffmpeg and ffprobe command line tools for
// cutting video segments.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"glossmerge/internal/services"
)

// Cut describes one segment to extract. Frame bounds win over time bounds
// when both are present. An end of -1 runs to the end of the video.
type Cut struct {
	HasFrames  bool
	StartFrame int
	EndFrame   int

	HasTimes     bool
	StartSeconds float64
	EndSeconds   float64
}

// Trimmer defines the behaviour required by the fetch runner.
type Trimmer interface {
	Trim(ctx context.Context, srcPath, destPath string, cut Cut) error
}

// Prober reports a file's container duration in seconds.
type Prober interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
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

// Client wraps ffmpeg CLI interactions.
type Client struct {
	binary      string
	probeBinary string
	timeout     time.Duration
	exec        Executor
}

// New constructs an ffmpeg client. probeBinary may be empty when duration
// probing is not needed.
func New(binary, probeBinary string, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	client := &Client{
		binary:      binary,
		probeBinary: strings.TrimSpace(probeBinary),
		timeout:     time.Duration(timeoutSeconds) * time.Second,
		exec:        services.CommandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Trim extracts the cut from srcPath into destPath, re-encoding with
// libx264 so frame-accurate bounds hold.
func (c *Client) Trim(ctx context.Context, srcPath, destPath string, cut Cut) error {
	if srcPath == "" || destPath == "" {
		return services.Wrap(services.ErrValidation, "trim", "cut", "source and destination paths required", nil)
	}
	if !cut.HasFrames && !cut.HasTimes {
		return services.Wrap(services.ErrValidation, "trim", "cut", "cut has no bounds", nil)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := trimArgs(srcPath, destPath, cut)
	if err := c.exec.Run(runCtx, c.binary, args, nil); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "trim", "cut", srcPath, err)
		}
		return services.Wrap(services.ErrExternalTool, "trim", "cut", srcPath, err)
	}

	if _, err := os.Stat(destPath); err != nil {
		return services.Wrap(services.ErrExternalTool, "trim", "cut",
			fmt.Sprintf("ffmpeg reported success but produced no file for %s", srcPath), err)
	}
	return nil
}

// trimArgs builds the ffmpeg invocation. Frame cuts use a select filter so
// the bounds are exact regardless of keyframe placement; time cuts use
// output seeking for the same reason.
func trimArgs(srcPath, destPath string, cut Cut) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-y", "-i", srcPath}

	if cut.HasFrames {
		var filter string
		if cut.EndFrame < 0 {
			filter = fmt.Sprintf("select=gte(n\\,%d),setpts=PTS-STARTPTS", cut.StartFrame)
		} else {
			filter = fmt.Sprintf("select=between(n\\,%d\\,%d),setpts=PTS-STARTPTS", cut.StartFrame, cut.EndFrame)
		}
		args = append(args, "-vf", filter, "-an")
	} else {
		args = append(args, "-ss", formatSeconds(cut.StartSeconds))
		if cut.EndSeconds > 0 {
			args = append(args, "-to", formatSeconds(cut.EndSeconds))
		}
	}

	args = append(args, "-c:v", "libx264", "-crf", "23", destPath)
	return args
}

// ProbeDuration returns the container duration in seconds via ffprobe.
func (c *Client) ProbeDuration(ctx context.Context, path string) (float64, error) {
	if c.probeBinary == "" {
		return 0, services.Wrap(services.ErrConfiguration, "trim", "probe", "ffprobe binary not configured", nil)
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
	var lines []string
	if err := c.exec.Run(runCtx, c.probeBinary, args, func(line string) {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}); err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "trim", "probe", path, err)
	}
	if len(lines) == 0 {
		return 0, services.Wrap(services.ErrExternalTool, "trim", "probe",
			fmt.Sprintf("ffprobe produced no duration for %s", path), nil)
	}
	duration, err := strconv.ParseFloat(lines[len(lines)-1], 64)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "trim", "probe",
			fmt.Sprintf("unparseable duration %q for %s", lines[len(lines)-1], path), err)
	}
	return duration, nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
