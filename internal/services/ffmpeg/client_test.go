package ffmpeg_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"glossmerge/internal/services"
	"glossmerge/internal/services/ffmpeg"
)

type fakeExecutor struct {
	binary string
	args   []string
	output []string
	err    error
	onRun  func()
}

func (f *fakeExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	f.binary = binary
	f.args = args
	if f.onRun != nil {
		f.onRun()
	}
	if onOutput != nil {
		for _, line := range f.output {
			onOutput(line)
		}
	}
	return f.err
}

func newClient(t *testing.T, exec *fakeExecutor) *ffmpeg.Client {
	t.Helper()
	client, err := ffmpeg.New("ffmpeg", "ffprobe", 60, ffmpeg.WithExecutor(exec))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestTrimFrameCut(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.mp4")
	exec := &fakeExecutor{}
	exec.onRun = func() {
		if err := os.WriteFile(dest, []byte("video"), 0o644); err != nil {
			t.Fatalf("write fake output: %v", err)
		}
	}
	client := newClient(t, exec)

	cut := ffmpeg.Cut{HasFrames: true, StartFrame: 50, EndFrame: 125}
	if err := client.Trim(context.Background(), "/videos/src.mp4", dest, cut); err != nil {
		t.Fatalf("trim: %v", err)
	}

	joined := strings.Join(exec.args, " ")
	if !strings.Contains(joined, `select=between(n\,50\,125)`) {
		t.Fatalf("frame filter missing: %v", exec.args)
	}
	if !strings.Contains(joined, "-c:v libx264 -crf 23") {
		t.Fatalf("encode settings missing: %v", exec.args)
	}
}

func TestTrimOpenEndedFrameCut(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.mp4")
	exec := &fakeExecutor{}
	exec.onRun = func() {
		if err := os.WriteFile(dest, []byte("video"), 0o644); err != nil {
			t.Fatalf("write fake output: %v", err)
		}
	}
	client := newClient(t, exec)

	cut := ffmpeg.Cut{HasFrames: true, StartFrame: 30, EndFrame: -1}
	if err := client.Trim(context.Background(), "/videos/src.mp4", dest, cut); err != nil {
		t.Fatalf("trim: %v", err)
	}
	if !strings.Contains(strings.Join(exec.args, " "), `select=gte(n\,30)`) {
		t.Fatalf("open-ended filter missing: %v", exec.args)
	}
}

func TestTrimTimeCut(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.mp4")
	exec := &fakeExecutor{}
	exec.onRun = func() {
		if err := os.WriteFile(dest, []byte("video"), 0o644); err != nil {
			t.Fatalf("write fake output: %v", err)
		}
	}
	client := newClient(t, exec)

	cut := ffmpeg.Cut{HasTimes: true, StartSeconds: 1.5, EndSeconds: 4.25}
	if err := client.Trim(context.Background(), "/videos/src.mp4", dest, cut); err != nil {
		t.Fatalf("trim: %v", err)
	}
	joined := strings.Join(exec.args, " ")
	if !strings.Contains(joined, "-ss 1.5 -to 4.25") {
		t.Fatalf("time bounds missing: %v", exec.args)
	}
}

func TestTrimRejectsEmptyCut(t *testing.T) {
	client := newClient(t, &fakeExecutor{})
	err := client.Trim(context.Background(), "/videos/src.mp4", filepath.Join(t.TempDir(), "out.mp4"), ffmpeg.Cut{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTrimWrapsToolFailure(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("exit status 1")}
	client := newClient(t, exec)
	cut := ffmpeg.Cut{HasTimes: true, StartSeconds: 0, EndSeconds: 1}
	err := client.Trim(context.Background(), "/videos/src.mp4", filepath.Join(t.TempDir(), "out.mp4"), cut)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestProbeDuration(t *testing.T) {
	exec := &fakeExecutor{output: []string{"12.480000"}}
	client := newClient(t, exec)
	duration, err := client.ProbeDuration(context.Background(), "/videos/src.mp4")
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if duration != 12.48 {
		t.Fatalf("duration = %v, want 12.48", duration)
	}
	if exec.binary != "ffprobe" {
		t.Fatalf("binary = %q", exec.binary)
	}
}

func TestProbeDurationRequiresBinary(t *testing.T) {
	client, err := ffmpeg.New("ffmpeg", "", 60, ffmpeg.WithExecutor(&fakeExecutor{}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.ProbeDuration(context.Background(), "/videos/src.mp4"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
