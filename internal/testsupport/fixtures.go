package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"glossmerge/internal/config"
)

// WriteWLASL writes the WLASL annotation fixture to the config's input path.
func WriteWLASL(t testing.TB, cfg *config.Config, content string) {
	t.Helper()
	writeFixture(t, cfg.Paths.WLASLJSON, content)
}

// WriteMSASL writes one MS-ASL per-split annotation fixture. split must be
// train, val, or test.
func WriteMSASL(t testing.TB, cfg *config.Config, split, content string) {
	t.Helper()
	path, ok := cfg.MSASLSplitFiles()[split]
	if !ok {
		t.Fatalf("unknown msasl split %q", split)
	}
	writeFixture(t, path, content)
}

// WriteVideo drops a placeholder video file into the config's video dir.
func WriteVideo(t testing.TB, cfg *config.Config, name string) string {
	t.Helper()
	path := filepath.Join(cfg.Paths.VideoDir, name)
	writeFixture(t, path, "placeholder video bytes")
	return path
}

func writeFixture(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
