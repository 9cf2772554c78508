package testsupport

import (
	"testing"

	"glossmerge/internal/config"
	"glossmerge/internal/manifest"
)

// MustOpenStore opens the manifest store for a test config, failing the test
// on error and closing the store during cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *manifest.Store {
	t.Helper()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	store, err := manifest.Open(cfg.ManifestPath())
	if err != nil {
		t.Fatalf("open manifest store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close manifest store: %v", err)
		}
	})
	return store
}
