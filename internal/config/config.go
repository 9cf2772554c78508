package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains corpus input locations and working directories.
type Paths struct {
	WLASLJSON string `toml:"wlasl_json"`
	MSASLDir  string `toml:"msasl_dir"`
	WorkDir   string `toml:"work_dir"`
	VideoDir  string `toml:"video_dir"`
	LogDir    string `toml:"log_dir"`
}

// Reconcile contains overlap-classification thresholds.
type Reconcile struct {
	// TimeToleranceSeconds bounds how far an MS-ASL segment may deviate
	// from the full WLASL video before exact-match stops applying.
	TimeToleranceSeconds float64 `toml:"time_tolerance_seconds"`
	// LabelSimilarityThreshold separates matching labels from content
	// mismatches on a shared URL.
	LabelSimilarityThreshold float64 `toml:"label_similarity_threshold"`
	// AmbiguityMargin widens the threshold band flagged for manual audit.
	AmbiguityMargin float64 `toml:"ambiguity_margin"`
	// StrictReferences aborts the run on the first dangling overlap entry
	// instead of aggregating a report.
	StrictReferences bool `toml:"strict_references"`
}

// Split contains the target partition ratio and rebalancing controls.
type Split struct {
	TrainRatio float64 `toml:"train_ratio"`
	ValRatio   float64 `toml:"val_ratio"`
	TestRatio  float64 `toml:"test_ratio"`
	// Slack is the acceptable per-partition deviation from target share.
	Slack    float64 `toml:"slack"`
	Seed     int64   `toml:"seed"`
	Stratify bool    `toml:"stratify"`
}

// Tools contains external tool binaries and limits for the fetch stage.
type Tools struct {
	YtDlpBinary     string `toml:"ytdlp_binary"`
	FFmpegBinary    string `toml:"ffmpeg_binary"`
	FFprobeBinary   string `toml:"ffprobe_binary"`
	DownloadTimeout int    `toml:"download_timeout"`
	TrimTimeout     int    `toml:"trim_timeout"`
	Workers         int    `toml:"workers"`
}

// Logging contains log output settings.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for glossmerge.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Reconcile Reconcile `toml:"reconcile"`
	Split     Split     `toml:"split"`
	Tools     Tools     `toml:"tools"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/glossmerge/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a config file was found at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("glossmerge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the working directories a run needs.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.VideoDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Ratio returns the target split ratio as train/val/test shares.
func (c *Config) Ratio() [3]float64 {
	return [3]float64{c.Split.TrainRatio, c.Split.ValRatio, c.Split.TestRatio}
}

// ManifestPath returns the SQLite manifest location inside the work dir.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.Paths.WorkDir, "manifest.db")
}

// LockPath returns the workspace lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.WorkDir, "glossmerge.lock")
}

// MetadataCSVPath returns where the final metadata table is written.
func (c *Config) MetadataCSVPath() string {
	return filepath.Join(c.Paths.WorkDir, "final_metadata.csv")
}

// PlanCSVPath returns where the processing work plan is written.
func (c *Config) PlanCSVPath() string {
	return filepath.Join(c.Paths.WorkDir, "work_plan.csv")
}

// MSASLSplitFiles returns the MS-ASL annotation file paths keyed by split.
func (c *Config) MSASLSplitFiles() map[string]string {
	return map[string]string{
		"train": filepath.Join(c.Paths.MSASLDir, "MSASL_train.json"),
		"val":   filepath.Join(c.Paths.MSASLDir, "MSASL_val.json"),
		"test":  filepath.Join(c.Paths.MSASLDir, "MSASL_test.json"),
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) (string, error) {
	expanded, err := expandPath(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return expanded, fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return "", fmt.Errorf("write sample config: %w", err)
	}
	return expanded, nil
}
