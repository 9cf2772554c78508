package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateReconcile(); err != nil {
		return err
	}
	if err := c.validateSplit(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WLASLJSON) == "" {
		return errors.New("paths.wlasl_json must be set")
	}
	if strings.TrimSpace(c.Paths.MSASLDir) == "" {
		return errors.New("paths.msasl_dir must be set")
	}
	return nil
}

func (c *Config) validateReconcile() error {
	if c.Reconcile.TimeToleranceSeconds < 0 {
		return errors.New("reconcile.time_tolerance_seconds must not be negative")
	}
	if c.Reconcile.LabelSimilarityThreshold < 0 || c.Reconcile.LabelSimilarityThreshold > 1 {
		return errors.New("reconcile.label_similarity_threshold must be between 0 and 1")
	}
	if c.Reconcile.AmbiguityMargin < 0 || c.Reconcile.AmbiguityMargin > 0.5 {
		return errors.New("reconcile.ambiguity_margin must be between 0 and 0.5")
	}
	return nil
}

func (c *Config) validateSplit() error {
	for name, value := range map[string]float64{
		"split.train_ratio": c.Split.TrainRatio,
		"split.val_ratio":   c.Split.ValRatio,
		"split.test_ratio":  c.Split.TestRatio,
	} {
		if value < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if c.Split.TrainRatio+c.Split.ValRatio+c.Split.TestRatio <= 0 {
		return errors.New("split ratios must not all be zero")
	}
	if c.Split.Slack < 0 || c.Split.Slack > 0.5 {
		return errors.New("split.slack must be between 0 and 0.5")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
