package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingReference marks an overlap entry naming a record absent
	// from the normalized collections.
	ErrMissingReference = errors.New("missing reference")
	// ErrFilenameCollision marks two surviving records mapping to the same
	// output filename before disambiguation.
	ErrFilenameCollision = errors.New("filename collision")
	ErrValidation        = errors.New("validation error")
	ErrConfiguration     = errors.New("configuration error")
	ErrExternalTool      = errors.New("external tool error")
	ErrTimeout           = errors.New("timeout")
	ErrTransient         = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Reportable reports whether a stage error is aggregated into the run
// report instead of aborting the run. Missing references and filename
// collisions are per-entry findings; everything else is fatal outside of
// strict mode too.
func Reportable(err error) bool {
	return errors.Is(err, ErrMissingReference) || errors.Is(err, ErrFilenameCollision)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
