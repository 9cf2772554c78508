package records

import (
	"errors"
	"fmt"
	"strings"

	"glossmerge/internal/services"
)

// ValidateInstances checks a normalized collection against the shared
// record shape: unique non-empty ids, a matching source tag, a known
// original split, and a sane interval. All findings are joined so a single
// pass reports every defect.
func ValidateInstances(source Source, instances []Instance) error {
	var errs []error
	seen := make(map[string]struct{}, len(instances))
	for i, rec := range instances {
		id := strings.TrimSpace(rec.InstanceID)
		if id == "" {
			errs = append(errs, services.Wrap(services.ErrValidation, "records", "validate instance",
				fmt.Sprintf("%s index %d has empty instance id", source, i), nil))
			continue
		}
		if _, dup := seen[id]; dup {
			errs = append(errs, services.Wrap(services.ErrValidation, "records", "validate instance",
				fmt.Sprintf("%s instance id %q appears more than once", source, id), nil))
		}
		seen[id] = struct{}{}
		if rec.Source != source {
			errs = append(errs, services.Wrap(services.ErrValidation, "records", "validate instance",
				fmt.Sprintf("instance %q tagged %q, expected %q", id, rec.Source, source), nil))
		}
		if !rec.OriginalSplit.Valid() {
			errs = append(errs, services.Wrap(services.ErrValidation, "records", "validate instance",
				fmt.Sprintf("instance %q has unknown split %q", id, rec.OriginalSplit), nil))
		}
		if rec.HasInterval {
			if rec.StartTime < 0 {
				errs = append(errs, services.Wrap(services.ErrValidation, "records", "validate instance",
					fmt.Sprintf("instance %q has negative start time %.3f", id, rec.StartTime), nil))
			}
			if rec.EndTime > 0 && rec.EndTime <= rec.StartTime {
				errs = append(errs, services.Wrap(services.ErrValidation, "records", "validate instance",
					fmt.Sprintf("instance %q has empty interval [%.3f, %.3f]", id, rec.StartTime, rec.EndTime), nil))
			}
		}
		if rec.FPS < 0 {
			errs = append(errs, services.Wrap(services.ErrValidation, "records", "validate instance",
				fmt.Sprintf("instance %q has negative fps %.2f", id, rec.FPS), nil))
		}
	}
	return errors.Join(errs...)
}

// ValidateOverlaps checks that every overlap entry references a record
// present on both sides. Each dangling side yields one missing-reference
// finding carrying the URL and instance id; findings are joined rather
// than aborting at the first.
func ValidateOverlaps(entries []OverlapEntry, wlasl, msasl map[Key]Instance) error {
	var errs []error
	for _, entry := range entries {
		if _, ok := wlasl[entry.WLASLKey()]; !ok {
			errs = append(errs, services.Wrap(services.ErrMissingReference, "records", "validate overlap",
				fmt.Sprintf("url %s names wlasl instance %q absent from the normalized set", entry.URL, entry.WLASLID), nil))
		}
		if _, ok := msasl[entry.MSASLKey()]; !ok {
			errs = append(errs, services.Wrap(services.ErrMissingReference, "records", "validate overlap",
				fmt.Sprintf("url %s names msasl instance %q absent from the normalized set", entry.URL, entry.MSASLID), nil))
		}
	}
	return errors.Join(errs...)
}
