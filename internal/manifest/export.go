package manifest

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// ExportMetadataCSV writes the final metadata table for a run. Rows are
// ordered by global instance id so repeated exports of the same run are
// byte-identical.
func (s *Store) ExportMetadataCSV(ctx context.Context, runID, path string) error {
	rows, err := s.MetadataRows(ctx, runID)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metadata csv: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := []string{"instance_id", "source_dataset", "label_text", "video_filename", "final_split", "url"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write metadata header: %w", err)
	}
	for _, row := range rows {
		record := []string{row.GlobalID(), row.Source, row.LabelText, row.VideoFilename, row.FinalSplit, row.URL}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write metadata row %s: %w", row.GlobalID(), err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush metadata csv: %w", err)
	}
	return file.Sync()
}

// ExportPlanCSV writes the processing work plan for a run in filename order.
func (s *Store) ExportPlanCSV(ctx context.Context, runID, path string) error {
	items, err := s.PlanItems(ctx, runID, "")
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create plan csv: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := []string{
		"video_filename", "instance_id", "kind", "source_path", "url",
		"start_frame", "end_frame", "start_seconds", "end_seconds", "status",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write plan header: %w", err)
	}
	for _, item := range items {
		startFrame, endFrame := "", ""
		if item.HasFrames {
			startFrame = strconv.Itoa(item.StartFrame)
			endFrame = strconv.Itoa(item.EndFrame)
		}
		startSec, endSec := "", ""
		if item.HasTimes {
			startSec = formatSeconds(item.StartSeconds)
			endSec = formatSeconds(item.EndSeconds)
		}
		record := []string{
			item.VideoFilename,
			item.Source + ":" + item.InstanceID,
			item.Kind,
			item.SourcePath,
			item.URL,
			startFrame,
			endFrame,
			startSec,
			endSec,
			item.Status,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write plan row %s: %w", item.VideoFilename, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush plan csv: %w", err)
	}
	return file.Sync()
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
