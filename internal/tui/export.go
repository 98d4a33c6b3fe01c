package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// ExportFileName builds the timestamped name for an exported copy.
func ExportFileName(at time.Time) string {
	return fmt.Sprintf("data_store-%s.json", at.UTC().Format("20060102T150405Z"))
}

// export flushes the store, writes a timestamped copy into the export
// directory and, when an uploader is configured, returns the upload command.
func (a *App) export() tea.Cmd {
	data, err := a.session.Export()
	if err != nil {
		a.setError(err)
		return nil
	}
	dest := a.session.Path()
	if a.exportDir != "" {
		if err := os.MkdirAll(a.exportDir, 0o755); err != nil {
			a.setError(fmt.Errorf("create export dir: %w", err))
			return nil
		}
		dest = filepath.Join(a.exportDir, ExportFileName(a.now()))
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			a.setError(fmt.Errorf("write export: %w", err))
			return nil
		}
		if a.logbook != nil {
			a.logbook.Info("Export copy · %s", dest)
		}
	}
	a.lastExport = dest
	if a.uploader == nil {
		a.setStatus("Exported %s (%d bytes)", dest, len(data))
		return nil
	}
	if a.uploading {
		a.setStatus("Exported %s · previous upload still running", dest)
		return nil
	}
	a.uploading = true
	a.setStatus("Exported %s · uploading...", dest)
	uploader := a.uploader
	rater := a.session.Rater()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
		defer cancel()
		ref, err := uploader.PutArtifact(ctx, rater, data)
		return uploadFinishedMsg{ref: ref, err: err}
	}
}
