// =============================================================================
// Constituent Import - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the importer, including:
//   - Output directory management
//   - Output path construction
//   - Run summary log generation
//   - Run identifiers
//
// SUMMARY LOG:
//   - One line is appended per run, so the file keeps the run history
//   - Each line is a timestamp followed by key=value pairs
//   - The file lives in the output directory
//
// =============================================================================

package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for an import run.
type FileManager struct {
	// OutputDir is the directory where output tables are placed.
	OutputDir string

	// SummaryLogFile is the summary log file name inside OutputDir.
	SummaryLogFile string
}

// NewFileManager creates a new FileManager.
func NewFileManager(outputDir, summaryLogFile string) *FileManager {
	return &FileManager{
		OutputDir:      outputDir,
		SummaryLogFile: summaryLogFile,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates the output directory if it doesn't exist.
//
// RETURNS:
//   - An error if the directory cannot be created.
func (fm *FileManager) EnsureDirectories() error {
	if err := os.MkdirAll(fm.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", fm.OutputDir, err)
	}
	return nil
}

// OutputPath joins name onto the output directory. Absolute names are
// returned unchanged.
func (fm *FileManager) OutputPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(fm.OutputDir, name)
}

// =============================================================================
// RUN SUMMARY
// =============================================================================

// RunSummary contains summary information about a processing run.
type RunSummary struct {
	RunID     string
	StartTime time.Time
	EndTime   time.Time
	DryRun    bool

	// Err is the error that aborted the run, if any.
	Err error

	Constituents         int
	Tags                 int
	DuplicateIDs         int
	OrphanedDonations    int
	OrphanedEmails       int
	FallbackCreatedDates int
	TagLookupDegraded    bool
}

// Status is "success", "dry-run" or "failed".
func (s RunSummary) Status() string {
	switch {
	case s.Err != nil:
		return "failed"
	case s.DryRun:
		return "dry-run"
	default:
		return "success"
	}
}

// Line renders the summary as a single log line.
func (s RunSummary) Line() string {
	fields := []string{
		s.EndTime.Format("2006-01-02 15:04:05"),
		"run_id=" + s.RunID,
		"status=" + s.Status(),
		fmt.Sprintf("constituents=%d", s.Constituents),
		fmt.Sprintf("tags=%d", s.Tags),
		fmt.Sprintf("duplicate_ids=%d", s.DuplicateIDs),
		fmt.Sprintf("orphaned_donations=%d", s.OrphanedDonations),
		fmt.Sprintf("orphaned_emails=%d", s.OrphanedEmails),
		fmt.Sprintf("fallback_created_dates=%d", s.FallbackCreatedDates),
		fmt.Sprintf("tag_lookup_degraded=%t", s.TagLookupDegraded),
		"duration=" + s.EndTime.Sub(s.StartTime).Round(time.Millisecond).String(),
	}
	if s.Err != nil {
		fields = append(fields, fmt.Sprintf("error=%q", s.Err.Error()))
	}
	return strings.Join(fields, " ")
}

// WriteSummaryLog appends a processing summary line to the summary log.
//
// PARAMETERS:
//   - summary: The processing summary.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func (fm *FileManager) WriteSummaryLog(summary RunSummary) (string, error) {
	if err := fm.EnsureDirectories(); err != nil {
		return "", err
	}

	summaryPath := fm.OutputPath(fm.SummaryLogFile)
	file, err := os.OpenFile(summaryPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to open summary file: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(summary.Line() + "\n"); err != nil {
		return "", fmt.Errorf("failed to write summary file: %w", err)
	}

	return summaryPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// NewRunID returns a random identifier for one run.
func NewRunID() string {
	return uuid.New().String()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
