// Package tools exposes the organizer as four named operations. Every
// operation returns a human-readable status string; failures come back as
// strings starting with "Error" rather than as Go errors.
package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"screenshot-organizer/internal/database"
	"screenshot-organizer/internal/images"
	"screenshot-organizer/internal/ordering"
	"screenshot-organizer/internal/organizer"
)

const (
	AnalyzeScreenshot = "analyze_screenshot"
	OrganizeFiles     = "organize_files"
	UndoOrganization  = "undo_organization"
	ListFiles         = "list_files"
)

// Analyzer turns a screenshot into raw text.
type Analyzer interface {
	AnalyzeScreenshot(ctx context.Context, path string) (string, error)
}

// Journal records finished filesystem operations.
type Journal interface {
	RecordRun(ctx context.Context, run *database.Run) error
}

type Service struct {
	organizer *organizer.Organizer
	analyzer  Analyzer
	journal   Journal
	logger    *slog.Logger
	now       func() time.Time

	// serializes batches so two renames never interleave
	mu sync.Mutex
}

// NewService wires the tool surface. analyzer and journal may be nil.
func NewService(org *organizer.Organizer, analyzer Analyzer, journal Journal, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		organizer: org,
		analyzer:  analyzer,
		journal:   journal,
		logger:    logger.With("component", "tools"),
		now:       time.Now,
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// AnalyzeScreenshot extracts the organization order text from a screenshot.
func (s *Service) AnalyzeScreenshot(ctx context.Context, path string) string {
	if !exists(path) {
		return fmt.Sprintf("Error: Screenshot not found at %s", path)
	}
	if s.analyzer == nil {
		return "Error analyzing screenshot: no vision model configured"
	}
	text, err := s.analyzer.AnalyzeScreenshot(ctx, path)
	if err != nil {
		if errors.Is(err, images.ErrNotFound) {
			return fmt.Sprintf("Error: Screenshot not found at %s", path)
		}
		s.logger.Error("error analyzing screenshot", "path", path, "error", err)
		return fmt.Sprintf("Error analyzing screenshot: %v", err)
	}
	return text
}

// OrganizeFiles moves the files of folder that match orderText into
// outputFolder with position prefixes. An empty outputFolder is derived from
// the section title of orderText, inside folder.
func (s *Service) OrganizeFiles(ctx context.Context, folder, orderText, outputFolder string) string {
	return s.OrganizeFilesWithProgress(ctx, folder, orderText, outputFolder, nil)
}

func (s *Service) OrganizeFilesWithProgress(ctx context.Context, folder, orderText, outputFolder string, progress organizer.ProgressFunc) string {
	if !exists(folder) {
		return fmt.Sprintf("Error: Source folder not found at %s", folder)
	}
	output, err := ResolveOutputFolder(folder, orderText, outputFolder)
	if err != nil {
		return fmt.Sprintf("Error organizing files: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	started := s.now()
	result, err := s.organizer.Apply(folder, output, ordering.Parse(orderText), progress)
	s.record(ctx, OrganizeFiles, folder, output, result.Count(), started, err)
	if err != nil {
		s.logger.Error("error organizing files", "folder", folder, "output", output, "error", err)
		return fmt.Sprintf("Error organizing files: %v", partialError(err, result.Count()))
	}
	return fmt.Sprintf("Successfully organized %d files to %s", result.Count(), output)
}

// UndoOrganization moves prefixed files back and strips their prefixes.
func (s *Service) UndoOrganization(ctx context.Context, organizedFolder, sourceFolder string) string {
	return s.UndoOrganizationWithProgress(ctx, organizedFolder, sourceFolder, nil)
}

func (s *Service) UndoOrganizationWithProgress(ctx context.Context, organizedFolder, sourceFolder string, progress organizer.ProgressFunc) string {
	if !exists(organizedFolder) {
		return fmt.Sprintf("Error: Organized folder not found at %s", organizedFolder)
	}
	if !exists(sourceFolder) {
		return fmt.Sprintf("Error: Source folder not found at %s", sourceFolder)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	started := s.now()
	result, err := s.organizer.Undo(organizedFolder, sourceFolder, progress)
	s.record(ctx, UndoOrganization, organizedFolder, sourceFolder, result.Count(), started, err)
	if err != nil {
		s.logger.Error("error undoing organization", "organized", organizedFolder, "source", sourceFolder, "error", err)
		return fmt.Sprintf("Error undoing organization: %v", partialError(err, result.Count()))
	}
	return fmt.Sprintf("Successfully moved %d files back to %s and removed numeric prefixes", result.Count(), sourceFolder)
}

// ListFiles returns the regular files in folder, one per line.
func (s *Service) ListFiles(ctx context.Context, folder string) string {
	if !exists(folder) {
		return fmt.Sprintf("Error: Folder not found at %s", folder)
	}
	files, err := organizer.ListFiles(folder)
	if err != nil {
		s.logger.Error("error listing files", "folder", folder, "error", err)
		return fmt.Sprintf("Error listing files: %v", err)
	}
	return strings.Join(organizer.Names(files), "\n")
}

// IsError reports whether a tool status string describes a failure.
func IsError(result string) bool {
	return strings.HasPrefix(result, "Error:") || strings.HasPrefix(result, "Error ")
}

// ResolveOutputFolder returns outputFolder, or a folder named after the
// section title of orderText when outputFolder is empty.
func ResolveOutputFolder(folder, orderText, outputFolder string) (string, error) {
	if strings.TrimSpace(outputFolder) != "" {
		return outputFolder, nil
	}
	name := ordering.SanitizeFolderName(ordering.SectionTitle(orderText))
	if name == "" {
		return "", errors.New("output folder is required when the order has no section title")
	}
	return filepath.Join(folder, name), nil
}

func partialError(err error, moved int) error {
	var moveErr *organizer.MoveError
	if errors.As(err, &moveErr) && moved > 0 {
		return fmt.Errorf("%w (%d files were already moved and were not rolled back)", err, moved)
	}
	return err
}

func (s *Service) record(ctx context.Context, operation, source, destination string, moved int, started time.Time, opErr error) {
	if s.journal == nil {
		return
	}
	run := &database.Run{
		Operation:   operation,
		Source:      source,
		Destination: destination,
		Moved:       moved,
		Status:      database.RunStatusSuccess,
		StartedAt:   started,
		FinishedAt:  s.now(),
	}
	if opErr != nil {
		run.Status = database.RunStatusFailed
		run.Error = opErr.Error()
	}
	if err := s.journal.RecordRun(ctx, run); err != nil {
		s.logger.Warn("failed to record run", "operation", operation, "error", err)
	}
}
