package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"ticket2ics/internal/models"
)

const (
	imageFileName    = "original.jpg"
	resultFileName   = "result.json"
	statusFileName   = "status.json"
	calendarFileName = "calendar.ics"

	idTimestampLayout = "2006_01_02_15_04_05"
)

// FilesystemStore keeps one directory per task under a base path.
// Task ids double as directory names, so two submissions in the same
// second with the same filename stem share a directory and silently
// overwrite each other. That collision is a known limitation of the
// id scheme and is left undetected on purpose.
type FilesystemStore struct {
	basePath string
	logger   *zap.Logger
	now      func() time.Time
}

func NewFilesystemStore(basePath string, logger *zap.Logger) (*FilesystemStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &FilesystemStore{
		basePath: basePath,
		logger:   logger,
		now:      time.Now,
	}, nil
}

func (s *FilesystemStore) CreateTask(ctx context.Context, filename string, image []byte) (string, error) {
	id := s.now().Format(idTimestampLayout) + "_" + sanitizeStem(filename)
	dir := filepath.Join(s.basePath, id)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create task directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, imageFileName), image, 0o644); err != nil {
		// Leave no half-created task behind.
		os.RemoveAll(dir)
		return "", fmt.Errorf("write task image: %w", err)
	}

	s.logger.Debug("Task allocated", zap.String("task_id", id))
	return id, nil
}

func (s *FilesystemStore) WriteStatus(ctx context.Context, id string, status models.TaskStatus, ticket *models.TicketData, errMsg string) error {
	now := s.now()
	record := models.TaskRecord{
		ID:        id,
		Status:    status,
		Ticket:    ticket,
		Error:     errMsg,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing, err := s.ReadStatus(ctx, id); err == nil {
		record.CreatedAt = existing.CreatedAt
	}
	return s.writeJSON(id, statusFileName, record)
}

func (s *FilesystemStore) WriteResult(ctx context.Context, id string, ticket *models.TicketData) error {
	return s.writeJSON(id, resultFileName, ticket)
}

func (s *FilesystemStore) WriteCalendar(ctx context.Context, id string, data []byte) error {
	return os.WriteFile(s.taskFile(id, calendarFileName), data, 0o644)
}

func (s *FilesystemStore) ReadStatus(ctx context.Context, id string) (*models.TaskRecord, error) {
	data, err := os.ReadFile(s.taskFile(id, statusFileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read status record: %w", err)
	}

	var record models.TaskRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode status record: %w", err)
	}
	return &record, nil
}

func (s *FilesystemStore) CalendarPath(ctx context.Context, id string) (string, error) {
	path := s.taskFile(id, calendarFileName)
	if _, err := os.Stat(path); err != nil {
		return "", ErrTaskNotFound
	}
	return path, nil
}

func (s *FilesystemStore) writeJSON(id, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := os.WriteFile(s.taskFile(id, name), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (s *FilesystemStore) taskFile(id, name string) string {
	return filepath.Join(s.basePath, filepath.Base(id), name)
}

// sanitizeStem strips the extension and path from an uploaded
// filename and normalizes spaces and hyphens to underscores.
func sanitizeStem(filename string) string {
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = strings.ReplaceAll(stem, " ", "_")
	stem = strings.ReplaceAll(stem, "-", "_")
	if stem == "" || stem == "." {
		stem = "upload"
	}
	return stem
}
