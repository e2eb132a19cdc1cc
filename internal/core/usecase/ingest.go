package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/healthqa/testcase-search/internal/core/domain"
	"github.com/healthqa/testcase-search/internal/core/ports"
)

type IngestWorkbookUseCase struct {
	repo    ports.CaseRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestWorkbookUseCase(
	repo ports.CaseRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestWorkbookUseCase {
	return &IngestWorkbookUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

// Upload stores the raw workbook file, records the workbook in status
// "uploaded", and publishes the ingestion event that triggers asynchronous
// extraction and indexing.
func (uc *IngestWorkbookUseCase) Upload(
	ctx context.Context,
	filename, mimeType string,
	body io.Reader,
) (*domain.Workbook, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload workbook", errors.New("filename is required"))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	wb := &domain.Workbook{
		ID:          id,
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: storageKey,
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.CreateWorkbook(ctx, wb); err != nil {
		return nil, fmt.Errorf("create workbook metadata: %w", err)
	}

	if err := uc.queue.PublishWorkbookIngested(ctx, wb.ID); err != nil {
		return nil, fmt.Errorf("publish ingestion event: %w", err)
	}

	return wb, nil
}

// GetWorkbook exposes workbook state to the API for upload status polling.
func (uc *IngestWorkbookUseCase) GetWorkbook(ctx context.Context, id string) (*domain.Workbook, error) {
	wb, err := uc.repo.GetWorkbook(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch workbook by id: %w", err)
	}
	return wb, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "workbook.bin"
	}
	return base
}
