package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"filevault/internal/domain"
	"filevault/internal/repository"
)

type FileService struct {
	fileRepo   *repository.FileRepository
	folderRepo *repository.FolderRepository
	now        func() time.Time
}

func NewFileService(fileRepo *repository.FileRepository, folderRepo *repository.FolderRepository) *FileService {
	return &FileService{
		fileRepo:   fileRepo,
		folderRepo: folderRepo,
		now:        time.Now,
	}
}

// NormalizeObjectPath приводит ссылку на объект к ключу внутри бакета:
// отбрасывает схему, хост и query, схлопывает сегменты пути.
// Ключ, выходящий за пределы корня, отклоняется.
func NormalizeObjectPath(raw string) (string, error) {
	raw = strings.TrimSpace(raw)

	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("%w: invalid object path", domain.ErrValidation)
		}
		raw = u.Path
	}

	raw = strings.ReplaceAll(raw, `\`, "/")
	for _, segment := range strings.Split(raw, "/") {
		if segment == ".." {
			return "", fmt.Errorf("%w: object path must not contain ..", domain.ErrValidation)
		}
	}

	key := strings.TrimPrefix(path.Clean("/"+raw), "/")
	if key == "" {
		return "", fmt.Errorf("%w: object path is required", domain.ErrValidation)
	}
	return key, nil
}

// RegisterFile сохраняет метаданные файла, уже загруженного в хранилище
func (s *FileService) RegisterFile(ctx context.Context, reg domain.FileRegistration) (*domain.File, error) {
	name, err := validateName(reg.Name)
	if err != nil {
		return nil, err
	}
	if reg.SizeBytes < 0 {
		return nil, fmt.Errorf("%w: size must not be negative", domain.ErrValidation)
	}

	objectPath, err := NormalizeObjectPath(reg.ObjectPath)
	if err != nil {
		return nil, err
	}

	if reg.FolderID != nil {
		folder, err := s.folderRepo.GetByID(ctx, *reg.FolderID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: folder does not exist", domain.ErrValidation)
		}
		if err != nil {
			return nil, err
		}
		if folder.OwnerID != reg.OwnerID {
			return nil, fmt.Errorf("%w: folder belongs to another user", domain.ErrValidation)
		}
	}

	mimeType := strings.TrimSpace(reg.MIMEType)
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	file := &domain.File{
		ID:         uuid.New(),
		Name:       name,
		SizeBytes:  reg.SizeBytes,
		MIMEType:   mimeType,
		ObjectPath: objectPath,
		FolderID:   reg.FolderID,
		OwnerID:    reg.OwnerID,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.fileRepo.Create(ctx, file); err != nil {
		return nil, err
	}
	return file, nil
}

func (s *FileService) GetFile(ctx context.Context, id uuid.UUID) (*domain.File, error) {
	return s.fileRepo.GetByID(ctx, id)
}

func (s *FileService) ListFiles(ctx context.Context, ownerID string, folderID *uuid.UUID) ([]domain.File, error) {
	return s.fileRepo.ListByFolder(ctx, ownerID, folderID)
}

// DeleteFile удаляет файл и его ссылки. Возвращает nil, если файла у владельца нет.
func (s *FileService) DeleteFile(ctx context.Context, id uuid.UUID, ownerID string) (*domain.File, error) {
	return s.fileRepo.Delete(ctx, id, ownerID)
}
