package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"filevault/internal/domain"
	"filevault/internal/repository"
)

const maxNameLength = 255

type FolderService struct {
	folderRepo *repository.FolderRepository
	now        func() time.Time
}

func NewFolderService(folderRepo *repository.FolderRepository) *FolderService {
	return &FolderService{
		folderRepo: folderRepo,
		now:        time.Now,
	}
}

// validateName обрезает пробелы и проверяет длину имени папки или файла
func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", fmt.Errorf("%w: name must be at most %d characters", domain.ErrValidation, maxNameLength)
	}
	return name, nil
}

func (s *FolderService) CreateFolder(ctx context.Context, name string, parentID *uuid.UUID, ownerID string) (*domain.Folder, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}

	if parentID != nil {
		parent, err := s.folderRepo.GetByID(ctx, *parentID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: parent folder does not exist", domain.ErrValidation)
		}
		if err != nil {
			return nil, err
		}
		if parent.OwnerID != ownerID {
			return nil, fmt.Errorf("%w: parent folder belongs to another user", domain.ErrValidation)
		}
	}

	folder := &domain.Folder{
		ID:        uuid.New(),
		Name:      name,
		ParentID:  parentID,
		OwnerID:   ownerID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.folderRepo.Create(ctx, folder); err != nil {
		return nil, err
	}
	return folder, nil
}

func (s *FolderService) GetFolder(ctx context.Context, id uuid.UUID) (*domain.Folder, error) {
	return s.folderRepo.GetByID(ctx, id)
}

func (s *FolderService) ListFolders(ctx context.Context, ownerID string, parentID *uuid.UUID) ([]domain.Folder, error) {
	return s.folderRepo.ListByParent(ctx, ownerID, parentID)
}

// GetPath возвращает путь от корня до папки; для неизвестной папки путь пустой
func (s *FolderService) GetPath(ctx context.Context, folderID uuid.UUID) ([]domain.Folder, error) {
	return s.folderRepo.GetPath(ctx, folderID)
}

// DeleteFolder удаляет поддерево целиком. Папка другого владельца не удаляется.
func (s *FolderService) DeleteFolder(ctx context.Context, folderID uuid.UUID, ownerID string) (*domain.FolderDeletion, error) {
	return s.folderRepo.DeleteTree(ctx, folderID, ownerID)
}
