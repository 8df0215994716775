package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"filevault/internal/domain"
	"filevault/internal/logging"
)

// PermissionService - единая точка проверки владения. Все операции, которые
// меняют данные или раскрывают путь к ним, проходят через него.
type PermissionService struct {
	folders *FolderService
	files   *FileService
	shares  *ShareService
	store   ObjectStore
}

// NewPermissionService создает новый экземпляр PermissionService.
// store может быть nil: тогда ссылкой на скачивание служит сам ключ объекта.
func NewPermissionService(
	folders *FolderService,
	files *FileService,
	shares *ShareService,
	store ObjectStore,
) *PermissionService {
	return &PermissionService{
		folders: folders,
		files:   files,
		shares:  shares,
		store:   store,
	}
}

// IsOwner - единственный предикат владения в системе
func (s *PermissionService) IsOwner(actorID, ownerID string) bool {
	return actorID != "" && actorID == ownerID
}

func (s *PermissionService) AuthorizeFolder(ctx context.Context, actorID string, folderID uuid.UUID) (*domain.Folder, error) {
	folder, err := s.folders.GetFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if !s.IsOwner(actorID, folder.OwnerID) {
		return nil, domain.ErrForbidden
	}
	return folder, nil
}

func (s *PermissionService) AuthorizeFile(ctx context.Context, actorID string, fileID uuid.UUID) (*domain.File, error) {
	file, err := s.files.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !s.IsOwner(actorID, file.OwnerID) {
		return nil, domain.ErrForbidden
	}
	return file, nil
}

// AuthorizeShareLink проверяет владение ссылкой через ее файл
func (s *PermissionService) AuthorizeShareLink(ctx context.Context, actorID string, shareID uuid.UUID) (*domain.ShareLink, error) {
	link, err := s.shares.GetByID(ctx, shareID)
	if err != nil {
		return nil, err
	}
	if _, err := s.AuthorizeFile(ctx, actorID, link.FileID); err != nil {
		return nil, err
	}
	return link, nil
}

func (s *PermissionService) CreateFolder(ctx context.Context, actorID, name string, parentID *uuid.UUID) (*domain.Folder, error) {
	if parentID != nil {
		if _, err := s.AuthorizeFolder(ctx, actorID, *parentID); err != nil {
			return nil, err
		}
	}
	return s.folders.CreateFolder(ctx, name, parentID, actorID)
}

func (s *PermissionService) ListFolders(ctx context.Context, actorID string, parentID *uuid.UUID) ([]domain.Folder, error) {
	if parentID != nil {
		if _, err := s.AuthorizeFolder(ctx, actorID, *parentID); err != nil {
			return nil, err
		}
	}
	return s.folders.ListFolders(ctx, actorID, parentID)
}

func (s *PermissionService) FolderPath(ctx context.Context, actorID string, folderID uuid.UUID) ([]domain.Folder, error) {
	if _, err := s.AuthorizeFolder(ctx, actorID, folderID); err != nil {
		return nil, err
	}
	return s.folders.GetPath(ctx, folderID)
}

func (s *PermissionService) DeleteFolder(ctx context.Context, actorID string, folderID uuid.UUID) (*domain.FolderDeletion, error) {
	if _, err := s.AuthorizeFolder(ctx, actorID, folderID); err != nil {
		return nil, err
	}

	result, err := s.folders.DeleteFolder(ctx, folderID, actorID)
	if err != nil {
		return nil, err
	}

	s.deleteObjects(ctx, result.ObjectPaths)
	return result, nil
}

func (s *PermissionService) RegisterFile(ctx context.Context, actorID string, reg domain.FileRegistration) (*domain.File, error) {
	if reg.FolderID != nil {
		if _, err := s.AuthorizeFolder(ctx, actorID, *reg.FolderID); err != nil {
			return nil, err
		}
	}
	reg.OwnerID = actorID
	return s.files.RegisterFile(ctx, reg)
}

func (s *PermissionService) ListFiles(ctx context.Context, actorID string, folderID *uuid.UUID) ([]domain.File, error) {
	if folderID != nil {
		if _, err := s.AuthorizeFolder(ctx, actorID, *folderID); err != nil {
			return nil, err
		}
	}
	return s.files.ListFiles(ctx, actorID, folderID)
}

func (s *PermissionService) DeleteFile(ctx context.Context, actorID string, fileID uuid.UUID) error {
	if _, err := s.AuthorizeFile(ctx, actorID, fileID); err != nil {
		return err
	}

	deleted, err := s.files.DeleteFile(ctx, fileID, actorID)
	if err != nil {
		return err
	}
	if deleted != nil {
		s.deleteObjects(ctx, []string{deleted.ObjectPath})
	}
	return nil
}

func (s *PermissionService) CreateShare(ctx context.Context, actorID string, fileID uuid.UUID, password *string, expiresAt *time.Time) (*domain.ShareLink, error) {
	if _, err := s.AuthorizeFile(ctx, actorID, fileID); err != nil {
		return nil, err
	}
	return s.shares.Create(ctx, fileID, password, expiresAt)
}

func (s *PermissionService) ListShares(ctx context.Context, actorID string, fileID uuid.UUID) ([]domain.ShareLink, error) {
	if _, err := s.AuthorizeFile(ctx, actorID, fileID); err != nil {
		return nil, err
	}
	return s.shares.ListByFile(ctx, fileID)
}

// DeleteShare удаляет ссылку владельца; уже удаленная ссылка не ошибка
func (s *PermissionService) DeleteShare(ctx context.Context, actorID string, shareID uuid.UUID) error {
	if _, err := s.AuthorizeShareLink(ctx, actorID, shareID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	return s.shares.Delete(ctx, shareID)
}

func (s *PermissionService) RevokeShare(ctx context.Context, actorID string, shareID uuid.UUID) error {
	if _, err := s.AuthorizeShareLink(ctx, actorID, shareID); err != nil {
		return err
	}
	return s.shares.Revoke(ctx, shareID)
}

// ShareInfo отдает публичные сведения о ссылке без проверки пароля
func (s *PermissionService) ShareInfo(ctx context.Context, token string) (*domain.ShareInfo, error) {
	link, err := s.shares.ResolveByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	file, err := s.files.GetFile(ctx, link.FileID)
	if err != nil {
		return nil, err
	}

	return &domain.ShareInfo{
		ID:            link.ID,
		FileName:      file.Name,
		FileSize:      file.SizeBytes,
		MIMEType:      file.MIMEType,
		HasPassword:   link.HasPassword(),
		ExpiresAt:     link.ExpiresAt,
		IsExpired:     s.shares.IsExpired(link),
		DownloadCount: link.DownloadCount,
	}, nil
}

// Download проверяет доступ по ссылке, учитывает скачивание и выдает адрес файла.
// Счетчик увеличивается только если адрес удалось получить.
func (s *PermissionService) Download(ctx context.Context, token string, password *string) (*domain.DownloadGrant, error) {
	link, err := s.shares.ResolveByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if decision := s.shares.CheckAccess(link, password); !decision.Allowed() {
		logging.Debug("share access denied",
			zap.String("share_id", link.ID.String()),
			zap.String("reason", string(decision.Reason)))
		return nil, decision.Err()
	}

	file, err := s.files.GetFile(ctx, link.FileID)
	if err != nil {
		return nil, err
	}

	target, err := s.downloadURL(ctx, file)
	if err != nil {
		return nil, err
	}

	if err := s.shares.RecordDownload(ctx, link.ID); err != nil {
		return nil, err
	}

	return &domain.DownloadGrant{
		DownloadURL: target,
		FileName:    file.Name,
	}, nil
}

func (s *PermissionService) downloadURL(ctx context.Context, file *domain.File) (string, error) {
	if s.store == nil {
		return file.ObjectPath, nil
	}
	url, err := s.store.PresignGet(ctx, file.ObjectPath, file.Name)
	if err != nil {
		return "", fmt.Errorf("failed to presign download: %w", err)
	}
	return url, nil
}

// deleteObjects удаляет содержимое после фиксации транзакции.
// Ошибки только логируются: метаданные уже удалены.
func (s *PermissionService) deleteObjects(ctx context.Context, keys []string) {
	if s.store == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		if err := s.store.DeleteObject(ctx, key); err != nil {
			logging.Warn("failed to delete object", zap.String("key", key), zap.Error(err))
		}
	}
}
