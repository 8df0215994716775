package domain

import (
	"time"

	"github.com/google/uuid"
)

type File struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	Name       string     `json:"name" db:"name"`
	SizeBytes  int64      `json:"size" db:"size_bytes"`
	MIMEType   string     `json:"mimeType" db:"mime_type"`
	ObjectPath string     `json:"objectPath" db:"object_path"` // ключ в blob-хранилище
	FolderID   *uuid.UUID `json:"folderId" db:"folder_id"`
	OwnerID    string     `json:"ownerId" db:"owner_id"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
}

// FileRegistration - входные данные для регистрации уже загруженного файла
type FileRegistration struct {
	Name       string
	SizeBytes  int64
	MIMEType   string
	ObjectPath string
	FolderID   *uuid.UUID
	OwnerID    string
}
