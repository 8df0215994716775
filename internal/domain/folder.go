package domain

import (
	"time"

	"github.com/google/uuid"
)

type Folder struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	ParentID  *uuid.UUID `json:"parentId" db:"parent_id"`
	OwnerID   string     `json:"ownerId" db:"owner_id"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
}

// FolderDeletion описывает результат каскадного удаления поддерева
type FolderDeletion struct {
	Folders     int      `json:"folders"`
	Files       int      `json:"files"`
	ShareLinks  int      `json:"shareLinks"`
	ObjectPaths []string `json:"-"`
}
