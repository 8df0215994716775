package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"filevault/internal/auth"
	"filevault/internal/domain"
	"filevault/internal/service"
)

type FileHandler struct {
	permissions *service.PermissionService
}

type registerFileRequest struct {
	Name       string     `json:"name"`
	Size       int64      `json:"size"`
	MIMEType   string     `json:"mimeType"`
	ObjectPath string     `json:"objectPath"`
	FolderID   *uuid.UUID `json:"folderId,omitempty"`
}

func NewFileHandler(permissions *service.PermissionService) *FileHandler {
	return &FileHandler{permissions: permissions}
}

// RegisterFile сохраняет метаданные файла после загрузки в хранилище
func (h *FileHandler) RegisterFile(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req registerFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid file data")
		return
	}

	file, err := h.permissions.RegisterFile(r.Context(), userID, domain.FileRegistration{
		Name:       req.Name,
		SizeBytes:  req.Size,
		MIMEType:   req.MIMEType,
		ObjectPath: req.ObjectPath,
		FolderID:   req.FolderID,
	})
	if err != nil {
		writeError(w, r, err, "Failed to create file")
		return
	}

	writeJSON(w, http.StatusCreated, file)
}

func (h *FileHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	folderID, ok := optionalID(r, "folderId")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid folder ID")
		return
	}

	files, err := h.permissions.ListFiles(r.Context(), userID, folderID)
	if err != nil {
		writeError(w, r, err, "Failed to fetch files")
		return
	}

	writeJSON(w, http.StatusOK, files)
}

func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	fileID, ok := idParam(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid file ID")
		return
	}

	if err := h.permissions.DeleteFile(r.Context(), userID, fileID); err != nil {
		writeError(w, r, err, "Failed to delete file")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *FileHandler) ListShares(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	fileID, ok := idParam(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid file ID")
		return
	}

	links, err := h.permissions.ListShares(r.Context(), userID, fileID)
	if err != nil {
		writeError(w, r, err, "Failed to fetch share links")
		return
	}

	writeJSON(w, http.StatusOK, links)
}
