package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"filevault/internal/auth"
	"filevault/internal/service"
)

type FolderHandler struct {
	permissions *service.PermissionService
}

type createFolderRequest struct {
	Name     string     `json:"name"`
	ParentID *uuid.UUID `json:"parentId,omitempty"`
}

func NewFolderHandler(permissions *service.PermissionService) *FolderHandler {
	return &FolderHandler{permissions: permissions}
}

func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req createFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	folder, err := h.permissions.CreateFolder(r.Context(), userID, req.Name, req.ParentID)
	if err != nil {
		writeError(w, r, err, "Failed to create folder")
		return
	}

	writeJSON(w, http.StatusCreated, folder)
}

func (h *FolderHandler) ListFolders(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	parentID, ok := optionalID(r, "parentId")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid parent ID")
		return
	}

	folders, err := h.permissions.ListFolders(r.Context(), userID, parentID)
	if err != nil {
		writeError(w, r, err, "Failed to fetch folders")
		return
	}

	writeJSON(w, http.StatusOK, folders)
}

func (h *FolderHandler) GetFolderPath(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	folderID, ok := idParam(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid folder ID")
		return
	}

	path, err := h.permissions.FolderPath(r.Context(), userID, folderID)
	if err != nil {
		writeError(w, r, err, "Failed to fetch folder path")
		return
	}

	writeJSON(w, http.StatusOK, path)
}

func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	folderID, ok := idParam(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid folder ID")
		return
	}

	if _, err := h.permissions.DeleteFolder(r.Context(), userID, folderID); err != nil {
		writeError(w, r, err, "Failed to delete folder")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
