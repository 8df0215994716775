package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"filevault/internal/auth"
	"filevault/internal/service"
)

type ShareHandler struct {
	permissions *service.PermissionService
}

type createShareRequest struct {
	FileID    uuid.UUID  `json:"fileId"`
	Password  *string    `json:"password,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type downloadRequest struct {
	Password *string `json:"password,omitempty"`
}

func NewShareHandler(permissions *service.PermissionService) *ShareHandler {
	return &ShareHandler{permissions: permissions}
}

func (h *ShareHandler) CreateShare(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req createShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FileID == uuid.Nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request data")
		return
	}

	link, err := h.permissions.CreateShare(r.Context(), userID, req.FileID, req.Password, req.ExpiresAt)
	if err != nil {
		writeError(w, r, err, "Failed to create share link")
		return
	}

	writeJSON(w, http.StatusCreated, link)
}

func (h *ShareHandler) DeleteShare(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	shareID, ok := idParam(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid share ID")
		return
	}

	if err := h.permissions.DeleteShare(r.Context(), userID, shareID); err != nil {
		writeError(w, r, err, "Failed to delete share link")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ShareHandler) RevokeShare(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	shareID, ok := idParam(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid share ID")
		return
	}

	if err := h.permissions.RevokeShare(r.Context(), userID, shareID); err != nil {
		writeError(w, r, err, "Failed to revoke share link")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetShareInfo - публичный эндпоинт, доступен без авторизации
func (h *ShareHandler) GetShareInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.permissions.ShareInfo(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, r, err, "Failed to fetch share info")
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// Download - публичный эндпоинт; пароль приходит в теле запроса
func (h *ShareHandler) Download(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	grant, err := h.permissions.Download(r.Context(), chi.URLParam(r, "id"), req.Password)
	if err != nil {
		writeError(w, r, err, "Failed to process download")
		return
	}

	writeJSON(w, http.StatusOK, grant)
}
