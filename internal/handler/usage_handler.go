package handler

import (
	"net/http"

	"filevault/internal/auth"
	"filevault/internal/service"
)

type UsageHandler struct {
	usageService *service.UsageService
}

func NewUsageHandler(usageService *service.UsageService) *UsageHandler {
	return &UsageHandler{usageService: usageService}
}

func (h *UsageHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.usageService.GetStats(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, r, err, "Failed to fetch stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
