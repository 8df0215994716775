package service

import (
	"context"

	"filevault/internal/domain"
	"filevault/internal/repository"
)

type UsageService struct {
	usageRepo *repository.UsageRepository
}

func NewUsageService(usageRepo *repository.UsageRepository) *UsageService {
	return &UsageService{usageRepo: usageRepo}
}

func (s *UsageService) GetStats(ctx context.Context, ownerID string) (*domain.UsageStats, error) {
	return s.usageRepo.GetStats(ctx, ownerID)
}
