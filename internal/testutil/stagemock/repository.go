package stagemock

import (
	"context"

	domain "equity-lending/internal/domain/workflow"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Writes default to no-ops; reads default to context.Canceled.
type Repo struct {
	ListByApplicationFn   func(ctx context.Context, appID string) ([]domain.Stage, error)
	CreateBatchFn         func(ctx context.Context, stages []domain.Stage) error
	SaveFn                func(ctx context.Context, s *domain.Stage) error
	GetByTypeForUpdateFn  func(ctx context.Context, appID string, t domain.StageType) (*domain.Stage, error)
	ResetForApplicationFn func(ctx context.Context, appID string) error
	DeleteByApplicationFn func(ctx context.Context, appID string) error
}

func (m *Repo) ListByApplication(ctx context.Context, appID string) ([]domain.Stage, error) {
	if m.ListByApplicationFn != nil {
		return m.ListByApplicationFn(ctx, appID)
	}
	return nil, context.Canceled
}

func (m *Repo) CreateBatch(ctx context.Context, stages []domain.Stage) error {
	if m.CreateBatchFn != nil {
		return m.CreateBatchFn(ctx, stages)
	}
	return nil
}

func (m *Repo) Save(ctx context.Context, s *domain.Stage) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, s)
	}
	return nil
}

func (m *Repo) GetByTypeForUpdate(ctx context.Context, appID string, t domain.StageType) (*domain.Stage, error) {
	if m.GetByTypeForUpdateFn != nil {
		return m.GetByTypeForUpdateFn(ctx, appID, t)
	}
	return nil, context.Canceled
}

func (m *Repo) ResetForApplication(ctx context.Context, appID string) error {
	if m.ResetForApplicationFn != nil {
		return m.ResetForApplicationFn(ctx, appID)
	}
	return nil
}

func (m *Repo) DeleteByApplication(ctx context.Context, appID string) error {
	if m.DeleteByApplicationFn != nil {
		return m.DeleteByApplicationFn(ctx, appID)
	}
	return nil
}
