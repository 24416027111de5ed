package workflow

import "context"

type Repository interface {
	ListByApplication(ctx context.Context, appID string) ([]Stage, error)
	CreateBatch(ctx context.Context, stages []Stage) error
	Save(ctx context.Context, s *Stage) error
	GetByTypeForUpdate(ctx context.Context, appID string, t StageType) (*Stage, error)

	// ResetForApplication sets every stage of the application back to PENDING.
	ResetForApplication(ctx context.Context, appID string) error
	DeleteByApplication(ctx context.Context, appID string) error
}
