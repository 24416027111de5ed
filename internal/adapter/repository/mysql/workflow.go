package mysql

import (
	"context"

	workflowDomain "equity-lending/internal/domain/workflow"

	"gorm.io/gorm"
)

type StageRepository struct{ db *gorm.DB }

func NewStageRepository(db *gorm.DB) *StageRepository { return &StageRepository{db: db} }

func (r *StageRepository) ListByApplication(ctx context.Context, appID string) ([]workflowDomain.Stage, error) {
	var out []workflowDomain.Stage
	res := r.db.WithContext(ctx).
		Where("loan_application_id = ?", appID).
		Order("created_at ASC, id ASC").
		Find(&out)
	return out, res.Error
}

func (r *StageRepository) CreateBatch(ctx context.Context, stages []workflowDomain.Stage) error {
	if len(stages) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&stages).Error
}

func (r *StageRepository) Save(ctx context.Context, s *workflowDomain.Stage) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *StageRepository) GetByTypeForUpdate(ctx context.Context, appID string, t workflowDomain.StageType) (*workflowDomain.Stage, error) {
	var out workflowDomain.Stage
	res := forUpdate(r.db.WithContext(ctx)).
		Where("loan_application_id = ? AND stage_type = ?", appID, t).
		First(&out)
	return &out, res.Error
}

func (r *StageRepository) ResetForApplication(ctx context.Context, appID string) error {
	return r.db.WithContext(ctx).
		Model(&workflowDomain.Stage{}).
		Where("loan_application_id = ?", appID).
		Updates(map[string]any{
			"status":       workflowDomain.StagePending,
			"completed_by": nil,
			"completed_at": nil,
		}).Error
}

func (r *StageRepository) DeleteByApplication(ctx context.Context, appID string) error {
	return r.db.WithContext(ctx).
		Where("loan_application_id = ?", appID).
		Delete(&workflowDomain.Stage{}).Error
}
