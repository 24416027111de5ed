package mysql

import (
	"context"

	documentDomain "equity-lending/internal/domain/document"

	"gorm.io/gorm"
)

type DocumentRepository struct{ db *gorm.DB }

func NewDocumentRepository(db *gorm.DB) *DocumentRepository { return &DocumentRepository{db: db} }

func (r *DocumentRepository) Create(ctx context.Context, d *documentDomain.LoanDocument) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *DocumentRepository) ListByApplication(ctx context.Context, appID string) ([]documentDomain.LoanDocument, error) {
	var out []documentDomain.LoanDocument
	res := r.db.WithContext(ctx).
		Where("loan_application_id = ?", appID).
		Order("created_at ASC, id ASC").
		Find(&out)
	return out, res.Error
}

func (r *DocumentRepository) TypesForStage(ctx context.Context, appID, stageType string) ([]string, error) {
	var out []string
	res := r.db.WithContext(ctx).
		Model(&documentDomain.LoanDocument{}).
		Where("loan_application_id = ? AND stage_type = ?", appID, stageType).
		Distinct().
		Pluck("document_type", &out)
	return out, res.Error
}

func (r *DocumentRepository) DeleteByApplication(ctx context.Context, appID string) error {
	return r.db.WithContext(ctx).
		Where("loan_application_id = ?", appID).
		Delete(&documentDomain.LoanDocument{}).Error
}
