package document

import (
	"context"
	"time"
)

// LoanDocument is metadata for an uploaded file; blobs live elsewhere.
// Table: loan_documents
type LoanDocument struct {
	ID                string    `gorm:"column:id;type:char(32);primaryKey" json:"id"`
	LoanApplicationID string    `gorm:"column:loan_application_id;type:char(32);not null;index:idx_loan_docs_app_stage,priority:1" json:"loan_application_id"`
	StageType         string    `gorm:"column:stage_type;size:32;not null;index:idx_loan_docs_app_stage,priority:2" json:"stage_type"`
	DocumentType      string    `gorm:"column:document_type;size:64;not null" json:"document_type"`
	StorageKey        string    `gorm:"column:storage_key;type:text;not null" json:"storage_key"`
	UploadedBy        string    `gorm:"column:uploaded_by;size:64" json:"uploaded_by"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (LoanDocument) TableName() string { return "loan_documents" }

type Repository interface {
	Create(ctx context.Context, d *LoanDocument) error
	ListByApplication(ctx context.Context, appID string) ([]LoanDocument, error)

	// TypesForStage returns the distinct document types attached to a stage.
	TypesForStage(ctx context.Context, appID, stageType string) ([]string, error)
	DeleteByApplication(ctx context.Context, appID string) error
}

// MissingTypes returns required types absent from present, in required order.
func MissingTypes(required, present []string) []string {
	have := make(map[string]bool, len(present))
	for _, p := range present {
		have[p] = true
	}
	var out []string
	for _, r := range required {
		if !have[r] {
			out = append(out, r)
		}
	}
	return out
}
