package workflow

import (
	"time"

	"equity-lending/internal/domain/loan"
	domain "equity-lending/internal/domain/workflow"
)

type UpdateStageInput struct {
	ApplicationID string
	StageType     domain.StageType
	Status        domain.StageStatus
	Notes         *string
	Actor         string
	Now           time.Time
}

type StageResult struct {
	Stage       domain.Stage          `json:"stage"`
	Application *loan.LoanApplication `json:"application"`
	Activated   bool                  `json:"activated"`
}

type AttachDocumentInput struct {
	ApplicationID string
	StageType     domain.StageType
	DocumentType  string
	StorageKey    string
	Actor         string
}
