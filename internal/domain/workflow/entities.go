package workflow

import (
	"time"

	"equity-lending/pkg/id"
)

type StageType string

const (
	StageHRReview            StageType = "HR_REVIEW"
	StageFinanceProcessing   StageType = "FINANCE_PROCESSING"
	StageLegalExecution      StageType = "LEGAL_EXECUTION"
	StageLegalPostIssuance   StageType = "LEGAL_POST_ISSUANCE"
	StageBorrower83bElection StageType = "BORROWER_83B_ELECTION"
)

type StageStatus string

const (
	StagePending    StageStatus = "PENDING"
	StageInProgress StageStatus = "IN_PROGRESS"
	StageCompleted  StageStatus = "COMPLETED"
)

// Election83bWindow is how long after activation the borrower has to file.
const Election83bWindow = 30 * 24 * time.Hour

type Definition struct {
	Type     StageType
	RoleHint string
}

// CoreStages are created on submit; all must complete before activation.
var CoreStages = []Definition{
	{StageHRReview, "HR"},
	{StageFinanceProcessing, "FINANCE"},
	{StageLegalExecution, "LEGAL"},
}

// PostActivationStages are created once the loan is ACTIVE.
var PostActivationStages = []Definition{
	{StageLegalPostIssuance, "LEGAL"},
	{StageBorrower83bElection, "BORROWER"},
}

// requiredDocuments gates completion of a stage; the caller enforces it.
var requiredDocuments = map[StageType][]string{
	StageHRReview:            {"NOTICE_OF_STOCK_OPTION_GRANT", "SPOUSE_PARTNER_CONSENT"},
	StageFinanceProcessing:   {"PAYMENT_INSTRUCTIONS"},
	StageLegalExecution:      {"STOCK_OPTION_EXERCISE_AND_LOAN_AGREEMENT"},
	StageLegalPostIssuance:   {"SHARE_CERTIFICATE"},
	StageBorrower83bElection: {"SECTION_83B_ELECTION"},
}

func RequiredDocuments(t StageType) []string { return requiredDocuments[t] }

func ValidStageType(t StageType) bool {
	_, ok := requiredDocuments[t]
	return ok
}

// Table: workflow_stages
type Stage struct {
	ID                string      `gorm:"column:id;type:char(32);primaryKey" json:"id"`
	LoanApplicationID string      `gorm:"column:loan_application_id;type:char(32);not null;uniqueIndex:ux_workflow_stages_app_type,priority:1" json:"loan_application_id"`
	StageType         StageType   `gorm:"column:stage_type;size:32;not null;uniqueIndex:ux_workflow_stages_app_type,priority:2" json:"stage_type"`
	Status            StageStatus `gorm:"column:status;size:20;not null" json:"status"`
	AssignedRoleHint  string      `gorm:"column:assigned_role_hint;size:20" json:"assigned_role_hint"`
	CompletedBy       *string     `gorm:"column:completed_by;size:64" json:"completed_by"`
	CompletedAt       *time.Time  `gorm:"column:completed_at" json:"completed_at"`
	Notes             string      `gorm:"column:notes;type:text" json:"notes"`
	CreatedAt         time.Time   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time   `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Stage) TableName() string { return "workflow_stages" }

// Missing returns the definitions not yet present in existing.
func Missing(existing []Stage, defs []Definition) []Definition {
	have := make(map[StageType]bool, len(existing))
	for _, s := range existing {
		have[s.StageType] = true
	}
	var out []Definition
	for _, d := range defs {
		if !have[d.Type] {
			out = append(out, d)
		}
	}
	return out
}

// CoreCompleted reports whether every core stage is present and COMPLETED.
func CoreCompleted(stages []Stage) bool {
	done := map[StageType]bool{}
	for _, s := range stages {
		if s.Status == StageCompleted {
			done[s.StageType] = true
		}
	}
	for _, d := range CoreStages {
		if !done[d.Type] {
			return false
		}
	}
	return true
}

// Complete marks the stage done by actor at now.
func (s *Stage) Complete(actor string, now time.Time) {
	s.Status = StageCompleted
	s.CompletedBy = &actor
	s.CompletedAt = &now
}

// Reset puts the stage back to PENDING and clears completion data.
func (s *Stage) Reset() {
	s.Status = StagePending
	s.CompletedBy = nil
	s.CompletedAt = nil
}

// NewStages builds PENDING stages for defs.
func NewStages(appID string, defs []Definition) []Stage {
	out := make([]Stage, 0, len(defs))
	for _, d := range defs {
		out = append(out, Stage{
			ID:                id.NewID32(),
			LoanApplicationID: appID,
			StageType:         d.Type,
			Status:            StagePending,
			AssignedRoleHint:  d.RoleHint,
		})
	}
	return out
}

// Election83bDue is the last calendar day to file an 83(b) election for a
// loan activated at activatedAt.
func Election83bDue(activatedAt time.Time) time.Time {
	y, m, d := activatedAt.UTC().Add(Election83bWindow).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
