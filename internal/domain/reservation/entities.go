package reservation

import "time"

// Status mirrors the owning application's status.
type Status string

const (
	StatusSubmitted Status = "SUBMITTED"
	StatusInReview  Status = "IN_REVIEW"
	StatusActive    Status = "ACTIVE"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
)

// ActiveStatuses hold capacity on a grant.
var ActiveStatuses = []Status{StatusSubmitted, StatusInReview, StatusActive}

func (s Status) Holds() bool {
	for _, a := range ActiveStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// Table: share_reservations
type ShareReservation struct {
	ID                string    `gorm:"column:id;type:char(32);primaryKey" json:"id"`
	GrantID           string    `gorm:"column:grant_id;type:char(32);not null;uniqueIndex:ux_share_res_grant_app,priority:1;index:idx_share_res_grant_status,priority:1" json:"grant_id"`
	LoanApplicationID string    `gorm:"column:loan_application_id;type:char(32);not null;uniqueIndex:ux_share_res_grant_app,priority:2;index" json:"loan_application_id"`
	MembershipID      string    `gorm:"column:membership_id;type:char(32);not null" json:"membership_id"`
	SharesReserved    int64     `gorm:"column:shares_reserved;not null" json:"shares_reserved"`
	Status            Status    `gorm:"column:status;size:20;not null;index:idx_share_res_grant_status,priority:2" json:"status"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (ShareReservation) TableName() string { return "share_reservations" }
