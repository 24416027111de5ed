package membership

import (
	"strings"
	"time"
)

const StatusActive = "ACTIVE"

type MaritalStatus string

const (
	MaritalSingle          MaritalStatus = "SINGLE"
	MaritalMarried         MaritalStatus = "MARRIED"
	MaritalDomesticPartner MaritalStatus = "DOMESTIC_PARTNER"
	MaritalDivorced        MaritalStatus = "DIVORCED"
	MaritalSeparated       MaritalStatus = "SEPARATED"
	MaritalWidowed         MaritalStatus = "WIDOWED"
	MaritalUnknown         MaritalStatus = "UNKNOWN"
)

// Membership is the read model of an employee inside an org. Rows are owned
// by the onboarding side; this service only reads them.
// Table: memberships
type Membership struct {
	ID                  string     `gorm:"column:id;type:char(32);primaryKey" json:"id"`
	OrgID               string     `gorm:"column:org_id;type:char(32);not null;index" json:"org_id"`
	UserID              string     `gorm:"column:user_id;type:char(32);not null" json:"user_id"`
	EmploymentStatus    string     `gorm:"column:employment_status;size:20;not null" json:"employment_status"`
	PlatformStatus      string     `gorm:"column:platform_status;size:20;not null" json:"platform_status"`
	EmploymentStartDate *time.Time `gorm:"column:employment_start_date;type:date" json:"employment_start_date"`
	MaritalStatus       string     `gorm:"column:marital_status;size:32" json:"marital_status"`
}

func (Membership) TableName() string { return "memberships" }

// Active reports whether both employment and platform status are ACTIVE.
func (m Membership) Active() bool {
	return strings.EqualFold(m.EmploymentStatus, StatusActive) && strings.EqualFold(m.PlatformStatus, StatusActive)
}

var maritalAliases = map[string]MaritalStatus{
	"DOMESTICPARTNER":      MaritalDomesticPartner,
	"DOMESTIC_PARTNERSHIP": MaritalDomesticPartner,
	"PARTNER":              MaritalDomesticPartner,
	"UNSPECIFIED":          MaritalUnknown,
	"N/A":                  MaritalUnknown,
	"NA":                   MaritalUnknown,
	"NONE":                 MaritalUnknown,
}

var maritalKnown = map[MaritalStatus]struct{}{
	MaritalSingle: {}, MaritalMarried: {}, MaritalDomesticPartner: {}, MaritalDivorced: {},
	MaritalSeparated: {}, MaritalWidowed: {}, MaritalUnknown: {},
}

// NormalizeMaritalStatus maps free-form input onto MaritalStatus. Blank input
// yields "" (not provided); unrecognised values yield MaritalUnknown.
func NormalizeMaritalStatus(s string) MaritalStatus {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	n := strings.ToUpper(s)
	n = strings.ReplaceAll(n, "-", "_")
	n = strings.ReplaceAll(n, " ", "_")
	if v, ok := maritalAliases[n]; ok {
		return v
	}
	if _, ok := maritalKnown[MaritalStatus(n)]; ok {
		return MaritalStatus(n)
	}
	return MaritalUnknown
}

// RequiresSpouse reports whether the status implies a partner whose details
// must accompany a submission.
func (s MaritalStatus) RequiresSpouse() bool {
	return s == MaritalMarried || s == MaritalDomesticPartner
}
