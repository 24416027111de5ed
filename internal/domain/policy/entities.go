package policy

import (
	"time"

	"github.com/shopspring/decimal"
)

type InterestType string

const (
	InterestFixed    InterestType = "FIXED"
	InterestVariable InterestType = "VARIABLE"
)

type RepaymentMethod string

const (
	RepaymentPrincipalAndInterest RepaymentMethod = "PRINCIPAL_AND_INTEREST"
	RepaymentInterestOnly         RepaymentMethod = "INTEREST_ONLY"
	RepaymentBalloon              RepaymentMethod = "BALLOON"
)

// OrgPolicy is the lending configuration of one org. It is loaded once per
// operation and passed by value; PolicyVersion bumps on every change.
// Table: org_policies
type OrgPolicy struct {
	OrgID         string `gorm:"column:org_id;type:char(32);primaryKey" json:"org_id"`
	PolicyVersion int64  `gorm:"column:policy_version;not null;default:1" json:"policy_version"`

	EnforceServiceDurationRule bool  `gorm:"column:enforce_service_duration_rule;not null" json:"enforce_service_duration_rule"`
	MinServiceDurationDays     int   `gorm:"column:min_service_duration_days;not null" json:"min_service_duration_days"`
	EnforceMinVestedToExercise bool  `gorm:"column:enforce_min_vested_to_exercise;not null" json:"enforce_min_vested_to_exercise"`
	MinVestedSharesToExercise  int64 `gorm:"column:min_vested_shares_to_exercise;not null" json:"min_vested_shares_to_exercise"`

	AllowedInterestTypes    []InterestType    `gorm:"column:allowed_interest_types;type:text;serializer:json" json:"allowed_interest_types"`
	AllowedRepaymentMethods []RepaymentMethod `gorm:"column:allowed_repayment_methods;type:text;serializer:json" json:"allowed_repayment_methods"`
	MinTermMonths           int               `gorm:"column:min_loan_term_months;not null" json:"min_loan_term_months"`
	MaxTermMonths           int               `gorm:"column:max_loan_term_months;not null" json:"max_loan_term_months"`

	FixedRateAnnualPercent        decimal.Decimal     `gorm:"column:fixed_interest_rate_annual_percent;type:decimal(9,4);not null" json:"fixed_interest_rate_annual_percent"`
	VariableBaseRateAnnualPercent decimal.NullDecimal `gorm:"column:variable_base_rate_annual_percent;type:decimal(9,4)" json:"variable_base_rate_annual_percent"`
	VariableMarginAnnualPercent   decimal.NullDecimal `gorm:"column:variable_margin_annual_percent;type:decimal(9,4)" json:"variable_margin_annual_percent"`

	RequireDownPayment bool            `gorm:"column:require_down_payment;not null" json:"require_down_payment"`
	DownPaymentPercent decimal.Decimal `gorm:"column:down_payment_percent;type:decimal(9,4);not null" json:"down_payment_percent"`

	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"-"`
}

func (OrgPolicy) TableName() string { return "org_policies" }

func (p OrgPolicy) AllowsInterestType(t InterestType) bool {
	for _, v := range p.AllowedInterestTypes {
		if v == t {
			return true
		}
	}
	return false
}

func (p OrgPolicy) AllowsRepaymentMethod(m RepaymentMethod) bool {
	for _, v := range p.AllowedRepaymentMethods {
		if v == m {
			return true
		}
	}
	return false
}

// VariableRate returns base+margin, or false when either part is unset.
func (p OrgPolicy) VariableRate() (decimal.Decimal, bool) {
	if !p.VariableBaseRateAnnualPercent.Valid || !p.VariableMarginAnnualPercent.Valid {
		return decimal.Zero, false
	}
	return p.VariableBaseRateAnnualPercent.Decimal.Add(p.VariableMarginAnnualPercent.Decimal), true
}
