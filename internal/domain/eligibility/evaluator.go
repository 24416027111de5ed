// Package eligibility decides whether a member may exercise shares under an
// org policy. All violations are collected; nothing short-circuits.
package eligibility

import (
	"fmt"
	"time"

	"equity-lending/internal/domain/membership"
	"equity-lending/internal/domain/policy"
	"equity-lending/internal/domain/vesting"

	"github.com/shopspring/decimal"
)

type ReasonCode string

const (
	ReasonEmploymentInactive          ReasonCode = "EMPLOYMENT_INACTIVE"
	ReasonInsufficientServiceDuration ReasonCode = "INSUFFICIENT_SERVICE_DURATION"
	ReasonBelowMinVestedThreshold     ReasonCode = "BELOW_MIN_VESTED_THRESHOLD"
	ReasonNoVestedShares              ReasonCode = "NO_VESTED_SHARES"
)

type Reason struct {
	Code    ReasonCode `json:"code"`
	Message string     `json:"message"`
}

type Result struct {
	Eligible            bool     `json:"eligible_to_exercise"`
	TotalGrantedShares  int64    `json:"total_granted_shares"`
	TotalVestedShares   int64    `json:"total_vested_shares"`
	TotalUnvestedShares int64    `json:"total_unvested_shares"`
	Reasons             []Reason `json:"reasons"`
}

// Codes returns the reason codes in evaluation order.
func (r Result) Codes() []ReasonCode {
	out := make([]ReasonCode, 0, len(r.Reasons))
	for _, x := range r.Reasons {
		out = append(out, x.Code)
	}
	return out
}

var daysPerYear = decimal.RequireFromString("365.25")

func Evaluate(m membership.Membership, p policy.OrgPolicy, totals vesting.Totals, asOf time.Time) Result {
	reasons := []Reason{}

	if !m.Active() {
		reasons = append(reasons, Reason{ReasonEmploymentInactive, "Employment or platform status is not active"})
	}

	if p.EnforceServiceDurationRule {
		if m.EmploymentStartDate == nil {
			reasons = append(reasons, Reason{ReasonInsufficientServiceDuration, "Employment start date is missing"})
		} else {
			days := int64(vesting.Day(asOf).Sub(vesting.Day(*m.EmploymentStartDate)).Hours() / 24)
			served := decimal.NewFromInt(days).Div(daysPerYear)
			required := decimal.NewFromInt(int64(p.MinServiceDurationDays)).Div(daysPerYear)
			if served.LessThan(required) {
				reasons = append(reasons, Reason{
					ReasonInsufficientServiceDuration,
					fmt.Sprintf("Minimum service duration is %s years", required.Round(2).String()),
				})
			}
		}
	}

	if p.EnforceMinVestedToExercise {
		if totals.Vested < p.MinVestedSharesToExercise {
			reasons = append(reasons, Reason{
				ReasonBelowMinVestedThreshold,
				fmt.Sprintf("Minimum vested shares required is %d", p.MinVestedSharesToExercise),
			})
		}
	} else if totals.Vested <= 0 {
		reasons = append(reasons, Reason{ReasonNoVestedShares, "No vested shares are available to exercise"})
	}

	return Result{
		Eligible:            len(reasons) == 0,
		TotalGrantedShares:  totals.Granted,
		TotalVestedShares:   totals.Vested,
		TotalUnvestedShares: totals.Unvested,
		Reasons:             reasons,
	}
}
