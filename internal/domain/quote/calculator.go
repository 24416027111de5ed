// Package quote turns a share selection into a priced loan quote: resolved
// share count, oldest-grant-first allocation, principal and the rate, term
// and repayment options the org policy allows.
package quote

import (
	"sort"
	"time"

	"equity-lending/internal/domain/amortization"
	"equity-lending/internal/domain/eligibility"
	"equity-lending/internal/domain/errs"
	"equity-lending/internal/domain/grant"
	"equity-lending/internal/domain/membership"
	"equity-lending/internal/domain/policy"
	"equity-lending/internal/domain/vesting"

	"github.com/shopspring/decimal"
)

const StrategyOldestVestedFirst = "OLDEST_VESTED_FIRST"

type SelectionMode string

const (
	SelectionPercent SelectionMode = "PERCENT"
	SelectionShares  SelectionMode = "SHARES"
)

var hundred = decimal.NewFromInt(100)

// Request holds the caller's choices. Zero values of the Desired fields mean
// "not specified".
type Request struct {
	SelectionMode          SelectionMode          `json:"selection_mode"`
	SelectionValue         decimal.Decimal        `json:"selection_value"`
	DesiredInterestType    policy.InterestType    `json:"desired_interest_type,omitempty"`
	DesiredRepaymentMethod policy.RepaymentMethod `json:"desired_repayment_method,omitempty"`
	DesiredTermMonths      int                    `json:"desired_term_months,omitempty"`
}

type Allocation struct {
	GrantID       string          `json:"grant_id"`
	GrantDate     time.Time       `json:"grant_date"`
	Shares        int64           `json:"shares"`
	ExercisePrice decimal.Decimal `json:"exercise_price"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
}

type Option struct {
	InterestType            policy.InterestType    `json:"interest_type"`
	RepaymentMethod         policy.RepaymentMethod `json:"repayment_method"`
	TermMonths              int                    `json:"term_months"`
	NominalAnnualRate       decimal.Decimal        `json:"nominal_annual_rate"`
	EstimatedMonthlyPayment decimal.Decimal        `json:"estimated_monthly_payment"`
	TotalPayable            decimal.Decimal        `json:"total_payable"`
	TotalInterest           decimal.Decimal        `json:"total_interest"`
}

type Quote struct {
	AsOfDate               time.Time          `json:"as_of_date"`
	SelectionMode          SelectionMode      `json:"selection_mode"`
	SelectionValue         decimal.Decimal    `json:"selection_value"`
	TotalExercisableShares int64              `json:"total_exercisable_shares"`
	SharesToExercise       int64              `json:"shares_to_exercise"`
	PurchasePrice          decimal.Decimal    `json:"purchase_price"`
	DownPaymentAmount      decimal.Decimal    `json:"down_payment_amount"`
	LoanPrincipal          decimal.Decimal    `json:"loan_principal"`
	Options                []Option           `json:"options"`
	Eligibility            eligibility.Result `json:"eligibility_result"`
	AllocationStrategy     string             `json:"allocation_strategy"`
	Allocation             []Allocation       `json:"allocation"`
	PolicyVersion          int64              `json:"policy_version"`
}

// Calculate prices a request against the member's grants. reservedByGrant
// holds shares already committed to other applications; they reduce
// availability but never eligibility.
func Calculate(
	m membership.Membership,
	p policy.OrgPolicy,
	grants []grant.Grant,
	reservedByGrant map[string]int64,
	req Request,
	asOf time.Time,
) (*Quote, error) {
	asOf = vesting.Day(asOf)
	totals := vesting.Aggregate(grants, asOf)

	var reserved int64
	for _, n := range reservedByGrant {
		reserved += n
	}
	available := totals.Vested - reserved
	if available < 0 {
		available = 0
	}

	elig := eligibility.Evaluate(m, p, totals, asOf)
	if !elig.Eligible {
		return nil, errs.ErrExerciseIneligible.WithDetails(map[string]any{"reasons": elig.Reasons})
	}

	shares, err := ResolveShares(req.SelectionMode, req.SelectionValue, available)
	if err != nil {
		return nil, err
	}

	purchase, alloc := allocateOldestFirst(vesting.Summaries(grants, asOf), reservedByGrant, shares)

	down := decimal.Zero
	if p.RequireDownPayment {
		down = purchase.Mul(p.DownPaymentPercent).Div(hundred).Round(2)
	}
	principal := purchase.Sub(down).Round(2)

	opts, err := buildOptions(p, req, principal, asOf)
	if err != nil {
		return nil, err
	}

	return &Quote{
		AsOfDate:               asOf,
		SelectionMode:          req.SelectionMode,
		SelectionValue:         req.SelectionValue,
		TotalExercisableShares: available,
		SharesToExercise:       shares,
		PurchasePrice:          purchase,
		DownPaymentAmount:      down,
		LoanPrincipal:          principal,
		Options:                opts,
		Eligibility:            elig,
		AllocationStrategy:     StrategyOldestVestedFirst,
		Allocation:             alloc,
		PolicyVersion:          p.PolicyVersion,
	}, nil
}

// ResolveShares converts a selection into a whole share count bounded by
// the available total. PERCENT selections floor.
func ResolveShares(mode SelectionMode, value decimal.Decimal, available int64) (int64, error) {
	if available <= 0 {
		return 0, errs.ErrNoExercisableShares.WithDetails(map[string]any{
			"field":                    "selection_value",
			"total_exercisable_shares": available,
		})
	}

	var shares int64
	switch mode {
	case SelectionPercent:
		if !value.IsPositive() || value.GreaterThan(hundred) {
			return 0, errs.ErrInvalidSelection.WithDetails(map[string]any{
				"field":           "selection_value",
				"constraint":      "0 < value <= 100",
				"selection_value": value.String(),
			})
		}
		shares = decimal.NewFromInt(available).Mul(value).Div(hundred).Floor().IntPart()
	case SelectionShares:
		if !value.IsPositive() {
			return 0, errs.ErrInvalidSelection.WithDetails(map[string]any{
				"field":           "selection_value",
				"constraint":      "value > 0",
				"selection_value": value.String(),
			})
		}
		if !value.Equal(value.Truncate(0)) {
			return 0, errs.ErrInvalidSelection.WithDetails(map[string]any{
				"field":           "selection_value",
				"constraint":      "integer",
				"selection_value": value.String(),
			})
		}
		shares = value.IntPart()
	default:
		return 0, errs.ErrInvalidSelection.WithDetails(map[string]any{
			"field":          "selection_mode",
			"selection_mode": string(mode),
		})
	}

	if shares <= 0 {
		return 0, errs.ErrInvalidSelection.WithDetails(map[string]any{
			"field":           "selection_value",
			"constraint":      "results_in_positive_shares",
			"selection_value": value.String(),
		})
	}
	if shares > available {
		return 0, errs.ErrSharesExceedEligibility.WithDetails(map[string]any{
			"field":                    "selection_value",
			"requested_shares":         shares,
			"total_exercisable_shares": available,
		})
	}
	return shares, nil
}

func allocateOldestFirst(summaries []vesting.GrantSummary, reserved map[string]int64, shares int64) (decimal.Decimal, []Allocation) {
	sort.SliceStable(summaries, func(i, j int) bool { return summaries[i].GrantDate.Before(summaries[j].GrantDate) })

	price := decimal.Zero
	out := []Allocation{}
	remaining := shares
	for _, s := range summaries {
		if remaining <= 0 {
			break
		}
		free := s.Vested - reserved[s.GrantID]
		if free <= 0 {
			continue
		}
		take := free
		if remaining < take {
			take = remaining
		}
		line := s.ExercisePrice.Mul(decimal.NewFromInt(take)).Round(2)
		out = append(out, Allocation{
			GrantID:       s.GrantID,
			GrantDate:     s.GrantDate,
			Shares:        take,
			ExercisePrice: s.ExercisePrice,
			PurchasePrice: line,
		})
		price = price.Add(line)
		remaining -= take
	}
	return price, out
}

func buildOptions(p policy.OrgPolicy, req Request, principal decimal.Decimal, asOf time.Time) ([]Option, error) {
	if req.DesiredInterestType != "" && !p.AllowsInterestType(req.DesiredInterestType) {
		return nil, errs.ErrInterestTypeNotAllowed.WithDetails(map[string]any{
			"field":                  "desired_interest_type",
			"allowed_interest_types": p.AllowedInterestTypes,
		})
	}
	if req.DesiredRepaymentMethod != "" && !p.AllowsRepaymentMethod(req.DesiredRepaymentMethod) {
		return nil, errs.ErrRepaymentMethodNotAllowed.WithDetails(map[string]any{
			"field":                     "desired_repayment_method",
			"allowed_repayment_methods": p.AllowedRepaymentMethods,
		})
	}

	term := req.DesiredTermMonths
	if term == 0 {
		term = p.MinTermMonths
	}
	if term < 1 || term < p.MinTermMonths || term > p.MaxTermMonths {
		return nil, errs.ErrInvalidTerm.WithDetails(map[string]any{
			"field":                "desired_term_months",
			"min_loan_term_months": p.MinTermMonths,
			"max_loan_term_months": p.MaxTermMonths,
		})
	}

	types := p.AllowedInterestTypes
	if req.DesiredInterestType != "" {
		types = []policy.InterestType{req.DesiredInterestType}
	}
	methods := p.AllowedRepaymentMethods
	if req.DesiredRepaymentMethod != "" {
		methods = []policy.RepaymentMethod{req.DesiredRepaymentMethod}
	}

	var out []Option
	for _, it := range types {
		rate := p.FixedRateAnnualPercent
		if it == policy.InterestVariable {
			var ok bool
			if rate, ok = p.VariableRate(); !ok {
				return nil, errs.ErrVariableRateMissing.WithDetails(map[string]any{
					"variable_base_rate_annual_percent": p.VariableBaseRateAnnualPercent,
					"variable_margin_annual_percent":    p.VariableMarginAnnualPercent,
				})
			}
		}
		for _, rm := range methods {
			s, err := amortization.Build(amortization.Params{
				Principal:         principal,
				AnnualRatePercent: rate,
				TermMonths:        term,
				Method:            rm,
				StartDate:         asOf,
			})
			if err != nil {
				return nil, err
			}
			out = append(out, Option{
				InterestType:            it,
				RepaymentMethod:         rm,
				TermMonths:              term,
				NominalAnnualRate:       rate,
				EstimatedMonthlyPayment: s.EstimatedPayment,
				TotalPayable:            s.TotalPayment,
				TotalInterest:           s.TotalInterest,
			})
		}
	}
	if len(out) == 0 {
		return nil, errs.ErrNoQuoteOptions.WithDetails(map[string]any{})
	}
	return out, nil
}
