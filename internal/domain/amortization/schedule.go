// Package amortization builds repayment schedules with fixed-point money.
// Every money value is rounded half-up to cents per period.
package amortization

import (
	"fmt"
	"time"

	"equity-lending/internal/domain/errs"
	"equity-lending/internal/domain/policy"

	"github.com/shopspring/decimal"
)

const (
	moneyPlaces  = 2
	factorPlaces = 20
)

var monthsPerYearPercent = decimal.NewFromInt(1200)

type Params struct {
	Principal         decimal.Decimal
	AnnualRatePercent decimal.Decimal
	TermMonths        int
	Method            policy.RepaymentMethod
	StartDate         time.Time
}

type Entry struct {
	Period           int             `json:"period"`
	DueDate          time.Time       `json:"due_date"`
	Payment          decimal.Decimal `json:"payment"`
	Principal        decimal.Decimal `json:"principal"`
	Interest         decimal.Decimal `json:"interest"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
}

type Schedule struct {
	Principal         decimal.Decimal        `json:"principal"`
	AnnualRatePercent decimal.Decimal        `json:"annual_rate_percent"`
	TermMonths        int                    `json:"term_months"`
	Method            policy.RepaymentMethod `json:"repayment_method"`
	StartDate         time.Time              `json:"start_date"`
	EstimatedPayment  decimal.Decimal        `json:"estimated_monthly_payment"`
	Entries           []Entry                `json:"entries"`
	TotalPayment      decimal.Decimal        `json:"total_payment"`
	TotalPrincipal    decimal.Decimal        `json:"total_principal"`
	TotalInterest     decimal.Decimal        `json:"total_interest"`
}

func money(d decimal.Decimal) decimal.Decimal { return d.Round(moneyPlaces) }

func MonthlyRate(annualRatePercent decimal.Decimal) decimal.Decimal {
	return annualRatePercent.Div(monthsPerYearPercent)
}

// compound returns (1+r)^n, rounding each step so precision stays bounded.
func compound(r decimal.Decimal, n int) decimal.Decimal {
	base := decimal.NewFromInt(1).Add(r)
	out := decimal.NewFromInt(1)
	for i := 0; i < n; i++ {
		out = out.Mul(base).Round(factorPlaces)
	}
	return out
}

// EstimatedPayment is the level periodic payment: the annuity payment for
// PRINCIPAL_AND_INTEREST, the interest-only payment otherwise.
func EstimatedPayment(principal, annualRatePercent decimal.Decimal, termMonths int, method policy.RepaymentMethod) decimal.Decimal {
	if termMonths <= 0 {
		return decimal.Zero
	}
	r := MonthlyRate(annualRatePercent)
	if method != policy.RepaymentPrincipalAndInterest {
		return money(principal.Mul(r))
	}
	if r.IsZero() {
		return money(principal.Div(decimal.NewFromInt(int64(termMonths))))
	}
	f := compound(r, termMonths)
	return money(principal.Mul(r).Mul(f).Div(f.Sub(decimal.NewFromInt(1))))
}

func validate(p Params) error {
	if p.TermMonths <= 0 {
		return errs.ErrInvalidTerm.WithDetails(map[string]any{"field": "term_months", "term_months": p.TermMonths})
	}
	if p.Principal.IsNegative() {
		return fmt.Errorf("amortization: negative principal %s", p.Principal)
	}
	if p.AnnualRatePercent.IsNegative() {
		return fmt.Errorf("amortization: negative rate %s", p.AnnualRatePercent)
	}
	switch p.Method {
	case policy.RepaymentPrincipalAndInterest, policy.RepaymentInterestOnly, policy.RepaymentBalloon:
		return nil
	}
	return errs.ErrRepaymentMethodNotAllowed.WithDetails(map[string]any{"repayment_method": string(p.Method)})
}

func Build(p Params) (Schedule, error) {
	if err := validate(p); err != nil {
		return Schedule{}, err
	}
	principal := money(p.Principal)
	r := MonthlyRate(p.AnnualRatePercent)
	payment := EstimatedPayment(principal, p.AnnualRatePercent, p.TermMonths, p.Method)
	start := day(p.StartDate)

	s := Schedule{
		Principal:         principal,
		AnnualRatePercent: p.AnnualRatePercent,
		TermMonths:        p.TermMonths,
		Method:            p.Method,
		StartDate:         start,
		EstimatedPayment:  payment,
		Entries:           make([]Entry, 0, p.TermMonths),
	}

	balance := principal
	for period := 1; period <= p.TermMonths; period++ {
		var interest, paid decimal.Decimal
		last := period == p.TermMonths

		if p.Method == policy.RepaymentPrincipalAndInterest {
			interest = money(balance.Mul(r))
			paid = payment.Sub(interest)
			if last || paid.GreaterThan(balance) {
				paid = balance
			}
			if paid.IsNegative() {
				paid = decimal.Zero
			}
		} else {
			interest = money(principal.Mul(r))
			paid = decimal.Zero
			if last {
				paid = balance
			}
		}

		balance = balance.Sub(paid)
		s.Entries = append(s.Entries, Entry{
			Period:           period,
			DueDate:          AddMonths(start, period),
			Payment:          paid.Add(interest),
			Principal:        paid,
			Interest:         interest,
			RemainingBalance: balance,
		})
		s.TotalPayment = s.TotalPayment.Add(paid.Add(interest))
		s.TotalPrincipal = s.TotalPrincipal.Add(paid)
		s.TotalInterest = s.TotalInterest.Add(interest)
	}
	return s, nil
}

// AddMonths moves t forward by n calendar months, clamping the day to the
// end of the target month (Jan 31 + 1 month = Feb 28/29).
func AddMonths(t time.Time, n int) time.Time {
	t = day(t)
	idx := int(t.Month()) - 1 + n
	y := t.Year() + idx/12
	m := time.Month(idx%12 + 1)
	last := time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
	d := t.Day()
	if d > last {
		d = last
	}
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
