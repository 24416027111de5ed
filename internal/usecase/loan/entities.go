package loan

import (
	"context"
	"time"

	"equity-lending/internal/domain/document"
	"equity-lending/internal/domain/eligibility"
	domain "equity-lending/internal/domain/loan"
	"equity-lending/internal/domain/policy"
	"equity-lending/internal/domain/quote"
	domainReservation "equity-lending/internal/domain/reservation"
	"equity-lending/internal/domain/vesting"
	"equity-lending/internal/domain/workflow"

	"github.com/shopspring/decimal"
)

// SummaryCache holds computed membership summaries. Invalidate runs after
// the changing transaction has committed and bumps the generation; Set only
// stores a value computed under the generation it is given.
type SummaryCache interface {
	Get(ctx context.Context, membershipID, field string, dst any) (bool, error)
	Generation(ctx context.Context, membershipID string) (int64, error)
	Set(ctx context.Context, membershipID string, gen int64, field string, v any) (bool, error)
	Invalidate(ctx context.Context, membershipID string) error
}

type QuoteInput struct {
	MembershipID string
	Request      quote.Request
	AsOf         time.Time
}

// SpouseInput carries optional profile fields; nil leaves the stored value.
type SpouseInput struct {
	MaritalStatus *string `json:"marital_status_snapshot"`
	FirstName     *string `json:"spouse_first_name"`
	MiddleName    *string `json:"spouse_middle_name"`
	LastName      *string `json:"spouse_last_name"`
	Email         *string `json:"spouse_email"`
	Phone         *string `json:"spouse_phone"`
	Address       *string `json:"spouse_address"`
}

func (s SpouseInput) apply(a *domain.LoanApplication) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&a.MaritalStatusSnapshot, s.MaritalStatus)
	set(&a.SpouseFirstName, s.FirstName)
	set(&a.SpouseMiddleName, s.MiddleName)
	set(&a.SpouseLastName, s.LastName)
	set(&a.SpouseEmail, s.Email)
	set(&a.SpousePhone, s.Phone)
	set(&a.SpouseAddress, s.Address)
}

type CreateDraftInput struct {
	MembershipID   string
	Actor          string
	IdempotencyKey string
	Request        quote.Request
	AsOf           time.Time
	Spouse         SpouseInput
}

// QuoteChanges lists the quote-affecting fields of an edit; nil means
// "keep what is stored".
type QuoteChanges struct {
	SelectionMode          *quote.SelectionMode
	SelectionValue         *decimal.Decimal
	AsOf                   *time.Time
	DesiredInterestType    *policy.InterestType
	DesiredRepaymentMethod *policy.RepaymentMethod
	DesiredTermMonths      *int
}

// differs reports whether any supplied field differs from the snapshot.
func (c QuoteChanges) differs(a *domain.LoanApplication) bool {
	switch {
	case c.SelectionMode != nil && *c.SelectionMode != a.SelectionMode:
		return true
	case c.SelectionValue != nil && !c.SelectionValue.Equal(a.SelectionValue):
		return true
	case c.AsOf != nil && !vesting.Day(*c.AsOf).Equal(vesting.Day(a.AsOfDate)):
		return true
	case c.DesiredInterestType != nil && *c.DesiredInterestType != a.InterestType:
		return true
	case c.DesiredRepaymentMethod != nil && *c.DesiredRepaymentMethod != a.RepaymentMethod:
		return true
	case c.DesiredTermMonths != nil && *c.DesiredTermMonths != a.TermMonths:
		return true
	}
	return false
}

// merge overlays the changes on the request that reproduces the snapshot.
func (c QuoteChanges) merge(a *domain.LoanApplication) (quote.Request, time.Time) {
	req := a.RequoteRequest()
	asOf := a.AsOfDate
	if c.SelectionMode != nil {
		req.SelectionMode = *c.SelectionMode
	}
	if c.SelectionValue != nil {
		req.SelectionValue = *c.SelectionValue
	}
	if c.AsOf != nil {
		asOf = *c.AsOf
	}
	if c.DesiredInterestType != nil {
		req.DesiredInterestType = *c.DesiredInterestType
	}
	if c.DesiredRepaymentMethod != nil {
		req.DesiredRepaymentMethod = *c.DesiredRepaymentMethod
	}
	if c.DesiredTermMonths != nil {
		req.DesiredTermMonths = *c.DesiredTermMonths
	}
	return req, asOf
}

type UpdateDraftInput struct {
	ApplicationID   string
	Actor           string
	ExpectedVersion *int64
	Changes         QuoteChanges
	Spouse          SpouseInput
}

type SubmitInput struct {
	ApplicationID   string
	Actor           string
	IdempotencyKey  string
	ExpectedVersion *int64
	// AsOf prices the fresh quote; zero means the draft's as-of date.
	AsOf time.Time
}

type CancelInput struct {
	ApplicationID   string
	Actor           string
	ExpectedVersion *int64
}

type AdminStatusInput struct {
	ApplicationID   string
	Actor           string
	Status          domain.Status
	Reason          string
	ExpectedVersion *int64
}

type AdminEditInput struct {
	ApplicationID   string
	Actor           string
	ExpectedVersion *int64
	Note            string
	Changes         QuoteChanges
	Spouse          SpouseInput
	DeleteDocuments bool
	ResetWorkflow   bool
}

type ApplicationDetail struct {
	*domain.LoanApplication
	Stages       []workflow.Stage                     `json:"workflow_stages"`
	Reservations []domainReservation.ShareReservation `json:"share_reservations"`
	Documents    []document.LoanDocument              `json:"documents"`
}

type GrantAvailability struct {
	vesting.GrantSummary
	ReservedShares  int64 `json:"reserved_shares"`
	AvailableShares int64 `json:"available_vested_shares"`
}

type SummaryDTO struct {
	MembershipID    string              `json:"membership_id"`
	AsOfDate        time.Time           `json:"as_of_date"`
	Totals          vesting.Totals      `json:"totals"`
	ReservedShares  int64               `json:"reserved_shares"`
	AvailableShares int64               `json:"available_vested_shares"`
	Grants          []GrantAvailability `json:"grants"`
	Eligibility     eligibility.Result  `json:"eligibility_result"`
}
