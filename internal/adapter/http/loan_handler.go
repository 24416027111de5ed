package http

import (
	"net/http"
	"time"

	"equity-lending/internal/domain/errs"
	"equity-lending/internal/domain/policy"
	"equity-lending/internal/domain/quote"
	"equity-lending/internal/usecase/loan"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LoanHandler serves the employee-facing routes. The membership comes from
// the X-Membership-Id header set by the upstream gateway.
type LoanHandler struct {
	uc  *loan.Usecase
	log zerolog.Logger
	now func() time.Time
}

func NewLoanHandler(uc *loan.Usecase, l zerolog.Logger) *LoanHandler {
	return &LoanHandler{uc: uc, log: l.With().Str("component", "http.loan").Logger(), now: time.Now}
}

type quoteReq struct {
	SelectionMode   quote.SelectionMode    `json:"selection_mode" validate:"required,oneof=PERCENT SHARES"`
	SelectionValue  decimal.Decimal        `json:"selection_value"`
	AsOf            string                 `json:"as_of_date" validate:"omitempty,datetime=2006-01-02"`
	InterestType    policy.InterestType    `json:"desired_interest_type" validate:"omitempty,oneof=FIXED VARIABLE"`
	RepaymentMethod policy.RepaymentMethod `json:"desired_repayment_method" validate:"omitempty,oneof=PRINCIPAL_AND_INTEREST INTEREST_ONLY BALLOON"`
	TermMonths      int                    `json:"desired_term_months" validate:"gte=0"`
}

func (r quoteReq) request() quote.Request {
	return quote.Request{
		SelectionMode:          r.SelectionMode,
		SelectionValue:         r.SelectionValue,
		DesiredInterestType:    r.InterestType,
		DesiredRepaymentMethod: r.RepaymentMethod,
		DesiredTermMonths:      r.TermMonths,
	}
}

type createDraftReq struct {
	quoteReq
	loan.SpouseInput
}

type updateDraftReq struct {
	SelectionMode   *quote.SelectionMode    `json:"selection_mode" validate:"omitempty,oneof=PERCENT SHARES"`
	SelectionValue  *decimal.Decimal        `json:"selection_value"`
	AsOf            *string                 `json:"as_of_date" validate:"omitempty,datetime=2006-01-02"`
	InterestType    *policy.InterestType    `json:"desired_interest_type" validate:"omitempty,oneof=FIXED VARIABLE"`
	RepaymentMethod *policy.RepaymentMethod `json:"desired_repayment_method" validate:"omitempty,oneof=PRINCIPAL_AND_INTEREST INTEREST_ONLY BALLOON"`
	TermMonths      *int                    `json:"desired_term_months" validate:"omitempty,gt=0"`
	ExpectedVersion *int64                  `json:"expected_version"`
	loan.SpouseInput
}

func (r updateDraftReq) changes() (loan.QuoteChanges, error) {
	c := loan.QuoteChanges{
		SelectionMode:          r.SelectionMode,
		SelectionValue:         r.SelectionValue,
		DesiredInterestType:    r.InterestType,
		DesiredRepaymentMethod: r.RepaymentMethod,
		DesiredTermMonths:      r.TermMonths,
	}
	if r.AsOf != nil {
		d, err := time.Parse(dateLayout, *r.AsOf)
		if err != nil {
			return c, err
		}
		c.AsOf = &d
	}
	return c, nil
}

type submitReq struct {
	AsOf            string `json:"as_of_date" validate:"omitempty,datetime=2006-01-02"`
	ExpectedVersion *int64 `json:"expected_version"`
}

type cancelReq struct {
	ExpectedVersion *int64 `json:"expected_version"`
}

func (h *LoanHandler) requireMembership(c echo.Context) (string, bool, error) {
	mid, ok := membershipID(c)
	if !ok {
		return "", false, c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_failed",
			Message: "validation failed",
			Details: []FieldError{{Field: HeaderMembershipID, Message: "must be 32-char lowercase hex"}},
		})
	}
	return mid, true, nil
}

// owned loads the application and hides those of other memberships.
func (h *LoanHandler) owned(c echo.Context, mid string) (*loan.ApplicationDetail, error) {
	appID := c.Param("id")
	d, err := h.uc.Get(c.Request().Context(), appID)
	if err != nil {
		return nil, err
	}
	if d.MembershipID != mid {
		return nil, errs.ErrApplicationNotFound.WithDetails(map[string]any{"id": appID})
	}
	return d, nil
}

func (h *LoanHandler) Summary(c echo.Context) error {
	mid, ok, err := h.requireMembership(c)
	if !ok {
		return err
	}
	asOf, err := parseDate(c.QueryParam("as_of_date"), h.now())
	if err != nil {
		return validationFailed(c, err)
	}
	dto, err := h.uc.Summary(c.Request().Context(), mid, asOf)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) Quote(c echo.Context) error {
	mid, ok, err := h.requireMembership(c)
	if !ok {
		return err
	}
	var req quoteReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	asOf, _ := parseDate(req.AsOf, h.now())
	q, err := h.uc.Quote(c.Request().Context(), loan.QuoteInput{MembershipID: mid, Request: req.request(), AsOf: asOf})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, q)
}

func (h *LoanHandler) List(c echo.Context) error {
	mid, ok, err := h.requireMembership(c)
	if !ok {
		return err
	}
	items, err := h.uc.ListByMembership(c.Request().Context(), mid)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items, "total": len(items)})
}

func (h *LoanHandler) CreateDraft(c echo.Context) error {
	mid, ok, err := h.requireMembership(c)
	if !ok {
		return err
	}
	var req createDraftReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	asOf, _ := parseDate(req.AsOf, h.now())
	a, created, err := h.uc.CreateDraft(c.Request().Context(), loan.CreateDraftInput{
		MembershipID:   mid,
		Actor:          actor(c),
		IdempotencyKey: c.Request().Header.Get(HeaderIdempotencyKey),
		Request:        req.request(),
		AsOf:           asOf,
		Spouse:         req.SpouseInput,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	return c.JSON(code, a)
}

func (h *LoanHandler) Get(c echo.Context) error {
	mid, ok, err := h.requireMembership(c)
	if !ok {
		return err
	}
	d, err := h.owned(c, mid)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *LoanHandler) UpdateDraft(c echo.Context) error {
	mid, ok, err := h.requireMembership(c)
	if !ok {
		return err
	}
	var req updateDraftReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	changes, err := req.changes()
	if err != nil {
		return validationFailed(c, err)
	}
	d, err := h.owned(c, mid)
	if err != nil {
		return writeError(c, h.log, err)
	}
	a, err := h.uc.UpdateDraft(c.Request().Context(), loan.UpdateDraftInput{
		ApplicationID:   d.ID,
		Actor:           actor(c),
		ExpectedVersion: req.ExpectedVersion,
		Changes:         changes,
		Spouse:          req.SpouseInput,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *LoanHandler) Submit(c echo.Context) error {
	mid, ok, err := h.requireMembership(c)
	if !ok {
		return err
	}
	var req submitReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	d, err := h.owned(c, mid)
	if err != nil {
		return writeError(c, h.log, err)
	}
	in := loan.SubmitInput{
		ApplicationID:   d.ID,
		Actor:           actor(c),
		IdempotencyKey:  c.Request().Header.Get(HeaderIdempotencyKey),
		ExpectedVersion: req.ExpectedVersion,
	}
	if req.AsOf != "" {
		in.AsOf, _ = time.Parse(dateLayout, req.AsOf)
	}
	a, err := h.uc.Submit(c.Request().Context(), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *LoanHandler) Cancel(c echo.Context) error {
	mid, ok, err := h.requireMembership(c)
	if !ok {
		return err
	}
	var req cancelReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	d, err := h.owned(c, mid)
	if err != nil {
		return writeError(c, h.log, err)
	}
	a, err := h.uc.Cancel(c.Request().Context(), loan.CancelInput{
		ApplicationID:   d.ID,
		Actor:           actor(c),
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *LoanHandler) Schedule(c echo.Context) error {
	mid, ok, err := h.requireMembership(c)
	if !ok {
		return err
	}
	d, err := h.owned(c, mid)
	if err != nil {
		return writeError(c, h.log, err)
	}
	s, err := h.uc.Schedule(c.Request().Context(), d.ID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, s)
}
