package loan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"equity-lending/internal/domain/amortization"
	"equity-lending/internal/domain/audit"
	"equity-lending/internal/domain/eligibility"
	"equity-lending/internal/domain/errs"
	"equity-lending/internal/domain/grant"
	domain "equity-lending/internal/domain/loan"
	"equity-lending/internal/domain/membership"
	"equity-lending/internal/domain/policy"
	"equity-lending/internal/domain/quote"
	"equity-lending/internal/domain/uow"
	"equity-lending/internal/domain/vesting"
	"equity-lending/internal/domain/workflow"
	"equity-lending/internal/usecase/reservation"
	"equity-lending/pkg/id"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type Usecase struct {
	uow    uow.UnitOfWork
	ledger *reservation.Ledger
	audit  audit.Sink
	cache  SummaryCache
	log    zerolog.Logger
	now    func() time.Time
}

// NewUsecase wires the lifecycle. sink and cache may be nil.
func NewUsecase(tx uow.UnitOfWork, ledger *reservation.Ledger, sink audit.Sink, cache SummaryCache, l zerolog.Logger) *Usecase {
	if sink == nil {
		sink = audit.Nop{}
	}
	return &Usecase{
		uow:    tx,
		ledger: ledger,
		audit:  sink,
		cache:  cache,
		log:    l.With().Str("component", "loan_lifecycle").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ----- helpers -----

type pricingContext struct {
	membership *membership.Membership
	policy     *policy.OrgPolicy
	grants     []grant.Grant
	reserved   map[string]int64
}

func (u *Usecase) loadPricing(ctx context.Context, r uow.Repos, membershipID, excludeAppID string) (*pricingContext, error) {
	m, err := r.Memberships.Get(ctx, membershipID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.ErrMembershipNotFound.WithDetails(map[string]any{"membership_id": membershipID})
	}
	if err != nil {
		return nil, fmt.Errorf("load membership: %w", err)
	}
	p, err := r.Policies.GetByOrg(ctx, m.OrgID)
	if err != nil {
		return nil, fmt.Errorf("load org policy %s: %w", m.OrgID, err)
	}
	grants, err := r.Grants.ListActiveByMembership(ctx, membershipID)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	ids := make([]string, 0, len(grants))
	for _, g := range grants {
		ids = append(ids, g.ID)
	}
	reserved, err := u.ledger.ReservedByGrant(ctx, r, ids, excludeAppID)
	if err != nil {
		return nil, fmt.Errorf("sum reservations: %w", err)
	}
	return &pricingContext{membership: m, policy: p, grants: grants, reserved: reserved}, nil
}

func (pc *pricingContext) quote(req quote.Request, asOf time.Time) (*quote.Quote, error) {
	return quote.Calculate(*pc.membership, *pc.policy, pc.grants, pc.reserved, req, asOf)
}

func checkVersion(a *domain.LoanApplication, expected *int64) error {
	if expected != nil && *expected != a.Version {
		return errs.ErrConcurrentUpdate.WithDetails(map[string]any{
			"id":               a.ID,
			"expected_version": *expected,
			"current_version":  a.Version,
		})
	}
	return nil
}

func (u *Usecase) record(ctx context.Context, buf *audit.Buffer, actor, action string, a *domain.LoanApplication, old map[string]any) {
	_ = buf.Record(ctx, audit.Entry{
		Actor:        actor,
		Action:       action,
		ResourceType: audit.ResourceLoanApplication,
		ResourceID:   a.ID,
		Old:          old,
		New:          a.AuditView(),
		At:           u.now(),
	})
}

func (u *Usecase) flush(ctx context.Context, buf *audit.Buffer) {
	if err := buf.Flush(ctx, u.audit); err != nil {
		u.log.Error().Err(err).Msg("audit flush failed")
	}
}

func (u *Usecase) invalidateSummary(ctx context.Context, membershipID string) {
	if u.cache == nil {
		return
	}
	if err := u.cache.Invalidate(ctx, membershipID); err != nil {
		u.log.Warn().Err(err).Str("membership_id", membershipID).Msg("summary cache invalidation failed")
	}
}

func (u *Usecase) fail(op, appID string, err error) error {
	ev := u.log.Error()
	if errs.IsBusiness(err) {
		ev = u.log.Debug().Str("code", string(errs.CodeOf(err)))
	}
	ev.Err(err).Str("op", op).Str("application_id", appID).Msg("loan application operation failed")
	return err
}

// recalculate prices the merged request and applies it onto a. In-flight
// applications give back their reservations and take new ones in the same
// transaction.
func (u *Usecase) recalculate(ctx context.Context, r uow.Repos, a *domain.LoanApplication, c QuoteChanges) error {
	if c.SelectionMode != nil && *c.SelectionMode != a.SelectionMode && c.SelectionValue == nil {
		return errs.ErrInvalidSelection.WithDetails(map[string]any{
			"field":      "selection_value",
			"constraint": "required when selection_mode changes",
		})
	}
	req, asOf := c.merge(a)

	inFlight := a.InFlight()
	if inFlight {
		if err := u.ledger.Release(ctx, r, a.ID); err != nil {
			return err
		}
	}
	pc, err := u.loadPricing(ctx, r, a.MembershipID, a.ID)
	if err != nil {
		return err
	}
	q, err := pc.quote(req, asOf)
	if err != nil {
		return err
	}
	a.ApplyQuote(q, req, *pc.policy)
	if inFlight {
		return u.ledger.Reserve(ctx, r, a, q.Allocation, q.AsOfDate)
	}
	return nil
}

func (u *Usecase) requireCurrentPolicy(ctx context.Context, r uow.Repos, a *domain.LoanApplication) error {
	p, err := r.Policies.GetByOrg(ctx, a.OrgID)
	if err != nil {
		return fmt.Errorf("load org policy %s: %w", a.OrgID, err)
	}
	if p.PolicyVersion != a.PolicyVersionSnapshot {
		return errs.ErrPolicyOutOfDate.WithDetails(map[string]any{
			"policy_version_snapshot": a.PolicyVersionSnapshot,
			"current_policy_version":  p.PolicyVersion,
		})
	}
	return nil
}

// ----- reads -----

// Quote prices a request without persisting anything.
func (u *Usecase) Quote(ctx context.Context, in QuoteInput) (*quote.Quote, error) {
	var out *quote.Quote
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		pc, err := u.loadPricing(ctx, r, in.MembershipID, "")
		if err != nil {
			return err
		}
		out, err = pc.quote(in.Request, in.AsOf)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Summary reports vesting, reservations and eligibility for a membership.
// Results are cached per as-of date until an application of the membership
// changes its reservations.
func (u *Usecase) Summary(ctx context.Context, membershipID string, asOf time.Time) (*SummaryDTO, error) {
	asOf = vesting.Day(asOf)
	field := asOf.Format("2006-01-02")
	cacheable := false
	var gen int64
	if u.cache != nil {
		var cached SummaryDTO
		hit, err := u.cache.Get(ctx, membershipID, field, &cached)
		if err != nil {
			u.log.Warn().Err(err).Str("membership_id", membershipID).Msg("summary cache read failed")
		} else if hit {
			return &cached, nil
		}
		// taken before the read so an invalidation during it voids our write
		if gen, err = u.cache.Generation(ctx, membershipID); err != nil {
			u.log.Warn().Err(err).Str("membership_id", membershipID).Msg("summary cache generation read failed")
		} else {
			cacheable = true
		}
	}

	var out *SummaryDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		pc, err := u.loadPricing(ctx, r, membershipID, "")
		if err != nil {
			return err
		}
		totals := vesting.Aggregate(pc.grants, asOf)
		dto := &SummaryDTO{
			MembershipID: membershipID,
			AsOfDate:     asOf,
			Totals:       totals,
			Eligibility:  eligibility.Evaluate(*pc.membership, *pc.policy, totals, asOf),
			Grants:       []GrantAvailability{},
		}
		for _, s := range vesting.Summaries(pc.grants, asOf) {
			held := pc.reserved[s.GrantID]
			avail := s.Vested - held
			if avail < 0 {
				avail = 0
			}
			dto.ReservedShares += held
			dto.AvailableShares += avail
			dto.Grants = append(dto.Grants, GrantAvailability{GrantSummary: s, ReservedShares: held, AvailableShares: avail})
		}
		out = dto
		return nil
	})
	if err != nil {
		return nil, err
	}
	if cacheable {
		stored, err := u.cache.Set(ctx, membershipID, gen, field, out)
		if err != nil {
			u.log.Warn().Err(err).Str("membership_id", membershipID).Msg("summary cache write failed")
		} else if !stored {
			u.log.Debug().Str("membership_id", membershipID).Msg("summary invalidated during read, not cached")
		}
	}
	return out, nil
}

func (u *Usecase) Get(ctx context.Context, appID string) (*ApplicationDetail, error) {
	var out *ApplicationDetail
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		a, err := r.Loans.GetByID(ctx, appID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.ErrApplicationNotFound.WithDetails(map[string]any{"id": appID})
		}
		if err != nil {
			return err
		}
		d := &ApplicationDetail{LoanApplication: a}
		if d.Stages, err = r.Stages.ListByApplication(ctx, appID); err != nil {
			return err
		}
		if d.Reservations, err = r.Reservations.ListByApplication(ctx, appID); err != nil {
			return err
		}
		if d.Documents, err = r.Documents.ListByApplication(ctx, appID); err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *Usecase) ListByMembership(ctx context.Context, membershipID string) ([]domain.LoanApplication, error) {
	var out []domain.LoanApplication
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		out, err = r.Loans.ListByMembership(ctx, membershipID)
		return err
	})
	return out, err
}

// Schedule rebuilds the repayment schedule from the stored snapshot,
// starting at activation when the loan is live.
func (u *Usecase) Schedule(ctx context.Context, appID string) (*amortization.Schedule, error) {
	var a *domain.LoanApplication
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		a, err = r.Loans.GetByID(ctx, appID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.ErrApplicationNotFound.WithDetails(map[string]any{"id": appID})
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	start := a.AsOfDate
	if a.ActivationDate != nil {
		start = *a.ActivationDate
	}
	s, err := amortization.Build(amortization.Params{
		Principal:         a.LoanPrincipal,
		AnnualRatePercent: a.NominalAnnualRatePercent,
		TermMonths:        a.TermMonths,
		Method:            a.RepaymentMethod,
		StartDate:         start,
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ----- mutations -----

// CreateDraft prices the request and stores a DRAFT. A create key already
// used by the membership returns the existing application; created is false
// in that case.
func (u *Usecase) CreateDraft(ctx context.Context, in CreateDraftInput) (a *domain.LoanApplication, created bool, err error) {
	key, err := domain.NormalizeIdempotencyKey(in.IdempotencyKey)
	if err != nil {
		return nil, false, err
	}
	if key != nil {
		if existing, ok, err := u.findByCreateKey(ctx, in.MembershipID, *key); err != nil || ok {
			return existing, false, err
		}
	}

	buf := &audit.Buffer{}
	a = &domain.LoanApplication{
		ID:                   id.NewID32(),
		MembershipID:         in.MembershipID,
		Status:               domain.StatusDraft,
		Version:              1,
		CreateIdempotencyKey: key,
	}
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		pc, err := u.loadPricing(ctx, r, in.MembershipID, "")
		if err != nil {
			return err
		}
		q, err := pc.quote(in.Request, in.AsOf)
		if err != nil {
			return err
		}
		a.OrgID = pc.membership.OrgID
		a.ApplyQuote(q, in.Request, *pc.policy)
		in.Spouse.apply(a)
		if err := r.Loans.Create(ctx, a); err != nil {
			return err
		}
		u.record(ctx, buf, in.Actor, "loan_application.created", a, nil)
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) && key != nil {
		// lost the race to a concurrent create with the same key
		existing, ok, lookupErr := u.findByCreateKey(ctx, in.MembershipID, *key)
		if lookupErr != nil {
			return nil, false, lookupErr
		}
		if ok {
			return existing, false, nil
		}
	}
	if err != nil {
		return nil, false, u.fail("create", a.ID, err)
	}
	u.flush(ctx, buf)
	u.log.Info().
		Str("application_id", a.ID).
		Str("membership_id", a.MembershipID).
		Str("status", string(a.Status)).
		Msg("loan application created")
	return a, true, nil
}

func (u *Usecase) findByCreateKey(ctx context.Context, membershipID, key string) (*domain.LoanApplication, bool, error) {
	var out *domain.LoanApplication
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		out, err = r.Loans.GetByCreateKey(ctx, membershipID, key)
		return err
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup create key: %w", err)
	}
	return out, true, nil
}

// UpdateDraft recalculates when a quote-affecting field changes. Edits that
// leave the quote alone are refused once the org policy has moved on.
func (u *Usecase) UpdateDraft(ctx context.Context, in UpdateDraftInput) (*domain.LoanApplication, error) {
	buf := &audit.Buffer{}
	var out *domain.LoanApplication
	err := u.uow.WithinLoanTx(ctx, in.ApplicationID, func(r uow.Repos, a *domain.LoanApplication) error {
		if a.Status != domain.StatusDraft {
			return errs.ErrInvalidStatus.WithDetails(map[string]any{"status": a.Status})
		}
		if err := checkVersion(a, in.ExpectedVersion); err != nil {
			return err
		}
		old := a.AuditView()
		if in.Changes.differs(a) {
			if err := u.recalculate(ctx, r, a, in.Changes); err != nil {
				return err
			}
		} else if err := u.requireCurrentPolicy(ctx, r, a); err != nil {
			return err
		}
		in.Spouse.apply(a)
		if err := r.Loans.Save(ctx, a); err != nil {
			return err
		}
		u.record(ctx, buf, in.Actor, "loan_application.updated", a, old)
		out = a
		return nil
	})
	if err != nil {
		return nil, u.fail("update", in.ApplicationID, err)
	}
	u.flush(ctx, buf)
	return out, nil
}

// Submit moves a DRAFT to SUBMITTED against a fresh quote, reserving shares
// and opening the core workflow stages. Replaying the same key returns the
// stored application untouched.
func (u *Usecase) Submit(ctx context.Context, in SubmitInput) (*domain.LoanApplication, error) {
	key, err := domain.NormalizeIdempotencyKey(in.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	buf := &audit.Buffer{}
	var (
		out    *domain.LoanApplication
		replay bool
	)
	err = u.uow.WithinLoanTx(ctx, in.ApplicationID, func(r uow.Repos, a *domain.LoanApplication) error {
		if key != nil && a.SubmitIdempotencyKey != nil {
			if *a.SubmitIdempotencyKey != *key {
				return errs.ErrIdempotencyConflict.WithDetails(map[string]any{"submitted_key": *a.SubmitIdempotencyKey})
			}
			if a.Status == domain.StatusSubmitted {
				out, replay = a, true
				return nil
			}
		}
		if a.Status != domain.StatusDraft {
			return errs.ErrInvalidStatus.WithDetails(map[string]any{"status": a.Status})
		}
		if key != nil {
			other, err := r.Loans.GetBySubmitKey(ctx, a.MembershipID, *key)
			switch {
			case err == nil && other.ID != a.ID:
				return errs.ErrIdempotencyConflict.WithDetails(map[string]any{"application_id": other.ID})
			case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
				return fmt.Errorf("lookup submit key: %w", err)
			}
		}
		if err := checkVersion(a, in.ExpectedVersion); err != nil {
			return err
		}

		old := a.AuditView()
		pc, err := u.loadPricing(ctx, r, a.MembershipID, a.ID)
		if err != nil {
			return err
		}
		if err := reconcileMarital(a, pc.membership); err != nil {
			return err
		}

		asOf := in.AsOf
		if asOf.IsZero() {
			asOf = a.AsOfDate
		}
		req := a.RequoteRequest()
		q, err := pc.quote(req, asOf)
		if err != nil {
			return err
		}
		a.ApplyQuote(q, req, *pc.policy)
		if err := a.TransitionTo(domain.StatusSubmitted); err != nil {
			return err
		}
		a.SubmitIdempotencyKey = key
		if err := r.Loans.Save(ctx, a); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errs.ErrIdempotencyConflict.WithDetails(map[string]any{"field": "Idempotency-Key"})
			}
			return err
		}
		if err := u.ledger.Reserve(ctx, r, a, q.Allocation, q.AsOfDate); err != nil {
			return err
		}

		existing, err := r.Stages.ListByApplication(ctx, a.ID)
		if err != nil {
			return fmt.Errorf("list stages: %w", err)
		}
		if missing := workflow.Missing(existing, workflow.CoreStages); len(missing) > 0 {
			if err := r.Stages.CreateBatch(ctx, workflow.NewStages(a.ID, missing)); err != nil {
				return fmt.Errorf("create core stages: %w", err)
			}
		}
		u.record(ctx, buf, in.Actor, "loan_application.submitted", a, old)
		out = a
		return nil
	})
	if err != nil {
		return nil, u.fail("submit", in.ApplicationID, err)
	}
	if replay {
		return out, nil
	}
	u.flush(ctx, buf)
	u.invalidateSummary(ctx, out.MembershipID)
	u.log.Info().
		Str("application_id", out.ID).
		Str("membership_id", out.MembershipID).
		Str("status", string(out.Status)).
		Msg("loan application submitted")
	return out, nil
}

// reconcileMarital checks the snapshot against the profile, adopting the
// profile value when the applicant left it blank, and requires spouse
// details for partnered statuses.
func reconcileMarital(a *domain.LoanApplication, m *membership.Membership) error {
	current := membership.NormalizeMaritalStatus(m.MaritalStatus)
	submitted := membership.NormalizeMaritalStatus(a.MaritalStatusSnapshot)
	if current != "" && submitted != "" && current != submitted {
		return errs.ErrMaritalStatusMismatch.WithDetails(map[string]any{
			"current_status":   m.MaritalStatus,
			"submitted_status": a.MaritalStatusSnapshot,
		})
	}
	if current != "" && submitted == "" {
		a.MaritalStatusSnapshot = m.MaritalStatus
		submitted = current
	}
	if submitted.RequiresSpouse() {
		if missing := a.MissingSpouseFields(); len(missing) > 0 {
			return errs.ErrSpouseInfoRequired.WithDetails(map[string]any{"missing_fields": missing})
		}
	}
	return nil
}

func (u *Usecase) Cancel(ctx context.Context, in CancelInput) (*domain.LoanApplication, error) {
	buf := &audit.Buffer{}
	var out *domain.LoanApplication
	err := u.uow.WithinLoanTx(ctx, in.ApplicationID, func(r uow.Repos, a *domain.LoanApplication) error {
		if err := checkVersion(a, in.ExpectedVersion); err != nil {
			return err
		}
		old := a.AuditView()
		if a.Status != domain.StatusDraft {
			return errs.ErrInvalidStatus.WithDetails(map[string]any{"status": a.Status})
		}
		if err := a.TransitionTo(domain.StatusCancelled); err != nil {
			return err
		}
		if err := r.Loans.Save(ctx, a); err != nil {
			return err
		}
		u.record(ctx, buf, in.Actor, "loan_application.cancelled", a, old)
		out = a
		return nil
	})
	if err != nil {
		return nil, u.fail("cancel", in.ApplicationID, err)
	}
	u.flush(ctx, buf)
	return out, nil
}

// AdminUpdateStatus moves an in-flight application to IN_REVIEW or
// REJECTED. Setting the current status again is a no-op.
func (u *Usecase) AdminUpdateStatus(ctx context.Context, in AdminStatusInput) (*domain.LoanApplication, error) {
	if in.Status != domain.StatusInReview && in.Status != domain.StatusRejected {
		return nil, errs.ErrInvalidStatus.WithDetails(map[string]any{"target_status": in.Status})
	}
	reason := strings.TrimSpace(in.Reason)
	if in.Status == domain.StatusRejected && reason == "" {
		return nil, errs.ErrDecisionReasonRequired
	}

	buf := &audit.Buffer{}
	var (
		out     *domain.LoanApplication
		changed bool
	)
	err := u.uow.WithinLoanTx(ctx, in.ApplicationID, func(r uow.Repos, a *domain.LoanApplication) error {
		if err := checkVersion(a, in.ExpectedVersion); err != nil {
			return err
		}
		out = a
		if a.Status == in.Status {
			return nil
		}
		if !a.InFlight() {
			return errs.ErrInvalidStatus.WithDetails(map[string]any{"status": a.Status, "target_status": in.Status})
		}
		old := a.AuditView()
		if err := a.TransitionTo(in.Status); err != nil {
			return err
		}
		if in.Status == domain.StatusRejected {
			a.DecisionReason = reason
		}
		if err := r.Loans.Save(ctx, a); err != nil {
			return err
		}
		if err := u.ledger.SyncStatus(ctx, r, a.ID, a.Status); err != nil {
			return err
		}
		u.record(ctx, buf, in.Actor, "loan_application.status_updated", a, old)
		changed = true
		return nil
	})
	if err != nil {
		return nil, u.fail("admin_status", in.ApplicationID, err)
	}
	if !changed {
		return out, nil
	}
	u.flush(ctx, buf)
	if out.Status == domain.StatusRejected {
		u.invalidateSummary(ctx, out.MembershipID)
	}
	u.log.Info().
		Str("application_id", out.ID).
		Str("membership_id", out.MembershipID).
		Str("status", string(out.Status)).
		Msg("loan application status updated")
	return out, nil
}

// AdminEdit applies an operator correction with a mandatory note. Document
// deletion and workflow reset happen only when their flags are set.
func (u *Usecase) AdminEdit(ctx context.Context, in AdminEditInput) (*domain.LoanApplication, error) {
	note := strings.TrimSpace(in.Note)
	if note == "" {
		return nil, errs.ErrEditNoteRequired
	}

	buf := &audit.Buffer{}
	var out *domain.LoanApplication
	err := u.uow.WithinLoanTx(ctx, in.ApplicationID, func(r uow.Repos, a *domain.LoanApplication) error {
		switch a.Status {
		case domain.StatusDraft, domain.StatusSubmitted, domain.StatusInReview:
		default:
			return errs.ErrInvalidStatus.WithDetails(map[string]any{"status": a.Status})
		}
		if err := checkVersion(a, in.ExpectedVersion); err != nil {
			return err
		}
		old := a.AuditView()
		if in.Changes.differs(a) {
			if err := u.recalculate(ctx, r, a, in.Changes); err != nil {
				return err
			}
		} else if err := u.requireCurrentPolicy(ctx, r, a); err != nil {
			return err
		}
		in.Spouse.apply(a)
		if in.DeleteDocuments {
			if err := r.Documents.DeleteByApplication(ctx, a.ID); err != nil {
				return fmt.Errorf("delete documents: %w", err)
			}
		}
		if in.ResetWorkflow {
			if err := r.Stages.ResetForApplication(ctx, a.ID); err != nil {
				return fmt.Errorf("reset workflow: %w", err)
			}
		}
		if err := r.Loans.Save(ctx, a); err != nil {
			return err
		}
		_ = buf.Record(ctx, audit.Entry{
			Actor:        in.Actor,
			Action:       "loan_application.admin_edited",
			ResourceType: audit.ResourceLoanApplication,
			ResourceID:   a.ID,
			Old:          old,
			New: map[string]any{
				"application":      a.AuditView(),
				"note":             note,
				"delete_documents": in.DeleteDocuments,
				"reset_workflow":   in.ResetWorkflow,
			},
			At: u.now(),
		})
		out = a
		return nil
	})
	if err != nil {
		return nil, u.fail("admin_edit", in.ApplicationID, err)
	}
	u.flush(ctx, buf)
	u.invalidateSummary(ctx, out.MembershipID)
	return out, nil
}
