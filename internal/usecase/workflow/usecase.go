package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"equity-lending/internal/domain/audit"
	"equity-lending/internal/domain/document"
	"equity-lending/internal/domain/errs"
	"equity-lending/internal/domain/loan"
	"equity-lending/internal/domain/uow"
	domain "equity-lending/internal/domain/workflow"
	"equity-lending/internal/usecase/reservation"
	"equity-lending/pkg/id"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type Tracker struct {
	uow    uow.UnitOfWork
	ledger *reservation.Ledger
	audit  audit.Sink
	log    zerolog.Logger
}

func NewTracker(tx uow.UnitOfWork, ledger *reservation.Ledger, sink audit.Sink, l zerolog.Logger) *Tracker {
	if sink == nil {
		sink = audit.Nop{}
	}
	return &Tracker{uow: tx, ledger: ledger, audit: sink, log: l.With().Str("component", "workflow").Logger()}
}

func (t *Tracker) flush(ctx context.Context, buf *audit.Buffer) {
	if err := buf.Flush(ctx, t.audit); err != nil {
		t.log.Error().Err(err).Msg("audit flush failed")
	}
}

// SystemActor is recorded for activations nobody requested directly.
const SystemActor = "system:activate_backlog"

// TryActivate moves a SUBMITTED or IN_REVIEW application to ACTIVE once all
// core stages are COMPLETED. It reports false and changes nothing otherwise,
// so repeated calls are safe.
func (t *Tracker) TryActivate(ctx context.Context, r uow.Repos, a *loan.LoanApplication, actor string, now time.Time, rec audit.Sink) (bool, error) {
	if !a.InFlight() {
		return false, nil
	}
	stages, err := r.Stages.ListByApplication(ctx, a.ID)
	if err != nil {
		return false, fmt.Errorf("list stages: %w", err)
	}
	if !domain.CoreCompleted(stages) {
		return false, nil
	}

	old := a.AuditView()
	if err := a.TransitionTo(loan.StatusActive); err != nil {
		return false, err
	}
	now = now.UTC()
	due := domain.Election83bDue(now)
	a.ActivationDate = &now
	a.Election83bDueDate = &due
	if err := r.Loans.Save(ctx, a); err != nil {
		return false, err
	}
	if err := t.ledger.SyncStatus(ctx, r, a.ID, loan.StatusActive); err != nil {
		return false, err
	}
	if missing := domain.Missing(stages, domain.PostActivationStages); len(missing) > 0 {
		if err := r.Stages.CreateBatch(ctx, domain.NewStages(a.ID, missing)); err != nil {
			return false, fmt.Errorf("create post-activation stages: %w", err)
		}
	}

	_ = rec.Record(ctx, audit.Entry{
		Actor:        actor,
		Action:       "loan_application.activated",
		ResourceType: audit.ResourceLoanApplication,
		ResourceID:   a.ID,
		Old:          old,
		New:          a.AuditView(),
		At:           now,
	})
	t.log.Info().
		Str("application_id", a.ID).
		Str("membership_id", a.MembershipID).
		Str("status", string(a.Status)).
		Msg("loan application activated")
	return true, nil
}

// UpdateStage records progress on one stage and activates the application
// in the same transaction when that completes the core set. Required
// documents are checked by the caller through MissingDocuments.
func (t *Tracker) UpdateStage(ctx context.Context, in UpdateStageInput) (*StageResult, error) {
	if !domain.ValidStageType(in.StageType) {
		return nil, errs.ErrStageNotFound.WithDetails(map[string]any{"stage_type": in.StageType})
	}
	if in.Status != domain.StageInProgress && in.Status != domain.StageCompleted {
		return nil, errs.ErrInvalidStageStatus.WithDetails(map[string]any{"status": in.Status})
	}

	buf := &audit.Buffer{}
	var out *StageResult
	err := t.uow.WithinLoanTx(ctx, in.ApplicationID, func(r uow.Repos, a *loan.LoanApplication) error {
		switch a.Status {
		case loan.StatusSubmitted, loan.StatusInReview, loan.StatusActive:
		default:
			return errs.ErrInvalidStatus.WithDetails(map[string]any{"status": a.Status})
		}

		s, err := r.Stages.GetByTypeForUpdate(ctx, a.ID, in.StageType)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.ErrStageNotFound.WithDetails(map[string]any{"stage_type": in.StageType})
		}
		if err != nil {
			return fmt.Errorf("load stage: %w", err)
		}

		old := *s
		if in.Status == domain.StageCompleted {
			s.Complete(in.Actor, in.Now.UTC())
		} else {
			s.Status = in.Status
			s.CompletedBy = nil
			s.CompletedAt = nil
		}
		if in.Notes != nil {
			s.Notes = *in.Notes
		}
		if err := r.Stages.Save(ctx, s); err != nil {
			return fmt.Errorf("save stage: %w", err)
		}
		_ = buf.Record(ctx, audit.Entry{
			Actor:        in.Actor,
			Action:       "loan_workflow_stage.updated",
			ResourceType: audit.ResourceWorkflowStage,
			ResourceID:   s.ID,
			Old:          old,
			New:          *s,
			At:           in.Now,
		})

		activated, err := t.TryActivate(ctx, r, a, in.Actor, in.Now, buf)
		if err != nil {
			return err
		}
		out = &StageResult{Stage: *s, Application: a, Activated: activated}
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.flush(ctx, buf)
	return out, nil
}

func (t *Tracker) ListStages(ctx context.Context, appID string) ([]domain.Stage, error) {
	var out []domain.Stage
	err := t.uow.WithinTx(ctx, func(r uow.Repos) error {
		if _, err := r.Loans.GetByID(ctx, appID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.ErrApplicationNotFound.WithDetails(map[string]any{"id": appID})
			}
			return err
		}
		var err error
		out, err = r.Stages.ListByApplication(ctx, appID)
		return err
	})
	return out, err
}

// MissingDocuments lists the document types a stage still needs before it
// may be completed.
func (t *Tracker) MissingDocuments(ctx context.Context, appID string, st domain.StageType) ([]string, error) {
	var missing []string
	err := t.uow.WithinTx(ctx, func(r uow.Repos) error {
		if _, err := r.Loans.GetByID(ctx, appID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.ErrApplicationNotFound.WithDetails(map[string]any{"id": appID})
			}
			return err
		}
		present, err := r.Documents.TypesForStage(ctx, appID, string(st))
		if err != nil {
			return fmt.Errorf("list documents: %w", err)
		}
		missing = document.MissingTypes(domain.RequiredDocuments(st), present)
		return nil
	})
	return missing, err
}

// AttachDocument registers an uploaded file against a stage. The blob is
// already stored under StorageKey.
func (t *Tracker) AttachDocument(ctx context.Context, in AttachDocumentInput) (*document.LoanDocument, error) {
	if !domain.ValidStageType(in.StageType) {
		return nil, errs.ErrStageNotFound.WithDetails(map[string]any{"stage_type": in.StageType})
	}
	d := &document.LoanDocument{
		ID:                id.NewID32(),
		LoanApplicationID: in.ApplicationID,
		StageType:         string(in.StageType),
		DocumentType:      in.DocumentType,
		StorageKey:        in.StorageKey,
		UploadedBy:        in.Actor,
	}
	err := t.uow.WithinLoanTx(ctx, in.ApplicationID, func(r uow.Repos, _ *loan.LoanApplication) error {
		return r.Documents.Create(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ActivateBacklog sweeps in-flight applications whose core stages are all
// complete, each in its own transaction. It returns how many it activated.
// A blank actor is recorded as SystemActor.
func (t *Tracker) ActivateBacklog(ctx context.Context, actor string, now time.Time) (int, error) {
	if actor == "" {
		actor = SystemActor
	}
	var ids []string
	err := t.uow.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		ids, err = r.Loans.ListIDsByStatus(ctx, loan.StatusSubmitted, loan.StatusInReview)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("list backlog: %w", err)
	}

	var (
		activated int
		failures  []error
	)
	for _, appID := range ids {
		buf := &audit.Buffer{}
		var ok bool
		err := t.uow.WithinLoanTx(ctx, appID, func(r uow.Repos, a *loan.LoanApplication) error {
			var err error
			ok, err = t.TryActivate(ctx, r, a, actor, now, buf)
			return err
		})
		if err != nil {
			t.log.Error().Err(err).Str("application_id", appID).Msg("backlog activation failed")
			failures = append(failures, fmt.Errorf("%s: %w", appID, err))
			continue
		}
		if ok {
			activated++
			t.flush(ctx, buf)
		}
	}
	return activated, errors.Join(failures...)
}
