package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"equity-lending/internal/adapter/repository/mysql"
	"equity-lending/internal/domain/audit"
	"equity-lending/internal/domain/errs"
	"equity-lending/internal/domain/loan"
	"equity-lending/internal/domain/policy"
	"equity-lending/internal/domain/quote"
	domainReservation "equity-lending/internal/domain/reservation"
	"equity-lending/internal/domain/uow"
	domain "equity-lending/internal/domain/workflow"
	"equity-lending/internal/testutil/sqlitetest"
	loanUsecase "equity-lending/internal/usecase/loan"
	"equity-lending/internal/usecase/reservation"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	asOf = sqlitetest.Date(2025, 6, 1)
	now  = time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
)

type env struct {
	tracker    *Tracker
	loans      *loanUsecase.Usecase
	db         *gorm.DB
	audit      *audit.Buffer
	membership string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := sqlitetest.Open(t)
	fx := sqlitetest.Seed(t, db, nil)
	sqlitetest.Grant(t, db, fx.MembershipID, sqlitetest.Date(2023, 1, 1), 100, "1.00")

	tx := mysql.NewGormUoW(db)
	ledger := reservation.NewLedger(zerolog.Nop())
	buf := &audit.Buffer{}
	return &env{
		tracker:    NewTracker(tx, ledger, buf, zerolog.Nop()),
		loans:      loanUsecase.NewUsecase(tx, ledger, nil, nil, zerolog.Nop()),
		db:         db,
		audit:      buf,
		membership: fx.MembershipID,
	}
}

func (e *env) submitted(t *testing.T) *loan.LoanApplication {
	t.Helper()
	ctx := context.Background()
	a, _, err := e.loans.CreateDraft(ctx, loanUsecase.CreateDraftInput{
		MembershipID: e.membership,
		Request: quote.Request{
			SelectionMode:          quote.SelectionShares,
			SelectionValue:         decimal.NewFromInt(40),
			DesiredInterestType:    policy.InterestFixed,
			DesiredRepaymentMethod: policy.RepaymentInterestOnly,
			DesiredTermMonths:      12,
		},
		AsOf: asOf,
	})
	require.NoError(t, err)
	a, err = e.loans.Submit(ctx, loanUsecase.SubmitInput{ApplicationID: a.ID, AsOf: asOf})
	require.NoError(t, err)
	return a
}

func (e *env) complete(t *testing.T, appID string, st domain.StageType) *StageResult {
	t.Helper()
	res, err := e.tracker.UpdateStage(context.Background(), UpdateStageInput{
		ApplicationID: appID,
		StageType:     st,
		Status:        domain.StageCompleted,
		Actor:         "ops",
		Now:           now,
	})
	require.NoError(t, err)
	return res
}

func TestUpdateStage_ActivatesOnLastCoreStage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.submitted(t)

	res := e.complete(t, a.ID, domain.StageHRReview)
	assert.False(t, res.Activated)
	assert.Equal(t, domain.StageCompleted, res.Stage.Status)
	assert.Equal(t, "ops", *res.Stage.CompletedBy)
	assert.Equal(t, now, *res.Stage.CompletedAt)

	res = e.complete(t, a.ID, domain.StageFinanceProcessing)
	assert.False(t, res.Activated)
	assert.Equal(t, loan.StatusSubmitted, res.Application.Status)

	res = e.complete(t, a.ID, domain.StageLegalExecution)
	require.True(t, res.Activated)
	got := res.Application
	assert.Equal(t, loan.StatusActive, got.Status)
	assert.Equal(t, now, *got.ActivationDate)
	assert.Equal(t, sqlitetest.Date(2025, 7, 10), *got.Election83bDueDate)

	repos := mysql.Repos(e.db)
	rs, err := repos.Reservations.ListByApplication(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, domainReservation.StatusActive, rs[0].Status)

	stages, err := e.tracker.ListStages(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, stages, 5)
	assert.Empty(t, domain.Missing(stages, domain.PostActivationStages))

	actions := map[string]string{}
	for _, en := range e.audit.Entries {
		actions[en.Action] = en.Actor
	}
	assert.Equal(t, "ops", actions["loan_application.activated"])
	assert.Contains(t, actions, "loan_workflow_stage.updated")

	// a second attempt changes nothing
	err = mysql.NewGormUoW(e.db).WithinLoanTx(ctx, a.ID, func(r uow.Repos, app *loan.LoanApplication) error {
		ok, err := e.tracker.TryActivate(ctx, r, app, "ops", now.Add(time.Hour), audit.Nop{})
		assert.False(t, ok)
		return err
	})
	require.NoError(t, err)
	stages, err = e.tracker.ListStages(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, stages, 5)

	// post-activation stages can still progress on an ACTIVE loan
	res = e.complete(t, a.ID, domain.StageBorrower83bElection)
	assert.False(t, res.Activated)
	assert.Equal(t, loan.StatusActive, res.Application.Status)
}

func TestUpdateStage_Rejects(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.submitted(t)

	_, err := e.tracker.UpdateStage(ctx, UpdateStageInput{ApplicationID: a.ID, StageType: "SIGN_OFF", Status: domain.StageCompleted})
	assert.True(t, errors.Is(err, errs.ErrStageNotFound), "got %v", err)

	_, err = e.tracker.UpdateStage(ctx, UpdateStageInput{ApplicationID: a.ID, StageType: domain.StageHRReview, Status: domain.StagePending})
	assert.True(t, errors.Is(err, errs.ErrInvalidStageStatus), "got %v", err)

	// post-activation stages do not exist before activation
	_, err = e.tracker.UpdateStage(ctx, UpdateStageInput{ApplicationID: a.ID, StageType: domain.StageLegalPostIssuance, Status: domain.StageInProgress})
	assert.True(t, errors.Is(err, errs.ErrStageNotFound), "got %v", err)

	_, err = e.tracker.UpdateStage(ctx, UpdateStageInput{ApplicationID: "missing", StageType: domain.StageHRReview, Status: domain.StageInProgress})
	assert.True(t, errors.Is(err, errs.ErrApplicationNotFound), "got %v", err)

	draft, _, err := e.loans.CreateDraft(ctx, loanUsecase.CreateDraftInput{
		MembershipID: e.membership,
		Request:      quote.Request{SelectionMode: quote.SelectionPercent, SelectionValue: decimal.NewFromInt(10), DesiredTermMonths: 12},
		AsOf:         asOf,
	})
	require.NoError(t, err)
	_, err = e.tracker.UpdateStage(ctx, UpdateStageInput{ApplicationID: draft.ID, StageType: domain.StageHRReview, Status: domain.StageInProgress})
	assert.True(t, errors.Is(err, errs.ErrInvalidStatus), "got %v", err)
}

func TestUpdateStage_InProgressClearsCompletion(t *testing.T) {
	e := newEnv(t)
	a := e.submitted(t)
	e.complete(t, a.ID, domain.StageHRReview)

	notes := "waiting on consent form"
	res, err := e.tracker.UpdateStage(context.Background(), UpdateStageInput{
		ApplicationID: a.ID,
		StageType:     domain.StageHRReview,
		Status:        domain.StageInProgress,
		Notes:         &notes,
		Actor:         "ops",
		Now:           now,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StageInProgress, res.Stage.Status)
	assert.Nil(t, res.Stage.CompletedBy)
	assert.Nil(t, res.Stage.CompletedAt)
	assert.Equal(t, notes, res.Stage.Notes)
}

func TestDocuments(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.submitted(t)

	missing, err := e.tracker.MissingDocuments(ctx, a.ID, domain.StageHRReview)
	require.NoError(t, err)
	assert.Equal(t, []string{"NOTICE_OF_STOCK_OPTION_GRANT", "SPOUSE_PARTNER_CONSENT"}, missing)

	d, err := e.tracker.AttachDocument(ctx, AttachDocumentInput{
		ApplicationID: a.ID,
		StageType:     domain.StageHRReview,
		DocumentType:  "SPOUSE_PARTNER_CONSENT",
		StorageKey:    "loans/" + a.ID + "/consent.pdf",
		Actor:         "u1",
	})
	require.NoError(t, err)
	assert.Len(t, d.ID, 32)

	missing, err = e.tracker.MissingDocuments(ctx, a.ID, domain.StageHRReview)
	require.NoError(t, err)
	assert.Equal(t, []string{"NOTICE_OF_STOCK_OPTION_GRANT"}, missing)

	_, err = e.tracker.MissingDocuments(ctx, "missing", domain.StageHRReview)
	assert.True(t, errors.Is(err, errs.ErrApplicationNotFound), "got %v", err)

	_, err = e.tracker.AttachDocument(ctx, AttachDocumentInput{ApplicationID: "missing", StageType: domain.StageHRReview, DocumentType: "X"})
	assert.True(t, errors.Is(err, errs.ErrApplicationNotFound), "got %v", err)
	_, err = e.tracker.AttachDocument(ctx, AttachDocumentInput{ApplicationID: a.ID, StageType: "NOPE", DocumentType: "X"})
	assert.True(t, errors.Is(err, errs.ErrStageNotFound), "got %v", err)
}

func TestActivateBacklog(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ready := e.submitted(t)
	pending := e.submitted(t)

	// stages finished outside the tracker, e.g. by a bulk import
	require.NoError(t, e.db.Model(&domain.Stage{}).
		Where("loan_application_id = ?", ready.ID).
		Update("status", domain.StageCompleted).Error)

	n, err := e.tracker.ActivateBacklog(ctx, "", now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var activations []audit.Entry
	for _, en := range e.audit.Entries {
		if en.Action == "loan_application.activated" {
			activations = append(activations, en)
		}
	}
	require.Len(t, activations, 1)
	assert.Equal(t, SystemActor, activations[0].Actor)
	assert.Equal(t, ready.ID, activations[0].ResourceID)

	got, err := e.loans.Get(ctx, ready.ID)
	require.NoError(t, err)
	assert.Equal(t, loan.StatusActive, got.Status)
	assert.Len(t, got.Stages, 5)

	got, err = e.loans.Get(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, loan.StatusSubmitted, got.Status)

	n, err = e.tracker.ActivateBacklog(ctx, "ops", now)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestListStages_NotFound(t *testing.T) {
	e := newEnv(t)
	_, err := e.tracker.ListStages(context.Background(), "missing")
	assert.True(t, errors.Is(err, errs.ErrApplicationNotFound), "got %v", err)
}
