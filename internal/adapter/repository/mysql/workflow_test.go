package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	documentDomain "equity-lending/internal/domain/document"
	loanDomain "equity-lending/internal/domain/loan"
	workflowDomain "equity-lending/internal/domain/workflow"
	"equity-lending/internal/testutil/sqlitetest"
	"equity-lending/pkg/id"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestStageRepository_Lifecycle(t *testing.T) {
	db := sqlitetest.Open(t)
	fx := sqlitetest.Seed(t, db, nil)
	r := Repos(db)
	ctx := context.Background()

	a := makeApplication(fx, loanDomain.StatusSubmitted)
	require.NoError(t, r.Loans.Create(ctx, a))
	require.NoError(t, r.Stages.CreateBatch(ctx, nil))
	require.NoError(t, r.Stages.CreateBatch(ctx, workflowDomain.NewStages(a.ID, workflowDomain.CoreStages)))

	// one stage per type
	dup := workflowDomain.NewStages(a.ID, workflowDomain.CoreStages[:1])
	assert.True(t, errors.Is(r.Stages.CreateBatch(ctx, dup), gorm.ErrDuplicatedKey))

	s, err := r.Stages.GetByTypeForUpdate(ctx, a.ID, workflowDomain.StageHRReview)
	require.NoError(t, err)
	by := "ops"
	at := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	s.Status = workflowDomain.StageCompleted
	s.CompletedBy = &by
	s.CompletedAt = &at
	require.NoError(t, r.Stages.Save(ctx, s))

	stages, err := r.Stages.ListByApplication(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, stages, 3)
	var hr workflowDomain.Stage
	for _, st := range stages {
		if st.StageType == workflowDomain.StageHRReview {
			hr = st
		}
	}
	assert.Equal(t, workflowDomain.StageCompleted, hr.Status)
	require.NotNil(t, hr.CompletedAt)
	assert.True(t, at.Equal(*hr.CompletedAt))

	require.NoError(t, r.Stages.ResetForApplication(ctx, a.ID))
	stages, err = r.Stages.ListByApplication(ctx, a.ID)
	require.NoError(t, err)
	for _, st := range stages {
		assert.Equal(t, workflowDomain.StagePending, st.Status)
		assert.Nil(t, st.CompletedBy)
		assert.Nil(t, st.CompletedAt)
	}

	_, err = r.Stages.GetByTypeForUpdate(ctx, a.ID, workflowDomain.StageLegalPostIssuance)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	require.NoError(t, r.Stages.DeleteByApplication(ctx, a.ID))
	stages, err = r.Stages.ListByApplication(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, stages)
}

func TestDocumentRepository(t *testing.T) {
	db := sqlitetest.Open(t)
	fx := sqlitetest.Seed(t, db, nil)
	r := Repos(db)
	ctx := context.Background()

	a := makeApplication(fx, loanDomain.StatusSubmitted)
	require.NoError(t, r.Loans.Create(ctx, a))

	hr := string(workflowDomain.StageHRReview)
	for _, d := range []struct{ stage, typ string }{
		{hr, "SPOUSE_PARTNER_CONSENT"},
		{hr, "SPOUSE_PARTNER_CONSENT"},
		{hr, "NOTICE_OF_STOCK_OPTION_GRANT"},
		{string(workflowDomain.StageLegalExecution), "PROMISSORY_NOTE"},
	} {
		require.NoError(t, r.Documents.Create(ctx, &documentDomain.LoanDocument{
			ID: id.NewID32(), LoanApplicationID: a.ID, StageType: d.stage,
			DocumentType: d.typ, StorageKey: "loans/" + a.ID + "/" + d.typ, UploadedBy: "u1",
		}))
	}

	docs, err := r.Documents.ListByApplication(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, docs, 4)

	types, err := r.Documents.TypesForStage(ctx, a.ID, hr)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"SPOUSE_PARTNER_CONSENT", "NOTICE_OF_STOCK_OPTION_GRANT"}, types)

	require.NoError(t, r.Documents.DeleteByApplication(ctx, a.ID))
	docs, err = r.Documents.ListByApplication(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMembershipAndPolicyRepositories(t *testing.T) {
	db := sqlitetest.Open(t)
	fx := sqlitetest.Seed(t, db, nil)
	r := Repos(db)
	ctx := context.Background()

	m, err := r.Memberships.Get(ctx, fx.MembershipID)
	require.NoError(t, err)
	assert.Equal(t, fx.OrgID, m.OrgID)

	_, err = r.Memberships.Get(ctx, "missing")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	p, err := r.Policies.GetByOrg(ctx, fx.OrgID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.PolicyVersion)
	assert.True(t, p.VariableBaseRateAnnualPercent.Valid)

	p.MaxTermMonths = 36
	require.NoError(t, r.Policies.Save(ctx, p))
	p, err = r.Policies.GetByOrg(ctx, fx.OrgID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.PolicyVersion)
	assert.Equal(t, 36, p.MaxTermMonths)
}
