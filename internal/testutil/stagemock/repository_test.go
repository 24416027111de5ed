package stagemock

import (
	"context"
	"errors"
	"testing"

	domain "equity-lending/internal/domain/workflow"
)

func TestRepo_Defaults(t *testing.T) {
	ctx := context.Background()
	m := &Repo{}

	if _, err := m.ListByApplication(ctx, "a"); err != context.Canceled {
		t.Fatalf("ListByApplication default: want context.Canceled, got %v", err)
	}
	if _, err := m.GetByTypeForUpdate(ctx, "a", domain.StageHRReview); err != context.Canceled {
		t.Fatalf("GetByTypeForUpdate default: want context.Canceled, got %v", err)
	}
	if err := m.CreateBatch(ctx, nil); err != nil {
		t.Fatalf("CreateBatch default: want nil, got %v", err)
	}
	if err := m.Save(ctx, &domain.Stage{}); err != nil {
		t.Fatalf("Save default: want nil, got %v", err)
	}
	if err := m.ResetForApplication(ctx, "a"); err != nil {
		t.Fatalf("ResetForApplication default: want nil, got %v", err)
	}
	if err := m.DeleteByApplication(ctx, "a"); err != nil {
		t.Fatalf("DeleteByApplication default: want nil, got %v", err)
	}
}

func TestRepo_UsesFuncs(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	var created []domain.Stage
	m := &Repo{
		ListByApplicationFn: func(_ context.Context, appID string) ([]domain.Stage, error) {
			return []domain.Stage{{LoanApplicationID: appID, StageType: domain.StageHRReview}}, nil
		},
		CreateBatchFn: func(_ context.Context, s []domain.Stage) error {
			created = s
			return nil
		},
		SaveFn: func(context.Context, *domain.Stage) error { return boom },
	}

	got, err := m.ListByApplication(ctx, "app")
	if err != nil || len(got) != 1 || got[0].LoanApplicationID != "app" {
		t.Fatalf("ListByApplication: unexpected %+v (%v)", got, err)
	}
	if err := m.CreateBatch(ctx, domain.NewStages("app", domain.CoreStages)); err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("CreateBatch: want 3 stages, got %d", len(created))
	}
	if err := m.Save(ctx, &domain.Stage{}); !errors.Is(err, boom) {
		t.Fatalf("Save: want %v, got %v", boom, err)
	}
}
