package uowmock

import (
	"context"
	"errors"
	"testing"

	"equity-lending/internal/domain/loan"
	"equity-lending/internal/domain/uow"
	"equity-lending/internal/testutil/loanmock"
	"equity-lending/internal/testutil/stagemock"
)

func TestUoW_WithinTx_Happy(t *testing.T) {
	ctx := context.Background()

	loans := &loanmock.Repo{}
	stages := &stagemock.Repo{}
	repos := uow.Repos{Loans: loans, Stages: stages}

	innerCalled := false
	m := &UoW{
		WithinTxFn: func(gotCtx context.Context, fn func(r uow.Repos) error) error {
			if gotCtx != ctx {
				t.Fatalf("WithinTx: ctx mismatch")
			}
			if fn == nil {
				t.Fatalf("WithinTx: fn is nil")
			}
			// simulate transaction body
			return fn(repos)
		},
	}

	err := m.WithinTx(ctx, func(r uow.Repos) error {
		innerCalled = true
		if r.Loans != loans || r.Stages != stages {
			t.Fatalf("WithinTx: repos not forwarded correctly")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinTx: unexpected err: %v", err)
	}
	if !innerCalled {
		t.Fatalf("WithinTx: inner fn not called")
	}
}

func TestUoW_WithinTx_PropagatesError(t *testing.T) {
	ctx := context.Background()
	sentinel := errors.New("boom")

	m := &UoW{
		WithinTxFn: func(context.Context, func(uow.Repos) error) error {
			return sentinel
		},
	}
	if err := m.WithinTx(ctx, func(uow.Repos) error { return nil }); !errors.Is(err, sentinel) {
		t.Fatalf("WithinTx: want %v, got %v", sentinel, err)
	}
}

func TestUoW_WithinTx_Default_Unimplemented(t *testing.T) {
	ctx := context.Background()
	m := &UoW{} // no funcs set
	if err := m.WithinTx(ctx, func(uow.Repos) error { return nil }); !errors.Is(err, errUnimplemented) {
		t.Fatalf("WithinTx default: want errUnimplemented, got %v", err)
	}
}

func TestUoW_WithinLoanTx_Happy(t *testing.T) {
	ctx := context.Background()

	loans := &loanmock.Repo{}
	stages := &stagemock.Repo{}
	repos := uow.Repos{Loans: loans, Stages: stages}
	lock := &loan.LoanApplication{ID: "app-7"}

	innerCalled := false
	m := &UoW{
		WithinLoanTxFn: func(gotCtx context.Context, appID string, fn func(r uow.Repos, a *loan.LoanApplication) error) error {
			if gotCtx != ctx {
				t.Fatalf("WithinLoanTx: ctx mismatch")
			}
			if appID != "app-7" {
				t.Fatalf("WithinLoanTx: appID mismatch, got %s", appID)
			}
			return fn(repos, lock)
		},
	}

	err := m.WithinLoanTx(ctx, "app-7", func(r uow.Repos, a *loan.LoanApplication) error {
		innerCalled = true
		if r.Loans != loans || r.Stages != stages {
			t.Fatalf("WithinLoanTx: repos not forwarded")
		}
		if a != lock || a.ID != "app-7" {
			t.Fatalf("WithinLoanTx: application not forwarded correctly: %+v", a)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinLoanTx: unexpected err: %v", err)
	}
	if !innerCalled {
		t.Fatalf("WithinLoanTx: inner fn not called")
	}
}

func TestUoW_WithinLoanTx_PropagatesError(t *testing.T) {
	ctx := context.Background()
	sentinel := errors.New("stop")

	m := &UoW{
		WithinLoanTxFn: func(context.Context, string, func(uow.Repos, *loan.LoanApplication) error) error {
			return sentinel
		},
	}
	if err := m.WithinLoanTx(ctx, "app-x", func(uow.Repos, *loan.LoanApplication) error { return nil }); !errors.Is(err, sentinel) {
		t.Fatalf("WithinLoanTx: want %v, got %v", sentinel, err)
	}
}

func TestUoW_Default_Unimplemented_WithinLoanTx(t *testing.T) {
	ctx := context.Background()
	m := &UoW{} // no funcs set
	if err := m.WithinLoanTx(ctx, "app-x", func(uow.Repos, *loan.LoanApplication) error { return nil }); !errors.Is(err, errUnimplemented) {
		t.Fatalf("WithinLoanTx default: want errUnimplemented, got %v", err)
	}
}

func TestPassthrough(t *testing.T) {
	ctx := context.Background()
	want := &loan.LoanApplication{ID: "app-1"}
	repos := uow.Repos{Loans: &loanmock.Repo{
		GetByIDForUpdateFn: func(_ context.Context, id string) (*loan.LoanApplication, error) {
			if id != "app-1" {
				return nil, errors.New("not found")
			}
			return want, nil
		},
	}}
	m := Passthrough(repos)

	var got *loan.LoanApplication
	if err := m.WithinLoanTx(ctx, "app-1", func(_ uow.Repos, a *loan.LoanApplication) error {
		got = a
		return nil
	}); err != nil {
		t.Fatalf("Passthrough: unexpected err: %v", err)
	}
	if got != want {
		t.Fatalf("Passthrough: application not loaded")
	}
	if err := m.WithinLoanTx(ctx, "other", func(uow.Repos, *loan.LoanApplication) error { return nil }); err == nil {
		t.Fatalf("Passthrough: want lookup error")
	}
	if err := m.WithinTx(ctx, func(r uow.Repos) error {
		if r.Loans != repos.Loans {
			t.Fatalf("Passthrough: repos not forwarded")
		}
		return nil
	}); err != nil {
		t.Fatalf("Passthrough WithinTx: %v", err)
	}
}

func TestUoW_FluentSetters_And_Reset(t *testing.T) {
	m := New()
	if m.WithinTxFn != nil || m.WithinLoanTxFn != nil {
		t.Fatalf("New should start with nil funcs")
	}

	// set via fluent setters
	m.WithWithinTx(func(context.Context, func(uow.Repos) error) error { return nil }).
		WithWithinLoanTx(func(context.Context, string, func(uow.Repos, *loan.LoanApplication) error) error { return nil })

	if m.WithinTxFn == nil || m.WithinLoanTxFn == nil {
		t.Fatalf("fluent setters didn't assign funcs")
	}

	// reset clears funcs
	m.Reset()
	if m.WithinTxFn != nil || m.WithinLoanTxFn != nil {
		t.Fatalf("Reset should clear function fields")
	}
}
