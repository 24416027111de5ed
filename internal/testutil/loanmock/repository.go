package loanmock

import (
	"context"

	domain "equity-lending/internal/domain/loan"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Writes default to no-ops; reads default to context.Canceled.
type Repo struct {
	CreateFn           func(ctx context.Context, a *domain.LoanApplication) error
	SaveFn             func(ctx context.Context, a *domain.LoanApplication) error
	GetByIDFn          func(ctx context.Context, id string) (*domain.LoanApplication, error)
	GetByIDForUpdateFn func(ctx context.Context, id string) (*domain.LoanApplication, error)
	GetByCreateKeyFn   func(ctx context.Context, membershipID, key string) (*domain.LoanApplication, error)
	GetBySubmitKeyFn   func(ctx context.Context, membershipID, key string) (*domain.LoanApplication, error)
	ListByMembershipFn func(ctx context.Context, membershipID string) ([]domain.LoanApplication, error)
	ListIDsByStatusFn  func(ctx context.Context, statuses ...domain.Status) ([]string, error)
	DeleteFn           func(ctx context.Context, id string) error
}

func (m *Repo) Create(ctx context.Context, a *domain.LoanApplication) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, a)
	}
	return nil
}

func (m *Repo) Save(ctx context.Context, a *domain.LoanApplication) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, a)
	}
	return nil
}

func (m *Repo) GetByID(ctx context.Context, id string) (*domain.LoanApplication, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByIDForUpdate(ctx context.Context, id string) (*domain.LoanApplication, error) {
	if m.GetByIDForUpdateFn != nil {
		return m.GetByIDForUpdateFn(ctx, id)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByCreateKey(ctx context.Context, membershipID, key string) (*domain.LoanApplication, error) {
	if m.GetByCreateKeyFn != nil {
		return m.GetByCreateKeyFn(ctx, membershipID, key)
	}
	return nil, context.Canceled
}

func (m *Repo) GetBySubmitKey(ctx context.Context, membershipID, key string) (*domain.LoanApplication, error) {
	if m.GetBySubmitKeyFn != nil {
		return m.GetBySubmitKeyFn(ctx, membershipID, key)
	}
	return nil, context.Canceled
}

func (m *Repo) ListByMembership(ctx context.Context, membershipID string) ([]domain.LoanApplication, error) {
	if m.ListByMembershipFn != nil {
		return m.ListByMembershipFn(ctx, membershipID)
	}
	return nil, context.Canceled
}

func (m *Repo) ListIDsByStatus(ctx context.Context, statuses ...domain.Status) ([]string, error) {
	if m.ListIDsByStatusFn != nil {
		return m.ListIDsByStatusFn(ctx, statuses...)
	}
	return nil, context.Canceled
}

func (m *Repo) Delete(ctx context.Context, id string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return nil
}
