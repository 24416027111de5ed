package uow

import (
	"context"

	"equity-lending/internal/domain/document"
	"equity-lending/internal/domain/grant"
	"equity-lending/internal/domain/loan"
	"equity-lending/internal/domain/membership"
	"equity-lending/internal/domain/policy"
	"equity-lending/internal/domain/reservation"
	"equity-lending/internal/domain/workflow"
)

// Repos are bound to the same transaction.
type Repos struct {
	Grants       grant.Repository
	Loans        loan.Repository
	Reservations reservation.Repository
	Stages       workflow.Repository
	Documents    document.Repository
	Memberships  membership.Repository
	Policies     policy.Repository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// lock the application row first, then pass it in
	WithinLoanTx(ctx context.Context, appID string, fn func(r Repos, a *loan.LoanApplication) error) error
}
