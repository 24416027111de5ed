package loan

import "context"

type Repository interface {
	Create(ctx context.Context, a *LoanApplication) error

	// Save writes every column guarded by the version the caller loaded and
	// bumps it. A stale version yields errs.ErrConcurrentUpdate.
	Save(ctx context.Context, a *LoanApplication) error

	GetByID(ctx context.Context, id string) (*LoanApplication, error)
	GetByIDForUpdate(ctx context.Context, id string) (*LoanApplication, error)
	GetByCreateKey(ctx context.Context, membershipID, key string) (*LoanApplication, error)
	GetBySubmitKey(ctx context.Context, membershipID, key string) (*LoanApplication, error)

	// ListByMembership returns newest first.
	ListByMembership(ctx context.Context, membershipID string) ([]LoanApplication, error)

	// ListIDsByStatus returns ids oldest first.
	ListIDsByStatus(ctx context.Context, statuses ...Status) ([]string, error)

	// Delete removes stages, reservations and documents, then the application.
	Delete(ctx context.Context, id string) error
}
