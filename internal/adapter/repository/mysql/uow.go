package mysql

import (
	"context"
	"errors"

	"equity-lending/internal/domain/errs"
	"equity-lending/internal/domain/loan"
	"equity-lending/internal/domain/uow"

	"gorm.io/gorm"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

// Repos binds every repository to db, which may be a transaction.
func Repos(db *gorm.DB) uow.Repos {
	return uow.Repos{
		Grants:       &GrantRepository{db: db},
		Loans:        &LoanRepository{db: db},
		Reservations: &ReservationRepository{db: db},
		Stages:       &StageRepository{db: db},
		Documents:    &DocumentRepository{db: db},
		Memberships:  &MembershipRepository{db: db},
		Policies:     &PolicyRepository{db: db},
	}
}

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(Repos(tx))
	})
}

func (u *GormUoW) WithinLoanTx(ctx context.Context, appID string, fn func(r uow.Repos, a *loan.LoanApplication) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := Repos(tx)
		// lock the application row up-front to prevent races
		a, err := r.Loans.GetByIDForUpdate(ctx, appID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.ErrApplicationNotFound.WithDetails(map[string]any{"id": appID})
		}
		if err != nil {
			return err
		}
		return fn(r, a)
	})
}
