package mysql

import (
	"context"

	documentDomain "equity-lending/internal/domain/document"
	"equity-lending/internal/domain/errs"
	loanDomain "equity-lending/internal/domain/loan"
	reservationDomain "equity-lending/internal/domain/reservation"
	workflowDomain "equity-lending/internal/domain/workflow"

	"gorm.io/gorm"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

func (r *LoanRepository) Create(ctx context.Context, a *loanDomain.LoanApplication) error {
	if a.Version == 0 {
		a.Version = 1
	}
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *LoanRepository) Save(ctx context.Context, a *loanDomain.LoanApplication) error {
	prev := a.Version
	a.Version = prev + 1
	res := r.db.WithContext(ctx).
		Model(a).
		Where("version = ?", prev).
		Select("*").
		Omit("id", "created_at").
		Updates(a)
	if res.Error != nil {
		a.Version = prev
		return res.Error
	}
	if res.RowsAffected == 0 {
		a.Version = prev
		return errs.ErrConcurrentUpdate.WithDetails(map[string]any{"id": a.ID, "version": prev})
	}
	return nil
}

func (r *LoanRepository) GetByID(ctx context.Context, id string) (*loanDomain.LoanApplication, error) {
	var out loanDomain.LoanApplication
	res := r.db.WithContext(ctx).Where("id = ?", id).First(&out)
	return &out, res.Error
}

func (r *LoanRepository) GetByIDForUpdate(ctx context.Context, id string) (*loanDomain.LoanApplication, error) {
	var out loanDomain.LoanApplication
	res := forUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&out)
	return &out, res.Error
}

func (r *LoanRepository) GetByCreateKey(ctx context.Context, membershipID, key string) (*loanDomain.LoanApplication, error) {
	var out loanDomain.LoanApplication
	res := r.db.WithContext(ctx).
		Where("membership_id = ? AND create_idempotency_key = ?", membershipID, key).
		First(&out)
	return &out, res.Error
}

func (r *LoanRepository) GetBySubmitKey(ctx context.Context, membershipID, key string) (*loanDomain.LoanApplication, error) {
	var out loanDomain.LoanApplication
	res := r.db.WithContext(ctx).
		Where("membership_id = ? AND submit_idempotency_key = ?", membershipID, key).
		First(&out)
	return &out, res.Error
}

func (r *LoanRepository) ListByMembership(ctx context.Context, membershipID string) ([]loanDomain.LoanApplication, error) {
	var out []loanDomain.LoanApplication
	res := r.db.WithContext(ctx).
		Where("membership_id = ?", membershipID).
		Order("created_at DESC, id DESC").
		Find(&out)
	return out, res.Error
}

func (r *LoanRepository) ListIDsByStatus(ctx context.Context, statuses ...loanDomain.Status) ([]string, error) {
	var ids []string
	res := r.db.WithContext(ctx).
		Model(&loanDomain.LoanApplication{}).
		Where("status IN ?", statuses).
		Order("created_at ASC, id ASC").
		Pluck("id", &ids)
	return ids, res.Error
}

func (r *LoanRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		children := []any{
			&workflowDomain.Stage{},
			&reservationDomain.ShareReservation{},
			&documentDomain.LoanDocument{},
		}
		for _, m := range children {
			if err := tx.Where("loan_application_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", id).Delete(&loanDomain.LoanApplication{}).Error
	})
}
