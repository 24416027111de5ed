package mysql

import (
	"context"

	grantDomain "equity-lending/internal/domain/grant"

	"gorm.io/gorm"
)

type GrantRepository struct{ db *gorm.DB }

func NewGrantRepository(db *gorm.DB) *GrantRepository { return &GrantRepository{db: db} }

func orderedEvents(db *gorm.DB) *gorm.DB { return db.Order("vest_date ASC, id ASC") }

func (r *GrantRepository) Create(ctx context.Context, g *grantDomain.Grant) error {
	return r.db.WithContext(ctx).Create(g).Error
}

func (r *GrantRepository) Get(ctx context.Context, id string) (*grantDomain.Grant, error) {
	var out grantDomain.Grant
	res := r.db.WithContext(ctx).
		Preload("VestingEvents", orderedEvents).
		Where("id = ?", id).
		First(&out)
	return &out, res.Error
}

func (r *GrantRepository) GetForUpdate(ctx context.Context, id string) (*grantDomain.Grant, error) {
	var out grantDomain.Grant
	if err := forUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&out).Error; err != nil {
		return nil, err
	}
	err := r.db.WithContext(ctx).
		Where("grant_id = ?", id).
		Order("vest_date ASC, id ASC").
		Find(&out.VestingEvents).Error
	return &out, err
}

func (r *GrantRepository) ListActiveByMembership(ctx context.Context, membershipID string) ([]grantDomain.Grant, error) {
	var out []grantDomain.Grant
	res := r.db.WithContext(ctx).
		Preload("VestingEvents", orderedEvents).
		Where("membership_id = ? AND status = ?", membershipID, grantDomain.StatusActive).
		Order("grant_date ASC, id ASC").
		Find(&out)
	return out, res.Error
}

func (r *GrantRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("grant_id = ?", id).Delete(&grantDomain.VestingEvent{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&grantDomain.Grant{}).Error
	})
}
