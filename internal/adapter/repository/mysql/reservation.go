package mysql

import (
	"context"

	reservationDomain "equity-lending/internal/domain/reservation"

	"gorm.io/gorm"
)

type ReservationRepository struct{ db *gorm.DB }

func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func (r *ReservationRepository) ActiveByGrant(ctx context.Context, grantIDs []string, excludeAppID string) (map[string]int64, error) {
	return r.activeByGrant(r.db.WithContext(ctx), grantIDs, excludeAppID)
}

func (r *ReservationRepository) ActiveByGrantForUpdate(ctx context.Context, grantIDs []string, excludeAppID string) (map[string]int64, error) {
	return r.activeByGrant(forUpdate(r.db.WithContext(ctx)), grantIDs, excludeAppID)
}

func (r *ReservationRepository) activeByGrant(db *gorm.DB, grantIDs []string, excludeAppID string) (map[string]int64, error) {
	out := make(map[string]int64, len(grantIDs))
	if len(grantIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		GrantID string
		Total   int64
	}
	q := db.
		Model(&reservationDomain.ShareReservation{}).
		Select("grant_id, COALESCE(SUM(shares_reserved), 0) AS total").
		Where("grant_id IN ? AND status IN ?", grantIDs, reservationDomain.ActiveStatuses)
	if excludeAppID != "" {
		q = q.Where("loan_application_id <> ?", excludeAppID)
	}
	if err := q.Group("grant_id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.GrantID] = row.Total
	}
	return out, nil
}

func (r *ReservationRepository) CreateBatch(ctx context.Context, rs []reservationDomain.ShareReservation) error {
	if len(rs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rs).Error
}

func (r *ReservationRepository) ListByApplication(ctx context.Context, appID string) ([]reservationDomain.ShareReservation, error) {
	var out []reservationDomain.ShareReservation
	res := r.db.WithContext(ctx).
		Where("loan_application_id = ?", appID).
		Order("created_at ASC, id ASC").
		Find(&out)
	return out, res.Error
}

func (r *ReservationRepository) SetStatusForApplication(ctx context.Context, appID string, s reservationDomain.Status) error {
	return r.db.WithContext(ctx).
		Model(&reservationDomain.ShareReservation{}).
		Where("loan_application_id = ?", appID).
		Update("status", s).Error
}

func (r *ReservationRepository) DeleteByApplication(ctx context.Context, appID string) error {
	return r.db.WithContext(ctx).
		Where("loan_application_id = ?", appID).
		Delete(&reservationDomain.ShareReservation{}).Error
}
