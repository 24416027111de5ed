package db

import (
	"equity-lending/internal/domain/document"
	"equity-lending/internal/domain/grant"
	"equity-lending/internal/domain/loan"
	"equity-lending/internal/domain/membership"
	"equity-lending/internal/domain/policy"
	"equity-lending/internal/domain/reservation"
	"equity-lending/internal/domain/workflow"

	"gorm.io/gorm"
)

// Models lists every table owned by the service, parents first.
func Models() []any {
	return []any{
		&membership.Membership{},
		&policy.OrgPolicy{},
		&grant.Grant{},
		&grant.VestingEvent{},
		&loan.LoanApplication{},
		&reservation.ShareReservation{},
		&workflow.Stage{},
		&document.LoanDocument{},
	}
}

func Migrate(db *gorm.DB) error { return db.AutoMigrate(Models()...) }
