// Package sqlitetest opens migrated in-memory databases and seeds the read
// models the lifecycle depends on.
package sqlitetest

import (
	"context"
	"testing"
	"time"

	"equity-lending/internal/domain/grant"
	"equity-lending/internal/domain/membership"
	"equity-lending/internal/domain/policy"
	"equity-lending/internal/infrastructure/db"
	"equity-lending/pkg/id"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open returns a fresh shared-cache database. A single connection serialises
// transactions the way row locks would on MySQL.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + id.NewID32() + "?mode=memory&cache=shared"
	g, err := db.OpenGormWithDialector(sqlite.Open(dsn), zerolog.Nop())
	require.NoError(t, err)

	sqlDB, err := g.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(g))
	return g
}

func Date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

// Policy is a permissive org policy: fixed 6% and variable 4%+2%, all
// repayment methods, 6..60 months, no down payment.
func Policy(orgID string) *policy.OrgPolicy {
	return &policy.OrgPolicy{
		OrgID:                         orgID,
		PolicyVersion:                 1,
		AllowedInterestTypes:          []policy.InterestType{policy.InterestFixed, policy.InterestVariable},
		AllowedRepaymentMethods:       []policy.RepaymentMethod{policy.RepaymentPrincipalAndInterest, policy.RepaymentInterestOnly, policy.RepaymentBalloon},
		MinTermMonths:                 6,
		MaxTermMonths:                 60,
		FixedRateAnnualPercent:        decimal.NewFromInt(6),
		VariableBaseRateAnnualPercent: decimal.NewNullDecimal(decimal.NewFromInt(4)),
		VariableMarginAnnualPercent:   decimal.NewNullDecimal(decimal.NewFromInt(2)),
	}
}

type Fixture struct {
	OrgID        string
	MembershipID string
}

// Seed inserts an active single employee, the given policy (Policy() when
// nil) and no grants.
func Seed(t *testing.T, g *gorm.DB, p *policy.OrgPolicy) Fixture {
	t.Helper()
	orgID := id.NewID32()
	start := Date(2020, 1, 1)
	m := &membership.Membership{
		ID:                  id.NewID32(),
		OrgID:               orgID,
		UserID:              id.NewID32(),
		EmploymentStatus:    membership.StatusActive,
		PlatformStatus:      membership.StatusActive,
		EmploymentStartDate: &start,
		MaritalStatus:       string(membership.MaritalSingle),
	}
	require.NoError(t, g.Create(m).Error)
	if p == nil {
		p = Policy(orgID)
	}
	p.OrgID = orgID
	require.NoError(t, g.Create(p).Error)
	return Fixture{OrgID: orgID, MembershipID: m.ID}
}

// Grant inserts an IMMEDIATE grant for the membership.
func Grant(t *testing.T, g *gorm.DB, membershipID string, date time.Time, shares int64, price string) *grant.Grant {
	t.Helper()
	gr, err := grant.New(grant.NewGrantInput{
		ID:              id.NewID32(),
		MembershipID:    membershipID,
		GrantDate:       date,
		TotalShares:     shares,
		ExercisePrice:   decimal.RequireFromString(price),
		VestingStrategy: grant.StrategyImmediate,
	})
	require.NoError(t, err)
	require.NoError(t, g.WithContext(context.Background()).Create(gr).Error)
	return gr
}
