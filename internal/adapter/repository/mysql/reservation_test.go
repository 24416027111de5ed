package mysql

import (
	"context"
	"testing"

	loanDomain "equity-lending/internal/domain/loan"
	reservationDomain "equity-lending/internal/domain/reservation"
	"equity-lending/internal/testutil/sqlitetest"
	"equity-lending/pkg/id"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservationRepository_ActiveByGrant(t *testing.T) {
	db := sqlitetest.Open(t)
	fx := sqlitetest.Seed(t, db, nil)
	g1 := sqlitetest.Grant(t, db, fx.MembershipID, sqlitetest.Date(2023, 1, 1), 100, "1.00")
	g2 := sqlitetest.Grant(t, db, fx.MembershipID, sqlitetest.Date(2023, 2, 1), 100, "1.00")
	r := Repos(db)
	ctx := context.Background()

	reserve := func(status reservationDomain.Status, shares map[string]int64) string {
		a := makeApplication(fx, loanDomain.StatusSubmitted)
		require.NoError(t, r.Loans.Create(ctx, a))
		var rs []reservationDomain.ShareReservation
		for gid, n := range shares {
			rs = append(rs, reservationDomain.ShareReservation{
				ID: id.NewID32(), GrantID: gid, LoanApplicationID: a.ID,
				MembershipID: fx.MembershipID, SharesReserved: n, Status: status,
			})
		}
		require.NoError(t, r.Reservations.CreateBatch(ctx, rs))
		return a.ID
	}

	first := reserve(reservationDomain.StatusSubmitted, map[string]int64{g1.ID: 10, g2.ID: 5})
	reserve(reservationDomain.StatusActive, map[string]int64{g1.ID: 20})
	reserve(reservationDomain.StatusCancelled, map[string]int64{g1.ID: 40})

	got, err := r.Reservations.ActiveByGrant(ctx, []string{g1.ID, g2.ID}, "")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{g1.ID: 30, g2.ID: 5}, got)

	got, err = r.Reservations.ActiveByGrant(ctx, []string{g1.ID, g2.ID}, first)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{g1.ID: 20}, got)

	got, err = r.Reservations.ActiveByGrant(ctx, nil, "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReservationRepository_StatusAndDelete(t *testing.T) {
	db := sqlitetest.Open(t)
	fx := sqlitetest.Seed(t, db, nil)
	g := sqlitetest.Grant(t, db, fx.MembershipID, sqlitetest.Date(2023, 1, 1), 100, "1.00")
	r := Repos(db)
	ctx := context.Background()

	a := makeApplication(fx, loanDomain.StatusSubmitted)
	require.NoError(t, r.Loans.Create(ctx, a))
	require.NoError(t, r.Reservations.CreateBatch(ctx, nil))
	require.NoError(t, r.Reservations.CreateBatch(ctx, []reservationDomain.ShareReservation{{
		ID: id.NewID32(), GrantID: g.ID, LoanApplicationID: a.ID,
		MembershipID: fx.MembershipID, SharesReserved: 10, Status: reservationDomain.StatusSubmitted,
	}}))

	require.NoError(t, r.Reservations.SetStatusForApplication(ctx, a.ID, reservationDomain.StatusActive))
	rs, err := r.Reservations.ListByApplication(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, reservationDomain.StatusActive, rs[0].Status)

	require.NoError(t, r.Reservations.DeleteByApplication(ctx, a.ID))
	rs, err = r.Reservations.ListByApplication(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, rs)
}
