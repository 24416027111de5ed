package reservation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"equity-lending/internal/adapter/repository/mysql"
	"equity-lending/internal/domain/errs"
	"equity-lending/internal/domain/loan"
	"equity-lending/internal/domain/quote"
	domain "equity-lending/internal/domain/reservation"
	"equity-lending/internal/domain/uow"
	"equity-lending/internal/testutil/sqlitetest"
	"equity-lending/pkg/id"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var asOf = sqlitetest.Date(2025, 6, 1)

func app(membershipID string, s loan.Status) *loan.LoanApplication {
	return &loan.LoanApplication{ID: id.NewID32(), MembershipID: membershipID, Status: s}
}

func TestLedger_ReserveAndRelease(t *testing.T) {
	db := sqlitetest.Open(t)
	fx := sqlitetest.Seed(t, db, nil)
	g1 := sqlitetest.Grant(t, db, fx.MembershipID, sqlitetest.Date(2023, 1, 1), 100, "1.00")
	g2 := sqlitetest.Grant(t, db, fx.MembershipID, sqlitetest.Date(2024, 1, 1), 50, "2.00")

	ctx := context.Background()
	l := NewLedger(zerolog.Nop())
	u := mysql.NewGormUoW(db)
	a := app(fx.MembershipID, loan.StatusSubmitted)

	err := u.WithinTx(ctx, func(r uow.Repos) error {
		return l.Reserve(ctx, r, a, []quote.Allocation{
			{GrantID: g1.ID, Shares: 100},
			{GrantID: g2.ID, Shares: 10},
		}, asOf)
	})
	require.NoError(t, err)

	r := mysql.Repos(db)
	held, err := l.ReservedByGrant(ctx, r, []string{g1.ID, g2.ID}, "")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{g1.ID: 100, g2.ID: 10}, held)

	held, err = l.ReservedByGrant(ctx, r, []string{g1.ID, g2.ID}, a.ID)
	require.NoError(t, err)
	assert.Empty(t, held)

	rows, err := r.Reservations.ListByApplication(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, domain.StatusSubmitted, row.Status)
		assert.Equal(t, fx.MembershipID, row.MembershipID)
	}

	// a second application cannot take what the first holds
	b := app(fx.MembershipID, loan.StatusSubmitted)
	err = l.Reserve(ctx, r, b, []quote.Allocation{{GrantID: g1.ID, Shares: 1}}, asOf)
	require.True(t, errors.Is(err, errs.ErrInsufficientAvailableShares), "got %v", err)
	assert.Equal(t, int64(0), err.(*errs.Error).Details["available_shares"])

	// rejected reservations stop holding capacity
	require.NoError(t, l.SyncStatus(ctx, r, a.ID, loan.StatusRejected))
	require.NoError(t, l.Reserve(ctx, r, b, []quote.Allocation{{GrantID: g1.ID, Shares: 100}}, asOf))

	require.NoError(t, l.Release(ctx, r, b.ID))
	rows, err = r.Reservations.ListByApplication(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLedger_Reserve_GrantNotFound(t *testing.T) {
	db := sqlitetest.Open(t)
	fx := sqlitetest.Seed(t, db, nil)

	err := NewLedger(zerolog.Nop()).Reserve(context.Background(), mysql.Repos(db),
		app(fx.MembershipID, loan.StatusSubmitted),
		[]quote.Allocation{{GrantID: "missing", Shares: 1}}, asOf)
	assert.True(t, errors.Is(err, errs.ErrGrantNotFound), "got %v", err)
}

func TestLedger_Reserve_UnvestedNotAvailable(t *testing.T) {
	db := sqlitetest.Open(t)
	fx := sqlitetest.Seed(t, db, nil)
	future := sqlitetest.Grant(t, db, fx.MembershipID, sqlitetest.Date(2026, 1, 1), 100, "1.00")

	err := NewLedger(zerolog.Nop()).Reserve(context.Background(), mysql.Repos(db),
		app(fx.MembershipID, loan.StatusSubmitted),
		[]quote.Allocation{{GrantID: future.ID, Shares: 1}}, asOf)
	assert.True(t, errors.Is(err, errs.ErrInsufficientAvailableShares), "got %v", err)
}

func TestLedger_Reserve_ConcurrentOverbooking(t *testing.T) {
	db := sqlitetest.Open(t)
	fx := sqlitetest.Seed(t, db, nil)
	g := sqlitetest.Grant(t, db, fx.MembershipID, sqlitetest.Date(2023, 1, 1), 100, "1.00")

	ctx := context.Background()
	l := NewLedger(zerolog.Nop())
	u := mysql.NewGormUoW(db)

	const workers = 4
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a := app(fx.MembershipID, loan.StatusSubmitted)
			results <- u.WithinTx(ctx, func(r uow.Repos) error {
				return l.Reserve(ctx, r, a, []quote.Allocation{{GrantID: g.ID, Shares: 60}}, asOf)
			})
		}()
	}
	wg.Wait()
	close(results)

	var ok, short int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, errs.ErrInsufficientAvailableShares):
			short++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, short)

	held, err := l.ReservedByGrant(ctx, mysql.Repos(db), []string{g.ID}, "")
	require.NoError(t, err)
	assert.Equal(t, int64(60), held[g.ID])
}

// staleReservations hides every reservation from plain reads.
type staleReservations struct {
	domain.Repository
}

func (staleReservations) ActiveByGrant(context.Context, []string, string) (map[string]int64, error) {
	return map[string]int64{}, nil
}

func TestLedger_Reserve_CountsWithLockingRead(t *testing.T) {
	db := sqlitetest.Open(t)
	fx := sqlitetest.Seed(t, db, nil)
	g := sqlitetest.Grant(t, db, fx.MembershipID, sqlitetest.Date(2023, 1, 1), 100, "1.00")
	ctx := context.Background()
	l := NewLedger(zerolog.Nop())

	r := mysql.Repos(db)
	require.NoError(t, l.Reserve(ctx, r, app(fx.MembershipID, loan.StatusSubmitted),
		[]quote.Allocation{{GrantID: g.ID, Shares: 60}}, asOf))

	r.Reservations = staleReservations{r.Reservations}
	err := l.Reserve(ctx, r, app(fx.MembershipID, loan.StatusSubmitted),
		[]quote.Allocation{{GrantID: g.ID, Shares: 60}}, asOf)
	require.True(t, errors.Is(err, errs.ErrInsufficientAvailableShares), "got %v", err)
	assert.Equal(t, int64(40), err.(*errs.Error).Details["available_shares"])
}
