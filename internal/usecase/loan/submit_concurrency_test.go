package loan

import (
	"context"
	"errors"
	"sync"
	"testing"

	"equity-lending/internal/adapter/repository/mysql"
	"equity-lending/internal/domain/audit"
	"equity-lending/internal/domain/errs"
	domain "equity-lending/internal/domain/loan"
	domainReservation "equity-lending/internal/domain/reservation"
	"equity-lending/internal/domain/uow"
	"equity-lending/internal/testutil/uowmock"
	"equity-lending/internal/usecase/reservation"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// snapshotReservations answers plain reads as of a snapshot taken before any
// reservation existed, the way a REPEATABLE READ view opened by the pricing
// reads would. Locking reads go to the real rows.
type snapshotReservations struct {
	domainReservation.Repository
}

func (snapshotReservations) ActiveByGrant(context.Context, []string, string) (map[string]int64, error) {
	return map[string]int64{}, nil
}

func TestSubmit_StaleSnapshotCaughtUnderGrantLock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	first := e.draft(t, 60)
	second := e.draft(t, 60)
	e.submit(t, first.ID, "")

	gormUoW := mysql.NewGormUoW(e.db)
	stale := uowmock.New().WithWithinLoanTx(func(ctx context.Context, appID string, fn func(uow.Repos, *domain.LoanApplication) error) error {
		return gormUoW.WithinLoanTx(ctx, appID, func(r uow.Repos, a *domain.LoanApplication) error {
			r.Reservations = snapshotReservations{r.Reservations}
			return fn(r, a)
		})
	})
	uc := NewUsecase(stale, reservation.NewLedger(zerolog.Nop()), audit.Nop{}, nil, zerolog.Nop())

	_, err := uc.Submit(ctx, SubmitInput{ApplicationID: second.ID, AsOf: asOf})
	require.True(t, errors.Is(err, errs.ErrInsufficientAvailableShares), "got %v", err)

	assert.Empty(t, e.reservations(t, second.ID))
	got, err := mysql.Repos(e.db).Loans.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, got.Status)
}

func TestSubmit_ConcurrentOverlappingGrant(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	drafts := []*domain.LoanApplication{e.draft(t, 60), e.draft(t, 60)}

	var wg sync.WaitGroup
	results := make([]error, len(drafts))
	for i, d := range drafts {
		wg.Add(1)
		go func(i int, appID string) {
			defer wg.Done()
			_, results[i] = e.uc.Submit(ctx, SubmitInput{ApplicationID: appID, AsOf: asOf})
		}(i, d.ID)
	}
	wg.Wait()

	var ok int
	for _, err := range results {
		if err == nil {
			ok++
			continue
		}
		assert.True(t,
			errors.Is(err, errs.ErrInsufficientAvailableShares) || errors.Is(err, errs.ErrSharesExceedEligibility),
			"unexpected error %v", err)
	}
	assert.Equal(t, 1, ok)

	var held int64
	for _, d := range drafts {
		for _, r := range e.reservations(t, d.ID) {
			held += r.SharesReserved
		}
	}
	assert.Equal(t, int64(60), held)
}
