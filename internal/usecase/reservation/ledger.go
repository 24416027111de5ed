// Package reservation keeps share reservations consistent with grant
// availability. Every method runs against repositories bound to the
// caller's transaction.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"equity-lending/internal/domain/errs"
	"equity-lending/internal/domain/loan"
	"equity-lending/internal/domain/quote"
	domain "equity-lending/internal/domain/reservation"
	"equity-lending/internal/domain/uow"
	"equity-lending/internal/domain/vesting"
	"equity-lending/pkg/id"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type Ledger struct{ log zerolog.Logger }

func NewLedger(l zerolog.Logger) *Ledger {
	return &Ledger{log: l.With().Str("component", "reservation_ledger").Logger()}
}

// Reserve locks every grant named by alloc, re-checks availability as of
// asOf and inserts one reservation per line carrying the application's status.
func (l *Ledger) Reserve(ctx context.Context, r uow.Repos, app *loan.LoanApplication, alloc []quote.Allocation, asOf time.Time) error {
	want := map[string]int64{}
	for _, line := range alloc {
		if line.Shares > 0 {
			want[line.GrantID] += line.Shares
		}
	}
	ids := make([]string, 0, len(want))
	for gid := range want {
		ids = append(ids, gid)
	}
	// fixed lock order keeps concurrent reservers from deadlocking
	sort.Strings(ids)

	vested := make(map[string]int64, len(ids))
	for _, gid := range ids {
		g, err := r.Grants.GetForUpdate(ctx, gid)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.ErrGrantNotFound.WithDetails(map[string]any{"grant_id": gid})
		}
		if err != nil {
			return fmt.Errorf("lock grant %s: %w", gid, err)
		}
		vested[gid], _ = vesting.ComputeGrant(*g, asOf)
	}

	// must count reservations committed while we waited on the grant locks
	held, err := r.Reservations.ActiveByGrantForUpdate(ctx, ids, app.ID)
	if err != nil {
		return fmt.Errorf("sum reservations: %w", err)
	}

	rows := make([]domain.ShareReservation, 0, len(ids))
	for _, gid := range ids {
		available := vested[gid] - held[gid]
		if available < 0 {
			available = 0
		}
		if want[gid] > available {
			l.log.Debug().
				Str("application_id", app.ID).
				Str("grant_id", gid).
				Int64("requested", want[gid]).
				Int64("available", available).
				Msg("reservation rejected")
			return errs.ErrInsufficientAvailableShares.WithDetails(map[string]any{
				"grant_id":         gid,
				"requested_shares": want[gid],
				"available_shares": available,
			})
		}
		rows = append(rows, domain.ShareReservation{
			ID:                id.NewID32(),
			GrantID:           gid,
			LoanApplicationID: app.ID,
			MembershipID:      app.MembershipID,
			SharesReserved:    want[gid],
			Status:            domain.Status(app.Status),
		})
	}
	if err := r.Reservations.CreateBatch(ctx, rows); err != nil {
		return fmt.Errorf("insert reservations: %w", err)
	}
	return nil
}

// SyncStatus mirrors the application status onto its reservations.
func (l *Ledger) SyncStatus(ctx context.Context, r uow.Repos, appID string, s loan.Status) error {
	if err := r.Reservations.SetStatusForApplication(ctx, appID, domain.Status(s)); err != nil {
		return fmt.Errorf("sync reservations: %w", err)
	}
	return nil
}

// Release drops every reservation of the application.
func (l *Ledger) Release(ctx context.Context, r uow.Repos, appID string) error {
	if err := r.Reservations.DeleteByApplication(ctx, appID); err != nil {
		return fmt.Errorf("release reservations: %w", err)
	}
	return nil
}

// ReservedByGrant returns shares held by active reservations, excluding
// excludeAppID when set.
func (l *Ledger) ReservedByGrant(ctx context.Context, r uow.Repos, grantIDs []string, excludeAppID string) (map[string]int64, error) {
	return r.Reservations.ActiveByGrant(ctx, grantIDs, excludeAppID)
}
