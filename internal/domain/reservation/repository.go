package reservation

import "context"

type Repository interface {
	// ActiveByGrant sums shares held by active reservations per grant,
	// ignoring those of excludeAppID (pass "" to count all).
	ActiveByGrant(ctx context.Context, grantIDs []string, excludeAppID string) (map[string]int64, error)
	// ActiveByGrantForUpdate is ActiveByGrant as a locking read: it sees the
	// latest committed rows rather than the transaction's snapshot.
	ActiveByGrantForUpdate(ctx context.Context, grantIDs []string, excludeAppID string) (map[string]int64, error)

	CreateBatch(ctx context.Context, rs []ShareReservation) error
	ListByApplication(ctx context.Context, appID string) ([]ShareReservation, error)
	SetStatusForApplication(ctx context.Context, appID string, s Status) error
	DeleteByApplication(ctx context.Context, appID string) error
}
