package grant

import "context"

type Repository interface {
	// Create inserts the grant together with its vesting events.
	Create(ctx context.Context, g *Grant) error

	// Get loads a grant with its vesting events.
	Get(ctx context.Context, id string) (*Grant, error)

	// GetForUpdate loads a grant with its events holding a row lock until the tx ends.
	GetForUpdate(ctx context.Context, id string) (*Grant, error)

	// ListActiveByMembership returns ACTIVE grants with events, oldest grant first.
	ListActiveByMembership(ctx context.Context, membershipID string) ([]Grant, error)

	// Delete removes the vesting events, then the grant.
	Delete(ctx context.Context, id string) error
}
