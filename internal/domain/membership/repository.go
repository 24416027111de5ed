package membership

import "context"

type Repository interface {
	Get(ctx context.Context, id string) (*Membership, error)
}
