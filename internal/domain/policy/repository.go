package policy

import "context"

type Repository interface {
	GetByOrg(ctx context.Context, orgID string) (*OrgPolicy, error)
	Save(ctx context.Context, p *OrgPolicy) error
}
