package mysql

import (
	"context"

	membershipDomain "equity-lending/internal/domain/membership"
	policyDomain "equity-lending/internal/domain/policy"

	"gorm.io/gorm"
)

type MembershipRepository struct{ db *gorm.DB }

func NewMembershipRepository(db *gorm.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

func (r *MembershipRepository) Get(ctx context.Context, id string) (*membershipDomain.Membership, error) {
	var out membershipDomain.Membership
	res := r.db.WithContext(ctx).Where("id = ?", id).First(&out)
	return &out, res.Error
}

type PolicyRepository struct{ db *gorm.DB }

func NewPolicyRepository(db *gorm.DB) *PolicyRepository { return &PolicyRepository{db: db} }

func (r *PolicyRepository) GetByOrg(ctx context.Context, orgID string) (*policyDomain.OrgPolicy, error) {
	var out policyDomain.OrgPolicy
	res := r.db.WithContext(ctx).Where("org_id = ?", orgID).First(&out)
	return &out, res.Error
}

// Save upserts the policy, bumping its version on every write.
func (r *PolicyRepository) Save(ctx context.Context, p *policyDomain.OrgPolicy) error {
	p.PolicyVersion++
	return r.db.WithContext(ctx).Save(p).Error
}
