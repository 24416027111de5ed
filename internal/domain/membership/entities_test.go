package membership

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeMaritalStatus(t *testing.T) {
	cases := map[string]MaritalStatus{
		"":                     "",
		"   ":                  "",
		"married":              MaritalMarried,
		" Domestic Partner ":   MaritalDomesticPartner,
		"domestic-partnership": MaritalDomesticPartner,
		"partner":              MaritalDomesticPartner,
		"N/A":                  MaritalUnknown,
		"single":               MaritalSingle,
		"its complicated":      MaritalUnknown,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeMaritalStatus(in), "input %q", in)
	}
}

func TestRequiresSpouse(t *testing.T) {
	assert.True(t, MaritalMarried.RequiresSpouse())
	assert.True(t, MaritalDomesticPartner.RequiresSpouse())
	assert.False(t, MaritalSingle.RequiresSpouse())
	assert.False(t, MaritalStatus("").RequiresSpouse())
}

func TestActive(t *testing.T) {
	assert.True(t, Membership{EmploymentStatus: "ACTIVE", PlatformStatus: "active"}.Active())
	assert.False(t, Membership{EmploymentStatus: "ACTIVE", PlatformStatus: "SUSPENDED"}.Active())
	assert.False(t, Membership{EmploymentStatus: "TERMINATED", PlatformStatus: "ACTIVE"}.Active())
}
