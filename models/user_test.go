package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserFullName(t *testing.T) {
	assert.Equal(t, "Jane Doe", (&User{FirstName: "Jane", LastName: "Doe"}).FullName())
	assert.Equal(t, "Jane", (&User{FirstName: "Jane"}).FullName())
	assert.Equal(t, "jane@example.com", (&User{Email: "jane@example.com"}).FullName())
}

func TestUserInitials(t *testing.T) {
	assert.Equal(t, "JD", (&User{FirstName: "Jane", LastName: "Doe"}).Initials())
	assert.Equal(t, "J", (&User{FirstName: "jane"}).Initials())
	assert.Equal(t, "J", (&User{Email: "jane@example.com"}).Initials())
	assert.Equal(t, "?", (&User{}).Initials())
}

func TestUserRoleHelpers(t *testing.T) {
	superAdmin := User{Role: UserRoleSUPER_ADMIN}
	admin := User{Role: UserRoleADMIN}
	agent := User{Role: UserRoleAGENT}

	assert.True(t, superAdmin.IsAdmin())
	assert.True(t, superAdmin.IsSuperAdmin())
	assert.True(t, admin.IsAdmin())
	assert.False(t, admin.IsSuperAdmin())
	assert.False(t, agent.IsAdmin())
	assert.True(t, agent.IsAgent())
}

func TestUserRates(t *testing.T) {
	u := User{TotalLeadsAssigned: 10, TotalLeadsConverted: 4, TotalLeadsWon: 2}
	assert.InDelta(t, 40.0, u.ConversionRate(), 0.001)
	assert.InDelta(t, 20.0, u.WinRate(), 0.001)

	// 分配数为0时不除零
	empty := User{}
	assert.Equal(t, 0.0, empty.ConversionRate())
	assert.Equal(t, 0.0, empty.WinRate())
	assert.Equal(t, 0.0, empty.PerformanceScore())
}

func TestUserPerformanceScore(t *testing.T) {
	u := User{TotalLeadsAssigned: 10, TotalLeadsConverted: 5, TotalLeadsWon: 5}
	// 50*0.6 + 50*0.4 = 50
	assert.InDelta(t, 50.0, u.PerformanceScore(), 0.001)

	u2 := User{TotalLeadsAssigned: 10, TotalLeadsConverted: 10}
	// 100*0.6 + 0*0.4 = 60
	assert.InDelta(t, 60.0, u2.PerformanceScore(), 0.001)
}
