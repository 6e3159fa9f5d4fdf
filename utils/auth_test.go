package utils

import (
	"testing"

	"github.com/catchycrm/crm_end/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestVerifyPassword(t *testing.T) {
	// 标准SHA-256格式
	hashed := HashPassword("admin123")
	assert.True(t, VerifyPassword("admin123", hashed))
	assert.False(t, VerifyPassword("wrong", hashed))

	// 盐值格式 sha256$salt$hash
	salted := SimpleHash("admin123", "")
	assert.True(t, VerifyPassword("admin123", salted))
	assert.False(t, VerifyPassword("wrong", salted))

	customSalt := SimpleHash("admin123", "abcd1234")
	assert.True(t, VerifyPassword("admin123", customSalt))
}

func TestTokenRoundtrip(t *testing.T) {
	user := &models.User{
		ID:        primitive.NewObjectID(),
		Email:     "agent@example.com",
		FirstName: "Alice",
		LastName:  "Wong",
		Role:      models.UserRoleAGENT,
		CompanyID: "company-1",
	}

	token, err := GenerateToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseToken(token)
	require.NoError(t, err)

	assert.Equal(t, user.ID.Hex(), claims["id"])
	assert.Equal(t, "agent@example.com", claims["email"])
	assert.Equal(t, "Alice Wong", claims["name"])
	assert.Equal(t, "AGENT", claims["role"])
	assert.Equal(t, "company-1", claims["companyId"])
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	_, err := ParseToken("not-a-token")
	assert.Error(t, err)
}

func TestHasPermission(t *testing.T) {
	// 超级管理员拥有一切权限
	assert.True(t, HasPermission(models.UserRoleSUPER_ADMIN, "leads", "delete"))
	assert.True(t, HasPermission(models.UserRoleSUPER_ADMIN, "anything", "whatever"))

	tests := []struct {
		role     models.UserRole
		resource string
		action   string
		expected bool
	}{
		{models.UserRoleADMIN, "leads", "delete", true},
		{models.UserRoleADMIN, "leads", "assign", true},
		{models.UserRoleADMIN, "users", "create", true},
		{models.UserRoleADMIN, "company", "update", true},
		{models.UserRoleADMIN, "configs", "update", true},
		{models.UserRoleADMIN, "catalogs", "delete", true},

		{models.UserRoleAGENT, "leads", "read", true},
		{models.UserRoleAGENT, "leads", "create", true},
		{models.UserRoleAGENT, "leads", "update", true},
		{models.UserRoleAGENT, "leads", "delete", false},
		{models.UserRoleAGENT, "leads", "assign", false},
		{models.UserRoleAGENT, "users", "read", false},
		{models.UserRoleAGENT, "catalogs", "create", false},
		{models.UserRoleAGENT, "messages", "send", true},
		{models.UserRoleAGENT, "dashboard", "read", true},
		{models.UserRoleAGENT, "company", "update", false},
	}

	for _, tt := range tests {
		got := HasPermission(tt.role, tt.resource, tt.action)
		assert.Equal(t, tt.expected, got, "%s %s:%s", tt.role, tt.resource, tt.action)
	}
}
