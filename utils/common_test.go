package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/catchycrm/crm_end/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidPhone(t *testing.T) {
	valid := []string{"+85291234567", "85291234567", "+8613812345678", "123456789"}
	for _, phone := range valid {
		assert.True(t, IsValidPhone(phone), phone)
	}

	invalid := []string{"", "12345678", "+123", "abc", "+852 9123 4567", "12345678901234567"}
	for _, phone := range invalid {
		assert.False(t, IsValidPhone(phone), phone)
	}
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "+85291234567", NormalizePhone(" +852 9123-4567 "))
	assert.Equal(t, "+15551234567", NormalizePhone("+1 (555) 123-4567"))
	assert.Equal(t, "85291234567", NormalizePhone("85291234567"))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "abcd****", MaskSecret("abcdef123456"))
	assert.Equal(t, "****", MaskSecret("abc"))
}

func TestNewPaginatedResponse(t *testing.T) {
	resp := NewPaginatedResponse([]string{"a", "b"}, 45, 2, 20)
	assert.Equal(t, int64(45), resp.Total)
	assert.Equal(t, int64(2), resp.Page)
	assert.Equal(t, int64(3), resp.TotalPages)

	// 整除时不多加一页
	resp = NewPaginatedResponse(nil, 40, 1, 20)
	assert.Equal(t, int64(2), resp.TotalPages)

	// pageSize非法时回退默认值
	resp = NewPaginatedResponse(nil, 10, 1, 0)
	assert.Equal(t, int64(20), resp.PageSize)
}

func testContext(headers map[string]string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range headers {
		c.Request.Header.Set(k, v)
	}
	return c
}

func TestResolveCompanyID(t *testing.T) {
	t.Run("未登录", func(t *testing.T) {
		c := testContext(nil)
		_, apiErr := ResolveCompanyID(c, nil)
		require.NotNil(t, apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	})

	t.Run("普通用户使用所属公司", func(t *testing.T) {
		c := testContext(map[string]string{"X-Company-Id": "other-company"})
		user := &LoginUser{Role: models.UserRoleAGENT, CompanyID: "company-1"}
		companyID, apiErr := ResolveCompanyID(c, user)
		require.Nil(t, apiErr)
		// 普通用户不能通过请求头切换租户
		assert.Equal(t, "company-1", companyID)
	})

	t.Run("普通用户无公司", func(t *testing.T) {
		c := testContext(nil)
		user := &LoginUser{Role: models.UserRoleADMIN}
		_, apiErr := ResolveCompanyID(c, user)
		require.NotNil(t, apiErr)
		assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	})

	t.Run("超级管理员必须指定公司", func(t *testing.T) {
		c := testContext(nil)
		user := &LoginUser{Role: models.UserRoleSUPER_ADMIN}
		_, apiErr := ResolveCompanyID(c, user)
		require.NotNil(t, apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	})

	t.Run("超级管理员通过请求头选择租户", func(t *testing.T) {
		c := testContext(map[string]string{"X-Company-Id": "company-9"})
		user := &LoginUser{Role: models.UserRoleSUPER_ADMIN}
		companyID, apiErr := ResolveCompanyID(c, user)
		require.Nil(t, apiErr)
		assert.Equal(t, "company-9", companyID)
	})
}
