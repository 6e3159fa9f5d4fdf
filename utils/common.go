package utils

import (
	"regexp"
	"strings"

	"github.com/catchycrm/crm_end/models"

	"github.com/gin-gonic/gin"
)

// LoginUser 当前登录用户信息 (从JWT中解析)
type LoginUser struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	Name      string          `json:"name"`
	Role      models.UserRole `json:"role"`
	CompanyID string          `json:"companyId"`
}

// IsAdmin 是否为管理员 (包含超级管理员)
func (u *LoginUser) IsAdmin() bool {
	return u.Role == models.UserRoleADMIN || u.Role == models.UserRoleSUPER_ADMIN
}

// IsSuperAdmin 是否为超级管理员
func (u *LoginUser) IsSuperAdmin() bool {
	return u.Role == models.UserRoleSUPER_ADMIN
}

// GetUser 从gin上下文获取当前登录用户
func GetUser(c *gin.Context) *LoginUser {
	value, exists := c.Get("user")
	if !exists {
		return nil
	}
	user, ok := value.(*LoginUser)
	if !ok {
		return nil
	}
	return user
}

// ResolveCompanyID 解析当前请求的租户范围
// 普通用户固定为所属公司, 超级管理员可通过 X-Company-Id 请求头选择租户
func ResolveCompanyID(c *gin.Context, user *LoginUser) (string, *ApiError) {
	if user == nil {
		return "", CreateUnauthorizedError()
	}

	if user.IsSuperAdmin() {
		companyID := strings.TrimSpace(c.GetHeader("X-Company-Id"))
		if companyID == "" {
			return "", CreateValidationError("X-Company-Id", "超级管理员必须指定公司")
		}
		return companyID, nil
	}

	if user.CompanyID == "" {
		return "", CreateForbiddenError()
	}
	return user.CompanyID, nil
}

var phonePattern = regexp.MustCompile(`^\+?\d{9,15}$`)

// IsValidPhone 校验电话号码格式 (可选+号, 9-15位数字)
func IsValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// NormalizePhone 规范化电话号码 (去掉空格和横线)
func NormalizePhone(phone string) string {
	replacer := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
	return replacer.Replace(strings.TrimSpace(phone))
}

// MaskSecret 遮蔽敏感字符串, 仅保留前4位用于日志
func MaskSecret(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:4] + "****"
}

// PaginatedResponse 分页响应
type PaginatedResponse struct {
	Items      interface{} `json:"items"`
	Total      int64       `json:"total"`
	Page       int64       `json:"page"`
	PageSize   int64       `json:"pageSize"`
	TotalPages int64       `json:"totalPages"`
}

// NewPaginatedResponse 构造分页响应
func NewPaginatedResponse(items interface{}, total, page, pageSize int64) *PaginatedResponse {
	if pageSize <= 0 {
		pageSize = 20
	}
	totalPages := total / pageSize
	if total%pageSize != 0 {
		totalPages++
	}
	return &PaginatedResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
