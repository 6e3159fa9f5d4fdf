package middleware

import (
	"net/http"
	"strings"

	"github.com/catchycrm/crm_end/models"
	"github.com/catchycrm/crm_end/utils"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware 认证中间件
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 从请求头获取token
		authHeader := c.GetHeader("Authorization")
		requestPath := c.Request.URL.Path
		requestMethod := c.Request.Method

		utils.Logger.Info().
			Str("path", requestPath).
			Str("method", requestMethod).
			Str("authorization", getShortAuthHeader(authHeader)).
			Msg("验证请求")

		// 检查Authorization头
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			utils.Logger.Info().Msg("缺少Authorization头或格式错误")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "未授权访问",
				"code":    "MISSING_TOKEN",
			})
			return
		}

		// 提取token
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			utils.Logger.Info().Msg("从Authorization头中提取token失败")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "未授权访问",
				"code":    "MISSING_TOKEN",
			})
			return
		}

		// 解析token
		claims, err := utils.ParseToken(token)
		if err != nil {
			utils.Logger.Error().Err(err).Msg("Token验证失败")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "无效的token: " + err.Error(),
				"code":    "INVALID_TOKEN",
			})
			return
		}

		// 检查必要字段
		if claims["id"] == nil || claims["role"] == nil || claims["email"] == nil {
			utils.Logger.Warn().Interface("claims", claims).Msg("Token负载缺少必要字段")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Token缺少必要字段",
				"code":    "INVALID_TOKEN",
			})
			return
		}

		user := &utils.LoginUser{
			ID:    claims["id"].(string),
			Email: claims["email"].(string),
			Role:  models.UserRole(claims["role"].(string)),
		}
		if name, ok := claims["name"].(string); ok {
			user.Name = name
		}
		if companyID, ok := claims["companyId"].(string); ok {
			user.CompanyID = companyID
		}

		// 将用户信息存储到上下文
		c.Set("user", user)

		utils.Logger.Info().
			Str("email", user.Email).
			Str("role", string(user.Role)).
			Msg("验证成功")

		c.Next()
	}
}

// PermissionMiddleware 角色权限中间件
func PermissionMiddleware(resource string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := utils.GetUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "用户未认证",
				"code":    "UNAUTHENTICATED",
			})
			return
		}

		// 检查权限
		if !utils.HasPermission(user.Role, resource, action) {
			utils.Logger.Info().
				Str("email", user.Email).
				Str("role", string(user.Role)).
				Str("resource", resource).
				Str("action", action).
				Msg("权限不足")

			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "权限不足",
				"code":    "INSUFFICIENT_PERMISSION",
			})
			return
		}

		c.Next()
	}
}

// AdminRequired 要求管理员角色 (含超级管理员)
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := utils.GetUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "用户未认证",
				"code":    "UNAUTHENTICATED",
			})
			return
		}

		if !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "权限不足",
				"code":    "INSUFFICIENT_PERMISSION",
			})
			return
		}

		c.Next()
	}
}

// CompanyRequired 解析租户范围并写入上下文
// 普通用户取所属公司, 超级管理员必须通过 X-Company-Id 指定租户
func CompanyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := utils.GetUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "用户未认证",
				"code":    "UNAUTHENTICATED",
			})
			return
		}

		companyID, apiErr := utils.ResolveCompanyID(c, user)
		if apiErr != nil {
			c.AbortWithStatusJSON(apiErr.StatusCode, gin.H{
				"success": false,
				"error":   apiErr.Message,
				"code":    apiErr.ErrorCode,
			})
			return
		}

		c.Set("companyId", companyID)
		c.Next()
	}
}

// GetCompanyID 从上下文读取租户范围
func GetCompanyID(c *gin.Context) string {
	return c.GetString("companyId")
}

// getShortAuthHeader 获取截断的授权头，保护敏感信息
func getShortAuthHeader(header string) string {
	if header == "" {
		return ""
	}

	if len(header) > 15 {
		return header[:15] + "..."
	}

	return header
}
