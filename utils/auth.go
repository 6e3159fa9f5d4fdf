package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/catchycrm/crm_end/config"
	"github.com/catchycrm/crm_end/models"

	"github.com/golang-jwt/jwt"
)

var jwtSecret = []byte(config.LoadConfig().JWTKey)

// HashPassword 哈希密码
func HashPassword(password string) string {
	hash := sha256.Sum256([]byte(password))
	return hex.EncodeToString(hash[:])
}

// SimpleHash 简单哈希 (sha256 + 盐值)
func SimpleHash(password string, salt string) string {
	if salt == "" {
		salt = "69dc6ee0"
	}
	hash := sha256.Sum256([]byte(password + salt))
	return fmt.Sprintf("sha256$%s$%s", salt, hex.EncodeToString(hash[:]))
}

// VerifyPassword 验证密码 - 支持标准哈希与盐值哈希两种存储格式
func VerifyPassword(password string, hashedPassword string) bool {
	// 标准SHA-256哈希
	if HashPassword(password) == hashedPassword {
		return true
	}

	// 格式化的盐值哈希 (sha256$salt$hash)
	parts := strings.Split(hashedPassword, "$")
	if len(parts) == 3 && parts[0] == "sha256" {
		return SimpleHash(password, parts[1]) == hashedPassword
	}

	return false
}

// GenerateToken 生成JWT令牌
func GenerateToken(user *models.User) (string, error) {
	Logger.Info().
		Str("_id", user.ID.Hex()).
		Str("email", user.Email).
		Str("role", string(user.Role)).
		Msg("开始生成token")

	// 创建JWT Claims
	claims := jwt.MapClaims{
		"id":        user.ID.Hex(),
		"email":     user.Email,
		"name":      user.FullName(),
		"role":      string(user.Role),
		"companyId": user.CompanyID,
		"exp":       time.Now().Add(time.Hour * 24 * 30).Unix(), // 30天有效期
		"iat":       time.Now().Unix(),
	}

	// 创建并签名token
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		Logger.Error().Err(err).Msg("生成token失败")
		return "", err
	}

	return tokenString, nil
}

// ParseToken 解析和验证JWT令牌
func ParseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// 验证签名方法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	// 验证token并提取claims
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("无效的token")
}

// HasPermission 检查角色是否有权限
func HasPermission(role models.UserRole, resource string, action string) bool {
	// 超级管理员拥有所有权限
	if role == models.UserRoleSUPER_ADMIN {
		return true
	}

	// 定义各角色权限
	permissions := map[models.UserRole]map[string][]string{
		models.UserRoleADMIN: {
			"leads":     {"read", "create", "update", "delete", "assign"},
			"notes":     {"read", "create", "delete"},
			"users":     {"read", "create", "update", "delete"},
			"catalogs":  {"read", "create", "update", "delete"},
			"messages":  {"read", "send"},
			"channels":  {"read"},
			"dashboard": {"read"},
			"company":   {"read", "update"},
			"configs":   {"read", "create", "update"},
		},
		models.UserRoleAGENT: {
			"leads":     {"read", "create", "update"},
			"notes":     {"read", "create", "delete"},
			"catalogs":  {"read"},
			"messages":  {"read", "send"},
			"channels":  {"read"},
			"dashboard": {"read"},
		},
	}

	// 检查特定角色的权限
	if resourceActions, exists := permissions[role]; exists {
		if actions, hasResource := resourceActions[resource]; hasResource {
			for _, a := range actions {
				if a == action {
					return true
				}
			}
		}
	}

	return false
}
