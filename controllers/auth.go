package controllers

import (
	"net/http"

	"github.com/catchycrm/crm_end/models"
	"github.com/catchycrm/crm_end/repository"
	"github.com/catchycrm/crm_end/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Login 用户登录
func Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, "无效的请求参数: "+err.Error(), http.StatusBadRequest)
		return
	}

	utils.Logger.Info().Str("email", req.Email).Msg("登录尝试")

	usersCollection := repository.Collection(repository.UsersCollection)
	var user models.User
	err := usersCollection.FindOne(repository.GetContext(), bson.M{"email": req.Email}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			utils.Logger.Info().Str("email", req.Email).Msg("登录失败: 邮箱不存在")
			utils.ErrorResponse(c, "邮箱或密码错误", http.StatusUnauthorized)
			return
		}
		utils.Logger.Error().Err(err).Msg("查询用户出错")
		utils.ErrorResponse(c, "登录失败: 数据库错误", http.StatusInternalServerError)
		return
	}

	if !user.IsActive {
		utils.Logger.Info().Str("email", req.Email).Msg("登录失败: 账户已停用")
		utils.ErrorResponse(c, "账户已停用", http.StatusForbidden)
		return
	}

	// 验证密码
	if !utils.VerifyPassword(req.Password, user.Password) {
		utils.Logger.Info().Str("email", req.Email).Msg("登录失败: 密码错误")
		utils.ErrorResponse(c, "邮箱或密码错误", http.StatusUnauthorized)
		return
	}

	// 生成JWT令牌
	token, err := utils.GenerateToken(&user)
	if err != nil {
		utils.Logger.Error().Err(err).Msg("生成token失败")
		utils.ErrorResponse(c, "生成登录令牌失败，请重试", http.StatusInternalServerError)
		return
	}

	// 记录登录次数和来源IP
	clientIP := c.ClientIP()
	if _, err := usersCollection.UpdateOne(repository.GetContext(),
		bson.M{"_id": user.ID},
		bson.M{"$inc": bson.M{"logincount": 1}, "$set": bson.M{"lastloginip": clientIP}}); err != nil {
		utils.Logger.Error().Err(err).Str("email", req.Email).Msg("更新登录统计失败")
	}

	utils.Logger.Info().Str("email", user.Email).Msg("登录成功")
	utils.SuccessResponse(c, gin.H{
		"token": token,
		"user": gin.H{
			"_id":       user.ID.Hex(),
			"email":     user.Email,
			"name":      user.FullName(),
			"role":      user.Role,
			"companyId": user.CompanyID,
		},
	}, "")
}

// GetProfile 当前用户信息（含业绩统计）
func GetProfile(c *gin.Context) {
	loginUser := utils.GetUser(c)
	if loginUser == nil {
		utils.ErrorResponse(c, "用户未登录", http.StatusUnauthorized)
		return
	}

	user, err := repository.FindUserByID(loginUser.ID)
	if err != nil {
		utils.ErrorResponse(c, "用户不存在", http.StatusNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"user": user,
		"stats": gin.H{
			"assigned":         user.TotalLeadsAssigned,
			"converted":        user.TotalLeadsConverted,
			"won":              user.TotalLeadsWon,
			"conversionRate":   user.ConversionRate(),
			"winRate":          user.WinRate(),
			"performanceScore": user.PerformanceScore(),
		},
	}, "")
}
