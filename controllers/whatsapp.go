package controllers

import (
	"net/http"
	"time"

	"github.com/catchycrm/crm_end/middleware"
	"github.com/catchycrm/crm_end/models"
	"github.com/catchycrm/crm_end/repository"
	"github.com/catchycrm/crm_end/service"
	"github.com/catchycrm/crm_end/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WoztellConfigRequest 创建/更新Woztell配置请求
type WoztellConfigRequest struct {
	APIKey    string `json:"apiKey" binding:"required"`
	APISecret string `json:"apiSecret" binding:"required"`
	ChannelID string `json:"channelId" binding:"required"`
	IsActive  *bool  `json:"isActive"`
}

// WebhookReceiver 入站webhook：密钥校验、负载校验、单事务处理
func WebhookReceiver(c *gin.Context) {
	secret := c.Param("secret")
	ctx := repository.GetContext()

	utils.Logger.Info().Str("secret", utils.MaskSecret(secret)).Msg("收到webhook请求")

	cfg, err := service.FindActiveConfigBySecret(ctx, secret)
	if err != nil {
		utils.Logger.Error().Msg("webhook密钥无效或配置未启用")
		c.JSON(http.StatusUnauthorized, gin.H{
			"status":  "error",
			"message": "Invalid webhook secret",
		})
		return
	}

	var payload models.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Invalid JSON payload",
		})
		return
	}

	result, apiErr := service.ProcessIncomingWebhook(ctx, cfg, payload)
	if apiErr != nil {
		c.JSON(apiErr.StatusCode, gin.H{
			"status":  "error",
			"message": apiErr.Message,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Message received and processed",
		"data":    result,
	})
}

// WebhookTest webhook连通性探测
func WebhookTest(c *gin.Context) {
	secret := c.Param("secret")
	ctx := repository.GetContext()

	cfg, err := service.FindActiveConfigBySecret(ctx, secret)
	if err != nil {
		c.String(http.StatusUnauthorized, "Invalid webhook secret")
		return
	}

	companyName := cfg.CompanyID
	if company, apiErr := findCompanyByID(cfg.CompanyID); apiErr == nil {
		companyName = company.Name
	}

	c.String(http.StatusOK, "Webhook is active for %s", companyName)
}

// SendMessage 发送出站WhatsApp消息
func SendMessage(c *gin.Context) {
	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, "无效的请求参数: "+err.Error(), http.StatusBadRequest)
		return
	}

	user := utils.GetUser(c)
	companyID := middleware.GetCompanyID(c)

	message, apiErr := service.SendLeadMessage(repository.GetContext(), companyID, req, user)
	if apiErr != nil {
		utils.HandleError(c, apiErr)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"messageId":        message.ID.Hex(),
		"woztellMessageId": message.WoztellMessageID,
		"status":           message.Status,
		"createdAt":        message.CreatedAt,
	}, "发送消息成功")
}

// GetMessages 线索消息历史，读取同时清零未读数
func GetMessages(c *gin.Context) {
	companyID := middleware.GetCompanyID(c)

	messages, apiErr := service.ListLeadMessages(repository.GetContext(), companyID, c.Param("leadId"))
	if apiErr != nil {
		utils.HandleError(c, apiErr)
		return
	}

	utils.SuccessResponse(c, gin.H{"messages": messages}, "")
}

// GetChannels 公司会话通道列表
func GetChannels(c *gin.Context) {
	companyID := middleware.GetCompanyID(c)

	channels, err := service.ListCompanyChannels(repository.GetContext(), companyID)
	if err != nil {
		utils.Logger.Error().Err(err).Str("companyId", companyID).Msg("查询通道列表失败")
		utils.ErrorResponse(c, "查询通道失败", http.StatusInternalServerError)
		return
	}

	utils.SuccessResponse(c, gin.H{"channels": channels}, "")
}

// GetWoztellConfig 获取本公司的Woztell配置（仅管理员）
func GetWoztellConfig(c *gin.Context) {
	companyID := middleware.GetCompanyID(c)

	cfg, err := service.FindActiveConfigByCompany(repository.GetContext(), companyID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			utils.HandleError(c, utils.CreateNotFoundError("Woztell配置"))
			return
		}
		utils.ErrorResponse(c, "查询Woztell配置失败", http.StatusInternalServerError)
		return
	}

	utils.SuccessResponse(c, gin.H{"config": cfg}, "")
}

// UpsertWoztellConfig 创建或更新Woztell配置（仅管理员）
// 首次创建时生成webhook密钥
func UpsertWoztellConfig(c *gin.Context) {
	var req WoztellConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, "无效的请求参数: "+err.Error(), http.StatusBadRequest)
		return
	}

	companyID := middleware.GetCompanyID(c)
	ctx := repository.GetContext()
	configsCollection := repository.Collection(repository.WoztellConfigsCollection)

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	now := time.Now()
	var existing models.WoztellConfig
	err := configsCollection.FindOne(ctx, bson.M{"companyid": companyID}).Decode(&existing)
	if err != nil {
		if err != mongo.ErrNoDocuments {
			utils.ErrorResponse(c, "查询Woztell配置失败", http.StatusInternalServerError)
			return
		}

		cfg := models.WoztellConfig{
			ID:            primitive.NewObjectID(),
			CompanyID:     companyID,
			APIKey:        req.APIKey,
			APISecret:     req.APISecret,
			ChannelID:     req.ChannelID,
			WebhookSecret: uuid.NewString(),
			IsActive:      isActive,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if _, err := configsCollection.InsertOne(ctx, cfg); err != nil {
			utils.Logger.Error().Err(err).Str("companyId", companyID).Msg("创建Woztell配置失败")
			utils.ErrorResponse(c, "创建Woztell配置失败", http.StatusInternalServerError)
			return
		}

		utils.SuccessResponse(c, gin.H{"config": cfg}, "创建Woztell配置成功", http.StatusCreated)
		return
	}

	updates := bson.M{
		"apikey":    req.APIKey,
		"apisecret": req.APISecret,
		"channelid": req.ChannelID,
		"isactive":  isActive,
		"updatedat": now,
	}
	if _, err := configsCollection.UpdateOne(ctx, bson.M{"_id": existing.ID}, bson.M{"$set": updates}); err != nil {
		utils.Logger.Error().Err(err).Str("companyId", companyID).Msg("更新Woztell配置失败")
		utils.ErrorResponse(c, "更新Woztell配置失败", http.StatusInternalServerError)
		return
	}

	utils.SuccessResponse(c, nil, "更新Woztell配置成功")
}

// RotateWebhookSecret 轮换webhook密钥（仅管理员）
func RotateWebhookSecret(c *gin.Context) {
	companyID := middleware.GetCompanyID(c)
	ctx := repository.GetContext()

	newSecret := uuid.NewString()
	result, err := repository.Collection(repository.WoztellConfigsCollection).UpdateOne(ctx,
		bson.M{"companyid": companyID},
		bson.M{"$set": bson.M{"webhooksecret": newSecret, "updatedat": time.Now()}})
	if err != nil {
		utils.ErrorResponse(c, "轮换webhook密钥失败", http.StatusInternalServerError)
		return
	}
	if result.MatchedCount == 0 {
		utils.HandleError(c, utils.CreateNotFoundError("Woztell配置"))
		return
	}

	utils.Logger.Info().Str("companyId", companyID).Msg("webhook密钥已轮换")
	utils.SuccessResponse(c, gin.H{"webhookSecret": newSecret}, "轮换webhook密钥成功")
}
