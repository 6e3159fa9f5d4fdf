package service

import (
	"context"
	"fmt"
	"time"

	"github.com/catchycrm/crm_end/config"
	"github.com/catchycrm/crm_end/models"
	"github.com/catchycrm/crm_end/repository"
	"github.com/catchycrm/crm_end/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// WebhookResult 入站webhook处理结果
type WebhookResult struct {
	LeadID         string `json:"leadId"`
	LeadName       string `json:"leadName"`
	MessageID      string `json:"messageId,omitempty"`
	ChannelID      string `json:"channelId,omitempty"`
	LeadCreated    bool   `json:"leadCreated"`
	ChannelCreated bool   `json:"channelCreated"`
	Duplicate      bool   `json:"duplicate"`
}

// FindActiveConfigBySecret 按webhook密钥查找启用中的Woztell配置
func FindActiveConfigBySecret(ctx context.Context, secret string) (*models.WoztellConfig, error) {
	var cfg models.WoztellConfig
	err := repository.Collection(repository.WoztellConfigsCollection).FindOne(ctx, bson.M{
		"webhooksecret": secret,
		"isactive":      true,
	}).Decode(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FindActiveConfigByCompany 按公司查找启用中的Woztell配置
func FindActiveConfigByCompany(ctx context.Context, companyID string) (*models.WoztellConfig, error) {
	var cfg models.WoztellConfig
	err := repository.Collection(repository.WoztellConfigsCollection).FindOne(ctx, bson.M{
		"companyid": companyID,
		"isactive":  true,
	}).Decode(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidateWebhookPayload 校验入站负载：phone必填，message与media_url至少其一
func ValidateWebhookPayload(payload models.WebhookPayload) *utils.ApiError {
	if payload.Phone == "" {
		return utils.CreateValidationError("phone", "电话号码必填")
	}
	if payload.Message == "" && payload.MediaURL == "" {
		return utils.CreateValidationError("message", "消息内容或媒体必填")
	}
	return nil
}

// ProcessIncomingWebhook 处理入站消息
// 线索upsert、消息写入、通道更新在同一事务内完成
func ProcessIncomingWebhook(ctx context.Context, cfg *models.WoztellConfig, payload models.WebhookPayload) (*WebhookResult, *utils.ApiError) {
	if apiErr := ValidateWebhookPayload(payload); apiErr != nil {
		return nil, apiErr
	}

	phone := utils.NormalizePhone(payload.Phone)

	result, err := repository.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		// WhatsApp来源目录项，不存在则创建
		sourceID, err := getOrCreateWhatsAppSource(sc)
		if err != nil {
			return nil, err
		}

		// 按(公司, 电话)查找或创建线索
		lead, leadCreated, err := findOrCreateLead(sc, cfg.CompanyID, phone, payload.Name, sourceID)
		if err != nil {
			return nil, err
		}

		res := &WebhookResult{
			LeadID:      lead.ID.Hex(),
			LeadName:    lead.Name,
			LeadCreated: leadCreated,
		}

		// 供应商消息ID去重：同一ID重复投递不产生第二条消息
		if payload.MessageID != "" {
			count, err := repository.Collection(repository.MessagesCollection).CountDocuments(sc, bson.M{
				"woztellmessageid": payload.MessageID,
			})
			if err != nil {
				return nil, err
			}
			if count > 0 {
				utils.Logger.Info().
					Str("messageId", payload.MessageID).
					Msg("重复投递的消息，跳过")
				res.Duplicate = true
				return res, nil
			}
		}

		// 写入入站消息，WhatsApp侧已投递
		content := payload.Message
		if content == "" {
			content = "[Media]"
		}
		now := time.Now()
		message := models.Message{
			ID:               primitive.NewObjectID(),
			LeadID:           lead.ID.Hex(),
			Direction:        models.MessageDirectionIncoming,
			Content:          content,
			MediaURL:         payload.MediaURL,
			MediaType:        payload.MediaType,
			Status:           models.MessageStatusDelivered,
			WoztellMessageID: payload.MessageID,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if _, err := repository.Collection(repository.MessagesCollection).InsertOne(sc, message); err != nil {
			return nil, err
		}
		res.MessageID = message.ID.Hex()

		// 通道未读数+1并刷新最近消息时间
		channelID, channelCreated, err := touchChannel(sc, cfg, lead.ID.Hex(), true)
		if err != nil {
			return nil, err
		}
		res.ChannelID = channelID
		res.ChannelCreated = channelCreated

		return res, nil
	})
	if err != nil {
		utils.Logger.Error().Err(err).Str("phone", phone).Msg("处理入站webhook失败")
		return nil, utils.NewApiError("处理消息失败", 500, "INTERNAL_ERROR")
	}

	return result.(*WebhookResult), nil
}

// SendLeadMessage 发送出站消息
// pending消息先同步落盘；外部调用在事务外执行，结果回写消息状态
func SendLeadMessage(ctx context.Context, companyID string, req models.SendMessageRequest, actor *utils.LoginUser) (*models.Message, *utils.ApiError) {
	if req.Message == "" && req.MediaURL == "" {
		return nil, utils.CreateValidationError("message", "消息内容或媒体必填")
	}

	lead, apiErr := FindLeadInCompany(ctx, companyID, req.LeadID)
	if apiErr != nil {
		return nil, apiErr
	}

	// 坐席只能给分配给自己的线索发消息
	if actor != nil && actor.Role == models.UserRoleAGENT && lead.AssignedTo != actor.ID {
		return nil, utils.CreateForbiddenError()
	}

	cfg, err := FindActiveConfigByCompany(ctx, companyID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.CreateBadRequestError("Woztell配置不存在或未启用")
		}
		return nil, utils.NewApiError("查询Woztell配置失败", 500, "INTERNAL_ERROR")
	}

	// pending消息先落盘，外部发送失败也保留记录
	content := req.Message
	if content == "" {
		content = "[Media]"
	}
	now := time.Now()
	message := models.Message{
		ID:        primitive.NewObjectID(),
		LeadID:    lead.ID.Hex(),
		Direction: models.MessageDirectionOutgoing,
		Content:   content,
		MediaURL:  req.MediaURL,
		MediaType: req.MediaType,
		Status:    models.MessageStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if actor != nil {
		message.UserID = actor.ID
	}

	if _, err := repository.Collection(repository.MessagesCollection).InsertOne(ctx, message); err != nil {
		utils.Logger.Error().Err(err).Str("leadId", req.LeadID).Msg("写入出站消息失败")
		return nil, utils.NewApiError("写入消息失败", 500, "INTERNAL_ERROR")
	}

	// 事务外调用外部API
	client := NewWoztellClient(cfg, config.LoadConfig().WoztellBaseURL)
	var woztellID string
	var sendErr error
	if message.HasMedia() {
		caption := ""
		if req.Message != "" {
			caption = req.Message
		}
		woztellID, sendErr = client.SendMedia(ctx, lead.Phone, req.MediaURL, req.MediaType, caption)
	} else {
		woztellID, sendErr = client.SendText(ctx, lead.Phone, req.Message)
	}

	if sendErr != nil {
		// 失败状态必须回写，即使调用方同样会收到失败响应
		markMessageFailed(ctx, message.ID, sendErr.Error())
		return nil, utils.CreateExternalServiceError(fmt.Sprintf("发送消息失败: %s", sendErr.Error()))
	}

	updates := bson.M{
		"status":    models.MessageStatusSent,
		"updatedat": time.Now(),
	}
	if woztellID != "" {
		updates["woztellmessageid"] = woztellID
	}
	if _, err := repository.Collection(repository.MessagesCollection).UpdateOne(ctx,
		bson.M{"_id": message.ID}, bson.M{"$set": updates}); err != nil {
		utils.Logger.Error().Err(err).Str("messageId", message.ID.Hex()).Msg("更新消息状态失败")
	}

	// 出站消息刷新通道时间，不增加未读数
	if _, _, err := touchChannel(ctx, cfg, lead.ID.Hex(), false); err != nil {
		utils.Logger.Error().Err(err).Str("leadId", req.LeadID).Msg("更新通道失败")
	}

	if err := AppendActivity(ctx, lead.ID.Hex(), actor, models.ActivityTypeMessageSent, "Sent a WhatsApp message"); err != nil {
		utils.Logger.Error().Err(err).Str("leadId", req.LeadID).Msg("写入活动记录失败")
	}

	message.Status = models.MessageStatusSent
	message.WoztellMessageID = woztellID
	return &message, nil
}

// ListLeadMessages 按时间正序返回线索消息并清零通道未读数
func ListLeadMessages(ctx context.Context, companyID, leadID string) ([]models.Message, *utils.ApiError) {
	lead, apiErr := FindLeadInCompany(ctx, companyID, leadID)
	if apiErr != nil {
		return nil, apiErr
	}

	findOptions := options.Find().SetSort(bson.M{"createdat": 1})
	cursor, err := repository.Collection(repository.MessagesCollection).Find(ctx,
		bson.M{"leadid": lead.ID.Hex()}, findOptions)
	if err != nil {
		utils.Logger.Error().Err(err).Str("leadId", leadID).Msg("查询消息失败")
		return nil, utils.NewApiError("查询消息失败", 500, "INTERNAL_ERROR")
	}
	defer cursor.Close(ctx)

	messages := []models.Message{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, utils.NewApiError("解析消息失败", 500, "INTERNAL_ERROR")
	}

	// 已读：未读数清零
	if _, err := repository.Collection(repository.ChannelsCollection).UpdateOne(ctx,
		bson.M{"leadid": lead.ID.Hex(), "channeltype": models.ChannelTypeWhatsApp},
		bson.M{"$set": bson.M{"unreadcount": 0, "updatedat": time.Now()}}); err != nil {
		utils.Logger.Error().Err(err).Str("leadId", leadID).Msg("清零未读数失败")
	}

	return messages, nil
}

// ListCompanyChannels 返回公司的会话通道，按最近消息倒序
func ListCompanyChannels(ctx context.Context, companyID string) ([]models.Channel, error) {
	findOptions := options.Find().SetSort(bson.M{"lastmessageat": -1})
	cursor, err := repository.Collection(repository.ChannelsCollection).Find(ctx,
		bson.M{"companyid": companyID, "isactive": true}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	channels := []models.Channel{}
	if err := cursor.All(ctx, &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

// getOrCreateWhatsAppSource 获取WhatsApp来源目录项，不存在则创建
func getOrCreateWhatsAppSource(ctx context.Context) (string, error) {
	sourcesCollection := repository.Collection(repository.LeadSourcesCollection)

	var source models.LeadSource
	err := sourcesCollection.FindOne(ctx, bson.M{"name": "WhatsApp"}).Decode(&source)
	if err == nil {
		return source.ID.Hex(), nil
	}
	if err != mongo.ErrNoDocuments {
		return "", err
	}

	now := time.Now()
	source = models.LeadSource{
		ID:        primitive.NewObjectID(),
		Name:      "WhatsApp",
		Icon:      "fab fa-whatsapp",
		Color:     "#25D366",
		Order:     1,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := sourcesCollection.InsertOne(ctx, source); err != nil {
		return "", err
	}
	return source.ID.Hex(), nil
}

// findOrCreateLead 按(公司, 电话)查找线索；不存在则创建并写created活动
// 已存在且来名非空不同时刷新姓名
func findOrCreateLead(ctx context.Context, companyID, phone, name, sourceID string) (*models.Lead, bool, error) {
	leadsCollection := repository.Collection(repository.LeadsCollection)

	var lead models.Lead
	err := leadsCollection.FindOne(ctx, bson.M{"companyid": companyID, "phone": phone}).Decode(&lead)
	if err == nil {
		if name != "" && lead.Name != name {
			if _, err := leadsCollection.UpdateOne(ctx,
				bson.M{"_id": lead.ID},
				bson.M{"$set": bson.M{"name": name, "updatedat": time.Now()}}); err != nil {
				return nil, false, err
			}
			lead.Name = name
		}
		return &lead, false, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, false, err
	}

	leadName := name
	if leadName == "" {
		suffix := phone
		if len(phone) > 4 {
			suffix = phone[len(phone)-4:]
		}
		leadName = "WhatsApp User " + suffix
	}

	now := time.Now()
	lead = models.Lead{
		ID:        primitive.NewObjectID(),
		CompanyID: companyID,
		Name:      leadName,
		Phone:     phone,
		SourceID:  sourceID,
		StageID:   defaultLeadStageID(ctx),
		Status:    models.LeadStatusNew,
		Priority:  models.LeadPriorityMedium,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := leadsCollection.InsertOne(ctx, lead); err != nil {
		return nil, false, err
	}

	// webhook产生的线索没有操作人，活动归属系统
	if err := AppendActivity(ctx, lead.ID.Hex(), nil, models.ActivityTypeCreated, "Lead created"); err != nil {
		return nil, false, err
	}

	return &lead, true, nil
}

// defaultLeadStageID 第一个启用的lead类型阶段
func defaultLeadStageID(ctx context.Context) string {
	findOptions := options.FindOne().SetSort(bson.M{"order": 1})
	var stage models.LeadStage
	err := repository.Collection(repository.LeadStagesCollection).FindOne(ctx, bson.M{
		"stagetype": models.StageTypeLead,
		"isactive":  true,
	}, findOptions).Decode(&stage)
	if err != nil {
		return ""
	}
	return stage.ID.Hex()
}

// touchChannel 获取或创建(线索, whatsapp)通道并刷新元数据
func touchChannel(ctx context.Context, cfg *models.WoztellConfig, leadID string, incrementUnread bool) (string, bool, error) {
	channelsCollection := repository.Collection(repository.ChannelsCollection)
	now := time.Now()

	var channel models.Channel
	err := channelsCollection.FindOne(ctx, bson.M{
		"leadid":      leadID,
		"channeltype": models.ChannelTypeWhatsApp,
	}).Decode(&channel)
	if err != nil {
		if err != mongo.ErrNoDocuments {
			return "", false, err
		}

		channel = models.Channel{
			ID:            primitive.NewObjectID(),
			CompanyID:     cfg.CompanyID,
			LeadID:        leadID,
			ChannelType:   models.ChannelTypeWhatsApp,
			ChannelID:     cfg.ChannelID,
			LastMessageAt: &now,
			IsActive:      true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if incrementUnread {
			channel.UnreadCount = 1
		}
		if _, err := channelsCollection.InsertOne(ctx, channel); err != nil {
			return "", false, err
		}
		return channel.ID.Hex(), true, nil
	}

	update := bson.M{
		"$set": bson.M{"lastmessageat": now, "updatedat": now},
	}
	if incrementUnread {
		update["$inc"] = bson.M{"unreadcount": 1}
	}
	if _, err := channelsCollection.UpdateOne(ctx, bson.M{"_id": channel.ID}, update); err != nil {
		return "", false, err
	}

	return channel.ID.Hex(), false, nil
}

// markMessageFailed 将消息标记为失败并记录错误文案
func markMessageFailed(ctx context.Context, messageID primitive.ObjectID, errorMessage string) {
	if _, err := repository.Collection(repository.MessagesCollection).UpdateOne(ctx,
		bson.M{"_id": messageID},
		bson.M{"$set": bson.M{
			"status":       models.MessageStatusFailed,
			"errormessage": errorMessage,
			"updatedat":    time.Now(),
		}}); err != nil {
		utils.Logger.Error().Err(err).Str("messageId", messageID.Hex()).Msg("标记消息失败状态出错")
	}
}
