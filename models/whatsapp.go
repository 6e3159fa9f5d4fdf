package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WoztellConfig 每个公司一份的Woztell接入配置
type WoztellConfig struct {
	ID            primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	CompanyID     string             `json:"companyId" bson:"companyid"`
	APIKey        string             `json:"apiKey" bson:"apikey"`
	APISecret     string             `json:"-" bson:"apisecret"`
	ChannelID     string             `json:"channelId" bson:"channelid"`
	WebhookSecret string             `json:"webhookSecret" bson:"webhooksecret"`
	IsActive      bool               `json:"isActive" bson:"isactive"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdat"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updatedat"`
}

// Message 消息记录
// WoztellMessageID 作为供应商侧去重键（稀疏唯一索引）
type Message struct {
	ID               primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	LeadID           string             `json:"leadId" bson:"leadid"`
	UserID           string             `json:"userId,omitempty" bson:"userid,omitempty"` // 入站消息为空
	Direction        MessageDirection   `json:"direction" bson:"direction"`
	Content          string             `json:"content" bson:"content"`
	MediaURL         string             `json:"mediaUrl,omitempty" bson:"mediaurl,omitempty"`
	MediaType        string             `json:"mediaType,omitempty" bson:"mediatype,omitempty"`
	Status           MessageStatus      `json:"status" bson:"status"`
	WoztellMessageID string             `json:"woztellMessageId,omitempty" bson:"woztellmessageid,omitempty"`
	ErrorMessage     string             `json:"errorMessage,omitempty" bson:"errormessage,omitempty"`
	CreatedAt        time.Time          `json:"createdAt" bson:"createdat"`
	UpdatedAt        time.Time          `json:"updatedAt" bson:"updatedat"`
}

// HasMedia 是否携带媒体附件
func (m *Message) HasMedia() bool {
	return m.MediaURL != ""
}

// Channel 每个(线索, 通道类型)一条的会话通道，跟踪未读数与最近消息时间
type Channel struct {
	ID            primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	CompanyID     string             `json:"companyId" bson:"companyid"`
	LeadID        string             `json:"leadId" bson:"leadid"`
	ChannelType   ChannelType        `json:"channelType" bson:"channeltype"`
	ChannelID     string             `json:"channelId,omitempty" bson:"channelid,omitempty"`
	LastMessageAt *time.Time         `json:"lastMessageAt,omitempty" bson:"lastmessageat,omitempty"`
	UnreadCount   int                `json:"unreadCount" bson:"unreadcount"`
	IsActive      bool               `json:"isActive" bson:"isactive"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdat"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updatedat"`
}
