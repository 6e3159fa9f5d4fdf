package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Company 租户（公司/诊所），所有业务数据都按公司隔离
type Company struct {
	ID           primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	Name         string             `json:"name" bson:"name"`
	Slug         string             `json:"slug" bson:"slug"`
	Description  string             `json:"description,omitempty" bson:"description,omitempty"`
	Phone        string             `json:"phone,omitempty" bson:"phone,omitempty"`
	Email        string             `json:"email,omitempty" bson:"email,omitempty"`
	Website      string             `json:"website,omitempty" bson:"website,omitempty"`
	Address      string             `json:"address,omitempty" bson:"address,omitempty"`
	WorkingHours string             `json:"workingHours,omitempty" bson:"workinghours,omitempty"`
	Timezone     string             `json:"timezone" bson:"timezone"`
	IsActive     bool               `json:"isActive" bson:"isactive"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdat"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updatedat"`
}

// LeadSource 线索来源目录项（如 WhatsApp、Facebook）
type LeadSource struct {
	ID          primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Icon        string             `json:"icon" bson:"icon"`
	Color       string             `json:"color" bson:"color"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	IsActive    bool               `json:"isActive" bson:"isactive"`
	Order       int                `json:"order" bson:"order"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdat"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedat"`
}

// LeadStage 看板阶段目录项，StageType 用于粗粒度分组
type LeadStage struct {
	ID          primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Slug        string             `json:"slug" bson:"slug"`
	StageType   StageType          `json:"stageType" bson:"stagetype"`
	Color       string             `json:"color" bson:"color"`
	Icon        string             `json:"icon,omitempty" bson:"icon,omitempty"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	Order       int                `json:"order" bson:"order"`
	IsActive    bool               `json:"isActive" bson:"isactive"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdat"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedat"`
}
