package controllers

import (
	"net/http"
	"time"

	"github.com/catchycrm/crm_end/models"
	"github.com/catchycrm/crm_end/repository"
	"github.com/catchycrm/crm_end/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CatalogItemRequest 目录项(来源/阶段)创建与更新请求
type CatalogItemRequest struct {
	Name        string `json:"name" binding:"required"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	Description string `json:"description"`
	Order       int    `json:"order"`
	StageType   string `json:"stageType"` // 仅阶段使用
	IsActive    *bool  `json:"isActive"`
}

// GetLeadSources 线索来源列表
func GetLeadSources(c *gin.Context) {
	ctx := repository.GetContext()
	findOptions := options.Find().SetSort(bson.M{"order": 1})
	cursor, err := repository.Collection(repository.LeadSourcesCollection).Find(ctx, bson.M{}, findOptions)
	if err != nil {
		utils.ErrorResponse(c, "查询线索来源失败", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	sources := []models.LeadSource{}
	if err := cursor.All(ctx, &sources); err != nil {
		utils.ErrorResponse(c, "解析线索来源失败", http.StatusInternalServerError)
		return
	}

	utils.SuccessResponse(c, gin.H{"sources": sources}, "")
}

// CreateLeadSource 创建线索来源（仅管理员）
func CreateLeadSource(c *gin.Context) {
	var req CatalogItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, "无效的请求参数: "+err.Error(), http.StatusBadRequest)
		return
	}

	now := time.Now()
	source := models.LeadSource{
		ID:          primitive.NewObjectID(),
		Name:        req.Name,
		Icon:        req.Icon,
		Color:       req.Color,
		Description: req.Description,
		Order:       req.Order,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.IsActive != nil {
		source.IsActive = *req.IsActive
	}

	if _, err := repository.Collection(repository.LeadSourcesCollection).InsertOne(repository.GetContext(), source); err != nil {
		utils.Logger.Error().Err(err).Str("name", req.Name).Msg("创建线索来源失败")
		utils.ErrorResponse(c, "创建线索来源失败", http.StatusInternalServerError)
		return
	}

	utils.SuccessResponse(c, gin.H{"source": source}, "创建线索来源成功", http.StatusCreated)
}

// UpdateLeadSource 更新线索来源（仅管理员）
func UpdateLeadSource(c *gin.Context) {
	var req CatalogItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, "无效的请求参数: "+err.Error(), http.StatusBadRequest)
		return
	}

	objID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.HandleError(c, utils.CreateNotFoundError("线索来源"))
		return
	}

	updates := bson.M{
		"name":        req.Name,
		"icon":        req.Icon,
		"color":       req.Color,
		"description": req.Description,
		"order":       req.Order,
		"updatedat":   time.Now(),
	}
	if req.IsActive != nil {
		updates["isactive"] = *req.IsActive
	}

	result, err := repository.Collection(repository.LeadSourcesCollection).UpdateOne(repository.GetContext(),
		bson.M{"_id": objID}, bson.M{"$set": updates})
	if err != nil {
		utils.ErrorResponse(c, "更新线索来源失败", http.StatusInternalServerError)
		return
	}
	if result.MatchedCount == 0 {
		utils.HandleError(c, utils.CreateNotFoundError("线索来源"))
		return
	}

	utils.SuccessResponse(c, nil, "更新线索来源成功")
}

// DeleteLeadSource 删除线索来源（仅管理员），被线索引用时拒绝删除
func DeleteLeadSource(c *gin.Context) {
	ctx := repository.GetContext()

	objID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.HandleError(c, utils.CreateNotFoundError("线索来源"))
		return
	}

	// 使用中的目录项不可删除
	inUse, err := repository.Collection(repository.LeadsCollection).CountDocuments(ctx,
		bson.M{"sourceid": objID.Hex()})
	if err != nil {
		utils.ErrorResponse(c, "检查来源使用情况失败", http.StatusInternalServerError)
		return
	}
	if inUse > 0 {
		utils.HandleError(c, utils.CreateConflictError("该来源已被线索引用，不可删除"))
		return
	}

	result, err := repository.Collection(repository.LeadSourcesCollection).DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		utils.ErrorResponse(c, "删除线索来源失败", http.StatusInternalServerError)
		return
	}
	if result.DeletedCount == 0 {
		utils.HandleError(c, utils.CreateNotFoundError("线索来源"))
		return
	}

	utils.SuccessResponse(c, nil, "删除线索来源成功")
}

// GetLeadStages 线索阶段列表
func GetLeadStages(c *gin.Context) {
	ctx := repository.GetContext()
	findOptions := options.Find().SetSort(bson.M{"order": 1})
	cursor, err := repository.Collection(repository.LeadStagesCollection).Find(ctx, bson.M{}, findOptions)
	if err != nil {
		utils.ErrorResponse(c, "查询线索阶段失败", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	stages := []models.LeadStage{}
	if err := cursor.All(ctx, &stages); err != nil {
		utils.ErrorResponse(c, "解析线索阶段失败", http.StatusInternalServerError)
		return
	}

	utils.SuccessResponse(c, gin.H{"stages": stages}, "")
}

// CreateLeadStage 创建线索阶段（仅管理员）
func CreateLeadStage(c *gin.Context) {
	var req CatalogItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, "无效的请求参数: "+err.Error(), http.StatusBadRequest)
		return
	}

	stageType := models.StageType(req.StageType)
	if stageType == "" {
		stageType = models.StageTypeLead
	}
	switch stageType {
	case models.StageTypeLead, models.StageTypePatient, models.StageTypeClosed:
	default:
		utils.HandleError(c, utils.CreateValidationError("stageType", "阶段类型无效"))
		return
	}

	now := time.Now()
	stage := models.LeadStage{
		ID:          primitive.NewObjectID(),
		Name:        req.Name,
		StageType:   stageType,
		Color:       req.Color,
		Icon:        req.Icon,
		Description: req.Description,
		Order:       req.Order,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.IsActive != nil {
		stage.IsActive = *req.IsActive
	}

	if _, err := repository.Collection(repository.LeadStagesCollection).InsertOne(repository.GetContext(), stage); err != nil {
		utils.Logger.Error().Err(err).Str("name", req.Name).Msg("创建线索阶段失败")
		utils.ErrorResponse(c, "创建线索阶段失败", http.StatusInternalServerError)
		return
	}

	utils.SuccessResponse(c, gin.H{"stage": stage}, "创建线索阶段成功", http.StatusCreated)
}

// UpdateLeadStage 更新线索阶段（仅管理员）
func UpdateLeadStage(c *gin.Context) {
	var req CatalogItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, "无效的请求参数: "+err.Error(), http.StatusBadRequest)
		return
	}

	objID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.HandleError(c, utils.CreateNotFoundError("线索阶段"))
		return
	}

	updates := bson.M{
		"name":        req.Name,
		"icon":        req.Icon,
		"color":       req.Color,
		"description": req.Description,
		"order":       req.Order,
		"updatedat":   time.Now(),
	}
	if req.StageType != "" {
		updates["stagetype"] = models.StageType(req.StageType)
	}
	if req.IsActive != nil {
		updates["isactive"] = *req.IsActive
	}

	result, err := repository.Collection(repository.LeadStagesCollection).UpdateOne(repository.GetContext(),
		bson.M{"_id": objID}, bson.M{"$set": updates})
	if err != nil {
		utils.ErrorResponse(c, "更新线索阶段失败", http.StatusInternalServerError)
		return
	}
	if result.MatchedCount == 0 {
		utils.HandleError(c, utils.CreateNotFoundError("线索阶段"))
		return
	}

	utils.SuccessResponse(c, nil, "更新线索阶段成功")
}

// DeleteLeadStage 删除线索阶段（仅管理员），被线索引用时拒绝删除
func DeleteLeadStage(c *gin.Context) {
	ctx := repository.GetContext()

	objID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.HandleError(c, utils.CreateNotFoundError("线索阶段"))
		return
	}

	inUse, err := repository.Collection(repository.LeadsCollection).CountDocuments(ctx,
		bson.M{"stageid": objID.Hex()})
	if err != nil {
		utils.ErrorResponse(c, "检查阶段使用情况失败", http.StatusInternalServerError)
		return
	}
	if inUse > 0 {
		utils.HandleError(c, utils.CreateConflictError("该阶段已被线索引用，不可删除"))
		return
	}

	result, err := repository.Collection(repository.LeadStagesCollection).DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		utils.ErrorResponse(c, "删除线索阶段失败", http.StatusInternalServerError)
		return
	}
	if result.DeletedCount == 0 {
		utils.HandleError(c, utils.CreateNotFoundError("线索阶段"))
		return
	}

	utils.SuccessResponse(c, nil, "删除线索阶段成功")
}
