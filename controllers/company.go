package controllers

import (
	"net/http"
	"time"

	"github.com/catchycrm/crm_end/middleware"
	"github.com/catchycrm/crm_end/models"
	"github.com/catchycrm/crm_end/repository"
	"github.com/catchycrm/crm_end/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CompanyUpdateRequest 更新公司信息请求
type CompanyUpdateRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Phone        string `json:"phone"`
	Email        string `json:"email" binding:"omitempty,email"`
	Website      string `json:"website"`
	Address      string `json:"address"`
	WorkingHours string `json:"workingHours"`
	Timezone     string `json:"timezone"`
}

// GetCompanies 公司列表（仅超级管理员）
func GetCompanies(c *gin.Context) {
	user := utils.GetUser(c)
	if user == nil || !user.IsSuperAdmin() {
		utils.HandleError(c, utils.CreateForbiddenError())
		return
	}

	ctx := repository.GetContext()
	findOptions := options.Find().SetSort(bson.M{"name": 1})
	cursor, err := repository.Collection(repository.CompaniesCollection).Find(ctx, bson.M{}, findOptions)
	if err != nil {
		utils.Logger.Error().Err(err).Msg("查询公司列表失败")
		utils.ErrorResponse(c, "查询公司失败", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	companies := []models.Company{}
	if err := cursor.All(ctx, &companies); err != nil {
		utils.ErrorResponse(c, "解析公司数据失败", http.StatusInternalServerError)
		return
	}

	utils.SuccessResponse(c, gin.H{"companies": companies}, "")
}

// GetCompany 当前租户的公司信息
func GetCompany(c *gin.Context) {
	companyID := middleware.GetCompanyID(c)

	company, apiErr := findCompanyByID(companyID)
	if apiErr != nil {
		utils.HandleError(c, apiErr)
		return
	}

	utils.SuccessResponse(c, gin.H{"company": company}, "")
}

// UpdateCompany 更新公司信息（仅管理员）
func UpdateCompany(c *gin.Context) {
	var req CompanyUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, "无效的请求参数: "+err.Error(), http.StatusBadRequest)
		return
	}

	companyID := middleware.GetCompanyID(c)
	company, apiErr := findCompanyByID(companyID)
	if apiErr != nil {
		utils.HandleError(c, apiErr)
		return
	}

	updates := bson.M{"updatedat": time.Now()}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if req.Phone != "" {
		updates["phone"] = req.Phone
	}
	if req.Email != "" {
		updates["email"] = req.Email
	}
	if req.Website != "" {
		updates["website"] = req.Website
	}
	if req.Address != "" {
		updates["address"] = req.Address
	}
	if req.WorkingHours != "" {
		updates["workinghours"] = req.WorkingHours
	}
	if req.Timezone != "" {
		updates["timezone"] = req.Timezone
	}

	if _, err := repository.Collection(repository.CompaniesCollection).UpdateOne(repository.GetContext(),
		bson.M{"_id": company.ID}, bson.M{"$set": updates}); err != nil {
		utils.Logger.Error().Err(err).Str("companyId", companyID).Msg("更新公司信息失败")
		utils.ErrorResponse(c, "更新公司信息失败", http.StatusInternalServerError)
		return
	}

	utils.SuccessResponse(c, nil, "更新公司信息成功")
}

// findCompanyByID 按ID查找公司
func findCompanyByID(companyID string) (*models.Company, *utils.ApiError) {
	objID, err := primitive.ObjectIDFromHex(companyID)
	if err != nil {
		return nil, utils.CreateNotFoundError("公司")
	}

	var company models.Company
	err = repository.Collection(repository.CompaniesCollection).FindOne(repository.GetContext(),
		bson.M{"_id": objID}).Decode(&company)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.CreateNotFoundError("公司")
		}
		return nil, utils.NewApiError("查询公司失败", 500, "INTERNAL_ERROR")
	}

	return &company, nil
}
