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

// GetUsers 公司用户列表
func GetUsers(c *gin.Context) {
	companyID := middleware.GetCompanyID(c)
	ctx := repository.GetContext()

	findOptions := options.Find().SetSort(bson.M{"createdat": -1})
	cursor, err := repository.Collection(repository.UsersCollection).Find(ctx,
		bson.M{"companyid": companyID}, findOptions)
	if err != nil {
		utils.Logger.Error().Err(err).Msg("查询用户列表失败")
		utils.ErrorResponse(c, "查询用户失败", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		utils.ErrorResponse(c, "解析用户数据失败", http.StatusInternalServerError)
		return
	}

	utils.SuccessResponse(c, gin.H{"users": users}, "")
}

// GetUserDetail 用户详情（含业绩统计和综合绩效）
func GetUserDetail(c *gin.Context) {
	companyID := middleware.GetCompanyID(c)

	user, apiErr := findUserInCompany(companyID, c.Param("id"))
	if apiErr != nil {
		utils.HandleError(c, apiErr)
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

// CreateUser 创建用户（仅管理员）
func CreateUser(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, "无效的请求参数: "+err.Error(), http.StatusBadRequest)
		return
	}

	companyID := middleware.GetCompanyID(c)
	ctx := repository.GetContext()

	now := time.Now()
	user := models.User{
		ID:        primitive.NewObjectID(),
		Email:     req.Email,
		Password:  utils.HashPassword(req.Password),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		CompanyID: companyID,
		Role:      req.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := repository.Collection(repository.UsersCollection).InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			utils.HandleError(c, utils.CreateConflictError("该邮箱已被注册"))
			return
		}
		utils.Logger.Error().Err(err).Str("email", req.Email).Msg("创建用户失败")
		utils.ErrorResponse(c, "创建用户失败", http.StatusInternalServerError)
		return
	}

	user.Password = ""
	utils.SuccessResponse(c, gin.H{"user": user}, "创建用户成功", http.StatusCreated)
}

// UpdateUser 更新用户（仅管理员）
func UpdateUser(c *gin.Context) {
	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, "无效的请求参数: "+err.Error(), http.StatusBadRequest)
		return
	}

	companyID := middleware.GetCompanyID(c)
	ctx := repository.GetContext()

	target, apiErr := findUserInCompany(companyID, c.Param("id"))
	if apiErr != nil {
		utils.HandleError(c, apiErr)
		return
	}

	updates := bson.M{"updatedat": time.Now()}
	if req.Email != "" {
		updates["email"] = req.Email
	}
	if req.Password != "" {
		updates["password"] = utils.HashPassword(req.Password)
	}
	if req.FirstName != "" {
		updates["firstname"] = req.FirstName
	}
	if req.LastName != "" {
		updates["lastname"] = req.LastName
	}
	if req.Phone != "" {
		updates["phone"] = req.Phone
	}
	if req.Role != "" {
		updates["role"] = req.Role
	}
	if req.IsActive != nil {
		updates["isactive"] = *req.IsActive
	}

	if _, err := repository.Collection(repository.UsersCollection).UpdateOne(ctx,
		bson.M{"_id": target.ID}, bson.M{"$set": updates}); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			utils.HandleError(c, utils.CreateConflictError("该邮箱已被注册"))
			return
		}
		utils.Logger.Error().Err(err).Str("userId", c.Param("id")).Msg("更新用户失败")
		utils.ErrorResponse(c, "更新用户失败", http.StatusInternalServerError)
		return
	}

	utils.SuccessResponse(c, nil, "更新用户成功")
}

// DeleteUser 删除用户（仅管理员）
// 不可删除自己；超级管理员只能被超级管理员删除；该用户名下线索的分配人置空
func DeleteUser(c *gin.Context) {
	actor := utils.GetUser(c)
	companyID := middleware.GetCompanyID(c)
	ctx := repository.GetContext()

	targetID := c.Param("id")
	if actor != nil && actor.ID == targetID {
		utils.HandleError(c, utils.CreateBadRequestError("不能删除自己的账户"))
		return
	}

	target, apiErr := findUserInCompany(companyID, targetID)
	if apiErr != nil {
		utils.HandleError(c, apiErr)
		return
	}

	if target.IsSuperAdmin() && (actor == nil || !actor.IsSuperAdmin()) {
		utils.HandleError(c, utils.CreateForbiddenError())
		return
	}

	if _, err := repository.Collection(repository.UsersCollection).DeleteOne(ctx,
		bson.M{"_id": target.ID}); err != nil {
		utils.Logger.Error().Err(err).Str("userId", targetID).Msg("删除用户失败")
		utils.ErrorResponse(c, "删除用户失败", http.StatusInternalServerError)
		return
	}

	// 名下线索的分配人置空，线索本身保留
	if _, err := repository.Collection(repository.LeadsCollection).UpdateMany(ctx,
		bson.M{"companyid": companyID, "assignedto": targetID},
		bson.M{"$set": bson.M{"assignedto": "", "updatedat": time.Now()}}); err != nil {
		utils.Logger.Error().Err(err).Str("userId", targetID).Msg("清空线索分配人失败")
	}

	utils.SuccessResponse(c, nil, "删除用户成功")
}

// findUserInCompany 按ID在租户范围内查找用户，跨租户返回404
func findUserInCompany(companyID, userID string) (*models.User, *utils.ApiError) {
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, utils.CreateNotFoundError("用户")
	}

	var user models.User
	err = repository.Collection(repository.UsersCollection).FindOne(repository.GetContext(), bson.M{
		"_id":       objID,
		"companyid": companyID,
	}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.CreateNotFoundError("用户")
		}
		return nil, utils.NewApiError("查询用户失败", 500, "INTERNAL_ERROR")
	}

	return &user, nil
}
