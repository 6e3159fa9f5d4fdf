package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/catchycrm/crm_end/middleware"
	"github.com/catchycrm/crm_end/models"
	"github.com/catchycrm/crm_end/repository"
	"github.com/catchycrm/crm_end/service"
	"github.com/catchycrm/crm_end/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GetLeads 线索列表：搜索、多条件过滤、分页、状态页签计数
func GetLeads(c *gin.Context) {
	user := utils.GetUser(c)
	companyID := middleware.GetCompanyID(c)
	ctx := repository.GetContext()

	// 基础过滤：本公司，默认排除软删除
	filter := bson.M{
		"companyid": companyID,
		"status":    bson.M{"$ne": models.LeadStatusDeleted},
	}

	// 关键字搜索：姓名/电话/邮箱子串
	if keyword := c.Query("search"); keyword != "" {
		regex := bson.M{"$regex": keyword, "$options": "i"}
		filter["$or"] = bson.A{
			bson.M{"name": regex},
			bson.M{"phone": regex},
			bson.M{"email": regex},
		}
	}

	// 多选过滤
	if status := c.Query("status"); status != "" {
		filter["status"] = models.LeadStatus(status)
	}
	if stageID := c.Query("stageId"); stageID != "" {
		filter["stageid"] = stageID
	}
	if sourceID := c.Query("sourceId"); sourceID != "" {
		filter["sourceid"] = sourceID
	}
	if priority := c.Query("priority"); priority != "" {
		filter["priority"] = models.LeadPriority(priority)
	}
	if assignedTo := c.Query("assignedTo"); assignedTo != "" {
		filter["assignedto"] = assignedTo
	}
	if startDate := c.Query("startDate"); startDate != "" {
		if t, err := time.Parse("2006-01-02", startDate); err == nil {
			filter["createdat"] = bson.M{"$gte": t}
		}
	}
	if endDate := c.Query("endDate"); endDate != "" {
		if t, err := time.Parse("2006-01-02", endDate); err == nil {
			dateFilter, ok := filter["createdat"].(bson.M)
			if !ok {
				dateFilter = bson.M{}
			}
			dateFilter["$lt"] = t.AddDate(0, 0, 1)
			filter["createdat"] = dateFilter
		}
	}

	// 坐席默认只看分配给自己的线索
	if user != nil && user.Role == models.UserRoleAGENT {
		filter["assignedto"] = user.ID
	}

	// 分页
	page, _ := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.ParseInt(c.DefaultQuery("pageSize", "20"), 10, 64)
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	// 排序，默认最新优先
	sortField := c.DefaultQuery("sortBy", "createdat")
	sortOrder := -1
	if c.Query("sortOrder") == "asc" {
		sortOrder = 1
	}

	leadsCollection := repository.Collection(repository.LeadsCollection)

	total, err := leadsCollection.CountDocuments(ctx, filter)
	if err != nil {
		utils.Logger.Error().Err(err).Msg("统计线索数量失败")
		utils.ErrorResponse(c, "查询线索失败", http.StatusInternalServerError)
		return
	}

	findOptions := options.Find().
		SetSort(bson.M{sortField: sortOrder}).
		SetSkip((page - 1) * pageSize).
		SetLimit(pageSize)

	cursor, err := leadsCollection.Find(ctx, filter, findOptions)
	if err != nil {
		utils.Logger.Error().Err(err).Msg("查询线索列表失败")
		utils.ErrorResponse(c, "查询线索失败", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	leads := []models.Lead{}
	if err := cursor.All(ctx, &leads); err != nil {
		utils.ErrorResponse(c, "解析线索数据失败", http.StatusInternalServerError)
		return
	}

	enrichLeads(leads)

	// 状态页签计数：只按租户和坐席范围统计，不受列表过滤条件影响
	statusCounts, err := countLeadsByStatus(companyID, user)
	if err != nil {
		utils.Logger.Error().Err(err).Msg("统计状态页签失败")
		statusCounts = map[string]int{}
	}

	utils.SuccessResponse(c, gin.H{
		"leads":        utils.NewPaginatedResponse(leads, total, page, pageSize),
		"statusCounts": statusCounts,
	}, "")
}

// GetLead 线索详情：含备注和活动时间线
func GetLead(c *gin.Context) {
	companyID := middleware.GetCompanyID(c)
	ctx := repository.GetContext()

	lead, apiErr := service.FindLeadInCompany(ctx, companyID, c.Param("id"))
	if apiErr != nil {
		utils.HandleError(c, apiErr)
		return
	}

	enriched := []models.Lead{*lead}
	enrichLeads(enriched)

	activities, err := service.ListActivities(ctx, lead.ID.Hex(), 100)
	if err != nil {
		utils.Logger.Error().Err(err).Msg("查询活动记录失败")
		activities = []models.Activity{}
	}

	notes, err := listLeadNotes(ctx, lead.ID.Hex())
	if err != nil {
		utils.Logger.Error().Err(err).Msg("查询备注失败")
		notes = []models.Note{}
	}

	now := time.Now()
	utils.SuccessResponse(c, gin.H{
		"lead":              enriched[0],
		"activities":        activities,
		"notes":             notes,
		"initials":          lead.Initials(),
		"timeSinceCreated":  lead.TimeSinceCreated(now),
		"timeUntilFollowUp": lead.TimeUntilFollowUp(now),
	}, "")
}

// CreateLead 创建线索
func CreateLead(c *gin.Context) {
	var req models.LeadCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, "无效的请求参数: "+err.Error(), http.StatusBadRequest)
		return
	}

	user := utils.GetUser(c)
	companyID := middleware.GetCompanyID(c)

	lead, apiErr := service.CreateLead(repository.GetContext(), companyID, req, user)
	if apiErr != nil {
		utils.HandleError(c, apiErr)
		return
	}

	utils.SuccessResponse(c, gin.H{"lead": lead}, "创建线索成功", http.StatusCreated)
}

// UpdateLead 更新线索基础字段
func UpdateLead(c *gin.Context) {
	var req models.LeadUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, "无效的请求参数: "+err.Error(), http.StatusBadRequest)
		return
	}

	user := utils.GetUser(c)
	companyID := middleware.GetCompanyID(c)

	lead, apiErr := service.UpdateLead(repository.GetContext(), companyID, c.Param("id"), req, user)
	if apiErr != nil {
		utils.HandleError(c, apiErr)
		return
	}

	utils.SuccessResponse(c, gin.H{"lead": lead}, "更新线索成功")
}

// DeleteLead 软删除线索（仅管理员）
func DeleteLead(c *gin.Context) {
	user := utils.GetUser(c)
	companyID := middleware.GetCompanyID(c)

	if apiErr := service.SoftDeleteLead(repository.GetContext(), companyID, c.Param("id"), user); apiErr != nil {
		utils.HandleError(c, apiErr)
		return
	}

	utils.SuccessResponse(c, nil, "删除线索成功")
}

// AssignLead 分配线索
func AssignLead(c *gin.Context) {
	var req models.AssignLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, "无效的请求参数: "+err.Error(), http.StatusBadRequest)
		return
	}

	user := utils.GetUser(c)
	companyID := middleware.GetCompanyID(c)

	ok, apiErr := service.AssignLead(repository.GetContext(), companyID, c.Param("id"), req.UserID, user)
	if apiErr != nil {
		utils.HandleError(c, apiErr)
		return
	}
	if !ok {
		utils.ErrorResponse(c, "该线索当前状态不允许分配", http.StatusBadRequest)
		return
	}

	utils.SuccessResponse(c, nil, "分配线索成功")
}

// ChangeLeadStatus 修改线索状态
func ChangeLeadStatus(c *gin.Context) {
	var req models.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, "无效的请求参数: "+err.Error(), http.StatusBadRequest)
		return
	}

	user := utils.GetUser(c)
	companyID := middleware.GetCompanyID(c)

	lead, apiErr := service.ChangeLeadStatus(repository.GetContext(), companyID, c.Param("id"), req.Status, user)
	if apiErr != nil {
		utils.HandleError(c, apiErr)
		return
	}

	utils.SuccessResponse(c, gin.H{"lead": lead}, "修改状态成功")
}

// ChangeLeadStage 修改线索阶段
func ChangeLeadStage(c *gin.Context) {
	var req models.ChangeStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, "无效的请求参数: "+err.Error(), http.StatusBadRequest)
		return
	}

	user := utils.GetUser(c)
	companyID := middleware.GetCompanyID(c)

	lead, apiErr := service.ChangeLeadStage(repository.GetContext(), companyID, c.Param("id"), req.StageID, user)
	if apiErr != nil {
		utils.HandleError(c, apiErr)
		return
	}

	utils.SuccessResponse(c, gin.H{"lead": lead}, "修改阶段成功")
}

// BulkLeadAction 批量操作：逐条应用，收集失败项
func BulkLeadAction(c *gin.Context) {
	var req models.BulkLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, "无效的请求参数: "+err.Error(), http.StatusBadRequest)
		return
	}

	user := utils.GetUser(c)
	companyID := middleware.GetCompanyID(c)

	result, apiErr := service.BulkUpdateLeads(repository.GetContext(), companyID, req, user)
	if apiErr != nil {
		utils.HandleError(c, apiErr)
		return
	}

	utils.SuccessResponse(c, result, "批量操作完成")
}

// countLeadsByStatus 各状态页签计数（不含软删除）
func countLeadsByStatus(companyID string, user *utils.LoginUser) (map[string]int, error) {
	ctx := repository.GetContext()

	match := bson.M{
		"companyid": companyID,
		"status":    bson.M{"$ne": models.LeadStatusDeleted},
	}
	if user != nil && user.Role == models.UserRoleAGENT {
		match["assignedto"] = user.ID
	}

	pipeline := []bson.M{
		{"$match": match},
		{"$group": bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}},
	}

	cursor, err := repository.Collection(repository.LeadsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID    string `bson:"_id"`
		Count int    `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	counts := map[string]int{}
	for _, row := range rows {
		counts[row.ID] = row.Count
	}
	return counts, nil
}

// enrichLeads 回填列表展示用的来源/阶段/被分配人名称
func enrichLeads(leads []models.Lead) {
	if len(leads) == 0 {
		return
	}
	ctx := repository.GetContext()

	sourceNames := map[string]string{}
	stageNames := map[string]string{}
	userNames := map[string]string{}

	for i := range leads {
		lead := &leads[i]

		if lead.SourceID != "" {
			if name, ok := sourceNames[lead.SourceID]; ok {
				lead.SourceName = name
			} else if objID, err := primitive.ObjectIDFromHex(lead.SourceID); err == nil {
				var source models.LeadSource
				if repository.Collection(repository.LeadSourcesCollection).
					FindOne(ctx, bson.M{"_id": objID}).Decode(&source) == nil {
					sourceNames[lead.SourceID] = source.Name
					lead.SourceName = source.Name
				}
			}
		}

		if lead.StageID != "" {
			if name, ok := stageNames[lead.StageID]; ok {
				lead.StageName = name
			} else if objID, err := primitive.ObjectIDFromHex(lead.StageID); err == nil {
				var stage models.LeadStage
				if repository.Collection(repository.LeadStagesCollection).
					FindOne(ctx, bson.M{"_id": objID}).Decode(&stage) == nil {
					stageNames[lead.StageID] = stage.Name
					lead.StageName = stage.Name
				}
			}
		}

		if lead.AssignedTo != "" {
			if name, ok := userNames[lead.AssignedTo]; ok {
				lead.AssigneeName = name
			} else if assignee, err := repository.FindUserByID(lead.AssignedTo); err == nil {
				userNames[lead.AssignedTo] = assignee.FullName()
				lead.AssigneeName = assignee.FullName()
			}
		}
	}
}
