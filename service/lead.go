package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/catchycrm/crm_end/models"
	"github.com/catchycrm/crm_end/repository"
	"github.com/catchycrm/crm_end/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// FindLeadInCompany 按ID在租户范围内查找线索
// 跨租户或不存在统一返回404，外部不可区分
func FindLeadInCompany(ctx context.Context, companyID, leadID string) (*models.Lead, *utils.ApiError) {
	objID, err := leadObjectID(leadID)
	if err != nil {
		return nil, utils.CreateNotFoundError("线索")
	}

	var lead models.Lead
	err = repository.Collection(repository.LeadsCollection).FindOne(ctx, bson.M{
		"_id":       objID,
		"companyid": companyID,
	}).Decode(&lead)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.CreateNotFoundError("线索")
		}
		utils.Logger.Error().Err(err).Str("leadId", leadID).Msg("查询线索失败")
		return nil, utils.NewApiError("查询线索失败", 500, "INTERNAL_ERROR")
	}

	return &lead, nil
}

// CanEditLead 线索编辑权：管理员或当前被分配人
// 同租户内的越权是可见的403，与跨租户的404刻意区分
func CanEditLead(user *utils.LoginUser, lead *models.Lead) bool {
	if user == nil {
		return false
	}
	if user.IsAdmin() {
		return true
	}
	return lead.AssignedTo == user.ID
}

// CreateLead 创建线索，线索行与created活动在同一事务内落盘
func CreateLead(ctx context.Context, companyID string, req models.LeadCreateRequest, actor *utils.LoginUser) (*models.Lead, *utils.ApiError) {
	phone := utils.NormalizePhone(req.Phone)
	if !utils.IsValidPhone(phone) {
		return nil, utils.CreateValidationError("phone", "电话号码格式无效")
	}

	priority := req.Priority
	if priority == "" {
		priority = models.LeadPriorityMedium
	}
	if !models.IsValidLeadPriority(priority) {
		return nil, utils.CreateValidationError("priority", "优先级无效")
	}

	var nextFollowUp *time.Time
	if req.NextFollowUp != "" {
		t, err := time.Parse(time.RFC3339, req.NextFollowUp)
		if err != nil {
			return nil, utils.CreateValidationError("nextFollowUp", "时间格式无效")
		}
		if t.Before(time.Now()) {
			return nil, utils.CreateValidationError("nextFollowUp", "跟进时间必须是将来时间")
		}
		nextFollowUp = &t
	}

	// 来源和阶段是全局目录，校验存在性即可
	if apiErr := validateCatalogRef(ctx, repository.LeadSourcesCollection, req.SourceID, "线索来源"); apiErr != nil {
		return nil, apiErr
	}
	if apiErr := validateCatalogRef(ctx, repository.LeadStagesCollection, req.StageID, "线索阶段"); apiErr != nil {
		return nil, apiErr
	}

	// 被分配人必须是本公司用户
	if req.AssignedTo != "" {
		if apiErr := validateAssignee(ctx, companyID, req.AssignedTo); apiErr != nil {
			return nil, apiErr
		}
	}

	now := time.Now()
	lead := models.Lead{
		ID:           primitive.NewObjectID(),
		CompanyID:    companyID,
		Name:         strings.TrimSpace(req.Name),
		Phone:        phone,
		Email:        req.Email,
		SourceID:     req.SourceID,
		StageID:      req.StageID,
		Status:       models.LeadStatusNew,
		Priority:     priority,
		AssignedTo:   req.AssignedTo,
		NextFollowUp: nextFollowUp,
		Notes:        req.Notes,
		Tags:         req.Tags,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := repository.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := repository.Collection(repository.LeadsCollection).InsertOne(sc, lead); err != nil {
			return nil, err
		}

		assigneeName := ""
		if lead.AssignedTo != "" {
			if err := incrementUserCounter(sc, lead.AssignedTo, "totalleadsassigned", 1); err != nil {
				return nil, err
			}
			assigneeName = assigneeDisplayName(sc, lead.AssignedTo)
		}

		for _, entry := range creationActivities(lead.AssignedTo, assigneeName) {
			if err := AppendActivity(sc, lead.ID.Hex(), actor, entry.activityType, entry.description); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, utils.CreateConflictError("该电话号码的线索已存在")
		}
		utils.Logger.Error().Err(err).Str("phone", phone).Msg("创建线索失败")
		return nil, utils.NewApiError("创建线索失败", 500, "INTERNAL_ERROR")
	}

	utils.LogDbOperation("insert", repository.LeadsCollection, bson.M{"phone": phone}, lead.ID.Hex())
	return &lead, nil
}

// leadActivityEntry 待写入的活动条目
type leadActivityEntry struct {
	activityType models.ActivityType
	description  string
}

// creationActivities 创建时的活动序列：created在前，assigned在后
func creationActivities(assignedTo, assigneeName string) []leadActivityEntry {
	entries := []leadActivityEntry{{models.ActivityTypeCreated, "Lead created"}}
	if assignedTo != "" {
		entries = append(entries, leadActivityEntry{models.ActivityTypeAssigned, "Assigned to " + assigneeName})
	}
	return entries
}

// UpdateLead 更新线索基础字段并记录field_updated活动
func UpdateLead(ctx context.Context, companyID, leadID string, req models.LeadUpdateRequest, actor *utils.LoginUser) (*models.Lead, *utils.ApiError) {
	lead, apiErr := FindLeadInCompany(ctx, companyID, leadID)
	if apiErr != nil {
		return nil, apiErr
	}

	if !CanEditLead(actor, lead) {
		return nil, utils.CreateForbiddenError()
	}

	updates := bson.M{"updatedat": time.Now()}
	changed := []string{}

	if req.Name != "" && req.Name != lead.Name {
		updates["name"] = strings.TrimSpace(req.Name)
		changed = append(changed, "name")
	}
	if req.Email != "" && req.Email != lead.Email {
		updates["email"] = req.Email
		changed = append(changed, "email")
	}
	if req.SourceID != "" && req.SourceID != lead.SourceID {
		if apiErr := validateCatalogRef(ctx, repository.LeadSourcesCollection, req.SourceID, "线索来源"); apiErr != nil {
			return nil, apiErr
		}
		updates["sourceid"] = req.SourceID
		changed = append(changed, "source")
	}
	if req.Priority != "" && req.Priority != lead.Priority {
		if !models.IsValidLeadPriority(req.Priority) {
			return nil, utils.CreateValidationError("priority", "优先级无效")
		}
		updates["priority"] = req.Priority
		changed = append(changed, "priority")
	}
	if req.NextFollowUp != "" {
		t, err := time.Parse(time.RFC3339, req.NextFollowUp)
		if err != nil {
			return nil, utils.CreateValidationError("nextFollowUp", "时间格式无效")
		}
		if t.Before(time.Now()) {
			return nil, utils.CreateValidationError("nextFollowUp", "跟进时间必须是将来时间")
		}
		updates["nextfollowup"] = t
		changed = append(changed, "next follow-up")
	}
	if req.Notes != "" && req.Notes != lead.Notes {
		updates["notes"] = req.Notes
		changed = append(changed, "notes")
	}
	if req.Tags != nil {
		updates["tags"] = req.Tags
		changed = append(changed, "tags")
	}

	if len(changed) == 0 {
		return lead, nil
	}

	_, err := repository.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := repository.Collection(repository.LeadsCollection).UpdateOne(sc,
			bson.M{"_id": lead.ID}, bson.M{"$set": updates}); err != nil {
			return nil, err
		}
		return nil, AppendActivity(sc, leadID, actor, models.ActivityTypeFieldUpdated,
			"Updated "+strings.Join(changed, ", "))
	})
	if err != nil {
		utils.Logger.Error().Err(err).Str("leadId", leadID).Msg("更新线索失败")
		return nil, utils.NewApiError("更新线索失败", 500, "INTERNAL_ERROR")
	}

	return FindLeadInCompany(ctx, companyID, leadID)
}

// AssignLead 分配线索
// won/lost状态的线索不可再分配：返回false且不产生任何活动或计数器变更
func AssignLead(ctx context.Context, companyID, leadID, targetUserID string, actor *utils.LoginUser) (bool, *utils.ApiError) {
	lead, apiErr := FindLeadInCompany(ctx, companyID, leadID)
	if apiErr != nil {
		return false, apiErr
	}

	if !lead.CanBeAssigned() {
		utils.Logger.Info().
			Str("leadId", leadID).
			Str("status", string(lead.Status)).
			Msg("线索状态不允许分配")
		return false, nil
	}

	if apiErr := validateAssignee(ctx, companyID, targetUserID); apiErr != nil {
		return false, apiErr
	}

	targetName := assigneeDisplayName(ctx, targetUserID)
	oldAssignee := lead.AssignedTo

	_, err := repository.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := repository.Collection(repository.LeadsCollection).UpdateOne(sc,
			bson.M{"_id": lead.ID},
			bson.M{"$set": bson.M{"assignedto": targetUserID, "updatedat": time.Now()}}); err != nil {
			return nil, err
		}

		// 新被分配人计数 +1
		if err := incrementUserCounter(sc, targetUserID, "totalleadsassigned", 1); err != nil {
			return nil, err
		}

		// 原被分配人计数 -1，不低于0
		if oldAssignee != "" && oldAssignee != targetUserID {
			if err := decrementUserCounterFloored(sc, oldAssignee, "totalleadsassigned"); err != nil {
				return nil, err
			}
		}

		// 操作人缺失时活动归属于被分配人
		activityActor := actor
		if activityActor == nil {
			activityActor = &utils.LoginUser{ID: targetUserID, Name: targetName}
		}
		return nil, AppendActivity(sc, leadID, activityActor, models.ActivityTypeAssigned, "Assigned to "+targetName)
	})
	if err != nil {
		utils.Logger.Error().Err(err).Str("leadId", leadID).Msg("分配线索失败")
		return false, utils.NewApiError("分配线索失败", 500, "INTERNAL_ERROR")
	}

	return true, nil
}

// ChangeLeadStatus 修改线索状态
// 不检查状态转移合法性，任意状态可到任意状态
// converted/won 单调递增被分配人的计数器，回退不扣减
func ChangeLeadStatus(ctx context.Context, companyID, leadID string, newStatus models.LeadStatus, actor *utils.LoginUser) (*models.Lead, *utils.ApiError) {
	if !models.IsValidLeadStatus(newStatus) {
		return nil, utils.CreateValidationError("status", "状态值无效")
	}

	lead, apiErr := FindLeadInCompany(ctx, companyID, leadID)
	if apiErr != nil {
		return nil, apiErr
	}

	if !CanEditLead(actor, lead) {
		return nil, utils.CreateForbiddenError()
	}

	oldStatus := lead.Status

	_, err := repository.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := repository.Collection(repository.LeadsCollection).UpdateOne(sc,
			bson.M{"_id": lead.ID},
			bson.M{"$set": bson.M{"status": newStatus, "updatedat": time.Now()}}); err != nil {
			return nil, err
		}

		if lead.AssignedTo != "" {
			switch newStatus {
			case models.LeadStatusConverted:
				if err := incrementUserCounter(sc, lead.AssignedTo, "totalleadsconverted", 1); err != nil {
					return nil, err
				}
			case models.LeadStatusWon:
				if err := incrementUserCounter(sc, lead.AssignedTo, "totalleadswon", 1); err != nil {
					return nil, err
				}
			}
		}

		description := fmt.Sprintf("Status changed from %q to %q",
			models.StatusLabel(oldStatus), models.StatusLabel(newStatus))
		return nil, AppendActivity(sc, leadID, actor, models.ActivityTypeStatusChanged, description)
	})
	if err != nil {
		utils.Logger.Error().Err(err).Str("leadId", leadID).Msg("修改线索状态失败")
		return nil, utils.NewApiError("修改线索状态失败", 500, "INTERNAL_ERROR")
	}

	lead.Status = newStatus
	return lead, nil
}

// ChangeLeadStage 修改线索阶段
func ChangeLeadStage(ctx context.Context, companyID, leadID, newStageID string, actor *utils.LoginUser) (*models.Lead, *utils.ApiError) {
	lead, apiErr := FindLeadInCompany(ctx, companyID, leadID)
	if apiErr != nil {
		return nil, apiErr
	}

	if !CanEditLead(actor, lead) {
		return nil, utils.CreateForbiddenError()
	}

	newStage, apiErr := findStage(ctx, newStageID)
	if apiErr != nil {
		return nil, apiErr
	}

	oldStageName := "Not specified"
	if oldStage, stageErr := findStage(ctx, lead.StageID); stageErr == nil {
		oldStageName = oldStage.Name
	}

	_, err := repository.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := repository.Collection(repository.LeadsCollection).UpdateOne(sc,
			bson.M{"_id": lead.ID},
			bson.M{"$set": bson.M{"stageid": newStageID, "updatedat": time.Now()}}); err != nil {
			return nil, err
		}

		description := fmt.Sprintf("Stage changed from %q to %q", oldStageName, newStage.Name)
		return nil, AppendActivity(sc, leadID, actor, models.ActivityTypeStageChanged, description)
	})
	if err != nil {
		utils.Logger.Error().Err(err).Str("leadId", leadID).Msg("修改线索阶段失败")
		return nil, utils.NewApiError("修改线索阶段失败", 500, "INTERNAL_ERROR")
	}

	lead.StageID = newStageID
	return lead, nil
}

// AddLeadNote 添加备注
// 备注行始终写入；note_added活动在1秒去重窗口内只记一条
func AddLeadNote(ctx context.Context, companyID, leadID, content string, actor *utils.LoginUser) (*models.Note, *utils.ApiError) {
	if strings.TrimSpace(content) == "" {
		return nil, utils.CreateValidationError("content", "备注内容不能为空")
	}

	lead, apiErr := FindLeadInCompany(ctx, companyID, leadID)
	if apiErr != nil {
		return nil, apiErr
	}

	note := models.Note{
		ID:        primitive.NewObjectID(),
		LeadID:    lead.ID.Hex(),
		Content:   content,
		CreatedAt: time.Now(),
	}
	if actor != nil {
		note.UserID = actor.ID
		note.UserName = actor.Name
	}

	_, err := repository.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := repository.Collection(repository.NotesCollection).InsertOne(sc, note); err != nil {
			return nil, err
		}
		return nil, AppendNoteActivity(sc, leadID, actor)
	})
	if err != nil {
		utils.Logger.Error().Err(err).Str("leadId", leadID).Msg("添加备注失败")
		return nil, utils.NewApiError("添加备注失败", 500, "INTERNAL_ERROR")
	}

	return &note, nil
}

// SoftDeleteLead 软删除线索
// won状态的线索不可删除；删除后行仍保留，列表和看板默认排除
func SoftDeleteLead(ctx context.Context, companyID, leadID string, actor *utils.LoginUser) *utils.ApiError {
	lead, apiErr := FindLeadInCompany(ctx, companyID, leadID)
	if apiErr != nil {
		return apiErr
	}

	if lead.Status == models.LeadStatusWon {
		return utils.CreateBadRequestError("赢单线索不可删除")
	}

	oldStatus := lead.Status

	_, err := repository.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := repository.Collection(repository.LeadsCollection).UpdateOne(sc,
			bson.M{"_id": lead.ID},
			bson.M{"$set": bson.M{"status": models.LeadStatusDeleted, "updatedat": time.Now()}}); err != nil {
			return nil, err
		}

		description := fmt.Sprintf("Status changed from %q to %q",
			models.StatusLabel(oldStatus), models.StatusLabel(models.LeadStatusDeleted))
		return nil, AppendActivity(sc, leadID, actor, models.ActivityTypeStatusChanged, description)
	})
	if err != nil {
		utils.Logger.Error().Err(err).Str("leadId", leadID).Msg("删除线索失败")
		return utils.NewApiError("删除线索失败", 500, "INTERNAL_ERROR")
	}

	return nil
}

// BulkItemError 批量操作中单条线索的失败信息
type BulkItemError struct {
	LeadID string `json:"leadId"`
	Error  string `json:"error"`
}

// BulkResult 批量操作结果
type BulkResult struct {
	Succeeded int             `json:"succeeded"`
	Failed    []BulkItemError `json:"failed"`
}

// bulkActionRequiredPermission 批量操作映射到与单线索路由一致的权限动作
// 删除走leads/delete，分配走leads/assign，其余走leads/update
func bulkActionRequiredPermission(req models.BulkLeadRequest) string {
	switch {
	case req.Status == models.LeadStatusDeleted:
		return "delete"
	case req.Status != "":
		return "update"
	case req.UserID != "":
		return "assign"
	default:
		return "update"
	}
}

// BulkUpdateLeads 批量操作：逐条应用单线索操作，收集失败项，不中断整批
// 每条线索自身的状态+活动写入是原子单元，整批没有全局事务
// 角色门槛与单线索路由相同，删除和分配不因走批量入口而放宽
func BulkUpdateLeads(ctx context.Context, companyID string, req models.BulkLeadRequest, actor *utils.LoginUser) (*BulkResult, *utils.ApiError) {
	if actor == nil || !utils.HasPermission(actor.Role, "leads", bulkActionRequiredPermission(req)) {
		return nil, utils.CreateForbiddenError()
	}

	result := &BulkResult{Failed: []BulkItemError{}}

	for _, leadID := range req.LeadIDs {
		var apiErr *utils.ApiError

		switch {
		case req.Status == models.LeadStatusDeleted:
			apiErr = SoftDeleteLead(ctx, companyID, leadID, actor)
		case req.Status != "":
			_, apiErr = ChangeLeadStatus(ctx, companyID, leadID, req.Status, actor)
		case req.UserID != "":
			ok, assignErr := AssignLead(ctx, companyID, leadID, req.UserID, actor)
			if assignErr != nil {
				apiErr = assignErr
			} else if !ok {
				apiErr = utils.CreateBadRequestError("线索状态不允许分配")
			}
		case req.Priority != "":
			apiErr = bulkSetPriority(ctx, companyID, leadID, req.Priority, actor)
		default:
			apiErr = utils.CreateBadRequestError("缺少批量操作类型")
		}

		if apiErr != nil {
			result.Failed = append(result.Failed, BulkItemError{LeadID: leadID, Error: apiErr.Message})
			continue
		}
		result.Succeeded++
	}

	return result, nil
}

// bulkSetPriority 批量设置优先级中的单条操作
func bulkSetPriority(ctx context.Context, companyID, leadID string, priority models.LeadPriority, actor *utils.LoginUser) *utils.ApiError {
	if !models.IsValidLeadPriority(priority) {
		return utils.CreateValidationError("priority", "优先级无效")
	}

	lead, apiErr := FindLeadInCompany(ctx, companyID, leadID)
	if apiErr != nil {
		return apiErr
	}

	if !CanEditLead(actor, lead) {
		return utils.CreateForbiddenError()
	}

	_, err := repository.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := repository.Collection(repository.LeadsCollection).UpdateOne(sc,
			bson.M{"_id": lead.ID},
			bson.M{"$set": bson.M{"priority": priority, "updatedat": time.Now()}}); err != nil {
			return nil, err
		}
		return nil, AppendActivity(sc, leadID, actor, models.ActivityTypeFieldUpdated, "Updated priority")
	})
	if err != nil {
		utils.Logger.Error().Err(err).Str("leadId", leadID).Msg("更新优先级失败")
		return utils.NewApiError("更新优先级失败", 500, "INTERNAL_ERROR")
	}

	return nil
}

// incrementUserCounter 原子递增用户业绩计数器
func incrementUserCounter(ctx context.Context, userID, field string, delta int) error {
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("无效的用户ID: %w", err)
	}

	_, err = repository.Collection(repository.UsersCollection).UpdateOne(ctx,
		bson.M{"_id": objID},
		bson.M{"$inc": bson.M{field: delta}})
	return err
}

// decrementUserCounterFloored 原子递减用户计数器，不低于0
func decrementUserCounterFloored(ctx context.Context, userID, field string) error {
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("无效的用户ID: %w", err)
	}

	// 管道更新表达 max(0, n-1)，避免应用层读改写的丢失更新
	update := mongo.Pipeline{
		bson.D{{Key: "$set", Value: bson.D{{Key: field, Value: bson.D{
			{Key: "$max", Value: bson.A{0, bson.D{{Key: "$subtract", Value: bson.A{"$" + field, 1}}}}},
		}}}}},
	}

	_, err = repository.Collection(repository.UsersCollection).UpdateOne(ctx, bson.M{"_id": objID}, update)
	return err
}

// validateAssignee 校验被分配人是本公司的有效用户
func validateAssignee(ctx context.Context, companyID, userID string) *utils.ApiError {
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return utils.CreateNotFoundError("用户")
	}

	count, err := repository.Collection(repository.UsersCollection).CountDocuments(ctx, bson.M{
		"_id":       objID,
		"companyid": companyID,
		"isactive":  true,
	})
	if err != nil {
		utils.Logger.Error().Err(err).Str("userId", userID).Msg("查询用户失败")
		return utils.NewApiError("查询用户失败", 500, "INTERNAL_ERROR")
	}
	if count == 0 {
		return utils.CreateNotFoundError("用户")
	}

	return nil
}

// assigneeDisplayName 查询用户展示名，失败时退回ID
func assigneeDisplayName(ctx context.Context, userID string) string {
	user, err := repository.FindUserByID(userID)
	if err != nil {
		return userID
	}
	return user.FullName()
}

// validateCatalogRef 校验目录项(来源/阶段)存在
func validateCatalogRef(ctx context.Context, collection, id, label string) *utils.ApiError {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return utils.CreateNotFoundError(label)
	}

	count, err := repository.Collection(collection).CountDocuments(ctx, bson.M{"_id": objID})
	if err != nil {
		utils.Logger.Error().Err(err).Str("id", id).Msg("查询目录项失败")
		return utils.NewApiError("查询失败", 500, "INTERNAL_ERROR")
	}
	if count == 0 {
		return utils.CreateNotFoundError(label)
	}

	return nil
}

// findStage 按ID查找阶段
func findStage(ctx context.Context, stageID string) (*models.LeadStage, *utils.ApiError) {
	objID, err := primitive.ObjectIDFromHex(stageID)
	if err != nil {
		return nil, utils.CreateNotFoundError("线索阶段")
	}

	var stage models.LeadStage
	err = repository.Collection(repository.LeadStagesCollection).FindOne(ctx, bson.M{"_id": objID}).Decode(&stage)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.CreateNotFoundError("线索阶段")
		}
		return nil, utils.NewApiError("查询线索阶段失败", 500, "INTERNAL_ERROR")
	}

	return &stage, nil
}
