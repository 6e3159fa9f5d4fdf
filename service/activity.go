package service

import (
	"context"
	"fmt"
	"time"

	"github.com/catchycrm/crm_end/models"
	"github.com/catchycrm/crm_end/repository"
	"github.com/catchycrm/crm_end/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// noteActivityDedupWindow note_added 活动的去重窗口
// 备注创建和消息入站两条独立路径可能在极短时间内记录同一逻辑事件
const noteActivityDedupWindow = time.Second

// AppendActivity 追加一条活动记录，必须与触发它的状态变更共用同一事务上下文
func AppendActivity(ctx context.Context, leadID string, actor *utils.LoginUser, activityType models.ActivityType, description string) error {
	activity := models.Activity{
		LeadID:       leadID,
		ActivityType: activityType,
		Description:  description,
		CreatedAt:    time.Now(),
	}
	if actor != nil {
		activity.UserID = actor.ID
		activity.UserName = actor.Name
	}

	_, err := repository.Collection(repository.ActivitiesCollection).InsertOne(ctx, activity)
	if err != nil {
		return fmt.Errorf("写入活动记录失败: %w", err)
	}
	return nil
}

// AppendNoteActivity 追加 note_added 活动，1秒窗口内的等价活动只记一条
// 去重只作用于活动记录，备注本身始终写入
func AppendNoteActivity(ctx context.Context, leadID string, actor *utils.LoginUser) error {
	activitiesCollection := repository.Collection(repository.ActivitiesCollection)

	userID := ""
	if actor != nil {
		userID = actor.ID
	}

	count, err := activitiesCollection.CountDocuments(ctx, bson.M{
		"leadid":       leadID,
		"userid":       userID,
		"activitytype": models.ActivityTypeNoteAdded,
		"createdat":    bson.M{"$gte": time.Now().Add(-noteActivityDedupWindow)},
	})
	if err != nil {
		return fmt.Errorf("查询活动记录失败: %w", err)
	}
	if count > 0 {
		utils.Logger.Debug().Str("leadId", leadID).Msg("去重窗口内已存在note_added活动，跳过")
		return nil
	}

	return AppendActivity(ctx, leadID, actor, models.ActivityTypeNoteAdded, "Added a note")
}

// ListActivities 按时间倒序返回线索的活动记录
func ListActivities(ctx context.Context, leadID string, limit int64) ([]models.Activity, error) {
	findOptions := options.Find().SetSort(bson.M{"createdat": -1})
	if limit > 0 {
		findOptions.SetLimit(limit)
	}

	cursor, err := repository.Collection(repository.ActivitiesCollection).Find(ctx, bson.M{"leadid": leadID}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("查询活动记录失败: %w", err)
	}
	defer cursor.Close(ctx)

	activities := []models.Activity{}
	if err := cursor.All(ctx, &activities); err != nil {
		return nil, fmt.Errorf("解析活动记录失败: %w", err)
	}

	return activities, nil
}

// leadObjectID 解析线索ID
func leadObjectID(id string) (primitive.ObjectID, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("无效的ID格式: %w", err)
	}
	return objID, nil
}
