package service

import (
	"fmt"
	"time"

	"github.com/catchycrm/crm_end/models"
	"github.com/catchycrm/crm_end/repository"
	"github.com/catchycrm/crm_end/utils"

	"go.mongodb.org/mongo-driver/bson"
)

// ScheduleDailyTaskAt 每天指定时间执行任务
func ScheduleDailyTaskAt(hour, min, sec int, task func()) {
	go func() {
		for {
			now := time.Now()
			next := time.Date(now.Year(), now.Month(), now.Day(), hour, min, sec, 0, now.Location())
			if now.After(next) {
				next = next.Add(24 * time.Hour)
			}
			duration := next.Sub(now)
			time.Sleep(duration)
			task()
		}
	}()
}

// ProcessFollowUpReminders 每日跟进提醒扫描
// 对跟进时间已过期且仍在跟进中的线索写follow_up_reminder活动
func ProcessFollowUpReminders() {
	now := time.Now()
	utils.Logger.Info().Time("time", now).Msg("开始执行每日跟进提醒扫描任务")

	ctx := repository.GetContext()

	leadsCollection := repository.Collection(repository.LeadsCollection)
	cursor, err := leadsCollection.Find(ctx, bson.M{
		"nextfollowup": bson.M{"$lt": now},
		"status": bson.M{"$in": bson.A{
			models.LeadStatusNew,
			models.LeadStatusContacted,
			models.LeadStatusQualified,
		}},
	})
	if err != nil {
		utils.Logger.Error().Err(err).Msg("查询过期跟进线索失败")
		return
	}
	defer cursor.Close(ctx)

	var leads []models.Lead
	if err := cursor.All(ctx, &leads); err != nil {
		utils.Logger.Error().Err(err).Msg("解析线索数据失败")
		return
	}

	reminded := 0
	for _, lead := range leads {
		// 同一天内只提醒一次
		todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		count, err := repository.Collection(repository.ActivitiesCollection).CountDocuments(ctx, bson.M{
			"leadid":       lead.ID.Hex(),
			"activitytype": models.ActivityTypeFollowUpReminder,
			"createdat":    bson.M{"$gte": todayStart},
		})
		if err != nil {
			utils.Logger.Error().Err(err).Str("leadId", lead.ID.Hex()).Msg("查询提醒活动失败")
			continue
		}
		if count > 0 {
			continue
		}

		description := fmt.Sprintf("Follow-up overdue since %s", lead.NextFollowUp.Format("2006-01-02 15:04"))
		if err := AppendActivity(ctx, lead.ID.Hex(), nil, models.ActivityTypeFollowUpReminder, description); err != nil {
			utils.Logger.Error().Err(err).Str("leadId", lead.ID.Hex()).Msg("写入提醒活动失败")
			continue
		}
		reminded++
	}

	utils.Logger.Info().
		Int("checked", len(leads)).
		Int("reminded", reminded).
		Msg("每日跟进提醒扫描任务完成")
}
