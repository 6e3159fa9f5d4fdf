package service

import (
	"context"
	"strings"
	"time"

	"github.com/catchycrm/crm_end/models"
	"github.com/catchycrm/crm_end/repository"
	"github.com/catchycrm/crm_end/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// WeekStart 本周周一零点
func WeekStart(now time.Time) time.Time {
	daysSinceMonday := int(now.Weekday()) - 1
	if now.Weekday() == time.Sunday {
		daysSinceMonday = 6
	}
	monday := now.AddDate(0, 0, -daysSinceMonday)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, now.Location())
}

// Rate 比率 = x/total*100，total为0时返回0
func Rate(x, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(x) / float64(total) * 100
}

// BuildDashboardData 构建数据看板
// 基于非删除线索的实时统计；坐席只看自己的数据，管理员看全公司
func BuildDashboardData(ctx context.Context, companyID string, user *utils.LoginUser) (*models.DashboardDataResponse, error) {
	leadsCollection := repository.Collection(repository.LeadsCollection)

	// 基础过滤：本公司非软删除线索；坐席只统计分配给自己的
	baseFilter := bson.M{
		"companyid": companyID,
		"status":    bson.M{"$ne": models.LeadStatusDeleted},
	}
	if user != nil && user.Role == models.UserRoleAGENT {
		baseFilter["assignedto"] = user.ID
	}

	resp := &models.DashboardDataResponse{}

	total, err := leadsCollection.CountDocuments(ctx, baseFilter)
	if err != nil {
		return nil, err
	}
	resp.TotalLeads = int(total)

	// 时间窗口统计
	now := time.Now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := WeekStart(now)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	for _, window := range []struct {
		since time.Time
		dest  *int
	}{
		{todayStart, &resp.NewToday},
		{weekStart, &resp.NewThisWeek},
		{monthStart, &resp.NewThisMonth},
	} {
		count, err := leadsCollection.CountDocuments(ctx, mergeFilter(baseFilter, bson.M{
			"createdat": bson.M{"$gte": window.since},
		}))
		if err != nil {
			return nil, err
		}
		*window.dest = int(count)
	}

	// 阶段分布
	stageCounts, err := countByField(ctx, baseFilter, "$stageid")
	if err != nil {
		return nil, err
	}
	stages, err := listActiveStages(ctx)
	if err != nil {
		return nil, err
	}
	resp.LeadsByStage = []models.StageDistributionItem{}
	for _, stage := range stages {
		count := stageCounts[stage.ID.Hex()]
		resp.LeadsByStage = append(resp.LeadsByStage, models.StageDistributionItem{
			Name:       stage.Name,
			Count:      count,
			Percentage: Rate(count, resp.TotalLeads),
			Color:      stage.Color,
			Icon:       stage.Icon,
		})
	}

	// 来源分布
	sourceCounts, err := countByField(ctx, baseFilter, "$sourceid")
	if err != nil {
		return nil, err
	}
	sources, err := listActiveSources(ctx)
	if err != nil {
		return nil, err
	}
	resp.LeadsBySource = []models.ChartDataItem{}
	for _, source := range sources {
		resp.LeadsBySource = append(resp.LeadsBySource, models.ChartDataItem{
			Name:  source.Name,
			Value: sourceCounts[source.ID.Hex()],
		})
	}

	// 近7天每日趋势
	resp.Last7Days = []models.DailyTrendItem{}
	for i := 6; i >= 0; i-- {
		dayStart := todayStart.AddDate(0, 0, -i)
		dayEnd := dayStart.AddDate(0, 0, 1)
		count, err := leadsCollection.CountDocuments(ctx, mergeFilter(baseFilter, bson.M{
			"createdat": bson.M{"$gte": dayStart, "$lt": dayEnd},
		}))
		if err != nil {
			return nil, err
		}
		resp.Last7Days = append(resp.Last7Days, models.DailyTrendItem{
			Date:      dayStart.Format("2006-01-02"),
			DateLabel: dayStart.Format("02 Jan"),
			Count:     int(count),
		})
	}

	// 坐席业绩：从当前线索数据实时计算，不读用户上的缓存计数器
	performance, err := buildAgentPerformance(ctx, companyID, user)
	if err != nil {
		return nil, err
	}
	resp.AgentPerformance = performance

	return resp, nil
}

// buildAgentPerformance 实时计算坐席业绩
// converted 判定：状态converted/won，或所处阶段的stagetype/名称匹配converted/patient/won
func buildAgentPerformance(ctx context.Context, companyID string, user *utils.LoginUser) ([]models.AgentPerformanceItem, error) {
	usersFilter := bson.M{"companyid": companyID, "isactive": true}
	if user != nil && user.Role == models.UserRoleAGENT {
		objID, err := leadObjectID(user.ID)
		if err != nil {
			return nil, err
		}
		usersFilter = bson.M{"_id": objID}
	}

	cursor, err := repository.Collection(repository.UsersCollection).Find(ctx, usersFilter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var agents []models.User
	if err := cursor.All(ctx, &agents); err != nil {
		return nil, err
	}

	convertedStageIDs, err := convertedStageIDSet(ctx)
	if err != nil {
		return nil, err
	}

	leadsCollection := repository.Collection(repository.LeadsCollection)
	items := []models.AgentPerformanceItem{}

	for _, agent := range agents {
		agentID := agent.ID.Hex()
		agentFilter := bson.M{
			"companyid":  companyID,
			"assignedto": agentID,
			"status":     bson.M{"$ne": models.LeadStatusDeleted},
		}

		assigned, err := leadsCollection.CountDocuments(ctx, agentFilter)
		if err != nil {
			return nil, err
		}

		converted, err := leadsCollection.CountDocuments(ctx, mergeFilter(agentFilter, bson.M{
			"$or": bson.A{
				bson.M{"status": bson.M{"$in": bson.A{models.LeadStatusConverted, models.LeadStatusWon}}},
				bson.M{"stageid": bson.M{"$in": convertedStageIDs}},
			},
		}))
		if err != nil {
			return nil, err
		}

		won, err := leadsCollection.CountDocuments(ctx, mergeFilter(agentFilter, bson.M{
			"status": models.LeadStatusWon,
		}))
		if err != nil {
			return nil, err
		}

		items = append(items, models.AgentPerformanceItem{
			UserID:         agentID,
			Name:           agent.FullName(),
			Assigned:       int(assigned),
			Converted:      int(converted),
			Won:            int(won),
			ConversionRate: Rate(int(converted), int(assigned)),
			WinRate:        Rate(int(won), int(assigned)),
		})
	}

	return items, nil
}

// convertedStageIDSet 判定"已转化"的阶段ID集合
func convertedStageIDSet(ctx context.Context) (bson.A, error) {
	cursor, err := repository.Collection(repository.LeadStagesCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var stages []models.LeadStage
	if err := cursor.All(ctx, &stages); err != nil {
		return nil, err
	}

	ids := bson.A{}
	for _, stage := range stages {
		if IsConvertedStage(stage) {
			ids = append(ids, stage.ID.Hex())
		}
	}
	return ids, nil
}

// IsConvertedStage 阶段是否计入转化：stagetype为patient/closed，或名称含converted/patient/won
func IsConvertedStage(stage models.LeadStage) bool {
	if stage.StageType == models.StageTypePatient || stage.StageType == models.StageTypeClosed {
		return true
	}
	name := strings.ToLower(stage.Name)
	for _, keyword := range []string{"converted", "patient", "won"} {
		if strings.Contains(name, keyword) {
			return true
		}
	}
	return false
}

// countByField 按字段聚合计数
func countByField(ctx context.Context, baseFilter bson.M, field string) (map[string]int, error) {
	pipeline := []bson.M{
		{"$match": baseFilter},
		{"$group": bson.M{"_id": field, "count": bson.M{"$sum": 1}}},
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

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.ID] = row.Count
	}
	return counts, nil
}

// listActiveStages 启用中的阶段，按显示顺序
func listActiveStages(ctx context.Context) ([]models.LeadStage, error) {
	findOptions := options.Find().SetSort(bson.M{"order": 1})
	cursor, err := repository.Collection(repository.LeadStagesCollection).Find(ctx, bson.M{"isactive": true}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var stages []models.LeadStage
	if err := cursor.All(ctx, &stages); err != nil {
		return nil, err
	}
	return stages, nil
}

// listActiveSources 启用中的来源，按显示顺序
func listActiveSources(ctx context.Context) ([]models.LeadSource, error) {
	findOptions := options.Find().SetSort(bson.M{"order": 1})
	cursor, err := repository.Collection(repository.LeadSourcesCollection).Find(ctx, bson.M{"isactive": true}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sources []models.LeadSource
	if err := cursor.All(ctx, &sources); err != nil {
		return nil, err
	}
	return sources, nil
}

// mergeFilter 合并查询条件，不修改原条件
func mergeFilter(base bson.M, extra bson.M) bson.M {
	merged := bson.M{}
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}
