package models

// 图表数据项
type ChartDataItem struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// StageDistributionItem 阶段分布项（含占比）
type StageDistributionItem struct {
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	Color      string  `json:"color"`
	Icon       string  `json:"icon,omitempty"`
}

// DailyTrendItem 近7天每日趋势项
type DailyTrendItem struct {
	Date      string `json:"date"`      // 格式: YYYY-MM-DD
	DateLabel string `json:"dateLabel"` // 格式: "05 Dec"
	Count     int    `json:"count"`
}

// AgentPerformanceItem 坐席业绩项（基于实时数据计算，不读缓存计数器）
type AgentPerformanceItem struct {
	UserID         string  `json:"userId"`
	Name           string  `json:"name"`
	Assigned       int     `json:"assigned"`
	Converted      int     `json:"converted"`
	Won            int     `json:"won"`
	ConversionRate float64 `json:"conversionRate"`
	WinRate        float64 `json:"winRate"`
}

// DashboardDataResponse 数据看板响应结构
type DashboardDataResponse struct {
	TotalLeads   int `json:"totalLeads"`   // 线索总数（不含软删除）
	NewToday     int `json:"newToday"`     // 今日新增
	NewThisWeek  int `json:"newThisWeek"`  // 本周新增（周一起算）
	NewThisMonth int `json:"newThisMonth"` // 本月新增

	LeadsByStage  []StageDistributionItem `json:"leadsByStage"`  // 阶段分布
	LeadsBySource []ChartDataItem         `json:"leadsBySource"` // 来源分布
	Last7Days     []DailyTrendItem        `json:"last7Days"`     // 近7天趋势

	AgentPerformance []AgentPerformanceItem `json:"agentPerformance"` // 坐席业绩
}
