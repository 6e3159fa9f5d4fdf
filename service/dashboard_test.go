package service

import (
	"testing"
	"time"

	"github.com/catchycrm/crm_end/models"

	"github.com/stretchr/testify/assert"
)

func TestWeekStart(t *testing.T) {
	// 2026-08-28 是周五
	friday := time.Date(2026, 8, 28, 15, 30, 0, 0, time.UTC)
	start := WeekStart(friday)
	assert.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Monday, start.Weekday())

	// 周一当天归本周
	monday := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), WeekStart(monday))

	// 周日归上周一开始的那一周
	sunday := time.Date(2026, 8, 30, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), WeekStart(sunday))
}

func TestRate(t *testing.T) {
	assert.InDelta(t, 50.0, Rate(5, 10), 0.001)
	assert.InDelta(t, 100.0, Rate(10, 10), 0.001)
	assert.InDelta(t, 33.333, Rate(1, 3), 0.001)
	// 除零保护
	assert.Equal(t, 0.0, Rate(5, 0))
	assert.Equal(t, 0.0, Rate(0, 0))
}

func TestIsConvertedStage(t *testing.T) {
	tests := []struct {
		name     string
		stage    models.LeadStage
		expected bool
	}{
		{"patient类型", models.LeadStage{Name: "Treatment", StageType: models.StageTypePatient}, true},
		{"closed类型", models.LeadStage{Name: "Done", StageType: models.StageTypeClosed}, true},
		{"名称含converted", models.LeadStage{Name: "Converted Leads", StageType: models.StageTypeLead}, true},
		{"名称含patient", models.LeadStage{Name: "New Patient", StageType: models.StageTypeLead}, true},
		{"名称含won", models.LeadStage{Name: "Won Deals", StageType: models.StageTypeLead}, true},
		{"名称大小写不敏感", models.LeadStage{Name: "CONVERTED", StageType: models.StageTypeLead}, true},
		{"普通lead阶段", models.LeadStage{Name: "New Enquiry", StageType: models.StageTypeLead}, false},
		{"跟进阶段", models.LeadStage{Name: "Follow Up", StageType: models.StageTypeLead}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsConvertedStage(tt.stage))
		})
	}
}
