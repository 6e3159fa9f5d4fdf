package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLeadCanBeAssigned(t *testing.T) {
	assignable := []LeadStatus{LeadStatusNew, LeadStatusContacted, LeadStatusQualified, LeadStatusConverted, LeadStatusDeleted}
	for _, status := range assignable {
		lead := Lead{Status: status}
		assert.True(t, lead.CanBeAssigned(), "status %s 应允许分配", status)
	}

	for _, status := range []LeadStatus{LeadStatusWon, LeadStatusLost} {
		lead := Lead{Status: status}
		assert.False(t, lead.CanBeAssigned(), "status %s 不应允许分配", status)
	}
}

func TestLeadIsDeleted(t *testing.T) {
	assert.True(t, (&Lead{Status: LeadStatusDeleted}).IsDeleted())
	assert.False(t, (&Lead{Status: LeadStatusNew}).IsDeleted())
}

func TestLeadInitials(t *testing.T) {
	tests := []struct {
		name     string
		lead     Lead
		expected string
	}{
		{"双词姓名", Lead{Name: "John Smith"}, "JS"},
		{"单词姓名", Lead{Name: "madonna"}, "M"},
		{"多词取前两个", Lead{Name: "Jose Luis Garcia"}, "JL"},
		{"无姓名退回手机号", Lead{Phone: "+85291234567"}, "+"},
		{"无姓名无手机号退回邮箱", Lead{Email: "abc@example.com"}, "A"},
		{"全空", Lead{}, "?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.lead.Initials())
		})
	}
}

func TestTimeSinceCreated(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		created  time.Time
		expected string
	}{
		{"刚刚", now.Add(-30 * time.Second), "Just now"},
		{"单数分钟", now.Add(-1 * time.Minute), "1 minute ago"},
		{"复数分钟", now.Add(-45 * time.Minute), "45 minutes ago"},
		{"单数小时", now.Add(-90 * time.Minute), "1 hour ago"},
		{"复数小时", now.Add(-5 * time.Hour), "5 hours ago"},
		{"单数天", now.Add(-36 * time.Hour), "1 day ago"},
		{"复数天", now.Add(-10 * 24 * time.Hour), "10 days ago"},
		{"单数月", now.Add(-40 * 24 * time.Hour), "1 month ago"},
		{"复数月", now.Add(-95 * 24 * time.Hour), "3 months ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lead := Lead{CreatedAt: tt.created}
			assert.Equal(t, tt.expected, lead.TimeSinceCreated(now))
		})
	}
}

func TestTimeUntilFollowUp(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	future := func(d time.Duration) *time.Time {
		ts := now.Add(d)
		return &ts
	}

	tests := []struct {
		name     string
		followUp *time.Time
		expected string
	}{
		{"未设置", nil, ""},
		{"已逾期", future(-time.Hour), "Overdue"},
		{"分钟级", future(30 * time.Minute), "In 30 minutes"},
		{"单数小时", future(90 * time.Minute), "In 1 hour"},
		{"复数小时", future(6 * time.Hour), "In 6 hours"},
		{"单数天", future(25 * time.Hour), "In 1 day"},
		{"复数天", future(72 * time.Hour), "In 3 days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lead := Lead{NextFollowUp: tt.followUp}
			assert.Equal(t, tt.expected, lead.TimeUntilFollowUp(now))
		})
	}
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "New", StatusLabel(LeadStatusNew))
	assert.Equal(t, "Won", StatusLabel(LeadStatusWon))
	// 未知状态原样返回
	assert.Equal(t, "mystery", StatusLabel(LeadStatus("mystery")))
}

func TestIsValidLeadStatus(t *testing.T) {
	for _, status := range []LeadStatus{LeadStatusNew, LeadStatusContacted, LeadStatusQualified, LeadStatusConverted, LeadStatusWon, LeadStatusLost, LeadStatusDeleted} {
		assert.True(t, IsValidLeadStatus(status))
	}
	assert.False(t, IsValidLeadStatus(LeadStatus("archived")))
	assert.False(t, IsValidLeadStatus(LeadStatus("")))
}

func TestIsValidLeadPriority(t *testing.T) {
	assert.True(t, IsValidLeadPriority(LeadPriorityLow))
	assert.True(t, IsValidLeadPriority(LeadPriorityMedium))
	assert.True(t, IsValidLeadPriority(LeadPriorityHigh))
	assert.False(t, IsValidLeadPriority(LeadPriority("urgent")))
}
